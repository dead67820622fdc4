package stream

import (
	"fmt"
	"strconv"
	"strings"
)

// contentRange is a parsed "Content-Range: bytes <start>-<end>/<total>"
// header. total is -1 when the server sent "*".
type contentRange struct {
	start int64
	end   int64
	total int64
}

func parseContentRange(v string) (contentRange, error) {
	if v == "" {
		return contentRange{}, fmt.Errorf("%w: header missing", ErrContentRange)
	}

	unit, spec, ok := strings.Cut(strings.TrimSpace(v), " ")
	if !ok || unit != "bytes" {
		return contentRange{}, fmt.Errorf("%w: %q", ErrContentRange, v)
	}

	rng, size, ok := strings.Cut(spec, "/")
	if !ok {
		return contentRange{}, fmt.Errorf("%w: no total in %q", ErrContentRange, v)
	}

	first, last, ok := strings.Cut(rng, "-")
	if !ok {
		return contentRange{}, fmt.Errorf("%w: no range in %q", ErrContentRange, v)
	}

	var cr contentRange
	var err error
	if cr.start, err = strconv.ParseInt(first, 10, 64); err != nil || cr.start < 0 {
		return contentRange{}, fmt.Errorf("%w: start of %q", ErrContentRange, v)
	}
	if cr.end, err = strconv.ParseInt(last, 10, 64); err != nil || cr.end < cr.start {
		return contentRange{}, fmt.Errorf("%w: end of %q", ErrContentRange, v)
	}

	if size == "*" {
		cr.total = -1
		return cr, nil
	}
	if cr.total, err = strconv.ParseInt(size, 10, 64); err != nil || cr.total <= cr.end {
		return contentRange{}, fmt.Errorf("%w: total of %q", ErrContentRange, v)
	}

	return cr, nil
}
