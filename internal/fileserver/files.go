package fileserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// serveFile answers with the file named by the request path, honoring
// Range and conditional headers.
func (a *App) serveFile(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	if name == "" {
		name = "."
	}
	if !fs.ValidPath(name) {
		return NewError(http.StatusBadRequest, fmt.Errorf("invalid path %q", r.URL.Path))
	}

	_, span := GetValues(ctx).Tracer.Start(ctx, "fileserver.open")
	span.SetAttributes(attribute.String("file", name))
	defer span.End()

	f, err := a.fsys.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewError(http.StatusNotFound, fmt.Errorf("file %q not found", name))
		}
		return fmt.Errorf("opening %q: %w", name, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %q: %w", name, err)
	}
	if fi.IsDir() {
		return NewError(http.StatusNotFound, fmt.Errorf("%q is a directory", name))
	}

	rs, ok := f.(io.ReadSeeker)
	if !ok {
		return fmt.Errorf("file %q is not seekable", name)
	}

	http.ServeContent(w, r, fi.Name(), fi.ModTime(), rs)

	return nil
}
