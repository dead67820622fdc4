package download

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// progressWriter is an io.Writer, logging download progress at
// most once per second if enabled. It is safe for concurrent use.
type progressWriter struct {
	w           io.Writer
	logger      *slog.Logger
	total       int64
	startTime   time.Time
	mu          sync.Mutex
	transferred int64
	lastLog     time.Time
}

func newProgressWriter(w io.Writer, logger *slog.Logger, total int64) *progressWriter {
	return &progressWriter{
		w:         w,
		logger:    logger,
		total:     total,
		startTime: time.Now(),
	}
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.w.Write(p)

	pw.mu.Lock()
	defer pw.mu.Unlock()

	pw.transferred += int64(n)

	if time.Since(pw.lastLog) >= time.Second {
		pw.lastLog = time.Now()
		pw.log("downloading")
	}

	if pw.total >= 0 && n > 0 && pw.transferred == pw.total {
		pw.log("download complete")
	}

	return n, err
}

func (pw *progressWriter) log(msg string) {
	elapsed := time.Since(pw.startTime)

	progress := "unknown"
	if pw.total > 0 {
		progress = fmt.Sprintf("%.1f%%", float64(pw.transferred)/float64(pw.total)*100)
	}

	attrs := []any{
		"progress", progress,
		"elapsed", elapsed.Round(time.Millisecond),
		"transferred", pw.transferred,
		"total", pw.total,
		"mbps", fmt.Sprintf("%.2f", float64(pw.transferred)/elapsed.Seconds()/(1024*1024)),
	}
	pw.logger.Info(msg, attrs...)
}
