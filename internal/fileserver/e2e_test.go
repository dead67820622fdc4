package fileserver_test

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"testing/fstest"

	"github.com/adamwoolhether/httpseek"
	"github.com/adamwoolhether/httpseek/handle"
	"github.com/adamwoolhether/httpseek/internal/fileserver"
	"github.com/adamwoolhether/httpseek/stream"
)

func largeFile(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

// counted serves app and counts the requests that reach it.
func counted(t *testing.T, app http.Handler) (string, *atomic.Int32) {
	t.Helper()

	var n atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n.Add(1)
		app.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)

	return ts.URL, &n
}

func TestEndToEnd_Seek(t *testing.T) {
	data := largeFile(200000)
	fsys := fstest.MapFS{"blob.bin": {Data: data}}
	log := discardLogger()

	testCases := map[string]struct {
		mw          []fileserver.Middleware
		opts        []httpseek.Option
		expResume   bool
		expRequests int32
	}{
		"ranges": {
			expResume: true,
			// Initial connect plus one reopen per long jump.
			expRequests: 4,
		},
		"noRanges": {
			mw:        []fileserver.Middleware{fileserver.NoRanges()},
			expResume: false,
			// Initial connect plus a restart for the single backward seek.
			expRequests: 2,
		},
		"basicAuth": {
			mw:        []fileserver.Middleware{fileserver.BasicAuth("e2e", "user", "pass")},
			opts:      []httpseek.Option{httpseek.WithCredentials("user", "pass")},
			expResume: true,
			// One challenged request on top of the ranges case.
			expRequests: 5,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			app := fileserver.New(fsys,
				fileserver.WithLogger(log),
				fileserver.WithMiddleware(append([]fileserver.Middleware{fileserver.Errors(log)}, tc.mw...)...),
			)
			url, requests := counted(t, app)

			h, err := httpseek.Open(t.Context(), url+"/blob.bin", tc.opts...)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			defer h.Close()

			// Short forward jumps are read through; long ones reopen when
			// the server allows it.
			for _, pos := range []int64{10, 5000, 60000, 150000, 1000} {
				if _, err := h.Seek(pos, io.SeekStart); err != nil {
					t.Fatalf("seek %d: %v", pos, err)
				}
				got := make([]byte, 16)
				if err := h.ReadFully(got); err != nil {
					t.Fatalf("read at %d: %v", pos, err)
				}
				if !bytes.Equal(got, data[pos:pos+16]) {
					t.Fatalf("content mismatch at %d", pos)
				}
			}

			e := h.Source().(*stream.Engine)
			if e.CanRecreate() != tc.expResume {
				t.Errorf("exp resumable %v; got %v", tc.expResume, e.CanRecreate())
			}
			if got := requests.Load(); got != tc.expRequests {
				t.Errorf("exp %d requests; got %d", tc.expRequests, got)
			}

			n, err := h.Length()
			if err != nil || n != int64(len(data)) {
				t.Errorf("exp length %d; got %d, %v", len(data), n, err)
			}
		})
	}
}

func TestEndToEnd_MissingFile(t *testing.T) {
	log := discardLogger()
	app := fileserver.New(fstest.MapFS{}, fileserver.WithMiddleware(fileserver.Errors(log)))
	url, _ := counted(t, app)

	h, err := httpseek.Open(t.Context(), url+"/missing.bin")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer h.Close()

	_, err = h.Read(make([]byte, 1))
	connErr, ok := errors.AsType[*stream.ConnectionError](err)
	if !ok || connErr.StatusCode != http.StatusNotFound {
		t.Fatalf("exp 404 ConnectionError; got %v", err)
	}

	exists, err := h.Source().(*stream.Engine).Exists(t.Context())
	if err != nil || exists {
		t.Errorf("exp missing resource; got %v, %v", exists, err)
	}
}

func TestEndToEnd_ParkedAtEnd(t *testing.T) {
	data := largeFile(100)
	app := fileserver.New(fstest.MapFS{"small.bin": {Data: data}})
	url, _ := counted(t, app)

	h, err := httpseek.Open(t.Context(), url+"/small.bin", httpseek.WithHandleOptions(handle.WithJumpCutoff(0)))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer h.Close()

	if _, err := h.Seek(0, io.SeekEnd); err != nil {
		t.Fatalf("seek end: %v", err)
	}
	if _, err := h.ReadByte(); !errors.Is(err, io.EOF) {
		t.Errorf("exp EOF at end; got %v", err)
	}

	if _, err := h.Seek(-1, io.SeekEnd); err != nil {
		t.Fatalf("seek: %v", err)
	}
	b, err := h.ReadByte()
	if err != nil || b != data[99] {
		t.Errorf("exp last byte %d; got %d, %v", data[99], b, err)
	}
}
