package stream_test

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/adamwoolhether/httpseek/client"
	"github.com/adamwoolhether/httpseek/handle"
	"github.com/adamwoolhether/httpseek/location"
	"github.com/adamwoolhether/httpseek/stream"
	"github.com/google/go-cmp/cmp"
)

var modTime = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

// fixture serves data, honoring ranges only when resumable is set.
type fixture struct {
	data       []byte
	resumable  bool
	user, pass string

	status       atomic.Int32
	requests     atomic.Int32
	unauthorized atomic.Int32

	mu       sync.Mutex
	ranges   []string
	authSent []bool
}

func (f *fixture) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.serve(w, r, f.resumable)
}

func (f *fixture) serve(w http.ResponseWriter, r *http.Request, resumable bool) {
	f.requests.Add(1)

	f.mu.Lock()
	f.ranges = append(f.ranges, r.Header.Get("Range"))
	f.authSent = append(f.authSent, r.Header.Get("Authorization") != "")
	f.mu.Unlock()

	if f.user != "" {
		u, p, ok := r.BasicAuth()
		if !ok || u != f.user || p != f.pass {
			f.unauthorized.Add(1)
			w.Header().Set("WWW-Authenticate", `Basic realm="test"`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
	}

	if s := f.status.Load(); s != 0 {
		w.WriteHeader(int(s))
		return
	}

	if !resumable {
		w.Header().Set("Content-Length", strconv.Itoa(len(f.data)))
		w.WriteHeader(http.StatusOK)
		w.Write(f.data)
		return
	}

	http.ServeContent(w, r, "data.bin", modTime, bytes.NewReader(f.data))
}

func (f *fixture) Ranges() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ranges...)
}

func (f *fixture) AuthSent() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.authSent...)
}

func testData(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*31 + i/256)
	}
	return b
}

func serve(t *testing.T, h http.Handler) string {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts.URL + "/data.bin"
}

func newEngine(t *testing.T, rawURL string, locOpts ...location.Option) *stream.Engine {
	t.Helper()

	loc, err := location.New(rawURL, locOpts...)
	if err != nil {
		t.Fatalf("new location: %v", err)
	}

	e, err := stream.New(loc)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	t.Cleanup(func() { e.Close() })

	return e
}

func newHandle(t *testing.T, e *stream.Engine, opts ...handle.Option) *handle.Handle {
	t.Helper()

	h, err := handle.New(t.Context(), e, opts...)
	if err != nil {
		t.Fatalf("new handle: %v", err)
	}
	t.Cleanup(func() { h.Close() })

	return h
}

func TestEngine_SeekReadMatchesSequentialRead(t *testing.T) {
	data := testData(700)

	testCases := map[string]struct {
		resumable bool
		cutoff    int64
	}{
		"resumableAlwaysReconnect": {resumable: true, cutoff: 0},
		"resumableMixed":           {resumable: true, cutoff: 64},
		"nonResumable":             {resumable: false, cutoff: 0},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			url := serve(t, &fixture{data: data, resumable: tc.resumable})

			sequential, err := io.ReadAll(newHandle(t, newEngine(t, url)))
			if err != nil {
				t.Fatalf("sequential read: %v", err)
			}
			if !bytes.Equal(sequential, data) {
				t.Fatal("sequential read does not match served data")
			}

			h := newHandle(t, newEngine(t, url), handle.WithJumpCutoff(tc.cutoff), handle.WithBufferSize(32))
			rng := rand.New(rand.NewPCG(1, 2))
			for _, p := range rng.Perm(len(data)) {
				if _, err := h.Seek(int64(p), io.SeekStart); err != nil {
					t.Fatalf("seek %d: %v", p, err)
				}
				b, err := h.ReadByte()
				if err != nil {
					t.Fatalf("read at %d: %v", p, err)
				}
				if b != sequential[p] {
					t.Fatalf("byte at %d: exp %d; got %d", p, sequential[p], b)
				}
			}
		})
	}
}

func TestEngine_ResumableServer(t *testing.T) {
	f := &fixture{data: testData(5000), resumable: true}
	e := newEngine(t, serve(t, f))

	if _, err := e.Connect(t.Context()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if !e.CanRecreate() {
		t.Fatal("exp server to be resumable after first connection")
	}

	h := newHandle(t, e, handle.WithJumpCutoff(0))
	for _, p := range []int64{4000, 10, 2500} {
		if _, err := h.Seek(p, io.SeekStart); err != nil {
			t.Fatalf("seek %d: %v", p, err)
		}
		if !e.CanRecreate() {
			t.Fatalf("exp server to stay resumable after seek to %d", p)
		}
	}

	exp := []string{"bytes=0-", "bytes=4000-", "bytes=10-", "bytes=2500-"}
	if diff := cmp.Diff(exp, f.Ranges()); diff != "" {
		t.Errorf("range headers mismatch (-exp +got):\n%s", diff)
	}
}

func TestEngine_NonResumableServerSkipReads(t *testing.T) {
	data := testData(100000)
	f := &fixture{data: data}
	e := newEngine(t, serve(t, f))

	if _, err := e.Connect(t.Context()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if e.CanRecreate() {
		t.Fatal("exp server to be non-resumable after first connection")
	}

	h := newHandle(t, e, handle.WithJumpCutoff(0))
	for _, p := range []int64{10, 30000, 30001, 99000} {
		if _, err := h.Seek(p, io.SeekStart); err != nil {
			t.Fatalf("seek %d: %v", p, err)
		}
		b, err := h.ReadByte()
		if err != nil || b != data[p] {
			t.Fatalf("at %d exp %d; got %d, %v", p, data[p], b, err)
		}
		if e.CanRecreate() {
			t.Fatal("exp server to stay non-resumable")
		}
	}

	if got := f.requests.Load(); got != 1 {
		t.Errorf("exp forward seeks to reuse the single stream; got %d requests", got)
	}
}

// rangeOnlyFromZero honors "bytes=0-" but answers every other range with the
// whole resource.
type rangeOnlyFromZero struct {
	*fixture
}

func (s rangeOnlyFromZero) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.serve(w, r, r.Header.Get("Range") == "bytes=0-")
}

func TestEngine_RecreateIgnoredRange(t *testing.T) {
	data := testData(3000)
	f := &fixture{data: data}
	e := newEngine(t, serve(t, rangeOnlyFromZero{f}))
	h := newHandle(t, e, handle.WithJumpCutoff(10))

	if _, err := h.ReadByte(); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !e.CanRecreate() {
		t.Fatal("exp first 206 to mark the server resumable")
	}

	// Forward: the full-content answer is dropped and the open stream is
	// read ahead instead of starting over.
	if _, err := h.Seek(2000, io.SeekStart); err != nil {
		t.Fatalf("seek forward: %v", err)
	}
	if b, err := h.ReadByte(); err != nil || b != data[2000] {
		t.Fatalf("exp %d; got %d, %v", data[2000], b, err)
	}
	if e.CanRecreate() {
		t.Fatal("exp 200 on a ranged request to mark the server non-resumable")
	}
	if got := f.requests.Load(); got != 2 {
		t.Errorf("exp 2 requests; got %d", got)
	}

	// Backward: the stream restarts from zero and skips ahead.
	if _, err := h.Seek(100, io.SeekStart); err != nil {
		t.Fatalf("seek backward: %v", err)
	}
	if b, err := h.ReadByte(); err != nil || b != data[100] {
		t.Fatalf("exp %d; got %d, %v", data[100], b, err)
	}

	exp := []string{"bytes=0-", "bytes=2000-", "bytes=100-"}
	if diff := cmp.Diff(exp, f.Ranges()); diff != "" {
		t.Errorf("range headers mismatch (-exp +got):\n%s", diff)
	}
}

// rangeExceptFromZero answers "bytes=0-" with the whole resource and
// honors every other range.
type rangeExceptFromZero struct {
	*fixture
}

func (s rangeExceptFromZero) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.serve(w, r, r.Header.Get("Range") != "bytes=0-")
}

func TestEngine_NonResumableStaysNonResumable(t *testing.T) {
	data := testData(10000)
	f := &fixture{data: data}
	e := newEngine(t, serve(t, rangeExceptFromZero{f}))
	h := newHandle(t, e, handle.WithJumpCutoff(10))

	for _, p := range []int64{3000, 100, 5000} {
		if _, err := h.Seek(p, io.SeekStart); err != nil {
			t.Fatalf("seek %d: %v", p, err)
		}
		b, err := h.ReadByte()
		if err != nil || b != data[p] {
			t.Fatalf("at %d exp %d; got %d, %v", p, data[p], b, err)
		}
		if e.CanRecreate() {
			t.Fatalf("after seek to %d: exp server to stay non-resumable", p)
		}
	}

	// The backward seek reconnects once; the forward seek after it is
	// skip-read from the 206 stream.
	exp := []string{"bytes=0-", "bytes=100-"}
	if diff := cmp.Diff(exp, f.Ranges()); diff != "" {
		t.Errorf("range headers mismatch (-exp +got):\n%s", diff)
	}
}

func TestEngine_RecreateDirect(t *testing.T) {
	data := testData(1000)

	t.Run("partialContent", func(t *testing.T) {
		e := newEngine(t, serve(t, &fixture{data: data, resumable: true}))

		re, err := e.Recreate(t.Context(), 400, 0)
		if err != nil {
			t.Fatalf("recreate: %v", err)
		}
		if diff := cmp.Diff(handle.Reopened{Offset: 400, Replaced: true}, re); diff != "" {
			t.Errorf("reopened mismatch (-exp +got):\n%s", diff)
		}

		s, err := e.Stream(t.Context())
		if err != nil {
			t.Fatalf("stream: %v", err)
		}
		got, err := io.ReadAll(s)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if !bytes.Equal(got, data[400:]) {
			t.Error("exp stream to start at 400")
		}
	})

	t.Run("fullContentWithoutStream", func(t *testing.T) {
		e := newEngine(t, serve(t, &fixture{data: data}))

		re, err := e.Recreate(t.Context(), 400, 0)
		if err != nil {
			t.Fatalf("recreate: %v", err)
		}
		if diff := cmp.Diff(handle.Reopened{Offset: 0, Replaced: true}, re); diff != "" {
			t.Errorf("reopened mismatch (-exp +got):\n%s", diff)
		}
	})

	t.Run("fullContentAheadOfCursor", func(t *testing.T) {
		f := &fixture{data: data}
		e := newEngine(t, serve(t, f))
		if _, err := e.Connect(t.Context()); err != nil {
			t.Fatalf("connect: %v", err)
		}

		re, err := e.Recreate(t.Context(), 400, 20)
		if err != nil {
			t.Fatalf("recreate: %v", err)
		}
		if diff := cmp.Diff(handle.Reopened{Offset: 20}, re); diff != "" {
			t.Errorf("reopened mismatch (-exp +got):\n%s", diff)
		}
	})

	t.Run("negativePosition", func(t *testing.T) {
		e := newEngine(t, serve(t, &fixture{data: data}))
		if _, err := e.Recreate(t.Context(), -1, 0); err == nil {
			t.Error("exp error for negative position")
		}
	})
}

func TestEngine_BasicAuth(t *testing.T) {
	const user, pass = "username", "password42"
	data := testData(4000)

	t.Run("noCredentials", func(t *testing.T) {
		f := &fixture{data: data, resumable: true, user: user, pass: pass}
		e := newEngine(t, serve(t, f))

		_, err := e.Length(t.Context())
		connErr, ok := errors.AsType[*stream.ConnectionError](err)
		if !ok {
			t.Fatalf("exp ConnectionError; got %v", err)
		}
		if connErr.StatusCode != http.StatusUnauthorized {
			t.Errorf("exp status 401; got %d", connErr.StatusCode)
		}
		if err.Error() != "HTTP connection failure, errorcode: 401" {
			t.Errorf("unexpected message: %q", err.Error())
		}
		if !errors.Is(err, stream.ErrConnectionFailure) {
			t.Error("exp error to wrap ErrConnectionFailure")
		}

		if _, err := newHandle(t, newEngine(t, serve(t, f))).Read(make([]byte, 1)); !errors.Is(err, stream.ErrConnectionFailure) {
			t.Errorf("exp read to fail with ErrConnectionFailure; got %v", err)
		}
	})

	t.Run("validCredentials", func(t *testing.T) {
		f := &fixture{data: data, resumable: true, user: user, pass: pass}
		e := newEngine(t, serve(t, f), location.WithCredentials(user, pass))

		n, err := e.Length(t.Context())
		if err != nil {
			t.Fatalf("length: %v", err)
		}
		if n != int64(len(data)) {
			t.Errorf("exp length %d; got %d", len(data), n)
		}
		if !e.AuthRequired() {
			t.Error("exp engine to remember the challenge")
		}

		h := newHandle(t, e, handle.WithJumpCutoff(0))
		if _, err := h.Seek(3000, io.SeekStart); err != nil {
			t.Fatalf("seek: %v", err)
		}
		if b, err := h.ReadByte(); err != nil || b != data[3000] {
			t.Fatalf("exp %d; got %d, %v", data[3000], b, err)
		}

		if got := f.unauthorized.Load(); got != 1 {
			t.Errorf("exp a single challenge; got %d", got)
		}
		if diff := cmp.Diff([]bool{false, true, true}, f.AuthSent()); diff != "" {
			t.Errorf("authorization headers mismatch (-exp +got):\n%s", diff)
		}
	})

	t.Run("invalidCredentials", func(t *testing.T) {
		f := &fixture{data: data, resumable: true, user: user, pass: pass}
		e := newEngine(t, serve(t, f), location.WithCredentials(user, "wrong"))

		_, err := e.Length(t.Context())
		connErr, ok := errors.AsType[*stream.ConnectionError](err)
		if !ok || connErr.StatusCode != http.StatusUnauthorized {
			t.Fatalf("exp 401 ConnectionError; got %v", err)
		}
		if got := f.requests.Load(); got > client.MaxAuthAttempts {
			t.Errorf("exp at most %d requests; got %d", client.MaxAuthAttempts, got)
		}
	})
}

// windowServer answers every request with the first 1000 bytes of a
// resource whose declared size can change between requests.
type windowServer struct {
	total   atomic.Int64
	partial bool
}

func (s *windowServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	total := s.total.Load()
	if !s.partial {
		w.Header().Set("Content-Length", strconv.FormatInt(total, 10))
		w.WriteHeader(http.StatusOK)
		w.Write(make([]byte, total))
		return
	}

	w.Header().Set("Content-Range", fmt.Sprintf("bytes 0-999/%d", total))
	w.Header().Set("Content-Length", "1000")
	w.WriteHeader(http.StatusPartialContent)
	w.Write(make([]byte, 1000))
}

func TestEngine_Length(t *testing.T) {
	for _, partial := range []bool{true, false} {
		t.Run(fmt.Sprintf("partial=%v", partial), func(t *testing.T) {
			srv := &windowServer{partial: partial}
			srv.total.Store(5000)
			e := newEngine(t, serve(t, srv))

			n, err := e.Length(t.Context())
			if err != nil {
				t.Fatalf("length: %v", err)
			}
			if n != 5000 {
				t.Errorf("exp 5000; got %d", n)
			}

			srv.total.Store(9000)
			if err := e.Reset(t.Context()); err != nil {
				t.Fatalf("reset: %v", err)
			}

			n, err = e.Length(t.Context())
			if err != nil {
				t.Fatalf("length: %v", err)
			}
			if n != 5000 {
				t.Errorf("exp cached length 5000; got %d", n)
			}
		})
	}
}

func TestEngine_LengthErrors(t *testing.T) {
	testCases := map[string]struct {
		handler http.HandlerFunc
		expErr  error
	}{
		"missingContentRange": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusPartialContent)
			},
			expErr: stream.ErrContentRange,
		},
		"malformedContentRange": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Range", "bytes zero-ten/twenty")
				w.WriteHeader(http.StatusPartialContent)
			},
			expErr: stream.ErrContentRange,
		},
		"unknownTotal": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Range", "bytes 0-9/*")
				w.WriteHeader(http.StatusPartialContent)
				w.Write(make([]byte, 10))
			},
			expErr: stream.ErrUnknownLength,
		},
		"chunkedFullContent": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.(http.Flusher).Flush()
				w.Write([]byte("no declared length"))
			},
			expErr: stream.ErrUnknownLength,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			e := newEngine(t, serve(t, tc.handler))
			if _, err := e.Length(t.Context()); !errors.Is(err, tc.expErr) {
				t.Errorf("exp err %v; got %v", tc.expErr, err)
			}
		})
	}
}

func TestEngine_ConnectFailureRetries(t *testing.T) {
	f := &fixture{data: testData(100), resumable: true}
	f.status.Store(http.StatusNotFound)
	e := newEngine(t, serve(t, f))

	_, err := e.Connect(t.Context())
	connErr, ok := errors.AsType[*stream.ConnectionError](err)
	if !ok || connErr.StatusCode != http.StatusNotFound {
		t.Fatalf("exp 404 ConnectionError; got %v", err)
	}

	exists, err := e.Exists(t.Context())
	if err != nil || exists {
		t.Errorf("exp missing resource; got %v, %v", exists, err)
	}

	f.status.Store(0)

	exists, err = e.Exists(t.Context())
	if err != nil || !exists {
		t.Errorf("exp resource to exist once the server recovers; got %v, %v", exists, err)
	}
	if got := f.requests.Load(); got != 3 {
		t.Errorf("exp every failed connect to be retried; got %d requests", got)
	}
}

func TestEngine_RecreateFailureKeepsStream(t *testing.T) {
	data := testData(2000)
	f := &fixture{data: data, resumable: true}
	e := newEngine(t, serve(t, f))
	h := newHandle(t, e, handle.WithJumpCutoff(0))

	if _, err := h.ReadByte(); err != nil {
		t.Fatalf("read: %v", err)
	}

	f.status.Store(http.StatusInternalServerError)
	_, err := h.Seek(1500, io.SeekStart)
	connErr, ok := errors.AsType[*stream.ConnectionError](err)
	if !ok || connErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("exp 500 ConnectionError; got %v", err)
	}
	if h.Offset() != 1 {
		t.Errorf("exp cursor to stay at 1; got %d", h.Offset())
	}

	b, err := h.ReadByte()
	if err != nil || b != data[1] {
		t.Errorf("exp old stream to keep serving; got %d, %v", b, err)
	}
	if !e.CanRecreate() {
		t.Error("exp failed reconnect not to change resumability")
	}
}

func TestEngine_ReadOnly(t *testing.T) {
	e := newEngine(t, "http://example.com/data.bin")

	if !e.IsReadable() {
		t.Error("exp readable")
	}
	if e.IsWritable() {
		t.Error("exp not writable")
	}
	if err := e.SetLength(10); !errors.Is(err, errors.ErrUnsupported) {
		t.Errorf("exp ErrUnsupported; got %v", err)
	}
}

func TestEngine_LastModified(t *testing.T) {
	e := newEngine(t, serve(t, &fixture{data: testData(10), resumable: true}))

	got, err := e.LastModified(t.Context())
	if err != nil {
		t.Fatalf("last modified: %v", err)
	}
	if !got.Equal(modTime) {
		t.Errorf("exp %v; got %v", modTime, got)
	}
}

// trackedBody records Close calls and can be told to fail them.
type trackedBody struct {
	io.Reader
	closed   bool
	closeErr error
}

func (b *trackedBody) Close() error {
	b.closed = true
	return b.closeErr
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestEngine_ReplaceClosesPreviousBody(t *testing.T) {
	var bodies []*trackedBody
	closeErr := errors.New("socket stuck")

	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		start, _ := strconv.ParseInt(strings.TrimSuffix(strings.TrimPrefix(r.Header.Get("Range"), "bytes="), "-"), 10, 64)
		body := &trackedBody{Reader: strings.NewReader("payload")}
		if len(bodies) == 1 {
			body.closeErr = closeErr
		}
		bodies = append(bodies, body)

		return &http.Response{
			StatusCode: http.StatusPartialContent,
			Header:     http.Header{"Content-Range": {fmt.Sprintf("bytes %d-%d/100", start, start+6)}},
			Body:       body,
			Request:    r,
		}, nil
	})

	loc, err := location.New("http://example.com/data.bin")
	if err != nil {
		t.Fatalf("new location: %v", err)
	}
	e, err := stream.New(loc, stream.WithClientOptions(client.WithTransport(rt)))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	if _, err := e.Connect(t.Context()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, err := e.Recreate(t.Context(), 10, 0); err != nil {
		t.Fatalf("recreate: %v", err)
	}
	if !bodies[0].closed {
		t.Error("exp first body to be closed on replace")
	}

	re, err := e.Recreate(t.Context(), 20, 0)
	if !errors.Is(err, stream.ErrStreamClose) || !errors.Is(err, closeErr) {
		t.Errorf("exp close failure to surface; got %v", err)
	}
	if !re.Replaced || re.Offset != 20 {
		t.Errorf("exp stream to be replaced despite the close failure; got %+v", re)
	}

	if err := e.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !bodies[2].closed {
		t.Error("exp active body to be closed on Close")
	}
	if err := e.Close(); err != nil {
		t.Errorf("exp second close to be a no-op; got %v", err)
	}
	if _, err := e.Connect(t.Context()); !errors.Is(err, stream.ErrClosed) {
		t.Errorf("exp ErrClosed after close; got %v", err)
	}
}
