package download_test

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/adamwoolhether/httpseek/download"
	"github.com/adamwoolhether/httpseek/handle"
	"github.com/adamwoolhether/httpseek/location"
	"github.com/adamwoolhether/httpseek/stream"
	"github.com/google/go-cmp/cmp"
)

func content(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('a' + i%26)
	}
	return b
}

func checksum(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func fileHandle(t *testing.T, data []byte) *handle.Handle {
	t.Helper()

	path := filepath.Join(t.TempDir(), "source.bin")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	src, err := handle.OpenFile(path)
	if err != nil {
		t.Fatalf("open source: %v", err)
	}

	h, err := handle.New(t.Context(), src)
	if err != nil {
		t.Fatalf("new handle: %v", err)
	}
	t.Cleanup(func() { h.Close() })

	return h
}

// leftovers lists temp files the download may have left in dir.
func leftovers(t *testing.T, dir string) []string {
	t.Helper()

	matches, err := filepath.Glob(filepath.Join(dir, ".httpseek-dl-*"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	return matches
}

func TestToFile(t *testing.T) {
	data := content(1000)

	testCases := map[string]struct {
		rng    download.Range
		opts   []download.Option
		exp    []byte
		expErr error
	}{
		"whole": {
			rng: download.Range{Offset: 0, Length: -1},
			exp: data,
		},
		"middle": {
			rng: download.Range{Offset: 250, Length: 100},
			exp: data[250:350],
		},
		"tail": {
			rng: download.Range{Offset: 900, Length: -1},
			exp: data[900:],
		},
		"checksum": {
			rng:  download.Range{Offset: 0, Length: -1},
			opts: []download.Option{download.WithChecksum(sha256.New(), checksum(data))},
			exp:  data,
		},
		"checksumMismatch": {
			rng:    download.Range{Offset: 1, Length: -1},
			opts:   []download.Option{download.WithChecksum(sha256.New(), checksum(data))},
			expErr: download.ErrChecksumMismatch,
		},
		"pastEnd": {
			rng:    download.Range{Offset: 990, Length: 20},
			expErr: download.ErrContentLengthMismatch,
		},
		"withProgress": {
			rng:  download.Range{Offset: 0, Length: -1},
			opts: []download.Option{download.WithProgress()},
			exp:  data,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			dest := filepath.Join(dir, "out.bin")

			err := download.ToFile(t.Context(), fileHandle(t, data), tc.rng, dest, slog.Default(), tc.opts...)
			if !errors.Is(err, tc.expErr) {
				t.Fatalf("exp err %v; got %v", tc.expErr, err)
			}

			if left := leftovers(t, dir); len(left) > 0 {
				t.Errorf("temp files left behind: %v", left)
			}

			if tc.expErr != nil {
				if _, err := os.Stat(dest); !errors.Is(err, os.ErrNotExist) {
					t.Errorf("exp no destination file on failure; got %v", err)
				}
				return
			}

			got, err := os.ReadFile(dest)
			if err != nil {
				t.Fatalf("read dest: %v", err)
			}
			if !bytes.Equal(got, tc.exp) {
				t.Errorf("content mismatch: exp %d bytes; got %d", len(tc.exp), len(got))
			}
		})
	}
}

func TestToFile_SkipExisting(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.bin")
	if err := os.WriteFile(dest, []byte("keep"), 0o644); err != nil {
		t.Fatalf("write dest: %v", err)
	}

	err := download.ToFile(t.Context(), fileHandle(t, content(10)), download.Range{Length: -1}, dest, slog.Default(), download.WithSkipExisting())
	if err != nil {
		t.Fatalf("to file: %v", err)
	}

	got, _ := os.ReadFile(dest)
	if string(got) != "keep" {
		t.Errorf("exp existing file untouched; got %q", got)
	}
}

func TestHandle_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	dest := filepath.Join(t.TempDir(), "out.bin")
	err := download.Handle(ctx, strings.NewReader("never written"), -1, dest, slog.Default())
	if !errors.Is(err, download.ErrDownloadCancelled) || !errors.Is(err, context.Canceled) {
		t.Errorf("exp cancelled download; got %v", err)
	}
}

func TestOptions_Validation(t *testing.T) {
	testCases := map[string]download.Option{
		"nilHash":       download.WithChecksum(nil, "abc"),
		"emptyChecksum": download.WithChecksum(sha256.New(), ""),
	}

	for name, opt := range testCases {
		t.Run(name, func(t *testing.T) {
			err := download.Handle(t.Context(), strings.NewReader(""), 0, filepath.Join(t.TempDir(), "x"), slog.Default(), opt)
			if err == nil {
				t.Error("exp option error")
			}
		})
	}
}

// rangeServer serves data with range support and records the ranges asked
// for. A range listed in fail is answered with 500.
type rangeServer struct {
	data      []byte
	resumable bool
	fail      string

	mu     sync.Mutex
	ranges []string
}

func (s *rangeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rng := r.Header.Get("Range")

	s.mu.Lock()
	s.ranges = append(s.ranges, rng)
	s.mu.Unlock()

	if s.fail != "" && rng == s.fail {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if !s.resumable {
		r.Header.Del("Range")
	}
	http.ServeContent(w, r, "data.bin", time.Time{}, bytes.NewReader(s.data))
}

func (s *rangeServer) Ranges() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ranges...)
}

func opener(url string) download.Opener {
	return func(ctx context.Context) (*handle.Handle, error) {
		loc, err := location.New(url)
		if err != nil {
			return nil, err
		}
		e, err := stream.New(loc)
		if err != nil {
			return nil, err
		}
		return handle.New(ctx, e, handle.WithJumpCutoff(0))
	}
}

func TestParallel(t *testing.T) {
	data := content(10007)

	testCases := map[string]struct {
		resumable bool
		parts     int
		expRanges []string
	}{
		"resumable": {
			resumable: true,
			parts:     3,
			// Every handle learns the length from a request at 0 before
			// reopening at its part.
			expRanges: []string{"bytes=0-", "bytes=0-", "bytes=0-", "bytes=3336-", "bytes=6672-"},
		},
		"singlePart": {
			resumable: true,
			parts:     1,
			expRanges: []string{"bytes=0-"},
		},
		"nonResumable": {
			parts:     4,
			expRanges: []string{"bytes=0-"},
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			srv := &rangeServer{data: data, resumable: tc.resumable}
			ts := httptest.NewServer(srv)
			defer ts.Close()

			dest := filepath.Join(t.TempDir(), "out.bin")
			err := download.Parallel(t.Context(), opener(ts.URL), tc.parts, dest, slog.Default(),
				download.WithChecksum(sha256.New(), checksum(data)),
				download.WithProgress(),
			)
			if err != nil {
				t.Fatalf("parallel: %v", err)
			}

			got, err := os.ReadFile(dest)
			if err != nil {
				t.Fatalf("read dest: %v", err)
			}
			if !bytes.Equal(got, data) {
				t.Errorf("content mismatch: exp %d bytes; got %d", len(data), len(got))
			}

			ranges := srv.Ranges()
			slices.Sort(ranges)
			if diff := cmp.Diff(tc.expRanges, ranges); diff != "" {
				t.Errorf("ranges mismatch (-exp +got):\n%s", diff)
			}
		})
	}
}

func TestParallel_PartFailure(t *testing.T) {
	data := content(3000)
	srv := &rangeServer{data: data, resumable: true, fail: "bytes=2000-"}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "out.bin")

	err := download.Parallel(t.Context(), opener(ts.URL), 3, dest, slog.Default())
	connErr, ok := errors.AsType[*stream.ConnectionError](err)
	if !ok || connErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("exp 500 ConnectionError; got %v", err)
	}

	if _, err := os.Stat(dest); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("exp no destination file on failure; got %v", err)
	}
	if left := leftovers(t, dir); len(left) > 0 {
		t.Errorf("temp files left behind: %v", left)
	}
}

func TestParallel_InvalidParts(t *testing.T) {
	err := download.Parallel(t.Context(), opener("http://example.com"), 0, filepath.Join(t.TempDir(), "x"), slog.Default())
	if err == nil {
		t.Error("exp error for zero parts")
	}
}
