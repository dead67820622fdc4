package handle

import (
	"context"
	"fmt"
	"io"
	"os"
)

// FileSource is a [Source] backed by a local file. It can always reopen at
// any position.
type FileSource struct {
	f *os.File
}

// OpenFile opens path for reading.
func OpenFile(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}

	return &FileSource{f: f}, nil
}

func (s *FileSource) Stream(context.Context) (io.Reader, error) {
	return s.f, nil
}

func (s *FileSource) Recreate(_ context.Context, pos, _ int64) (Reopened, error) {
	off, err := s.f.Seek(pos, io.SeekStart)
	if err != nil {
		return Reopened{}, fmt.Errorf("seeking file: %w", err)
	}

	return Reopened{Offset: off, Replaced: true}, nil
}

func (s *FileSource) CanRecreate() bool { return true }

func (s *FileSource) Length(context.Context) (int64, error) {
	fi, err := s.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat file: %w", err)
	}

	return fi.Size(), nil
}

func (s *FileSource) Close() error {
	return s.f.Close()
}
