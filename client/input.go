package main

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// StreamOpenError reports that the input could not be opened; nothing was
// aggregated
type StreamOpenError struct {
	Path string
	Err  error
}

func (e *StreamOpenError) Error() string {
	return fmt.Sprintf("cannot open input %s: %v", e.Path, e.Err)
}

func (e *StreamOpenError) Unwrap() error {
	return e.Err
}

// openInput opens path for sequential reading; "-" reads standard input
func openInput(path string, stdin io.Reader) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(stdin), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &StreamOpenError{Path: path, Err: err}
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &StreamOpenError{Path: path, Err: err}
	}
	if info.IsDir() {
		f.Close()
		return nil, &StreamOpenError{Path: path, Err: errors.New("is a directory")}
	}

	return f, nil
}
