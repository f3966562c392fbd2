// Package uio provides gather-write helpers over seekable files.
package uio

import (
	"errors"
	"io"
)

// IovMax bounds the number of buffers a single gather write accepts.
const IovMax = 1024

var (
	// ErrTooManyBuffers reports a gather write with more than IovMax buffers.
	ErrTooManyBuffers = errors.New("too many buffers")
)

// File is the slice of file behavior the gather writer relies on.
type File interface {
	io.Writer
	io.Seeker
}

// Writev writes each non-empty buffer to f in order, always completing one
// buffer before starting the next. Short writes without an error are
// retried. If any write fails, the file offset is restored to its value
// before the call and the originating write error is returned; otherwise the
// total number of bytes written is returned. All-empty buffers yield zero.
func Writev(f File, bufs [][]byte) (int64, error) {
	if len(bufs) > IovMax {
		return 0, ErrTooManyBuffers
	}

	// Current position, in case we have to reset it.
	pos, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, buf := range bufs {
		for len(buf) > 0 {
			n, err := f.Write(buf)
			if err == nil && n <= 0 {
				err = io.ErrNoProgress
			}
			if err != nil {
				// Restore the file position; the write error wins over any
				// seek failure.
				_, _ = f.Seek(pos, io.SeekStart)
				return 0, err
			}
			buf = buf[n:]
			total += int64(n)
		}
	}

	return total, nil
}
