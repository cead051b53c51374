package layaway

import (
	"errors"
	"io"
	"syscall"

	"github.com/zeusync/metricstore/pkg/generic"
)

const readChunkSize = 10_000

var chunks = generic.NewPool(func() *[]byte {
	b := make([]byte, readChunkSize)
	return &b
})

// descriptor is the raw, possibly non-blocking, view of an open file.
// Read reports end of file as (0, nil).
type descriptor interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	WaitReadable() error
	WaitWritable() error
}

func isTransient(err error) bool {
	return errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EINTR)
}

// readUntilEnd reads until end of file, waiting for readability whenever the
// descriptor reports it would block or was interrupted.
func readUntilEnd(d descriptor) ([]byte, error) {
	var contents []byte
	chunk := chunks.Get()
	defer chunks.Put(chunk)
	buf := *chunk
	for {
		n, err := d.Read(buf)
		if n > 0 {
			contents = append(contents, buf[:n]...)
		}
		switch {
		case err == nil && n == 0:
			return contents, nil
		case errors.Is(err, io.EOF):
			return contents, nil
		case isTransient(err):
			if werr := d.WaitReadable(); werr != nil && !isTransient(werr) {
				return contents, werr
			}
		case err != nil:
			return contents, err
		}
	}
}

// writeAll writes every byte of data, continuing after partial writes and
// waiting for writability on transient errors.
func writeAll(d descriptor, data []byte) (int, error) {
	written := 0
	for written < len(data) {
		n, err := d.Write(data[written:])
		if n > 0 {
			written += n
		}
		switch {
		case isTransient(err):
			if werr := d.WaitWritable(); werr != nil && !isTransient(werr) {
				return written, werr
			}
		case err != nil:
			return written, err
		case n == 0:
			return written, io.ErrShortWrite
		}
	}
	return written, nil
}
