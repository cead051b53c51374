//go:build !unix

package layaway

import (
	"errors"
	"io"
	"os"
)

type fileDescriptor struct {
	f *os.File
}

func newDescriptor(f *os.File) (descriptor, error) {
	return &fileDescriptor{f: f}, nil
}

func (d *fileDescriptor) Read(p []byte) (int, error) {
	n, err := d.f.Read(p)
	if errors.Is(err, io.EOF) {
		return n, nil
	}
	return n, err
}

func (d *fileDescriptor) Write(p []byte) (int, error) {
	return d.f.Write(p)
}

func (d *fileDescriptor) WaitReadable() error { return nil }
func (d *fileDescriptor) WaitWritable() error { return nil }
