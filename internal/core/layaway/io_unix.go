//go:build unix

package layaway

import (
	"os"

	"golang.org/x/sys/unix"
)

type unixDescriptor struct {
	fd int
}

func newDescriptor(f *os.File) (descriptor, error) {
	fd := int(f.Fd())
	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, err
	}
	return &unixDescriptor{fd: fd}, nil
}

func (d *unixDescriptor) Read(p []byte) (int, error) {
	n, err := unix.Read(d.fd, p)
	if n < 0 {
		n = 0
	}
	return n, err
}

func (d *unixDescriptor) Write(p []byte) (int, error) {
	n, err := unix.Write(d.fd, p)
	if n < 0 {
		n = 0
	}
	return n, err
}

func (d *unixDescriptor) WaitReadable() error {
	return d.poll(unix.POLLIN)
}

func (d *unixDescriptor) WaitWritable() error {
	return d.poll(unix.POLLOUT)
}

func (d *unixDescriptor) poll(events int16) error {
	fds := []unix.PollFd{{Fd: int32(d.fd), Events: events}}
	for {
		_, err := unix.Poll(fds, -1)
		if err != unix.EINTR {
			return err
		}
	}
}
