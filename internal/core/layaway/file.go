package layaway

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/gofrs/flock"

	"github.com/zeusync/metricstore/internal/core/observability/log"
	"github.com/zeusync/metricstore/internal/core/store"
)

const DefaultFileName = "layaway.db"

var (
	_ Locker     = (*File)(nil)
	_ store.Sink = (*File)(nil)
)

// File is the shared, exclusively locked aggregation file that every worker
// process merges its completed periods into.
//
// A File is driven by one goroutine at a time. Exclusion between processes,
// and between File values in one process, comes from the OS lock.
type File struct {
	path   string
	lock   *ReentrantLock
	flock  *flock.Flock
	fh     *os.File
	data   *Payload
	logger log.Log
}

func NewFile(path string, logger log.Log) *File {
	if logger == nil {
		logger = log.NewNop()
	}
	f := &File{
		path:   path,
		flock:  flock.New(path),
		logger: logger.With(log.String("component", "layaway"), log.String("path", path)),
	}
	f.lock = NewReentrantLock(f, f.logger)
	return f
}

func (f *File) Path() string {
	return f.path
}

func (f *File) Lock() *ReentrantLock {
	return f.lock
}

func (f *File) logTime(thing string, fn func() error) error {
	start := time.Now()
	err := fn()
	f.logger.Debug(thing, log.Duration("took", time.Since(start)))
	return err
}

// Acquire opens the file, blocks until the exclusive lock is held and loads
// the current payload. Undecodable content is logged and treated as empty.
func (f *File) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("layaway: create directory: %w", err)
	}

	err := f.logTime("Opening file", func() error {
		fh, err := os.OpenFile(f.path, os.O_RDWR|os.O_CREATE, 0o644)
		if err != nil {
			return err
		}
		f.fh = fh
		return nil
	})
	if err != nil {
		return fmt.Errorf("layaway: open: %w", err)
	}

	if err = f.logTime("Obtaining exclusive lock", f.flock.Lock); err != nil {
		_ = f.closeFile()
		return fmt.Errorf("layaway: lock: %w", err)
	}

	data, err := f.readData()
	if err != nil {
		return errors.Join(fmt.Errorf("layaway: read: %w", err), f.unlockAndClose())
	}

	f.data = f.decode(data)
	return nil
}

// Release writes the payload back as a full replace, then unlocks and closes.
// Unlock and close run even when the write fails.
func (f *File) Release() error {
	if f.fh == nil {
		return ErrNotOpen
	}

	var writeErr error
	var dumped []byte
	writeErr = f.logTime("Marshalling data", func() error {
		var err error
		dumped, err = f.data.Serialize()
		return err
	})
	if writeErr == nil {
		writeErr = f.logTime("Writing data", func() error { return f.write(dumped) })
	}
	if writeErr != nil {
		writeErr = fmt.Errorf("layaway: write: %w", writeErr)
	}

	return errors.Join(writeErr, f.unlockAndClose())
}

func (f *File) readData() ([]byte, error) {
	d, err := newDescriptor(f.fh)
	if err != nil {
		return nil, err
	}
	var data []byte
	err = f.logTime("Reading file data", func() error {
		var rerr error
		data, rerr = readUntilEnd(d)
		return rerr
	})
	f.logger.Debug("Read bytes from layaway file", log.Int("bytes", len(data)))
	return data, err
}

func (f *File) decode(data []byte) *Payload {
	if len(data) == 0 {
		f.logger.Debug("No data in layaway file")
		return NewPayload()
	}
	var payload *Payload
	_ = f.logTime("Parsing data", func() error {
		p, err := Decode(data)
		if err != nil {
			f.logger.Warn("Error loading data from layaway file, discarding it",
				log.Error(err), log.Int("bytes", len(data)), log.Stack("stacktrace"))
			p = NewPayload()
		}
		payload = p
		return nil
	})
	return payload
}

func (f *File) write(data []byte) error {
	f.logger.Debug("Writing bytes to layaway file", log.Int("bytes", len(data)))
	if _, err := f.fh.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if err := f.fh.Truncate(0); err != nil {
		return err
	}
	d, err := newDescriptor(f.fh)
	if err != nil {
		return err
	}
	_, err = writeAll(d, data)
	return err
}

func (f *File) unlockAndClose() error {
	unlockErr := f.logTime("Releasing lock", f.flock.Unlock)
	if unlockErr != nil {
		unlockErr = fmt.Errorf("layaway: unlock: %w", unlockErr)
	}
	return errors.Join(unlockErr, f.closeFile())
}

func (f *File) closeFile() error {
	if f.fh == nil {
		return nil
	}
	err := f.fh.Close()
	f.fh = nil
	f.data = nil
	return err
}

// WithLock holds the file lock around fn. Nested calls reuse the lock
// already held.
func (f *File) WithLock(fn func() error) (err error) {
	if err = f.lock.Increment(); err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.lock.Decrement())
	}()

	return f.logTime("In logic code", fn)
}

// ReadAndWrite replaces the payload with fn's result under the lock. A nil
// result empties the file. Every failure, including a panic in fn, is logged
// and swallowed.
func (f *File) ReadAndWrite(fn func(current *Payload) *Payload) {
	if err := f.readAndWrite(fn); err != nil {
		f.logFailure(err)
	}
}

func (f *File) readAndWrite(fn func(current *Payload) *Payload) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r, stack: debug.Stack()}
		}
	}()

	return f.WithLock(func() error {
		next := fn(f.data)
		if next == nil {
			next = NewPayload()
		}
		f.data = next
		return nil
	})
}

type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("layaway: callback panicked: %v", e.value)
}

func (f *File) logFailure(err error) {
	stack := log.Stack("stacktrace")
	var pe *panicError
	if errors.As(err, &pe) {
		stack = log.String("stacktrace", string(pe.stack))
	}
	f.logger.Error("Unable to access the layaway file. The user running the app must have read & write access. "+
		"Change the path by setting data_file in the config",
		log.Error(err), stack)
}

// AddReportingPeriod merges period into the file under ts. Failures are
// logged by ReadAndWrite, so it always returns nil.
func (f *File) AddReportingPeriod(ts store.Timestamp, period *store.Period) error {
	f.ReadAndWrite(func(current *Payload) *Payload {
		current.Merge(ts, period)
		return current
	})
	return nil
}

// Snapshot returns a copy of the file content, leaving it in place.
func (f *File) Snapshot() *Payload {
	out := NewPayload()
	f.ReadAndWrite(func(current *Payload) *Payload {
		out = current.Clone()
		return current
	})
	return out
}

// Drain returns the file content and empties it. This is what a reporter does
// before shipping the data onward. If the emptied file cannot be written back
// nothing is returned, so the same data is not shipped twice.
func (f *File) Drain() *Payload {
	var out *Payload
	err := f.readAndWrite(func(current *Payload) *Payload {
		out = current
		return nil
	})
	if err != nil {
		f.logFailure(err)
		return NewPayload()
	}
	return out
}
