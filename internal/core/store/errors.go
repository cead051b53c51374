package store

import "errors"

var (
	ErrNilSink = errors.New("store: nil sink")
)
