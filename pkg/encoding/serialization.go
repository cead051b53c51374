package encoding

import (
	"errors"
	"fmt"

	"github.com/ugorji/go/codec"
)

// Serializable provides a clean, simple interface for serializing and deserializing values.
type Serializable interface {
	Serialize() ([]byte, error)
	Deserialize([]byte) error
}

var ErrEmpty = errors.New("encoding: empty input")

var msgpackHandle = newMsgpackHandle()

func newMsgpackHandle() *codec.MsgpackHandle {
	h := &codec.MsgpackHandle{}
	h.WriteExt = true
	h.Canonical = true
	return h
}

// Marshal encodes v as MessagePack.
func Marshal(v any) ([]byte, error) {
	var out []byte
	if err := codec.NewEncoderBytes(&out, msgpackHandle).Encode(v); err != nil {
		return nil, fmt.Errorf("encoding: marshal: %w", err)
	}
	return out, nil
}

// Unmarshal decodes MessagePack data into v. Empty input yields ErrEmpty.
func Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return ErrEmpty
	}
	if err := codec.NewDecoderBytes(data, msgpackHandle).Decode(v); err != nil {
		return fmt.Errorf("encoding: unmarshal: %w", err)
	}
	return nil
}
