package metric

import (
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Well-known metric types.
const (
	TypeController      = "Controller"
	TypeErrors          = "Errors"
	TypeQueueTime       = "QueueTime"
	TypeQueue           = "Queue"
	TypeJob             = "Job"
	TypeCPU             = "CPU"
	TypeMemory          = "Memory"
	TypeInstance        = "Instance"
	TypeSlowTransaction = "SlowTransaction"
)

// Identity names a metric. It is comparable and used directly as a map key.
// An empty Scope means the metric is not attributed to an enclosing operation.
type Identity struct {
	Type  string
	Name  string
	Scope string
}

func NewIdentity(typ, name, scope string) Identity {
	return Identity{Type: typ, Name: name, Scope: scope}
}

// ParseIdentity splits "Type/Name" on the first slash. A string without a
// slash is all type.
func ParseIdentity(typeAndName, scope string) Identity {
	typ, name, _ := strings.Cut(typeAndName, "/")
	return Identity{Type: typ, Name: name, Scope: scope}
}

// Hash is stable across processes and releases.
func (i Identity) Hash() uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(i.Type)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(i.Name)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(i.Scope)
	return d.Sum64()
}

func (i Identity) String() string {
	s := i.Type + "/" + i.Name
	if i.Scope != "" {
		s += " [" + i.Scope + "]"
	}
	return s
}

// HasScope reports whether the identity is attributed to an enclosing operation.
func (i Identity) HasScope() bool {
	return i.Scope != ""
}

// Less orders identities by hash, then by fields, for deterministic output.
func (i Identity) Less(o Identity) bool {
	hi, ho := i.Hash(), o.Hash()
	if hi != ho {
		return hi < ho
	}
	if i.Type != o.Type {
		return i.Type < o.Type
	}
	if i.Name != o.Name {
		return i.Name < o.Name
	}
	return i.Scope < o.Scope
}
