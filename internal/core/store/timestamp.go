package store

import "time"

// Timestamp is a bucket key: epoch seconds truncated to the start of a minute.
type Timestamp int64

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp(t.UTC().Truncate(time.Minute).Unix())
}

func (ts Timestamp) Time() time.Time {
	return time.Unix(int64(ts), 0).UTC()
}

func (ts Timestamp) String() string {
	return ts.Time().Format(time.RFC3339)
}

func (ts Timestamp) Before(o Timestamp) bool {
	return ts < o
}

func (ts Timestamp) AgeInSeconds(now time.Time) int64 {
	return now.Unix() - int64(ts)
}
