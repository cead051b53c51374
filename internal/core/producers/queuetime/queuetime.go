// Package queuetime derives how long a request waited in front of the
// application from the timestamp header a load balancer or proxy adds.
package queuetime

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zeusync/metricstore/internal/core/metric"
)

// Headers are tried in order.
var Headers = []string{"X-Queue-Start", "X-Request-Start"}

const (
	secondsDigits  = 10
	fractionDigits = 13
)

var Identity = metric.NewIdentity(metric.TypeQueueTime, "Request", "")

// Compute returns QueueTime/Request scoped to scope, or an empty set when no
// usable header is present or the result would be negative.
func Compute(header http.Header, traceStart time.Time, scope string) metric.Set {
	raw, ok := locate(header)
	if !ok {
		return metric.Set{}
	}
	queuedAt, ok := Parse(raw)
	if !ok {
		return metric.Set{}
	}

	queue := traceStart.Sub(queuedAt)
	// Negative means clock skew or a malformed header.
	if queue < 0 {
		return metric.Set{}
	}

	id := Identity
	id.Scope = scope
	return metric.Set{id: metric.NewAggregate(queue.Seconds())}
}

func locate(header http.Header) (string, bool) {
	if header == nil {
		return "", false
	}
	for _, candidate := range Headers {
		if v := header.Get(candidate); v != "" {
			return v, true
		}
		// Keys set without canonicalization.
		for k, values := range header {
			if strings.EqualFold(k, candidate) && len(values) > 0 && values[0] != "" {
				return values[0], true
			}
		}
	}
	return "", false
}

// Parse reads values like "t=1700000000123" or "1700000000.123456": the first
// ten digits are epoch seconds, up to thirteen more are the fraction.
func Parse(raw string) (time.Time, bool) {
	digits := strings.NewReplacer("t=", "", ".", "").Replace(strings.TrimSpace(raw))
	if digits == "" {
		return time.Time{}, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return time.Time{}, false
		}
	}

	secPart, fracPart := digits, ""
	if len(digits) > secondsDigits {
		secPart, fracPart = digits[:secondsDigits], digits[secondsDigits:]
	}
	if len(fracPart) > fractionDigits {
		fracPart = fracPart[:fractionDigits]
	}

	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return time.Time{}, false
	}

	var nsec int64
	if fracPart != "" {
		// Nanosecond resolution: pad or cut the fraction to nine digits.
		frac := (fracPart + "000000000")[:9]
		nsec, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
	}
	return time.Unix(sec, nsec), true
}
