package hooks

import (
	"net/http"
	"strconv"
	"time"

	"github.com/zeusync/metricstore/internal/core/metric"
	"github.com/zeusync/metricstore/internal/core/producers/queuetime"
	"github.com/zeusync/metricstore/internal/core/slowtx"
)

const EventHTTPRequest = "http.request"

// RequestEvent describes one completed HTTP request.
type RequestEvent struct {
	Endpoint string
	URI      string
	Header   http.Header
	Start    time.Time
	Duration time.Duration
	Status   int
}

// EndpointFunc names the endpoint a request is attributed to.
type EndpointFunc func(r *http.Request) string

// DefaultEndpoint uses the method and path, e.g. "GET /users".
func DefaultEndpoint(r *http.Request) string {
	return r.Method + " " + r.URL.Path
}

// HTTP instruments net/http handlers.
type HTTP struct {
	registry      *Registry
	endpoint      EndpointFunc
	slowThreshold time.Duration
	now           func() time.Time
}

type HTTPOption func(*HTTP)

func WithEndpointFunc(fn EndpointFunc) HTTPOption {
	return func(h *HTTP) { h.endpoint = fn }
}

// WithSlowThreshold records requests taking at least d as slow transactions.
// Zero disables slow transaction capture.
func WithSlowThreshold(d time.Duration) HTTPOption {
	return func(h *HTTP) { h.slowThreshold = d }
}

func WithHTTPClock(now func() time.Time) HTTPOption {
	return func(h *HTTP) { h.now = now }
}

func NewHTTP(registry *Registry, opts ...HTTPOption) *HTTP {
	h := &HTTP{
		registry: registry,
		endpoint: DefaultEndpoint,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *HTTP) Name() string {
	return "net/http"
}

func (h *HTTP) Install() error {
	return nil
}

func (h *HTTP) OnEvent(name string, payload any) metric.Set {
	if name != EventHTTPRequest {
		return nil
	}
	ev, ok := payload.(RequestEvent)
	if !ok {
		return nil
	}

	controller := metric.NewIdentity(metric.TypeController, ev.Endpoint, "")
	set := metric.Set{controller: metric.NewAggregate(ev.Duration.Seconds())}

	for id, agg := range queuetime.Compute(ev.Header, ev.Start, controller.Type+"/"+controller.Name) {
		set.Combine(id, *agg)
	}

	if ev.Status >= http.StatusInternalServerError {
		errID := metric.NewIdentity(metric.TypeErrors, strconv.Itoa(ev.Status), controller.Type+"/"+controller.Name)
		set.Combine(errID, *metric.NewAggregate(1))
	}
	return set
}

// Middleware wraps next so every request it serves is measured.
func (h *HTTP) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := h.now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			ev := RequestEvent{
				Endpoint: h.endpoint(r),
				URI:      r.URL.RequestURI(),
				Header:   r.Header,
				Start:    start,
				Duration: h.now().Sub(start),
				Status:   rec.status,
			}
			if p := recover(); p != nil {
				ev.Status = http.StatusInternalServerError
				h.record(ev)
				panic(p)
			}
			h.record(ev)
		}()

		next.ServeHTTP(rec, r)
	})
}

func (h *HTTP) record(ev RequestEvent) {
	h.registry.Dispatch(EventHTTPRequest, ev)
	if h.slowThreshold > 0 && ev.Duration >= h.slowThreshold {
		h.registry.TrackSlowTransaction(slowtx.New(
			metric.TypeController+"/"+ev.Endpoint, ev.URI, ev.Start, ev.Duration))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
