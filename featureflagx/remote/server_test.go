package remote_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tidwall/gjson"
)

const apiKey = "remote-key"

// flagService is a fake flag service answering evaluations from a map.
type flagService struct {
	t *testing.T

	mu     sync.Mutex
	flags  map[string]any
	status int
	// analyticsFailures makes the next n analytics posts fail.
	analyticsFailures int
	batches           []gjson.Result
	contexts          []gjson.Result
	// held evaluations for this targeting key wait on release.
	held    string
	release chan struct{}
	// flood makes change streams send events back to back.
	flood bool

	evaluations atomic.Int32
	streams     chan chan string
	done        chan struct{}
	srv         *httptest.Server
}

func newFlagService(t *testing.T, flags map[string]any) *flagService {
	t.Helper()
	s := &flagService{
		t:       t,
		flags:   flags,
		streams: make(chan chan string, 1),
		done:    make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /ofrep/v1/evaluate/flags", s.evaluateAll)
	mux.HandleFunc("POST /ofrep/v1/evaluate/flags/{key}", s.evaluate)
	mux.HandleFunc("POST /analytics", s.analytics)
	mux.HandleFunc("GET /stream", s.stream)

	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+apiKey {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(s.srv.Close)
	t.Cleanup(func() { close(s.done) })
	return s
}

func (s *flagService) URL() string {
	return s.srv.URL
}

func (s *flagService) set(key string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[key] = v
}

func (s *flagService) failWith(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// hold blocks evaluations for the targeting key until the returned func is
// called.
func (s *flagService) hold(targetingKey string) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.held = targetingKey
	s.release = make(chan struct{})
	release := s.release
	var once sync.Once
	return func() { once.Do(func() { close(release) }) }
}

func (s *flagService) floodStreams() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flood = true
}

func (s *flagService) failAnalytics(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyticsFailures = n
}

func (s *flagService) analyticsBatches() []gjson.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]gjson.Result(nil), s.batches...)
}

func (s *flagService) lastContext() gjson.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.contexts) == 0 {
		return gjson.Result{}
	}
	return s.contexts[len(s.contexts)-1]
}

// countOf sums the analytics counts received for flag and value.
func (s *flagService) countOf(flag string, value bool) int64 {
	var n int64
	for _, b := range s.analyticsBatches() {
		b.Get("evaluations").ForEach(func(_, e gjson.Result) bool {
			if e.Get("flag").String() == flag && e.Get("value").Bool() == value {
				n += e.Get("count").Int()
			}
			return true
		})
	}
	return n
}

func (s *flagService) failing(w http.ResponseWriter) bool {
	s.mu.Lock()
	status := s.status
	s.mu.Unlock()
	if status == 0 {
		return false
	}
	w.WriteHeader(status)
	_, _ = io.WriteString(w, `{"errorCode":"GENERAL","errorDetails":"failing on purpose"}`)
	return true
}

func (s *flagService) evaluateAll(w http.ResponseWriter, r *http.Request) {
	if s.failing(w) {
		return
	}
	s.mu.Lock()
	flags := make([]map[string]any, 0, len(s.flags))
	for k, v := range s.flags {
		flags = append(flags, map[string]any{"key": k, "value": v, "reason": "STATIC"})
	}
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"flags": flags})
}

func (s *flagService) evaluate(w http.ResponseWriter, r *http.Request) {
	s.evaluations.Add(1)
	body, _ := io.ReadAll(r.Body)
	evalCtx := gjson.GetBytes(body, "context")
	s.mu.Lock()
	s.contexts = append(s.contexts, evalCtx)
	held, release := s.held, s.release
	s.mu.Unlock()

	if held != "" && evalCtx.Get("targetingKey").String() == held {
		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
	}

	if s.failing(w) {
		return
	}

	key := r.PathValue("key")
	s.mu.Lock()
	v, ok := s.flags[key]
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"key": key, "errorCode": "FLAG_NOT_FOUND"})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"key": key, "value": v, "reason": "TARGETING_MATCH"})
}

func (s *flagService) analytics(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.analyticsFailures > 0 {
		s.analyticsFailures--
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	s.batches = append(s.batches, gjson.ParseBytes(body))
	w.WriteHeader(http.StatusAccepted)
}

func (s *flagService) stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.t.Error("response writer does not flush")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	s.mu.Lock()
	flood := s.flood
	s.mu.Unlock()
	if flood {
		rc := http.NewResponseController(w)
		for i := 0; ; i++ {
			select {
			case <-r.Context().Done():
				return
			case <-s.done:
				return
			default:
			}
			_ = rc.SetWriteDeadline(time.Now().Add(time.Second))
			if _, err := fmt.Fprint(w, changed(fmt.Sprintf("flag_%d", i%8))); err != nil {
				return
			}
			flusher.Flush()
		}
	}

	events := make(chan string, 4)
	select {
	case s.streams <- events:
	default:
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.done:
			return
		case e := <-events:
			_, _ = fmt.Fprint(w, e)
			flusher.Flush()
		}
	}
}

// changed builds a flags-changed event for keys.
func changed(keys ...string) string {
	quoted := make([]string, 0, len(keys))
	for _, k := range keys {
		quoted = append(quoted, fmt.Sprintf("%q", k))
	}
	return fmt.Sprintf("event: flags-changed\ndata: {\"keys\":[%s]}\n\n", strings.Join(quoted, ","))
}
