// Package relayertest provides a scriptable in-process relayer for tests.
package relayertest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gorilla/mux"
)

// Response is one scripted reply.
type Response struct {
	Status int
	// Body is written verbatim.
	Body string
	// RetryAfter is sent as the Retry-After header when non-empty.
	RetryAfter string
	// Hold, when non-nil, delays the reply until it is closed or the client goes away.
	Hold <-chan struct{}
}

// Call is a request received by the server.
type Call struct {
	Method string
	Path   string
	Op     string
	JobID  string
	Header http.Header
	Body   []byte
}

type route int

const (
	routeSubmit route = iota
	routePoll
	routeGet
)

type scriptKey struct {
	route route
	op    string
}

// Server is a fake relayer. Replies are consumed in order per route; an exhausted
// script answers 501.
type Server struct {
	*httptest.Server

	mu      sync.Mutex
	scripts map[scriptKey][]Response
	calls   []Call

	received chan Call
}

// NewServer starts a fake relayer. Callers must Close it.
func NewServer() *Server {
	s := &Server{
		scripts:  make(map[scriptKey][]Response),
		received: make(chan Call, 1024),
	}
	r := mux.NewRouter()
	r.HandleFunc("/v2/{op}", s.handle(routeSubmit)).Methods(http.MethodPost)
	r.HandleFunc("/v2/{op}", s.handle(routeGet)).Methods(http.MethodGet)
	r.HandleFunc("/v2/{op}/{jobId}", s.handle(routePoll)).Methods(http.MethodGet)
	s.Server = httptest.NewServer(r)
	return s
}

// OnPost scripts replies to POST /v2/{op}.
func (s *Server) OnPost(op string, responses ...Response) {
	s.script(scriptKey{routeSubmit, op}, responses)
}

// OnPoll scripts replies to GET /v2/{op}/{jobId}.
func (s *Server) OnPoll(op string, responses ...Response) {
	s.script(scriptKey{routePoll, op}, responses)
}

// OnGet scripts replies to GET /v2/{op}.
func (s *Server) OnGet(op string, responses ...Response) {
	s.script(scriptKey{routeGet, op}, responses)
}

func (s *Server) script(key scriptKey, responses []Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[key] = append(s.scripts[key], responses...)
}

// Calls returns every request received so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Count returns how many requests used method.
func (s *Server) Count(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Received delivers each request as it arrives, before its reply is written.
func (s *Server) Received() <-chan Call {
	return s.received
}

func (s *Server) handle(rt route) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		body, _ := io.ReadAll(r.Body)
		call := Call{
			Method: r.Method,
			Path:   r.URL.Path,
			Op:     vars["op"],
			JobID:  vars["jobId"],
			Header: r.Header.Clone(),
			Body:   body,
		}

		s.mu.Lock()
		s.calls = append(s.calls, call)
		key := scriptKey{rt, call.Op}
		queue := s.scripts[key]
		var resp Response
		ok := len(queue) > 0
		if ok {
			resp = queue[0]
			s.scripts[key] = queue[1:]
		}
		s.mu.Unlock()

		select {
		case s.received <- call:
		default:
		}

		if !ok {
			http.Error(w, fmt.Sprintf("no scripted response for %s %s", r.Method, r.URL.Path), http.StatusNotImplemented)
			return
		}
		if resp.Hold != nil {
			select {
			case <-resp.Hold:
			case <-r.Context().Done():
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if resp.RetryAfter != "" {
			w.Header().Set("Retry-After", resp.RetryAfter)
		}
		w.WriteHeader(resp.Status)
		_, _ = io.WriteString(w, resp.Body)
	}
}

// Queued is a 202 reply carrying jobID.
func Queued(jobID, retryAfter string) Response {
	return Response{
		Status:     http.StatusAccepted,
		Body:       mustJSON(map[string]any{"status": "queued", "result": map[string]any{"job_id": jobID}}),
		RetryAfter: retryAfter,
	}
}

// Succeeded is a 200 reply wrapping result, which must be a JSON document.
func Succeeded(result string) Response {
	return Response{
		Status: http.StatusOK,
		Body:   fmt.Sprintf(`{"status":"succeeded","requestId":"relayer-req","result":%s}`, result),
	}
}

// Failure is a failure reply with the given status and label.
func Failure(status int, label, message string) Response {
	return Response{
		Status: status,
		Body:   mustJSON(map[string]any{"status": "failed", "label": label, "message": message}),
	}
}

// Detail is a field-level issue for FailureWithDetails.
type Detail struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// FailureWithDetails is a failure reply carrying field-level details.
func FailureWithDetails(status int, label, message string, details ...Detail) Response {
	return Response{
		Status: status,
		Body:   mustJSON(map[string]any{"label": label, "message": message, "details": details}),
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
