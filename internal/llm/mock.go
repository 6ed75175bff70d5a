package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/kalybratex/skillrank/internal/models"
)

// FakeClient is a deterministic Client for tests. Responses are scripted
// per purpose; every request is recorded for assertions.
type FakeClient struct {
	mu sync.Mutex

	// Responses maps a purpose to a queue of canned results. When the
	// queue for a purpose is exhausted the last entry repeats.
	responses map[Purpose][]FakeResponse

	// Handler, when set, takes precedence over scripted responses.
	Handler func(req Request) (*Completion, error)

	Requests []Request
}

// FakeResponse is one scripted result.
type FakeResponse struct {
	Text  string
	Usage models.TokenUsage
	Err   error
}

// NewFake creates an empty FakeClient. Unscripted purposes return an
// error so tests fail loudly on unexpected calls.
func NewFake() *FakeClient {
	return &FakeClient{responses: make(map[Purpose][]FakeResponse)}
}

// Script appends canned responses for a purpose.
func (f *FakeClient) Script(p Purpose, responses ...FakeResponse) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[p] = append(f.responses[p], responses...)
	return f
}

// Complete implements Client.
func (f *FakeClient) Complete(_ context.Context, req Request) (*Completion, error) {
	f.mu.Lock()
	f.Requests = append(f.Requests, req)
	handler := f.Handler

	var resp FakeResponse
	var ok bool
	if handler == nil {
		queue := f.responses[req.Purpose]
		if len(queue) > 0 {
			resp = queue[0]
			if len(queue) > 1 {
				f.responses[req.Purpose] = queue[1:]
			}
			ok = true
		}
	}
	f.mu.Unlock()

	if handler != nil {
		return handler(req)
	}
	if !ok {
		return nil, fmt.Errorf("fake client: no scripted response for purpose %q", req.Purpose)
	}
	if resp.Err != nil {
		return nil, resp.Err
	}
	return &Completion{Text: resp.Text, Model: req.Model, Usage: resp.Usage}, nil
}

// RequestsFor returns the recorded requests with the given purpose.
func (f *FakeClient) RequestsFor(p Purpose) []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Request
	for _, r := range f.Requests {
		if r.Purpose == p {
			out = append(out, r)
		}
	}
	return out
}
