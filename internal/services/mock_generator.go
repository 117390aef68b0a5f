package services

import (
	"context"
	"sync"

	"github.com/jwebster45206/drifter/pkg/chat"
)

// MockDayResponse is the canned day returned when nothing is scripted. The
// day number is always 1; callers correct it.
const MockDayResponse = `{"day":1,"events":[{"text":"The crew ran routine maintenance.","time":"09:00"}],"statusUpdates":[],"dialogues":[],"moodScore":75,"resourceChanges":{"oxygen":-2,"food":-2,"water":-2}}`

// MockEndingResponse is the canned ending returned when nothing is scripted.
const MockEndingResponse = `{"title":"Homecoming","description":"The DRIFTER reached Earth orbit.","outcome":"success"}`

// MockResponse is one scripted generator answer.
type MockResponse struct {
	Text string
	Err  error
}

// MockGenerator is a Generator for tests and offline runs. GenerateFunc wins
// over Responses, which are consumed in order; after that the canned
// responses are used.
type MockGenerator struct {
	GenerateFunc func(ctx context.Context, req chat.GenerateRequest) (string, error)
	Responses    []MockResponse

	// Track calls for testing
	Calls []chat.GenerateRequest

	mu sync.Mutex // protects all fields above
}

var _ Generator = (*MockGenerator)(nil)

func NewMockGenerator() *MockGenerator {
	return &MockGenerator{
		Calls: make([]chat.GenerateRequest, 0),
	}
}

// Enqueue appends scripted responses.
func (m *MockGenerator) Enqueue(responses ...MockResponse) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses = append(m.Responses, responses...)
	return m
}

// CallCount returns the number of Generate calls so far.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

func (m *MockGenerator) Generate(ctx context.Context, req chat.GenerateRequest) (string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	fn := m.GenerateFunc
	var next *MockResponse
	if fn == nil && len(m.Responses) > 0 {
		next = &m.Responses[0]
		m.Responses = m.Responses[1:]
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if next != nil {
		return next.Text, next.Err
	}
	if req.Schema != nil {
		if _, ok := req.Schema.Properties["outcome"]; ok {
			return MockEndingResponse, nil
		}
	}
	return MockDayResponse, nil
}
