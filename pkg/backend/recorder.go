package backend

import (
	"context"
	"sync"
)

// Recorder keeps every payload in memory instead of sending it. It is meant
// for tests: inspect Messages and clear with Reset between cases.
type Recorder struct {
	mu       sync.Mutex
	messages []Payload
}

// Default is the process-wide recorder used by the memory backend.
var Default = NewRecorder()

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Send implements Backend. It never performs I/O.
func (r *Recorder) Send(_ context.Context, url string, data map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Payload{URL: url, Data: copyData(data)})
	return nil
}

// Messages returns a copy of the recorded payloads, oldest first.
func (r *Recorder) Messages() []Payload {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Payload, len(r.messages))
	copy(out, r.messages)
	return out
}

// Len returns the number of recorded payloads.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

// Last returns the most recent payload.
func (r *Recorder) Last() (Payload, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return Payload{}, false
	}
	return r.messages[len(r.messages)-1], true
}

// Reset discards everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
}
