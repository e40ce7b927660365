package render

import (
	"fmt"
	"sync"

	"github.com/goliatone/go-artefacts/pkg/model"
)

// Event is one recorded notification.
type Event struct {
	Kind    model.Kind
	Loaded  bool
	Section model.Section
	Err     error
}

func (e Event) String() string {
	if e.Loaded {
		return fmt.Sprintf("loaded:%s", e.Kind)
	}
	return fmt.Sprintf("failed:%s", e.Kind)
}

// Recorder keeps every notification in arrival order.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) SectionLoaded(kind model.Kind, section model.Section) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Kind: kind, Loaded: true, Section: section.Clone()})
}

func (r *Recorder) SectionFailed(kind model.Kind, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Kind: kind, Err: err})
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Trace renders events as "loaded:<kind>" / "failed:<kind>".
func (r *Recorder) Trace() []string {
	events := r.Events()
	out := make([]string, len(events))
	for idx, event := range events {
		out[idx] = event.String()
	}
	return out
}

// Reset drops recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
