// Package notify fans transient toast notifications out to subscribers.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Type string

const (
	TypeDefault Type = "default"
	TypeSuccess Type = "success"
	TypeError   Type = "error"
)

const DefaultDuration = 5 * time.Second

// Toast is one notification. Audience routes it to a single browser session;
// an empty audience reaches every tray listener that does not filter.
type Toast struct {
	ID          string
	Title       string
	Description string
	Type        Type
	Duration    time.Duration
	Audience    string
}

// DurationMillis is the display time for the client script.
func (t Toast) DurationMillis() int64 {
	return t.Duration.Milliseconds()
}

type Handler func(Toast)

type subscriber struct {
	id int
	fn Handler
}

// Registry is a synchronous publish/subscribe hub.
type Registry struct {
	mu     sync.Mutex
	subs   []subscriber
	nextID int
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Subscribe registers fn and returns a function that removes it. Calling the
// returned function more than once is harmless.
func (r *Registry) Subscribe(fn Handler) func() {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.subs = append(r.subs, subscriber{id: id, fn: fn})
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, s := range r.subs {
			if s.id == id {
				r.subs = append(r.subs[:i:i], r.subs[i+1:]...)
				return
			}
		}
	}
}

// Show assigns an ID and duration to t and delivers it to the subscribers
// registered when Show was called, in registration order.
func (r *Registry) Show(t Toast) Toast {
	t.ID = uuid.New().String()
	if t.Duration <= 0 {
		t.Duration = DefaultDuration
	}
	if t.Type == "" {
		t.Type = TypeDefault
	}

	r.mu.Lock()
	snapshot := make([]subscriber, len(r.subs))
	copy(snapshot, r.subs)
	r.mu.Unlock()

	for _, s := range snapshot {
		s.fn(t)
	}
	return t
}

func (r *Registry) Success(audience, title, description string) Toast {
	return r.Show(Toast{Audience: audience, Title: title, Description: description, Type: TypeSuccess})
}

func (r *Registry) Error(audience, title, description string) Toast {
	return r.Show(Toast{Audience: audience, Title: title, Description: description, Type: TypeError})
}

// LogSubscriber records every toast.
func LogSubscriber(log *zap.Logger) Handler {
	return func(t Toast) {
		log.Debug("Toast",
			zap.String("id", t.ID),
			zap.String("audience", t.Audience),
			zap.String("type", string(t.Type)),
			zap.String("title", t.Title),
			zap.String("description", t.Description),
		)
	}
}
