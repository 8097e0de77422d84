package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const (
	PostCreated     = "post.created"
	PostLiked       = "post.liked"
	PostUnliked     = "post.unliked"
	PostRetweeted   = "post.retweeted"
	PostUnretweeted = "post.unretweeted"
	PostReplied     = "post.replied"
	PaperCreated    = "paper.created"
)

// Event is the JSON payload written to the feed topic.
type Event struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	ActorID  int       `json:"actor_id"`
	PostID   int       `json:"post_id,omitempty"`
	TargetID int       `json:"target_id,omitempty"` // owner of the post acted on
	PaperID  int       `json:"paper_id,omitempty"`
	At       time.Time `json:"at"`
}

func (e Event) Key() string {
	if e.PostID != 0 {
		return fmt.Sprintf("post-%d", e.PostID)
	}
	return fmt.Sprintf("paper-%d", e.PaperID)
}

func Decode(value []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(value, &e); err != nil {
		return Event{}, fmt.Errorf("events: decode: %w", err)
	}
	return e, nil
}

// Publisher delivers domain events. Publishing is best effort; callers log
// failures instead of failing the request.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                          { return nil }

// Recorder keeps events in memory; handy in tests.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.Events = append(r.Events, e)
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Types() []string {
	out := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		out = append(out, e.Type)
	}
	return out
}

// Dispatcher hands events straight to a Handler in the publishing goroutine.
// The serve command uses it when no broker is configured so notifications
// still get recorded.
type Dispatcher struct {
	handle Handler
}

func NewDispatcher(h Handler) *Dispatcher {
	return &Dispatcher{handle: h}
}

func (d *Dispatcher) Publish(ctx context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	return d.handle(ctx, e)
}

func (d *Dispatcher) Close() error { return nil }
