package events

import (
	"context"
	"errors"
	"testing"
)

type stubPublisher struct {
	id     string
	typ    string
	err    error
	calls  int
	closed bool
	events []Event
}

func (s *stubPublisher) ID() string   { return s.id }
func (s *stubPublisher) Type() string { return s.typ }
func (s *stubPublisher) Publish(_ context.Context, evt Event) error {
	s.calls++
	s.events = append(s.events, evt)
	return s.err
}

type closingPublisher struct {
	stubPublisher
	closeErr error
}

func (c *closingPublisher) Close() error {
	c.closed = true
	return c.closeErr
}

func TestFanoutPublishAggregatesErrors(t *testing.T) {
	fanout := NewFanout([]Publisher{
		&stubPublisher{id: "ok", typ: "http"},
		&stubPublisher{id: "bad", typ: "http", err: errors.New("failed")},
	})

	count, err := fanout.Publish(context.Background(), Event{})
	if count != 1 {
		t.Fatalf("expected 1 success, got %d", count)
	}
	if err == nil {
		t.Fatalf("expected aggregated error")
	}
}

func TestFanoutSkipsNilPublishers(t *testing.T) {
	fanout := NewFanout([]Publisher{nil, &stubPublisher{id: "ok"}})
	if fanout.Size() != 1 {
		t.Fatalf("expected size 1, got %d", fanout.Size())
	}

	var empty *Fanout
	if n, err := empty.Publish(context.Background(), Event{}); n != 0 || err != nil {
		t.Fatalf("nil fanout should be a no-op, got %d %v", n, err)
	}
}

func TestFanoutCloseClosesClosers(t *testing.T) {
	c1 := &closingPublisher{stubPublisher: stubPublisher{id: "c1"}}
	c2 := &closingPublisher{stubPublisher: stubPublisher{id: "c2"}, closeErr: errors.New("stuck")}
	fanout := NewFanout([]Publisher{c1, &stubPublisher{id: "plain"}, c2})

	err := fanout.Close()
	if err == nil {
		t.Fatalf("expected close error from c2")
	}
	if !c1.closed || !c2.closed {
		t.Fatalf("expected both closers to be closed")
	}
}

func TestBuildAllWithDefaultRegistry(t *testing.T) {
	reg := DefaultRegistry(nil)
	pubs, err := BuildAll(context.Background(), reg, []SinkConfig{
		{ID: "http", Type: TypeHTTP, HTTP: &HTTPSinkConfig{URL: "https://example.com"}},
	}, nil)
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if len(pubs) != 1 {
		t.Fatalf("expected 1 publisher, got %d", len(pubs))
	}
	if pubs[0].Type() != TypeHTTP || pubs[0].ID() != "http" {
		t.Fatalf("unexpected publisher %s/%s", pubs[0].Type(), pubs[0].ID())
	}
}

func TestBuildAllRejectsUnknownType(t *testing.T) {
	reg := DefaultRegistry(nil)
	_, err := BuildAll(context.Background(), reg, []SinkConfig{
		{ID: "j", Type: TypeJournal},
	}, nil)
	if err == nil {
		t.Fatalf("expected journal to be unavailable without a store")
	}
}

func TestRegistryRegisterIgnoresBlank(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Register(" ", func(context.Context, SinkConfig, Logger) (Publisher, error) { return nil, nil })
	reg.Register("custom", nil)

	if _, err := reg.PublisherFor(context.Background(), SinkConfig{ID: "x", Type: "custom"}, nil); err == nil {
		t.Fatalf("expected no builder for custom")
	}

	stub := &stubPublisher{id: "x", typ: "custom"}
	reg.Register("Custom", func(context.Context, SinkConfig, Logger) (Publisher, error) { return stub, nil })
	pub, err := reg.PublisherFor(context.Background(), SinkConfig{ID: "x", Type: "custom"}, nil)
	if err != nil || pub != stub {
		t.Fatalf("expected stub publisher, got %v %v", pub, err)
	}
}
