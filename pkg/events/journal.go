package events

import (
	"context"
	"fmt"

	"github.com/samvad-hq/samvad-envelope/internal/storage"
)

// journalPublisher appends events to the local Store.
type journalPublisher struct {
	id    string
	store storage.Store
	names map[string]struct{}
	log   Logger
}

func journalBuilder(store storage.Store) Builder {
	return func(_ context.Context, cfg SinkConfig, log Logger) (Publisher, error) {
		return newJournalPublisher(cfg, store, log), nil
	}
}

func newJournalPublisher(cfg SinkConfig, store storage.Store, log Logger) *journalPublisher {
	var names map[string]struct{}
	if cfg.Journal != nil && len(cfg.Journal.Names) > 0 {
		names = make(map[string]struct{}, len(cfg.Journal.Names))
		for _, n := range cfg.Journal.Names {
			names[n] = struct{}{}
		}
	}
	return &journalPublisher{id: cfg.ID, store: store, names: names, log: ensureLogger(log)}
}

func (j *journalPublisher) ID() string   { return j.id }
func (j *journalPublisher) Type() string { return TypeJournal }

// Publish records evt unless the sink is filtered to other event names.
func (j *journalPublisher) Publish(_ context.Context, evt Event) error {
	if j.names != nil {
		if _, ok := j.names[evt.Name]; !ok {
			return nil
		}
	}
	seq, err := j.store.Append(storage.Record{
		Name:       evt.Name,
		Source:     evt.Source,
		Code:       evt.Code,
		StatusCode: evt.StatusCode,
		OccurredAt: evt.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("append journal record: %w", err)
	}
	j.log.DebugObj("journal sink recorded event", "sink_journal_append", map[string]any{
		"sink_id": j.id,
		"seq":     seq,
	})
	return nil
}
