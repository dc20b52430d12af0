package realtime

import (
	"context"
	"strings"
	"sync"

	"github.com/safecity/dispatch/internal/shared/events"
	"github.com/safecity/dispatch/internal/shared/metrics"
	"github.com/safecity/dispatch/internal/shared/types"
)

// Op is the kind of row change
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change tells subscribers that a row changed. It carries just enough
// to re-fetch; it is never the row itself.
type Change struct {
	Table string   `json:"table"`
	Op    Op       `json:"op"`
	ID    types.ID `json:"id"`
}

// Subscription is a live change feed for one table. Close is safe to
// call more than once; after Close the channel is drained and closed.
type Subscription struct {
	C chan Change

	notifier *Notifier
	table    string
	filter   func(Change) bool
	once     sync.Once
}

// Close tears the subscription down
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.notifier.remove(s)
	})
}

// Notifier fans row changes out to subscribers. Delivery is
// best effort: a subscriber that is not draining its channel misses
// changes rather than blocking the rest.
type Notifier struct {
	mu   sync.RWMutex
	subs map[string][]*Subscription
}

// NewNotifier creates a change notifier
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[string][]*Subscription)}
}

// Subscribe opens a change feed for a table. The optional filter drops
// changes it returns false for.
func (n *Notifier) Subscribe(table string, filter func(Change) bool) *Subscription {
	sub := &Subscription{
		C:        make(chan Change, 16),
		notifier: n,
		table:    table,
		filter:   filter,
	}

	n.mu.Lock()
	n.subs[table] = append(n.subs[table], sub)
	count := len(n.subs[table])
	n.mu.Unlock()

	metrics.RecordSubscribers(table, count)
	return sub
}

func (n *Notifier) remove(sub *Subscription) {
	n.mu.Lock()
	subs := n.subs[sub.table]
	for i, s := range subs {
		if s == sub {
			n.subs[sub.table] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	count := len(n.subs[sub.table])
	n.mu.Unlock()

	metrics.RecordSubscribers(sub.table, count)
	close(sub.C)
}

// Notify fans a change out to the table's subscribers
func (n *Notifier) Notify(change Change) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for _, sub := range n.subs[change.Table] {
		if sub.filter != nil && !sub.filter(change) {
			continue
		}
		select {
		case sub.C <- change:
		default:
		}
	}
}

// eventTables maps bus event types to the table changes they imply.
// Dispatch events touch both rows.
var eventTables = map[string][]struct {
	table string
	op    Op
	field string
}{
	"report.submitted":           {{"crime_reports", OpInsert, "report_id"}},
	"report.status_changed":      {{"crime_reports", OpUpdate, "report_id"}},
	"dispatch.report_verified":   {{"crime_reports", OpUpdate, "report_id"}},
	"dispatch.officer_assigned":  {{"crime_reports", OpUpdate, "report_id"}, {"officers", OpUpdate, "officer_id"}},
	"dispatch.officer_released":  {{"crime_reports", OpUpdate, "report_id"}, {"officers", OpUpdate, "officer_id"}},
	"officer.created":            {{"officers", OpInsert, "officer_id"}},
	"officer.status_changed":     {{"officers", OpUpdate, "officer_id"}},
	"officer.deleted":            {{"officers", OpDelete, "officer_id"}},
}

// Bridge subscribes the notifier to the event bus so changes made by
// any instance reach this one's subscribers.
func Bridge(ctx context.Context, bus events.EventBus, n *Notifier) error {
	handler := func(ctx context.Context, event events.Event) error {
		targets, ok := eventTables[event.Type]
		if !ok {
			return nil
		}

		data, _ := event.Data.(map[string]any)
		for _, t := range targets {
			id, ok := changeID(data[t.field])
			if !ok {
				continue
			}
			n.Notify(Change{Table: t.table, Op: t.op, ID: id})
		}
		return nil
	}

	for _, pattern := range []string{"report.*", "officer.*", "dispatch.*"} {
		if err := bus.Subscribe(ctx, pattern, "realtime-notifier", handler); err != nil {
			return err
		}
	}
	return nil
}

// changeID extracts a row ID from event data. Local events carry
// types.ID values; events replayed off the bus carry strings.
func changeID(v any) (types.ID, bool) {
	switch id := v.(type) {
	case types.ID:
		return id, !id.IsZero()
	case string:
		parsed, err := types.ParseID(strings.TrimSpace(id))
		if err != nil {
			return "", false
		}
		return parsed, true
	}
	return "", false
}
