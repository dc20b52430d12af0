package realtime

import (
	"testing"
	"time"

	"github.com/safecity/dispatch/internal/shared/types"
)

func receive(t *testing.T, sub *Subscription) Change {
	t.Helper()
	select {
	case c := <-sub.C:
		return c
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change")
		return Change{}
	}
}

func TestSubscribeReceivesChanges(t *testing.T) {
	n := NewNotifier()
	sub := n.Subscribe("crime_reports", nil)
	defer sub.Close()

	id := types.NewID()
	n.Notify(Change{Table: "crime_reports", Op: OpUpdate, ID: id})

	c := receive(t, sub)
	if c.ID != id || c.Op != OpUpdate {
		t.Errorf("unexpected change: %+v", c)
	}
}

func TestSubscribeIsScopedToTable(t *testing.T) {
	n := NewNotifier()
	sub := n.Subscribe("officers", nil)
	defer sub.Close()

	n.Notify(Change{Table: "crime_reports", Op: OpInsert, ID: types.NewID()})

	select {
	case c := <-sub.C:
		t.Fatalf("unexpected change for other table: %+v", c)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscriptionFilter(t *testing.T) {
	n := NewNotifier()

	want := types.NewID()
	sub := n.Subscribe("officers", func(c Change) bool { return c.ID == want })
	defer sub.Close()

	n.Notify(Change{Table: "officers", Op: OpUpdate, ID: types.NewID()})
	n.Notify(Change{Table: "officers", Op: OpUpdate, ID: want})

	c := receive(t, sub)
	if c.ID != want {
		t.Errorf("filter let the wrong change through: %+v", c)
	}
}

func TestCloseStopsDelivery(t *testing.T) {
	n := NewNotifier()
	sub := n.Subscribe("officers", nil)

	sub.Close()
	sub.Close() // closing twice must not panic

	if _, ok := <-sub.C; ok {
		t.Error("channel should be closed")
	}

	// Notifying after close must not panic either
	n.Notify(Change{Table: "officers", Op: OpDelete, ID: types.NewID()})
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	n := NewNotifier()

	slow := n.Subscribe("officers", nil)
	defer slow.Close()
	fast := n.Subscribe("officers", nil)
	defer fast.Close()

	// Saturate the slow subscriber's buffer and keep going
	for i := 0; i < 100; i++ {
		n.Notify(Change{Table: "officers", Op: OpUpdate, ID: types.NewID()})
	}

	// Drain the fast one; at least the buffered changes arrive
	for i := 0; i < cap(fast.C); i++ {
		receive(t, fast)
	}
}

func TestFanoutToMultipleSubscribers(t *testing.T) {
	n := NewNotifier()

	a := n.Subscribe("crime_reports", nil)
	defer a.Close()
	b := n.Subscribe("crime_reports", nil)
	defer b.Close()

	id := types.NewID()
	n.Notify(Change{Table: "crime_reports", Op: OpInsert, ID: id})

	if c := receive(t, a); c.ID != id {
		t.Errorf("subscriber a got %+v", c)
	}
	if c := receive(t, b); c.ID != id {
		t.Errorf("subscriber b got %+v", c)
	}
}

func TestChangeIDParsing(t *testing.T) {
	id := types.NewID()

	if got, ok := changeID(id); !ok || got != id {
		t.Errorf("typed ID: got %v, %v", got, ok)
	}
	if got, ok := changeID(id.String()); !ok || got != id {
		t.Errorf("string ID: got %v, %v", got, ok)
	}
	if _, ok := changeID("not-a-uuid"); ok {
		t.Error("garbage must not parse")
	}
	if _, ok := changeID(nil); ok {
		t.Error("nil must not parse")
	}
	if _, ok := changeID(42); ok {
		t.Error("numbers must not parse")
	}
}
