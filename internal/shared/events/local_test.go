package events

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestMatchesPattern(t *testing.T) {
	tests := []struct {
		eventType string
		pattern   string
		want      bool
	}{
		{"report.submitted", "report.*", true},
		{"report.submitted", "report.submitted", true},
		{"report.submitted", "officer.*", false},
		{"dispatch.officer_assigned", "dispatch.*", true},
		{"report.submitted", "*", true},
		{"report.submitted", ">", true},
		{"report", "report.submitted", false},
		{"report.submitted.extra", "report.submitted", false},
	}

	for _, tt := range tests {
		if got := matchesPattern(tt.eventType, tt.pattern); got != tt.want {
			t.Errorf("matchesPattern(%q, %q) = %v, want %v", tt.eventType, tt.pattern, got, tt.want)
		}
	}
}

func TestLocalBusDelivers(t *testing.T) {
	bus := NewLocal()
	defer bus.Close()

	var delivered atomic.Int32
	done := make(chan struct{})

	err := bus.Subscribe(context.Background(), "report.*", "test", func(ctx context.Context, event Event) error {
		if event.Type != "report.submitted" {
			t.Errorf("unexpected type %s", event.Type)
		}
		delivered.Add(1)
		close(done)
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	bus.Publish(context.Background(), NewEvent("report.submitted", "report", map[string]any{"k": "v"}))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("event was not delivered")
	}

	if delivered.Load() != 1 {
		t.Errorf("expected 1 delivery, got %d", delivered.Load())
	}
}

func TestLocalBusSkipsOtherPatterns(t *testing.T) {
	bus := NewLocal()
	defer bus.Close()

	var delivered atomic.Int32
	bus.Subscribe(context.Background(), "officer.*", "test", func(ctx context.Context, event Event) error {
		delivered.Add(1)
		return nil
	})

	bus.Publish(context.Background(), NewEvent("report.submitted", "report", nil))
	time.Sleep(50 * time.Millisecond)

	if delivered.Load() != 0 {
		t.Errorf("expected no deliveries, got %d", delivered.Load())
	}
}

func TestLocalBusClosedDropsEvents(t *testing.T) {
	bus := NewLocal()

	var delivered atomic.Int32
	bus.Subscribe(context.Background(), "*", "test", func(ctx context.Context, event Event) error {
		delivered.Add(1)
		return nil
	})

	bus.Close()
	bus.Publish(context.Background(), NewEvent("report.submitted", "report", nil))
	time.Sleep(50 * time.Millisecond)

	if delivered.Load() != 0 {
		t.Errorf("expected no deliveries after close, got %d", delivered.Load())
	}
}
