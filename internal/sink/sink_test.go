package sink

import (
	"errors"
	"testing"

	"github.com/fattits30-dev/error-tracker/internal/tracker"
)

func TestMulti_DeliversToAll(t *testing.T) {
	var a, b int
	m := Multi{
		tracker.SinkFunc(func(tracker.Alert) error { a++; return nil }),
		tracker.SinkFunc(func(tracker.Alert) error { b++; return nil }),
	}
	if err := m.Deliver(tracker.Alert{}); err != nil {
		t.Fatal(err)
	}
	if a != 1 || b != 1 {
		t.Fatalf("expected both sinks hit, got %d / %d", a, b)
	}
}

func TestMulti_FailureDoesNotStopOthers(t *testing.T) {
	var after int
	m := Multi{
		tracker.SinkFunc(func(tracker.Alert) error { return errors.New("first down") }),
		tracker.SinkFunc(func(tracker.Alert) error { after++; return nil }),
	}
	err := m.Deliver(tracker.Alert{})
	if err == nil {
		t.Fatal("failure should be reported")
	}
	if after != 1 {
		t.Fatal("later sinks must still be attempted")
	}
}

func TestMulti_Empty(t *testing.T) {
	var m Multi
	if err := m.Deliver(tracker.Alert{}); err != nil {
		t.Fatal("empty multi sink should deliver nowhere without error")
	}
}
