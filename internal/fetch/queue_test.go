package fetch

import "testing"

func TestQueueFIFO(t *testing.T) {
	q := newQueue([]string{"A", "B", "C"})

	for _, expected := range []string{"A", "B", "C"} {
		id, ok := q.TryClaim()
		if !ok {
			t.Fatalf("expected claim of %s, queue empty", expected)
		}
		if id != expected {
			t.Errorf("claimed %s, expected %s", id, expected)
		}
	}

	if _, ok := q.TryClaim(); ok {
		t.Error("expected empty queue")
	}
}

func TestQueueDrain(t *testing.T) {
	q := newQueue([]string{"A", "B", "C"})

	if _, ok := q.TryClaim(); !ok {
		t.Fatal("expected first claim to succeed")
	}

	if n := q.Drain(); n != 2 {
		t.Errorf("Drain() = %d, expected 2", n)
	}
	if q.Len() != 0 {
		t.Errorf("expected empty queue after drain, got %d", q.Len())
	}
	if _, ok := q.TryClaim(); ok {
		t.Error("claim succeeded after drain")
	}

	// Draining an empty queue is fine
	if n := q.Drain(); n != 0 {
		t.Errorf("second Drain() = %d, expected 0", n)
	}
}

func TestQueueEmpty(t *testing.T) {
	q := newQueue(nil)
	if _, ok := q.TryClaim(); ok {
		t.Error("expected claim on empty queue to fail")
	}
	if q.Len() != 0 {
		t.Error("expected zero length")
	}
}
