package channel

import "testing"

func TestBuffered_TrySend(t *testing.T) {
	ch := NewBuffered[int](2)

	if !ch.TrySend(1) || !ch.TrySend(2) {
		t.Fatal("expected sends within capacity to succeed")
	}
	if ch.TrySend(3) {
		t.Error("expected send on a full buffer to fail")
	}
	if ch.Len() != 2 {
		t.Errorf("expected 2 buffered items, got %d", ch.Len())
	}

	got := <-ch.Receive()
	if got != 1 {
		t.Errorf("expected first item 1, got %d", got)
	}
	if !ch.TrySend(3) {
		t.Error("expected send to succeed after a receive")
	}
}

func TestBuffered_CloseDrains(t *testing.T) {
	ch := NewBuffered[string](4)
	ch.Send("a")
	ch.Send("b")
	ch.Close()

	var out []string
	for v := range ch.Receive() {
		out = append(out, v)
	}
	if len(out) != 2 || out[0] != "a" || out[1] != "b" {
		t.Errorf("expected buffered items to survive close, got %v", out)
	}
}

func TestUnbuffered_TrySend(t *testing.T) {
	ch := NewUnbuffered[int]()

	// no receiver waiting
	if ch.TrySend(1) {
		t.Error("expected send with no receiver to fail")
	}
	if ch.Len() != 0 {
		t.Errorf("unbuffered Len must be 0, got %d", ch.Len())
	}

	done := make(chan int)
	go func() { done <- <-ch.Receive() }()

	for !ch.TrySend(42) {
	}
	if got := <-done; got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
}
