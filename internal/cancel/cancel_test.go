package cancel

import "testing"

func TestCancelledBeforeCancel(t *testing.T) {
	tok := New()
	if tok.Cancelled() {
		t.Fatal("expected a fresh token to be uncancelled")
	}
	select {
	case <-tok.Done():
		t.Fatal("expected Done() to not be closed yet")
	default:
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	tok := New()
	tok.Cancel()
	tok.Cancel() // must not panic

	if !tok.Cancelled() {
		t.Fatal("expected token to report cancelled")
	}
	select {
	case <-tok.Done():
	default:
		t.Fatal("expected Done() to be closed")
	}
}
