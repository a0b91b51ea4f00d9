package sysmem

import "testing"

func TestAvailableIsPositive(t *testing.T) {
	if got := Available(0); got <= 0 {
		t.Errorf("Available(0) = %d, want > 0", got)
	}
}

func TestAvailableFallbackDefault(t *testing.T) {
	// Even when the caller passes no budget the guard must have a floor.
	if got := Available(-1); got <= 0 {
		t.Errorf("Available(-1) = %d, want > 0", got)
	}
}
