package textutil

import "testing"

func TestTrimToBytes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"under limit", "hello", 10, "hello"},
		{"exact limit", "hello", 5, "hello"},
		{"over limit", "hello world", 5, "hello"},
		{"zero limit", "hello", 0, ""},
		{"negative limit", "hello", -1, ""},
		{"empty input", "", 5, ""},
	}
	for _, tt := range tests {
		if got := TrimToBytes(tt.in, tt.max); got != tt.want {
			t.Errorf("%s: TrimToBytes(%q, %d) = %q, want %q", tt.name, tt.in, tt.max, got, tt.want)
		}
	}
}

func TestTrimToBytesRuneBoundary(t *testing.T) {
	// é is two bytes; cutting at 2 must not leave half a rune behind.
	if got := TrimToBytes("héllo", 2); got != "h" {
		t.Errorf("TrimToBytes(héllo, 2) = %q, want %q", got, "h")
	}
	if got := TrimToBytes("héllo", 3); got != "hé" {
		t.Errorf("TrimToBytes(héllo, 3) = %q, want %q", got, "hé")
	}
}
