package valkey

import (
	"errors"
	"testing"
)

func TestIsMiss(t *testing.T) {
	if IsMiss(nil) {
		t.Error("nil error is not a miss")
	}
	if IsMiss(errors.New("connection refused")) {
		t.Error("transport error is not a miss")
	}
	// The miss error's text is an implementation detail of the client;
	// matching on it must not make an arbitrary error look like a miss.
	if IsMiss(errors.New("valkey nil message")) {
		t.Error("miss detection must not rely on error text")
	}
}

func TestKeyFamily(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"venues:nearby:-34.9:-57.9", "venues:nearby"},
		{"match:best:a:b:c", "match:best"},
		{"pointset:team-a", "pointset:team-a"},
		{"bare", "bare"},
	}
	for _, tt := range tests {
		if got := keyFamily(tt.key); got != tt.want {
			t.Errorf("keyFamily(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
