package idgen

import (
	"regexp"
	"strings"
	"testing"
)

func TestRequestID_Format(t *testing.T) {
	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(RequestPrefix) + `[a-zA-Z0-9]+$`)
	for i := 0; i < 100; i++ {
		id := RequestID()
		if len(id) != len(RequestPrefix)+Length {
			t.Fatalf("RequestID() length = %d, want %d (id=%q)", len(id), len(RequestPrefix)+Length, id)
		}
		if !pattern.MatchString(id) {
			t.Fatalf("RequestID() = %q, does not match expected charset pattern", id)
		}
	}
}

func TestRequestID_Uniqueness(t *testing.T) {
	const count = 10_000
	seen := make(map[string]struct{}, count)
	for i := 0; i < count; i++ {
		id := RequestID()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate ID after %d generations: %q", i, id)
		}
		seen[id] = struct{}{}
	}
}

func TestGenerateWithPrefix(t *testing.T) {
	prefix := "test-"
	id, err := GenerateWithPrefix(prefix)
	if err != nil {
		t.Fatalf("GenerateWithPrefix(%q) error: %v", prefix, err)
	}
	if !strings.HasPrefix(id, prefix) {
		t.Errorf("GenerateWithPrefix(%q) = %q, want prefix %q", prefix, id, prefix)
	}
	if wantLen := len(prefix) + Length; len(id) != wantLen {
		t.Errorf("GenerateWithPrefix(%q) length = %d, want %d (id=%q)", prefix, len(id), wantLen, id)
	}
}

func TestValidRequestID(t *testing.T) {
	for _, tc := range []struct {
		id   string
		want bool
	}{
		{"req-abc123", true},
		{"trace_1.2-x", true},
		{"", false},
		{"has space", false},
		{"inject\nheader", false},
		{strings.Repeat("a", 65), false},
	} {
		if got := ValidRequestID(tc.id); got != tc.want {
			t.Errorf("ValidRequestID(%q) = %v, want %v", tc.id, got, tc.want)
		}
	}
}
