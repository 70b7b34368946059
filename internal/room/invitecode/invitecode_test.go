package invitecode

import (
	"strings"
	"testing"
)

func TestNewProducesReadableCodes(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		code, err := New()
		if err != nil {
			t.Fatalf("generate code: %v", err)
		}
		if len(code) != Length {
			t.Fatalf("expected %d characters, got %q", Length, code)
		}
		for _, r := range code {
			if !strings.ContainsRune(alphabet, r) {
				t.Fatalf("code %q contains %q outside the alphabet", code, r)
			}
		}
		seen[code] = struct{}{}
	}
	if len(seen) < 90 {
		t.Fatalf("expected mostly unique codes, got %d unique out of 100", len(seen))
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  ab2cde "); got != "AB2CDE" {
		t.Fatalf("expected AB2CDE, got %q", got)
	}
}
