package ledger

import "testing"

func TestStatusHasAndWith(t *testing.T) {
	var s Status

	if s.Has(FlagName) {
		t.Error("empty status should have no flags")
	}

	s = s.With(FlagName)
	if !s.Has(FlagName) {
		t.Error("expected FlagName after With")
	}
	if s.Has(FlagArtist) || s.Has(FlagPicture) {
		t.Error("unexpected flags set")
	}

	// Adding an existing flag is a no-op
	again := s.With(FlagName)
	if again != s {
		t.Errorf("With on existing flag changed status: %q -> %q", s, again)
	}
}

func TestStatusMonotone(t *testing.T) {
	// Any sequence of With calls only grows the flag set
	var s Status
	sequence := []Flag{FlagArtist, FlagName, FlagArtist, FlagPicture, FlagName}

	for _, f := range sequence {
		before := s
		s = s.With(f)
		if !s.Contains(before) {
			t.Fatalf("status %q is not a superset of %q", s, before)
		}
	}

	if !s.Complete() {
		t.Errorf("expected complete status, got %q", s)
	}
}

func TestStatusUnion(t *testing.T) {
	tests := []struct {
		a, b     Status
		expected Status
	}{
		{"", "", ""},
		{"N", "", "N"},
		{"", "NA", "NA"},
		{"N", "NA", "NA"},
		{"NA", "P", "NAP"},
		{"NAP", "NAP", "NAP"},
	}

	for _, tt := range tests {
		result := tt.a.Union(tt.b)
		if result != tt.expected {
			t.Errorf("Union(%q, %q) = %q, expected %q", tt.a, tt.b, result, tt.expected)
		}
	}
}

func TestStatusComplete(t *testing.T) {
	tests := []struct {
		status   Status
		complete bool
	}{
		{"", false},
		{"N", false},
		{"NA", false},
		{"NAP", true},
		{"PAN", true}, // order does not matter
	}

	for _, tt := range tests {
		if tt.status.Complete() != tt.complete {
			t.Errorf("Status(%q).Complete() = %v, expected %v", tt.status, !tt.complete, tt.complete)
		}
	}
}
