package filter

import "testing"

func TestEligible_Table(t *testing.T) {
	f := New("OneWordMenace", []string{"blockedUserX"}, "")

	tests := []struct {
		author string
		want   bool
	}{
		{"FooBot", false},
		{"blockedUserX", false},
		{"", false},
		{"regularUser", true},
		{"[deleted]", false},
		{"onewordmenace", false},
		{"OneWordMenace", false},
		{"robotics_fan", true},
		{"BlockedUserX", true}, // block list is exact
		{"anarchychess-ai", true},
	}
	for _, tt := range tests {
		if got := f.Eligible(tt.author); got != tt.want {
			t.Errorf("Eligible(%q)=%v, want %v", tt.author, got, tt.want)
		}
	}
}

func TestEligible_DefaultBlocked(t *testing.T) {
	f := New("me", DefaultBlocked, DefaultBotSuffix)
	for _, name := range DefaultBlocked {
		if f.Eligible(name) {
			t.Errorf("expected %q to be blocked", name)
		}
	}
	if !f.Eligible("chessFan42") {
		t.Error("expected chessFan42 to be eligible")
	}
}

func TestEligible_Pure(t *testing.T) {
	blocked := map[string]struct{}{"x": {}}
	if Eligible("x", "", blocked, "bot") {
		t.Error("expected blocked name to be ineligible")
	}
	if !Eligible("y", "", blocked, "") {
		t.Error("expected y to be eligible with no suffix rule")
	}
	if Eligible("SomeBOT", "", nil, "bot") {
		t.Error("suffix check should ignore case")
	}
}
