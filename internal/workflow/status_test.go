package workflow

import "testing"

func TestParseStatus(t *testing.T) {
	for _, s := range Statuses() {
		got, err := ParseStatus(string(s))
		if err != nil || got != s {
			t.Errorf("ParseStatus(%q) = %v, %v", s, got, err)
		}
	}
	if _, err := ParseStatus("shipped"); err == nil {
		t.Error("expected error for unknown status")
	}
	if _, err := ParseStatus(""); err == nil {
		t.Error("expected error for empty status")
	}
}

func TestStatusClassification(t *testing.T) {
	rejected := map[Status]bool{StatusReviewRejected: true, StatusClientRejected: true}
	terminal := map[Status]bool{StatusApproved: true, StatusCancelled: true}
	for _, s := range Statuses() {
		if s.IsRejected() != rejected[s] {
			t.Errorf("%s IsRejected = %v", s, s.IsRejected())
		}
		if s.IsTerminal() != terminal[s] {
			t.Errorf("%s IsTerminal = %v", s, s.IsTerminal())
		}
	}
}

func TestParseRole(t *testing.T) {
	for _, r := range []string{"owner", "admin", "staff"} {
		if _, err := ParseRole(r); err != nil {
			t.Errorf("ParseRole(%q): %v", r, err)
		}
	}
	if _, err := ParseRole("client"); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestParseSubRole(t *testing.T) {
	for _, s := range []string{"", "designer", "reviewer", "both"} {
		if _, err := ParseSubRole(s); err != nil {
			t.Errorf("ParseSubRole(%q): %v", s, err)
		}
	}
	if _, err := ParseSubRole("lead"); err == nil {
		t.Error("expected error for unknown sub-role")
	}
}
