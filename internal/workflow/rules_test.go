package workflow

import "testing"

func TestLookupKnownEdges(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPendingIntake, StatusPendingApproval, true},
		{StatusPendingApproval, StatusInDesign, true},
		{StatusInDesign, StatusPendingReview, true},
		{StatusPendingReview, StatusReviewRejected, true},
		{StatusReviewRejected, StatusInDesign, true},
		{StatusPendingClientReview, StatusApproved, true},
		{StatusClientRejected, StatusInDesign, true},
		{StatusOpened, StatusAssigned, true},
		{StatusAssigned, StatusInDesign, true},
		{StatusPendingIntake, StatusApproved, false},
		{StatusApproved, StatusInDesign, false},
		{StatusCancelled, StatusPendingIntake, false},
		{StatusInDesign, StatusInDesign, false},
	}
	for _, tc := range cases {
		if _, ok := Lookup(tc.from, tc.to); ok != tc.ok {
			t.Errorf("Lookup(%s, %s) ok = %v, want %v", tc.from, tc.to, ok, tc.ok)
		}
	}
}

func TestTerminalStatusesHaveNoOutgoingEdges(t *testing.T) {
	for _, s := range Statuses() {
		if !s.IsTerminal() {
			continue
		}
		if got := RulesFrom(s); len(got) != 0 {
			t.Errorf("terminal status %s has outgoing edges: %v", s, got)
		}
	}
}

func TestEveryRuleNamesValidStatuses(t *testing.T) {
	for _, r := range Rules() {
		if _, err := ParseStatus(string(r.From)); err != nil {
			t.Errorf("rule %s -> %s: bad from status", r.From, r.To)
		}
		if _, err := ParseStatus(string(r.To)); err != nil {
			t.Errorf("rule %s -> %s: bad to status", r.From, r.To)
		}
		if len(r.Grants) == 0 {
			t.Errorf("rule %s -> %s has no grants", r.From, r.To)
		}
	}
}

func TestRejectedStatusesCanReachInDesign(t *testing.T) {
	for _, s := range Statuses() {
		if !s.IsRejected() {
			continue
		}
		if _, ok := Lookup(s, StatusInDesign); !ok {
			t.Errorf("no rework edge from %s", s)
		}
	}
}

func TestAuthorizes(t *testing.T) {
	rule, ok := Lookup(StatusInDesign, StatusPendingReview)
	if !ok {
		t.Fatal("missing in_design -> pending_review")
	}
	if !rule.Authorizes(RoleStaff, SubRoleDesigner) {
		t.Error("designer should submit for review")
	}
	if !rule.Authorizes(RoleStaff, SubRoleBoth) {
		t.Error("both capability should cover designer")
	}
	if rule.Authorizes(RoleStaff, SubRoleReviewer) {
		t.Error("reviewer must not submit designs")
	}
	if rule.Authorizes(RoleOwner, SubRoleNone) {
		t.Error("owner must not submit designs")
	}

	rule, ok = Lookup(StatusPendingClientReview, StatusApproved)
	if !ok {
		t.Fatal("missing pending_client_review -> approved")
	}
	if !rule.Authorizes(RoleOwner, SubRoleNone) {
		t.Error("owner should grant final approval")
	}
	if rule.Authorizes(RoleAdmin, SubRoleNone) {
		t.Error("admin must not approve on the client's behalf")
	}
}

func TestSubRoleCovers(t *testing.T) {
	cases := []struct {
		have, need SubRole
		want       bool
	}{
		{SubRoleDesigner, SubRoleDesigner, true},
		{SubRoleDesigner, SubRoleReviewer, false},
		{SubRoleReviewer, SubRoleReviewer, true},
		{SubRoleReviewer, SubRoleDesigner, false},
		{SubRoleBoth, SubRoleDesigner, true},
		{SubRoleBoth, SubRoleReviewer, true},
		{SubRoleBoth, SubRoleBoth, true},
		{SubRoleDesigner, SubRoleBoth, false},
		{SubRoleNone, SubRoleDesigner, false},
	}
	for _, tc := range cases {
		if got := tc.have.Covers(tc.need); got != tc.want {
			t.Errorf("%q covers %q = %v, want %v", tc.have, tc.need, got, tc.want)
		}
	}
}
