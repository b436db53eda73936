package workflow

import "fmt"

// RoleGrant names one role allowed to execute a transition and, for staff,
// the capability the actor must hold and be assigned for on the case.
type RoleGrant struct {
	Role       Role
	Capability SubRole
}

// Rule is one legal (From, To) edge of the case workflow. The table is
// data, not logic: rules are declared once below and never mutated.
type Rule struct {
	From   Status
	To     Status
	Grants []RoleGrant
}

// Authorizes reports whether an actor with the given role and sub-role may
// execute the rule. Per-case assignment checks are the engine's concern;
// this only matches role and capability.
func (r Rule) Authorizes(role Role, subRole SubRole) bool {
	for _, g := range r.Grants {
		if g.Role != role {
			continue
		}
		if g.Role == RoleStaff && !subRole.Covers(g.Capability) {
			continue
		}
		return true
	}
	return false
}

// Capability returns the staff capability a rule exercises, or SubRoleNone
// when the rule has no staff grant.
func (r Rule) Capability() SubRole {
	for _, g := range r.Grants {
		if g.Role == RoleStaff {
			return g.Capability
		}
	}
	return SubRoleNone
}

func owner() RoleGrant          { return RoleGrant{Role: RoleOwner} }
func admin() RoleGrant          { return RoleGrant{Role: RoleAdmin} }
func staff(c SubRole) RoleGrant { return RoleGrant{Role: RoleStaff, Capability: c} }

var ruleList = []Rule{
	{From: StatusPendingIntake, To: StatusPendingApproval, Grants: []RoleGrant{owner()}},
	{From: StatusPendingIntake, To: StatusCancelled, Grants: []RoleGrant{owner(), admin()}},

	{From: StatusPendingApproval, To: StatusInDesign, Grants: []RoleGrant{admin()}},
	{From: StatusPendingApproval, To: StatusCancelled, Grants: []RoleGrant{owner(), admin()}},

	{From: StatusInDesign, To: StatusPendingReview, Grants: []RoleGrant{staff(SubRoleDesigner)}},
	{From: StatusInDesign, To: StatusCancelled, Grants: []RoleGrant{admin()}},

	{From: StatusPendingReview, To: StatusPendingClientReview, Grants: []RoleGrant{staff(SubRoleReviewer)}},
	{From: StatusPendingReview, To: StatusReviewRejected, Grants: []RoleGrant{staff(SubRoleReviewer)}},
	{From: StatusPendingReview, To: StatusCancelled, Grants: []RoleGrant{admin()}},

	// Second hop of the reviewer rejection; admin may complete it manually
	// when the compound operation was interrupted between hops.
	{From: StatusReviewRejected, To: StatusInDesign, Grants: []RoleGrant{staff(SubRoleReviewer), admin()}},

	{From: StatusPendingClientReview, To: StatusApproved, Grants: []RoleGrant{owner()}},
	{From: StatusPendingClientReview, To: StatusClientRejected, Grants: []RoleGrant{owner()}},
	{From: StatusPendingClientReview, To: StatusCancelled, Grants: []RoleGrant{owner(), admin()}},

	{From: StatusClientRejected, To: StatusInDesign, Grants: []RoleGrant{owner(), admin()}},

	// Legacy pass-through edges for pre-intake records.
	{From: StatusOpened, To: StatusAssigned, Grants: []RoleGrant{admin()}},
	{From: StatusOpened, To: StatusCancelled, Grants: []RoleGrant{admin()}},
	{From: StatusAssigned, To: StatusInDesign, Grants: []RoleGrant{admin()}},
	{From: StatusAssigned, To: StatusCancelled, Grants: []RoleGrant{admin()}},
}

type ruleKey struct {
	from Status
	to   Status
}

var ruleIndex = buildIndex(ruleList)

func buildIndex(rules []Rule) map[ruleKey]Rule {
	idx := make(map[ruleKey]Rule, len(rules))
	for _, r := range rules {
		k := ruleKey{from: r.From, to: r.To}
		if _, dup := idx[k]; dup {
			// Two rules for one pair is a configuration error, not a
			// tie to break silently.
			panic(fmt.Sprintf("workflow: duplicate rule %s -> %s", r.From, r.To))
		}
		idx[k] = r
	}
	return idx
}

// Lookup returns the rule for (from, to), if one exists.
func Lookup(from, to Status) (Rule, bool) {
	r, ok := ruleIndex[ruleKey{from: from, to: to}]
	return r, ok
}

// RulesFrom returns the rules leaving from, in declaration order.
func RulesFrom(from Status) []Rule {
	var out []Rule
	for _, r := range ruleList {
		if r.From == from {
			out = append(out, r)
		}
	}
	return out
}

// Rules returns the full table in declaration order.
func Rules() []Rule {
	out := make([]Rule, len(ruleList))
	copy(out, ruleList)
	return out
}
