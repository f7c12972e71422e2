package assignment

import (
	"testing"

	"github.com/campusdesk-io/campusdesk/internal/models"
)

func i64(v int64) *int64 { return &v }

func TestResolveExplicitOwnership(t *testing.T) {
	p := &models.StaffProfile{UserID: 10}
	ticket := &models.Ticket{ID: 1, AssignedTo: i64(10)}

	if !Resolve(ticket, p) {
		t.Fatal("assignee without a scope restriction should see the ticket")
	}

	other := &models.Ticket{ID: 2, AssignedTo: i64(99)}
	if Resolve(other, p) {
		t.Fatal("ticket assigned to someone else should be invisible")
	}
}

func TestResolveExplicitOwnershipScopeGated(t *testing.T) {
	p := &models.StaffProfile{
		UserID:           10,
		PrimaryScopeID:   i64(3),
		PrimaryScopeName: "Block A",
	}

	in := &models.Ticket{AssignedTo: i64(10), Location: "block a"}
	if !Resolve(in, p) {
		t.Fatal("scope comparison should be case-insensitive")
	}

	out := &models.Ticket{AssignedTo: i64(10), Location: "Block B"}
	if Resolve(out, p) {
		t.Fatal("narrowly-scoped admin should lose a ticket outside their scope")
	}
}

func TestResolveCategoryDomainOwnership(t *testing.T) {
	p := &models.StaffProfile{
		UserID:                  10,
		AssignedCategoryDomains: map[int64]struct{}{5: {}},
	}

	if !Resolve(&models.Ticket{DomainID: i64(5)}, p) {
		t.Fatal("category-domain owner should see the ticket")
	}
	if Resolve(&models.Ticket{DomainID: i64(6)}, p) {
		t.Fatal("other domain should be invisible")
	}
	if Resolve(&models.Ticket{DomainID: nil}, p) {
		t.Fatal("domain-less ticket never matches category ownership")
	}
}

func TestResolveEscalationOverridesScopeGate(t *testing.T) {
	p := &models.StaffProfile{
		UserID:                  10,
		PrimaryScopeID:          i64(3),
		PrimaryScopeName:        "Block A",
		AssignedCategoryDomains: map[int64]struct{}{5: {}},
	}

	ticket := &models.Ticket{DomainID: i64(5), Location: "Block B", EscalationLevel: 1}
	if !Resolve(ticket, p) {
		t.Fatal("escalated ticket should stay visible to the category-domain owner regardless of scope")
	}

	unescalated := &models.Ticket{DomainID: i64(5), Location: "Block B"}
	if Resolve(unescalated, p) {
		t.Fatal("unescalated ticket outside the scope should be invisible")
	}
}

func TestResolvePreviousAssigneeKeepsEscalatedTicket(t *testing.T) {
	p := &models.StaffProfile{UserID: 10}

	kept := &models.Ticket{
		AssignedTo:         i64(99),
		PreviousAssignedTo: i64(10),
		EscalationLevel:    2,
	}
	if !Resolve(kept, p) {
		t.Fatal("previous assignee should keep visibility after escalation reassigns")
	}

	notEscalated := &models.Ticket{
		AssignedTo:         i64(99),
		PreviousAssignedTo: i64(10),
	}
	if Resolve(notEscalated, p) {
		t.Fatal("previous-assignee exception only applies to escalated tickets")
	}
}

func TestResolveUnassignedRoutedByPrimaryDomain(t *testing.T) {
	p := &models.StaffProfile{UserID: 10, PrimaryDomainID: i64(5)}

	if !Resolve(&models.Ticket{DomainID: i64(5)}, p) {
		t.Fatal("unassigned ticket in the primary domain should be visible")
	}
	if Resolve(&models.Ticket{DomainID: i64(6)}, p) {
		t.Fatal("unassigned ticket in another domain should be invisible")
	}
	if Resolve(&models.Ticket{DomainID: i64(5), AssignedTo: i64(99)}, p) {
		t.Fatal("assigned tickets are not routed by primary domain")
	}
}

func TestResolveUnassignedScopeGate(t *testing.T) {
	p := &models.StaffProfile{
		UserID:           10,
		PrimaryDomainID:  i64(5),
		PrimaryScopeID:   i64(3),
		PrimaryScopeName: "Block A",
	}

	if !Resolve(&models.Ticket{DomainID: i64(5), Location: " Block A "}, p) {
		t.Fatal("surrounding whitespace should not break the scope match")
	}
	if Resolve(&models.Ticket{DomainID: i64(5), Location: "Block B"}, p) {
		t.Fatal("unassigned ticket outside the primary scope should be invisible")
	}
}
