// Package assignment decides which staff member sees and owns a ticket,
// based on the domain/scope hierarchy and explicit assignment.
package assignment

import (
	"strings"

	"github.com/campusdesk-io/campusdesk/internal/models"
)

// Resolve reports whether the staff member should see the ticket. The
// priority order is: explicit ownership, category-domain ownership,
// previous-assignee retention after an escalation, then unassigned routing
// by primary domain/scope. Domain and scope route new work; explicit
// assignment and escalation are override signals that survive scope drift so
// no ticket silently disappears from every dashboard.
func Resolve(t *models.Ticket, p *models.StaffProfile) bool {
	// Explicit ownership. A narrowly-scoped admin keeps an assigned ticket
	// only while it remains in their area.
	if t.AssignedTo != nil && *t.AssignedTo == p.UserID {
		if p.PrimaryScopeID == nil {
			return true
		}
		return scopeMatches(t.Location, p.PrimaryScopeName)
	}

	// Domain ownership through category assignment. Escalation overrides
	// both the assignee check and the scope gate, so the originating admin
	// keeps visibility after the sweep reassigns elsewhere.
	if p.HasCategoryDomain(t.DomainID) {
		if t.EscalationLevel > 0 {
			return true
		}
		if p.PrimaryScopeID == nil {
			return true
		}
		return scopeMatches(t.Location, p.PrimaryScopeName)
	}

	// Previous assignee of an escalated ticket keeps visibility.
	if t.EscalationLevel > 0 && t.PreviousAssignedTo != nil && *t.PreviousAssignedTo == p.UserID {
		return true
	}

	// Unassigned work routed by the primary domain/scope partition.
	if t.AssignedTo == nil && p.PrimaryDomainID != nil &&
		t.DomainID != nil && *t.DomainID == *p.PrimaryDomainID {
		if p.PrimaryScopeID == nil {
			return true
		}
		return scopeMatches(t.Location, p.PrimaryScopeName)
	}

	return false
}

// scopeMatches compares a ticket location against a scope name. Exact
// case-insensitive equality, for determinism.
func scopeMatches(location, scopeName string) bool {
	return strings.EqualFold(strings.TrimSpace(location), strings.TrimSpace(scopeName))
}
