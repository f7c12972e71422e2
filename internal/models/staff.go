package models

// StaffProfile is the authority profile the assignment resolver consults.
// PrimaryDomainID nil means global authority. AssignedCategoryDomains is the
// derived set of domains the staff member is tied to through category
// ownership, independent of the primary assignment.
type StaffProfile struct {
	UserID                  int64
	PrimaryDomainID         *int64
	PrimaryScopeID          *int64
	PrimaryScopeName        string
	AssignedCategoryDomains map[int64]struct{}
}

// HasCategoryDomain reports whether the profile owns a category in the domain.
func (p *StaffProfile) HasCategoryDomain(domainID *int64) bool {
	if domainID == nil {
		return false
	}
	_, ok := p.AssignedCategoryDomains[*domainID]
	return ok
}
