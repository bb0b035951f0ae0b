package report

import (
	"strings"

	coreuser "github.com/ganpare/densai/internal/core/user"
)

// Scope selects which reports an actor may see at all. Status and search
// narrow the result further inside that scope.
type Scope int

const (
	// ScopeOwn limits results to reports the actor handles.
	ScopeOwn Scope = iota
	// ScopeReview covers every non-draft report plus the actor's own drafts.
	ScopeReview
	// ScopeAll is unrestricted.
	ScopeAll
)

type Filter struct {
	Scope   Scope
	ActorID int64
	Status  Status
	Search  string
}

// BuildFilter derives the query filter for actor. An approver asking for no
// particular status or text gets the shared pending queue.
func BuildFilter(actor *coreuser.Actor, status Status, search string) Filter {
	search = strings.TrimSpace(search)
	f := Filter{ActorID: actor.ID, Status: status, Search: search}

	switch {
	case actor.IsAdmin():
		f.Scope = ScopeAll
	case actor.Has(coreuser.RoleApprover):
		f.Scope = ScopeReview
		if status == "" && search == "" {
			f.Status = StatusPendingApproval
		}
	default:
		f.Scope = ScopeOwn
	}
	return f
}

// CanView applies the list visibility rule to a single report.
func CanView(actor *coreuser.Actor, r *Report) bool {
	if actor == nil || r == nil {
		return false
	}
	if actor.IsAdmin() || r.IsOwnedBy(actor.ID) {
		return true
	}
	return actor.Has(coreuser.RoleApprover) && r.Status != StatusDraft
}

// Matches reports whether r falls inside f. Repositories translate the same
// rule into SQL; this form backs in-memory stores and tests.
func (f Filter) Matches(r *Report) bool {
	switch f.Scope {
	case ScopeOwn:
		if r.HandlerID != f.ActorID {
			return false
		}
	case ScopeReview:
		if r.Status == StatusDraft && r.HandlerID != f.ActorID {
			return false
		}
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		hay := []string{r.ReportNumber, r.CompanyName, r.ContactPersonName, r.InquiryContent}
		for _, h := range hay {
			if strings.Contains(strings.ToLower(h), needle) {
				return true
			}
		}
		return false
	}
	return true
}
