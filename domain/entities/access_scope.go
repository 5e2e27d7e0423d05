package entities

// AccessScope is the single cross-cutting read predicate derived from a
// requesting account's role and hierarchy position. Repositories apply it
// to every ledger query; it is never consulted for system-initiated
// operations (settlement, scheduled resets), which use SystemScope.
type AccessScope struct {
	// All grants unrestricted access (top two roles and system operations).
	All bool
	// AccountID is the requester's own row, always visible.
	AccountID int64
	// IncludeSubtree extends visibility to every descendant of AccountID.
	IncludeSubtree bool
}

// SystemScope is the unrestricted scope for userless operations.
func SystemScope() AccessScope {
	return AccessScope{All: true}
}

// ScopeForAccount derives the read scope for a requesting account:
// admin and moderator see everything, agent tiers see their own row plus
// their subtree, players see only their own row.
func ScopeForAccount(a *Account) AccessScope {
	switch {
	case a.Role.IsTopLevel():
		return AccessScope{All: true}
	case a.Role.IsAgentTier():
		return AccessScope{AccountID: a.ID, IncludeSubtree: true}
	default:
		return AccessScope{AccountID: a.ID}
	}
}

// AllowsAccount reports whether the scope permits reading rows owned by the
// given account. The hierarchy position is judged by the owner's ancestor
// path, mirroring the SQL predicate repositories build from this scope.
func (s AccessScope) AllowsAccount(owner *Account) bool {
	if s.All {
		return true
	}
	if owner.ID == s.AccountID {
		return true
	}
	return s.IncludeSubtree && owner.HasAncestor(s.AccountID)
}
