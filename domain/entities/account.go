package entities

import (
	"time"
)

// Role is one of the fixed, ordered account roles. Smaller level means
// higher in the hierarchy.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleModerator   Role = "moderator"
	RoleSeniorAgent Role = "senior_agent"
	RoleMasterAgent Role = "master_agent"
	RoleAgent       Role = "agent"
	RoleSubAgent    Role = "sub_agent"
	RolePlayer      Role = "player"
)

// MaxHierarchyDepth bounds every ancestor/descendant walk. A path longer
// than this indicates corruption, not a legitimate tree.
const MaxHierarchyDepth = 16

var roleLevels = map[Role]int{
	RoleAdmin:       0,
	RoleModerator:   1,
	RoleSeniorAgent: 2,
	RoleMasterAgent: 3,
	RoleAgent:       4,
	RoleSubAgent:    5,
	RolePlayer:      6,
}

// Level returns the role's position in the hierarchy ordering.
// Unknown roles sort below every known one.
func (r Role) Level() int {
	if lvl, ok := roleLevels[r]; ok {
		return lvl
	}
	return len(roleLevels)
}

func (r Role) Valid() bool {
	_, ok := roleLevels[r]
	return ok
}

// IsTopLevel reports whether the role may exist without a parent.
func (r Role) IsTopLevel() bool {
	return r == RoleAdmin || r == RoleModerator
}

// IsAgentTier reports whether the role is one of the four agent tiers.
func (r Role) IsAgentTier() bool {
	lvl := r.Level()
	return lvl >= roleLevels[RoleSeniorAgent] && lvl <= roleLevels[RoleSubAgent]
}

// CanManage reports whether an account with this role outranks the other.
func (r Role) CanManage(other Role) bool {
	return r.Level() < other.Level()
}

// Account is one node of the sales hierarchy. AncestorPath is denormalized,
// root first, so subtree membership is a single array containment check.
type Account struct {
	ID                   int64     `db:"id"`
	Username             string    `db:"username"`
	Role                 Role      `db:"role"`
	ParentID             *int64    `db:"parent_id"`
	AncestorPath         []int64   `db:"ancestor_path"`
	QuotaLimit           int64     `db:"quota_limit"`
	QuotaUsed            int64     `db:"quota_used"`
	Active               bool      `db:"active"`
	CanCreateSubAccounts bool      `db:"can_create_sub_accounts"`
	CommissionRate       float64   `db:"commission_rate"`
	CreatedAt            time.Time `db:"created_at"`
	UpdatedAt            time.Time `db:"updated_at"`
}

// Depth is the account's distance from the root (root accounts are 0).
func (a *Account) Depth() int {
	return len(a.AncestorPath)
}

// ChildPath returns the ancestor path a direct child of this account
// must carry: the account's own path plus its id.
func (a *Account) ChildPath() []int64 {
	path := make([]int64, 0, len(a.AncestorPath)+1)
	path = append(path, a.AncestorPath...)
	return append(path, a.ID)
}

// HasAncestor reports whether the given id appears in the ancestor path.
func (a *Account) HasAncestor(id int64) bool {
	for _, aid := range a.AncestorPath {
		if aid == id {
			return true
		}
	}
	return false
}

// QuotaAvailable returns the remaining weekly spending headroom.
func (a *Account) QuotaAvailable() int64 {
	if a.QuotaUsed >= a.QuotaLimit {
		return 0
	}
	return a.QuotaLimit - a.QuotaUsed
}

// CanAfford reports whether a reservation of amount would stay within the
// weekly limit. The authoritative check happens in the ledger's conditional
// update; this is only for early rejection.
func (a *Account) CanAfford(amount int64) bool {
	return a.Active && amount > 0 && a.QuotaUsed+amount <= a.QuotaLimit
}

// AccountNode pairs an account with its depth relative to a subtree root,
// as returned by descendant queries.
type AccountNode struct {
	Account *Account
	Depth   int
}
