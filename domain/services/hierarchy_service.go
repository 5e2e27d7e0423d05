package services

import (
	"context"
	"fmt"

	"lottobook/domain"
	"lottobook/domain/entities"
	"lottobook/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// hierarchyService maintains the account tree.
type hierarchyService struct {
	accountRepo interfaces.AccountRepository
	auditRepo   interfaces.AuditLogRepository
}

// NewHierarchyService creates a new hierarchy service.
func NewHierarchyService(
	accountRepo interfaces.AccountRepository,
	auditRepo interfaces.AuditLogRepository,
) interfaces.HierarchyService {
	return &hierarchyService{
		accountRepo: accountRepo,
		auditRepo:   auditRepo,
	}
}

// CreateAccount adds a node to the tree. Top-level roles may be created
// without a parent (bootstrap); everything else hangs under an active
// parent whose role outranks the new account's, with quota limit and
// commission rate capped at the parent's.
func (s *hierarchyService) CreateAccount(ctx context.Context, input interfaces.CreateAccountInput) (*entities.Account, error) {
	if err := validate.Struct(input); err != nil {
		return nil, domain.WrapValidation(err, "invalid account input")
	}
	if !input.Role.Valid() {
		return nil, domain.Validationf("unknown role %q", input.Role)
	}

	existing, err := s.accountRepo.GetByUsername(ctx, input.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if existing != nil {
		return nil, domain.Conflictf("username %q is already taken", input.Username)
	}

	account := &entities.Account{
		Username:             input.Username,
		Role:                 input.Role,
		QuotaLimit:           input.QuotaLimit,
		CommissionRate:       input.CommissionRate,
		CanCreateSubAccounts: input.CanCreateSubAccounts,
		Active:               true,
	}

	if input.ParentID == nil {
		if !input.Role.IsTopLevel() {
			return nil, domain.Validationf("role %q requires a parent account", input.Role)
		}
	} else {
		parent, err := s.accountRepo.GetByID(ctx, *input.ParentID)
		if err != nil {
			return nil, fmt.Errorf("failed to load parent account: %w", err)
		}
		if parent == nil {
			return nil, domain.NotFoundf("parent account %d not found", *input.ParentID)
		}
		if !parent.Active {
			return nil, domain.Validationf("parent account %d is inactive", parent.ID)
		}
		if !parent.Role.CanManage(input.Role) {
			return nil, domain.Validationf("role %q may not be created under role %q", input.Role, parent.Role)
		}
		if len(parent.ChildPath()) > entities.MaxHierarchyDepth {
			return nil, domain.Validationf("hierarchy depth limit of %d exceeded", entities.MaxHierarchyDepth)
		}
		if input.QuotaLimit > parent.QuotaLimit {
			return nil, domain.Validationf("quota limit %d exceeds parent limit %d", input.QuotaLimit, parent.QuotaLimit)
		}
		if input.CommissionRate > parent.CommissionRate {
			return nil, domain.Validationf("commission rate %.4f exceeds parent rate %.4f", input.CommissionRate, parent.CommissionRate)
		}

		if err := s.authorizeCreation(ctx, input.ActorID, parent); err != nil {
			return nil, err
		}

		account.ParentID = input.ParentID
		account.AncestorPath = parent.ChildPath()
	}

	if input.ParentID == nil && input.ActorID != nil {
		actor, err := s.loadActor(ctx, *input.ActorID)
		if err != nil {
			return nil, err
		}
		if !actor.Role.IsTopLevel() {
			return nil, domain.Forbiddenf("account %d may not create top-level accounts", actor.ID)
		}
	}

	if err := s.accountRepo.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	audit := entities.NewAuditLog(input.ActorID, entities.AuditActionAccountCreate, map[string]any{
		"account_id": account.ID,
		"username":   account.Username,
		"role":       string(account.Role),
	})
	if err := s.auditRepo.Record(ctx, audit); err != nil {
		return nil, fmt.Errorf("failed to record account creation audit entry: %w", err)
	}

	return account, nil
}

// authorizeCreation checks that the actor may create a child under parent:
// the actor must be the parent itself or one of its ancestors, and must
// either hold a top role or carry the sub-account flag.
func (s *hierarchyService) authorizeCreation(ctx context.Context, actorID *int64, parent *entities.Account) error {
	if actorID == nil {
		return domain.Forbiddenf("non-root accounts require an acting account")
	}
	actor, err := s.loadActor(ctx, *actorID)
	if err != nil {
		return err
	}
	if !actor.Role.IsTopLevel() && !actor.CanCreateSubAccounts {
		return domain.Forbiddenf("account %d may not create sub-accounts", actor.ID)
	}
	if actor.Role.IsTopLevel() {
		return nil
	}
	if actor.ID != parent.ID && !parent.HasAncestor(actor.ID) {
		return domain.Forbiddenf("account %d is not an ancestor of parent account %d", actor.ID, parent.ID)
	}
	return nil
}

func (s *hierarchyService) loadActor(ctx context.Context, actorID int64) (*entities.Account, error) {
	actor, err := s.accountRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load acting account: %w", err)
	}
	if actor == nil {
		return nil, domain.NotFoundf("account %d not found", actorID)
	}
	if !actor.Active {
		return nil, domain.Validationf("account %d is inactive", actorID)
	}
	return actor, nil
}

// GetAncestors returns the chain from nearest parent to root, read off the
// denormalized ancestor path. The walk is bounded by MaxHierarchyDepth so
// a corrupted path cannot produce an unbounded result.
func (s *hierarchyService) GetAncestors(ctx context.Context, accountID int64) ([]*entities.Account, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil {
		return nil, domain.NotFoundf("account %d not found", accountID)
	}

	path := account.AncestorPath
	if len(path) > entities.MaxHierarchyDepth {
		log.WithFields(log.Fields{
			"accountID": accountID,
			"pathLen":   len(path),
		}).Warn("ancestor path exceeds depth bound, truncating to nearest ancestors")
		path = path[len(path)-entities.MaxHierarchyDepth:]
	}

	// Stored root first; callers get nearest parent first.
	ids := make([]int64, 0, len(path))
	for i := len(path) - 1; i >= 0; i-- {
		ids = append(ids, path[i])
	}
	ancestors, err := s.accountRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load ancestors: %w", err)
	}
	return ancestors, nil
}

// GetChildren returns direct children only.
func (s *hierarchyService) GetChildren(ctx context.Context, accountID int64) ([]*entities.Account, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil {
		return nil, domain.NotFoundf("account %d not found", accountID)
	}
	children, err := s.accountRepo.GetChildren(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load children: %w", err)
	}
	return children, nil
}

// GetDescendants returns the full subtree with each node's depth relative
// to the queried account. Nodes beyond the depth bound are dropped.
func (s *hierarchyService) GetDescendants(ctx context.Context, accountID int64) ([]*entities.AccountNode, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil {
		return nil, domain.NotFoundf("account %d not found", accountID)
	}

	descendants, err := s.accountRepo.GetDescendants(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load descendants: %w", err)
	}

	rootDepth := account.Depth()
	nodes := make([]*entities.AccountNode, 0, len(descendants))
	for _, d := range descendants {
		depth := d.Depth() - rootDepth
		if depth > entities.MaxHierarchyDepth {
			log.WithFields(log.Fields{
				"accountID":    d.ID,
				"subtreeDepth": depth,
			}).Warn("descendant beyond depth bound, skipping")
			continue
		}
		nodes = append(nodes, &entities.AccountNode{Account: d, Depth: depth})
	}
	return nodes, nil
}

// Reparent moves an account, and implicitly its whole subtree, under a new
// parent. The moved node's path and every descendant's path are rewritten
// in one transaction.
func (s *hierarchyService) Reparent(ctx context.Context, accountID, newParentID int64, actorID int64) error {
	if accountID == newParentID {
		return domain.Validationf("account cannot become its own parent")
	}

	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return err
	}

	account, err := s.accountRepo.GetByIDForUpdate(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil {
		return domain.NotFoundf("account %d not found", accountID)
	}

	if !actor.Role.IsTopLevel() && !account.HasAncestor(actorID) {
		return domain.Forbiddenf("account %d may not reparent account %d", actorID, accountID)
	}

	newParent, err := s.accountRepo.GetByIDForUpdate(ctx, newParentID)
	if err != nil {
		return fmt.Errorf("failed to load new parent: %w", err)
	}
	if newParent == nil {
		return domain.NotFoundf("account %d not found", newParentID)
	}
	if !newParent.Active {
		return domain.Validationf("new parent %d is inactive", newParentID)
	}

	// Cycles are checked first: moving under one's own descendant is a
	// conflict regardless of what else is wrong with the target.
	if newParent.ID == account.ID || newParent.HasAncestor(accountID) {
		return domain.Conflictf("reparenting account %d under %d would create a cycle", accountID, newParentID)
	}

	// The new upline must sit in the same operational tier as the current
	// one: an account hanging under an agent can only move under another
	// agent.
	if account.ParentID == nil {
		return domain.Validationf("top-level account %d cannot be reparented", accountID)
	}
	oldParent, err := s.accountRepo.GetByID(ctx, *account.ParentID)
	if err != nil {
		return fmt.Errorf("failed to load current parent: %w", err)
	}
	if oldParent != nil && newParent.Role != oldParent.Role {
		return domain.Validationf("new parent role %q does not match current parent role %q",
			newParent.Role, oldParent.Role)
	}

	// A child never carries more quota or commission than its upline; the
	// move is rejected rather than silently capping the subtree.
	if account.QuotaLimit > newParent.QuotaLimit {
		return domain.Validationf("account quota limit %d exceeds new parent limit %d",
			account.QuotaLimit, newParent.QuotaLimit)
	}
	if account.CommissionRate > newParent.CommissionRate {
		return domain.Validationf("account commission rate %.4f exceeds new parent rate %.4f",
			account.CommissionRate, newParent.CommissionRate)
	}

	newPath := newParent.ChildPath()
	if len(newPath) >= entities.MaxHierarchyDepth {
		return domain.Validationf("hierarchy depth limit of %d exceeded", entities.MaxHierarchyDepth)
	}

	oldPath := account.AncestorPath
	if err := s.accountRepo.Reparent(ctx, accountID, newParentID, oldPath, newPath); err != nil {
		return fmt.Errorf("failed to reparent account: %w", err)
	}

	audit := entities.NewAuditLog(&actorID, entities.AuditActionAccountReparent, map[string]any{
		"account_id":    accountID,
		"old_parent_id": *account.ParentID,
		"new_parent_id": newParentID,
	})
	if err := s.auditRepo.Record(ctx, audit); err != nil {
		return fmt.Errorf("failed to record reparent audit entry: %w", err)
	}
	return nil
}

// SetActive toggles the soft-delete flag. An account keeps existing in the
// tree; deactivation is refused while active direct children remain.
func (s *hierarchyService) SetActive(ctx context.Context, accountID int64, active bool, actorID int64) error {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return err
	}

	account, err := s.accountRepo.GetByIDForUpdate(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil {
		return domain.NotFoundf("account %d not found", accountID)
	}

	if !actor.Role.IsTopLevel() && !account.HasAncestor(actorID) {
		return domain.Forbiddenf("account %d may not change active state of account %d", actorID, accountID)
	}

	if !active {
		activeChildren, err := s.accountRepo.CountActiveChildren(ctx, accountID)
		if err != nil {
			return fmt.Errorf("failed to count active children: %w", err)
		}
		if activeChildren > 0 {
			return domain.Conflictf("account %d still has %d active children", accountID, activeChildren)
		}
	}

	account.Active = active
	if err := s.accountRepo.Update(ctx, account); err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return nil
}
