package repository

import (
	"fmt"

	"lottobook/domain/entities"
)

// scopeCondition renders an access scope as a SQL predicate over the given
// accounts table alias, appending any bound values to args. An unrestricted
// scope renders as TRUE so callers can AND it in unconditionally.
func scopeCondition(scope entities.AccessScope, alias string, args []any) (string, []any) {
	if scope.All {
		return "TRUE", args
	}
	args = append(args, scope.AccountID)
	n := len(args)
	if scope.IncludeSubtree {
		return fmt.Sprintf("(%s.id = $%d OR $%d = ANY(%s.ancestor_path))", alias, n, n, alias), args
	}
	return fmt.Sprintf("%s.id = $%d", alias, n), args
}
