package access

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/termacl/termacl/pkg/permission"
	"github.com/termacl/termacl/pkg/term"
)

// ContentResolver is the host contract for reading a content item's
// classification; the term set spans all taxonomy reference fields
type ContentResolver interface {
	TermIDsForItem(ctx context.Context, itemID int64) ([]int64, error)
	IsPublished(ctx context.Context, itemID int64) (bool, error)
}

// Config carries checker behaviour switches
// NOTE: ancestor inheritance is off by default; when enabled, an allow
// on any ancestor term also satisfies the restriction on the term itself
type Config struct {
	InheritAncestors bool `json:"inherit_ancestors"`
}

// Checker is the access decision engine: a pure, stateless predicate over
// the permission store and the term hierarchy; it never reads the grant
// table and has no side effects beyond logging
type Checker struct {
	permissions *permission.Manager
	terms       *term.Manager
	content     ContentResolver
	config      Config
	logger      *zap.Logger
}

// NewChecker initializes an access checker with explicit collaborators
func NewChecker(pm *permission.Manager, tm *term.Manager, content ContentResolver, config Config) (*Checker, error) {
	if pm == nil {
		return nil, ErrNilPermissionManager
	}

	if tm == nil {
		return nil, ErrNilTermManager
	}

	c := &Checker{
		permissions: pm,
		terms:       tm,
		content:     content,
		config:      config,
	}

	return c, nil
}

// SetLogger assigns a logger for this checker
func (c *Checker) SetLogger(logger *zap.Logger) error {
	if logger != nil {
		logger = logger.Named("[access]")
	}

	c.logger = logger

	return nil
}

// Logger returns primary logger if is set, otherwise initializing and returning
func (c *Checker) Logger() *zap.Logger {
	if c.logger == nil {
		l, err := zap.NewDevelopment()
		if err != nil {
			panic(fmt.Errorf("failed to initialize access checker logger: %s", err))
		}

		c.logger = l
	}

	return c.logger
}

// TermAllowed decides whether a principal is allowed on a single term:
// a term with no permission records at all is unrestricted and open to
// everyone; otherwise an explicit allow must exist for the user, for any
// of the user's roles, or (with inheritance enabled) for an ancestor term
// NOTE: any internal failure resolves to deny, never allow
func (c *Checker) TermAllowed(ctx context.Context, termID int64, p Principal) (bool, error) {
	if termID == 0 {
		return false, ErrZeroTermID
	}

	restricted, err := c.permissions.IsRestricted(ctx, termID)
	if err != nil {
		return false, err
	}

	if !restricted {
		return true, nil
	}

	allowed, err := c.termExplicitlyAllowed(ctx, termID, p)
	if err != nil {
		return false, err
	}

	if allowed {
		return true, nil
	}

	if c.config.InheritAncestors {
		return c.ancestorAllowed(ctx, termID, p)
	}

	return false, nil
}

// Allowed decides whether a principal may access a content item: an item
// without restricted terms is visible to everyone, otherwise every
// restricted term attached to it must individually allow the principal,
// i.e. the most restrictive attached term wins
func (c *Checker) Allowed(ctx context.Context, itemID int64, p Principal) (bool, error) {
	if itemID == 0 {
		return false, ErrZeroItemID
	}

	if c.content == nil {
		return false, ErrNilChecker
	}

	termIDs, err := c.content.TermIDsForItem(ctx, itemID)
	if err != nil {
		return false, err
	}

	if len(termIDs) == 0 {
		return true, nil
	}

	for _, termID := range termIDs {
		allowed, err := c.TermAllowed(ctx, termID, p)
		if err != nil {
			return false, err
		}

		if !allowed {
			return false, nil
		}
	}

	return true, nil
}

// termExplicitlyAllowed checks the term's own permission records only
func (c *Checker) termExplicitlyAllowed(ctx context.Context, termID int64, p Principal) (bool, error) {
	userIDs, err := c.permissions.AllowedUserIDs(ctx, termID)
	if err != nil {
		return false, err
	}

	for _, id := range userIDs {
		if id == p.UserID {
			return true, nil
		}
	}

	roleIDs, err := c.permissions.AllowedRoleIDs(ctx, termID)
	if err != nil {
		return false, err
	}

	for _, roleID := range roleIDs {
		for _, pid := range p.RoleIDs {
			if roleID == pid {
				return true, nil
			}
		}
	}

	return false, nil
}

// ancestorAllowed walks the term's ancestors looking for an explicit allow
// NOTE: a malformed hierarchy never widens access; on a hierarchy error
// the inheritance lookup is abandoned and the decision stays deny
func (c *Checker) ancestorAllowed(ctx context.Context, termID int64, p Principal) (bool, error) {
	ancestors, err := c.terms.Ancestors(ctx, termID)
	if err != nil {
		if err == term.ErrCircuitedHierarchy || err == term.ErrHierarchyTooDeep {
			c.Logger().Warn(
				"term hierarchy is malformed, skipping inheritance",
				zap.Int64("term_id", termID),
				zap.Error(err),
			)

			return false, nil
		}

		return false, err
	}

	for _, ancestorID := range ancestors {
		allowed, err := c.termExplicitlyAllowed(ctx, ancestorID, p)
		if err != nil {
			return false, err
		}

		if allowed {
			return true, nil
		}
	}

	return false, nil
}
