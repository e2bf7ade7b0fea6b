package core

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/termacl/termacl/pkg/access"
	"github.com/termacl/termacl/pkg/grant"
	"github.com/termacl/termacl/pkg/permission"
	"github.com/termacl/termacl/pkg/term"
)

// errors
var (
	ErrNilCore        = errors.New("termacl core is nil")
	ErrNilIdentity    = errors.New("host identity is nil")
	ErrNilContent     = errors.New("host content resolver is nil")
	ErrNilInvalidator = errors.New("host invalidator is nil")
)

// Identity is the host session contract; the principal is already
// authenticated, this module only consumes it
type Identity interface {
	CurrentPrincipal(ctx context.Context) (access.Principal, error)
}

// ContentResolver is the host content contract: term associations across
// all taxonomy reference fields, publication state, item enumeration for
// the full reindex, and the reverse term-to-items lookup used to scope
// recomputation after a permission change
type ContentResolver interface {
	TermIDsForItem(ctx context.Context, itemID int64) ([]int64, error)
	ItemIDsByTerm(ctx context.Context, termID int64) ([]int64, error)
	IsPublished(ctx context.Context, itemID int64) (bool, error)
	AllItemIDs(ctx context.Context) ([]int64, error)
}

// Invalidator receives cache/search-index invalidation signals whenever a
// mutation could have changed who may see what
type Invalidator interface {
	Invalidate(tag string)
}

// Core wires the module's managers together with the host collaborators
// and exposes the hook-shaped entry points the host calls into
type Core struct {
	permissions *permission.Manager
	terms       *term.Manager
	checker     *access.Checker
	grants      *grant.Maintainer
	identity    Identity
	content     ContentResolver
	invalidator Invalidator
	observer    access.Observer
	logger      *zap.Logger
}

// New assembles a core; identity, content and invalidator are host-side
// collaborators, observer may be nil when denial observability is unwanted
func New(
	pm *permission.Manager,
	tm *term.Manager,
	checker *access.Checker,
	grants *grant.Maintainer,
	identity Identity,
	content ContentResolver,
	invalidator Invalidator,
	observer access.Observer,
) (*Core, error) {
	if pm == nil {
		return nil, permission.ErrNilPermissionManager
	}

	if tm == nil {
		return nil, term.ErrNilTermManager
	}

	if checker == nil {
		return nil, access.ErrNilChecker
	}

	if grants == nil {
		return nil, grant.ErrNilGrantMaintainer
	}

	if identity == nil {
		return nil, ErrNilIdentity
	}

	if content == nil {
		return nil, ErrNilContent
	}

	if invalidator == nil {
		return nil, ErrNilInvalidator
	}

	c := &Core{
		permissions: pm,
		terms:       tm,
		checker:     checker,
		grants:      grants,
		identity:    identity,
		content:     content,
		invalidator: invalidator,
		observer:    observer,
	}

	return c, nil
}

// SetLogger assigns a logger for the core
func (c *Core) SetLogger(logger *zap.Logger) error {
	if logger != nil {
		logger = logger.Named("[termacl]")
	}

	c.logger = logger

	return nil
}

// Logger returns primary logger if is set, otherwise initializing and returning
func (c *Core) Logger() *zap.Logger {
	if c.logger == nil {
		l, err := zap.NewDevelopment()
		if err != nil {
			panic(fmt.Errorf("failed to initialize core logger: %s", err))
		}

		c.logger = l
	}

	return c.logger
}

// PermissionManager returns the permission manager
func (c *Core) PermissionManager() *permission.Manager {
	if c.permissions == nil {
		panic(permission.ErrNilPermissionManager)
	}

	return c.permissions
}

// TermManager returns the term manager
func (c *Core) TermManager() *term.Manager {
	if c.terms == nil {
		panic(term.ErrNilTermManager)
	}

	return c.terms
}

// Checker returns the access decision engine
func (c *Core) Checker() *access.Checker {
	if c.checker == nil {
		panic(access.ErrNilChecker)
	}

	return c.checker
}

// GrantMaintainer returns the grant index maintainer
func (c *Core) GrantMaintainer() *grant.Maintainer {
	if c.grants == nil {
		panic(grant.ErrNilGrantMaintainer)
	}

	return c.grants
}

// Identity returns the host identity collaborator
func (c *Core) Identity() Identity {
	if c.identity == nil {
		panic(ErrNilIdentity)
	}

	return c.identity
}
