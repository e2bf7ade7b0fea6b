// Package host carries thin adapters that stand in for the host system's
// collaborators when the module runs standalone: content associations are
// read straight from the host tables, invalidation signals are logged and
// the principal comes from configuration.
package host

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/termacl/termacl/pkg/access"
)

// errors
var (
	ErrNilDatabase  = errors.New("database is nil")
	ErrItemNotFound = errors.New("content item not found")
)

// StaticIdentity hands out one fixed principal, standalone-mode only
type StaticIdentity struct {
	Principal access.Principal
}

// CurrentPrincipal returns the configured principal
func (s StaticIdentity) CurrentPrincipal(ctx context.Context) (access.Principal, error) {
	return s.Principal, nil
}

// LogInvalidator records invalidation signals in the log; an embedding
// host replaces this with its real cache/search-index invalidation
type LogInvalidator struct {
	Logger *zap.Logger
}

// Invalidate logs the tag
func (li LogInvalidator) Invalidate(tag string) {
	if li.Logger != nil {
		li.Logger.Debug("invalidation signal", zap.String("tag", tag))
	}
}

// LogObserver records denial events in the log
type LogObserver struct {
	Logger *zap.Logger
}

// AccessDenied logs the denied item
func (lo LogObserver) AccessDenied(itemID int64) {
	if lo.Logger != nil {
		lo.Logger.Info("access denied", zap.Int64("item_id", itemID))
	}
}
