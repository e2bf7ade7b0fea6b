package access

import (
	"errors"
)

// errors
var (
	ErrNilChecker           = errors.New("access checker is nil")
	ErrNilPermissionManager = errors.New("permission manager is nil")
	ErrNilTermManager       = errors.New("term manager is nil")
	ErrZeroTermID           = errors.New("term id is zero")
	ErrZeroItemID           = errors.New("content item id is zero")
)

// Operation is what a principal attempts to do with a content item
type Operation uint8

// operations
const (
	OpView Operation = 1 << (iota)
	OpUpdate
	OpDelete
)

func (op Operation) String() string {
	switch op {
	case OpView:
		return "view"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return "unrecognized operation"
	}
}

// Valid checks whether the operation is one of the declared constants
func (op Operation) Valid() bool {
	return op == OpView || op == OpUpdate || op == OpDelete
}

// CapBypassAccess is the host capability that short-circuits every
// decision to allow, including unpublished content
const CapBypassAccess = "bypass term access"

// Principal is an already-authenticated subject of an access decision:
// a user with a set of role memberships and host-granted capabilities
// NOTE: identity is host-owned; this module never authenticates anyone
type Principal struct {
	UserID       int64           `json:"user_id"`
	RoleIDs      []int64         `json:"role_ids"`
	Capabilities map[string]bool `json:"capabilities"`
}

// HasCapability reports whether the host granted a capability
func (p Principal) HasCapability(name string) bool {
	return p.Capabilities[name]
}

// CanBypass reports whether the principal bypasses term access entirely
func (p Principal) CanBypass() bool {
	return p.HasCapability(CapBypassAccess)
}

// Observer receives denial notifications for observability purposes;
// implementations must be cheap and must not influence the decision
type Observer interface {
	AccessDenied(itemID int64)
}
