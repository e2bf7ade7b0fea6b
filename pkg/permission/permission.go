package permission

import (
	"errors"
	"fmt"
)

// errors
var (
	ErrNilDatabase          = errors.New("database is nil")
	ErrNilPermissionStore   = errors.New("permission store is nil")
	ErrNilPermissionManager = errors.New("permission manager is nil")
	ErrNilPrincipalResolver = errors.New("principal resolver is nil")
	ErrZeroTermID           = errors.New("term id is zero")
	ErrZeroPrincipalID      = errors.New("principal id is zero")
	ErrInvalidKind          = errors.New("invalid principal kind")
	ErrDuplicateRecord      = errors.New("duplicate permission record")
	ErrRecordNotFound       = errors.New("permission record not found")
	ErrUnresolvedPrincipal  = errors.New("principal reference cannot be resolved")
)

// Kind designates what a permission record's principal is, a user or a role
type Kind uint8

// principal kinds
const (
	KUser Kind = 1 << (iota)
	KRole
)

func (k Kind) String() string {
	switch k {
	case KUser:
		return "user"
	case KRole:
		return "role"
	default:
		return "unrecognized principal kind"
	}
}

// Valid checks whether the kind is one of the declared constants
func (k Kind) Valid() bool {
	return k == KUser || k == KRole
}

// Record is a single term permission entry; its mere presence means the
// principal is allowed on the term, there are no deny records
type Record struct {
	TermID      int64 `db:"term_id" json:"term_id"`
	Kind        Kind  `db:"principal_kind" json:"principal_kind"`
	PrincipalID int64 `db:"principal_id" json:"principal_id"`
}

// NewRecord initializes a new permission record
func NewRecord(termID int64, kind Kind, principalID int64) (Record, error) {
	r := Record{
		TermID:      termID,
		Kind:        kind,
		PrincipalID: principalID,
	}

	return r, r.Validate()
}

// Validate performs a self-check
func (r Record) Validate() error {
	if r.TermID == 0 {
		return ErrZeroTermID
	}

	if !r.Kind.Valid() {
		return ErrInvalidKind
	}

	if r.PrincipalID == 0 {
		return ErrZeroPrincipalID
	}

	return nil
}

// StringID returns short object info
func (r Record) StringID() string {
	return fmt.Sprintf("permission(%d:%s:%d)", r.TermID, r.Kind, r.PrincipalID)
}

// ChangeSet describes what a full-replace save actually changed;
// an empty changeset tells the caller to skip invalidation entirely
type ChangeSet struct {
	Added   []Record `json:"added"`
	Deleted []Record `json:"deleted"`
}

// IsEmpty reports whether the save was a no-op
func (cs ChangeSet) IsEmpty() bool {
	return len(cs.Added) == 0 && len(cs.Deleted) == 0
}

// PrincipalResolver is the host identity contract used to validate
// submitted principal references before they are persisted
type PrincipalResolver interface {
	UserExists(userID int64) bool
	RoleExists(roleID int64) bool
}
