package term

import (
	"errors"
	"fmt"
	"strings"

	"github.com/asaskevich/govalidator"
	pkgerrors "github.com/pkg/errors"
)

// errors
var (
	ErrNilDatabase        = errors.New("database is nil")
	ErrNilTermStore       = errors.New("term store is nil")
	ErrNilTermManager     = errors.New("term manager is nil")
	ErrZeroID             = errors.New("term id is zero")
	ErrEmptyTermName      = errors.New("empty term name")
	ErrTermNotFound       = errors.New("term not found")
	ErrDuplicateTerm      = errors.New("duplicate term")
	ErrDuplicateRelation  = errors.New("duplicate parent relation")
	ErrCircuitedHierarchy = errors.New("circuited term hierarchy")
	ErrHierarchyTooDeep   = errors.New("term hierarchy exceeds depth limit")
)

// Term is a single taxonomy classification node; the host system owns
// term identity, this module only reads and indexes it
// NOTE: a term may have multiple parents (general taxonomy), so the
// hierarchy is kept in a separate relation table rather than a parent_id
type Term struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name" valid:"required"`
}

// NewTerm initializes a new term value
func NewTerm(id int64, name string) (Term, error) {
	t := Term{
		ID:   id,
		Name: strings.TrimSpace(name),
	}

	return t, t.Validate()
}

// Validate performs a self-check
func (t Term) Validate() error {
	if t.ID == 0 {
		return ErrZeroID
	}

	if t.Name == "" {
		return ErrEmptyTermName
	}

	if ok, err := govalidator.ValidateStruct(t); !ok || err != nil {
		return pkgerrors.Wrap(err, "term validation failed")
	}

	return nil
}

// StringID returns short object info
func (t Term) StringID() string {
	return fmt.Sprintf("term(%d:%s)", t.ID, t.Name)
}
