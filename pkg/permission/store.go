package permission

import (
	"context"

	"github.com/go-sql-driver/mysql"
	"github.com/gocraft/dbr/v2"
	"github.com/pkg/errors"
)

// Store describes a storage contract for term permission records
type Store interface {
	CreateRecord(ctx context.Context, r Record) error
	DeleteRecord(ctx context.Context, r Record) error
	DeleteByPrincipal(ctx context.Context, kind Kind, principalID int64) error
	FetchByTerm(ctx context.Context, termID int64) ([]Record, error)
	FetchUserIDs(ctx context.Context, termID int64) ([]int64, error)
	FetchRoleIDs(ctx context.Context, termID int64) ([]int64, error)
	FetchRestrictedTermIDs(ctx context.Context) ([]int64, error)
	HasAny(ctx context.Context, termID int64) (bool, error)
}

// MySQLStore is the default permission store implementation
type MySQLStore struct {
	db *dbr.Connection
}

// NewMySQLStore returns a permission store with mysql used as a backend
func NewMySQLStore(db *dbr.Connection) (Store, error) {
	if db == nil {
		return nil, ErrNilDatabase
	}

	return &MySQLStore{db}, nil
}

//? BEGIN ->>>----------------------------------------------------------------
//? unexported utility functions

func (s *MySQLStore) getIDs(ctx context.Context, q string, args ...interface{}) (ids []int64, err error) {
	_, err = s.db.NewSession(nil).
		SelectBySql(q, args...).
		LoadContext(ctx, &ids)

	if err != nil {
		return nil, err
	}

	return ids, nil
}

//? unexported utility functions
//? END ---<<<----------------------------------------------------------------

// CreateRecord creates a new permission record
func (s *MySQLStore) CreateRecord(ctx context.Context, r Record) error {
	if err := r.Validate(); err != nil {
		return err
	}

	_, err := s.db.NewSession(nil).
		InsertInto("term_permissions").
		Columns("term_id", "principal_kind", "principal_id").
		Values(r.TermID, r.Kind, r.PrincipalID).
		ExecContext(ctx)

	if err != nil {
		// the (term_id, principal_kind, principal_id) triple is a unique key
		if myerr, ok := err.(*mysql.MySQLError); ok && myerr.Number == 1062 {
			return ErrDuplicateRecord
		}

		return errors.Wrap(err, "failed to create permission record")
	}

	return nil
}

// DeleteRecord deletes a single permission record
func (s *MySQLStore) DeleteRecord(ctx context.Context, r Record) error {
	if err := r.Validate(); err != nil {
		return err
	}

	res, err := s.db.NewSession(nil).
		DeleteFrom("term_permissions").
		Where("term_id = ? AND principal_kind = ? AND principal_id = ?", r.TermID, r.Kind, r.PrincipalID).
		ExecContext(ctx)

	if err != nil {
		return errors.Wrap(err, "failed to delete permission record")
	}

	ra, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if ra == 0 {
		return ErrRecordNotFound
	}

	return nil
}

// DeleteByPrincipal deletes every record held by a principal,
// used when the host cancels a user account
func (s *MySQLStore) DeleteByPrincipal(ctx context.Context, kind Kind, principalID int64) error {
	if !kind.Valid() {
		return ErrInvalidKind
	}

	if principalID == 0 {
		return ErrZeroPrincipalID
	}

	_, err := s.db.NewSession(nil).
		DeleteFrom("term_permissions").
		Where("principal_kind = ? AND principal_id = ?", kind, principalID).
		ExecContext(ctx)

	return errors.Wrap(err, "failed to delete permission records by principal")
}

// FetchByTerm retrieves every permission record attached to a term
func (s *MySQLStore) FetchByTerm(ctx context.Context, termID int64) (rs []Record, err error) {
	_, err = s.db.NewSession(nil).
		SelectBySql("SELECT * FROM term_permissions WHERE term_id = ?", termID).
		LoadContext(ctx, &rs)

	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch permission records")
	}

	return rs, nil
}

// FetchUserIDs returns the ids of users explicitly allowed on a term
func (s *MySQLStore) FetchUserIDs(ctx context.Context, termID int64) ([]int64, error) {
	return s.getIDs(
		ctx,
		"SELECT principal_id FROM term_permissions WHERE term_id = ? AND principal_kind = ?",
		termID,
		KUser,
	)
}

// FetchRoleIDs returns the ids of roles explicitly allowed on a term
func (s *MySQLStore) FetchRoleIDs(ctx context.Context, termID int64) ([]int64, error) {
	return s.getIDs(
		ctx,
		"SELECT principal_id FROM term_permissions WHERE term_id = ? AND principal_kind = ?",
		termID,
		KRole,
	)
}

// FetchRestrictedTermIDs returns the ids of every term that has at
// least one permission record, i.e. every restricted term
func (s *MySQLStore) FetchRestrictedTermIDs(ctx context.Context) ([]int64, error) {
	return s.getIDs(ctx, "SELECT DISTINCT term_id FROM term_permissions")
}

// HasAny reports whether a term has any permission records at all;
// a term without records is unrestricted
func (s *MySQLStore) HasAny(ctx context.Context, termID int64) (bool, error) {
	var n int64

	err := s.db.NewSession(nil).
		SelectBySql("SELECT COUNT(*) FROM term_permissions WHERE term_id = ?", termID).
		LoadOneContext(ctx, &n)

	if err != nil {
		return false, errors.Wrap(err, "failed to count permission records")
	}

	return n > 0, nil
}
