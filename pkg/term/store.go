package term

import (
	"context"

	"github.com/go-sql-driver/mysql"
	"github.com/gocraft/dbr/v2"
	"github.com/pkg/errors"
)

// Store describes a storage contract for terms and their parent relations
type Store interface {
	UpsertTerm(ctx context.Context, t Term) (Term, error)
	CreateRelation(ctx context.Context, termID, parentID int64) error
	DeleteRelation(ctx context.Context, termID, parentID int64) error
	FetchTermByID(ctx context.Context, termID int64) (Term, error)
	FetchTermByName(ctx context.Context, name string) (Term, error)
	FetchParentIDs(ctx context.Context, termID int64) ([]int64, error)
	FetchAllTerms(ctx context.Context) ([]Term, error)
}

// MySQLStore is the default term store implementation
type MySQLStore struct {
	db *dbr.Connection
}

// NewMySQLStore returns a term store with mysql used as a backend
func NewMySQLStore(db *dbr.Connection) (Store, error) {
	if db == nil {
		return nil, ErrNilDatabase
	}

	return &MySQLStore{db}, nil
}

//? BEGIN ->>>----------------------------------------------------------------
//? unexported utility functions

func (s *MySQLStore) get(ctx context.Context, q string, args ...interface{}) (t Term, err error) {
	err = s.db.NewSession(nil).
		SelectBySql(q, args...).
		LoadOneContext(ctx, &t)

	if err != nil {
		if err == dbr.ErrNotFound {
			return t, ErrTermNotFound
		}

		return t, err
	}

	return t, nil
}

//? unexported utility functions
//? END ---<<<----------------------------------------------------------------

// UpsertTerm stores a term, updating the name if the id is already known
func (s *MySQLStore) UpsertTerm(ctx context.Context, t Term) (Term, error) {
	if err := t.Validate(); err != nil {
		return t, err
	}

	_, err := s.db.NewSession(nil).
		InsertBySql(
			"INSERT INTO term (id, name) VALUES (?, ?) ON DUPLICATE KEY UPDATE name = ?",
			t.ID,
			t.Name,
			t.Name,
		).
		ExecContext(ctx)

	if err != nil {
		return t, errors.Wrap(err, "failed to upsert term")
	}

	return t, nil
}

// CreateRelation attaches a parent to a term
func (s *MySQLStore) CreateRelation(ctx context.Context, termID, parentID int64) error {
	if termID == 0 || parentID == 0 {
		return ErrZeroID
	}

	_, err := s.db.NewSession(nil).
		InsertInto("term_hierarchy").
		Columns("term_id", "parent_id").
		Values(termID, parentID).
		ExecContext(ctx)

	if err != nil {
		if myerr, ok := err.(*mysql.MySQLError); ok && myerr.Number == 1062 {
			return ErrDuplicateRelation
		}

		return errors.Wrap(err, "failed to create term relation")
	}

	return nil
}

// DeleteRelation detaches a parent from a term
func (s *MySQLStore) DeleteRelation(ctx context.Context, termID, parentID int64) error {
	if termID == 0 || parentID == 0 {
		return ErrZeroID
	}

	_, err := s.db.NewSession(nil).
		DeleteFrom("term_hierarchy").
		Where("term_id = ? AND parent_id = ?", termID, parentID).
		ExecContext(ctx)

	return errors.Wrap(err, "failed to delete term relation")
}

// FetchTermByID retrieves a single term by its id
func (s *MySQLStore) FetchTermByID(ctx context.Context, termID int64) (Term, error) {
	return s.get(ctx, "SELECT * FROM term WHERE id = ? LIMIT 1", termID)
}

// FetchTermByName retrieves a single term by a direct name match
func (s *MySQLStore) FetchTermByName(ctx context.Context, name string) (Term, error) {
	return s.get(ctx, "SELECT * FROM term WHERE name = ? LIMIT 1", name)
}

// FetchParentIDs returns the ids of the term's direct parents
func (s *MySQLStore) FetchParentIDs(ctx context.Context, termID int64) (ids []int64, err error) {
	_, err = s.db.NewSession(nil).
		SelectBySql("SELECT parent_id FROM term_hierarchy WHERE term_id = ?", termID).
		LoadContext(ctx, &ids)

	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch term parents")
	}

	return ids, nil
}

// FetchAllTerms retrieves all known terms
func (s *MySQLStore) FetchAllTerms(ctx context.Context) (ts []Term, err error) {
	_, err = s.db.NewSession(nil).
		SelectBySql("SELECT * FROM term").
		LoadContext(ctx, &ts)

	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch terms")
	}

	return ts, nil
}
