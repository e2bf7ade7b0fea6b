package grant

import (
	"context"

	"github.com/gocraft/dbr/v2"
	"github.com/pkg/errors"
)

// Store describes a storage contract for the denormalized grant table
type Store interface {
	CreateRecord(ctx context.Context, r Record) error
	DeleteByItem(ctx context.Context, itemID int64) error
	DeleteAll(ctx context.Context) error
	FetchByItem(ctx context.Context, itemID int64) ([]Record, error)
	FetchAll(ctx context.Context) ([]Record, error)
	MaxGid(ctx context.Context) (uint32, error)
}

// MySQLStore is the default grant store implementation
type MySQLStore struct {
	db *dbr.Connection
}

// NewMySQLStore returns a grant store with mysql used as a backend
func NewMySQLStore(db *dbr.Connection) (Store, error) {
	if db == nil {
		return nil, ErrNilDatabase
	}

	return &MySQLStore{db}, nil
}

// CreateRecord creates a new grant record
func (s *MySQLStore) CreateRecord(ctx context.Context, r Record) error {
	if err := r.Validate(); err != nil {
		return err
	}

	_, err := s.db.NewSession(nil).
		InsertInto("node_access_grants").
		Columns("content_item_id", "gid", "grant_view", "grant_update", "grant_delete", "language", "realm", "fallback").
		Values(r.ItemID, r.Gid, r.View, r.Update, r.Delete, r.Language, r.Realm, r.Fallback).
		ExecContext(ctx)

	return errors.Wrap(err, "failed to create grant record")
}

// DeleteByItem deletes this realm's grant records for a content item
func (s *MySQLStore) DeleteByItem(ctx context.Context, itemID int64) error {
	if itemID == 0 {
		return ErrZeroItemID
	}

	_, err := s.db.NewSession(nil).
		DeleteFrom("node_access_grants").
		Where("content_item_id = ? AND realm = ?", itemID, Realm).
		ExecContext(ctx)

	return errors.Wrap(err, "failed to delete grant records")
}

// DeleteAll wipes this realm's grant records, used by the full reindex
func (s *MySQLStore) DeleteAll(ctx context.Context) error {
	_, err := s.db.NewSession(nil).
		DeleteFrom("node_access_grants").
		Where("realm = ?", Realm).
		ExecContext(ctx)

	return errors.Wrap(err, "failed to wipe grant records")
}

// FetchByItem retrieves this realm's grant records for a content item
func (s *MySQLStore) FetchByItem(ctx context.Context, itemID int64) (rs []Record, err error) {
	_, err = s.db.NewSession(nil).
		SelectBySql("SELECT * FROM node_access_grants WHERE content_item_id = ? AND realm = ?", itemID, Realm).
		LoadContext(ctx, &rs)

	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch grant records")
	}

	return rs, nil
}

// FetchAll retrieves all of this realm's grant records
func (s *MySQLStore) FetchAll(ctx context.Context) (rs []Record, err error) {
	_, err = s.db.NewSession(nil).
		SelectBySql("SELECT * FROM node_access_grants WHERE realm = ?", Realm).
		LoadContext(ctx, &rs)

	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch grant records")
	}

	return rs, nil
}

// MaxGid returns the highest gid present in this realm, zero when empty
func (s *MySQLStore) MaxGid(ctx context.Context) (uint32, error) {
	var gid uint32

	err := s.db.NewSession(nil).
		SelectBySql("SELECT COALESCE(MAX(gid), 0) FROM node_access_grants WHERE realm = ?", Realm).
		LoadOneContext(ctx, &gid)

	if err != nil {
		return 0, errors.Wrap(err, "failed to obtain max gid")
	}

	return gid, nil
}
