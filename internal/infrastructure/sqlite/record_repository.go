package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"guidd/internal/guid/domain"
)

// recordColumns is the list of columns to select for record queries.
const recordColumns = `id, user, expire, created_at, updated_at`

// recordRepository implements domain.RecordRepository using SQLite.
type recordRepository struct {
	db *sql.DB
}

func newRecordRepository(db *sql.DB) *recordRepository {
	return &recordRepository{db: db}
}

// Ensure recordRepository implements domain.RecordRepository.
var _ domain.RecordRepository = (*recordRepository)(nil)

// scanRecord scans a row into a RecordModel.
func scanRecord(scanner interface{ Scan(...any) error }) (*RecordModel, error) {
	var model RecordModel
	err := scanner.Scan(&model.ID, &model.User, &model.Expire, &model.CreatedAt, &model.UpdatedAt)
	return &model, err
}

// Insert persists a new record. Any failure, including a primary key
// violation from a duplicate identifier, is a persistence error: the
// store is the only place identifier uniqueness is enforced.
func (r *recordRepository) Insert(ctx context.Context, rec *domain.Record) error {
	now := time.Now().Unix()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO guid_records (id, user, expire, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.User, rec.Expire, now, now,
	)
	if err != nil {
		return &domain.PersistenceError{Op: "insert", Err: err}
	}
	return nil
}

// FindLive retrieves the record under id if it is still live at the
// given instant. The liveness predicate lives in the query: a record
// past its expire is indistinguishable from a missing one.
func (r *recordRepository) FindLive(ctx context.Context, id string, now time.Time) (*domain.Record, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM guid_records WHERE id = ? AND expire > ?`,
		id, now.Unix(),
	)
	model, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, &domain.PersistenceError{Op: "select", Err: err}
	}
	return model.toDomain(), nil
}

// Update merges the supplied fields into the existing live record. The
// SET list is built from whichever fields the caller supplied, the way
// filtered queries assemble their WHERE clauses. Matching no live row
// is reported as a persistence error.
func (r *recordRepository) Update(ctx context.Context, id string, user *string, expire *int64, now time.Time) error {
	sets := []string{"updated_at = ?"}
	args := []any{now.Unix()}

	if user != nil {
		sets = append(sets, "user = ?")
		args = append(args, *user)
	}
	if expire != nil {
		sets = append(sets, "expire = ?")
		args = append(args, *expire)
	}

	args = append(args, id, now.Unix())
	result, err := r.db.ExecContext(ctx,
		`UPDATE guid_records SET `+strings.Join(sets, ", ")+` WHERE id = ? AND expire > ?`,
		args...,
	)
	if err != nil {
		return &domain.PersistenceError{Op: "update", Err: err}
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return &domain.PersistenceError{Op: "update", Err: err}
	}
	if rowsAffected == 0 {
		return &domain.PersistenceError{Op: "update", Err: fmt.Errorf("no live record %s", id)}
	}
	return nil
}

// Delete permanently removes the live record. Zero rows affected means
// there was nothing live to delete: an absent record and an expired one
// answer the same way.
func (r *recordRepository) Delete(ctx context.Context, id string, now time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM guid_records WHERE id = ? AND expire > ?`,
		id, now.Unix(),
	)
	if err != nil {
		return &domain.PersistenceError{Op: "delete", Err: err}
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return &domain.PersistenceError{Op: "delete", Err: err}
	}
	if rowsAffected == 0 {
		return &domain.NotFoundError{ID: id}
	}
	return nil
}
