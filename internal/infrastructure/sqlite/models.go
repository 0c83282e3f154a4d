package sqlite

import "guidd/internal/guid/domain"

// RecordModel represents the database row for the guid_records table.
// Fields map directly to SQL columns with Unix timestamps for time
// values.
type RecordModel struct {
	ID        string
	User      string
	Expire    int64
	CreatedAt int64
	UpdatedAt int64
}

// toDomain converts a database row to the domain record. The
// bookkeeping timestamps stay behind.
func (m *RecordModel) toDomain() *domain.Record {
	return &domain.Record{
		ID:     m.ID,
		User:   m.User,
		Expire: m.Expire,
	}
}
