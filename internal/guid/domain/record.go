// Package domain defines the GUID record entity, its validation rules,
// the error taxonomy shared by every layer, and the repository contract
// the durable store must satisfy.
package domain

import "time"

// Record is the identity+metadata tuple managed by the service.
// ID is a 32-character uppercase hexadecimal string and never changes
// once assigned. Expire is a Unix timestamp in seconds.
type Record struct {
	ID     string `json:"id"`
	User   string `json:"user"`
	Expire int64  `json:"expire"`
}

// LiveAt reports whether the record is still live at the given instant.
// A record whose expire timestamp has passed is indistinguishable from
// one that never existed.
func (r *Record) LiveAt(now time.Time) bool {
	return now.Unix() < r.Expire
}

// Remaining returns the record's remaining lifetime at the given
// instant. The result is negative or zero for dead records.
func (r *Record) Remaining(now time.Time) time.Duration {
	return time.Duration(r.Expire-now.Unix()) * time.Second
}
