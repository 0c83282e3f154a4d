package domain

import (
	"strconv"
	"time"
)

// Intent distinguishes create from update validation: user is required
// when creating a record but optional when patching one.
type Intent int

const (
	IntentCreate Intent = iota
	IntentUpdate
)

// Validation messages, kept stable because clients match on them.
const (
	msgEmptyInput    = "Input data should not be empty."
	msgUserRequired  = "User field is required."
	msgUserNotString = "User must be a string."
	msgExpireDigits  = "Expire must be a string or number of digits."
	msgExpireFuture  = "Expire must be a future Unix timestamp."
)

// Validate checks a mutation payload and returns a field→message map.
// An empty map means the payload is valid. The function is pure: no
// I/O, no side effects.
func Validate(p Payload, intent Intent, now time.Time) map[string]string {
	errs := make(map[string]string)

	if p.Empty() {
		errs["invalid"] = msgEmptyInput
		return errs
	}

	switch {
	case p.User.Set && !p.User.Valid:
		errs["user"] = msgUserNotString
	case !p.User.Set && intent == IntentCreate:
		errs["user"] = msgUserRequired
	}

	if p.Expire.Set {
		if !isDigits(p.Expire.Value) {
			errs["expire"] = msgExpireDigits
		} else if ts, err := strconv.ParseInt(p.Expire.Value, 10, 64); err != nil || ts <= now.Unix() {
			errs["expire"] = msgExpireFuture
		}
	}

	return errs
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
