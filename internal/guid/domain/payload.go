package domain

import "encoding/json"

// OptionalString is a request field that may be absent, present as a
// JSON string, or present as some other JSON value. The distinction
// matters to the validator: an absent field and a mistyped field
// produce different errors.
type OptionalString struct {
	Set   bool
	Valid bool
	Value string
}

// UnmarshalJSON records presence and whether the value decoded as a
// string. JSON null counts as absent.
func (o *OptionalString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	o.Set = true
	if err := json.Unmarshal(b, &o.Value); err == nil {
		o.Valid = true
	}
	return nil
}

// OptionalScalar is a request field that accepts a JSON string or a
// JSON number and retains its decimal text. Anything that is not all
// decimal digits is rejected later by the validator, so a fractional
// number like 1.5 fails the same way "abc" does.
type OptionalScalar struct {
	Set   bool
	Value string
}

// UnmarshalJSON keeps the field's textual form. JSON null counts as
// absent.
func (o *OptionalScalar) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	o.Set = true
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		o.Value = s
		return nil
	}
	o.Value = string(b)
	return nil
}

// Payload carries the optional fields of a create or update request.
// Fields left out of the request body stay unset and are not merged
// into the stored record.
type Payload struct {
	User   OptionalString `json:"user"`
	Expire OptionalScalar `json:"expire"`
}

// Empty reports whether the payload carries no fields at all.
func (p Payload) Empty() bool {
	return !p.User.Set && !p.Expire.Set
}
