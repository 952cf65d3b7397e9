// Package types holds the shared data structures used across the
// application. Keeping them in one place prevents import cycles:
// handlers, the registration service and every storage backend import
// types without depending on each other.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ID is the opaque identifier a storage backend assigns to a record.
//
// Relational and file backends hand out auto-incremented integers, the
// document store hands out generated object ids. Both are carried as a
// string so the rest of the application never depends on the shape.
type ID string

// IDFromInt converts an auto-incremented integer key into an ID.
func IDFromInt(n int64) ID {
	return ID(strconv.FormatInt(n, 10))
}

// Int64 returns the numeric value of the ID and whether it is numeric.
func (id ID) Int64() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	return n, err == nil
}

func (id ID) String() string { return string(id) }

// MarshalJSON renders numeric ids as JSON numbers ({"id": 1}) and
// everything else as a JSON string ({"id": "65f1..."}).
func (id ID) MarshalJSON() ([]byte, error) {
	if n, ok := id.Int64(); ok && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts both the number and the string form.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("types.ID: %w", err)
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("types.ID: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Student is one accepted registration.
//
// ID and Timestamp are assigned by the storage backend at insert time
// and are never settable by the client. AdmissionNumber is always stored
// upper-cased and is unique across all records.
type Student struct {
	ID              ID        `json:"id"`
	Name            string    `json:"name"`
	Phone           string    `json:"phone"`
	AdmissionNumber string    `json:"admission_number"`
	Timestamp       time.Time `json:"timestamp"`
}
