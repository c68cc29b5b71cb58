// Package optional holds a float that may be absent, for values that only
// exist when something was configured (a stop, a target) or when a ratio
// has a non-zero denominator.
package optional

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
)

// Float is a float64 that may be unset. The zero value is unset.
// Field names follow sql.NullFloat64.
type Float struct {
	Float64 float64
	Valid   bool
}

// Some returns a set Float.
func Some(v float64) Float {
	return Float{Float64: v, Valid: true}
}

// Get returns the value and whether it is set.
func (f Float) Get() (float64, bool) {
	return f.Float64, f.Valid
}

// Or returns the value when set, otherwise def.
func (f Float) Or(def float64) float64 {
	if !f.Valid {
		return def
	}
	return f.Float64
}

func (f Float) String() string {
	if !f.Valid {
		return "-"
	}
	return strconv.FormatFloat(f.Float64, 'f', -1, 64)
}

// MarshalJSON encodes an unset value as null.
func (f Float) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Float64)
}

func (f *Float) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = Float{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Some(v)
	return nil
}

// Scan implements sql.Scanner; NULL scans to unset.
func (f *Float) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*f = Float{}
	case float64:
		*f = Some(v)
	case int64:
		*f = Some(float64(v))
	case []byte:
		x, err := strconv.ParseFloat(string(v), 64)
		if err != nil {
			return err
		}
		*f = Some(x)
	default:
		return fmt.Errorf("optional: cannot scan %T into Float", src)
	}
	return nil
}

// Value implements driver.Valuer; unset is stored as NULL.
func (f Float) Value() (driver.Value, error) {
	if !f.Valid {
		return nil, nil
	}
	return f.Float64, nil
}
