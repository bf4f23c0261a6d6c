// Package pricing implements quotation amount calculations: per-line
// discount and tax resolution against header defaults, and document totals.
package pricing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Rate is an optional percentage. A line either inherits the header rate or
// carries an explicit override; an override of zero is a valid value, not
// "empty". The zero Rate inherits.
type Rate struct {
	value float64
	set   bool
}

// Override returns a Rate carrying an explicit value.
func Override(v float64) Rate {
	return Rate{value: v, set: true}
}

// Inherit returns a Rate deferring to the header value.
func Inherit() Rate {
	return Rate{}
}

// IsSet reports whether the rate carries an explicit override.
func (r Rate) IsSet() bool {
	return r.set
}

// Resolve returns the override when set, the header rate otherwise.
func (r Rate) Resolve(headerRate float64) float64 {
	if r.set {
		return r.value
	}
	return headerRate
}

// UnmarshalJSON accepts a JSON number, a numeric string, or null/"" meaning
// inherit. Any other value is an error; malformed input must surface as a
// validation failure rather than silently becoming zero.
func (r *Rate) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = Inherit()
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*r = Inherit()
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("pricing: invalid rate %q", s)
		}
		*r = Override(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("pricing: invalid rate %s", data)
	}
	*r = Override(v)
	return nil
}

// MarshalJSON emits the override value, or null when inheriting.
func (r Rate) MarshalJSON() ([]byte, error) {
	if !r.set {
		return []byte("null"), nil
	}
	return json.Marshal(r.value)
}
