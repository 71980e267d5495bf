package store

import (
	"bytes"
	"encoding/json"

	"persondiscovery/internal/services"
)

// Resolution is a checked evidence outcome: either the corrected person name
// or an explicit rejection. An unchecked hypothesis has no Resolution at all.
type Resolution struct {
	Name     string
	Rejected bool
}

// Corrected builds an accepted resolution.
func Corrected(name string) Resolution { return Resolution{Name: name} }

// Rejected builds a rejection.
func Rejected() Resolution { return Resolution{Rejected: true} }

func (r Resolution) MarshalJSON() ([]byte, error) {
	if r.Rejected {
		return []byte("false"), nil
	}
	return json.Marshal(r.Name)
}

func (r *Resolution) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		*r = Resolution{}
		return nil
	case bytes.Equal(trimmed, []byte("false")):
		*r = Rejected()
		return nil
	case len(trimmed) > 0 && trimmed[0] == '"':
		var name string
		if err := json.Unmarshal(trimmed, &name); err != nil {
			return err
		}
		*r = Corrected(name)
		return nil
	default:
		return services.Wrap(services.ErrValidation, "store", "decode resolution", "want string or false", nil)
	}
}

// Checked reports whether the resolution carries an outcome.
func (r Resolution) Checked() bool {
	return r.Rejected || r.Name != ""
}

func (r Resolution) String() string {
	if r.Rejected {
		return "false"
	}
	return r.Name
}
