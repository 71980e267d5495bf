package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"persondiscovery/internal/services"
)

// Segment is a time span in seconds.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// FrameSpan is a frame-number span.
type FrameSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Shot is the inline descriptor stored on submission-shot annotations.
type Shot struct {
	Number  int       `json:"shot_number"`
	Segment Segment   `json:"segment"`
	Frames  FrameSpan `json:"frames"`
}

// Fragment locates an annotation: either a reference (a shot id, or a person
// name on mugshot annotations) or an inline shot descriptor.
type Fragment struct {
	Ref  string
	Shot *Shot
}

// RefFragment builds a reference fragment.
func RefFragment(ref string) Fragment {
	return Fragment{Ref: ref}
}

// ShotFragment builds an inline shot fragment.
func ShotFragment(shot Shot) Fragment {
	return Fragment{Shot: &shot}
}

// IsZero reports whether the fragment is empty.
func (f Fragment) IsZero() bool {
	return f.Ref == "" && f.Shot == nil
}

func (f Fragment) MarshalJSON() ([]byte, error) {
	if f.Shot != nil {
		return json.Marshal(f.Shot)
	}
	return json.Marshal(f.Ref)
}

func (f *Fragment) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	*f = Fragment{}
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		return nil
	case trimmed[0] == '"':
		return json.Unmarshal(trimmed, &f.Ref)
	case trimmed[0] == '{':
		var raw struct {
			Number  json.Number `json:"shot_number"`
			Segment struct {
				Start json.Number `json:"start"`
				End   json.Number `json:"end"`
			} `json:"segment"`
			Frames struct {
				Start json.Number `json:"start"`
				End   json.Number `json:"end"`
			} `json:"frames"`
		}
		decoder := json.NewDecoder(bytes.NewReader(trimmed))
		decoder.UseNumber()
		if err := decoder.Decode(&raw); err != nil {
			return services.Wrap(services.ErrValidation, "store", "decode fragment", "inline shot", err)
		}
		shot := Shot{}
		var err error
		if shot.Number, err = numberInt(raw.Number); err != nil {
			return err
		}
		if shot.Segment.Start, err = numberFloat(raw.Segment.Start); err != nil {
			return err
		}
		if shot.Segment.End, err = numberFloat(raw.Segment.End); err != nil {
			return err
		}
		if shot.Frames.Start, err = numberInt(raw.Frames.Start); err != nil {
			return err
		}
		if shot.Frames.End, err = numberInt(raw.Frames.End); err != nil {
			return err
		}
		f.Shot = &shot
		return nil
	default:
		return services.Wrap(services.ErrValidation, "store", "decode fragment", fmt.Sprintf("unexpected json %q", trimmed), nil)
	}
}

// Shot descriptors imported from flat files carry numbers as strings, so both
// JSON numbers and numeric strings are accepted.
func numberFloat(n json.Number) (float64, error) {
	if n == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return 0, services.Wrap(services.ErrValidation, "store", "decode fragment", "number", err)
	}
	return v, nil
}

func numberInt(n json.Number) (int, error) {
	v, err := numberFloat(n)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}
