package users

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// UnmarshalJSON keeps the whole object in Raw and fills the typed fields
// from it where the types line up. A field of another type is left at its
// zero value rather than failing the decode.
func (p *Profile) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if raw == nil {
		return nil // null
	}

	*p = Profile{
		ID:        intField(raw, "id"),
		Email:     stringField(raw, "email"),
		Username:  stringField(raw, "username"),
		FirstName: stringField(raw, "first_name"),
		LastName:  stringField(raw, "last_name"),
		FullName:  stringField(raw, "full_name"),
		Currency:  stringField(raw, "currency"),
		CreatedAt: stringField(raw, "created_at"),
		Raw:       raw,
	}
	if picture, ok := raw["profile_picture"].(string); ok {
		p.ProfilePicture = &picture
	}
	return nil
}

// Field returns a field of the profile as the API sent it.
func (p *Profile) Field(key string) (any, bool) {
	if p == nil || p.Raw == nil {
		return nil, false
	}
	value, ok := p.Raw[key]
	return value, ok
}

// Clone returns a copy of p that shares nothing with it.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	clone := *p
	if p.ProfilePicture != nil {
		picture := *p.ProfilePicture
		clone.ProfilePicture = &picture
	}
	if p.Raw != nil {
		clone.Raw, _ = deepCopy(p.Raw).(map[string]any)
	}
	return &clone
}

func stringField(raw map[string]any, key string) string {
	s, _ := raw[key].(string)
	return s
}

func intField(raw map[string]any, key string) int64 {
	switch v := raw[key].(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil && f == math.Trunc(f) && math.Abs(f) < math.MaxInt64 {
			return int64(f)
		}
	case string:
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return 0
}

func deepCopy(v any) any {
	switch v := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(v))
		for key, value := range v {
			m[key] = deepCopy(value)
		}
		return m
	case []any:
		s := make([]any, len(v))
		for i, value := range v {
			s[i] = deepCopy(value)
		}
		return s
	default:
		return v
	}
}
