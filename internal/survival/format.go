package survival

import (
	"errors"
	"fmt"
)

var (
	ErrMissingField = errors.New("record is missing a required field")
)

// Placeholders substituted for optional fields.
const (
	PlaceholderUnknown = "Unknown"
	PlaceholderNA      = "N/A"
)

// FormatMonster renders a monster as "Monster <id> at (<lat>, <lon>)".
func FormatMonster(r Record) (string, error) {
	v, err := required(r, "monster_id", "lat", "lon")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Monster %s at (%s, %s)", v[0], v[1], v[2]), nil
}

// FormatSurvivor renders a survivor as "Survivor <id> in <district> (<lat>, <lon>)".
func FormatSurvivor(r Record) (string, error) {
	v, err := required(r, "survivor_id", "district", "lat", "lon")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Survivor %s in %s (%s, %s)", v[0], v[1], v[2], v[3]), nil
}

// FormatResource renders the properties of a resource feature.
// Features without a non-empty "properties" object report false.
func FormatResource(r Record) (string, bool) {
	props := r.Fields.Get("properties")
	if !props.IsObject() || len(props.Map()) == 0 {
		return "", false
	}
	return fmt.Sprintf("%s: Temp %s°C, Food %skg",
		optional(props.Raw, "dist_name", PlaceholderUnknown),
		optional(props.Raw, "temp", PlaceholderNA),
		optional(props.Raw, "food_rations", PlaceholderNA),
	), true
}

// FormatSnapshot turns every record into a context string: monsters first,
// then survivors, then resources. The first malformed record aborts formatting.
func FormatSnapshot(s *Snapshot) ([]string, error) {
	if s == nil {
		return nil, nil
	}
	contexts := make([]string, 0, s.RecordCount())
	for i, m := range s.Monsters {
		text, err := FormatMonster(m)
		if err != nil {
			return nil, fmt.Errorf("monster %d: %w", i, err)
		}
		contexts = append(contexts, text)
	}
	for i, sv := range s.Survivors {
		text, err := FormatSurvivor(sv)
		if err != nil {
			return nil, fmt.Errorf("survivor %d: %w", i, err)
		}
		contexts = append(contexts, text)
	}
	for _, res := range s.Resources {
		if text, ok := FormatResource(res); ok {
			contexts = append(contexts, text)
		}
	}
	return contexts, nil
}

func required(r Record, keys ...string) ([]string, error) {
	values := make([]string, len(keys))
	for i, key := range keys {
		v, ok := r.Field(key)
		if !ok {
			return nil, fmt.Errorf("%w: %s %q", ErrMissingField, r.Kind, key)
		}
		values[i] = v
	}
	return values, nil
}

func optional(raw, key, placeholder string) string {
	if v, ok := field(NewRecord("", raw).Fields, key); ok {
		return v
	}
	return placeholder
}
