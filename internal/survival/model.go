// Package survival fetches monster, survivor and resource records from the
// upstream survival APIs and turns them into context sentences.
package survival

import (
	"time"

	"github.com/tidwall/gjson"
)

// Kind identifies the upstream resource a record came from.
type Kind string

const (
	KindMonster  Kind = "monster"
	KindSurvivor Kind = "survivor"
	KindResource Kind = "resource"
)

// Record is one untyped JSON object returned by an upstream API.
// Values are read by key on demand; nothing is validated when the record is fetched.
type Record struct {
	Kind   Kind
	Fields gjson.Result
}

// NewRecord parses raw JSON into a record of the given kind.
func NewRecord(kind Kind, raw string) Record {
	return Record{
		Kind:   kind,
		Fields: gjson.Parse(raw),
	}
}

// Field returns the scalar stored under key rendered as text.
// Missing keys and JSON nulls report false.
func (r Record) Field(key string) (string, bool) {
	return field(r.Fields, key)
}

// MarshalJSON writes the record exactly as it was received.
func (r Record) MarshalJSON() ([]byte, error) {
	if r.Fields.Raw == "" {
		return []byte("null"), nil
	}
	return []byte(r.Fields.Raw), nil
}

func field(obj gjson.Result, key string) (string, bool) {
	if !obj.IsObject() {
		return "", false
	}
	v := obj.Get(key)
	if !v.Exists() || v.Type == gjson.Null {
		return "", false
	}
	// Numbers keep their source text so 12.0 stays 12.0.
	if v.Type == gjson.Number {
		return v.Raw, true
	}
	return v.String(), true
}

// Snapshot holds everything fetched from the three upstream APIs for one run.
type Snapshot struct {
	Monsters  []Record  `json:"monsters"`
	Survivors []Record  `json:"survivors"`
	Resources []Record  `json:"resources"`
	Warnings  []error   `json:"-"`
	FetchedAt time.Time `json:"fetched_at"`
}

// RecordCount returns the total number of records across all kinds.
func (s *Snapshot) RecordCount() int {
	if s == nil {
		return 0
	}
	return len(s.Monsters) + len(s.Survivors) + len(s.Resources)
}

// WarningMessages returns the fetch warnings as display strings.
func (s *Snapshot) WarningMessages() []string {
	if s == nil || len(s.Warnings) == 0 {
		return nil
	}
	msgs := make([]string, len(s.Warnings))
	for i, w := range s.Warnings {
		msgs[i] = w.Error()
	}
	return msgs
}
