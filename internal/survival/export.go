package survival

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// ExportFormat represents supported export formats
type ExportFormat string

const (
	FormatJSON ExportFormat = "json"
)

// SnapshotExport is the on-disk form of a snapshot and the context built from it
type SnapshotExport struct {
	FetchedAt     time.Time `json:"fetched_at"`
	MonsterCount  int       `json:"monster_count"`
	SurvivorCount int       `json:"survivor_count"`
	ResourceCount int       `json:"resource_count"`
	Contexts      []string  `json:"contexts"`
	Warnings      []string  `json:"warnings,omitempty"`
	Monsters      []Record  `json:"monsters"`
	Survivors     []Record  `json:"survivors"`
	Resources     []Record  `json:"resources"`
}

// ExportSnapshot writes a snapshot together with its formatted contexts
func ExportSnapshot(s *Snapshot, contexts []string, format string, writer io.Writer) error {
	if ExportFormat(strings.ToLower(format)) != FormatJSON {
		return fmt.Errorf("unsupported export format: %s (supported: json)", format)
	}
	if s == nil {
		s = &Snapshot{}
	}
	if contexts == nil {
		contexts = []string{}
	}

	export := SnapshotExport{
		FetchedAt:     s.FetchedAt,
		MonsterCount:  len(s.Monsters),
		SurvivorCount: len(s.Survivors),
		ResourceCount: len(s.Resources),
		Contexts:      contexts,
		Warnings:      s.WarningMessages(),
		Monsters:      nonNil(s.Monsters),
		Survivors:     nonNil(s.Survivors),
		Resources:     nonNil(s.Resources),
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

func nonNil(r []Record) []Record {
	if r == nil {
		return []Record{}
	}
	return r
}
