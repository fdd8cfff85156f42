package survival

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func createTestSnapshot() *Snapshot {
	return &Snapshot{
		Monsters: []Record{
			NewRecord(KindMonster, `{"monster_id":"m1","lat":1,"lon":2}`),
		},
		Survivors: []Record{
			NewRecord(KindSurvivor, `{"survivor_id":"s1","district":"D1","lat":3,"lon":4}`),
		},
		Warnings:  []error{errors.New("resource data: timeout")},
		FetchedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestExportSnapshot_JSON(t *testing.T) {
	snap := createTestSnapshot()
	contexts := []string{"Monster m1 at (1, 2)", "Survivor s1 in D1 (3, 4)"}
	var buf bytes.Buffer

	if err := ExportSnapshot(snap, contexts, "json", &buf); err != nil {
		t.Fatalf("ExportSnapshot failed: %v", err)
	}

	var got struct {
		FetchedAt     time.Time        `json:"fetched_at"`
		MonsterCount  int              `json:"monster_count"`
		SurvivorCount int              `json:"survivor_count"`
		ResourceCount int              `json:"resource_count"`
		Contexts      []string         `json:"contexts"`
		Warnings      []string         `json:"warnings"`
		Monsters      []map[string]any `json:"monsters"`
		Resources     []map[string]any `json:"resources"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("Failed to parse JSON output: %v", err)
	}

	if got.MonsterCount != 1 || got.SurvivorCount != 1 || got.ResourceCount != 0 {
		t.Errorf("unexpected counts %d/%d/%d", got.MonsterCount, got.SurvivorCount, got.ResourceCount)
	}
	if diff := cmp.Diff(contexts, got.Contexts); diff != "" {
		t.Errorf("contexts mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"resource data: timeout"}, got.Warnings); diff != "" {
		t.Errorf("warnings mismatch (-want +got):\n%s", diff)
	}
	if !got.FetchedAt.Equal(snap.FetchedAt) {
		t.Errorf("expected fetched_at %v, got %v", snap.FetchedAt, got.FetchedAt)
	}
	if len(got.Monsters) != 1 || got.Monsters[0]["monster_id"] != "m1" {
		t.Errorf("expected raw monster record to round-trip, got %v", got.Monsters)
	}
	if got.Resources == nil {
		t.Error("expected resources to be an empty list, not null")
	}
}

func TestExportSnapshot_UnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	err := ExportSnapshot(createTestSnapshot(), nil, "xml", &buf)
	if err == nil {
		t.Fatal("Expected error for unsupported format, got nil")
	}
	if !strings.Contains(err.Error(), "unsupported export format") {
		t.Errorf("Expected 'unsupported export format' error, got: %v", err)
	}
}

func TestExportSnapshot_CaseInsensitive(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportSnapshot(nil, nil, "JSON", &buf); err != nil {
		t.Fatalf("ExportSnapshot failed with uppercase format: %v", err)
	}
	if !strings.Contains(buf.String(), `"contexts": []`) {
		t.Errorf("expected empty contexts list, got %s", buf.String())
	}
}
