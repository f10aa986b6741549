// Package stores holds the report journal: a write-once record of completed
// orchestration responses, keyed by report id.
package stores

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"time"
)

var (
	ErrReportExists   = errors.New("report already exists")
	ErrReportNotFound = errors.New("report not found")
)

// Entry is one journaled report.
type Entry struct {
	ID        string          `json:"id"`
	Operation string          `json:"operation"`
	CreatedAt time.Time       `json:"created_at"`
	Report    json.RawMessage `json:"report"`
}

// Journal stores reports. Entries are never updated.
type Journal interface {
	Append(ctx context.Context, entry Entry) error
	Get(ctx context.Context, id string) (Entry, error)
	// List returns the newest entries first, at most limit of them. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}

// NewEntry marshals report into an entry stamped with now.
func NewEntry(id, operation string, report any) (Entry, error) {
	raw, err := json.Marshal(report)
	if err != nil {
		return Entry{}, err
	}
	return Entry{ID: id, Operation: operation, CreatedAt: time.Now().UTC(), Report: raw}, nil
}

func newestFirst(entries []Entry, limit int) []Entry {
	slices.SortFunc(entries, func(a, b Entry) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
