// Package docstore defines the per-user document store the tracker persists to.
//
// Documents are addressed as users/{uid}/{collection}/{docId}. Writes merge the
// given top-level fields into any existing document and stamp FieldLastUpdated.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	CollectionHabits        = "habits"
	CollectionFinancial     = "financial"
	CollectionTasks         = "tasks"
	CollectionWeeklyPlanner = "weeklyPlanner"

	// FieldLastUpdated is assigned by the store on every write.
	FieldLastUpdated = "lastUpdated"
)

var (
	ErrNotFound   = errors.New("document not found")
	ErrInvalidRef = errors.New("invalid document reference")
)

// Ref identifies one document.
type Ref struct {
	UserID     string `json:"userId"`
	Collection string `json:"collection"`
	DocID      string `json:"docId"`
}

func (r Ref) Validate() error {
	for name, v := range map[string]string{"user": r.UserID, "collection": r.Collection, "doc": r.DocID} {
		if strings.TrimSpace(v) == "" || strings.Contains(v, "/") {
			return fmt.Errorf("%s id %q: %w", name, v, ErrInvalidRef)
		}
	}
	return nil
}

// Path returns the slash separated document path.
func (r Ref) Path() string {
	return "users/" + r.UserID + "/" + r.Collection + "/" + r.DocID
}

func (r Ref) String() string {
	return r.Path()
}

// Document is a set of top-level fields.
type Document map[string]any

// Store reads and merge-writes documents.
type Store interface {
	// Get returns ErrNotFound when the document does not exist.
	Get(ctx context.Context, ref Ref) (Document, error)
	// Set merges doc into the stored document, creating it if needed.
	Set(ctx context.Context, ref Ref, doc Document) error
}

// Lister is implemented by stores that can enumerate a user's collection.
type Lister interface {
	List(ctx context.Context, userID, collection string) ([]Document, error)
}

// Merge returns a copy of base with every top-level field of patch applied.
func Merge(base, patch Document) Document {
	out := make(Document, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// Clone deep-copies maps and lists so callers can mutate the result freely.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return Document(cloneMap(d))
}

// Fields returns the document without store-managed fields.
func (d Document) Fields() map[string]any {
	out := make(map[string]any, len(d))
	for k, v := range d {
		if k == FieldLastUpdated {
			continue
		}
		out[k] = v
	}
	return out
}

// LastUpdated returns the store-assigned write time, or the zero time.
func (d Document) LastUpdated() time.Time {
	switch t := d[FieldLastUpdated].(type) {
	case time.Time:
		return t
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err == nil {
			return parsed
		}
	}
	return time.Time{}
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case Document:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	}
	return v
}
