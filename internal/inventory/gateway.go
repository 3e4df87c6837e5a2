package inventory

import "context"

// Gateway is the persistence boundary used by the service. Missing rows are
// reported with an error matching ErrNotFound, uniqueness violations with
// ErrConflict.
type Gateway interface {
	// Upsert runs merge against the stored record for id and writes the
	// result and every replaced collection in one transaction. Concurrent
	// upserts of the same id are serialized.
	Upsert(ctx context.Context, id string, merge MergeFunc) (*PC, error)
	GetPC(ctx context.Context, id string) (*PCDetails, error)
	UpdateNotes(ctx context.Context, id, notes string) error
	DeletePC(ctx context.Context, id string) error
	ListPCs(ctx context.Context, f ListFilter) ([]Summary, error)

	CreateTag(ctx context.Context, name, color string) (*Tag, error)
	DeleteTag(ctx context.Context, id int64) error
	ListTags(ctx context.Context) ([]Tag, error)
	AddTag(ctx context.Context, pcID string, tagID int64) error
	RemoveTag(ctx context.Context, pcID string, tagID int64) error
	PCTags(ctx context.Context, pcID string) ([]Tag, error)
}
