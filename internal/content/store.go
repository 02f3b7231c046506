package content

import (
	"context"
)

// Store is the persistence contract for posts. List returns every valid post
// in no particular order; Get returns apperrors.ErrPostNotFound for unknown
// ids; Save creates or replaces the post with p.ID.
type Store interface {
	List(ctx context.Context) ([]Post, error)
	Get(ctx context.Context, id string) (Post, error)
	Save(ctx context.Context, p Post) error
	FeaturedIDs(ctx context.Context) ([]string, error)
}

// ChangeKind distinguishes create from update events.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "post.created"
	ChangeUpdated ChangeKind = "post.updated"
)

// ChangeNotifier is told about every successful write so other instances can
// drop their caches.
type ChangeNotifier interface {
	PostChanged(ctx context.Context, kind ChangeKind, id string) error
}
