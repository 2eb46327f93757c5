package domain

import "time"

// Comment is immutable once committed; CreatedAt is assigned by the store
// and defines the per-workspace broadcast order.
type Comment struct {
	ID          string
	WorkspaceID string
	AuthorID    string
	AuthorName  string
	Content     string
	CreatedAt   time.Time
}
