package domain

import "time"

// Entry is a unit of knowledge in the hub: an ingested page, a note, a
// document. Search matches against Title and Content.
type Entry struct {
	ID        string
	Title     string
	Content   string
	URL       string
	CreatedBy string
	CreatedAt time.Time
}
