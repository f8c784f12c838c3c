package documents

import "time"

// Document represents an uploaded prospectus owned by a client.
type Document struct {
	ID               string
	ClientID         string
	FileName         string
	MimeType         string
	SizeBytes        int64
	StorageProvider  string
	StorageKey       string
	ExtractedTextKey string
	ExtractedAt      *time.Time
	PageCount        int
	CreatedAt        time.Time
}
