package documents

import "time"

// Document is an immutable submission. Content holds the extracted text that
// similarity scoring compares; the raw upload lives in object storage under
// StorageKey.
type Document struct {
	ID         string
	UserID     string
	FileName   string
	Content    string
	MimeType   string
	SizeBytes  int64
	StorageKey string
	CreatedAt  time.Time
}

// UserCount pairs a user with the number of documents they own.
type UserCount struct {
	UserID string
	Count  int
}
