package models

import "time"

// User is an account that can authenticate and stream from the library.
type User struct {
	ID           string    `json:"id"`
	DisplayName  string    `json:"displayName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	SelfSignup   bool      `json:"selfSignup"`
	CreatedAt    time.Time `json:"createdAt"`
}

// MediaItem describes one playable file in the library. The filename doubles
// as the item identifier; the byte size comes from the filesystem at scan
// time and is never persisted.
type MediaItem struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
	SizeBytes    int64     `json:"sizeBytes"`
	ContentType  string    `json:"contentType"`
	ModifiedAt   time.Time `json:"modifiedAt"`
}

// WatchProgress records the last reported playback position for a
// (user, item) pair. At most one record exists per pair; updates replace the
// previous value outright.
type WatchProgress struct {
	UserID          string    `json:"userId"`
	ItemID          string    `json:"itemId"`
	PositionSeconds int64     `json:"positionSeconds"`
	UpdatedAt       time.Time `json:"updatedAt"`
}
