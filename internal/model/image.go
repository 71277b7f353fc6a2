package model

import (
	"time"

	"github.com/google/uuid"
)

// Image holds the stored metadata about an uploaded image and the path to
// its file in storage.
type Image struct {
	ID        uuid.UUID `json:"id"`
	SizeMB    float64   `json:"size"`   // file size in MB
	Width     int       `json:"width"`  // width in pixels
	Height    int       `json:"height"` // height in pixels
	Format    string    `json:"format"` // image file format (png, jpeg)
	Path      string    `json:"path"`   // path to the file in storage
	CreatedAt time.Time `json:"created_at"`
}
