package announcements

import (
	"fmt"
	"time"

	"github.com/labportal/reagent-portal/internal/shared"
)

// Announcement is a notice shown to every signed-in account while active.
type Announcement struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateAnnouncementRequest publishes a new announcement.
type CreateAnnouncementRequest struct {
	Title string `json:"title" validate:"required,max=200"`
	Body  string `json:"body" validate:"max=5000"`
}

// ErrAnnouncementNotFound is returned when no announcement matches the id.
var ErrAnnouncementNotFound = fmt.Errorf("announcement %w", shared.ErrNotFound)
