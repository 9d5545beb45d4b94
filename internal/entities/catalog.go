package entities

import (
	"time"
)

type Book struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	Title           string `gorm:"index;size:512" json:"title"`
	Author          string `gorm:"index;size:256" json:"author"`
	ISBN            string `gorm:"uniqueIndex;size:20" json:"isbn"`
	Publisher       string `gorm:"size:256" json:"publisher,omitempty"`
	PublicationYear int    `json:"publication_year,omitempty"`
	Category        string `gorm:"size:100" json:"category,omitempty"`
	Description     string `gorm:"type:text" json:"description,omitempty"`
	Location        string `gorm:"size:50" json:"location,omitempty"` // Shelf/aisle location

	// Copy counts. AvailableCopies changes only through paired issue/return
	// operations via books.Repository.AdjustAvailability.
	TotalCopies     int `gorm:"not null" json:"total_copies"`
	AvailableCopies int `gorm:"not null" json:"available_copies"`

	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAvailable reports whether the book can be issued right now.
func (b *Book) IsAvailable() bool {
	return b.IsActive && b.AvailableCopies > 0
}
