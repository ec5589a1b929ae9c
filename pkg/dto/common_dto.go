package dto

import (
	"io"
	"time"

	"github.com/google/uuid"
)

// UserSummary is the compact user projection shared by listings and autocomplete.
type UserSummary struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

type ProjectSummary struct {
	ID                 uuid.UUID `json:"id"`
	Title              string    `json:"title"`
	ShortDescription   string    `json:"short_description"`
	Category           string    `json:"category"`
	ImageURL           string    `json:"image_url,omitempty"`
	Goal               float64   `json:"goal"`
	CurrentAmount      float64   `json:"current_amount"`
	ProgressPercentage int       `json:"progress_percentage"`
	IsFunded           bool      `json:"is_funded"`
	DaysRemaining      int       `json:"days_remaining"`
	Status             string    `json:"status"`
	ReturnType         string    `json:"return_type"`
	EndDate            time.Time `json:"end_date"`
	CreatedAt          time.Time `json:"created_at"`
}

type PaginationMeta struct {
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
	TotalItems  int64 `json:"total_items"`
	Limit       int   `json:"limit"`
}

func NewPaginationMeta(page, limit int, total int64) PaginationMeta {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return PaginationMeta{CurrentPage: page, TotalPages: pages, TotalItems: total, Limit: limit}
}

// UploadFile is an opened multipart file handed from a handler to a service.
type UploadFile struct {
	Reader   io.Reader
	FileName string
}
