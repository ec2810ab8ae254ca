package domain

import "time"

// Update is a bilingual news post managed from the admin dashboard.
type Update struct {
	ID        string    `json:"id"`
	TitleEN   string    `json:"title_en"`
	TitleAR   string    `json:"title_ar"`
	ContentEN string    `json:"content_en"`
	ContentAR string    `json:"content_ar"`
	CreatedAt time.Time `json:"created_at"`
}

// UpdateInput is the admin create payload.
type UpdateInput struct {
	TitleEN   string `json:"title_en" validate:"required,max=200"`
	TitleAR   string `json:"title_ar" validate:"required,max=200"`
	ContentEN string `json:"content_en" validate:"required,max=10000"`
	ContentAR string `json:"content_ar" validate:"required,max=10000"`
}
