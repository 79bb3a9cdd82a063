package models

type User struct {
	UID   string `json:"userId,omitempty"`
	Email string `json:"email"`
	Pass  string `json:"-"`
}

// Rating is a single user's grade for a book. A user appears at most once
// in a book's ratings list.
type Rating struct {
	UserID string  `json:"userId"`
	Grade  float64 `json:"grade"`
}

type Book struct {
	BID           string   `json:"id,omitempty"`
	UserID        string   `json:"userId"`
	Title         string   `json:"title" validate:"required"`
	Author        string   `json:"author" validate:"required"`
	Year          int      `json:"year"`
	Genre         string   `json:"genre"`
	ImageURL      string   `json:"imageUrl"`
	Ratings       []Rating `json:"ratings"`
	AverageRating float64  `json:"averageRating"`
}
