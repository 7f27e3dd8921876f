package model

import "time"

// Content is a personal document owned by exactly one user.
//
// Body holds the serialized markup produced by the browser editor. The server
// never parses it; it is stored and returned byte for byte.
//
// UserID is set once at creation and never changes. Every read or write of a
// Content goes through a query that filters on it.
type Content struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
