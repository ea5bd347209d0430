package types

import "time"

// Post is a help post written by a registered user.
// Only its author may edit or delete it.
type Post struct {
	// ID is the unique identifier of the post, generated on insert.
	ID int `json:"id" db:"id"`

	// Title is the headline of the post.
	Title string `json:"title" db:"title"`

	// Body explains what help is needed.
	Body string `json:"body" db:"body"`

	// Money is the requested amount, kept as entered by the author.
	Money string `json:"money" db:"money"`

	// AuthorID references the user who created the post.
	AuthorID int `json:"author_id" db:"author_id"`

	// AuthorUsername is joined from the users table on reads.
	AuthorUsername string `json:"author" db:"username"`

	// Created is set once when the post is inserted.
	Created time.Time `json:"created" db:"created"`

	// Edited is bumped on every edit and starts equal to Created.
	Edited time.Time `json:"edited" db:"edited"`
}

// PostInput carries the author-editable fields of a post.
type PostInput struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Money string `json:"money"`
}

// PostFeed is the index listing, most recently edited first.
// Message is set when there is nothing to show.
type PostFeed struct {
	Posts   []Post `json:"posts"`
	Message string `json:"message,omitempty"`
}
