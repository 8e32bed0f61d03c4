package blog

import (
	"errors"
	"time"
)

// The two lifecycle states of a post. Publishing is one-way.
const (
	StateDraft     = "draft"
	StatePublished = "published"
)

var (
	ErrNotFound   = errors.New("blog not found")
	ErrTitleTaken = errors.New("title already in use")
)

// Author carries the public fields of the owning user, resolved on reads.
type Author struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email"`
}

type Blog struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Body        string    `json:"body"`
	Tags        string    `json:"tags,omitempty"`
	AuthorID    string    `json:"authorId"`
	Author      *Author   `json:"author,omitempty"`
	State       string    `json:"state"`
	ReadCount   int       `json:"read_count"`
	ReadingTime int       `json:"reading_time"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type CreateBlogRequest struct {
	Title       string `json:"title" binding:"required,min=1,max=200"`
	Description string `json:"description" binding:"omitempty,max=1000"`
	Body        string `json:"body" binding:"required"`
	Tags        string `json:"tags" binding:"omitempty,max=200"`
}

// Edits are whitelisted to these four fields; anything else in the request
// body is dropped on the floor. nil means "leave as is".
type EditBlogRequest struct {
	Title       *string `json:"title" binding:"omitempty,min=1,max=200"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
	Body        *string `json:"body" binding:"omitempty"`
	Tags        *string `json:"tags" binding:"omitempty,max=200"`
}

// Empty reports whether the edit would change nothing.
func (r EditBlogRequest) Empty() bool {
	return r.Title == nil && r.Description == nil && r.Body == nil && r.Tags == nil
}

// with pointers if optional, it will be nil
type ListFilter struct {
	State    string
	AuthorID string
	Search   *string
	SortBy   string
	Order    string
	Limit    int
	Offset   int
}
