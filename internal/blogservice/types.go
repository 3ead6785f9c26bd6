package blogservice

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/blurblog/blur/internal/common"
)

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestRejected RequestStatus = "rejected"
)

type Blog struct {
	ID          int       `json:"id"`
	OwnerID     int       `json:"owner_id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Logo        string    `json:"logo,omitempty"`
	IsActive    bool      `json:"is_active"`
	IsPrivate   bool      `json:"is_private"`
	CreatedAt   time.Time `json:"created_at"`
	Version     int       `json:"version"`

	// Co-authors, not including the owner.
	Authors    []int `json:"authors,omitempty"`
	PostsCount int   `json:"posts_count"`
}

type Post struct {
	ID       int    `json:"id"`
	BlogID   int    `json:"blog_id"`
	AuthorID int    `json:"author_id"`
	Title    string `json:"title"`
	Slug     string `json:"slug"`
	// Content is stored in Markdown format.
	Content   string    `json:"content"`
	IsActive  bool      `json:"is_active"`
	IsPrivate bool      `json:"is_private"`
	CreatedAt time.Time `json:"created_at"`
	Version   int       `json:"version"`

	Tags []string `json:"tags,omitempty"`
}

type Comment struct {
	ID        int       `json:"id"`
	PostID    int       `json:"post_id"`
	AuthorID  int       `json:"author_id"`
	Content   string    `json:"content"`
	ReplyTo   *int      `json:"reply_to,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SubscribeRequest is the transient workflow object gating membership of a
// private blog. A resolved request stays in the table with is_deleted = true;
// the durable state is the subscribers row created on acceptance.
type SubscribeRequest struct {
	ID          int           `json:"id"`
	BlogID      int           `json:"blog_id"`
	UserID      int           `json:"user_id"`
	Status      RequestStatus `json:"status"`
	IsDeleted   bool          `json:"is_deleted"`
	RequestedAt time.Time     `json:"requested_at"`
	ResolvedAt  *time.Time    `json:"resolved_at,omitempty"`
}

type Subscriber struct {
	BlogID       int       `json:"blog_id"`
	UserID       int       `json:"user_id"`
	SubscribedAt time.Time `json:"subscribed_at"`
}

type Tag struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type BlogModel struct {
	db *sql.DB
}

type BlogService struct {
	m      *BlogModel
	c      *common.Cache
	blobs  common.BlobStore
	logger *slog.Logger
}
