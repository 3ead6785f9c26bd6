package engageservice

import (
	"context"
	"database/sql"
	"time"

	"github.com/blurblog/blur/internal/common"
)

type ReportStatus string

const (
	ReportOpen     ReportStatus = "open"
	ReportResolved ReportStatus = "resolved"
)

// AccessChecker is the visibility gate every engagement write goes through.
// Satisfied by blogservice.BlogService.
type AccessChecker interface {
	CanEngagePost(ctx context.Context, postId, viewerId int) (bool, error)
	CanEngageComment(ctx context.Context, commentId, viewerId int) (bool, error)
}

type Like struct {
	PostID    int       `json:"post_id"`
	UserID    int       `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type CommentLike struct {
	CommentID int       `json:"comment_id"`
	UserID    int       `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type SavedPost struct {
	PostID    int       `json:"post_id"`
	UserID    int       `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type TagFollow struct {
	TagID     int       `json:"tag_id"`
	UserID    int       `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Report struct {
	ID         int          `json:"id"`
	PostID     int          `json:"post_id"`
	ReporterID int          `json:"reporter_id"`
	Reason     string       `json:"reason"`
	Status     ReportStatus `json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
}

type EngageModel struct {
	db *sql.DB
}

type EngageService struct {
	m      *EngageModel
	access AccessChecker
	mb     common.MessageProducer
}
