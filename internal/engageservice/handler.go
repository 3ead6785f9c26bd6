package engageservice

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/blurblog/blur/internal/common"
)

var ErrNotAuthorized = errors.New("not authorized")

func NewEngageService(db *sql.DB, access AccessChecker, mb common.MessageProducer) *EngageService {
	return &EngageService{m: newEngageModel(db), access: access, mb: mb}
}

// gatePost rejects engagement on content the user cannot see.
func (s *EngageService) gatePost(ctx context.Context, postId, userId int) error {
	ok, err := s.access.CanEngagePost(ctx, postId, userId)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAuthorized
	}

	return nil
}

// LikePost records a like on a post the user can see. Liking twice fails
// with ErrAlreadyLiked.
func (s *EngageService) LikePost(ctx context.Context, postId, userId int) (*Like, error) {
	v := common.NewValidator()
	validateInt(v, postId, "post_id")
	validateInt(v, userId, "user_id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	if err := s.gatePost(ctx, postId, userId); err != nil {
		return nil, err
	}

	like := Like{PostID: postId, UserID: userId}

	err := s.m.insertLike(ctx, &like)
	if err != nil {
		return nil, err
	}

	return &like, nil
}

func (s *EngageService) UnlikePost(ctx context.Context, postId, userId int) error {
	v := common.NewValidator()
	validateInt(v, postId, "post_id")
	validateInt(v, userId, "user_id")
	if !v.Valid() {
		return v.ValidationError()
	}

	return s.m.deleteLike(ctx, postId, userId)
}

func (s *EngageService) CountLikes(ctx context.Context, postId int) (int, error) {
	v := common.NewValidator()
	validateInt(v, postId, "post_id")
	if !v.Valid() {
		return 0, v.ValidationError()
	}

	return s.m.countLikes(ctx, postId)
}

// LikeComment records a like on a comment, gated by the owning post's blog.
func (s *EngageService) LikeComment(ctx context.Context, commentId, userId int) (*CommentLike, error) {
	v := common.NewValidator()
	validateInt(v, commentId, "comment_id")
	validateInt(v, userId, "user_id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	ok, err := s.access.CanEngageComment(ctx, commentId, userId)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAuthorized
	}

	like := CommentLike{CommentID: commentId, UserID: userId}

	err = s.m.insertCommentLike(ctx, &like)
	if err != nil {
		return nil, err
	}

	return &like, nil
}

// SavePost bookmarks a post the user can see.
func (s *EngageService) SavePost(ctx context.Context, postId, userId int) (*SavedPost, error) {
	v := common.NewValidator()
	validateInt(v, postId, "post_id")
	validateInt(v, userId, "user_id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	if err := s.gatePost(ctx, postId, userId); err != nil {
		return nil, err
	}

	saved := SavedPost{PostID: postId, UserID: userId}

	err := s.m.insertSavedPost(ctx, &saved)
	if err != nil {
		return nil, err
	}

	return &saved, nil
}

func (s *EngageService) UnsavePost(ctx context.Context, postId, userId int) error {
	v := common.NewValidator()
	validateInt(v, postId, "post_id")
	validateInt(v, userId, "user_id")
	if !v.Valid() {
		return v.ValidationError()
	}

	return s.m.deleteSavedPost(ctx, postId, userId)
}

// GetSavedPostIds lists the user's bookmarks, re-checking visibility per
// item: a post whose blog went private since the save is dropped from the
// result rather than leaked.
func (s *EngageService) GetSavedPostIds(ctx context.Context, userId int) ([]int, error) {
	v := common.NewValidator()
	validateInt(v, userId, "user_id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	ids, err := s.m.getSavedPostIds(ctx, userId)
	if err != nil {
		return nil, err
	}

	visible := make([]int, 0, len(ids))
	for _, id := range ids {
		ok, err := s.access.CanEngagePost(ctx, id, userId)
		if err != nil {
			if errors.Is(err, ErrRecordNotFound) {
				continue
			}
			return nil, err
		}
		if ok {
			visible = append(visible, id)
		}
	}

	return visible, nil
}

// FollowTag subscribes the user to a tag. Tags are public reference data, so
// there is no visibility gate.
func (s *EngageService) FollowTag(ctx context.Context, tagId, userId int) (*TagFollow, error) {
	v := common.NewValidator()
	validateInt(v, tagId, "tag_id")
	validateInt(v, userId, "user_id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	follow := TagFollow{TagID: tagId, UserID: userId}

	err := s.m.insertTagFollow(ctx, &follow)
	if err != nil {
		return nil, err
	}

	return &follow, nil
}

func (s *EngageService) UnfollowTag(ctx context.Context, tagId, userId int) error {
	v := common.NewValidator()
	validateInt(v, tagId, "tag_id")
	validateInt(v, userId, "user_id")
	if !v.Valid() {
		return v.ValidationError()
	}

	return s.m.deleteTagFollow(ctx, tagId, userId)
}

// ReportPost files a moderation report and publishes a report.created event
// for the notification consumer. Report insertion is not visibility-gated;
// anything reachable enough to be reported can be reported.
func (s *EngageService) ReportPost(ctx context.Context, postId, reporterId int, reason string) (*Report, error) {
	v := common.NewValidator()
	validateInt(v, postId, "post_id")
	validateInt(v, reporterId, "reporter_id")
	v.Check(reason != "", "reason", "must be provided")
	v.Check(v.CheckStringLength(reason, 1, 1000), "reason", "must not be more than 1000 characters long")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	report := Report{PostID: postId, ReporterID: reporterId, Reason: reason}

	err := s.m.insertReport(ctx, &report)
	if err != nil {
		return nil, err
	}

	if s.mb != nil {
		data, err := json.Marshal(report)
		if err != nil {
			return nil, err
		}

		err = s.mb.Publish(ctx, data, common.ReportCreatedKey, common.ReportExchange)
		if err != nil {
			return nil, err
		}
	}

	return &report, nil
}

// GetOpenReports lists unresolved reports. Default limit is 10 and default
// offset is 0.
func (s *EngageService) GetOpenReports(ctx context.Context, limit, offset *int) ([]Report, error) {
	l, o := common.PageParams(limit, offset)
	return s.m.getOpenReports(ctx, l, o)
}
