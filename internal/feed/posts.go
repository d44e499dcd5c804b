package feed

import (
	"context"
	"encoding/json"

	"donneur-go/internal/apperrors"
	"donneur-go/internal/models"
	"donneur-go/internal/store"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// ParseVisibility maps the client-supplied visibility string to a known variant.
func ParseVisibility(value string) (models.Visibility, error) {
	switch v := models.Visibility(value); v {
	case models.VisibilitySubscribers, models.VisibilityFriends, models.VisibilityAll:
		return v, nil
	}
	return "", apperrors.New(apperrors.InvalidInput, ErrInvalidVisibility, "%q", value)
}

// CreatePost publishes a root post for authorId.
func (e *Engine) CreatePost(ctx context.Context, authorId string, content json.RawMessage, visibility string) (*models.FeedPost, error) {
	return e.writePost(ctx, authorId, content, visibility, "")
}

// ReplyToPost attaches a reply to parentId. Replies never enter the author
// or public indexes.
func (e *Engine) ReplyToPost(ctx context.Context, authorId, parentId string, content json.RawMessage, visibility string) (*models.FeedPost, error) {
	if parentId == "" {
		return nil, apperrors.New(apperrors.NotFound, ErrPostNotFound, "missing parent id")
	}
	return e.writePost(ctx, authorId, content, visibility, parentId)
}

func (e *Engine) writePost(ctx context.Context, authorId string, content json.RawMessage, visibility, parentId string) (*models.FeedPost, error) {
	v, err := ParseVisibility(visibility)
	if err != nil {
		return nil, err
	}
	if len(content) == 0 || !json.Valid(content) {
		return nil, apperrors.New(apperrors.InvalidInput, ErrInvalidContent, "")
	}

	author, err := e.resolve(ctx, authorId)
	if err != nil {
		if errors.Is(err, apperrors.NotFound) {
			return nil, apperrors.New(apperrors.NotFound, ErrUserNotFound, "%s", authorId)
		}
		return nil, err
	}

	post := &models.Post{
		Id:         uuid.New().String(),
		AuthorId:   authorId,
		Content:    content,
		Visibility: v,
		ParentId:   parentId,
		CreatedAt:  e.clock.Now().UTC(),
	}
	if err := e.posts.CreatePost(ctx, post); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.New(apperrors.NotFound, ErrPostNotFound, "parent %s", parentId)
		}
		return nil, storeFailure(err)
	}

	if parentId == "" {
		e.Invalidate(authorId)
	}
	result := toFeedPost(post, *author)
	return &result, nil
}

// GetPost returns a post with its likes, replies and author.
func (e *Engine) GetPost(ctx context.Context, postId string) (*models.FeedPost, error) {
	post, err := e.loadPost(ctx, postId)
	if err != nil {
		return nil, err
	}
	author, err := e.resolve(ctx, post.AuthorId)
	if err != nil {
		return nil, err
	}
	result := toFeedPost(post, *author)
	return &result, nil
}

// DeletePost removes postId and every reply beneath it. Only the author
// may delete.
func (e *Engine) DeletePost(ctx context.Context, userId, postId string) error {
	post, err := e.loadPost(ctx, postId)
	if err != nil {
		return err
	}
	if post.AuthorId != userId {
		return apperrors.New(apperrors.Unauthorized, ErrNotAuthor, "post %s", postId)
	}

	removed, err := e.posts.DeletePostTree(ctx, postId)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.New(apperrors.NotFound, ErrPostNotFound, "%s", postId)
		}
		return storeFailure(err)
	}

	e.Invalidate(userId)
	zap.L().Info("Post deleted",
		zap.String("post_id", postId),
		zap.String("author_id", userId),
		zap.Int("removed", len(removed)))
	return nil
}

func (e *Engine) LikePost(ctx context.Context, userId, postId string) error {
	if _, err := e.loadPost(ctx, postId); err != nil {
		return err
	}
	if err := e.posts.AddLike(ctx, postId, userId); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return apperrors.New(apperrors.AlreadyExists, ErrAlreadyLiked, "post %s", postId)
		}
		return storeFailure(err)
	}
	zap.L().Info("Post liked", zap.String("post_id", postId), zap.String("user_id", userId))
	return nil
}

func (e *Engine) UnlikePost(ctx context.Context, userId, postId string) error {
	if _, err := e.loadPost(ctx, postId); err != nil {
		return err
	}
	if err := e.posts.RemoveLike(ctx, postId, userId); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.New(apperrors.NotFound, ErrNotLiked, "post %s", postId)
		}
		return storeFailure(err)
	}
	zap.L().Info("Post unliked", zap.String("post_id", postId), zap.String("user_id", userId))
	return nil
}

// GetUserPosts returns every root post by authorId, oldest first.
func (e *Engine) GetUserPosts(ctx context.Context, authorId string) ([]models.FeedPost, error) {
	author, err := e.resolve(ctx, authorId)
	if err != nil {
		if errors.Is(err, apperrors.NotFound) {
			return nil, apperrors.New(apperrors.NotFound, ErrUserNotFound, "%s", authorId)
		}
		return nil, err
	}

	refs, err := e.posts.ListAuthorPosts(ctx, authorId)
	if err != nil {
		return nil, storeFailure(err)
	}

	posts := make([]models.FeedPost, 0, len(refs))
	for _, ref := range refs {
		post, err := e.posts.GetPost(ctx, ref.PostId)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, storeFailure(err)
		}
		posts = append(posts, toFeedPost(post, *author))
	}
	return posts, nil
}

func (e *Engine) loadPost(ctx context.Context, postId string) (*models.Post, error) {
	post, err := e.posts.GetPost(ctx, postId)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.New(apperrors.NotFound, ErrPostNotFound, "%s", postId)
	}
	if err != nil {
		return nil, storeFailure(err)
	}
	return post, nil
}
