package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"donneur-go/internal/models"
	"donneur-go/internal/store"

	"go.uber.org/zap"
)

// CreatePost writes the post and its index entries in one transaction. Root
// posts go in the author index; root posts visible to all also go in the
// public index. Replies are reached through their parent.
func (s *Service) CreatePost(ctx context.Context, post *models.Post) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if post.ParentId != "" {
		var exists int
		err := tx.QueryRowContext(ctx, queryPostExists, post.ParentId).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: parent post %s", store.ErrNotFound, post.ParentId)
		}
		if err != nil {
			return fmt.Errorf("failed to look up parent post: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, queryInsertPost,
		post.Id, post.AuthorId, string(post.Content), string(post.Visibility), post.ParentId, post.CreatedAt)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: post %s", store.ErrDuplicate, post.Id)
		}
		return fmt.Errorf("failed to insert post: %w", err)
	}

	if post.ParentId == "" {
		if _, err := tx.ExecContext(ctx, queryInsertAuthorIndex, post.AuthorId, post.Id, post.CreatedAt); err != nil {
			return fmt.Errorf("failed to index post by author: %w", err)
		}
		if post.Visibility == models.VisibilityAll {
			if _, err := tx.ExecContext(ctx, queryInsertPublicIndex, post.Id, post.CreatedAt); err != nil {
				return fmt.Errorf("failed to index public post: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Post created",
		zap.String("post_id", post.Id),
		zap.String("author_id", post.AuthorId),
		zap.String("parent_id", post.ParentId))
	return nil
}

func (s *Service) GetPost(ctx context.Context, postId string) (*models.Post, error) {
	var post models.Post
	var content, visibility string
	err := s.db.QueryRowContext(ctx, queryGetPost, postId).
		Scan(&post.Id, &post.AuthorId, &content, &visibility, &post.ParentId, &post.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: post %s", store.ErrNotFound, postId)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	post.Content = []byte(content)
	post.Visibility = models.Visibility(visibility)

	if post.Likes, err = s.listIds(ctx, queryListPostLikes, postId); err != nil {
		return nil, fmt.Errorf("failed to list likes: %w", err)
	}
	if post.Replies, err = s.listIds(ctx, queryListPostReplies, postId); err != nil {
		return nil, fmt.Errorf("failed to list replies: %w", err)
	}
	return &post, nil
}

func (s *Service) DeletePostTree(ctx context.Context, postId string) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, queryPostExists, postId).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: post %s", store.ErrNotFound, postId)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up post: %w", err)
	}

	// Collect the subtree breadth-first before deleting anything
	removed := []string{postId}
	for i := 0; i < len(removed); i++ {
		replies, err := queryIds(ctx, tx, queryListPostReplies, removed[i])
		if err != nil {
			return nil, fmt.Errorf("failed to list replies of %s: %w", removed[i], err)
		}
		removed = append(removed, replies...)
	}

	for _, id := range removed {
		for _, query := range []string{queryDeletePostLikes, queryDeleteAuthorIndex, queryDeletePublicIndex, queryDeletePost} {
			if _, err := tx.ExecContext(ctx, query, id); err != nil {
				return nil, fmt.Errorf("failed to delete post %s: %w", id, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Post tree deleted", zap.String("post_id", postId), zap.Int("removed", len(removed)))
	return removed, nil
}

func (s *Service) AddLike(ctx context.Context, postId, userId string) error {
	if _, err := s.db.ExecContext(ctx, queryInsertLike, postId, userId, s.now()); err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: like by %s on %s", store.ErrDuplicate, userId, postId)
		}
		return fmt.Errorf("failed to add like: %w", err)
	}
	return nil
}

func (s *Service) RemoveLike(ctx context.Context, postId, userId string) error {
	result, err := s.db.ExecContext(ctx, queryDeleteLike, postId, userId)
	if err != nil {
		return fmt.Errorf("failed to remove like: %w", err)
	}
	affected, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: like by %s on %s", store.ErrNotFound, userId, postId)
	}
	return nil
}

func (s *Service) ListAuthorPosts(ctx context.Context, authorId string) ([]models.PostRef, error) {
	return s.listPostRefs(ctx, queryListAuthorPosts, authorId)
}

// ListPublicPosts returns the public index newest first.
func (s *Service) ListPublicPosts(ctx context.Context) ([]models.PostRef, error) {
	return s.listPostRefs(ctx, queryListPublicPosts)
}

func (s *Service) listPostRefs(ctx context.Context, query string, args ...any) ([]models.PostRef, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query post index: %w", err)
	}
	defer closeRows(rows)

	var refs []models.PostRef
	for rows.Next() {
		var ref models.PostRef
		if err := rows.Scan(&ref.PostId, &ref.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan post index: %w", err)
		}
		refs = append(refs, ref)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post index rows: %w", err)
	}
	return refs, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Service) listIds(ctx context.Context, query string, args ...any) ([]string, error) {
	return queryIds(ctx, s.db, query, args...)
}

func queryIds(ctx context.Context, db querier, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
