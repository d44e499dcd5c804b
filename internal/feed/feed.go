/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package feed builds each viewer's paginated feed from the posts of their
// friends and subscribed organizations, spliced with public posts, and
// provides the post operations that feed it.
package feed

import (
	"context"

	"donneur-go/internal/apperrors"
	"donneur-go/internal/models"
	"donneur-go/internal/store"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	ErrUserNotFound      = errors.ConstError("user not found")
	ErrInvalidPage       = errors.ConstError("page must not be negative")
	ErrInvalidVisibility = errors.ConstError("invalid visibility")
	ErrInvalidContent    = errors.ConstError("post content must be a JSON document")
	ErrPostNotFound      = errors.ConstError("post not found")
	ErrAlreadyLiked      = errors.ConstError("post already liked")
	ErrNotLiked          = errors.ConstError("post was not liked")
	ErrNotAuthor         = errors.ConstError("only the author can delete a post")
)

const DefaultPageSize = 20

// AuthorResolver turns an account id into display information, trying
// every account kind. Unknown ids fail with apperrors.NotFound.
type AuthorResolver interface {
	ResolveAuthor(ctx context.Context, id string) (*models.Author, error)
}

// Graph supplies the accounts a viewer follows.
type Graph interface {
	FriendIds(ctx context.Context, userId string) ([]string, error)
	GetSubscriptions(ctx context.Context, receiverId string) ([]string, error)
}

type Engine struct {
	posts    store.PostStore
	graph    Graph
	authors  AuthorResolver
	cache    Cache
	clock    clock.Clock
	pageSize int
	builds   singleflight.Group
}

func NewEngine(posts store.PostStore, graph Graph, authors AuthorResolver, cache Cache, c clock.Clock, pageSize int) *Engine {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Engine{
		posts:    posts,
		graph:    graph,
		authors:  authors,
		cache:    cache,
		clock:    c,
		pageSize: pageSize,
	}
}

// Invalidate drops viewerId's cached feed.
func (e *Engine) Invalidate(viewerId string) {
	e.cache.Invalidate(viewerId)
}

// GenerateFeed computes viewerId's ordered feed ids without touching the cache.
func (e *Engine) GenerateFeed(ctx context.Context, viewerId string) ([]string, error) {
	if _, err := e.resolve(ctx, viewerId); err != nil {
		if errors.Is(err, apperrors.NotFound) {
			return nil, apperrors.New(apperrors.NotFound, ErrUserNotFound, "%s", viewerId)
		}
		return nil, err
	}

	friends, err := e.graph.FriendIds(ctx, viewerId)
	if err != nil {
		return nil, err
	}
	subscriptions, err := e.graph.GetSubscriptions(ctx, viewerId)
	if err != nil {
		return nil, err
	}

	var groups [][]models.PostRef
	for _, authorId := range append(friends, subscriptions...) {
		refs, err := e.posts.ListAuthorPosts(ctx, authorId)
		if err != nil {
			return nil, storeFailure(err)
		}
		groups = append(groups, refs)
	}

	public, err := e.posts.ListPublicPosts(ctx)
	if err != nil {
		return nil, storeFailure(err)
	}

	ids := Interleave(mergeRefs(groups...), public)
	zap.L().Debug("Feed generated",
		zap.String("viewer_id", viewerId),
		zap.Int("followed_authors", len(friends)+len(subscriptions)),
		zap.Int("posts", len(ids)))
	return ids, nil
}

// GetFeed returns one page of viewerId's feed. Page 0 always rebuilds the
// cached ordering; later pages reuse it, building it first on a miss.
// Posts authored by the viewer and posts whose author no longer resolves
// are left out of the page.
func (e *Engine) GetFeed(ctx context.Context, viewerId string, page int) ([]models.FeedPost, error) {
	if page < 0 {
		return nil, apperrors.New(apperrors.InvalidInput, ErrInvalidPage, "got %d", page)
	}

	var ids []string
	var ok bool
	if page > 0 {
		ids, ok = e.cache.Get(viewerId)
	}
	if !ok {
		var err error
		if ids, err = e.rebuild(ctx, viewerId); err != nil {
			return nil, err
		}
	}

	if page > (len(ids)-1)/e.pageSize {
		return []models.FeedPost{}, nil
	}
	start := page * e.pageSize
	end := min(start+e.pageSize, len(ids))

	posts := make([]models.FeedPost, 0, end-start)
	for _, id := range ids[start:end] {
		post, err := e.posts.GetPost(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, storeFailure(err)
		}
		if post.AuthorId == viewerId {
			continue
		}

		author, err := e.resolve(ctx, post.AuthorId)
		if errors.Is(err, apperrors.NotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		posts = append(posts, toFeedPost(post, *author))
	}
	return posts, nil
}

func (e *Engine) rebuild(ctx context.Context, viewerId string) ([]string, error) {
	value, err, _ := e.builds.Do(viewerId, func() (any, error) {
		ids, err := e.GenerateFeed(ctx, viewerId)
		if err != nil {
			return nil, err
		}
		e.cache.Set(viewerId, ids)
		return ids, nil
	})
	if err != nil {
		return nil, err
	}
	return value.([]string), nil
}

func (e *Engine) resolve(ctx context.Context, id string) (*models.Author, error) {
	return e.authors.ResolveAuthor(ctx, id)
}

func toFeedPost(post *models.Post, author models.Author) models.FeedPost {
	likes, replies := post.Likes, post.Replies
	if likes == nil {
		likes = []string{}
	}
	if replies == nil {
		replies = []string{}
	}
	return models.FeedPost{
		Id:         post.Id,
		Content:    post.Content,
		Visibility: post.Visibility,
		ParentId:   post.ParentId,
		CreatedAt:  post.CreatedAt,
		Likes:      likes,
		Replies:    replies,
		Author:     author,
	}
}

func storeFailure(err error) error {
	return apperrors.Wrap(apperrors.DependencyFailure, apperrors.DependencyFailure, err, "post store")
}
