package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"testing"
	"time"

	"donneur-go/internal/apperrors"
	"donneur-go/internal/database"
	"donneur-go/internal/models"

	"github.com/juju/clock/testclock"
	"github.com/juju/errors"
)

type mockGraph struct {
	friendIdsFunc        func(ctx context.Context, userId string) ([]string, error)
	getSubscriptionsFunc func(ctx context.Context, receiverId string) ([]string, error)
}

func (m *mockGraph) FriendIds(ctx context.Context, userId string) ([]string, error) {
	if m.friendIdsFunc == nil {
		return nil, nil
	}
	return m.friendIdsFunc(ctx, userId)
}

func (m *mockGraph) GetSubscriptions(ctx context.Context, receiverId string) ([]string, error) {
	if m.getSubscriptionsFunc == nil {
		return nil, nil
	}
	return m.getSubscriptionsFunc(ctx, receiverId)
}

type mockAuthors struct {
	known map[string]models.AuthorKind
}

func (m *mockAuthors) ResolveAuthor(_ context.Context, id string) (*models.Author, error) {
	kind, ok := m.known[id]
	if !ok {
		return nil, apperrors.New(apperrors.NotFound, apperrors.NotFound, "%s", id)
	}
	return &models.Author{Kind: kind, Id: id, Name: "name of " + id}, nil
}

type countingCache struct {
	*LRUCache
	sets int
}

func (c *countingCache) Set(viewerId string, ids []string) {
	c.sets++
	c.LRUCache.Set(viewerId, ids)
}

type testEngine struct {
	*Engine
	graph   *mockGraph
	authors *mockAuthors
	cache   *countingCache
	clock   *testclock.Clock
}

func setupTestEngine(t *testing.T, pageSize int) (*testEngine, func()) {
	t.Helper()
	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path: ":memory:", MaxOpenConns: 1, MaxIdleConns: 1, PingTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	lruCache, err := NewLRUCache(16)
	if err != nil {
		t.Fatalf("NewLRUCache failed: %v", err)
	}

	te := &testEngine{
		graph: &mockGraph{},
		authors: &mockAuthors{known: map[string]models.AuthorKind{
			"viewer":   models.AuthorReceiver,
			"friend":   models.AuthorReceiver,
			"stranger": models.AuthorReceiver,
			"shelter":  models.AuthorOrganization,
		}},
		cache: &countingCache{LRUCache: lruCache},
		clock: testclock.NewClock(base),
	}
	te.Engine = NewEngine(db, te.graph, te.authors, te.cache, te.clock, pageSize)
	return te, db.Close
}

func (te *testEngine) post(t *testing.T, authorId string, visibility models.Visibility) string {
	t.Helper()
	te.clock.Advance(time.Minute)
	post, err := te.CreatePost(context.Background(), authorId, json.RawMessage(`{"text":"hello"}`), string(visibility))
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	return post.Id
}

func postIds(posts []models.FeedPost) []string {
	out := make([]string, len(posts))
	for i, post := range posts {
		out[i] = post.Id
	}
	return out
}

func TestGetFeedInterleavesFollowedAndPublic(t *testing.T) {
	te, cleanup := setupTestEngine(t, 20)
	defer cleanup()
	ctx := context.Background()

	te.graph.friendIdsFunc = func(context.Context, string) ([]string, error) { return []string{"friend"}, nil }
	te.graph.getSubscriptionsFunc = func(context.Context, string) ([]string, error) { return []string{"shelter"}, nil }

	var followed []string
	for i := 0; i < 3; i++ {
		followed = append(followed, te.post(t, "friend", models.VisibilityFriends))
	}
	for i := 0; i < 3; i++ {
		followed = append(followed, te.post(t, "shelter", models.VisibilitySubscribers))
	}
	p2 := te.post(t, "stranger", models.VisibilityAll)
	p1 := te.post(t, "stranger", models.VisibilityAll)
	te.post(t, "stranger", models.VisibilityFriends)

	feed, err := te.GetFeed(ctx, "viewer", 0)
	if err != nil {
		t.Fatalf("GetFeed failed: %v", err)
	}

	expected := append(append(append([]string{}, followed[:5]...), p1, followed[5]), p2)
	got := postIds(feed)
	if fmt.Sprint(got) != fmt.Sprint(expected) {
		t.Errorf("Feed order = %v, want %v", got, expected)
	}
	if feed[0].Author.Id != "friend" || feed[0].Author.Kind != models.AuthorReceiver {
		t.Errorf("Expected resolved friend author, got %+v", feed[0].Author)
	}
	if feed[3].Author.Kind != models.AuthorOrganization {
		t.Errorf("Expected organization author, got %+v", feed[3].Author)
	}
}

func TestGetFeedSkipsViewerAndUnknownAuthors(t *testing.T) {
	te, cleanup := setupTestEngine(t, 20)
	defer cleanup()
	ctx := context.Background()

	te.post(t, "viewer", models.VisibilityAll)
	keep := te.post(t, "stranger", models.VisibilityAll)
	gone := te.post(t, "friend", models.VisibilityAll)
	delete(te.authors.known, "friend")

	feed, err := te.GetFeed(ctx, "viewer", 0)
	if err != nil {
		t.Fatalf("GetFeed failed: %v", err)
	}
	got := postIds(feed)
	if len(got) != 1 || got[0] != keep {
		t.Errorf("Expected only %s, got %v (skipped %s)", keep, got, gone)
	}
}

func TestGetFeedPagination(t *testing.T) {
	te, cleanup := setupTestEngine(t, 2)
	defer cleanup()
	ctx := context.Background()

	var all []string
	for i := 0; i < 5; i++ {
		all = append([]string{te.post(t, "stranger", models.VisibilityAll)}, all...)
	}

	page0, err := te.GetFeed(ctx, "viewer", 0)
	if err != nil {
		t.Fatalf("GetFeed(0) failed: %v", err)
	}
	page1, err := te.GetFeed(ctx, "viewer", 1)
	if err != nil {
		t.Fatalf("GetFeed(1) failed: %v", err)
	}
	page2, err := te.GetFeed(ctx, "viewer", 2)
	if err != nil {
		t.Fatalf("GetFeed(2) failed: %v", err)
	}
	page3, err := te.GetFeed(ctx, "viewer", 3)
	if err != nil {
		t.Fatalf("GetFeed(3) failed: %v", err)
	}

	got := append(append(postIds(page0), postIds(page1)...), postIds(page2)...)
	if fmt.Sprint(got) != fmt.Sprint(all) {
		t.Errorf("Pages = %v, want %v", got, all)
	}
	if len(page3) != 0 {
		t.Errorf("Expected empty page past the end, got %v", postIds(page3))
	}
	if te.cache.sets != 1 {
		t.Errorf("Expected one cache build for pages 0..3, got %d", te.cache.sets)
	}

	if _, err := te.GetFeed(ctx, "viewer", 0); err != nil {
		t.Fatalf("GetFeed(0) failed: %v", err)
	}
	if te.cache.sets != 2 {
		t.Errorf("Expected page 0 to rebuild the cache, got %d builds", te.cache.sets)
	}
}

func TestGetFeedCacheMissBuildsForLaterPage(t *testing.T) {
	te, cleanup := setupTestEngine(t, 1)
	defer cleanup()
	ctx := context.Background()

	older := te.post(t, "stranger", models.VisibilityAll)
	te.post(t, "stranger", models.VisibilityAll)

	page, err := te.GetFeed(ctx, "viewer", 1)
	if err != nil {
		t.Fatalf("GetFeed failed: %v", err)
	}
	if len(page) != 1 || page[0].Id != older {
		t.Fatalf("Expected %s on page 1, got %v", older, postIds(page))
	}
	if te.cache.sets != 1 {
		t.Errorf("Expected cache build on miss, got %d", te.cache.sets)
	}
}

func TestGetFeedPageBeyondEnd(t *testing.T) {
	te, cleanup := setupTestEngine(t, 20)
	defer cleanup()
	ctx := context.Background()

	te.post(t, "stranger", models.VisibilityAll)

	for _, page := range []int{1, math.MaxInt / 20, math.MaxInt/20 + 1, math.MaxInt} {
		feed, err := te.GetFeed(ctx, "viewer", page)
		if err != nil {
			t.Fatalf("GetFeed(page %d) failed: %v", page, err)
		}
		if len(feed) != 0 {
			t.Errorf("GetFeed(page %d) returned %d posts, want 0", page, len(feed))
		}
	}

	feed, err := te.GetFeed(ctx, "viewer", 0)
	if err != nil || len(feed) != 1 {
		t.Errorf("Expected the single public post on page 0, got %d, %v", len(feed), err)
	}
}

func TestGetFeedErrors(t *testing.T) {
	te, cleanup := setupTestEngine(t, 20)
	defer cleanup()
	ctx := context.Background()

	if _, err := te.GetFeed(ctx, "viewer", -1); !errors.Is(err, ErrInvalidPage) || !errors.Is(err, apperrors.InvalidInput) {
		t.Errorf("Expected ErrInvalidPage, got %v", err)
	}
	if _, err := te.GetFeed(ctx, "ghost", 0); !errors.Is(err, ErrUserNotFound) || !errors.Is(err, apperrors.NotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestNewRootPostInvalidatesAuthorFeed(t *testing.T) {
	te, cleanup := setupTestEngine(t, 20)
	defer cleanup()
	ctx := context.Background()

	if _, err := te.GetFeed(ctx, "viewer", 0); err != nil {
		t.Fatalf("GetFeed failed: %v", err)
	}
	if _, ok := te.cache.Get("viewer"); !ok {
		t.Fatal("Expected cached feed after page 0")
	}
	te.post(t, "viewer", models.VisibilityFriends)
	if _, ok := te.cache.Get("viewer"); ok {
		t.Error("Expected new post to invalidate the author's cached feed")
	}
}

func TestCreatePostValidation(t *testing.T) {
	te, cleanup := setupTestEngine(t, 20)
	defer cleanup()
	ctx := context.Background()
	content := json.RawMessage(`{"text":"hi"}`)

	if _, err := te.CreatePost(ctx, "viewer", content, "everyone"); !errors.Is(err, ErrInvalidVisibility) || !errors.Is(err, apperrors.InvalidInput) {
		t.Errorf("Expected ErrInvalidVisibility, got %v", err)
	}
	if _, err := te.CreatePost(ctx, "viewer", json.RawMessage(`{not json`), "all"); !errors.Is(err, ErrInvalidContent) {
		t.Errorf("Expected ErrInvalidContent, got %v", err)
	}
	if _, err := te.CreatePost(ctx, "ghost", content, "all"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
	if _, err := te.ReplyToPost(ctx, "viewer", "missing", content, "all"); !errors.Is(err, ErrPostNotFound) {
		t.Errorf("Expected ErrPostNotFound, got %v", err)
	}
}

func TestReplyLikeAndDelete(t *testing.T) {
	te, cleanup := setupTestEngine(t, 20)
	defer cleanup()
	ctx := context.Background()
	content := json.RawMessage(`{"text":"reply"}`)

	root := te.post(t, "friend", models.VisibilityAll)
	reply, err := te.ReplyToPost(ctx, "viewer", root, content, "all")
	if err != nil {
		t.Fatalf("ReplyToPost failed: %v", err)
	}
	nested, err := te.ReplyToPost(ctx, "friend", reply.Id, content, "all")
	if err != nil {
		t.Fatalf("ReplyToPost failed: %v", err)
	}

	if err := te.LikePost(ctx, "viewer", root); err != nil {
		t.Fatalf("LikePost failed: %v", err)
	}
	if err := te.LikePost(ctx, "viewer", root); !errors.Is(err, ErrAlreadyLiked) || !errors.Is(err, apperrors.AlreadyExists) {
		t.Errorf("Expected ErrAlreadyLiked, got %v", err)
	}

	post, err := te.GetPost(ctx, root)
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if len(post.Likes) != 1 || post.Likes[0] != "viewer" {
		t.Errorf("Expected viewer like, got %v", post.Likes)
	}
	if len(post.Replies) != 1 || post.Replies[0] != reply.Id {
		t.Errorf("Expected reply %s, got %v", reply.Id, post.Replies)
	}

	if err := te.UnlikePost(ctx, "viewer", root); err != nil {
		t.Fatalf("UnlikePost failed: %v", err)
	}
	if err := te.UnlikePost(ctx, "viewer", root); !errors.Is(err, ErrNotLiked) {
		t.Errorf("Expected ErrNotLiked, got %v", err)
	}

	if err := te.DeletePost(ctx, "viewer", root); !errors.Is(err, ErrNotAuthor) || !errors.Is(err, apperrors.Unauthorized) {
		t.Errorf("Expected Unauthorized delete, got %v", err)
	}
	if err := te.DeletePost(ctx, "friend", root); err != nil {
		t.Fatalf("DeletePost failed: %v", err)
	}
	for _, id := range []string{root, reply.Id, nested.Id} {
		if _, err := te.GetPost(ctx, id); !errors.Is(err, ErrPostNotFound) {
			t.Errorf("Expected %s deleted, got %v", id, err)
		}
	}

	feed, err := te.GetFeed(ctx, "viewer", 0)
	if err != nil {
		t.Fatalf("GetFeed failed: %v", err)
	}
	if len(feed) != 0 {
		t.Errorf("Expected deleted post out of the public feed, got %v", postIds(feed))
	}
}

func TestGetUserPosts(t *testing.T) {
	te, cleanup := setupTestEngine(t, 20)
	defer cleanup()
	ctx := context.Background()

	first := te.post(t, "shelter", models.VisibilitySubscribers)
	second := te.post(t, "shelter", models.VisibilityAll)
	if _, err := te.ReplyToPost(ctx, "shelter", first, json.RawMessage(`"thanks"`), "all"); err != nil {
		t.Fatalf("ReplyToPost failed: %v", err)
	}

	posts, err := te.GetUserPosts(ctx, "shelter")
	if err != nil {
		t.Fatalf("GetUserPosts failed: %v", err)
	}
	if got := postIds(posts); fmt.Sprint(got) != fmt.Sprint([]string{first, second}) {
		t.Errorf("GetUserPosts = %v, want [%s %s]", got, first, second)
	}
	if posts[0].Author.Kind != models.AuthorOrganization {
		t.Errorf("Expected organization author, got %+v", posts[0].Author)
	}

	if _, err := te.GetUserPosts(ctx, "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}
