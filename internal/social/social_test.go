package social

import (
	"context"
	"testing"
	"time"

	"donneur-go/internal/apperrors"
	"donneur-go/internal/database"
	"donneur-go/internal/models"
	"donneur-go/internal/store"

	"github.com/juju/clock/testclock"
	"github.com/juju/errors"
)

type recordingInvalidator struct {
	invalidated []string
}

func (r *recordingInvalidator) Invalidate(viewerId string) {
	r.invalidated = append(r.invalidated, viewerId)
}

func setupTestService(t *testing.T) (*Service, *database.Service, *recordingInvalidator, func()) {
	t.Helper()
	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path: ":memory:", MaxOpenConns: 1, MaxIdleConns: 1, PingTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	service := NewService(db, db, db, db, testclock.NewClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	invalidator := &recordingInvalidator{}
	service.SetInvalidator(invalidator)
	return service, db, invalidator, db.Close
}

func newReceiver(t *testing.T, db *database.Service, name string) string {
	t.Helper()
	r, err := db.CreateReceiver(context.Background(), store.CreateReceiverParams{FirstName: name, LastName: "T", DateOfBirth: "01-01-1980"})
	if err != nil {
		t.Fatalf("CreateReceiver failed: %v", err)
	}
	return r.Id
}

func TestAddFriendRules(t *testing.T) {
	service, db, _, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()
	a, b := newReceiver(t, db, "a"), newReceiver(t, db, "b")

	if _, err := service.AddFriend(ctx, a, a); !errors.Is(err, ErrCannotBefriendSelf) {
		t.Errorf("Expected ErrCannotBefriendSelf, got %v", err)
	}
	if _, err := service.AddFriend(ctx, a, "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}

	friendship, err := service.AddFriend(ctx, a, b)
	if err != nil {
		t.Fatalf("AddFriend failed: %v", err)
	}
	if friendship.User1 != a || friendship.User2 != b || friendship.Confirmed() {
		t.Errorf("Unexpected friendship %+v", friendship)
	}

	if _, err := service.AddFriend(ctx, a, b); !errors.Is(err, ErrAlreadyFriends) {
		t.Errorf("Expected ErrAlreadyFriends, got %v", err)
	}
	if _, err := service.AddFriend(ctx, b, a); !errors.Is(err, ErrAlreadyFriends) {
		t.Errorf("Expected ErrAlreadyFriends for reverse pair, got %v", err)
	}
}

func TestReplyToRequest(t *testing.T) {
	service, db, invalidator, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()
	a, b := newReceiver(t, db, "a"), newReceiver(t, db, "b")

	friendship, _ := service.AddFriend(ctx, a, b)

	if err := service.ReplyToRequest(ctx, a, friendship.Id, true); !errors.Is(err, apperrors.Unauthorized) {
		t.Errorf("Requester must not accept, got %v", err)
	}
	if err := service.ReplyToRequest(ctx, b, "nope", true); !errors.Is(err, ErrFriendshipNotFound) {
		t.Errorf("Expected ErrFriendshipNotFound, got %v", err)
	}

	if err := service.ReplyToRequest(ctx, b, friendship.Id, true); err != nil {
		t.Fatalf("ReplyToRequest failed: %v", err)
	}
	if err := service.ReplyToRequest(ctx, b, friendship.Id, true); !errors.Is(err, ErrAlreadyFriends) {
		t.Errorf("Expected ErrAlreadyFriends, got %v", err)
	}
	if len(invalidator.invalidated) != 2 {
		t.Errorf("Expected both feeds invalidated, got %v", invalidator.invalidated)
	}

	aFriends, _ := service.FriendIds(ctx, a)
	if len(aFriends) != 1 || aFriends[0] != b {
		t.Errorf("Unexpected friends for a: %v", aFriends)
	}
}

func TestDeclineDeletesEdge(t *testing.T) {
	service, db, _, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()
	a, b := newReceiver(t, db, "a"), newReceiver(t, db, "b")

	friendship, _ := service.AddFriend(ctx, a, b)
	if err := service.ReplyToRequest(ctx, b, friendship.Id, false); err != nil {
		t.Fatalf("Decline failed: %v", err)
	}
	if _, err := service.AddFriend(ctx, a, b); err != nil {
		t.Errorf("Expected a new request to be possible after decline, got %v", err)
	}
}

func TestGetFriendsPartitions(t *testing.T) {
	service, db, _, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()
	me, x, y, z := newReceiver(t, db, "me"), newReceiver(t, db, "x"), newReceiver(t, db, "y"), newReceiver(t, db, "z")

	incoming, _ := service.AddFriend(ctx, x, me)
	_, _ = service.AddFriend(ctx, me, y)
	confirmed, _ := service.AddFriend(ctx, z, me)
	_ = service.ReplyToRequest(ctx, me, confirmed.Id, true)

	list, err := service.GetFriends(ctx, me)
	if err != nil {
		t.Fatalf("GetFriends failed: %v", err)
	}
	if len(list.Requests) != 1 || list.Requests[0].FriendshipId != incoming.Id || list.Requests[0].UserId != x {
		t.Errorf("Unexpected requests %+v", list.Requests)
	}
	if len(list.Friends) != 1 || list.Friends[0].UserId != z {
		t.Errorf("Unexpected friends %+v", list.Friends)
	}
}

func TestRemoveFriend(t *testing.T) {
	service, db, _, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()
	a, b, c := newReceiver(t, db, "a"), newReceiver(t, db, "b"), newReceiver(t, db, "c")

	friendship, _ := service.AddFriend(ctx, a, b)
	if err := service.RemoveFriend(ctx, c, friendship.Id); !errors.Is(err, apperrors.Unauthorized) {
		t.Errorf("Expected Unauthorized, got %v", err)
	}
	if err := service.RemoveFriend(ctx, a, friendship.Id); err != nil {
		t.Fatalf("RemoveFriend failed: %v", err)
	}
	if err := service.RemoveFriend(ctx, a, friendship.Id); !errors.Is(err, ErrFriendshipNotFound) {
		t.Errorf("Expected ErrFriendshipNotFound, got %v", err)
	}
}

func TestSubscriptions(t *testing.T) {
	service, db, invalidator, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()
	r := newReceiver(t, db, "r")
	org, _ := db.CreateOrganization(ctx, store.CreateOrganizationParams{Name: "Shelter"})

	if err := service.Subscribe(ctx, r, "ghost"); !errors.Is(err, ErrOrganizationNotFound) {
		t.Errorf("Expected ErrOrganizationNotFound, got %v", err)
	}
	if err := service.Subscribe(ctx, "ghost", org.Id); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := service.Subscribe(ctx, r, org.Id); err != nil {
			t.Fatalf("Subscribe failed: %v", err)
		}
	}
	subs, _ := service.GetSubscriptions(ctx, r)
	if len(subs) != 1 || subs[0] != org.Id {
		t.Errorf("Unexpected subscriptions %v", subs)
	}

	if err := service.Unsubscribe(ctx, r, org.Id); err != nil {
		t.Fatalf("Unsubscribe failed: %v", err)
	}
	subs, _ = service.GetSubscriptions(ctx, r)
	if len(subs) != 0 {
		t.Errorf("Expected no subscriptions, got %v", subs)
	}
	if len(invalidator.invalidated) != 3 {
		t.Errorf("Expected 3 invalidations, got %v", invalidator.invalidated)
	}
}
