package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"donneur-go/internal/models"
	"donneur-go/internal/store"
)

func TestFriendshipLifecycle(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now().UTC()

	friendship := &models.Friendship{Id: "f1", User1: "alice", User2: "bob", CreatedAt: now}
	if err := service.CreateFriendship(ctx, friendship); err != nil {
		t.Fatalf("CreateFriendship failed: %v", err)
	}

	found, err := service.FindFriendshipBetween(ctx, "bob", "alice")
	if err != nil {
		t.Fatalf("FindFriendshipBetween failed: %v", err)
	}
	if found.Id != "f1" || found.Confirmed() {
		t.Errorf("Expected pending f1, got %+v", found)
	}

	if err := service.AcceptFriendship(ctx, "f1", now); err != nil {
		t.Fatalf("AcceptFriendship failed: %v", err)
	}
	if err := service.AcceptFriendship(ctx, "f1", now); !errors.Is(err, store.ErrFriendshipConfirmed) {
		t.Fatalf("Expected ErrFriendshipConfirmed, got %v", err)
	}
	if err := service.AcceptFriendship(ctx, "nope", now); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	list, err := service.ListFriendships(ctx, "bob")
	if err != nil {
		t.Fatalf("ListFriendships failed: %v", err)
	}
	if len(list) != 1 || !list[0].Confirmed() {
		t.Errorf("Expected one confirmed friendship, got %+v", list)
	}

	if err := service.DeleteFriendship(ctx, "f1"); err != nil {
		t.Fatalf("DeleteFriendship failed: %v", err)
	}
	if _, err := service.FindFriendshipBetween(ctx, "alice", "bob"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestSubscriptionsAreIdempotent(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := service.Subscribe(ctx, "r1", "org-b"); err != nil {
			t.Fatalf("Subscribe failed: %v", err)
		}
	}
	_ = service.Subscribe(ctx, "r1", "org-a")

	subs, err := service.ListSubscriptions(ctx, "r1")
	if err != nil {
		t.Fatalf("ListSubscriptions failed: %v", err)
	}
	if len(subs) != 2 || subs[0] != "org-a" || subs[1] != "org-b" {
		t.Errorf("Unexpected subscriptions %v", subs)
	}

	for i := 0; i < 2; i++ {
		if err := service.Unsubscribe(ctx, "r1", "org-b"); err != nil {
			t.Fatalf("Unsubscribe failed: %v", err)
		}
	}
	subs, _ = service.ListSubscriptions(ctx, "r1")
	if len(subs) != 1 {
		t.Errorf("Expected one subscription, got %v", subs)
	}
}

func TestGrantAppAccess(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()
	ctx := context.Background()

	receiverId := createTestReceiver(t, service, "0")

	if err := service.GrantAppAccess(ctx, receiverId, "uid-1"); err != nil {
		t.Fatalf("GrantAppAccess failed: %v", err)
	}
	if err := service.GrantAppAccess(ctx, receiverId, "uid-2"); !errors.Is(err, store.ErrAlreadyHasApp) {
		t.Fatalf("Expected ErrAlreadyHasApp, got %v", err)
	}
	if err := service.GrantAppAccess(ctx, "missing", "uid-3"); !errors.Is(err, store.ErrReceiverNotFound) {
		t.Fatalf("Expected ErrReceiverNotFound, got %v", err)
	}

	user, err := service.GetUser(ctx, "uid-1")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if user.InternalId != receiverId || user.Role != models.RoleReceiver {
		t.Errorf("Unexpected user mapping %+v", user)
	}

	receiver, _ := service.GetReceiver(ctx, receiverId)
	if !receiver.HasAppAccess {
		t.Error("Expected has_app_access to be set")
	}
}

func TestOrganizationRoundTrip(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()
	ctx := context.Background()

	max := 25
	org, err := service.CreateOrganization(ctx, store.CreateOrganizationParams{
		Name:         "Shelter",
		Address:      models.Address{Street: "1 Main", City: "Montreal", Province: "QC", PostalCode: "H1H 1H1", Country: "CA"},
		MaxOccupancy: &max,
	})
	if err != nil {
		t.Fatalf("CreateOrganization failed: %v", err)
	}

	if err := service.SetOccupancy(ctx, org.Id, 10); err != nil {
		t.Fatalf("SetOccupancy failed: %v", err)
	}

	stored, err := service.GetOrganization(ctx, org.Id)
	if err != nil {
		t.Fatalf("GetOrganization failed: %v", err)
	}
	if stored.Occupancy != 10 || stored.MaxOccupancy == nil || *stored.MaxOccupancy != 25 {
		t.Errorf("Unexpected organization %+v", stored)
	}
	if stored.Address.Latitude != nil {
		t.Errorf("Expected no coordinates, got %v", *stored.Address.Latitude)
	}
	if err := service.SetOccupancy(ctx, "missing", 1); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}
