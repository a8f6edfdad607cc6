// Package storetest holds a compliance suite run against every
// store.Store implementation.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/carebridge/carebridge/internal/model"
	"github.com/carebridge/carebridge/internal/store"
)

// Run exercises the store contract. Implementations should return a
// clean, isolated store from makeStore.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()

	userID := "u-" + uuid.New().String()

	// Users: upsert, counters with missing-parent tolerance.
	if _, err := s.Users().Upsert(ctx, &model.User{UserID: userID, Email: userID + "@example.test"}); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	if err := s.Users().AdjustCounts(ctx, userID, 1, 0); err != nil {
		t.Fatalf("AdjustCounts: %v", err)
	}
	orphan := "u-" + uuid.New().String()
	if err := s.Users().AdjustCounts(ctx, orphan, 1, 2); err != nil {
		t.Fatalf("AdjustCounts on absent user must not fail: %v", err)
	}
	if got, err := s.Users().Get(ctx, orphan); err != nil || got.ProfileCount != 1 || got.TaskCount != 2 {
		t.Fatalf("orphan counters: got=%+v err=%v", got, err)
	}

	// Profiles: ID is the phone number, so create-twice is an upsert.
	// The number is unique per run so the suite can share a database.
	phone := fmt.Sprintf("+1555%07d", time.Now().UnixNano()%10_000_000)
	p := &model.Profile{ProfileID: phone, UserID: userID, Name: "Grandma", PhoneNumber: phone, Status: model.ProfilePendingConfirmation}
	if _, err := s.Profiles().Upsert(ctx, p); err != nil {
		t.Fatalf("UpsertProfile: %v", err)
	}
	p.Name = "Grandma Rose"
	if _, err := s.Profiles().Upsert(ctx, p); err != nil {
		t.Fatalf("UpsertProfile again: %v", err)
	}
	if lst, err := s.Profiles().List(ctx, userID); err != nil || len(lst) != 1 || lst[0].Name != "Grandma Rose" {
		t.Fatalf("ListProfiles after double upsert: n=%d err=%v", len(lst), err)
	}
	if got, err := s.Profiles().GetByPhone(ctx, phone); err != nil || got.ProfileID != phone {
		t.Fatalf("GetByPhone: got=%v err=%v", got, err)
	}
	if _, err := s.Profiles().GetByPhone(ctx, "+15550000000"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetByPhone missing: %v", err)
	}

	// Tasks: due and deadline queries.
	now := time.Now().UTC().Truncate(time.Second)
	task := &model.Task{
		TaskID:          uuid.New().String(),
		UserID:          userID,
		ProfileID:       phone,
		Title:           "Morning pills",
		Schedule:        model.Schedule{Hour: 9},
		Status:          model.TaskActive,
		NextScheduledAt: now.Add(-time.Minute),
	}
	if _, err := s.Tasks().Upsert(ctx, task); err != nil {
		t.Fatalf("UpsertTask: %v", err)
	}
	due, err := s.Tasks().ListDue(ctx, now, 10)
	if err != nil || len(due) != 1 {
		t.Fatalf("ListDue: n=%d err=%v", len(due), err)
	}
	dispatched := now
	task.LastDispatchedAt = &dispatched
	if _, err := s.Tasks().Upsert(ctx, task); err != nil {
		t.Fatalf("UpsertTask dispatched: %v", err)
	}
	if due, err = s.Tasks().ListDue(ctx, now, 10); err != nil || len(due) != 0 {
		t.Fatalf("ListDue after dispatch: n=%d err=%v", len(due), err)
	}
	elapsed, err := s.Tasks().ListDeadlineElapsed(ctx, now.Add(time.Minute), 10)
	if err != nil || len(elapsed) != 1 {
		t.Fatalf("ListDeadlineElapsed: n=%d err=%v", len(elapsed), err)
	}
	completed := now.Add(2 * time.Minute)
	task.LastCompletedAt = &completed
	if _, err := s.Tasks().Upsert(ctx, task); err != nil {
		t.Fatalf("UpsertTask completed: %v", err)
	}
	if elapsed, err = s.Tasks().ListDeadlineElapsed(ctx, now.Add(time.Minute), 10); err != nil || len(elapsed) != 0 {
		t.Fatalf("ListDeadlineElapsed after completion: n=%d err=%v", len(elapsed), err)
	}

	// Messages: create-only, conflict on replayed provider ID.
	msg := &model.Message{MessageID: "SM-" + uuid.New().String(), UserID: userID, ProfileID: phone, Body: "yes", ReceivedAt: now}
	if _, err := s.Messages().Create(ctx, msg); err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	if _, err := s.Messages().Create(ctx, msg); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("CreateMessage replay: want ErrConflict, got %v", err)
	}
	if got, err := s.Messages().Get(ctx, userID, msg.MessageID); err != nil || got.MessageID != msg.MessageID {
		t.Fatalf("GetMessage: got=%v err=%v", got, err)
	}
	if _, err := s.Messages().Get(ctx, "u-"+uuid.New().String(), msg.MessageID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetMessage wrong owner: want ErrNotFound, got %v", err)
	}
	for i := 0; i < 120; i++ {
		extra := &model.Message{MessageID: "SM-" + uuid.New().String(), UserID: userID, ProfileID: phone, Body: "ok", ReceivedAt: now.Add(time.Duration(i+1) * time.Second)}
		if _, err := s.Messages().Create(ctx, extra); err != nil {
			t.Fatalf("CreateMessage extra: %v", err)
		}
	}
	// A non-positive limit means the full set, with no hidden cap;
	// resync snapshots depend on every driver honoring that.
	if lst, err := s.Messages().ListByProfile(ctx, userID, phone, 0); err != nil || len(lst) != 121 {
		t.Fatalf("ListMessages unlimited: n=%d err=%v", len(lst), err)
	}
	if lst, err := s.Messages().ListByProfile(ctx, userID, phone, 2); err != nil || len(lst) != 2 {
		t.Fatalf("ListMessages limited: n=%d err=%v", len(lst), err)
	}

	// Gallery events: create-only, conflict on same event ID.
	ev := &model.GalleryEvent{EventID: uuid.New().String(), UserID: userID, ProfileID: phone, EventType: model.GalleryProfileCreated}
	if _, err := s.GalleryEvents().Create(ctx, ev); err != nil {
		t.Fatalf("CreateGalleryEvent: %v", err)
	}
	if _, err := s.GalleryEvents().Create(ctx, ev); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("CreateGalleryEvent replay: want ErrConflict, got %v", err)
	}
	ev2 := &model.GalleryEvent{EventID: uuid.New().String(), UserID: userID, ProfileID: phone, EventType: model.GalleryTaskResponse, CreationTime: now.Add(time.Second)}
	if _, err := s.GalleryEvents().Create(ctx, ev2); err != nil {
		t.Fatalf("CreateGalleryEvent second: %v", err)
	}
	if lst, err := s.GalleryEvents().List(ctx, userID, 0); err != nil || len(lst) != 2 {
		t.Fatalf("ListGalleryEvents unlimited: n=%d err=%v", len(lst), err)
	}
	if lst, err := s.GalleryEvents().List(ctx, userID, 1); err != nil || len(lst) != 1 {
		t.Fatalf("ListGalleryEvents limited: n=%d err=%v", len(lst), err)
	}

	// Profile delete cascades.
	if err := s.Profiles().Delete(ctx, userID, phone); err != nil {
		t.Fatalf("DeleteProfile: %v", err)
	}
	if lst, _ := s.Tasks().ListByProfile(ctx, phone); len(lst) != 0 {
		t.Fatalf("tasks should cascade on profile delete, n=%d", len(lst))
	}
	if lst, _ := s.Messages().ListByProfile(ctx, userID, phone, 0); len(lst) != 0 {
		t.Fatalf("messages should cascade on profile delete, n=%d", len(lst))
	}
	if lst, _ := s.GalleryEvents().List(ctx, userID, 0); len(lst) != 0 {
		t.Fatalf("gallery events should cascade on profile delete, n=%d", len(lst))
	}
}
