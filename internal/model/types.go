package model

import "time"

// ProfileStatus tracks the confirmation lifecycle of a care recipient.
type ProfileStatus string

const (
	ProfilePendingConfirmation ProfileStatus = "PENDING_CONFIRMATION"
	ProfileConfirmed           ProfileStatus = "CONFIRMED"
	ProfileInactive            ProfileStatus = "INACTIVE"
)

// TaskStatus tracks whether a reminder definition is eligible for dispatch.
type TaskStatus string

const (
	TaskActive   TaskStatus = "ACTIVE"
	TaskPaused   TaskStatus = "PAUSED"
	TaskArchived TaskStatus = "ARCHIVED"
)

// GalleryEventType distinguishes the two derived history records.
type GalleryEventType string

const (
	GalleryProfileCreated GalleryEventType = "PROFILE_CREATED"
	GalleryTaskResponse   GalleryEventType = "TASK_RESPONSE"
)

// User represents a caregiver account. The ID is issued by the auth
// provider and is never generated here. ProfileCount and TaskCount are
// denormalized counters maintained with upsert semantics so a counter
// bump never fails on a momentarily absent row.
type User struct {
	UserID             string    `json:"userId"`
	Email              string    `json:"email"`
	SubscriptionStatus string    `json:"subscriptionStatus"`
	ProfileCount       int       `json:"profileCount"`
	TaskCount          int       `json:"taskCount"`
	CreationTime       time.Time `json:"creationTime"`
}

// Profile represents an elderly care recipient. The ID is the recipient's
// E.164-normalized phone number, which makes profile creation naturally
// idempotent: creating "the same" profile twice is an upsert.
type Profile struct {
	ProfileID    string        `json:"profileId"`
	UserID       string        `json:"userId"`
	Name         string        `json:"name"`
	PhoneNumber  string        `json:"phoneNumber"`
	Relationship string        `json:"relationship,omitempty"`
	Status       ProfileStatus `json:"status"`
	ConfirmedAt  *time.Time    `json:"confirmedAt,omitempty"`
	CreationTime time.Time     `json:"creationTime"`
}

// Schedule is a recurring days-of-week + time-of-day rule.
// An empty Days slice means every day.
type Schedule struct {
	Days   []time.Weekday `json:"days,omitempty"`
	Hour   int            `json:"hour"`
	Minute int            `json:"minute"`
}

// Task is a recurring reminder definition owned by a Profile.
type Task struct {
	TaskID           string     `json:"taskId"`
	UserID           string     `json:"userId"`
	ProfileID        string     `json:"profileId"`
	Title            string     `json:"title"`
	Schedule         Schedule   `json:"schedule"`
	Status           TaskStatus `json:"status"`
	NextScheduledAt  time.Time  `json:"nextScheduledAt"`
	LastDispatchedAt *time.Time `json:"lastDispatchedAt,omitempty"`
	LastCompletedAt  *time.Time `json:"lastCompletedAt,omitempty"`
	CompletionCount  int        `json:"completionCount"`
	Overdue          bool       `json:"overdue"`
	DeadlineMinutes  int        `json:"deadlineMinutes,omitempty"`
	CreationTime     time.Time  `json:"creationTime"`
}

// Message is an immutable record of one inbound SMS. The ID is the
// provider message SID when available, else a UUID; provider-issued IDs
// are what makes at-least-once webhook delivery safe to deduplicate.
type Message struct {
	MessageID      string     `json:"messageId"`
	UserID         string     `json:"userId"`
	ProfileID      string     `json:"profileId"`
	TaskID         *string    `json:"taskId,omitempty"`
	Body           string     `json:"body"`
	PhotoURL       *string    `json:"photoUrl,omitempty"`
	IsConfirmation bool       `json:"isConfirmation"`
	IsPositive     bool       `json:"isPositive"`
	IsCompleted    bool       `json:"isCompleted"`
	Score          float64    `json:"score"`
	ReceivedAt     time.Time  `json:"receivedAt"`
}

// GalleryEvent is a derived, display-oriented record of a profile
// confirmation or a task completion. Create-only; never emitted twice
// for the same logical occurrence.
type GalleryEvent struct {
	EventID      string           `json:"eventId"`
	UserID       string           `json:"userId"`
	ProfileID    string           `json:"profileId"`
	EventType    GalleryEventType `json:"eventType"`
	TaskID       *string          `json:"taskId,omitempty"`
	MessageID    *string          `json:"messageId,omitempty"`
	PhotoURL     *string          `json:"photoUrl,omitempty"`
	CreationTime time.Time        `json:"creationTime"`
}
