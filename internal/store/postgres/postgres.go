package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/carebridge/carebridge/internal/model"
	"github.com/carebridge/carebridge/internal/store"
)

// Open opens a PostgreSQL connection using the pgx stdlib driver and
// verifies connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// EnsureSchema applies the idempotent DDL. Safe to call repeatedly.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schemaDDL)
	return err
}

// NewWithDB constructs a Postgres store backed directly by database/sql.
func NewWithDB(db *sql.DB) store.Store { return &pgStore{db: db} }

type pgStore struct{ db *sql.DB }

func (s *pgStore) Users() store.Users                 { return &users{db: s.db} }
func (s *pgStore) Profiles() store.Profiles           { return &profiles{db: s.db} }
func (s *pgStore) Tasks() store.Tasks                 { return &tasks{db: s.db} }
func (s *pgStore) Messages() store.Messages           { return &messages{db: s.db} }
func (s *pgStore) GalleryEvents() store.GalleryEvents { return &gallery{db: s.db} }

// HealthPing implements health.HealthPinger for the Postgres-backed store.
func (s *pgStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- Users ---

type users struct{ db *sql.DB }

func (u *users) Get(ctx context.Context, userID string) (*model.User, error) {
	var out model.User
	row := u.db.QueryRowContext(ctx, `
        SELECT user_id, email, subscription_status, profile_count, task_count, creation_time
        FROM users WHERE user_id=$1
    `, userID)
	if err := row.Scan(&out.UserID, &out.Email, &out.SubscriptionStatus, &out.ProfileCount, &out.TaskCount, &out.CreationTime); err != nil {
		return nil, mapNoRows(err)
	}
	return &out, nil
}

func (u *users) Upsert(ctx context.Context, m *model.User) (*model.User, error) {
	var out model.User
	row := u.db.QueryRowContext(ctx, `
        INSERT INTO users (user_id, email, subscription_status)
        VALUES ($1,$2,$3)
        ON CONFLICT (user_id) DO UPDATE
        SET email=EXCLUDED.email, subscription_status=EXCLUDED.subscription_status
        RETURNING user_id, email, subscription_status, profile_count, task_count, creation_time
    `, m.UserID, m.Email, m.SubscriptionStatus)
	if err := row.Scan(&out.UserID, &out.Email, &out.SubscriptionStatus, &out.ProfileCount, &out.TaskCount, &out.CreationTime); err != nil {
		return nil, err
	}
	return &out, nil
}

func (u *users) AdjustCounts(ctx context.Context, userID string, profileDelta, taskDelta int) error {
	// Counter bumps must survive a momentarily absent user row, so this
	// is an upsert rather than a strict UPDATE.
	_, err := u.db.ExecContext(ctx, `
        INSERT INTO users (user_id, profile_count, task_count)
        VALUES ($1, GREATEST($2,0), GREATEST($3,0))
        ON CONFLICT (user_id) DO UPDATE
        SET profile_count=GREATEST(users.profile_count + $2, 0),
            task_count=GREATEST(users.task_count + $3, 0)
    `, userID, profileDelta, taskDelta)
	return err
}

func (u *users) Delete(ctx context.Context, userID string) error {
	res, err := u.db.ExecContext(ctx, `DELETE FROM users WHERE user_id=$1`, userID)
	if err != nil {
		return err
	}
	return requireRows(res)
}

// --- Profiles ---

type profiles struct{ db *sql.DB }

const profileColumns = `profile_id, user_id, name, phone_number, relationship, status, confirmed_at, creation_time`

func scanProfile(row interface{ Scan(...interface{}) error }) (*model.Profile, error) {
	var out model.Profile
	var status string
	if err := row.Scan(&out.ProfileID, &out.UserID, &out.Name, &out.PhoneNumber, &out.Relationship, &status, &out.ConfirmedAt, &out.CreationTime); err != nil {
		return nil, mapNoRows(err)
	}
	out.Status = model.ProfileStatus(status)
	return &out, nil
}

func (p *profiles) Get(ctx context.Context, userID, profileID string) (*model.Profile, error) {
	row := p.db.QueryRowContext(ctx, `
        SELECT `+profileColumns+` FROM profiles WHERE user_id=$1 AND profile_id=$2
    `, userID, profileID)
	return scanProfile(row)
}

func (p *profiles) GetByPhone(ctx context.Context, phone string) (*model.Profile, error) {
	row := p.db.QueryRowContext(ctx, `
        SELECT `+profileColumns+` FROM profiles WHERE phone_number=$1
    `, phone)
	return scanProfile(row)
}

func (p *profiles) Upsert(ctx context.Context, m *model.Profile) (*model.Profile, error) {
	row := p.db.QueryRowContext(ctx, `
        INSERT INTO profiles (profile_id, user_id, name, phone_number, relationship, status, confirmed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (profile_id) DO UPDATE
        SET name=EXCLUDED.name, relationship=EXCLUDED.relationship,
            status=EXCLUDED.status, confirmed_at=EXCLUDED.confirmed_at
        RETURNING `+profileColumns+`
    `, m.ProfileID, m.UserID, m.Name, m.PhoneNumber, m.Relationship, string(m.Status), m.ConfirmedAt)
	return scanProfile(row)
}

func (p *profiles) List(ctx context.Context, userID string) ([]*model.Profile, error) {
	rows, err := p.db.QueryContext(ctx, `
        SELECT `+profileColumns+` FROM profiles WHERE user_id=$1 ORDER BY creation_time
    `, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Profile
	for rows.Next() {
		m, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (p *profiles) Delete(ctx context.Context, userID, profileID string) error {
	// Tasks, messages and gallery events cascade via foreign keys.
	res, err := p.db.ExecContext(ctx, `
        DELETE FROM profiles WHERE user_id=$1 AND profile_id=$2
    `, userID, profileID)
	if err != nil {
		return err
	}
	return requireRows(res)
}

// --- Tasks ---

type tasks struct{ db *sql.DB }

const taskColumns = `task_id, user_id, profile_id, title, schedule, status, next_scheduled_at,
        last_dispatched_at, last_completed_at, completion_count, overdue, deadline_minutes, creation_time`

func scanTask(row interface{ Scan(...interface{}) error }) (*model.Task, error) {
	var out model.Task
	var status string
	var sched []byte
	if err := row.Scan(&out.TaskID, &out.UserID, &out.ProfileID, &out.Title, &sched, &status,
		&out.NextScheduledAt, &out.LastDispatchedAt, &out.LastCompletedAt,
		&out.CompletionCount, &out.Overdue, &out.DeadlineMinutes, &out.CreationTime); err != nil {
		return nil, mapNoRows(err)
	}
	out.Status = model.TaskStatus(status)
	if err := json.Unmarshal(sched, &out.Schedule); err != nil {
		return nil, fmt.Errorf("task %s: bad schedule payload: %w", out.TaskID, err)
	}
	return &out, nil
}

func (t *tasks) Get(ctx context.Context, userID, taskID string) (*model.Task, error) {
	row := t.db.QueryRowContext(ctx, `
        SELECT `+taskColumns+` FROM tasks WHERE user_id=$1 AND task_id=$2
    `, userID, taskID)
	return scanTask(row)
}

func (t *tasks) Upsert(ctx context.Context, m *model.Task) (*model.Task, error) {
	sched, err := json.Marshal(m.Schedule)
	if err != nil {
		return nil, err
	}
	row := t.db.QueryRowContext(ctx, `
        INSERT INTO tasks (task_id, user_id, profile_id, title, schedule, status, next_scheduled_at,
                           last_dispatched_at, last_completed_at, completion_count, overdue, deadline_minutes)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        ON CONFLICT (task_id) DO UPDATE
        SET title=EXCLUDED.title, schedule=EXCLUDED.schedule, status=EXCLUDED.status,
            next_scheduled_at=EXCLUDED.next_scheduled_at,
            last_dispatched_at=EXCLUDED.last_dispatched_at,
            last_completed_at=EXCLUDED.last_completed_at,
            completion_count=EXCLUDED.completion_count,
            overdue=EXCLUDED.overdue, deadline_minutes=EXCLUDED.deadline_minutes
        RETURNING `+taskColumns+`
    `, m.TaskID, m.UserID, m.ProfileID, m.Title, sched, string(m.Status), m.NextScheduledAt,
		m.LastDispatchedAt, m.LastCompletedAt, m.CompletionCount, m.Overdue, m.DeadlineMinutes)
	return scanTask(row)
}

func (t *tasks) List(ctx context.Context, userID string) ([]*model.Task, error) {
	return t.query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE user_id=$1 ORDER BY creation_time`, userID)
}

func (t *tasks) ListByProfile(ctx context.Context, profileID string) ([]*model.Task, error) {
	return t.query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE profile_id=$1 ORDER BY creation_time`, profileID)
}

func (t *tasks) ListDue(ctx context.Context, now time.Time, limit int) ([]*model.Task, error) {
	return t.query(ctx, `
        SELECT `+taskColumns+` FROM tasks
        WHERE status='ACTIVE' AND next_scheduled_at <= $1
          AND (last_dispatched_at IS NULL OR last_dispatched_at < next_scheduled_at)
        ORDER BY next_scheduled_at
        LIMIT $2
    `, now, limitArg(limit))
}

func (t *tasks) ListDeadlineElapsed(ctx context.Context, cutoff time.Time, limit int) ([]*model.Task, error) {
	return t.query(ctx, `
        SELECT `+taskColumns+` FROM tasks
        WHERE status='ACTIVE' AND last_dispatched_at IS NOT NULL AND last_dispatched_at <= $1
          AND (last_completed_at IS NULL OR last_completed_at < last_dispatched_at)
        ORDER BY last_dispatched_at
        LIMIT $2
    `, cutoff, limitArg(limit))
}

func (t *tasks) query(ctx context.Context, q string, args ...interface{}) ([]*model.Task, error) {
	rows, err := t.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Task
	for rows.Next() {
		m, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (t *tasks) Delete(ctx context.Context, userID, taskID string) error {
	res, err := t.db.ExecContext(ctx, `DELETE FROM tasks WHERE user_id=$1 AND task_id=$2`, userID, taskID)
	if err != nil {
		return err
	}
	return requireRows(res)
}

// --- Messages ---

type messages struct{ db *sql.DB }

const messageColumns = `message_id, user_id, profile_id, task_id, body, photo_url,
        is_confirmation, is_positive, is_completed, score, received_at`

func scanMessage(row interface{ Scan(...interface{}) error }) (*model.Message, error) {
	var out model.Message
	if err := row.Scan(&out.MessageID, &out.UserID, &out.ProfileID, &out.TaskID, &out.Body, &out.PhotoURL,
		&out.IsConfirmation, &out.IsPositive, &out.IsCompleted, &out.Score, &out.ReceivedAt); err != nil {
		return nil, mapNoRows(err)
	}
	return &out, nil
}

func (ms *messages) Create(ctx context.Context, m *model.Message) (*model.Message, error) {
	receivedAt := m.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}
	res, err := ms.db.ExecContext(ctx, `
        INSERT INTO messages (message_id, user_id, profile_id, task_id, body, photo_url,
                              is_confirmation, is_positive, is_completed, score, received_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        ON CONFLICT (message_id) DO NOTHING
    `, m.MessageID, m.UserID, m.ProfileID, m.TaskID, m.Body, m.PhotoURL,
		m.IsConfirmation, m.IsPositive, m.IsCompleted, m.Score, receivedAt)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, model.ErrConflict
	}
	out := *m
	out.ReceivedAt = receivedAt
	return &out, nil
}

func (ms *messages) Get(ctx context.Context, userID, messageID string) (*model.Message, error) {
	row := ms.db.QueryRowContext(ctx, `
        SELECT `+messageColumns+` FROM messages WHERE user_id=$1 AND message_id=$2
    `, userID, messageID)
	return scanMessage(row)
}

func (ms *messages) ListByProfile(ctx context.Context, userID, profileID string, limit int) ([]*model.Message, error) {
	rows, err := ms.db.QueryContext(ctx, `
        SELECT `+messageColumns+` FROM messages
        WHERE user_id=$1 AND profile_id=$2
        ORDER BY received_at DESC
        LIMIT $3
    `, userID, profileID, limitArg(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// --- Gallery events ---

type gallery struct{ db *sql.DB }

func (g *gallery) Create(ctx context.Context, e *model.GalleryEvent) (*model.GalleryEvent, error) {
	creationTime := e.CreationTime
	if creationTime.IsZero() {
		creationTime = time.Now().UTC()
	}
	res, err := g.db.ExecContext(ctx, `
        INSERT INTO gallery_events (event_id, user_id, profile_id, event_type, task_id, message_id, photo_url, creation_time)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (event_id) DO NOTHING
    `, e.EventID, e.UserID, e.ProfileID, string(e.EventType), e.TaskID, e.MessageID, e.PhotoURL, creationTime)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, model.ErrConflict
	}
	out := *e
	out.CreationTime = creationTime
	return &out, nil
}

func (g *gallery) List(ctx context.Context, userID string, limit int) ([]*model.GalleryEvent, error) {
	rows, err := g.db.QueryContext(ctx, `
        SELECT event_id, user_id, profile_id, event_type, task_id, message_id, photo_url, creation_time
        FROM gallery_events WHERE user_id=$1
        ORDER BY creation_time DESC
        LIMIT $2
    `, userID, limitArg(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.GalleryEvent
	for rows.Next() {
		var e model.GalleryEvent
		var et string
		if err := rows.Scan(&e.EventID, &e.UserID, &e.ProfileID, &et, &e.TaskID, &e.MessageID, &e.PhotoURL, &e.CreationTime); err != nil {
			return nil, err
		}
		e.EventType = model.GalleryEventType(et)
		out = append(out, &e)
	}
	return out, rows.Err()
}

// --- helpers ---

func mapNoRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	return err
}

func requireRows(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// limitArg maps a non-positive limit to LIMIT NULL, i.e. the full result
// set, matching the memory driver. Resync snapshots rely on this.
func limitArg(limit int) interface{} {
	if limit <= 0 {
		return nil
	}
	return limit
}
