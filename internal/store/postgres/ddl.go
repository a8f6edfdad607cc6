package postgres

// Schema applied by EnsureSchema. Idempotent so dev and test
// environments can call it on every boot; production migrations run the
// same statements out of band.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS users (
    user_id             TEXT PRIMARY KEY,
    email               TEXT NOT NULL DEFAULT '',
    subscription_status TEXT NOT NULL DEFAULT '',
    profile_count       INTEGER NOT NULL DEFAULT 0,
    task_count          INTEGER NOT NULL DEFAULT 0,
    creation_time       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS profiles (
    profile_id    TEXT PRIMARY KEY,
    user_id       TEXT NOT NULL,
    name          TEXT NOT NULL,
    phone_number  TEXT NOT NULL,
    relationship  TEXT NOT NULL DEFAULT '',
    status        TEXT NOT NULL,
    confirmed_at  TIMESTAMPTZ,
    creation_time TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_profiles_user ON profiles (user_id);
CREATE INDEX IF NOT EXISTS idx_profiles_phone ON profiles (phone_number);

CREATE TABLE IF NOT EXISTS tasks (
    task_id            TEXT PRIMARY KEY,
    user_id            TEXT NOT NULL,
    profile_id         TEXT NOT NULL REFERENCES profiles (profile_id) ON DELETE CASCADE,
    title              TEXT NOT NULL,
    schedule           JSONB NOT NULL,
    status             TEXT NOT NULL,
    next_scheduled_at  TIMESTAMPTZ NOT NULL,
    last_dispatched_at TIMESTAMPTZ,
    last_completed_at  TIMESTAMPTZ,
    completion_count   INTEGER NOT NULL DEFAULT 0,
    overdue            BOOLEAN NOT NULL DEFAULT FALSE,
    deadline_minutes   INTEGER NOT NULL DEFAULT 0,
    creation_time      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_tasks_user ON tasks (user_id);
CREATE INDEX IF NOT EXISTS idx_tasks_due ON tasks (status, next_scheduled_at);

CREATE TABLE IF NOT EXISTS messages (
    message_id      TEXT PRIMARY KEY,
    user_id         TEXT NOT NULL,
    profile_id      TEXT NOT NULL REFERENCES profiles (profile_id) ON DELETE CASCADE,
    task_id         TEXT,
    body            TEXT NOT NULL DEFAULT '',
    photo_url       TEXT,
    is_confirmation BOOLEAN NOT NULL DEFAULT FALSE,
    is_positive     BOOLEAN NOT NULL DEFAULT FALSE,
    is_completed    BOOLEAN NOT NULL DEFAULT FALSE,
    score           DOUBLE PRECISION NOT NULL DEFAULT 0,
    received_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_messages_profile ON messages (user_id, profile_id);

CREATE TABLE IF NOT EXISTS gallery_events (
    event_id      TEXT PRIMARY KEY,
    user_id       TEXT NOT NULL,
    profile_id    TEXT NOT NULL REFERENCES profiles (profile_id) ON DELETE CASCADE,
    event_type    TEXT NOT NULL,
    task_id       TEXT,
    message_id    TEXT,
    photo_url     TEXT,
    creation_time TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_gallery_user ON gallery_events (user_id, creation_time DESC);
`
