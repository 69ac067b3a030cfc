package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/RichardoC/padchat/internal/models"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Timestamps are stored as unix nanoseconds so ordering in SQL is exact.
const schema = `
CREATE TABLE IF NOT EXISTS conversations (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    title TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conversations_user_updated
    ON conversations(user_id, updated_at DESC);

CREATE TABLE IF NOT EXISTS messages (
    id TEXT PRIMARY KEY,
    conversation_id TEXT NOT NULL,
    role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
    content TEXT NOT NULL,
    image_url TEXT,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation_created
    ON messages(conversation_id, created_at);`

type Database struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*Database)(nil)

func New(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite3", dsn(dbPath))
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	// SQLite allows a single writer; one pooled connection keeps concurrent
	// turns queued in Go instead of failing with "database is locked".
	db.SetMaxOpenConns(1)

	return &Database{db: db, now: utcNow}, nil
}

func dsn(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
}

func (db *Database) Close() error {
	return db.db.Close()
}

func (db *Database) CreateConversation(ctx context.Context, ownerID, title string) (*models.Conversation, error) {
	now := db.now()
	conv := &models.Conversation{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := `
        INSERT INTO conversations (id, user_id, title, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?)`

	if _, err := db.db.ExecContext(ctx, query, conv.ID, ownerID, title, now.UnixNano(), now.UnixNano()); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv, nil
}

func (db *Database) ListConversations(ctx context.Context, ownerID string) ([]models.Conversation, error) {
	query := `
        SELECT id, user_id, title, created_at, updated_at
        FROM conversations
        WHERE user_id = ?
        ORDER BY updated_at DESC, created_at DESC, rowid DESC`

	rows, err := db.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return []models.Conversation{}, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	conversations := make([]models.Conversation, 0)
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return []models.Conversation{}, err
		}
		conversations = append(conversations, *conv)
	}
	return conversations, rows.Err()
}

func (db *Database) GetConversation(ctx context.Context, id, ownerID string) (*models.Conversation, error) {
	query := `
        SELECT id, user_id, title, created_at, updated_at
        FROM conversations
        WHERE id = ? AND user_id = ?`

	conv, err := scanConversation(db.db.QueryRowContext(ctx, query, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return conv, err
}

func (db *Database) TouchConversation(ctx context.Context, id string, updatedAt time.Time) error {
	res, err := db.db.ExecContext(ctx,
		"UPDATE conversations SET updated_at = MAX(updated_at, ?) WHERE id = ?",
		updatedAt.UnixNano(), id)
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return expectAffected(res)
}

func (db *Database) UpdateConversationTitle(ctx context.Context, id, ownerID, title string) (*models.Conversation, error) {
	res, err := db.db.ExecContext(ctx,
		"UPDATE conversations SET title = ? WHERE id = ? AND user_id = ?",
		title, id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to update conversation title: %w", err)
	}
	if err := expectAffected(res); err != nil {
		return nil, err
	}
	return db.GetConversation(ctx, id, ownerID)
}

func (db *Database) DeleteConversation(ctx context.Context, id, ownerID string) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM conversations WHERE id = ? AND user_id = ?", id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	if err := expectAffected(res); err != nil {
		return err
	}

	// Cascades through the foreign key too; explicit so databases opened
	// without foreign keys enforced don't keep orphans.
	if err := deleteMessages(ctx, tx, id); err != nil {
		return err
	}

	return tx.Commit()
}

func (db *Database) SaveMessage(ctx context.Context, msg *models.Message) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var latest int64
	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(created_at), 0) FROM messages WHERE conversation_id = ?",
		msg.ConvID).Scan(&latest); err != nil {
		return fmt.Errorf("failed to read latest message time: %w", err)
	}

	id := uuid.NewString()
	createdAt := laterOf(db.now(), time.Unix(0, latest).UTC())

	query := `
        INSERT INTO messages (id, conversation_id, role, content, image_url, created_at)
        VALUES (?, ?, ?, ?, ?, ?)`

	if _, err := tx.ExecContext(ctx, query,
		id, msg.ConvID, string(msg.Role), msg.Content, msg.ImageURL, createdAt.UnixNano()); err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	msg.ID = id
	msg.CreatedAt = createdAt
	return nil
}

func (db *Database) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	query := `
        SELECT id, conversation_id, role, content, image_url, created_at
        FROM messages
        WHERE conversation_id = ?
        ORDER BY created_at ASC, rowid ASC`

	rows, err := db.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return []models.Message{}, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var (
			msg       models.Message
			role      string
			imageURL  sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&msg.ID, &msg.ConvID, &role, &msg.Content, &imageURL, &createdAt); err != nil {
			return []models.Message{}, err
		}
		msg.Role = models.Role(role)
		if imageURL.Valid {
			msg.ImageURL = &imageURL.String
		}
		msg.CreatedAt = time.Unix(0, createdAt).UTC()
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (db *Database) CountMessages(ctx context.Context, conversationID string) (int, error) {
	var n int
	err := db.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM messages WHERE conversation_id = ?", conversationID).Scan(&n)
	return n, err
}

func (db *Database) DeleteMessages(ctx context.Context, conversationID string) error {
	return deleteMessages(ctx, db.db, conversationID)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func deleteMessages(ctx context.Context, ex execer, conversationID string) error {
	if _, err := ex.ExecContext(ctx, "DELETE FROM messages WHERE conversation_id = ?", conversationID); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*models.Conversation, error) {
	var (
		conv                 models.Conversation
		createdAt, updatedAt int64
	)
	if err := row.Scan(&conv.ID, &conv.OwnerID, &conv.Title, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	conv.CreatedAt = time.Unix(0, createdAt).UTC()
	conv.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return &conv, nil
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}
