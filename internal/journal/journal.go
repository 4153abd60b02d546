// Package journal keeps a local SQLite archive of the chats and posts the bot
// has observed. The Bot API cannot list dialogs or read channel history, so
// the telegram adapter answers those queries from here.
package journal

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Chat is a journaled chat.
type Chat struct {
	ID        int64
	Kind      string
	Title     string
	Username  string
	UpdatedAt time.Time
}

// Post is a journaled channel post.
type Post struct {
	ChatID    int64
	MessageID int
	Text      string
	Date      time.Time
}

// Journal is safe for concurrent use.
type Journal struct {
	db *sql.DB
}

// Open creates or upgrades the journal at path.
func Open(ctx context.Context, path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}
	if err := migrateUp(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping journal: %w", err)
	}
	return &Journal{db: db}, nil
}

func migrateUp(path string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load journal migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, "sqlite://"+path)
	if err != nil {
		return fmt.Errorf("create journal migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate journal: %w", err)
	}
	return nil
}

// Close releases the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// RecordChat inserts or refreshes a chat.
func (j *Journal) RecordChat(ctx context.Context, c Chat) error {
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO chats (id, kind, title, username, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   kind = excluded.kind, title = excluded.title,
		   username = excluded.username, updated_at = excluded.updated_at`,
		c.ID, c.Kind, c.Title, c.Username, c.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("record chat %d: %w", c.ID, err)
	}
	return nil
}

// RecordPost inserts a post. Recording it again, after an edit, replaces the text.
func (j *Journal) RecordPost(ctx context.Context, p Post) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO posts (chat_id, message_id, text, date)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (chat_id, message_id) DO UPDATE SET text = excluded.text`,
		p.ChatID, p.MessageID, p.Text, p.Date.Unix(),
	)
	if err != nil {
		return fmt.Errorf("record post %d/%d: %w", p.ChatID, p.MessageID, err)
	}
	return nil
}

// Chats returns all journaled chats ordered by title.
func (j *Journal) Chats(ctx context.Context) ([]Chat, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, kind, title, username, updated_at FROM chats ORDER BY title, id`)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	var chats []Chat
	for rows.Next() {
		var c Chat
		var updated int64
		if err := rows.Scan(&c.ID, &c.Kind, &c.Title, &c.Username, &updated); err != nil {
			return nil, err
		}
		c.UpdatedAt = time.Unix(updated, 0)
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// ChatByUsername finds a chat by its public username, without the '@'.
func (j *Journal) ChatByUsername(ctx context.Context, username string) (Chat, bool, error) {
	var c Chat
	var updated int64
	err := j.db.QueryRowContext(ctx,
		`SELECT id, kind, title, username, updated_at FROM chats WHERE username = ? COLLATE NOCASE LIMIT 1`,
		username,
	).Scan(&c.ID, &c.Kind, &c.Title, &c.Username, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Chat{}, false, nil
	}
	if err != nil {
		return Chat{}, false, fmt.Errorf("find chat @%s: %w", username, err)
	}
	c.UpdatedAt = time.Unix(updated, 0)
	return c, true, nil
}

// Posts returns posts of chatID newest first. limit <= 0 means no limit; a
// zero since means no lower date bound. since is inclusive.
func (j *Journal) Posts(ctx context.Context, chatID int64, limit int, since time.Time) ([]Post, error) {
	if limit <= 0 {
		limit = -1
	}
	var from int64
	if !since.IsZero() {
		from = since.Unix()
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT chat_id, message_id, text, date FROM posts
		 WHERE chat_id = ? AND date >= ?
		 ORDER BY date DESC, message_id DESC
		 LIMIT ?`,
		chatID, from, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list posts of %d: %w", chatID, err)
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var p Post
		var date int64
		if err := rows.Scan(&p.ChatID, &p.MessageID, &p.Text, &date); err != nil {
			return nil, err
		}
		p.Date = time.Unix(date, 0)
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// Prune deletes posts dated before cutoff and returns how many were removed.
func (j *Journal) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := j.db.ExecContext(ctx, `DELETE FROM posts WHERE date < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("prune posts: %w", err)
	}
	return res.RowsAffected()
}
