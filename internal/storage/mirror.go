// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jeranaias/council-tui/internal/api"
	"github.com/jeranaias/council-tui/internal/config"
	"github.com/jeranaias/council-tui/internal/council"
)

// =============================================================================
// MIRROR
// =============================================================================

// Mirror is the sqlite-backed local copy of conversation state. It
// implements council.Mirror. All methods are safe for concurrent use;
// database/sql serializes access.
type Mirror struct {
	db *sql.DB
}

// DefaultPath returns the standard mirror database location.
func DefaultPath() (string, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "mirror.db"), nil
}

// Open opens (or creates) the mirror database at path.
func Open(path string) (*Mirror, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create mirror directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mirror database: %w", err)
	}

	m := &Mirror{db: db}
	if err := m.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return m, nil
}

// Close releases the database handle.
func (m *Mirror) Close() error {
	return m.db.Close()
}

func (m *Mirror) initSchema() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			message_count INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL DEFAULT '',
			synced_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			conversation_id TEXT NOT NULL,
			idx INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			stage1 TEXT NOT NULL DEFAULT '',
			stage2 TEXT NOT NULL DEFAULT '',
			stage3 TEXT NOT NULL DEFAULT '',
			metadata TEXT NOT NULL DEFAULT '',
			PRIMARY KEY(conversation_id, idx)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := m.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to init mirror schema: %w", err)
		}
	}
	return nil
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// =============================================================================
// SUMMARIES
// =============================================================================

// SaveSummaries replaces the mirrored conversation list. Message bodies of
// conversations no longer on the backend are removed too.
func (m *Mirror) SaveSummaries(summaries []council.Summary) error {
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := nowRFC3339()
	for _, s := range summaries {
		if _, err := tx.Exec(
			`INSERT INTO conversations(id,title,message_count,created_at,synced_at)
			 VALUES(?,?,?,?,?)
			 ON CONFLICT(id) DO UPDATE SET
			   title=excluded.title,
			   message_count=excluded.message_count,
			   created_at=excluded.created_at,
			   synced_at=excluded.synced_at`,
			s.ID, s.Title, s.MessageCount, s.CreatedAt, now,
		); err != nil {
			return err
		}
	}

	// Drop rows the backend no longer reports.
	if _, err := tx.Exec(`DELETE FROM conversations WHERE synced_at < ?`, now); err != nil {
		return err
	}
	if _, err := tx.Exec(
		`DELETE FROM messages WHERE conversation_id NOT IN (SELECT id FROM conversations)`,
	); err != nil {
		return err
	}

	return tx.Commit()
}

// ListSummaries returns the mirrored conversation list, newest first.
func (m *Mirror) ListSummaries() ([]council.Summary, error) {
	rows, err := m.db.Query(
		`SELECT id, title, message_count, created_at
		 FROM conversations ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []council.Summary{}
	for rows.Next() {
		var s council.Summary
		if err := rows.Scan(&s.ID, &s.Title, &s.MessageCount, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// SaveConversation mirrors a full conversation, replacing any prior copy.
func (m *Mirror) SaveConversation(conv *council.Conversation) error {
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO conversations(id,title,message_count,created_at,synced_at)
		 VALUES(?,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET
		   title=excluded.title,
		   message_count=excluded.message_count,
		   synced_at=excluded.synced_at`,
		conv.ID, conv.Title, conv.MessageCount(),
		conv.CreatedAt.UTC().Format(time.RFC3339Nano), nowRFC3339(),
	); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM messages WHERE conversation_id=?`, conv.ID); err != nil {
		return err
	}

	for i, msg := range conv.Messages {
		meta := ""
		if msg.Metadata != nil {
			if data, err := json.Marshal(msg.Metadata); err == nil {
				meta = string(data)
			}
		}
		if _, err := tx.Exec(
			`INSERT INTO messages(conversation_id,idx,role,content,stage1,stage2,stage3,metadata)
			 VALUES(?,?,?,?,?,?,?,?)`,
			conv.ID, i, string(msg.Role), msg.Content,
			string(msg.Stage1), string(msg.Stage2), string(msg.Stage3), meta,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetConversation loads a mirrored conversation, or nil when absent.
func (m *Mirror) GetConversation(id string) (*council.Conversation, error) {
	conv := &council.Conversation{ID: id}

	var createdAt string
	err := m.db.QueryRow(
		`SELECT title, created_at FROM conversations WHERE id=?`, id,
	).Scan(&conv.Title, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		conv.CreatedAt = t
	}

	rows, err := m.db.Query(
		`SELECT role, content, stage1, stage2, stage3, metadata
		 FROM messages WHERE conversation_id=? ORDER BY idx`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var role, content, s1, s2, s3, meta string
		if err := rows.Scan(&role, &content, &s1, &s2, &s3, &meta); err != nil {
			return nil, err
		}

		var msg *council.Message
		if council.Role(role) == council.RoleUser {
			msg = council.NewUserMessage(content)
		} else {
			msg = council.NewAssistantMessage()
			if s1 != "" {
				msg.Stage1 = json.RawMessage(s1)
			}
			if s2 != "" {
				msg.Stage2 = json.RawMessage(s2)
			}
			if s3 != "" {
				msg.Stage3 = json.RawMessage(s3)
			}
			if meta != "" {
				var parsed api.StageMetadata
				if err := json.Unmarshal([]byte(meta), &parsed); err == nil {
					msg.Metadata = &parsed
				}
			}
		}
		conv.Messages = append(conv.Messages, msg)
	}
	return conv, rows.Err()
}
