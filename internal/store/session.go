package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chronostack-lang/chronostack/internal/engine"
	"github.com/chronostack-lang/chronostack/internal/ir"
)

// ErrNotFound is returned when a named session does not exist.
var ErrNotFound = errors.New("session not found")

// Session is the complete interpreter state saved under a name.
type Session struct {
	ID       string
	Name     string
	Timeline engine.TimelineSnapshot
	Stack    []ir.Value
	Words    map[string][]ir.Instruction
}

// SessionMeta is a session listing entry.
type SessionMeta struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SaveSession writes a session under its name, replacing any previous save
// with that name. The timeline rows are rewritten wholesale inside one
// transaction; a new session gets a fresh UUID, a re-save keeps the old one.
func (s *Store) SaveSession(ctx context.Context, sess Session) (id string, err error) {
	stackJSON, err := ir.MarshalStack(sess.Stack)
	if err != nil {
		return "", fmt.Errorf("save session: marshal stack: %w", err)
	}
	wordsJSON, err := marshalWords(sess.Words)
	if err != nil {
		return "", fmt.Errorf("save session: marshal words: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("save session: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	// Reuse the ID of an existing save with this name.
	id = sess.ID
	if id == "" {
		err = tx.QueryRowContext(ctx, `SELECT id FROM sessions WHERE name = ?`, sess.Name).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			id = uuid.NewString()
		} else if err != nil {
			return "", fmt.Errorf("save session: lookup existing: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, name, active_branch, active_index, stack, words)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			active_branch = excluded.active_branch,
			active_index  = excluded.active_index,
			stack         = excluded.stack,
			words         = excluded.words,
			updated_at    = CURRENT_TIMESTAMP
	`, id, sess.Name, sess.Timeline.Active, sess.Timeline.Index, string(stackJSON), string(wordsJSON))
	if err != nil {
		return "", fmt.Errorf("save session: upsert: %w", err)
	}

	// Replace the timeline rows wholesale; moments cascade with their
	// branches.
	if _, err = tx.ExecContext(ctx, `DELETE FROM branches WHERE session_id = ?`, id); err != nil {
		return "", fmt.Errorf("save session: clear branches: %w", err)
	}

	for pos, b := range sess.Timeline.Branches {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO branches (session_id, name, position, parent, fork_index, fork_len, has_parent)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, id, b.Name, pos, b.Parent, b.ForkIndex, b.ForkLen, b.HasParent)
		if err != nil {
			return "", fmt.Errorf("save session: branch %s: %w", b.Name, err)
		}

		for idx, m := range b.Moments {
			momentJSON, err := ir.MarshalStack(m.Stack)
			if err != nil {
				return "", fmt.Errorf("save session: moment %s/%d: %w", b.Name, idx, err)
			}
			var resolvedJSON any
			if m.Resolved != nil {
				raw, err := ir.MarshalValue(m.Resolved)
				if err != nil {
					return "", fmt.Errorf("save session: moment %s/%d resolved: %w", b.Name, idx, err)
				}
				resolvedJSON = string(raw)
			}
			hash, err := ir.MomentHash(b.Name, idx, m.Stack)
			if err != nil {
				return "", fmt.Errorf("save session: moment %s/%d hash: %w", b.Name, idx, err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO moments (session_id, branch, idx, stack, paradox, resolved, hash)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, id, b.Name, idx, string(momentJSON), m.Paradox, resolvedJSON, hash)
			if err != nil {
				return "", fmt.Errorf("save session: moment %s/%d: %w", b.Name, idx, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("save session: commit: %w", err)
	}
	return id, nil
}

// LoadSession reads a session by name. Every moment's stored hash is
// recomputed from its decoded stack; a mismatch fails the load.
func (s *Store) LoadSession(ctx context.Context, name string) (Session, error) {
	sess := Session{Name: name}

	var stackJSON, wordsJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, active_branch, active_index, stack, words
		FROM sessions WHERE name = ?
	`, name).Scan(&sess.ID, &sess.Timeline.Active, &sess.Timeline.Index, &stackJSON, &wordsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("load session %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return Session{}, fmt.Errorf("load session %q: %w", name, err)
	}

	if sess.Stack, err = ir.UnmarshalStack([]byte(stackJSON)); err != nil {
		return Session{}, fmt.Errorf("load session %q: decode stack: %w", name, err)
	}
	if sess.Words, err = unmarshalWords([]byte(wordsJSON)); err != nil {
		return Session{}, fmt.Errorf("load session %q: decode words: %w", name, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, parent, fork_index, fork_len, has_parent
		FROM branches WHERE session_id = ? ORDER BY position
	`, sess.ID)
	if err != nil {
		return Session{}, fmt.Errorf("load session %q: branches: %w", name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var b engine.BranchSnapshot
		if err := rows.Scan(&b.Name, &b.Parent, &b.ForkIndex, &b.ForkLen, &b.HasParent); err != nil {
			return Session{}, fmt.Errorf("load session %q: scan branch: %w", name, err)
		}
		sess.Timeline.Branches = append(sess.Timeline.Branches, b)
	}
	if err := rows.Err(); err != nil {
		return Session{}, fmt.Errorf("load session %q: branches: %w", name, err)
	}

	for i := range sess.Timeline.Branches {
		b := &sess.Timeline.Branches[i]
		if b.Moments, err = s.loadMoments(ctx, sess.ID, b.Name); err != nil {
			return Session{}, fmt.Errorf("load session %q: %w", name, err)
		}
	}

	return sess, nil
}

func (s *Store) loadMoments(ctx context.Context, sessionID, branch string) ([]engine.MomentSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, stack, paradox, resolved, hash
		FROM moments WHERE session_id = ? AND branch = ? ORDER BY idx
	`, sessionID, branch)
	if err != nil {
		return nil, fmt.Errorf("moments of %s: %w", branch, err)
	}
	defer rows.Close()

	var out []engine.MomentSnapshot
	for rows.Next() {
		var (
			idx          int
			stackJSON    string
			m            engine.MomentSnapshot
			resolvedJSON sql.NullString
			storedHash   string
		)
		if err := rows.Scan(&idx, &stackJSON, &m.Paradox, &resolvedJSON, &storedHash); err != nil {
			return nil, fmt.Errorf("scan moment of %s: %w", branch, err)
		}
		if m.Stack, err = ir.UnmarshalStack([]byte(stackJSON)); err != nil {
			return nil, fmt.Errorf("decode moment %s/%d: %w", branch, idx, err)
		}
		if resolvedJSON.Valid {
			if m.Resolved, err = ir.UnmarshalValue([]byte(resolvedJSON.String)); err != nil {
				return nil, fmt.Errorf("decode moment %s/%d resolved: %w", branch, idx, err)
			}
		}

		hash, err := ir.MomentHash(branch, idx, m.Stack)
		if err != nil {
			return nil, fmt.Errorf("hash moment %s/%d: %w", branch, idx, err)
		}
		if hash != storedHash {
			return nil, fmt.Errorf("moment %s/%d: content hash mismatch", branch, idx)
		}

		out = append(out, m)
	}
	return out, rows.Err()
}

// ListSessions returns all saved sessions, most recently updated first.
func (s *Store) ListSessions(ctx context.Context) ([]SessionMeta, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, created_at, updated_at
		FROM sessions ORDER BY updated_at DESC, name
	`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionMeta
	for rows.Next() {
		var meta SessionMeta
		if err := rows.Scan(&meta.ID, &meta.Name, &meta.CreatedAt, &meta.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list sessions: scan: %w", err)
		}
		out = append(out, meta)
	}
	return out, rows.Err()
}

// DeleteSession removes a session and all its timeline rows.
func (s *Store) DeleteSession(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete session %q: %w", name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session %q: %w", name, err)
	}
	if affected == 0 {
		return fmt.Errorf("delete session %q: %w", name, ErrNotFound)
	}
	return nil
}

// marshalWords encodes a word dictionary as a JSON object of name to
// instruction sequence.
func marshalWords(words map[string][]ir.Instruction) ([]byte, error) {
	out := make(map[string]json.RawMessage, len(words))
	for name, body := range words {
		raw, err := ir.MarshalProgram(body)
		if err != nil {
			return nil, fmt.Errorf("word %s: %w", name, err)
		}
		out[name] = raw
	}
	return json.Marshal(out)
}

func unmarshalWords(data []byte) (map[string][]ir.Instruction, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make(map[string][]ir.Instruction, len(raw))
	for name, body := range raw {
		program, err := ir.UnmarshalProgram(body)
		if err != nil {
			return nil, fmt.Errorf("word %s: %w", name, err)
		}
		out[name] = program
	}
	return out, nil
}
