package store

import (
	"database/sql"
	"strings"
	"time"
)

// Word is one committed word within a session.
type Word struct {
	ID          int64     `json:"id"`
	SessionID   string    `json:"session_id"`
	Position    int       `json:"position"`
	Word        string    `json:"word"`
	CommittedAt time.Time `json:"committed_at"`
}

// WordRepository provides access to committed words.
type WordRepository struct {
	db *sql.DB
}

// Words returns the word repository for this store.
func (s *Store) Words() *WordRepository {
	return &WordRepository{db: s.db}
}

// Append stores word as the next word of the session.
func (r *WordRepository) Append(sessionID, word string) (*Word, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM sessions WHERE id = ?`, sessionID).Scan(&exists); err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, ErrNotFound
	}

	w := &Word{
		SessionID:   sessionID,
		Word:        word,
		CommittedAt: time.Now(),
	}
	if err := tx.QueryRow(
		`SELECT COALESCE(MAX(position), -1) + 1 FROM words WHERE session_id = ?`,
		sessionID,
	).Scan(&w.Position); err != nil {
		return nil, err
	}

	result, err := tx.Exec(
		`INSERT INTO words (session_id, position, word, committed_at) VALUES (?, ?, ?, ?)`,
		w.SessionID, w.Position, w.Word, w.CommittedAt,
	)
	if err != nil {
		return nil, err
	}
	if w.ID, err = result.LastInsertId(); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return w, nil
}

// ListBySession returns a session's words in commit order.
func (r *WordRepository) ListBySession(sessionID string) ([]*Word, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, position, word, committed_at
		 FROM words
		 WHERE session_id = ?
		 ORDER BY position`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var words []*Word
	for rows.Next() {
		w := &Word{}
		if err := rows.Scan(&w.ID, &w.SessionID, &w.Position, &w.Word, &w.CommittedAt); err != nil {
			return nil, err
		}
		words = append(words, w)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return words, nil
}

// Sentence joins a session's words with single spaces, matching the
// sentence the pipeline built.
func (r *WordRepository) Sentence(sessionID string) (string, error) {
	words, err := r.ListBySession(sessionID)
	if err != nil {
		return "", err
	}

	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = w.Word
	}
	return strings.Join(parts, " "), nil
}
