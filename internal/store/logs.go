package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const logColumns = `id, date, end_date, name, category, subcategory, location, note, extra, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLog(r rowScanner) (Log, error) {
	var l Log
	var extra, createdAt, updatedAt string
	err := r.Scan(&l.ID, &l.Date, &l.EndDate, &l.Name, &l.Category, &l.Subcategory,
		&l.Location, &l.Note, &extra, &createdAt, &updatedAt)
	if err != nil {
		return Log{}, err
	}
	if extra != "" && extra != "{}" {
		if err := json.Unmarshal([]byte(extra), &l.Extra); err != nil {
			return Log{}, fmt.Errorf("decode extra for %s: %w", l.ID, err)
		}
	}
	l.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	l.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return l, nil
}

func encodeExtra(extra map[string]json.RawMessage) (string, error) {
	if len(extra) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(extra)
	if err != nil {
		return "", fmt.Errorf("encode extra: %w", err)
	}
	return string(b), nil
}

// CreateLog stores l. An empty ID is replaced by a fresh UUID.
func (s *Store) CreateLog(ctx context.Context, l Log) (*Log, error) {
	if err := Validate(l); err != nil {
		return nil, err
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	extra, err := encodeExtra(l.Extra)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO logs (`+logColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, strings.TrimSpace(l.Date), strings.TrimSpace(l.EndDate), strings.TrimSpace(l.Name),
		strings.TrimSpace(l.Category), strings.TrimSpace(l.Subcategory), strings.TrimSpace(l.Location),
		l.Note, extra, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert log: %w", err)
	}
	s.bump()
	return s.GetLog(ctx, l.ID)
}

func (s *Store) GetLog(ctx context.Context, id string) (*Log, error) {
	l, err := scanLog(s.db.QueryRowContext(ctx, `SELECT `+logColumns+` FROM logs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get log %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get log %s: %w", id, err)
	}
	return &l, nil
}

// ListLogs returns every log, most recent date first.
func (s *Store) ListLogs(ctx context.Context) ([]Log, error) {
	return s.QueryLogs(ctx, LogFilter{})
}

func (s *Store) QueryLogs(ctx context.Context, f LogFilter) ([]Log, error) {
	query := `SELECT ` + logColumns + ` FROM logs WHERE 1=1`
	var args []any

	if f.Category != "" {
		query += ` AND lower(trim(category)) = ?`
		args = append(args, strings.ToLower(strings.TrimSpace(f.Category)))
	}
	if f.From != nil {
		query += ` AND substr(date, 1, 10) >= ?`
		args = append(args, f.From.Format(dayLayout))
	}
	if f.To != nil {
		query += ` AND substr(date, 1, 10) < ?`
		args = append(args, f.To.Format(dayLayout))
	}
	query += ` ORDER BY date DESC, id`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	defer rows.Close()

	var logs []Log
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// UpdateLog merges p into the stored log and returns the result.
func (s *Store) UpdateLog(ctx context.Context, id string, p LogPatch) (*Log, error) {
	current, err := s.GetLog(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Empty() {
		return current, nil
	}
	p.Apply(current)
	if err := Validate(*current); err != nil {
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx,
		`UPDATE logs SET date = ?, end_date = ?, name = ?, category = ?, subcategory = ?,
		 location = ?, note = ?, updated_at = ? WHERE id = ?`,
		strings.TrimSpace(current.Date), strings.TrimSpace(current.EndDate), strings.TrimSpace(current.Name),
		strings.TrimSpace(current.Category), strings.TrimSpace(current.Subcategory),
		strings.TrimSpace(current.Location), current.Note, now, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update log %s: %w", id, err)
	}
	s.bump()
	return s.GetLog(ctx, id)
}

func (s *Store) DeleteLog(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM logs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete log %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete log %s: %w", id, ErrNotFound)
	}
	s.bump()
	return nil
}

// ReplaceLogs swaps the whole collection for logs in one transaction.
// Logs failing validation are skipped and counted.
func (s *Store) ReplaceLogs(ctx context.Context, logs []Log) (skipped int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM logs`); err != nil {
		return 0, fmt.Errorf("clear logs: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO logs (`+logColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare replace: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, l := range logs {
		if Validate(l) != nil {
			skipped++
			continue
		}
		if l.ID == "" {
			l.ID = uuid.NewString()
		}
		extra, err := encodeExtra(l.Extra)
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, l.ID, strings.TrimSpace(l.Date), strings.TrimSpace(l.EndDate),
			strings.TrimSpace(l.Name), strings.TrimSpace(l.Category), strings.TrimSpace(l.Subcategory),
			strings.TrimSpace(l.Location), l.Note, extra, now, now); err != nil {
			return 0, fmt.Errorf("insert log %s: %w", l.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit replace: %w", err)
	}
	s.bump()
	return skipped, nil
}

// CountLogs returns the number of stored logs.
func (s *Store) CountLogs(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM logs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count logs: %w", err)
	}
	return n, nil
}
