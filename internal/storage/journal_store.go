package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"thera-watch/internal/notify"
)

// ErrAlreadyRecorded means the (scout id, reference) pair is already in the journal.
var ErrAlreadyRecorded = errors.New("notification already recorded")

// Journal keeps an audit trail of dispatched notifications in Postgres.
// It is a notify.Notifier so it can sit in a notify.Fanout.
type Journal struct {
	db *sql.DB
}

func NewJournal(db *sql.DB) *Journal {
	return &Journal{db: db}
}

func (j *Journal) Notify(ctx context.Context, n notify.Notification) {
	id, err := SaveNotification(ctx, j.db, n)
	if err != nil {
		if errors.Is(err, ErrAlreadyRecorded) {
			slog.Info("notification already in journal",
				"scout_id", n.ScoutID,
				"reference", n.Reference,
			)
			return
		}
		slog.Error("failed to record notification",
			"scout_id", n.ScoutID,
			"reference", n.Reference,
			"err", err,
		)
		return
	}
	slog.Debug("notification recorded", "journal_id", id, "scout_id", n.ScoutID)
}

// SaveNotification inserts n and returns its journal id.
func SaveNotification(ctx context.Context, db *sql.DB, n notify.Notification) (int64, error) {
	const q = `
INSERT INTO thera_notification (
	scout_id,
	reference_name,
	reference_id,
	system_name,
	region_name,
	jumps,
	in_signature,
	out_signature,
	content
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9
)
RETURNING id;
`
	var id int64
	err := db.QueryRowContext(
		ctx,
		q,
		n.ScoutID,
		n.Reference,
		n.ReferenceID,
		n.System,
		n.Region,
		n.Jumps,
		nullableString(n.InSignature),
		nullableString(n.OutSignature),
		n.Content,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrAlreadyRecorded
		}
		return 0, fmt.Errorf("inserting notification (scout_id=%d, reference=%s): %w", n.ScoutID, n.Reference, err)
	}
	return id, nil
}

func nullableString(s string) interface{} {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
