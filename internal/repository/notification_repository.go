package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/fleet-management/internal/database"
	"github.com/iliyamo/fleet-management/internal/model"
)

// NotificationRepo persists office notifications. Inserts are keyed on
// event_id so redelivered intents are stored once.
type NotificationRepo struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewNotificationRepo returns a new NotificationRepo bound to the provided database.
func NewNotificationRepo(db *sql.DB, d database.Dialect) *NotificationRepo {
	return &NotificationRepo{db: db, dialect: d}
}

const notificationColumns = `id, event_id, type, title, message, actor_id, related_type, related_id, is_read, created_at, read_at`

func scanNotification(row rowScanner) (model.Notification, error) {
	var (
		n           model.Notification
		relatedType sql.NullString
		relatedID   sql.NullInt64
		readAt      sql.NullTime
	)
	err := row.Scan(&n.ID, &n.EventID, &n.Type, &n.Title, &n.Message, &n.ActorID, &relatedType, &relatedID, &n.IsRead, &n.CreatedAt, &readAt)
	n.RelatedType = nullString(relatedType)
	n.RelatedID = nullUint(relatedID)
	n.ReadAt = nullTime(readAt)
	return n, err
}

// Insert stores n unless a notification with the same EventID exists. It
// reports whether a row was written.
func (r *NotificationRepo) Insert(ctx context.Context, n *model.Notification) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		r.dialect.InsertIgnore+` INTO notifications (event_id, type, title, message, actor_id, related_type, related_id, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		n.EventID, n.Type, n.Title, n.Message, n.ActorID, n.RelatedType, n.RelatedID, n.CreatedAt)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil || affected == 0 {
		return false, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return true, err
	}
	n.ID = uint64(id)
	return true, nil
}

// List returns up to limit notifications, newest first.
func (r *NotificationRepo) List(ctx context.Context, unreadOnly bool, limit int) ([]model.Notification, error) {
	q := `SELECT ` + notificationColumns + ` FROM notifications`
	if unreadOnly {
		q += ` WHERE is_read = 0`
	}
	q += ` ORDER BY created_at DESC, id DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// UnreadCount returns the number of unread notifications.
func (r *NotificationRepo) UnreadCount(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE is_read = 0`).Scan(&n)
	return n, err
}

// MarkRead flags one notification as read. Marking an already read
// notification again keeps its original read_at.
func (r *NotificationRepo) MarkRead(ctx context.Context, id uint64, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1, read_at = COALESCE(read_at, ?) WHERE id = ?`, now, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead flags every unread notification as read and returns how many
// changed.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1, read_at = ? WHERE is_read = 0`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
