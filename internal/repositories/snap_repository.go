package repositories

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// SnapViewRepo persists snap views; the primary key enforces one view per viewer.
type SnapViewRepo struct {
	db *sqlx.DB
}

func NewSnapViewRepo(db *sqlx.DB) *SnapViewRepo {
	return &SnapViewRepo{db: db}
}

// MarkSnapViewed returns true only for the call that recorded the view.
func (r *SnapViewRepo) MarkSnapViewed(ctx context.Context, messageID, viewerID string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO snap_views (message_id, viewer_id, viewed_at) VALUES ($1, $2, $3)
        ON CONFLICT (message_id, viewer_id) DO NOTHING`, messageID, viewerID, at)
	if err != nil {
		return false, err
	}
	count, err := res.RowsAffected()
	return count == 1, err
}

func (r *SnapViewRepo) HasViewedSnap(ctx context.Context, messageID, viewerID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM snap_views WHERE message_id=$1 AND viewer_id=$2)`, messageID, viewerID)
	return exists, err
}
