package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"dm-service/internal/models"
)

// ProfileRepo reads the user_profiles table maintained by the profile subsystem.
type ProfileRepo struct {
	db *sqlx.DB
}

func NewProfileRepo(db *sqlx.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

// BulkProfiles fetches multiple profiles in one query. Unknown ids are omitted.
func (r *ProfileRepo) BulkProfiles(ctx context.Context, userIDs []string) (map[string]models.Profile, error) {
	out := make(map[string]models.Profile, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var profiles []models.Profile
	if err := r.db.SelectContext(ctx, &profiles, `SELECT user_id, display_name, avatar_url, online FROM user_profiles WHERE user_id = ANY($1)`,
		pq.Array(userIDs)); err != nil {
		return nil, err
	}
	for _, p := range profiles {
		out[p.UserID] = p
	}
	return out, nil
}
