package sqlcgen

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX matches the minimal interface needed from pgxpool.Pool or pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

const getPreferences = `-- name: GetPreferences :one
SELECT session_id,
       zoom_threshold,
       label_zoom_threshold,
       paused,
       sidebar_collapsed,
       updated_at
FROM preferences
WHERE session_id = $1
`

func (q *Queries) GetPreferences(ctx context.Context, sessionID string) (Preference, error) {
	row := q.db.QueryRow(ctx, getPreferences, sessionID)
	var i Preference
	err := row.Scan(
		&i.SessionID,
		&i.ZoomThreshold,
		&i.LabelZoomThreshold,
		&i.Paused,
		&i.SidebarCollapsed,
		&i.UpdatedAt,
	)
	return i, err
}

const upsertPreferences = `-- name: UpsertPreferences :one
INSERT INTO preferences (
  session_id,
  zoom_threshold,
  label_zoom_threshold,
  paused,
  sidebar_collapsed
)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (session_id) DO UPDATE
SET zoom_threshold = EXCLUDED.zoom_threshold,
    label_zoom_threshold = EXCLUDED.label_zoom_threshold,
    paused = EXCLUDED.paused,
    sidebar_collapsed = EXCLUDED.sidebar_collapsed,
    updated_at = now()
RETURNING session_id,
          zoom_threshold,
          label_zoom_threshold,
          paused,
          sidebar_collapsed,
          updated_at
`

type UpsertPreferencesParams struct {
	SessionID          string
	ZoomThreshold      int32
	LabelZoomThreshold int32
	Paused             bool
	SidebarCollapsed   bool
}

func (q *Queries) UpsertPreferences(ctx context.Context, arg UpsertPreferencesParams) (Preference, error) {
	row := q.db.QueryRow(ctx, upsertPreferences,
		arg.SessionID,
		arg.ZoomThreshold,
		arg.LabelZoomThreshold,
		arg.Paused,
		arg.SidebarCollapsed,
	)
	var i Preference
	err := row.Scan(
		&i.SessionID,
		&i.ZoomThreshold,
		&i.LabelZoomThreshold,
		&i.Paused,
		&i.SidebarCollapsed,
		&i.UpdatedAt,
	)
	return i, err
}
