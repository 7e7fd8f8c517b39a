package prefs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"

	"wikicoord/core-go/internal/markers"
	"wikicoord/core-go/internal/scheduler"
	"wikicoord/core-go/internal/sqlcgen"
)

// DefaultSession keys the single widget session's row.
const DefaultSession = "default"

// Settings are the user-adjustable preferences that survive restarts.
type Settings struct {
	ZoomThreshold      int  `json:"zoom_threshold"`
	LabelZoomThreshold int  `json:"label_zoom_threshold"`
	Paused             bool `json:"paused"`
	SidebarCollapsed   bool `json:"sidebar_collapsed"`
}

func Defaults() Settings {
	return Settings{
		ZoomThreshold:      scheduler.DefaultZoomThreshold,
		LabelZoomThreshold: markers.DefaultLabelZoomThreshold,
	}
}

// Normalized replaces non-positive thresholds with their defaults.
func (s Settings) Normalized() Settings {
	if s.ZoomThreshold <= 0 {
		s.ZoomThreshold = scheduler.DefaultZoomThreshold
	}
	if s.LabelZoomThreshold <= 0 {
		s.LabelZoomThreshold = markers.DefaultLabelZoomThreshold
	}
	return s
}

type Store interface {
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) (Settings, error)
}

// Memory keeps settings for the process lifetime. Used when no database is configured.
type Memory struct {
	mu sync.Mutex
	s  Settings
}

func NewMemory(initial Settings) *Memory {
	return &Memory{s: initial.Normalized()}
}

func (m *Memory) Load(context.Context) (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s, nil
}

func (m *Memory) Save(_ context.Context, s Settings) (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = s.Normalized()
	return m.s, nil
}

type Querier interface {
	GetPreferences(ctx context.Context, sessionID string) (sqlcgen.Preference, error)
	UpsertPreferences(ctx context.Context, arg sqlcgen.UpsertPreferencesParams) (sqlcgen.Preference, error)
}

// Postgres stores settings in the preferences table. A missing row loads as fallback.
type Postgres struct {
	q        Querier
	session  string
	fallback Settings
}

func NewPostgres(q Querier, session string, fallback Settings) *Postgres {
	if session == "" {
		session = DefaultSession
	}
	return &Postgres{q: q, session: session, fallback: fallback.Normalized()}
}

func (p *Postgres) Load(ctx context.Context) (Settings, error) {
	row, err := p.q.GetPreferences(ctx, p.session)
	if errors.Is(err, pgx.ErrNoRows) {
		return p.fallback, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("load preferences: %w", err)
	}
	return fromRow(row), nil
}

func (p *Postgres) Save(ctx context.Context, s Settings) (Settings, error) {
	s = s.Normalized()
	row, err := p.q.UpsertPreferences(ctx, sqlcgen.UpsertPreferencesParams{
		SessionID:          p.session,
		ZoomThreshold:      int32(s.ZoomThreshold),
		LabelZoomThreshold: int32(s.LabelZoomThreshold),
		Paused:             s.Paused,
		SidebarCollapsed:   s.SidebarCollapsed,
	})
	if err != nil {
		return Settings{}, fmt.Errorf("save preferences: %w", err)
	}
	return fromRow(row), nil
}

func fromRow(row sqlcgen.Preference) Settings {
	return Settings{
		ZoomThreshold:      int(row.ZoomThreshold),
		LabelZoomThreshold: int(row.LabelZoomThreshold),
		Paused:             row.Paused,
		SidebarCollapsed:   row.SidebarCollapsed,
	}.Normalized()
}
