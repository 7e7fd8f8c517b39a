package detail

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"wikicoord/core-go/internal/metrics"
	"wikicoord/core-go/internal/wikibase"
)

const (
	DefaultChunkSize = 50
	DefaultPageBase  = "https://www.wikidata.org/wiki/"
)

// ErrInvalidID is returned for empty ids or ids containing the API list separator.
var ErrInvalidID = errors.New("invalid entity id")

// EntityFetcher fetches entity records. *wikibase.Client satisfies this.
type EntityFetcher interface {
	GetEntities(ctx context.Context, ids []string, props []string) (map[string]wikibase.Entity, error)
}

// EntityDetail is the detail view model for one entity. It is built fresh per request.
type EntityDetail struct {
	ID          string      `json:"id"`
	Label       string      `json:"label"`
	Description string      `json:"description,omitempty"`
	URL         string      `json:"url"`
	NoData      bool        `json:"no_data,omitempty"`
	Statements  []Statement `json:"statements"`
}

type Statement struct {
	PropertyID    string `json:"property_id"`
	PropertyLabel string `json:"property_label"`
	Value         Value  `json:"value"`
}

type Resolver struct {
	log       zerolog.Logger
	client    EntityFetcher
	language  string
	chunkSize int
	pageBase  string
	metrics   *metrics.Metrics
}

type Options struct {
	Language  string
	ChunkSize int
	PageBase  string
}

func NewResolver(log zerolog.Logger, client EntityFetcher, opts Options, m *metrics.Metrics) *Resolver {
	lang := strings.TrimSpace(opts.Language)
	if lang == "" {
		lang = wikibase.DefaultLanguage
	}
	chunk := opts.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	base := strings.TrimSpace(opts.PageBase)
	if base == "" {
		base = DefaultPageBase
	}
	return &Resolver{log: log, client: client, language: lang, chunkSize: chunk, pageBase: base, metrics: m}
}

// Resolve fetches id with its claims, resolves labels for every property and referenced entity, and
// builds the ordered statement list. An id the API does not return yields a NoData detail, not an
// error. Label lookup failures degrade to raw ids.
func (r *Resolver) Resolve(ctx context.Context, id string) (EntityDetail, error) {
	id = strings.TrimSpace(id)
	if id == "" || strings.Contains(id, "|") {
		return EntityDetail{}, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	entities, err := r.client.GetEntities(ctx, []string{id}, wikibase.PropsFull)
	if wikibase.IsNoSuchEntity(err) {
		return r.noData(id), nil
	}
	if err != nil {
		r.metrics.IncDetail(metrics.DetailError)
		return EntityDetail{}, fmt.Errorf("fetch entity %s: %w", id, err)
	}

	ent, ok := entities[id]
	if !ok || ent.IsMissing() {
		return r.noData(id), nil
	}

	propIDs, refIDs := collectIDs(ent.Claims)
	labels := make(map[string]string, len(propIDs)+len(refIDs))
	r.resolveLabels(ctx, propIDs, labels)
	r.resolveLabels(ctx, refIDs, labels)

	d := EntityDetail{
		ID:          id,
		Label:       ent.Labels.Value(r.language),
		Description: ent.Descriptions.Value(r.language),
		URL:         r.pageBase + id,
		Statements:  make([]Statement, 0, len(propIDs)),
	}
	if d.Label == "" {
		d.Label = id
	}

	for _, group := range ent.Claims {
		propLabel := labelOr(labels, group.Property)
		for _, st := range group.Statements {
			d.Statements = append(d.Statements, Statement{
				PropertyID:    group.Property,
				PropertyLabel: propLabel,
				Value:         renderValue(st.MainSnak, labels, r.pageBase),
			})
		}
	}

	r.metrics.IncDetail(metrics.DetailOK)
	return d, nil
}

func (r *Resolver) noData(id string) EntityDetail {
	r.metrics.IncDetail(metrics.DetailNoData)
	return EntityDetail{ID: id, Label: id, URL: r.pageBase + id, NoData: true, Statements: []Statement{}}
}

// collectIDs returns the distinct property ids and referenced entity ids in first-seen order.
func collectIDs(claims wikibase.Claims) (props, refs []string) {
	seenProps := make(map[string]struct{})
	seenRefs := make(map[string]struct{})
	for _, group := range claims {
		if _, ok := seenProps[group.Property]; !ok {
			seenProps[group.Property] = struct{}{}
			props = append(props, group.Property)
		}
		for _, st := range group.Statements {
			ref, ok := st.MainSnak.DataValue.EntityRef()
			if !ok {
				continue
			}
			if _, dup := seenRefs[ref]; dup {
				continue
			}
			seenRefs[ref] = struct{}{}
			refs = append(refs, ref)
		}
	}
	return props, refs
}

// resolveLabels looks up labels for ids in sequential chunks and merges them into into. A failed
// chunk is logged and skipped.
func (r *Resolver) resolveLabels(ctx context.Context, ids []string, into map[string]string) {
	for start := 0; start < len(ids); start += r.chunkSize {
		end := min(start+r.chunkSize, len(ids))
		chunk := ids[start:end]

		entities, err := r.client.GetEntities(ctx, chunk, wikibase.PropsLabels)
		if err != nil {
			r.metrics.IncLabelChunkFailure()
			r.log.Warn().Err(err).Int("offset", start).Int("size", len(chunk)).Msg("label chunk failed")
			continue
		}
		for k, e := range entities {
			if v := e.Labels.Value(r.language); v != "" {
				into[k] = v
			}
		}
	}
}

func labelOr(labels map[string]string, id string) string {
	if v, ok := labels[id]; ok {
		return v
	}
	return id
}
