package detail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"wikicoord/core-go/internal/wikibase"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls [][]string
	props [][]string
	fn    func(ids []string, props []string) (map[string]wikibase.Entity, error)
}

func (f *fakeFetcher) GetEntities(_ context.Context, ids []string, props []string) (map[string]wikibase.Entity, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string(nil), ids...))
	f.props = append(f.props, props)
	f.mu.Unlock()
	return f.fn(ids, props)
}

func entitiesFrom(t *testing.T, body string) map[string]wikibase.Entity {
	t.Helper()
	var resp wikibase.Response
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return resp.Entities
}

func labelsFor(ids []string, names map[string]string) map[string]wikibase.Entity {
	out := make(map[string]wikibase.Entity, len(ids))
	for _, id := range ids {
		name, ok := names[id]
		if !ok {
			continue
		}
		out[id] = wikibase.Entity{ID: id, Labels: wikibase.Terms{"en": {Language: "en", Value: name}}}
	}
	return out
}

const towerEntity = `{"entities":{"Q243":{
  "type":"item","id":"Q243",
  "labels":{"en":{"language":"en","value":"Eiffel Tower"}},
  "descriptions":{"en":{"language":"en","value":"tower in Paris"}},
  "claims":{
    "P31":[{"mainsnak":{"snaktype":"value","property":"P31","datavalue":{"type":"wikibase-entityid","value":{"entity-type":"item","id":"Q1440476"}}}}],
    "P625":[{"mainsnak":{"snaktype":"value","property":"P625","datavalue":{"type":"globecoordinate","value":{"latitude":48.858222,"longitude":2.2945}}}}]
  }}}}`

func TestResolve_EiffelTower(t *testing.T) {
	names := map[string]string{
		"P31":      "instance of",
		"P625":     "coordinate location",
		"Q1440476": "lattice tower",
	}
	f := &fakeFetcher{fn: func(ids []string, props []string) (map[string]wikibase.Entity, error) {
		if len(ids) == 1 && ids[0] == "Q243" {
			return entitiesFrom(t, towerEntity), nil
		}
		return labelsFor(ids, names), nil
	}}

	r := NewResolver(zerolog.Nop(), f, Options{}, nil)
	d, err := r.Resolve(context.Background(), "Q243")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if d.Label != "Eiffel Tower" || d.Description != "tower in Paris" {
		t.Fatalf("unexpected header %q / %q", d.Label, d.Description)
	}
	if d.URL != "https://www.wikidata.org/wiki/Q243" {
		t.Fatalf("unexpected url %q", d.URL)
	}
	if len(d.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(d.Statements))
	}

	first := d.Statements[0]
	if first.PropertyID != "P31" || first.PropertyLabel != "instance of" {
		t.Fatalf("unexpected first statement %+v", first)
	}
	if first.Value.Kind != KindEntity || first.Value.Text != "lattice tower" || first.Value.EntityID != "Q1440476" {
		t.Fatalf("unexpected entity value %+v", first.Value)
	}
	if first.Value.URL != "https://www.wikidata.org/wiki/Q1440476" {
		t.Fatalf("unexpected entity link %q", first.Value.URL)
	}

	second := d.Statements[1]
	if second.PropertyLabel != "coordinate location" || second.Value.Text != "48.858222, 2.294500" {
		t.Fatalf("unexpected coordinate statement %+v", second)
	}

	if len(f.calls) != 3 {
		t.Fatalf("expected entity fetch plus 2 label chunks, got %d calls", len(f.calls))
	}
	if strings.Join(f.props[0], "|") != "labels|descriptions|claims" {
		t.Fatalf("unexpected props for entity fetch %v", f.props[0])
	}
	if strings.Join(f.props[1], "|") != "labels" {
		t.Fatalf("unexpected props for label fetch %v", f.props[1])
	}
}

func TestResolve_LabelLookupsAreChunked(t *testing.T) {
	var claims []string
	for i := 1; i <= 120; i++ {
		claims = append(claims, fmt.Sprintf(`"P%d":[{"mainsnak":{"snaktype":"value","property":"P%d","datavalue":{"type":"string","value":"v%d"}}}]`, i, i, i))
	}
	body := `{"entities":{"Q1":{"id":"Q1","labels":{},"claims":{` + strings.Join(claims, ",") + `}}}}`

	f := &fakeFetcher{fn: func(ids []string, props []string) (map[string]wikibase.Entity, error) {
		if len(ids) == 1 && ids[0] == "Q1" {
			return entitiesFrom(t, body), nil
		}
		return map[string]wikibase.Entity{}, nil
	}}

	d, err := NewResolver(zerolog.Nop(), f, Options{}, nil).Resolve(context.Background(), "Q1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if d.Label != "Q1" {
		t.Fatalf("expected id as label fallback, got %q", d.Label)
	}
	if len(d.Statements) != 120 {
		t.Fatalf("expected 120 statements, got %d", len(d.Statements))
	}

	label := f.calls[1:]
	if len(label) != 3 {
		t.Fatalf("expected 3 label chunks, got %d", len(label))
	}
	for i, want := range []int{50, 50, 20} {
		if len(label[i]) != want {
			t.Fatalf("chunk %d: expected %d ids, got %d", i, want, len(label[i]))
		}
	}
	if label[0][0] != "P1" || label[2][19] != "P120" {
		t.Fatalf("chunks out of order: %v ... %v", label[0][0], label[2][19])
	}
}

func TestResolve_ChunkFailureDegradesToRawIDs(t *testing.T) {
	f := &fakeFetcher{fn: func(ids []string, props []string) (map[string]wikibase.Entity, error) {
		if len(ids) == 1 && ids[0] == "Q243" {
			return entitiesFrom(t, towerEntity), nil
		}
		if ids[0] == "P31" {
			return nil, errors.New("boom")
		}
		return labelsFor(ids, map[string]string{"Q1440476": "lattice tower"}), nil
	}}

	d, err := NewResolver(zerolog.Nop(), f, Options{ChunkSize: 1}, nil).Resolve(context.Background(), "Q243")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(f.calls) != 4 {
		t.Fatalf("expected remaining chunks to run after failure, got %d calls", len(f.calls))
	}
	if d.Statements[0].PropertyLabel != "P31" {
		t.Fatalf("expected raw property id, got %q", d.Statements[0].PropertyLabel)
	}
	if d.Statements[0].Value.Text != "lattice tower" {
		t.Fatalf("expected resolved ref label, got %q", d.Statements[0].Value.Text)
	}
}

func TestResolve_ValueKinds(t *testing.T) {
	body := `{"entities":{"Q5":{"id":"Q5","labels":{"en":{"language":"en","value":"x"}},"claims":{
	  "P1":[{"mainsnak":{"snaktype":"value","property":"P1","datavalue":{"type":"string","value":"<b>hi</b>"}}}],
	  "P2":[{"mainsnak":{"snaktype":"value","property":"P2","datavalue":{"type":"time","value":{"time":"+1889-03-31T00:00:00Z","precision":11}}}}],
	  "P3":[{"mainsnak":{"snaktype":"value","property":"P3","datavalue":{"type":"quantity","value":{"amount":"+330","unit":"1"}}}}],
	  "P4":[{"mainsnak":{"snaktype":"value","property":"P4","datavalue":{"type":"monolingualtext","value":{"text":"Tour Eiffel","language":"fr"}}}}],
	  "P5":[{"mainsnak":{"snaktype":"novalue","property":"P5"}},{"mainsnak":{"snaktype":"somevalue","property":"P5"}}],
	  "P6":[{"mainsnak":{"snaktype":"value","property":"P6","datavalue":{"type":"external-thing","value":{"a": 1}}}}],
	  "P7":[{"mainsnak":{"snaktype":"value","property":"P7","datavalue":{"type":"wikibase-entityid","value":{"id":"Q404"}}}}],
	  "P8":[{"mainsnak":{"snaktype":"value","property":"P8","datavalue":{"type":"globecoordinate","value":{"latitude":0,"longitude":0}}}}]
	}}}}`
	f := &fakeFetcher{fn: func(ids []string, props []string) (map[string]wikibase.Entity, error) {
		if ids[0] == "Q5" {
			return entitiesFrom(t, body), nil
		}
		return map[string]wikibase.Entity{}, nil
	}}

	d, err := NewResolver(zerolog.Nop(), f, Options{}, nil).Resolve(context.Background(), "Q5")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	want := []struct {
		kind, text, html string
	}{
		{KindString, "<b>hi</b>", "&lt;b&gt;hi&lt;/b&gt;"},
		{KindTime, "+1889-03-31T00:00:00Z", "+1889-03-31T00:00:00Z"},
		{KindQuantity, "+330", "+330"},
		{KindText, "Tour Eiffel", "Tour Eiffel"},
		{KindNone, "(no value)", `<span class="small">(no value)</span>`},
		{KindNone, "(unknown value)", `<span class="small">(unknown value)</span>`},
		{KindRaw, `{"a":1}`, "{&#34;a&#34;:1}"},
		{KindEntity, "Q404", `<a href="https://www.wikidata.org/wiki/Q404" target="_blank">Q404</a>`},
		{KindCoordinate, "0.000000, 0.000000", "0.000000, 0.000000"},
	}
	if len(d.Statements) != len(want) {
		t.Fatalf("expected %d statements, got %d", len(want), len(d.Statements))
	}
	for i, w := range want {
		got := d.Statements[i].Value
		if got.Kind != w.kind || got.Text != w.text || got.HTML != w.html {
			t.Fatalf("statement %d: expected %+v, got %+v", i, w, got)
		}
	}
}

func TestResolve_MissingEntity(t *testing.T) {
	for name, body := range map[string]string{
		"absent":  `{"entities":{}}`,
		"missing": `{"entities":{"Q0":{"id":"Q0","missing":""}}}`,
	} {
		t.Run(name, func(t *testing.T) {
			f := &fakeFetcher{fn: func(ids []string, props []string) (map[string]wikibase.Entity, error) {
				return entitiesFrom(t, body), nil
			}}
			d, err := NewResolver(zerolog.Nop(), f, Options{}, nil).Resolve(context.Background(), "Q0")
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if !d.NoData || d.Label != "Q0" {
				t.Fatalf("expected no-data detail, got %+v", d)
			}
			if RenderHTML(d) != `<div class="small">No data</div>` {
				t.Fatalf("unexpected html %q", RenderHTML(d))
			}
			if len(f.calls) != 1 {
				t.Fatalf("expected no label lookups, got %d calls", len(f.calls))
			}
		})
	}
}

func TestResolve_Errors(t *testing.T) {
	f := &fakeFetcher{fn: func(ids []string, props []string) (map[string]wikibase.Entity, error) {
		return nil, &wikibase.APIError{Code: "maxlag", Info: "Waiting for a database server"}
	}}
	r := NewResolver(zerolog.Nop(), f, Options{}, nil)

	for _, id := range []string{"", "  ", "Q1|Q2"} {
		if _, err := r.Resolve(context.Background(), id); !errors.Is(err, ErrInvalidID) {
			t.Fatalf("id %q: expected ErrInvalidID, got %v", id, err)
		}
	}
	if len(f.calls) != 0 {
		t.Fatalf("invalid ids should not reach the API")
	}

	_, err := r.Resolve(context.Background(), "Q1")
	var apiErr *wikibase.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "maxlag" {
		t.Fatalf("expected wrapped APIError, got %v", err)
	}

	f.fn = func(ids []string, props []string) (map[string]wikibase.Entity, error) {
		return nil, &wikibase.StatusError{StatusCode: 503}
	}
	var se *wikibase.StatusError
	if _, err := r.Resolve(context.Background(), "Q1"); !errors.As(err, &se) || se.StatusCode != 503 {
		t.Fatalf("expected wrapped StatusError, got %v", err)
	}
}

func TestResolve_NoSuchEntityIsNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"error":{"code":"no-such-entity","info":"Could not find an entity with the ID \"Q99999999999\"."}}`)
	}))
	defer srv.Close()

	client := wikibase.NewClient(wikibase.Options{Endpoint: srv.URL})
	d, err := NewResolver(zerolog.Nop(), client, Options{}, nil).Resolve(context.Background(), "Q99999999999")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !d.NoData || d.Label != "Q99999999999" {
		t.Fatalf("expected no-data detail, got %+v", d)
	}
	if RenderHTML(d) != `<div class="small">No data</div>` {
		t.Fatalf("unexpected html %q", RenderHTML(d))
	}
}

func TestResolve_UnresolvedReferenceFallsBackToID(t *testing.T) {
	body := `{"entities":{"Q7":{"id":"Q7","labels":{"en":{"language":"en","value":"Seven"}},"claims":{
	  "P31":[
	    {"mainsnak":{"snaktype":"value","property":"P31","datavalue":{"type":"wikibase-entityid","value":{"id":"Q5"}}}},
	    {"mainsnak":{"snaktype":"value","property":"P31","datavalue":{"type":"string","value":"plain"}}}
	  ]
	}}}}`
	f := &fakeFetcher{fn: func(ids []string, props []string) (map[string]wikibase.Entity, error) {
		switch ids[0] {
		case "Q7":
			return entitiesFrom(t, body), nil
		case "Q5":
			return nil, errors.New("label chunk timed out")
		}
		return labelsFor(ids, map[string]string{"P31": "instance of"}), nil
	}}

	d, err := NewResolver(zerolog.Nop(), f, Options{}, nil).Resolve(context.Background(), "Q7")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(f.calls) != 3 {
		t.Fatalf("expected entity, property and reference lookups, got %v", f.calls)
	}
	if len(d.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(d.Statements))
	}
	for _, st := range d.Statements {
		if st.PropertyID != "P31" || st.PropertyLabel != "instance of" {
			t.Fatalf("unexpected property on %+v", st)
		}
	}
	ref := d.Statements[0].Value
	if ref.Kind != KindEntity || ref.Text != "Q5" || ref.EntityID != "Q5" {
		t.Fatalf("expected raw id fallback for reference, got %+v", ref)
	}
	if d.Statements[1].Value.Text != "plain" {
		t.Fatalf("unexpected second value %+v", d.Statements[1].Value)
	}
}

func TestRenderHTML_EscapesAndLists(t *testing.T) {
	d := EntityDetail{
		ID:          "Q1",
		Label:       `<script>x</script>`,
		Description: `a & b`,
		URL:         "https://www.wikidata.org/wiki/Q1",
		Statements: []Statement{
			{PropertyID: "P1", PropertyLabel: `<i>p</i>`, Value: textValue(KindString, "<v>")},
		},
	}
	out := RenderHTML(d)
	for _, want := range []string{
		`<h2><a class="entity-link" href="https://www.wikidata.org/wiki/Q1" target="_blank">&lt;script&gt;x&lt;/script&gt;</a></h2>`,
		`<div class="small">a &amp; b</div>`,
		`<h3>Statements</h3>`,
		`<div class="claim"><div class="prop">&lt;i&gt;p&lt;/i&gt;</div><div class="val">&lt;v&gt;</div></div>`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
	if strings.Contains(out, "<script>") {
		t.Fatalf("unescaped label in %q", out)
	}

	d.Statements = nil
	if !strings.Contains(RenderHTML(d), `<div class="small">No statements</div>`) {
		t.Fatalf("expected empty-statements marker")
	}
}
