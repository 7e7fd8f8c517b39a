package sparql

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"wikicoord/core-go/internal/geo"
)

// Results is the subset of the SPARQL 1.1 JSON results format the viewport fetch consumes.
type Results struct {
	Results struct {
		Bindings []Binding `json:"bindings"`
	} `json:"results"`
}

// Binding is one result row keyed by variable name.
type Binding map[string]Term

type Term struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"xml:lang,omitempty"`
}

// Decode reads a SPARQL JSON results document.
func Decode(r io.Reader) (Results, error) {
	var res Results
	if err := json.NewDecoder(r).Decode(&res); err != nil {
		return Results{}, fmt.Errorf("decode sparql results: %w", err)
	}
	return res, nil
}

// Len returns the number of rows returned by the service, including rows later dropped.
func (r Results) Len() int {
	return len(r.Results.Bindings)
}

// Items converts rows into geo items in result order. Rows without an item, or whose coordinate
// literal is malformed, are skipped and counted in dropped.
func (r Results) Items() (items []geo.Item, dropped int) {
	items = make([]geo.Item, 0, len(r.Results.Bindings))
	for _, b := range r.Results.Bindings {
		item, ok := b.item()
		if !ok {
			dropped++
			continue
		}
		items = append(items, item)
	}
	return items, dropped
}

func (b Binding) item() (geo.Item, bool) {
	uri, ok := b["item"]
	if !ok || strings.TrimSpace(uri.Value) == "" {
		return geo.Item{}, false
	}
	coord, ok := b["coord"]
	if !ok {
		return geo.Item{}, false
	}
	p, err := geo.ParsePoint(strings.TrimSpace(coord.Value))
	if err != nil {
		return geo.Item{}, false
	}

	label := uri.Value
	if l, ok := b["itemLabel"]; ok {
		label = l.Value
	}
	return geo.Item{ID: EntityID(uri.Value), Label: label, Position: p}, true
}

// EntityID returns the last path segment of an entity URI, e.g. Q42 for
// http://www.wikidata.org/entity/Q42.
func EntityID(uri string) string {
	uri = strings.TrimRight(uri, "/")
	if i := strings.LastIndexByte(uri, '/'); i >= 0 {
		return uri[i+1:]
	}
	return uri
}
