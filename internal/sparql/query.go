package sparql

import (
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"wikicoord/core-go/internal/geo"
)

// DefaultLimit caps the number of rows requested per viewport fetch.
const DefaultLimit = 1000

// BuildBoxQuery returns a query selecting every entity with a coordinate location (P625) inside
// the box service bounded by the west/south and east/north corners of b, with English labels,
// limited to limit rows. A non-positive limit uses DefaultLimit.
func BuildBoxQuery(b orb.Bound, limit int) string {
	if limit <= 0 {
		limit = DefaultLimit
	}
	west := geo.FormatPoint(orb.Point{b.Min.Lon(), b.Min.Lat()})
	east := geo.FormatPoint(orb.Point{b.Max.Lon(), b.Max.Lat()})

	var sb strings.Builder
	sb.WriteString("PREFIX geo: <http://www.opengis.net/ont/geosparql#>\n")
	sb.WriteString("PREFIX wdt: <http://www.wikidata.org/prop/direct/>\n")
	sb.WriteString("#defaultView:Map\n")
	sb.WriteString("SELECT ?item ?itemLabel ?coord WHERE {\n")
	sb.WriteString("  ?item wdt:P625 ?coord.\n")
	sb.WriteString("  SERVICE wikibase:box {\n")
	sb.WriteString("    ?item wdt:P625 ?location .\n")
	sb.WriteString("    bd:serviceParam wikibase:cornerWest \"" + west + "\"^^geo:wktLiteral ;\n")
	sb.WriteString("                    wikibase:cornerEast \"" + east + "\"^^geo:wktLiteral .\n")
	sb.WriteString("  }\n")
	sb.WriteString("  SERVICE wikibase:label { bd:serviceParam wikibase:language \"en\". }\n")
	sb.WriteString("} LIMIT " + strconv.Itoa(limit))
	return sb.String()
}
