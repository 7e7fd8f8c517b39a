package detail

import (
	"html"
	"strings"
)

// RenderHTML renders d as the sidebar fragment shown by the widget. Every inserted string is
// escaped.
func RenderHTML(d EntityDetail) string {
	if d.NoData {
		return `<div class="small">No data</div>`
	}

	var sb strings.Builder
	sb.WriteString(`<h2><a class="entity-link" href="` + html.EscapeString(d.URL) + `" target="_blank">`)
	sb.WriteString(html.EscapeString(d.Label))
	sb.WriteString(`</a></h2>`)
	if d.Description != "" {
		sb.WriteString(`<div class="small">` + html.EscapeString(d.Description) + `</div>`)
	}
	sb.WriteString(`<h3>Statements</h3>`)
	if len(d.Statements) == 0 {
		sb.WriteString(`<div class="small">No statements</div>`)
	}
	for _, st := range d.Statements {
		sb.WriteString(`<div class="claim"><div class="prop">`)
		sb.WriteString(html.EscapeString(st.PropertyLabel))
		sb.WriteString(`</div><div class="val">`)
		sb.WriteString(st.Value.HTML)
		sb.WriteString(`</div></div>`)
	}
	return sb.String()
}
