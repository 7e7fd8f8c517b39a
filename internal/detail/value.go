package detail

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"

	"github.com/tidwall/gjson"

	"wikicoord/core-go/internal/wikibase"
)

// Value kinds.
const (
	KindEntity     = "entity"
	KindString     = "string"
	KindTime       = "time"
	KindQuantity   = "quantity"
	KindCoordinate = "coordinate"
	KindText       = "text"
	KindNone       = "none"
	KindRaw        = "raw"
)

// Value is one rendered statement value. Text is plain; HTML is Text escaped (and linked for
// entity references).
type Value struct {
	Kind     string `json:"kind"`
	Text     string `json:"text"`
	EntityID string `json:"entity_id,omitempty"`
	URL      string `json:"url,omitempty"`
	HTML     string `json:"html"`
}

func renderValue(snak wikibase.Snak, labels map[string]string, pageBase string) Value {
	dv := snak.DataValue
	if dv == nil {
		text := "(no value)"
		if snak.SnakType == wikibase.SnakSomeValue {
			text = "(unknown value)"
		}
		return Value{Kind: KindNone, Text: text, HTML: `<span class="small">` + html.EscapeString(text) + `</span>`}
	}

	v := gjson.ParseBytes(dv.Value)
	switch {
	case dv.Type == wikibase.ValueEntityID:
		id := v.Get("id").String()
		if id == "" {
			return rawValue(dv.Value)
		}
		label := labelOr(labels, id)
		url := pageBase + id
		return Value{
			Kind:     KindEntity,
			Text:     label,
			EntityID: id,
			URL:      url,
			HTML:     `<a href="` + html.EscapeString(url) + `" target="_blank">` + html.EscapeString(label) + `</a>`,
		}
	case dv.Type == wikibase.ValueString:
		return textValue(KindString, v.String())
	case dv.Type == wikibase.ValueTime:
		return textValue(KindTime, v.Get("time").String())
	case dv.Type == wikibase.ValueQuantity:
		return textValue(KindQuantity, v.Get("amount").String())
	case dv.Type == wikibase.ValueGlobeCoordinate || v.Get("latitude").Exists():
		lat, lon := v.Get("latitude"), v.Get("longitude")
		if lat.Type != gjson.Number || lon.Type != gjson.Number {
			return rawValue(dv.Value)
		}
		return textValue(KindCoordinate, fmt.Sprintf("%.6f, %.6f", lat.Float(), lon.Float()))
	case dv.Type == wikibase.ValueMonolingualText:
		return textValue(KindText, v.Get("text").String())
	default:
		return rawValue(dv.Value)
	}
}

func textValue(kind, text string) Value {
	return Value{Kind: kind, Text: text, HTML: html.EscapeString(text)}
}

func rawValue(raw json.RawMessage) Value {
	text := "null"
	if len(raw) > 0 {
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err == nil {
			text = buf.String()
		} else {
			text = string(raw)
		}
	}
	return textValue(KindRaw, text)
}
