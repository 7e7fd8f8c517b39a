package wikibase

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// Response is the wbgetentities response envelope.
type Response struct {
	Entities map[string]Entity `json:"entities"`
	Error    *APIError         `json:"error,omitempty"`
}

// APIError is the error object the entity API returns alongside a 200 status.
type APIError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

// CodeNoSuchEntity is the API error code for an id that names no entity.
const CodeNoSuchEntity = "no-such-entity"

func (e *APIError) Error() string {
	return fmt.Sprintf("wikibase api error %s: %s", e.Code, e.Info)
}

// IsNoSuchEntity reports whether err carries the API's no-such-entity error.
func IsNoSuchEntity(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == CodeNoSuchEntity
}

type Entity struct {
	ID           string  `json:"id"`
	Type         string  `json:"type,omitempty"`
	Missing      *string `json:"missing,omitempty"`
	Labels       Terms   `json:"labels,omitempty"`
	Descriptions Terms   `json:"descriptions,omitempty"`
	Claims       Claims  `json:"claims,omitempty"`
}

// IsMissing reports whether the API flagged the entity as nonexistent.
func (e Entity) IsMissing() bool {
	return e.Missing != nil
}

type Term struct {
	Language string `json:"language"`
	Value    string `json:"value"`
}

// Terms maps a language code to a term. The API encodes an empty map as [].
type Terms map[string]Term

func (t *Terms) UnmarshalJSON(b []byte) error {
	r := gjson.ParseBytes(b)
	if r.IsArray() || r.Type == gjson.Null {
		*t = nil
		return nil
	}
	m := map[string]Term{}
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*t = m
	return nil
}

// Value returns the term value for lang, or "" when absent.
func (t Terms) Value(lang string) string {
	return t[lang].Value
}

// Claims holds claim groups in the order the API returned them.
type Claims []ClaimGroup

type ClaimGroup struct {
	Property   string
	Statements []Statement
}

func (c *Claims) UnmarshalJSON(b []byte) error {
	r := gjson.ParseBytes(b)
	if r.IsArray() || r.Type == gjson.Null {
		*c = nil
		return nil
	}
	if !r.IsObject() {
		return fmt.Errorf("claims: expected object, got %s", r.Type)
	}

	var out Claims
	var err error
	r.ForEach(func(key, value gjson.Result) bool {
		var statements []Statement
		if uerr := json.Unmarshal([]byte(value.Raw), &statements); uerr != nil {
			err = fmt.Errorf("claims %s: %w", key.String(), uerr)
			return false
		}
		out = append(out, ClaimGroup{Property: key.String(), Statements: statements})
		return true
	})
	if err != nil {
		return err
	}
	*c = out
	return nil
}

func (c Claims) MarshalJSON() ([]byte, error) {
	// Encoded as an array to keep group order stable for consumers.
	type group struct {
		Property   string      `json:"property"`
		Statements []Statement `json:"statements"`
	}
	out := make([]group, 0, len(c))
	for _, g := range c {
		out = append(out, group{Property: g.Property, Statements: g.Statements})
	}
	return json.Marshal(out)
}

type Statement struct {
	ID       string `json:"id,omitempty"`
	Rank     string `json:"rank,omitempty"`
	MainSnak Snak   `json:"mainsnak"`
}

const (
	SnakValue     = "value"
	SnakSomeValue = "somevalue"
	SnakNoValue   = "novalue"
)

type Snak struct {
	SnakType  string     `json:"snaktype"`
	Property  string     `json:"property"`
	DataType  string     `json:"datatype,omitempty"`
	DataValue *DataValue `json:"datavalue,omitempty"`
}

const (
	ValueEntityID        = "wikibase-entityid"
	ValueString          = "string"
	ValueTime            = "time"
	ValueQuantity        = "quantity"
	ValueGlobeCoordinate = "globecoordinate"
	ValueMonolingualText = "monolingualtext"
)

// DataValue keeps the type-specific payload raw; consumers read the fields they need.
type DataValue struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// EntityRef returns the referenced entity id for entity-reference values.
func (d *DataValue) EntityRef() (string, bool) {
	if d == nil || d.Type != ValueEntityID {
		return "", false
	}
	id := gjson.GetBytes(d.Value, "id").String()
	return id, id != ""
}
