package catalog

import (
	"encoding/json"
	"slices"
	"strconv"
	"strings"
)

// Field is one searchable attribute of a collection record.
type Field struct {
	Name   string
	Weight float64
}

// Schema describes how a collection is stored and which of its fields are
// indexed.
type Schema struct {
	Kind Kind
	// Object is the name of the JSON object holding the collection.
	Object string
	// ArrayKeys are the top-level keys tried, in order, to find the records.
	ArrayKeys []string
	// Groups, when set, means the array key holds an object of named
	// sub-arrays. Each record gains a componentType field naming its group.
	Groups []string
	// IDKeys are tried in order to derive the document id.
	IDKeys []string
	// TitleKeys are tried in order to derive the display title.
	TitleKeys []string
	Fields    []Field
}

var defaultIDKeys = []string{"id", "shortName", "name"}

// CommonFields are searched in every collection, whatever its own table
// says. A collection's table may raise or lower their weights.
var CommonFields = []Field{
	{"name", 3}, {"title", 3}, {"shortName", 2}, {"description", 1},
	{"extendedDescription", 0.5}, {"domain", 1.5}, {"changes", 0.5}, {"id", 0.25},
}

// withCommon appends every common field the collection does not list.
func withCommon(fields []Field) []Field {
	out := append([]Field(nil), fields...)
	for _, c := range CommonFields {
		if !slices.ContainsFunc(fields, func(f Field) bool { return f.Name == c.Name }) {
			out = append(out, c)
		}
	}
	return out
}

var schemas = map[Kind]Schema{
	Models: {
		Object:    "dataModels.json",
		ArrayKeys: []string{"models", "dataModels"},
		IDKeys:    defaultIDKeys,
		TitleKeys: []string{"name", "shortName"},
		Fields: withCommon([]Field{
			{"shortName", 3}, {"name", 3}, {"description", 1}, {"extendedDescription", 0.5},
			{"domain", 1.5}, {"changes", 0.5},
		}),
	},
	Agreements: {
		Object:    "dataAgreements.json",
		ArrayKeys: []string{"agreements", "dataAgreements"},
		IDKeys:    defaultIDKeys,
		TitleKeys: []string{"title", "name"},
		Fields: withCommon([]Field{
			{"title", 3}, {"name", 3}, {"purpose", 1.5}, {"description", 1}, {"terms", 1},
			{"modelShortName", 2}, {"domain", 1.5},
		}),
	},
	Domains: {
		Object:    "dataDomains.json",
		ArrayKeys: []string{"domains", "dataDomains"},
		IDKeys:    defaultIDKeys,
		TitleKeys: []string{"name", "title"},
		Fields: withCommon([]Field{
			{"name", 3}, {"description", 1}, {"extendedDescription", 0.5},
		}),
	},
	Applications: {
		Object:    "applications.json",
		ArrayKeys: []string{"applications"},
		IDKeys:    defaultIDKeys,
		TitleKeys: []string{"name", "shortName"},
		Fields: withCommon([]Field{
			{"name", 3}, {"shortName", 2}, {"description", 1}, {"domain", 1.5},
		}),
	},
	Policies: {
		Object:    "dataPolicies.json",
		ArrayKeys: []string{"policies", "dataPolicies"},
		IDKeys:    defaultIDKeys,
		TitleKeys: []string{"name", "title"},
		Fields: withCommon([]Field{
			{"name", 3}, {"title", 3}, {"description", 1}, {"category", 1},
		}),
	},
	Reference: {
		Object:    "reference.json",
		ArrayKeys: []string{"reference", "references"},
		IDKeys:    defaultIDKeys,
		TitleKeys: []string{"name", "title"},
		Fields: withCommon([]Field{
			{"name", 3}, {"title", 3}, {"description", 1}, {"category", 1},
		}),
	},
	Toolkit: {
		Object:    "toolkit.json",
		ArrayKeys: []string{"toolkit"},
		Groups:    []string{"functions", "containers", "terraform", "infrastructure"},
		IDKeys:    []string{"id", "name", "displayName"},
		TitleKeys: []string{"displayName", "name"},
		Fields: withCommon([]Field{
			{"displayName", 3}, {"name", 2}, {"description", 1}, {"category", 1}, {"tags", 1.5},
			{"componentType", 0.5}, {"language", 0.5}, {"usage", 0.5},
		}),
	},
	Lexicon: {
		Object:    "lexicon.json",
		ArrayKeys: []string{"lexicon", "terms"},
		IDKeys:    []string{"id", "term", "name"},
		TitleKeys: []string{"term", "name"},
		Fields: withCommon([]Field{
			{"term", 3}, {"name", 3}, {"definition", 1}, {"description", 1},
			{"taggedModels", 1.5}, {"synonyms", 1.5},
		}),
	},
}

// Schema returns the static schema for k. Unknown kinds return a zero Schema.
func (k Kind) Schema() Schema {
	s, ok := schemas[k]
	if !ok {
		return Schema{}
	}
	s.Kind = k
	return s
}

// Weight returns the configured weight for a field and whether the field is
// part of the schema.
func (s Schema) Weight(field string) (float64, bool) {
	for _, f := range s.Fields {
		if f.Name == field {
			return f.Weight, true
		}
	}
	return 0, false
}

// ID derives the document id of record from IDKeys, or "" if none is set.
func (s Schema) ID(record Record) string {
	return firstScalar(record, s.IDKeys)
}

// Title derives the display title of record from TitleKeys, or "".
func (s Schema) Title(record Record) string {
	return firstScalar(record, s.TitleKeys)
}

func firstScalar(record Record, keys []string) string {
	for _, key := range keys {
		if s := Scalar(record[key]); s != "" {
			return s
		}
	}
	return ""
}

// Scalar renders a JSON string or number as trimmed text. Other values
// yield "".
func Scalar(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	}
	return ""
}
