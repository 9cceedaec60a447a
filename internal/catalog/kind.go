// Package catalog defines the collection kinds served by the search index,
// their static field tables, and the document and change shapes that flow
// between the source store, the indexer and the searcher.
package catalog

import (
	"fmt"
	"strings"
)

// Kind enumerates the catalog collections. The zero value is invalid.
type Kind uint8

const (
	KindUnknown Kind = iota
	Models
	Agreements
	Domains
	Applications
	Policies
	Reference
	Toolkit
	Lexicon
)

var kindNames = [...]string{
	KindUnknown:  "unknown",
	Models:       "models",
	Agreements:   "agreements",
	Domains:      "domains",
	Applications: "applications",
	Policies:     "policies",
	Reference:    "reference",
	Toolkit:      "toolkit",
	Lexicon:      "lexicon",
}

// aliases accepts the names the collections carry in the object store and
// older API clients.
var aliases = map[string]Kind{
	"model":          Models,
	"datamodels":     Models,
	"specifications": Models,
	"agreement":      Agreements,
	"dataagreements": Agreements,
	"domain":         Domains,
	"datadomains":    Domains,
	"application":    Applications,
	"apps":           Applications,
	"policy":         Policies,
	"datapolicies":   Policies,
	"references":     Reference,
	"toolkits":       Toolkit,
	"glossary":       Lexicon,
	"terms":          Lexicon,
}

// Kinds returns every valid kind in declaration order.
func Kinds() []Kind {
	return []Kind{Models, Agreements, Domains, Applications, Policies, Reference, Toolkit, Lexicon}
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Names returns the collection names of kinds, for logs and responses.
func Names(kinds []Kind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = k.String()
	}
	return out
}

// Valid reports whether k names a real collection.
func (k Kind) Valid() bool {
	return k > KindUnknown && int(k) < len(kindNames)
}

// ParseKind resolves a collection name or alias, case-insensitively.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for k := Models; int(k) < len(kindNames); k++ {
		if kindNames[k] == name {
			return k, nil
		}
	}
	if k, ok := aliases[name]; ok {
		return k, nil
	}
	return KindUnknown, fmt.Errorf("unknown collection %q", s)
}

// ParseKinds parses a comma separated list, ignoring blanks and duplicates.
func ParseKinds(csv string) ([]Kind, error) {
	var kinds []Kind
	seen := make(map[Kind]bool)
	for _, part := range strings.Split(csv, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		k, err := ParseKind(part)
		if err != nil {
			return nil, err
		}
		if !seen[k] {
			seen[k] = true
			kinds = append(kinds, k)
		}
	}
	return kinds, nil
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid collection kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
