package catalog

import (
	"fmt"
	"strings"
	"time"
)

// Record is one raw JSON object as stored by the CRUD layer.
type Record map[string]any

// Ref identifies a document across every collection.
type Ref struct {
	Kind Kind   `json:"collection"`
	ID   string `json:"id"`
}

func (r Ref) String() string {
	return r.Kind.String() + ":" + r.ID
}

// Compare orders refs by collection name, then id.
func (r Ref) Compare(o Ref) int {
	if c := strings.Compare(r.Kind.String(), o.Kind.String()); c != 0 {
		return c
	}
	return strings.Compare(r.ID, o.ID)
}

// ParseRef parses the "collection:id" form produced by String.
func ParseRef(s string) (Ref, error) {
	name, id, ok := strings.Cut(s, ":")
	if !ok || id == "" {
		return Ref{}, fmt.Errorf("invalid document ref %q", s)
	}
	kind, err := ParseKind(name)
	if err != nil {
		return Ref{}, err
	}
	return Ref{Kind: kind, ID: id}, nil
}

// Document is the flattened, indexable form of a record.
type Document struct {
	Ref             Ref
	Title           string
	Fields          map[string]string
	WeightOverrides map[string]float64
}

// Weight resolves the weight of a field: override, then schema, then 1.
func (d Document) Weight(field string) float64 {
	if w, ok := d.WeightOverrides[field]; ok {
		return w
	}
	if w, ok := d.Ref.Kind.Schema().Weight(field); ok {
		return w
	}
	return 1
}

// Operation is the kind of write the CRUD layer committed.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// ParseOperation accepts the operation names used on the change feed.
func ParseOperation(s string) (Operation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "create", "created", "insert":
		return OpCreate, nil
	case "update", "updated", "put":
		return OpUpdate, nil
	case "delete", "deleted", "remove":
		return OpDelete, nil
	}
	return "", fmt.Errorf("unknown operation %q", s)
}

// Change is a committed write announced by the CRUD layer.
type Change struct {
	Kind        Kind      `json:"collection"`
	ID          string    `json:"id"`
	Operation   Operation `json:"operation"`
	CommittedAt time.Time `json:"committedAt,omitzero"`
}

func (c Change) Ref() Ref {
	return Ref{Kind: c.Kind, ID: c.ID}
}

// Normalize validates c and returns it with the id trimmed the way
// extracted ids are and the operation in canonical form, so its Ref matches
// the indexed document.
func (c Change) Normalize() (Change, error) {
	if err := c.Validate(); err != nil {
		return Change{}, err
	}
	c.ID = strings.TrimSpace(c.ID)
	c.Operation, _ = ParseOperation(string(c.Operation))
	return c, nil
}

// Validate checks that the change names a real document and operation.
func (c Change) Validate() error {
	if !c.Kind.Valid() {
		return fmt.Errorf("change has no valid collection")
	}
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("change for %s has empty id", c.Kind)
	}
	if _, err := ParseOperation(string(c.Operation)); err != nil {
		return err
	}
	return nil
}
