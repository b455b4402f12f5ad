// Package shape classifies decoded records into entity kinds by signature:
// pure configuration data describing which fields a kind requires, which it
// must lack, and what their values look like. Classification never guesses;
// a record matching zero or several signatures is Unknown.
package shape

import (
	"fmt"
	"os"
	"regexp"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"tkb/internal/entity"
	tkberrors "tkb/internal/errors"
)

// FieldType constrains a required field's decoded value.
type FieldType string

const (
	TypeAny    FieldType = "any"
	TypeString FieldType = "string"
	TypeNumber FieldType = "number"
	TypeBool   FieldType = "bool"
	TypeList   FieldType = "list"
)

// FieldRule is one required-field constraint. An empty Type means any value.
type FieldRule struct {
	Field   string    `toml:"field"`
	Type    FieldType `toml:"type,omitempty"`
	Pattern string    `toml:"pattern,omitempty"`
	Values  []string  `toml:"values,omitempty"`
}

// Signature describes one entity kind.
type Signature struct {
	// Required constraints must all hold.
	Required []FieldRule `toml:"required"`
	// AnyOf, when non-empty, requires at least one of these fields present.
	AnyOf []string `toml:"any_of,omitempty"`
	// Absent fields must all be missing (or null). This is the
	// discriminating set separating overlapping shapes.
	Absent []string `toml:"absent,omitempty"`
}

// Table is a full signature table, keyed by kind.
type Table struct {
	Kinds map[string]Signature `toml:"kinds"`

	sigs []compiledSig
}

type compiledSig struct {
	kind     entity.Kind
	required []compiledRule
	anyOf    []string
	absent   []string
}

type compiledRule struct {
	field  string
	typ    FieldType
	re     *regexp.Regexp
	values map[string]bool
}

// Load reads a signature table from a TOML file and compiles it. The table
// is reloaded on every materialization pass, so schema changes in the
// upstream application need only a config edit.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, tkberrors.NewInvalidConfig("shapes.path",
			fmt.Sprintf("cannot read signature table: %v", err))
	}
	var t Table
	if err := toml.Unmarshal(data, &t); err != nil {
		return nil, tkberrors.NewInvalidConfig("shapes.path",
			fmt.Sprintf("cannot parse signature table: %v", err))
	}
	if err := t.compile(); err != nil {
		return nil, tkberrors.NewInvalidConfig("shapes.path", err.Error())
	}
	return &t, nil
}

// compile validates the table and builds the matcher set, ordered by kind
// name so diagnostics are deterministic.
func (t *Table) compile() error {
	if len(t.Kinds) == 0 {
		return fmt.Errorf("signature table defines no kinds")
	}

	names := make([]string, 0, len(t.Kinds))
	for name := range t.Kinds {
		names = append(names, name)
	}
	sort.Strings(names)

	t.sigs = t.sigs[:0]
	for _, name := range names {
		sig := t.Kinds[name]
		if len(sig.Required) == 0 && len(sig.AnyOf) == 0 {
			return fmt.Errorf("kind %q has no required or any_of fields", name)
		}

		cs := compiledSig{kind: entity.Kind(name), anyOf: sig.AnyOf, absent: sig.Absent}
		for _, rule := range sig.Required {
			if rule.Field == "" {
				return fmt.Errorf("kind %q has a required rule without a field name", name)
			}
			cr := compiledRule{field: rule.Field, typ: rule.Type}
			switch rule.Type {
			case "", TypeAny, TypeString, TypeNumber, TypeBool, TypeList:
			default:
				return fmt.Errorf("kind %q field %q: unknown type %q", name, rule.Field, rule.Type)
			}
			if rule.Pattern != "" {
				re, err := regexp.Compile("^(?:" + rule.Pattern + ")$")
				if err != nil {
					return fmt.Errorf("kind %q field %q: bad pattern: %v", name, rule.Field, err)
				}
				cr.re = re
			}
			if len(rule.Values) > 0 {
				cr.values = make(map[string]bool, len(rule.Values))
				for _, v := range rule.Values {
					cr.values[v] = true
				}
			}
			cs.required = append(cs.required, cr)
		}
		t.sigs = append(t.sigs, cs)
	}
	return nil
}

// KindNames returns the table's kinds in sorted order.
func (t *Table) KindNames() []string {
	names := make([]string, len(t.sigs))
	for i, s := range t.sigs {
		names[i] = string(s.kind)
	}
	return names
}

// matchAll returns every kind whose signature matches, sorted by kind name.
func (t *Table) matchAll(fields map[string]any, resolve func(any) any) []entity.Kind {
	var matched []entity.Kind
	for i := range t.sigs {
		if t.sigs[i].match(fields, resolve) {
			matched = append(matched, t.sigs[i].kind)
		}
	}
	return matched
}

func (s *compiledSig) match(fields map[string]any, resolve func(any) any) bool {
	present := func(name string) (any, bool) {
		v, ok := fields[name]
		if !ok {
			return nil, false
		}
		v = resolve(v)
		if v == nil {
			// A field explicitly set to null does not count as present.
			return nil, false
		}
		return v, true
	}

	for i := range s.required {
		rule := &s.required[i]
		v, ok := present(rule.field)
		if !ok || !rule.valueOK(v) {
			return false
		}
	}

	if len(s.anyOf) > 0 {
		found := false
		for _, name := range s.anyOf {
			if _, ok := present(name); ok {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	for _, name := range s.absent {
		if _, ok := present(name); ok {
			return false
		}
	}
	return true
}

func (r *compiledRule) valueOK(v any) bool {
	switch r.typ {
	case TypeString:
		if _, ok := v.(string); !ok {
			return false
		}
	case TypeNumber:
		switch v.(type) {
		case int64, float64:
		default:
			return false
		}
	case TypeBool:
		if _, ok := v.(bool); !ok {
			return false
		}
	case TypeList:
		if _, ok := v.([]any); !ok {
			return false
		}
	}

	if r.re != nil {
		s, ok := v.(string)
		if !ok || !r.re.MatchString(s) {
			return false
		}
	}
	if r.values != nil {
		s, ok := v.(string)
		if !ok || !r.values[s] {
			return false
		}
	}
	return true
}
