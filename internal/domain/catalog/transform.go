package catalog

import "fmt"

// TransformKind tags the variant of a Transform.
type TransformKind string

// Transform kinds.
const (
	// KindConstant always yields Value.
	KindConstant TransformKind = "constant"
	// KindField copies payload[Field], or Default when absent or nil.
	KindField TransformKind = "field"
	// KindCompare yields Then when payload[Field] Op Value holds, else Else.
	KindCompare TransformKind = "compare"
	// KindCompareFields yields Then when payload[Field] Op payload[Other] holds, else Else.
	KindCompareFields TransformKind = "compare_fields"
)

// Transform derives a secondary field from an input payload. It never sees
// stored state.
type Transform struct {
	Kind    TransformKind
	Value   any
	Field   string
	Default any
	Op      Operator
	Other   string
	Then    any
	Else    any
}

// Apply evaluates the transform against one input payload.
func (t Transform) Apply(data map[string]any) (any, error) {
	switch t.Kind {
	case KindConstant:
		return t.Value, nil
	case KindField:
		if v, ok := data[t.Field]; ok && v != nil {
			return v, nil
		}
		return t.Default, nil
	case KindCompare:
		v, ok := data[t.Field]
		if !ok || v == nil {
			return t.Else, nil
		}
		return t.branch(v, t.Value)
	case KindCompareFields:
		l, lok := data[t.Field]
		r, rok := data[t.Other]
		if !lok || !rok || l == nil || r == nil {
			return t.Else, nil
		}
		return t.branch(l, r)
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrTransform, t.Kind)
	}
}

// Missing reports whether a payload field read by the transform is absent
// or nil. Constants read nothing and are never missing.
func (t Transform) Missing(data map[string]any) bool {
	switch t.Kind {
	case KindField, KindCompare:
		return data[t.Field] == nil
	case KindCompareFields:
		return data[t.Field] == nil || data[t.Other] == nil
	default:
		return false
	}
}

func (t Transform) branch(l, r any) (any, error) {
	ok, err := Compare(l, t.Op, r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTransform, t.Field, err)
	}
	if ok {
		return t.Then, nil
	}
	return t.Else, nil
}

func (t Transform) validate() error {
	switch t.Kind {
	case KindConstant:
		return nil
	case KindField:
		if t.Field == "" {
			return fmt.Errorf("%w: field transform needs a field", ErrInvalidCatalog)
		}
	case KindCompare:
		if t.Field == "" || t.Op == "" {
			return fmt.Errorf("%w: compare transform needs field and op", ErrInvalidCatalog)
		}
	case KindCompareFields:
		if t.Field == "" || t.Other == "" || t.Op == "" {
			return fmt.Errorf("%w: compare_fields transform needs field, other and op", ErrInvalidCatalog)
		}
	default:
		return fmt.Errorf("%w: unknown transform kind %q", ErrInvalidCatalog, t.Kind)
	}
	return nil
}
