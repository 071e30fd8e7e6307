package state

// DeleteToken is the reserved sentinel value shared between delta producers
// and the merge engine. A key whose delta value equals DeleteToken is removed
// from the canonical state during merge. The token is a plain string so that
// deltas arriving as parsed JSON can carry it.
const DeleteToken = "__DELETE__"

// appendKey is the single key that marks a delta value as an explicit
// append directive, e.g. {"append": "new memory"} or {"append": ["a", "b"]}.
const appendKey = "append"

// deltaShape is the finite set of shapes a delta value can take. Every merge
// decision starts by classifying the incoming value into exactly one shape,
// which keeps the handler precedence auditable in one place.
type deltaShape int

const (
	shapeAppend deltaShape = iota // {"append": ...} directive
	shapeDelete                   // the DeleteToken sentinel
	shapeMap                      // a nested mapping
	shapeList                     // a sequence
	shapeScalar                   // string, number, bool, nil
)

// classifyDelta resolves a delta value into its shape. The DeleteToken is a
// distinct shape, not a scalar: it must win over the string handlers further
// down the chain.
func classifyDelta(v any) deltaShape {
	switch tv := v.(type) {
	case string:
		if tv == DeleteToken {
			return shapeDelete
		}
		return shapeScalar
	case map[string]any:
		if _, ok := tv[appendKey]; ok && len(tv) == 1 {
			return shapeAppend
		}
		return shapeMap
	case []any:
		return shapeList
	default:
		return shapeScalar
	}
}

// appendItems normalizes the payload of an append directive to a slice.
func appendItems(directive map[string]any) []any {
	v := directive[appendKey]
	if items, ok := v.([]any); ok {
		return items
	}
	return []any{v}
}
