package profile

// Compact drops nil, empty-string, false, zero-length and (recursively) emptied
// values so the planner never sees placeholder keys.
func Compact(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if c, keep := compactValue(v); keep {
			out[k] = c
		}
	}
	return out
}

func compactValue(v any) (any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case string:
		return t, t != ""
	case bool:
		return t, t
	case []string:
		return t, len(t) > 0
	case []any:
		var kept []any
		for _, e := range t {
			if c, ok := compactValue(e); ok {
				kept = append(kept, c)
			}
		}
		return kept, len(kept) > 0
	case map[string]any:
		c := Compact(t)
		return c, len(c) > 0
	case *string:
		if t == nil {
			return nil, false
		}
		return *t, *t != ""
	case *float64:
		if t == nil {
			return nil, false
		}
		return *t, true
	default:
		return v, true
	}
}

// Merge layers the maps left to right and compacts the result.
func Merge(layers ...map[string]any) map[string]any {
	merged := map[string]any{}
	for _, layer := range layers {
		for k, v := range layer {
			merged[k] = v
		}
	}
	return Compact(merged)
}
