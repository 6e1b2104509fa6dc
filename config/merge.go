package config

// mergeMaps deep-merges src into dst. Nested maps merge key by key; any
// other value in src replaces the dst value outright.
//
// Sources that decode through intermediate formats can hand back
// map[any]any for nested sections; those are normalized to string keys
// first so precedence works across source types.
func mergeMaps(dst, src map[string]any) {
	for k, v := range src {
		v = normalizeValue(v)
		if mv, ok := v.(map[string]any); ok {
			if existing, ok := dst[k].(map[string]any); ok {
				mergeMaps(existing, mv)
				continue
			}
		}
		dst[k] = v
	}
}

func normalizeValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, nested := range typed {
			out[k] = normalizeValue(nested)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(typed))
		for k, nested := range typed {
			key, ok := k.(string)
			if !ok {
				continue
			}
			out[key] = normalizeValue(nested)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}
