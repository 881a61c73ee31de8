package config

// mergeMaps layers src over dst. Nested maps are merged key by key; any other
// value in src replaces the one in dst. Nested maps taken from src are copied
// so later layers never write into a source's own data.
func mergeMaps(dst, src map[string]any) {
	for k, v := range src {
		nested, isMap := v.(map[string]any)
		if !isMap {
			dst[k] = v
			continue
		}
		existing, ok := dst[k].(map[string]any)
		if !ok {
			existing = make(map[string]any, len(nested))
			dst[k] = existing
		}
		mergeMaps(existing, nested)
	}
}
