package schema

// piiKeyword marks a property whose value is stripped after validation
const piiKeyword = "pii"

// redactionPaths collects the property paths annotated with "pii": true,
// descending into nested object properties.
func redactionPaths(doc map[string]any) [][]string {
	var paths [][]string
	collectRedactions(doc, nil, &paths)
	return paths
}

func collectRedactions(node map[string]any, prefix []string, paths *[][]string) {
	props, ok := node["properties"].(map[string]any)
	if !ok {
		return
	}
	for name, raw := range props {
		prop, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		path := append(append([]string(nil), prefix...), name)
		if flag, _ := prop[piiKeyword].(bool); flag {
			*paths = append(*paths, path)
			continue
		}
		collectRedactions(prop, path, paths)
	}
}

// redact removes every path from data in place
func redact(data map[string]any, paths [][]string) {
	for _, path := range paths {
		removePath(data, path)
	}
}

func removePath(data map[string]any, path []string) {
	node := data
	for _, segment := range path[:len(path)-1] {
		next, ok := node[segment].(map[string]any)
		if !ok {
			return
		}
		node = next
	}
	delete(node, path[len(path)-1])
}
