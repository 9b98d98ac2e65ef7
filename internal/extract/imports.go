package extract

import "strings"

// parseImportBindings reads the clause of an ES import statement. named maps
// each local binding to the exported name it refers to; namespaces lists
// `* as ns` bindings. Default imports keep their local name and are not
// returned.
func parseImportBindings(raw string) (named map[string]string, namespaces []string) {
	named = make(map[string]string)
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "import ") {
		return named, nil
	}
	fromIdx := strings.Index(raw, " from ")
	if fromIdx == -1 {
		return named, nil
	}
	clause := strings.TrimSpace(strings.TrimPrefix(raw[:fromIdx], "import "))
	clause = strings.TrimSpace(strings.TrimPrefix(clause, "type "))

	for _, part := range splitTopLevelCSV(clause) {
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			for _, member := range splitTopLevelCSV(strings.Trim(part, "{} \n\t")) {
				member = strings.TrimSpace(strings.TrimPrefix(member, "type "))
				base, alias := splitAliasByAs(member)
				if base == "" || alias == "" || base == alias {
					continue
				}
				named[alias] = base
			}
			continue
		}
		if strings.HasPrefix(part, "* as ") {
			if ns := strings.TrimSpace(strings.TrimPrefix(part, "* as ")); ns != "" {
				namespaces = append(namespaces, ns)
			}
		}
	}
	return named, namespaces
}

func splitTopLevelCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := make([]string, 0)
	depth := 0
	start := 0
	for i, ch := range raw {
		switch ch {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(raw[start:i]))
				start = i + 1
			}
		}
	}
	parts = append(parts, strings.TrimSpace(raw[start:]))
	return parts
}

func splitAliasByAs(raw string) (base string, alias string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ""
	}
	parts := strings.Split(raw, " as ")
	if len(parts) == 1 {
		return strings.TrimSpace(parts[0]), ""
	}
	base = strings.TrimSpace(strings.Join(parts[:len(parts)-1], " as "))
	alias = strings.TrimSpace(parts[len(parts)-1])
	return base, alias
}
