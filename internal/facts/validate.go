package facts

import (
	"fmt"
	"path"
	"sort"
	"strings"
)

// Validate normalises records and separates out contract violations.
//
// A record with a blank module ID is rejected outright and contributes nothing.
// Call edges whose caller is not declared by the record (or, when the record
// carries locations at all, has no location) are dropped individually. Records
// sharing a module ID are merged by union so the result never depends on input
// order. The returned records are fresh copies sorted by module ID.
func Validate(records []ModuleFacts) ([]ModuleFacts, []Issue) {
	issues := make([]Issue, 0)
	byID := make(map[string][]ModuleFacts, len(records))

	for i, record := range records {
		id := NormalizeModuleID(record.ModuleID)
		if id == "" {
			issues = append(issues, Issue{
				Kind:    IssueMalformedRecord,
				Message: fmt.Sprintf("record %d has no module id", i),
			})
			continue
		}
		cleaned, recordIssues := normalizeRecord(id, record)
		issues = append(issues, recordIssues...)
		byID[id] = append(byID[id], cleaned)
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]ModuleFacts, 0, len(ids))
	for _, id := range ids {
		group := byID[id]
		if len(group) == 1 {
			out = append(out, group[0])
			continue
		}
		issues = append(issues, Issue{
			Module:  id,
			Kind:    IssueDuplicateModule,
			Message: fmt.Sprintf("%d records share this module id; merged", len(group)),
		})
		out = append(out, mergeRecords(id, group))
	}

	SortIssues(issues)
	return out, issues
}

// NormalizeModuleID converts a module path to the slash-separated form used as
// graph identity.
func NormalizeModuleID(id string) string {
	id = strings.TrimSpace(strings.ReplaceAll(id, "\\", "/"))
	if id == "" {
		return ""
	}
	id = path.Clean(id)
	id = strings.TrimPrefix(id, "./")
	if id == "." {
		return ""
	}
	return id
}

func normalizeRecord(id string, record ModuleFacts) (ModuleFacts, []Issue) {
	issues := make([]Issue, 0)
	out := ModuleFacts{
		ModuleID:             id,
		DeclaredDependencies: dedupeKeepOrder(record.DeclaredDependencies),
		SymbolCallEdges:      make(map[string][]string),
		SymbolLocation:       make(map[string]Location),
		SymbolComplexity:     make(map[string]int),
	}

	declared := make(map[string]bool, len(record.DeclaredSymbols))
	for _, raw := range record.DeclaredSymbols {
		name := strings.TrimSpace(raw)
		if name == "" {
			issues = append(issues, Issue{Module: id, Kind: IssueMalformedSymbol, Message: "blank symbol name"})
			continue
		}
		if declared[name] {
			issues = append(issues, Issue{Module: id, Symbol: name, Kind: IssueMalformedSymbol, Message: "symbol declared more than once"})
			continue
		}
		declared[name] = true
		out.DeclaredSymbols = append(out.DeclaredSymbols, name)
	}
	sort.Strings(out.DeclaredSymbols)

	for _, name := range out.DeclaredSymbols {
		if loc, ok := record.SymbolLocation[name]; ok {
			out.SymbolLocation[name] = loc
		}
		complexity := record.SymbolComplexity[name]
		if complexity < 1 {
			complexity = 1
		}
		out.SymbolComplexity[name] = complexity
	}

	enforceLocation := len(record.SymbolLocation) > 0
	callers := make([]string, 0, len(record.SymbolCallEdges))
	for caller := range record.SymbolCallEdges {
		callers = append(callers, caller)
	}
	sort.Strings(callers)

	for _, rawCaller := range callers {
		callees := record.SymbolCallEdges[rawCaller]
		caller := strings.TrimSpace(rawCaller)
		if !declared[caller] {
			issues = append(issues, Issue{
				Module:  id,
				Symbol:  caller,
				Kind:    IssueMalformedEdge,
				Message: fmt.Sprintf("caller is not declared; %d call edge(s) skipped", len(callees)),
			})
			continue
		}
		if _, ok := record.SymbolLocation[caller]; enforceLocation && !ok {
			issues = append(issues, Issue{
				Module:  id,
				Symbol:  caller,
				Kind:    IssueMalformedEdge,
				Message: fmt.Sprintf("caller has no location; %d call edge(s) skipped", len(callees)),
			})
			continue
		}

		kept := make([]string, 0, len(callees))
		for _, callee := range callees {
			callee = strings.TrimSpace(callee)
			if callee == "" {
				issues = append(issues, Issue{Module: id, Symbol: caller, Kind: IssueMalformedEdge, Message: "blank callee name"})
				continue
			}
			kept = append(kept, callee)
		}
		kept = dedupeSorted(kept)
		if len(kept) > 0 {
			out.SymbolCallEdges[caller] = append(out.SymbolCallEdges[caller], kept...)
			out.SymbolCallEdges[caller] = dedupeSorted(out.SymbolCallEdges[caller])
		}
	}

	return out, issues
}

func mergeRecords(id string, group []ModuleFacts) ModuleFacts {
	out := ModuleFacts{
		ModuleID:         id,
		SymbolCallEdges:  make(map[string][]string),
		SymbolLocation:   make(map[string]Location),
		SymbolComplexity: make(map[string]int),
	}
	for _, record := range group {
		out.DeclaredDependencies = append(out.DeclaredDependencies, record.DeclaredDependencies...)
		out.DeclaredSymbols = append(out.DeclaredSymbols, record.DeclaredSymbols...)
		for caller, callees := range record.SymbolCallEdges {
			out.SymbolCallEdges[caller] = append(out.SymbolCallEdges[caller], callees...)
		}
		for name, loc := range record.SymbolLocation {
			current, ok := out.SymbolLocation[name]
			if !ok || locationLess(loc, current) {
				out.SymbolLocation[name] = loc
			}
		}
		for name, complexity := range record.SymbolComplexity {
			if complexity > out.SymbolComplexity[name] {
				out.SymbolComplexity[name] = complexity
			}
		}
	}

	// Declaration order cannot survive a merge without depending on input order.
	out.DeclaredDependencies = dedupeSorted(out.DeclaredDependencies)
	out.DeclaredSymbols = dedupeSorted(out.DeclaredSymbols)
	for caller, callees := range out.SymbolCallEdges {
		out.SymbolCallEdges[caller] = dedupeSorted(callees)
	}
	return out
}

func locationLess(a, b Location) bool {
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Column < b.Column
}

func dedupeKeepOrder(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		out = append(out, value)
	}
	return out
}

func dedupeSorted(values []string) []string {
	out := dedupeKeepOrder(values)
	sort.Strings(out)
	return out
}
