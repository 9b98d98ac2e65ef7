package facts

import "sort"

// Location is a 1-based source position.
type Location struct {
	Line   int `json:"line" yaml:"line"`
	Column int `json:"column" yaml:"column"`
}

// ModuleFacts is everything the extraction adapter knows about one module.
// Records are treated as immutable once produced.
type ModuleFacts struct {
	ModuleID             string              `json:"moduleId" yaml:"moduleId"`
	DeclaredDependencies []string            `json:"declaredDependencies,omitempty" yaml:"declaredDependencies,omitempty"`
	DeclaredSymbols      []string            `json:"declaredSymbols,omitempty" yaml:"declaredSymbols,omitempty"`
	SymbolCallEdges      map[string][]string `json:"symbolCallEdges,omitempty" yaml:"symbolCallEdges,omitempty"`
	SymbolLocation       map[string]Location `json:"symbolLocation,omitempty" yaml:"symbolLocation,omitempty"`
	SymbolComplexity     map[string]int      `json:"symbolComplexity,omitempty" yaml:"symbolComplexity,omitempty"`
}

// IssueKind classifies a problem found in a facts record.
type IssueKind string

const (
	IssueMalformedRecord IssueKind = "malformed_record"
	IssueMalformedSymbol IssueKind = "malformed_symbol"
	IssueMalformedEdge   IssueKind = "malformed_edge"
	IssueDuplicateModule IssueKind = "duplicate_module"
)

// Issue captures a non-fatal contract violation in the input facts.
type Issue struct {
	Module  string    `json:"module,omitempty"`
	Symbol  string    `json:"symbol,omitempty"`
	Kind    IssueKind `json:"kind"`
	Message string    `json:"message"`
}

// SortIssues orders issues by module, symbol, then message.
func SortIssues(issues []Issue) {
	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Module != issues[j].Module {
			return issues[i].Module < issues[j].Module
		}
		if issues[i].Symbol != issues[j].Symbol {
			return issues[i].Symbol < issues[j].Symbol
		}
		if issues[i].Kind != issues[j].Kind {
			return issues[i].Kind < issues[j].Kind
		}
		return issues[i].Message < issues[j].Message
	})
}

// ModuleIDs returns the module IDs of records in input order.
func ModuleIDs(records []ModuleFacts) []string {
	out := make([]string, 0, len(records))
	for _, record := range records {
		out = append(out, record.ModuleID)
	}
	return out
}
