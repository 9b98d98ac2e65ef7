package facts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRejectsBlankModuleID(t *testing.T) {
	records := []ModuleFacts{
		{ModuleID: "src/a.ts", DeclaredSymbols: []string{"run"}},
		{ModuleID: "   ", DeclaredSymbols: []string{"lost"}},
	}

	valid, issues := Validate(records)
	require.Len(t, valid, 1)
	assert.Equal(t, "src/a.ts", valid[0].ModuleID)
	require.Len(t, issues, 1)
	assert.Equal(t, IssueMalformedRecord, issues[0].Kind)
}

func TestValidateDropsEdgesFromUndeclaredCallers(t *testing.T) {
	records := []ModuleFacts{{
		ModuleID:        "a.ts",
		DeclaredSymbols: []string{"run", "helper"},
		SymbolCallEdges: map[string][]string{
			"run":   {"helper", " ", "helper"},
			"ghost": {"helper"},
		},
		SymbolLocation: map[string]Location{
			"run":    {Line: 1, Column: 1},
			"helper": {Line: 5, Column: 1},
		},
	}}

	valid, issues := Validate(records)
	require.Len(t, valid, 1)
	assert.Equal(t, map[string][]string{"run": {"helper"}}, valid[0].SymbolCallEdges)

	kinds := make([]IssueKind, 0, len(issues))
	for _, issue := range issues {
		kinds = append(kinds, issue.Kind)
	}
	assert.ElementsMatch(t, []IssueKind{IssueMalformedEdge, IssueMalformedEdge}, kinds)
}

func TestValidateEnforcesLocationOnlyWhenPresent(t *testing.T) {
	withLocations := ModuleFacts{
		ModuleID:        "a.ts",
		DeclaredSymbols: []string{"run", "helper"},
		SymbolCallEdges: map[string][]string{"run": {"helper"}},
		SymbolLocation:  map[string]Location{"helper": {Line: 2}},
	}
	withoutLocations := ModuleFacts{
		ModuleID:        "b.ts",
		DeclaredSymbols: []string{"run", "helper"},
		SymbolCallEdges: map[string][]string{"run": {"helper"}},
	}

	valid, _ := Validate([]ModuleFacts{withLocations, withoutLocations})
	require.Len(t, valid, 2)
	assert.Empty(t, valid[0].SymbolCallEdges)
	assert.Equal(t, []string{"helper"}, valid[1].SymbolCallEdges["run"])
}

func TestValidateNormalizesComplexity(t *testing.T) {
	valid, _ := Validate([]ModuleFacts{{
		ModuleID:         "./lib/x.ts",
		DeclaredSymbols:  []string{"a", "b"},
		SymbolComplexity: map[string]int{"a": 0, "b": 7},
	}})
	require.Len(t, valid, 1)
	assert.Equal(t, "lib/x.ts", valid[0].ModuleID)
	assert.Equal(t, map[string]int{"a": 1, "b": 7}, valid[0].SymbolComplexity)
}

func TestValidateMergesDuplicatesIndependentOfOrder(t *testing.T) {
	first := ModuleFacts{
		ModuleID:             "a.ts",
		DeclaredDependencies: []string{"./c", "./b"},
		DeclaredSymbols:      []string{"x"},
		SymbolLocation:       map[string]Location{"x": {Line: 9}},
		SymbolComplexity:     map[string]int{"x": 2},
	}
	second := ModuleFacts{
		ModuleID:             "a.ts",
		DeclaredDependencies: []string{"./b", "./d"},
		DeclaredSymbols:      []string{"x", "y"},
		SymbolLocation:       map[string]Location{"x": {Line: 3}},
		SymbolComplexity:     map[string]int{"x": 5},
	}

	forward, issuesA := Validate([]ModuleFacts{first, second})
	backward, issuesB := Validate([]ModuleFacts{second, first})

	assert.Equal(t, forward, backward)
	assert.Equal(t, issuesA, issuesB)
	require.Len(t, forward, 1)
	assert.Equal(t, []string{"./b", "./c", "./d"}, forward[0].DeclaredDependencies)
	assert.Equal(t, []string{"x", "y"}, forward[0].DeclaredSymbols)
	assert.Equal(t, 3, forward[0].SymbolLocation["x"].Line)
	assert.Equal(t, 5, forward[0].SymbolComplexity["x"])
}

func TestLoadReadsJSONAndYAML(t *testing.T) {
	dir := t.TempDir()
	records := []ModuleFacts{{
		ModuleID:             "src/a.ts",
		DeclaredDependencies: []string{"./b"},
		DeclaredSymbols:      []string{"run"},
		SymbolCallEdges:      map[string][]string{"run": {"helper"}},
		SymbolLocation:       map[string]Location{"run": {Line: 1, Column: 1}},
		SymbolComplexity:     map[string]int{"run": 2},
	}}

	for _, name := range []string{"facts.json", "facts.yaml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, Save(path, records))
		loaded, err := Load(path)
		require.NoError(t, err, name)
		assert.Equal(t, records, loaded, name)
	}
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facts.txt")
	require.NoError(t, os.WriteFile(path, []byte("modules: []"), 0644))

	_, err := Load(path)
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}
