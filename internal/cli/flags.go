package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skelly-dev/ripple/internal/graph"
)

func OptionalStringFlag(cmd *cobra.Command, name string) (string, error) {
	if cmd == nil || cmd.Flags().Lookup(name) == nil {
		return "", nil
	}
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		return "", fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	return strings.TrimSpace(value), nil
}

func OptionalBoolFlag(cmd *cobra.Command, name string) (bool, error) {
	if cmd == nil || cmd.Flags().Lookup(name) == nil {
		return false, nil
	}
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		return false, fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	return value, nil
}

func OptionalCountFlag(cmd *cobra.Command, name string) (int, error) {
	if cmd == nil || cmd.Flags().Lookup(name) == nil {
		return 0, nil
	}
	value, err := cmd.Flags().GetCount(name)
	if err != nil {
		return 0, fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	return value, nil
}

// ParseChangeFlags reads --module and --symbol. Symbols must use the
// module#name form.
func ParseChangeFlags(cmd *cobra.Command) ([]string, []graph.SymbolID, error) {
	modules, err := cmd.Flags().GetStringSlice("module")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read --module flag: %w", err)
	}
	rawSymbols, err := cmd.Flags().GetStringSlice("symbol")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read --symbol flag: %w", err)
	}

	changedModules := make([]string, 0, len(modules))
	for _, m := range modules {
		if m = strings.TrimSpace(m); m != "" {
			changedModules = append(changedModules, m)
		}
	}
	changedSymbols := make([]graph.SymbolID, 0, len(rawSymbols))
	for _, raw := range rawSymbols {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		id, ok := graph.ParseSymbolID(raw)
		if !ok {
			return nil, nil, fmt.Errorf("invalid --symbol %q: expected module#name", raw)
		}
		changedSymbols = append(changedSymbols, id)
	}
	return changedModules, changedSymbols, nil
}
