package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skelly-dev/ripple/internal/cli"
)

func TestSnapshotImpactDiffFlowInWorkingDir(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "lib", "store.ts"), "export function load() { return 1; }\n")
	mustWriteFile(t, filepath.Join(root, "lib", "index.ts"), "export { load } from \"./store\";\n")
	mustWriteFile(t, filepath.Join(root, "app.ts"), "import { load } from \"./lib/store\";\nimport \"./lib\";\nexport function main() { return load(); }\n")

	withWorkingDir(t, root, func() {
		_, err := run(t, "snapshot")
		require.NoError(t, err)

		mustWriteFile(t, filepath.Join(root, "lib", "store.ts"), "import \"../app\";\nexport function load() { return 2; }\n")

		out, err := run(t, "impact", "--since-snapshot", "--json")
		require.NoError(t, err)
		var impact cli.ImpactSummary
		require.NoError(t, json.Unmarshal([]byte(out), &impact))
		assert.Equal(t, []string{"lib/store.ts"}, impact.ChangedModules)
		assert.Equal(t, []string{"app.ts", "lib/index.ts", "lib/store.ts"}, impact.Impact.AffectedModules)

		out, err = run(t, "diff", "--json")
		require.NoError(t, err)
		var diff cli.DiffSummary
		require.NoError(t, json.Unmarshal([]byte(out), &diff))
		require.Len(t, diff.Diff.NewCycles, 1)
		assert.Equal(t, []string{"app.ts", "lib/index.ts", "lib/store.ts"}, diff.Diff.NewCycles[0])
	})
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCommand(version)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func withWorkingDir(t *testing.T, dir string, fn func()) {
	t.Helper()
	previous, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() {
		require.NoError(t, os.Chdir(previous))
	}()
	fn()
}
