package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"src/index.ts":   "import { a } from './a'\nimport react from 'react'\nexport const x = a\n",
		"src/a.ts":       "import { x } from './index'\nexport const a = 1\n",
		"src/b.ts":       "export default 2\n",
		".gitignore":     "dist/\n",
		"dist/bundle.js": "export {}\n",
	}
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	return root
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "knip dev")
}

func TestLsFiles(t *testing.T) {
	root := writeProject(t)
	out, err := execute(t, "ls-files", "--root", root)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/a.ts", "src/b.ts", "src/index.ts"}, strings.Fields(out))

	out, err = execute(t, "ls-files", "--root", root, "--ignore-files")
	require.NoError(t, err)
	assert.Equal(t, ".gitignore\n", out)
}

func TestScan_CyclesAndOutput(t *testing.T) {
	root := writeProject(t)
	output := filepath.Join(t.TempDir(), "out", "graph.json")

	out, err := execute(t, "scan", "--root", root, "--cycles", "--output", output)
	require.NoError(t, err)
	assert.Contains(t, out, "analyzed 3 files")
	assert.Contains(t, out, "src/a.ts -> src/index.ts -> src/a.ts")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, filepath.Join(root, "src", "index.ts"))
}

func TestWhyAndImpact(t *testing.T) {
	root := writeProject(t)

	out, err := execute(t, "why", "--root", root, "src/index.ts", "src/a.ts")
	require.NoError(t, err)
	assert.Equal(t, "src/index.ts\n  src/a.ts\n", out)

	_, err = execute(t, "why", "--root", root, "src/b.ts", "src/a.ts")
	assert.Error(t, err)

	out, err = execute(t, "impact", "--root", root, "src/a.ts")
	require.NoError(t, err)
	assert.Contains(t, out, "direct importers (1):\n  src/index.ts")
}

func TestScan_Format(t *testing.T) {
	root := writeProject(t)

	out, err := execute(t, "scan", "--root", root, "--format", "tsv")
	require.NoError(t, err)
	assert.Contains(t, out, "src/index.ts\tsrc/a.ts\tinternal\ta\n")
	assert.Contains(t, out, "src/index.ts\treact\texternal")

	_, err = execute(t, "scan", "--root", root, "--format", "svg")
	assert.Error(t, err)
}

func TestStoreCommands(t *testing.T) {
	root := writeProject(t)

	_, err := execute(t, "importers", "--root", root, "src/a.ts", "a")
	require.Error(t, err, "querying before a persisted scan must fail")

	_, err = execute(t, "scan", "--root", root, "--store")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, ".knip", "knip.db"))

	out, err := execute(t, "importers", "--root", root, "src/a.ts", "a")
	require.NoError(t, err)
	assert.Equal(t, "src/index.ts\n", out)

	out, err = execute(t, "exports", "--root", root, "src/a.ts")
	require.NoError(t, err)
	assert.Contains(t, out, "\ta\n")
}

func TestSetup_CleanupStopsMetricsServer(t *testing.T) {
	root := writeProject(t)
	var stderr bytes.Buffer
	opts := &globalOptions{root: root, metricsAddr: "127.0.0.1:0"}

	cfg, cleanup, err := opts.setup(context.Background(), &stderr)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:0", cfg.Observability.MetricsAddr)

	cleanup()
	assert.Contains(t, stderr.String(), "observability server starting")
	assert.NotContains(t, stderr.String(), "failed to stop observability server")
}
