package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tokinarc-sales-be/internal/pkg/logger"
	"tokinarc-sales-be/pkg/catalog/catalogtest"
	"tokinarc-sales-be/pkg/knowledge"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEnv points the CLI at a fresh knowledge dir and fixture catalog.
func testEnv(t *testing.T) string {
	t.Helper()
	color.NoColor = true

	dir := t.TempDir()
	catalogPath, err := catalogtest.WriteJSON(dir)
	require.NoError(t, err)

	cfgKnowledgeDir = filepath.Join(dir, "knowledge")
	cfgCatalogPath = catalogPath
	cfgNatsURL = ""
	cfgVerbose = false
	searchK = 6
	gateCandidates, gateContext, gateIntent, gateAnchor = "", "", "", ""
	t.Cleanup(func() {
		cfgKnowledgeDir, cfgCatalogPath = "", ""
	})
	return cfgKnowledgeDir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func seed(t *testing.T, dir string) {
	t.Helper()
	s := knowledge.NewStore(knowledge.Config{Dir: dir, Enabled: true}, nil, logger.NewNopLogger())
	require.NoError(t, s.EnsureFiles())
}

func TestCLI_Help_ListsAllCommands(t *testing.T) {
	testEnv(t)
	out, err := run(t, "--help")
	require.NoError(t, err)
	for _, name := range []string{"lint", "search", "gate", "watch"} {
		assert.Contains(t, out, name)
	}
}

func TestCLI_Lint(t *testing.T) {
	dir := testEnv(t)
	seed(t, dir)

	out, err := run(t, "lint")
	require.NoError(t, err)
	assert.Contains(t, out, "core")
	assert.Contains(t, out, "SYN")
	assert.Contains(t, out, "OK")
}

func TestCLI_LintCorruptedDelta(t *testing.T) {
	dir := testEnv(t)
	seed(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, knowledge.DeltaFileName),
		[]byte("# Knowledge Delta\n\n## CHANGELOG (APPEND ONLY)\n- [2026-10-16][QA] missing priority\n"), 0o644))

	out, err := run(t, "lint")
	require.Error(t, err)
	assert.Contains(t, out, "corrupted")
}

func TestCLI_Search(t *testing.T) {
	dir := testEnv(t)
	seed(t, dir)

	out, err := run(t, "search", "chụp khí", "-k", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "[CORE]")
	assert.Contains(t, out, "NOZZLE")
}

func TestCLI_Gate(t *testing.T) {
	dir := testEnv(t)
	seed(t, dir)

	candidates := filepath.Join(t.TempDir(), "lines.md")
	require.NoError(t, os.WriteFile(candidates, []byte(strings.Join([]string{
		"# proposed",
		"- [2026-10-16][QA][high] Mã 004002 là cách điện hay được hỏi kèm chụp khí",
		"- [2026-10-16][QA][high] Mã 999999 là cách điện hay được hỏi",
	}, "\n")), 0o644))

	out, err := run(t, "gate", "--candidates", candidates, "--context", "cách điện 004002 đi với chụp khí nào")
	require.NoError(t, err)
	assert.Contains(t, out, "appended 1, rejected 1")

	delta, err := os.ReadFile(filepath.Join(dir, knowledge.DeltaFileName))
	require.NoError(t, err)
	assert.Contains(t, string(delta), "Mã 004002 là cách điện")
}
