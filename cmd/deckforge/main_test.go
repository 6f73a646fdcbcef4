package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kardianos/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/deckforge/internal/config"
	"github.com/ramonehamilton/deckforge/internal/deck"
)

const burnList = `Deck
4 Lightning Bolt (2XM) 141
2 Forest

Sideboard
2 Duress (M21) 95
`

type cliTestEnv struct {
	dir        string
	configPath string
	dbPath     string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	dir := t.TempDir()
	env := &cliTestEnv{
		dir:        dir,
		configPath: filepath.Join(dir, "config.toml"),
		dbPath:     filepath.Join(dir, "decks.db"),
	}
	t.Setenv(config.EnvLogLevel, "error")
	t.Setenv(config.EnvDBPath, env.dbPath)
	return env
}

func (env *cliTestEnv) run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	flags := []string{"--config", env.configPath, "--db-path", env.dbPath, "--offline"}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func (env *cliTestEnv) mustRun(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	out, stderr, err := env.run(t, stdin, args...)
	require.NoError(t, err, "deckforge %v\nstderr: %s", args, stderr)
	return out
}

func TestCLIDeckWorkflow(t *testing.T) {
	env := setupCLITestEnv(t)

	out := env.mustRun(t, "", "new", "Burn")
	assert.Contains(t, out, "Created deck Burn")

	out = env.mustRun(t, burnList, "import", "--deck", "burn")
	assert.Contains(t, out, "Imported into deck Burn")
	assert.Contains(t, out, "6 main, 2 sideboard, 0 tech ideas")

	out = env.mustRun(t, "", "show", "Burn")
	assert.Contains(t, out, "Lightning Bolt")
	assert.Contains(t, out, "2XM")
	assert.Contains(t, out, "basic-land")
	assert.Contains(t, out, "0.20", "two basic lands at the default price")
	assert.Contains(t, strings.ToLower(out), "2 unpriced", "footer counts unpriced stacks")

	out = env.mustRun(t, "", "move", "Burn", "--from", "main", "--to", "techIdeas", "Lightning Bolt|2xm#141|normal=1", "missing|x|normal")
	assert.Contains(t, out, "moved 1 lightning bolt|2xm#141|normal (3 left in main)")
	assert.Contains(t, out, "skipped missing|x|normal: not-found")

	out = env.mustRun(t, "", "export", "Burn", "--tech")
	assert.Contains(t, out, "3 Lightning Bolt (2XM) 141")
	assert.Contains(t, out, "1 Lightning Bolt (2XM) 141")
	assert.Contains(t, out, "2 Duress (M21) 95")

	out = env.mustRun(t, "", "consolidate", "Burn")
	assert.Contains(t, out, "main: 2 stacks, 5 cards")
	assert.Contains(t, out, "techIdeas: 1 stacks, 1 cards")

	out = env.mustRun(t, "", "refresh", "Burn")
	assert.Equal(t, "Checked 0 stacks, updated 0\n", out, "offline refresh leaves prices alone")
}

func TestCLIShowJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	env.mustRun(t, burnList, "import", "--name", "Burn")

	out := env.mustRun(t, "", "show", "Burn", "--json")
	var doc struct {
		Name          string            `json:"name"`
		Total         string            `json:"total"`
		MissingPrices int               `json:"missing_prices"`
		Counts        map[deck.Zone]int `json:"counts"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "Burn", doc.Name)
	assert.Equal(t, "0.20", doc.Total)
	assert.Equal(t, 2, doc.MissingPrices)
	assert.Equal(t, 6, doc.Counts[deck.ZoneMain])
}

func TestCLIImportFromFileAndExportToFile(t *testing.T) {
	env := setupCLITestEnv(t)

	listPath := filepath.Join(env.dir, "burn.txt")
	require.NoError(t, os.WriteFile(listPath, []byte(burnList), 0o644))
	out := env.mustRun(t, "", "import", listPath, "--name", "Burn")
	assert.Contains(t, out, "Created deck Burn")

	outPath := filepath.Join(env.dir, "burn.yaml")
	_, stderr, err := env.run(t, "", "export", "Burn", "-f", "yaml", "-o", outPath)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Wrote "+outPath)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "name: Burn")

	out = env.mustRun(t, "", "import", outPath, "--name", "Burn Copy")
	assert.Contains(t, out, "from yaml")

	out = env.mustRun(t, "", "list")
	assert.Contains(t, out, "Burn Copy")
}

func TestCLIPreferAffectsImports(t *testing.T) {
	env := setupCLITestEnv(t)

	out := env.mustRun(t, "", "prefer", "Forest", "--set", "ZEN", "--number", "246")
	assert.Contains(t, out, "Forest now prefers zen#246")

	env.mustRun(t, "2 Forest\n", "import", "--name", "Lands")
	out = env.mustRun(t, "", "export", "Lands")
	assert.Contains(t, out, "2 Forest (ZEN) 246")

	out = env.mustRun(t, "", "prefer", "Forest", "--clear")
	assert.Contains(t, out, "Cleared preferred printing of Forest")

	env.mustRun(t, "2 Forest\n", "import", "--name", "Lands 2")
	out = env.mustRun(t, "", "export", "Lands 2")
	assert.Contains(t, out, "2 Forest (M21) 272")
}

func TestCLIErrors(t *testing.T) {
	env := setupCLITestEnv(t)
	env.mustRun(t, "", "new", "Twin")
	env.mustRun(t, "", "new", "twin")

	_, _, err := env.run(t, "", "show", "Nope")
	assert.ErrorContains(t, err, `no deck named "Nope"`)

	_, _, err = env.run(t, "", "show", "Twin")
	assert.ErrorContains(t, err, "use the deck id")

	_, _, err = env.run(t, "", "export", "Twin", "-f", "pdf")
	assert.ErrorContains(t, err, "unsupported export format")

	_, _, err = env.run(t, "", "import", "--name", "Empty")
	assert.ErrorContains(t, err, "empty")

	_, _, err = env.run(t, "", "prefer", "Forest")
	assert.Error(t, err, "a preference needs a printing")
}

func TestCLIMigrate(t *testing.T) {
	env := setupCLITestEnv(t)

	out := env.mustRun(t, "", "migrate", "up")
	assert.Regexp(t, `^schema version [1-9]\d*\n$`, out)

	up := out
	out = env.mustRun(t, "", "migrate", "version")
	assert.Equal(t, up, out)

	_, _, err := env.run(t, "", "migrate", "goto", "abc")
	assert.ErrorContains(t, err, "invalid version")
}

func TestParseMoveArgs(t *testing.T) {
	req, err := parseMoveArgs("side", "maybe", []string{"bolt|2xm#141|normal=2", "forest|m21#272|normal"})
	require.NoError(t, err)
	assert.Equal(t, deck.ZoneSideboard, req.From)
	assert.Equal(t, deck.ZoneTechIdeas, req.To)
	assert.Equal(t, []string{"bolt|2xm#141|normal", "forest|m21#272|normal"}, req.Keys)
	assert.Equal(t, map[string]int{"bolt|2xm#141|normal": 2}, req.Quantities)

	_, err = parseMoveArgs("main", "side", []string{"bolt=x"})
	assert.Error(t, err)
	_, err = parseMoveArgs("graveyard", "side", nil)
	assert.Error(t, err)
}

func TestServiceConfigCarriesFlags(t *testing.T) {
	ctx := &commandContext{configFlag: "config.toml", dbFlag: "/data/decks.db", offline: true}

	cfg, err := ctx.serviceConfig("127.0.0.1:9000")
	require.NoError(t, err)

	abs, err := filepath.Abs("config.toml")
	require.NoError(t, err)
	assert.Equal(t, serviceName, cfg.Name)
	assert.Equal(t, []string{
		"service", "run",
		"--config", abs,
		"--db-path", "/data/decks.db",
		"--offline",
		"--addr", "127.0.0.1:9000",
	}, cfg.Arguments)

	assert.Equal(t, "running", statusText(service.StatusRunning))
	assert.Equal(t, "stopped", statusText(service.StatusStopped))
	assert.Equal(t, "unknown", statusText(service.StatusUnknown))
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"Card", "Qty"}, [][]string{{"Forest", "2"}, {"Bolt"}}, []columnAlignment{alignLeft, alignRight}, []string{"Total", "2"})
	assert.Contains(t, out, "Forest")
	assert.Contains(t, out, "Bolt")
	assert.Empty(t, renderTable(nil, nil, nil, nil))
}

func TestCLIBackupCreateListRestore(t *testing.T) {
	env := setupCLITestEnv(t)
	env.mustRun(t, burnList, "import", "--name", "Burn")

	backupDir := filepath.Join(env.dir, "snapshots")
	out := env.mustRun(t, "", "backup", "create", "--dir", backupDir, "--name", "before")
	assert.Contains(t, out, "Backed up 1 decks to "+filepath.Join(backupDir, "before.db"))

	out = env.mustRun(t, "", "backup", "list", "--dir", backupDir)
	assert.Contains(t, out, "before.db")

	env.mustRun(t, "", "new", "After Backup")

	out = env.mustRun(t, "", "backup", "restore", filepath.Join(backupDir, "before.db"))
	assert.Contains(t, out, "Restored "+env.dbPath)
	assert.Contains(t, out, "Previous database kept at")

	out = env.mustRun(t, "", "list")
	assert.Contains(t, out, "Burn")
	assert.NotContains(t, out, "After Backup")
}
