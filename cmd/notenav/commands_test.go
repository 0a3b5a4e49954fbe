package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"notenav/internal/app"
	"notenav/internal/config"
	"notenav/internal/logging"
	"notenav/internal/options"
	"notenav/internal/store"
	"notenav/internal/types"
)

const commandTree = `
[[note]]
id = "projects"
title = "Projects"

[[note]]
id = "alpha"
title = "Alpha"
parents = ["projects"]

[[note]]
id = "old"
title = "Old"
parents = ["projects"]
attribute = [{ type = "label", name = "archived" }]

[[note]]
id = "journal"
title = "Journal"
`

// fileEnvironments opens every environment over the same file repository so
// commands see each other's writes.
func fileEnvironments(t *testing.T) environmentFactory {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	paths := store.RepositoryPaths{
		NotesPath:       filepath.Join(dir, "notes.json"),
		BlobsPath:       filepath.Join(dir, "blobs.json"),
		AttachmentsPath: filepath.Join(dir, "attachments.json"),
		OptionsPath:     filepath.Join(dir, "options.json"),
		RecentNotesPath: filepath.Join(dir, "recent_notes.json"),
	}
	if _, err := store.ImportTree(context.Background(), store.NewFileRepository(paths), strings.NewReader(commandTree)); err != nil {
		t.Fatalf("import: %v", err)
	}
	core := config.DefaultCoreConfig()
	core.Navigation.RecentNotesDelayMS = 1
	return func(ctx context.Context, interactive bool) (*environment, error) {
		return newEnvironment(ctx, core, config.DefaultUIConfig(), store.NewFileRepository(paths), logging.Nop())
	}
}

func TestResolveCommandRepairsPath(t *testing.T) {
	stdout := &bytes.Buffer{}
	cmd := NewResolveCommand(stdout, &bytes.Buffer{}, fileEnvironments(t))
	if err := cmd.Run([]string{"alpha"}); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got := strings.TrimSpace(stdout.String()); got != "root/projects/alpha\tProjects › Alpha" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestResolveCommandRequiresExistingNote(t *testing.T) {
	cmd := NewResolveCommand(&bytes.Buffer{}, &bytes.Buffer{}, fileEnvironments(t))
	if err := cmd.Run([]string{"missing"}); err == nil {
		t.Fatalf("expected an error for a missing note")
	}
	if err := cmd.Run(nil); err == nil {
		t.Fatalf("expected a usage error without a path")
	}
}

func TestTreeCommandHidesHiddenAndArchivedNotes(t *testing.T) {
	envs := fileEnvironments(t)
	stdout := &bytes.Buffer{}
	if err := NewTreeCommand(stdout, &bytes.Buffer{}, envs).Run(nil); err != nil {
		t.Fatalf("tree: %v", err)
	}
	want := "root\n  Projects\n    Alpha\n  Journal\n"
	if stdout.String() != want {
		t.Fatalf("unexpected tree:\n%s", stdout.String())
	}

	stdout.Reset()
	if err := NewTreeCommand(stdout, &bytes.Buffer{}, envs).Run([]string{"--depth", "1", "--ids", "--hidden", "projects"}); err != nil {
		t.Fatalf("tree: %v", err)
	}
	want = "Projects [projects]\n  Alpha [alpha]\n  Old [old]\n"
	if stdout.String() != want {
		t.Fatalf("unexpected subtree:\n%s", stdout.String())
	}
}

func TestImportCommandReadsStdin(t *testing.T) {
	envs := fileEnvironments(t)
	stdout := &bytes.Buffer{}
	stdin := strings.NewReader("[[note]]\nid = \"beta\"\ntitle = \"Beta\"\nparents = [\"journal\"]\n")
	if err := NewImportCommand(stdout, &bytes.Buffer{}, stdin, envs).Run([]string{"-"}); err != nil {
		t.Fatalf("import: %v", err)
	}
	if got := strings.TrimSpace(stdout.String()); got != "imported 1 notes, 1 branches" {
		t.Fatalf("unexpected output %q", got)
	}

	stdout.Reset()
	if err := NewResolveCommand(stdout, &bytes.Buffer{}, envs).Run([]string{"beta"}); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "root/journal/beta\t") {
		t.Fatalf("imported note should resolve, got %q", stdout.String())
	}
}

func TestUICommandRestoresAndSavesTabs(t *testing.T) {
	envs := fileEnvironments(t)
	var seenPath string
	run := func(ctx context.Context, deps app.Deps) error {
		seenPath = deps.Tabs.ActiveContextNotePath()
		if deps.Inbox == nil || deps.Keybindings == nil {
			return errors.New("missing dependencies")
		}
		return nil
	}
	if err := NewUICommand(&bytes.Buffer{}, envs, run).Run([]string{"--path", "alpha"}); err != nil {
		t.Fatalf("ui: %v", err)
	}
	if seenPath != "root/projects/alpha" {
		t.Fatalf("expected the start path to be opened, got %q", seenPath)
	}

	stdout := &bytes.Buffer{}
	if err := NewTabsCommand(stdout, &bytes.Buffer{}, envs).Run(nil); err != nil {
		t.Fatalf("tabs: %v", err)
	}
	if !strings.Contains(stdout.String(), "root/projects/alpha") {
		t.Fatalf("saved tabs should include the opened note:\n%s", stdout.String())
	}

	if err := NewTabsCommand(&bytes.Buffer{}, &bytes.Buffer{}, envs).Run([]string{"--clear"}); err != nil {
		t.Fatalf("tabs --clear: %v", err)
	}
	env, err := envs(context.Background(), false)
	if err != nil {
		t.Fatalf("env: %v", err)
	}
	defer env.Close()
	var states []types.NoteContextState
	if err := env.options.GetJSON(options.OpenNoteContexts, &states); err != nil {
		t.Fatalf("saved tabs: %v", err)
	}
	if len(states) != 0 {
		t.Fatalf("expected no saved tabs, got %+v", states)
	}
}

func TestUICommandReportsRunError(t *testing.T) {
	boom := errors.New("boom")
	run := func(context.Context, app.Deps) error { return boom }
	err := NewUICommand(&bytes.Buffer{}, fileEnvironments(t), run).Run(nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected the run error, got %v", err)
	}
}

func TestRecentCommandListsVisits(t *testing.T) {
	envs := fileEnvironments(t)
	env, err := envs(context.Background(), false)
	if err != nil {
		t.Fatalf("env: %v", err)
	}
	if err := env.recent.Add(context.Background(), "alpha", "root/projects/alpha"); err != nil {
		t.Fatalf("add: %v", err)
	}
	_ = env.Close()

	stdout := &bytes.Buffer{}
	if err := NewRecentCommand(stdout, &bytes.Buffer{}, envs).Run([]string{"--limit", "5"}); err != nil {
		t.Fatalf("recent: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "NOTE") || !strings.Contains(lines[1], "root/projects/alpha") {
		t.Fatalf("unexpected output:\n%s", stdout.String())
	}
}

func TestOptionsCommandSetsAndListsSources(t *testing.T) {
	envs := fileEnvironments(t)
	stdout := &bytes.Buffer{}
	if err := NewOptionsCommand(stdout, &bytes.Buffer{}, envs).Run([]string{"databaseReadonly=true"}); err != nil {
		t.Fatalf("options: %v", err)
	}
	var stored, fromConfig bool
	for _, line := range strings.Split(stdout.String(), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		switch fields[0] {
		case options.DatabaseReadonly:
			stored = fields[1] == options.ScopeStored && fields[2] == "true"
		case options.AutoReadonlySizeText:
			fromConfig = fields[1] == options.ScopeConfig
		}
	}
	if !stored || !fromConfig {
		t.Fatalf("unexpected options listing:\n%s", stdout.String())
	}

	if err := NewOptionsCommand(&bytes.Buffer{}, &bytes.Buffer{}, envs).Run([]string{"broken"}); err == nil {
		t.Fatalf("expected an error for an argument without =")
	}
}

func TestConfigCommandPrintsDefaultKeybindings(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	stdout := &bytes.Buffer{}
	if err := NewConfigCommand(stdout, &bytes.Buffer{}).Run([]string{"--default", "--scope", "keybindings"}); err != nil {
		t.Fatalf("config: %v", err)
	}
	var bindings map[string]string
	if err := json.Unmarshal(stdout.Bytes(), &bindings); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if bindings[app.KeyCommandHoist] != "H" {
		t.Fatalf("unexpected bindings %v", bindings)
	}
}

func TestConfigCommandCoreScopeAsTOML(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	stdout := &bytes.Buffer{}
	if err := NewConfigCommand(stdout, &bytes.Buffer{}).Run([]string{"--default", "--scope", "core", "--format", "toml"}); err != nil {
		t.Fatalf("config: %v", err)
	}
	out := stdout.String()
	for _, want := range []string{"[storage]", "bbolt", "[navigation]", "tabs_update_interval_ms = 1000"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestConfigCommandRejectsUnknownScope(t *testing.T) {
	cmd := NewConfigCommand(&bytes.Buffer{}, &bytes.Buffer{})
	if err := cmd.Run([]string{"--scope", "daemon"}); err == nil {
		t.Fatalf("expected invalid scope error")
	}
	if err := cmd.Run([]string{"--format", "yaml"}); err == nil {
		t.Fatalf("expected invalid format error")
	}
}
