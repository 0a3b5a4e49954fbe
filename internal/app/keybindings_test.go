package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestLoadKeybindingsDefaultsWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")
	bindings, err := LoadKeybindings(path)
	if err != nil {
		t.Fatalf("LoadKeybindings: %v", err)
	}
	if got := bindings.KeyFor(KeyCommandHoist); got != "H" {
		t.Fatalf("unexpected default binding: %q", got)
	}
}

func TestLoadKeybindingsArrayOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keybindings.json")
	data := []byte(`[
  {"command":"ui.hoist","key":"alt+h"},
  {"command":"ui.goto","key":"ctrl+g"}
]`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	bindings, err := LoadKeybindings(path)
	if err != nil {
		t.Fatalf("LoadKeybindings: %v", err)
	}
	if got := bindings.KeyFor(KeyCommandHoist); got != "alt+h" {
		t.Fatalf("unexpected hoist binding: %q", got)
	}
	if got := bindings.KeyFor(KeyCommandGoto); got != "ctrl+g" {
		t.Fatalf("unexpected goto binding: %q", got)
	}
	if got := bindings.Remap("alt+h"); got != "H" {
		t.Fatalf("expected remap to default key, got %q", got)
	}
}

func TestLoadKeybindingsMapOverrideIgnoresUnknownCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keybindings.json")
	data := []byte(`{"ui.copyPath":"alt+y","ui.nope":"x"}`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	bindings, err := LoadKeybindings(path)
	if err != nil {
		t.Fatalf("LoadKeybindings: %v", err)
	}
	if got := bindings.KeyFor(KeyCommandCopyPath); got != "alt+y" {
		t.Fatalf("unexpected copy path binding: %q", got)
	}
	if got := bindings.Remap("x"); got != "x" {
		t.Fatalf("unknown command should not remap, got %q", got)
	}
}

func TestLoadKeybindingsRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keybindings.json")
	if err := os.WriteFile(path, []byte(`{"ui.hoist":`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadKeybindings(path); err == nil {
		t.Fatalf("expected a parse error")
	}
}

func TestAmbiguousOverridesAreNotRemapped(t *testing.T) {
	bindings := NewKeybindings(map[string]string{
		KeyCommandHoist:   "alt+x",
		KeyCommandUnhoist: "alt+x",
	})
	if got := bindings.Remap("alt+x"); got != "alt+x" {
		t.Fatalf("ambiguous key should stay as is, got %q", got)
	}
}

func TestHotkeyLineShowsOverriddenKeys(t *testing.T) {
	m := &Model{keybindings: NewKeybindings(map[string]string{KeyCommandOpenInNewTab: "alt+t"})}
	line := m.hotkeyLine(200)
	if !strings.Contains(line, "alt+t tab") {
		t.Fatalf("expected overridden key in %q", line)
	}
	if !strings.Contains(line, "enter open") {
		t.Fatalf("expected default key in %q", line)
	}
	short := m.hotkeyLine(12)
	if strings.Contains(short, "tab") {
		t.Fatalf("narrow line should drop low priority hotkeys: %q", short)
	}
}

func TestKeyStringRemapsOverrides(t *testing.T) {
	m := &Model{keybindings: NewKeybindings(map[string]string{KeyCommandCloseContext: "x"})}
	got := m.keyString(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	if got != "w" {
		t.Fatalf("expected x to act as w, got %q", got)
	}
}
