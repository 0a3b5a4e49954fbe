package app

import (
	"encoding/json"
	"errors"
	"os"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	KeyCommandQuit             = "ui.quit"
	KeyCommandUp               = "ui.up"
	KeyCommandDown             = "ui.down"
	KeyCommandOpen             = "ui.open"
	KeyCommandParent           = "ui.parent"
	KeyCommandOpenInNewTab     = "ui.openInNewTab"
	KeyCommandOpenInSplit      = "ui.openInSplit"
	KeyCommandNewTab           = "ui.newTab"
	KeyCommandCloseContext     = "ui.closeContext"
	KeyCommandReopenTab        = "ui.reopenTab"
	KeyCommandNextTab          = "ui.nextTab"
	KeyCommandPreviousTab      = "ui.previousTab"
	KeyCommandHoist            = "ui.hoist"
	KeyCommandUnhoist          = "ui.unhoist"
	KeyCommandGoto             = "ui.goto"
	KeyCommandRecent           = "ui.recent"
	KeyCommandCopyPath         = "ui.copyPath"
	KeyCommandToggleSource     = "ui.toggleSource"
	KeyCommandToggleAttachment = "ui.toggleAttachments"
	KeyCommandToggleTOC        = "ui.toggleTableOfContents"
	KeyCommandEditAnyway       = "ui.editAnyway"
	KeyCommandScrollUp         = "ui.scrollUp"
	KeyCommandScrollDown       = "ui.scrollDown"
)

var defaultKeybindingByCommand = map[string]string{
	KeyCommandQuit:             "q",
	KeyCommandUp:               "k",
	KeyCommandDown:             "j",
	KeyCommandOpen:             "enter",
	KeyCommandParent:           "backspace",
	KeyCommandOpenInNewTab:     "t",
	KeyCommandOpenInSplit:      "s",
	KeyCommandNewTab:           "ctrl+t",
	KeyCommandCloseContext:     "w",
	KeyCommandReopenTab:        "T",
	KeyCommandNextTab:          "]",
	KeyCommandPreviousTab:      "[",
	KeyCommandHoist:            "H",
	KeyCommandUnhoist:          "U",
	KeyCommandGoto:             "g",
	KeyCommandRecent:           "r",
	KeyCommandCopyPath:         "y",
	KeyCommandToggleSource:     "v",
	KeyCommandToggleAttachment: "a",
	KeyCommandToggleTOC:        "o",
	KeyCommandEditAnyway:       "e",
	KeyCommandScrollUp:         "pgup",
	KeyCommandScrollDown:       "pgdown",
}

// Keybindings maps commands to keys. Overridden keys are remapped to the
// default key of their command so the model only matches default keys.
type Keybindings struct {
	byCommand map[string]string
	remap     map[string]string
}

type keybindingEntry struct {
	Command string `json:"command"`
	Key     string `json:"key"`
}

func DefaultKeybindings() *Keybindings {
	return NewKeybindings(nil)
}

func NewKeybindings(overrides map[string]string) *Keybindings {
	byCommand := make(map[string]string, len(defaultKeybindingByCommand))
	for command, key := range defaultKeybindingByCommand {
		byCommand[command] = key
	}
	for command, key := range overrides {
		command = strings.TrimSpace(command)
		key = strings.TrimSpace(key)
		if _, known := defaultKeybindingByCommand[command]; !known || key == "" {
			continue
		}
		byCommand[command] = key
	}

	remap := map[string]string{}
	ambiguous := map[string]struct{}{}
	for _, command := range KnownKeybindingCommands() {
		defaultKey := defaultKeybindingByCommand[command]
		key := byCommand[command]
		if key == defaultKey {
			continue
		}
		if _, bad := ambiguous[key]; bad {
			continue
		}
		if existing, ok := remap[key]; ok && existing != defaultKey {
			delete(remap, key)
			ambiguous[key] = struct{}{}
			continue
		}
		remap[key] = defaultKey
	}
	return &Keybindings{byCommand: byCommand, remap: remap}
}

// LoadKeybindings reads overrides from a JSON file holding either an object
// of command to key or an array of {command, key}. A missing or empty file
// yields the defaults.
func LoadKeybindings(path string) (*Keybindings, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultKeybindings(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultKeybindings(), nil
		}
		return nil, err
	}
	overrides, err := parseKeybindingOverrides(data)
	if err != nil {
		return nil, err
	}
	return NewKeybindings(overrides), nil
}

func (k *Keybindings) KeyFor(command string) string {
	if k != nil {
		if key := k.byCommand[command]; key != "" {
			return key
		}
	}
	return defaultKeybindingByCommand[command]
}

// Bindings returns the effective key of every command.
func (k *Keybindings) Bindings() map[string]string {
	out := make(map[string]string, len(defaultKeybindingByCommand))
	for _, command := range KnownKeybindingCommands() {
		out[command] = k.KeyFor(command)
	}
	return out
}

// Remap returns the default key standing for key.
func (k *Keybindings) Remap(key string) string {
	if k != nil {
		if canonical, ok := k.remap[key]; ok {
			return canonical
		}
	}
	return key
}

func (m *Model) keyString(msg tea.KeyMsg) string {
	return m.keybindings.Remap(msg.String())
}

func parseKeybindingOverrides(data []byte) (map[string]string, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var entries []keybindingEntry
		if err := json.Unmarshal([]byte(trimmed), &entries); err != nil {
			return nil, err
		}
		out := make(map[string]string, len(entries))
		for _, entry := range entries {
			out[entry.Command] = entry.Key
		}
		return out, nil
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(trimmed), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func KnownKeybindingCommands() []string {
	commands := make([]string, 0, len(defaultKeybindingByCommand))
	for command := range defaultKeybindingByCommand {
		commands = append(commands, command)
	}
	sort.Strings(commands)
	return commands
}
