package app

import (
	"sort"
	"strings"
)

type HotkeyContext int

const (
	HotkeyGlobal HotkeyContext = iota
	HotkeyBrowse
	HotkeyPrompt
	HotkeyConfirm
)

type Hotkey struct {
	Command  string
	Label    string
	Context  HotkeyContext
	Priority int
}

func DefaultHotkeys() []Hotkey {
	return []Hotkey{
		{Command: KeyCommandQuit, Label: "quit", Context: HotkeyGlobal, Priority: 90},
		{Command: KeyCommandOpen, Label: "open", Context: HotkeyBrowse, Priority: 10},
		{Command: KeyCommandParent, Label: "up", Context: HotkeyBrowse, Priority: 11},
		{Command: KeyCommandOpenInNewTab, Label: "tab", Context: HotkeyBrowse, Priority: 20},
		{Command: KeyCommandOpenInSplit, Label: "split", Context: HotkeyBrowse, Priority: 21},
		{Command: KeyCommandCloseContext, Label: "close", Context: HotkeyBrowse, Priority: 22},
		{Command: KeyCommandNextTab, Label: "next tab", Context: HotkeyBrowse, Priority: 23},
		{Command: KeyCommandHoist, Label: "hoist", Context: HotkeyBrowse, Priority: 30},
		{Command: KeyCommandUnhoist, Label: "unhoist", Context: HotkeyBrowse, Priority: 31},
		{Command: KeyCommandGoto, Label: "go to", Context: HotkeyBrowse, Priority: 40},
		{Command: KeyCommandRecent, Label: "recent", Context: HotkeyBrowse, Priority: 41},
		{Command: KeyCommandCopyPath, Label: "copy path", Context: HotkeyBrowse, Priority: 50},
		{Command: KeyCommandToggleSource, Label: "source", Context: HotkeyBrowse, Priority: 60},
		{Command: KeyCommandToggleTOC, Label: "toc", Context: HotkeyBrowse, Priority: 61},
	}
}

func (m *Model) activeHotkeyContexts() []HotkeyContext {
	switch m.mode {
	case uiModeConfirm:
		return []HotkeyContext{HotkeyConfirm}
	case uiModeGoto, uiModeRecent:
		return []HotkeyContext{HotkeyPrompt}
	default:
		return []HotkeyContext{HotkeyGlobal, HotkeyBrowse}
	}
}

// hotkeyLine renders the hotkeys of the current mode, most important first,
// as far as they fit in width.
func (m *Model) hotkeyLine(width int) string {
	switch m.mode {
	case uiModeConfirm:
		return helpStyle.Render(truncateToWidth("y confirm • n cancel", width))
	case uiModeGoto, uiModeRecent:
		return helpStyle.Render(truncateToWidth("enter open • esc cancel", width))
	}
	active := map[HotkeyContext]bool{}
	for _, ctx := range m.activeHotkeyContexts() {
		active[ctx] = true
	}
	hotkeys := make([]Hotkey, 0)
	for _, hotkey := range DefaultHotkeys() {
		if active[hotkey.Context] {
			hotkeys = append(hotkeys, hotkey)
		}
	}
	sort.SliceStable(hotkeys, func(i, j int) bool { return hotkeys[i].Priority < hotkeys[j].Priority })

	parts := make([]string, 0, len(hotkeys))
	used := 0
	for _, hotkey := range hotkeys {
		part := m.keybindings.KeyFor(hotkey.Command) + " " + hotkey.Label
		extra := len(part)
		if len(parts) > 0 {
			extra += 3
		}
		if width > 0 && used+extra > width {
			break
		}
		parts = append(parts, part)
		used += extra
	}
	return helpStyle.Render(strings.Join(parts, " • "))
}
