package main

import (
	"encoding/json"
	"errors"
	"flag"
	"io"
	"strings"

	"notenav/internal/app"
	"notenav/internal/config"

	toml "github.com/pelletier/go-toml/v2"
)

type ConfigCommand struct {
	stdout io.Writer
	stderr io.Writer
}

const (
	configFormatJSON = "json"
	configFormatTOML = "toml"

	configScopeCore        = "core"
	configScopeUI          = "ui"
	configScopeKeybindings = "keybindings"
)

type configOutput struct {
	CoreConfigPath   string                           `json:"core_config_path,omitempty" toml:"core_config_path,omitempty"`
	UIConfigPath     string                           `json:"ui_config_path,omitempty" toml:"ui_config_path,omitempty"`
	KeybindingsPath  string                           `json:"keybindings_path,omitempty" toml:"keybindings_path,omitempty"`
	Logging          *effectiveLoggingConfig          `json:"logging,omitempty" toml:"logging,omitempty"`
	Storage          *effectiveStorageConfig          `json:"storage,omitempty" toml:"storage,omitempty"`
	Navigation       *effectiveNavigationConfig       `json:"navigation,omitempty" toml:"navigation,omitempty"`
	ReadOnly         *effectiveReadOnlyConfig         `json:"readonly,omitempty" toml:"readonly,omitempty"`
	ProtectedSession *effectiveProtectedSessionConfig `json:"protected_session,omitempty" toml:"protected_session,omitempty"`
	UI               *effectiveUIConfig               `json:"ui,omitempty" toml:"ui,omitempty"`
	Keybindings      map[string]string                `json:"keybindings,omitempty" toml:"keybindings,omitempty"`
}

type coreConfigOutput struct {
	Logging          effectiveLoggingConfig          `json:"logging" toml:"logging"`
	Storage          effectiveStorageConfig          `json:"storage" toml:"storage"`
	Navigation       effectiveNavigationConfig       `json:"navigation" toml:"navigation"`
	ReadOnly         effectiveReadOnlyConfig         `json:"readonly" toml:"readonly"`
	ProtectedSession effectiveProtectedSessionConfig `json:"protected_session" toml:"protected_session"`
}

type effectiveLoggingConfig struct {
	Level string `json:"level" toml:"level"`
}

type effectiveStorageConfig struct {
	Backend string `json:"backend" toml:"backend"`
	DBPath  string `json:"db_path" toml:"db_path"`
}

type effectiveNavigationConfig struct {
	RecentNotesDelayMS   int64  `json:"recent_notes_delay_ms" toml:"recent_notes_delay_ms"`
	WidgetQueryTimeoutMS int64  `json:"widget_query_timeout_ms" toml:"widget_query_timeout_ms"`
	TabsUpdateIntervalMS int64  `json:"tabs_update_interval_ms" toml:"tabs_update_interval_ms"`
	HoistedNoteID        string `json:"hoisted_note_id" toml:"hoisted_note_id"`
}

type effectiveReadOnlyConfig struct {
	DatabaseReadonly bool `json:"database_readonly" toml:"database_readonly"`
	AutoSizeText     int  `json:"auto_size_text" toml:"auto_size_text"`
	AutoSizeCode     int  `json:"auto_size_code" toml:"auto_size_code"`
}

type effectiveProtectedSessionConfig struct {
	TimeoutSeconds int64 `json:"timeout_seconds" toml:"timeout_seconds"`
}

type effectiveUIConfig struct {
	Mobile    bool `json:"mobile" toml:"mobile"`
	Dark      bool `json:"dark" toml:"dark"`
	ListWidth int  `json:"list_width" toml:"list_width"`
}

func NewConfigCommand(stdout, stderr io.Writer) *ConfigCommand {
	return &ConfigCommand{
		stdout: stdout,
		stderr: stderr,
	}
}

func (c *ConfigCommand) Run(args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	defaults := fs.Bool("default", false, "print default config values")
	format := fs.String("format", configFormatJSON, "output format: json|toml")
	var scopes stringList
	fs.Var(&scopes, "scope", "scope to print: core|ui|keybindings|all (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	resolvedFormat, err := resolveConfigFormat(*format)
	if err != nil {
		return err
	}
	resolvedScopes, err := resolveConfigScopes(scopes)
	if err != nil {
		return err
	}
	payload, err := c.buildOutput(*defaults, resolvedScopes)
	if err != nil {
		return err
	}
	return writeConfigOutput(c.stdout, resolvedFormat, projectedConfigPayload(payload, resolvedScopes))
}

func (c *ConfigCommand) buildOutput(defaults bool, scopes map[string]struct{}) (configOutput, error) {
	out := configOutput{}

	if scopeSelected(scopes, configScopeCore) {
		corePath, err := config.CoreConfigPath()
		if err != nil {
			return configOutput{}, err
		}
		coreCfg := config.DefaultCoreConfig()
		if !defaults {
			if coreCfg, err = config.LoadCoreConfig(); err != nil {
				return configOutput{}, err
			}
		}
		dbPath, err := coreCfg.ResolveDBPath()
		if err != nil {
			return configOutput{}, err
		}
		out.CoreConfigPath = corePath
		out.Logging = &effectiveLoggingConfig{Level: coreCfg.LogLevel()}
		out.Storage = &effectiveStorageConfig{Backend: coreCfg.StorageBackend(), DBPath: dbPath}
		out.Navigation = &effectiveNavigationConfig{
			RecentNotesDelayMS:   coreCfg.RecentNotesDelay().Milliseconds(),
			WidgetQueryTimeoutMS: coreCfg.WidgetQueryTimeout().Milliseconds(),
			TabsUpdateIntervalMS: coreCfg.TabsUpdateInterval().Milliseconds(),
			HoistedNoteID:        coreCfg.DefaultHoistedNoteID(),
		}
		out.ReadOnly = &effectiveReadOnlyConfig{
			DatabaseReadonly: coreCfg.ReadOnly.DatabaseReadonly,
			AutoSizeText:     coreCfg.AutoReadonlySizeText(),
			AutoSizeCode:     coreCfg.AutoReadonlySizeCode(),
		}
		out.ProtectedSession = &effectiveProtectedSessionConfig{
			TimeoutSeconds: int64(coreCfg.ProtectedSessionTimeout().Seconds()),
		}
	}

	if scopeSelected(scopes, configScopeUI) {
		uiPath, err := config.UIConfigPath()
		if err != nil {
			return configOutput{}, err
		}
		keybindingsPath, err := config.KeybindingsPath()
		if err != nil {
			return configOutput{}, err
		}
		uiCfg := config.DefaultUIConfig()
		if !defaults {
			if uiCfg, err = config.LoadUIConfig(); err != nil {
				return configOutput{}, err
			}
		}
		out.UIConfigPath = uiPath
		out.KeybindingsPath = keybindingsPath
		out.UI = &effectiveUIConfig{
			Mobile:    uiCfg.IsMobile(),
			Dark:      uiCfg.DarkBackground(),
			ListWidth: uiCfg.ListWidth(),
		}
	}

	if scopeSelected(scopes, configScopeKeybindings) {
		bindings := app.DefaultKeybindings()
		if !defaults {
			keybindingsPath, err := config.KeybindingsPath()
			if err != nil {
				return configOutput{}, err
			}
			if bindings, err = app.LoadKeybindings(keybindingsPath); err != nil {
				return configOutput{}, err
			}
		}
		out.Keybindings = bindings.Bindings()
	}

	return out, nil
}

func writeConfigOutput(out io.Writer, format string, payload any) error {
	switch format {
	case configFormatJSON:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(payload)
	case configFormatTOML:
		data, err := toml.Marshal(payload)
		if err != nil {
			return err
		}
		if len(data) == 0 || data[len(data)-1] != '\n' {
			data = append(data, '\n')
		}
		_, err = out.Write(data)
		return err
	default:
		return errors.New("unsupported format")
	}
}

// projectedConfigPayload narrows a single-scope payload to the shape of that
// scope's config file.
func projectedConfigPayload(payload configOutput, scopes map[string]struct{}) any {
	if len(scopes) != 1 {
		return payload
	}
	switch {
	case scopeSelected(scopes, configScopeKeybindings):
		if payload.Keybindings == nil {
			return map[string]string{}
		}
		return payload.Keybindings
	case scopeSelected(scopes, configScopeUI):
		if payload.UI == nil {
			return map[string]effectiveUIConfig{"ui": {}}
		}
		return map[string]effectiveUIConfig{"ui": *payload.UI}
	case scopeSelected(scopes, configScopeCore):
		out := coreConfigOutput{}
		if payload.Logging != nil {
			out.Logging = *payload.Logging
		}
		if payload.Storage != nil {
			out.Storage = *payload.Storage
		}
		if payload.Navigation != nil {
			out.Navigation = *payload.Navigation
		}
		if payload.ReadOnly != nil {
			out.ReadOnly = *payload.ReadOnly
		}
		if payload.ProtectedSession != nil {
			out.ProtectedSession = *payload.ProtectedSession
		}
		return out
	}
	return payload
}

func resolveConfigFormat(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", configFormatJSON:
		return configFormatJSON, nil
	case configFormatTOML:
		return configFormatTOML, nil
	default:
		return "", errors.New("invalid format: must be json or toml")
	}
}

func allConfigScopes() map[string]struct{} {
	return map[string]struct{}{
		configScopeCore:        {},
		configScopeUI:          {},
		configScopeKeybindings: {},
	}
}

func resolveConfigScopes(values []string) (map[string]struct{}, error) {
	if len(values) == 0 {
		return allConfigScopes(), nil
	}
	out := map[string]struct{}{}
	for _, raw := range values {
		for _, part := range strings.Split(raw, ",") {
			scope, err := normalizeConfigScope(part)
			if err != nil {
				return nil, err
			}
			if scope == "all" {
				return allConfigScopes(), nil
			}
			out[scope] = struct{}{}
		}
	}
	return out, nil
}

func normalizeConfigScope(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "all":
		return "all", nil
	case configScopeCore:
		return configScopeCore, nil
	case configScopeUI:
		return configScopeUI, nil
	case configScopeKeybindings, "keys":
		return configScopeKeybindings, nil
	default:
		return "", errors.New("invalid scope: must be core, ui, keybindings, or all")
	}
}

func scopeSelected(scopes map[string]struct{}, scope string) bool {
	_, ok := scopes[scope]
	return ok
}
