package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultLogLevel                = "info"
	defaultStorageBackend          = "bbolt"
	defaultRecentNotesDelayMS      = 5000
	defaultWidgetQueryTimeoutMS    = 200
	defaultTabsUpdateIntervalMS    = 1000
	defaultAutoReadonlySizeText    = 10000
	defaultAutoReadonlySizeCode    = 30000
	defaultProtectedSessionTimeout = 600
	defaultListWidth               = 36
)

type CoreConfig struct {
	Logging          CoreLoggingConfig          `toml:"logging"`
	Storage          CoreStorageConfig          `toml:"storage"`
	Navigation       CoreNavigationConfig       `toml:"navigation"`
	ReadOnly         CoreReadOnlyConfig         `toml:"readonly"`
	ProtectedSession CoreProtectedSessionConfig `toml:"protected_session"`
}

type CoreLoggingConfig struct {
	Level string `toml:"level"`
}

type CoreStorageConfig struct {
	Backend string `toml:"backend"`
	DBPath  string `toml:"db_path"`
}

type CoreNavigationConfig struct {
	RecentNotesDelayMS   int    `toml:"recent_notes_delay_ms"`
	WidgetQueryTimeoutMS int    `toml:"widget_query_timeout_ms"`
	TabsUpdateIntervalMS int    `toml:"tabs_update_interval_ms"`
	HoistedNoteID        string `toml:"hoisted_note_id"`
}

type CoreReadOnlyConfig struct {
	DatabaseReadonly bool `toml:"database_readonly"`
	AutoSizeText     int  `toml:"auto_size_text"`
	AutoSizeCode     int  `toml:"auto_size_code"`
}

type CoreProtectedSessionConfig struct {
	TimeoutSeconds int `toml:"timeout_seconds"`
}

type UIConfig struct {
	UI UISettings `toml:"ui"`
}

type UISettings struct {
	Mobile    bool  `toml:"mobile"`
	Dark      *bool `toml:"dark"`
	ListWidth int   `toml:"list_width"`
}

func DefaultCoreConfig() CoreConfig {
	return CoreConfig{
		Logging: CoreLoggingConfig{Level: defaultLogLevel},
		Storage: CoreStorageConfig{Backend: defaultStorageBackend},
		Navigation: CoreNavigationConfig{
			RecentNotesDelayMS:   defaultRecentNotesDelayMS,
			WidgetQueryTimeoutMS: defaultWidgetQueryTimeoutMS,
			TabsUpdateIntervalMS: defaultTabsUpdateIntervalMS,
			HoistedNoteID:        "root",
		},
		ReadOnly: CoreReadOnlyConfig{
			AutoSizeText: defaultAutoReadonlySizeText,
			AutoSizeCode: defaultAutoReadonlySizeCode,
		},
		ProtectedSession: CoreProtectedSessionConfig{TimeoutSeconds: defaultProtectedSessionTimeout},
	}
}

func LoadCoreConfig() (CoreConfig, error) {
	path, err := CoreConfigPath()
	if err != nil {
		return CoreConfig{}, err
	}
	return loadCoreConfigFromPath(path)
}

func (c CoreConfig) LogLevel() string {
	level := strings.TrimSpace(c.Logging.Level)
	if level == "" {
		return defaultLogLevel
	}
	return level
}

func (c CoreConfig) StorageBackend() string {
	backend := strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if backend == "" {
		return defaultStorageBackend
	}
	return backend
}

func (c CoreConfig) ResolveDBPath() (string, error) {
	path := strings.TrimSpace(c.Storage.DBPath)
	if path == "" {
		return DBPath()
	}
	return resolveConfigPath(path)
}

func (c CoreConfig) RecentNotesDelay() time.Duration {
	return millisOrDefault(c.Navigation.RecentNotesDelayMS, defaultRecentNotesDelayMS)
}

func (c CoreConfig) WidgetQueryTimeout() time.Duration {
	return millisOrDefault(c.Navigation.WidgetQueryTimeoutMS, defaultWidgetQueryTimeoutMS)
}

func (c CoreConfig) TabsUpdateInterval() time.Duration {
	return millisOrDefault(c.Navigation.TabsUpdateIntervalMS, defaultTabsUpdateIntervalMS)
}

func (c CoreConfig) DefaultHoistedNoteID() string {
	id := strings.TrimSpace(c.Navigation.HoistedNoteID)
	if id == "" {
		return "root"
	}
	return id
}

func (c CoreConfig) AutoReadonlySizeText() int {
	if c.ReadOnly.AutoSizeText < 0 {
		return 0
	}
	return c.ReadOnly.AutoSizeText
}

func (c CoreConfig) AutoReadonlySizeCode() int {
	if c.ReadOnly.AutoSizeCode < 0 {
		return 0
	}
	return c.ReadOnly.AutoSizeCode
}

func (c CoreConfig) ProtectedSessionTimeout() time.Duration {
	seconds := c.ProtectedSession.TimeoutSeconds
	if seconds <= 0 {
		seconds = defaultProtectedSessionTimeout
	}
	return time.Duration(seconds) * time.Second
}

func DefaultUIConfig() UIConfig {
	return UIConfig{UI: UISettings{ListWidth: defaultListWidth}}
}

func LoadUIConfig() (UIConfig, error) {
	path, err := UIConfigPath()
	if err != nil {
		return UIConfig{}, err
	}
	return loadUIConfigFromPath(path)
}

func (c UIConfig) IsMobile() bool {
	return c.UI.Mobile
}

func (c UIConfig) DarkBackground() bool {
	if c.UI.Dark == nil {
		return true
	}
	return *c.UI.Dark
}

func (c UIConfig) ListWidth() int {
	width := c.UI.ListWidth
	if width <= 0 {
		return defaultListWidth
	}
	if width < 16 {
		return 16
	}
	return width
}

func loadCoreConfigFromPath(path string) (CoreConfig, error) {
	cfg := DefaultCoreConfig()
	if err := readTOML(path, &cfg); err != nil {
		return CoreConfig{}, err
	}
	return cfg, nil
}

func loadUIConfigFromPath(path string) (UIConfig, error) {
	cfg := DefaultUIConfig()
	if err := readTOML(path, &cfg); err != nil {
		return UIConfig{}, err
	}
	return cfg, nil
}

func readTOML(path string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return toml.Unmarshal(data, out)
}

func resolveConfigPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("path is required")
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[2:]), nil
	}
	if filepath.IsAbs(path) {
		return path, nil
	}
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, path), nil
}

func millisOrDefault(value, fallback int) time.Duration {
	if value <= 0 {
		value = fallback
	}
	return time.Duration(value) * time.Millisecond
}
