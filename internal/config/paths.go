package config

import (
	"os"
	"path/filepath"
)

const appDirName = ".notenav"

// DataDir returns the base data directory.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, appDirName), nil
}

func dataFile(name string) (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, name), nil
}

// CoreConfigPath returns the path of config.toml.
func CoreConfigPath() (string, error) { return dataFile("config.toml") }

// UIConfigPath returns the path of ui.toml.
func UIConfigPath() (string, error) { return dataFile("ui.toml") }

// DBPath returns the default bbolt database path.
func DBPath() (string, error) { return dataFile("notes.db") }

// UILogPath returns the file the terminal UI logs to.
func UILogPath() (string, error) { return dataFile("ui.log") }

// NotesPath returns the path to the file-backed notes and branches document.
func NotesPath() (string, error) { return dataFile("notes.json") }

// BlobsPath returns the path to the file-backed blobs document.
func BlobsPath() (string, error) { return dataFile("blobs.json") }

// AttachmentsPath returns the path to the file-backed attachments document.
func AttachmentsPath() (string, error) { return dataFile("attachments.json") }

// OptionsPath returns the path to the file-backed options document.
func OptionsPath() (string, error) { return dataFile("options.json") }

// RecentNotesPath returns the path to the file-backed recent notes document.
func RecentNotesPath() (string, error) { return dataFile("recent_notes.json") }

// KeybindingsPath returns the path of the terminal UI key overrides.
func KeybindingsPath() (string, error) { return dataFile("keybindings.json") }
