package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const appName = "sqlitedb"

// GetDataDir resolves the base directory for all sqlitedb storage. SQLITEDB_DIR
// wins, then the XDG data home, and finally the user's home directory.
func GetDataDir() string {
	if explicit := os.Getenv("SQLITEDB_DIR"); explicit != "" {
		return explicit
	}

	xdg.Reload()

	dataHome := xdg.DataHome
	if dataHome == "" {
		home := xdg.Home
		if home == "" {
			var err error
			home, err = os.UserHomeDir()
			if err != nil {
				return filepath.Join(os.TempDir(), appName)
			}
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	return filepath.Join(dataHome, appName)
}

// GetUploadDir returns the flat directory holding one database file per identifier.
func GetUploadDir() string {
	if explicit := os.Getenv("SQLITEDB_UPLOAD_DIR"); explicit != "" {
		return explicit
	}
	return filepath.Join(GetDataDir(), "uploads")
}

// GetMetadataDBPath returns the path of the file metadata database. It lives
// beside the upload directory, never inside it.
func GetMetadataDBPath() string {
	return filepath.Join(GetDataDir(), "metadata.db")
}
