package settings

import (
	"os"
	"path/filepath"

	"github.com/edgevision/edgevisiond/pkg/log"
	"github.com/edgevision/edgevisiond/pkg/settings/dbconn"
	"github.com/edgevision/edgevisiond/pkg/settings/models"
	"github.com/spf13/afero"
	"github.com/tauraamui/xerror"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	vendorName       = "edgevision"
	appName          = "edgevisiond"
	databaseFileName = "ev.db"

	databasePathEnv = "EDGEVISION_DB"
)

var uc = os.UserCacheDir
var fs = afero.NewOsFs()

// Connect opens the settings database, creating the file on first
// use, and runs migrations.
func Connect() (dbconn.GormWrapper, error) {
	dbPath, err := resolveDBPath(uc)
	if err != nil {
		return nil, err
	}

	if err := ensureFile(dbPath); err != nil {
		return nil, err
	}

	log.Debug("Connecting to DB: %s", dbPath) //nolint
	db, err := openDBConnection(dbPath)
	if err != nil {
		return nil, xerror.Errorf("unable to open db connection: %w", err)
	}

	if err := models.AutoMigrate(db); err != nil {
		return nil, xerror.Errorf("unable to run automigrations: %w", err)
	}

	return db, nil
}

// Destroy removes the settings database file.
func Destroy() error {
	dbFilePath, err := resolveDBPath(uc)
	if err != nil {
		return xerror.Errorf("unable to delete database file: %w", err)
	}

	return fs.Remove(dbFilePath)
}

var openDBConnection = func(path string) (dbconn.GormWrapper, error) {
	logger := logger.New(nil, logger.Config{LogLevel: logger.Silent})
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger})
	if err != nil {
		return nil, err
	}
	return dbconn.Wrap(db), nil
}

func resolveDBPath(uc func() (string, error)) (string, error) {
	databasePath := os.Getenv(databasePathEnv)
	if len(databasePath) > 0 {
		return databasePath, nil
	}

	databaseParentDir, err := uc()
	if err != nil {
		return "", xerror.Errorf("unable to resolve %s database file location: %w", databaseFileName, err)
	}

	return filepath.Join(
		databaseParentDir,
		vendorName,
		appName,
		databaseFileName), nil
}

func ensureFile(path string) error {
	if _, err := fs.Stat(path); os.IsNotExist(err) {
		if err := fs.MkdirAll(filepath.Dir(path), os.ModeDir|os.ModePerm); err != nil {
			return xerror.Errorf("unable to create database parent dir: %w", err)
		}
		if _, err := fs.Create(path); err != nil {
			return xerror.Errorf("unable to create database file: %w", err)
		}
	}
	return nil
}
