package storage

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// StorageInterface persists exported artifacts (CSV tables, JSON reports)
// under slash-separated names
type StorageInterface interface {
	Store(name string, data []byte) error
	Retrieve(name string) ([]byte, error)
	List(prefix string) ([]string, error)
	Delete(name string) error
}

// ErrNotFound is returned when an artifact does not exist
var ErrNotFound = errors.New("artifact not found")

// Backend names accepted by New
const (
	BackendAzure  = "azure"
	BackendLocal  = "local"
	BackendSQLite = "sqlite"
)

// Options selects and configures a storage backend
type Options struct {
	Backend        string
	AzureAccount   string
	AzureContainer string
	LocalDir       string
	SQLitePath     string
}

// New builds the backend named by opts.Backend
func New(opts Options) (StorageInterface, error) {
	switch opts.Backend {
	case BackendAzure:
		return NewAzureStorage(opts.AzureAccount, opts.AzureContainer)
	case BackendLocal, "":
		return NewLocalStorage(opts.LocalDir)
	case BackendSQLite:
		return NewSQLiteStorage(opts.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}

// cleanName rejects names that would escape the storage root
func cleanName(name string) (string, error) {
	cleaned := path.Clean("/" + strings.TrimSpace(name))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}
	return cleaned, nil
}

// ContentType guesses the MIME type of an artifact from its extension
func ContentType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".csv":
		return "text/csv; charset=utf-8"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
