package core

import (
	"fmt"
	"os"

	"vialtrack/internal/infra/persistence/memory"
	"vialtrack/internal/infra/persistence/postgres"
	"vialtrack/internal/infra/persistence/sqlite"
)

// StorageDriver identifies a concrete event store implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// OpenEventStore selects a backend using environment variables. Defaults to
// sqlite when unset.
//
//	VIALTRACK_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	VIALTRACK_SQLITE_PATH: path to sqlite file (default ./vialtrack.db)
//	VIALTRACK_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenEventStore() (EventStore, error) {
	driver := os.Getenv("VIALTRACK_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageSQLite)
	}
	switch StorageDriver(driver) {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		return sqlite.NewStore(os.Getenv("VIALTRACK_SQLITE_PATH"))
	case StoragePostgres:
		return postgres.NewStore(os.Getenv("VIALTRACK_POSTGRES_DSN"))
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
