package store

import (
	"embed"

	"github.com/Skyrin/go-safar/migration"
)

//go:embed db/migrations/*
var migrations embed.FS

const (
	MigrationCode = "kv-store"
)

// GetMigrationList returns the migrations creating the kv_store table
func GetMigrationList() (ml *migration.List) {
	return migration.NewList(MigrationCode, migration.MigrationPath, migrations)
}
