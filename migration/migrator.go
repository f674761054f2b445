// Package migration provides automatic database migration capabilities
// Basic Usage sample:
//
// Errors should be handled, but ignored for example code
// migrator, _ := migration.NewMigrator(ctx, db)
// _ = migrator.AddMigrationList(ctx, remote.GetMigrationList())
// _ = migrator.Upgrade(ctx)
//
// Each component embeds its own migrations and exposes them as a List:
//
//	//go:embed db/migrations/*
//	var migrations embed.FS
//
//	func GetMigrationList() (ml *migration.List) {
//		return migration.NewList(MigrationCode, migration.MigrationPath, migrations)
//	}
package migration

import (
	"context"
	"errors"

	"github.com/Skyrin/go-safar/e"
	"github.com/Skyrin/go-safar/sql"
	"github.com/rs/zerolog/log"
)

const (
	MigrationPath = "db/migrations"

	ECode090101 = e.Code0901 + "01"
	ECode090102 = e.Code0901 + "02"
	ECode090103 = e.Code0901 + "03"
	ECode090104 = e.Code0901 + "04"
	ECode090105 = e.Code0901 + "05"
	ECode090106 = e.Code0901 + "06"
	ECode090107 = e.Code0901 + "07"
	ECode090108 = e.Code0901 + "08"
	ECode090109 = e.Code0901 + "09"
)

// Migrator applies migration lists to a database
type Migrator struct {
	db         *sql.Connection
	migrations []*List
}

// NewMigrator initializes a new migrator, installing the tracking table if needed
func NewMigrator(ctx context.Context, db *sql.Connection) (m *Migrator, err error) {
	if err := install(ctx, db); err != nil {
		return nil, e.W(err, ECode090101)
	}

	return &Migrator{db: db}, nil
}

// AddMigrationList adds a migration list to the migrator, loading the files
// newer than the latest completed version
func (m *Migrator) AddMigrationList(ctx context.Context, ml *List) (err error) {
	version := 0
	latest, err := getLatest(ctx, m.db, ml.code)
	if err != nil {
		// If there are no migrations for the code yet, then this is a brand
		// new installation
		if !errors.Is(err, ErrMigrationNone) {
			return e.W(err, ECode090102)
		}
	} else {
		version = latest.Version
	}

	ml.files, err = ml.GetLatestMigrationFiles(version)
	if err != nil {
		return e.W(err, ECode090103)
	}

	m.migrations = append(m.migrations, ml)
	return nil
}

// Upgrade runs upgrades on all migration lists
func (m *Migrator) Upgrade(ctx context.Context) (err error) {
	for _, ml := range m.migrations {
		for _, f := range ml.files {
			if err := m.processFile(ctx, ml, f); err != nil {
				return e.W(err, ECode090104, ml.code, f.Name)
			}
		}
	}

	return nil
}

// processFile runs the migration file in a txn and records its status
func (m *Migrator) processFile(ctx context.Context, ml *List, f *File) (err error) {
	if err := m.db.Begin(ctx); err != nil {
		return e.W(err, ECode090105)
	}
	defer m.db.RollbackIfInTxn()

	if _, err := m.db.Exec(ctx, string(f.SQL)); err != nil {
		m.db.Rollback()
		if err2 := setStatus(ctx, m.db, ml.code, f.Version, StatusFailed, e.Cause(err)); err2 != nil {
			log.Warn().Err(err2).Msgf("[%s]failed to record migration failure", ECode090106)
		}
		return e.W(err, ECode090107)
	}

	if err := setStatus(ctx, m.db, ml.code, f.Version, StatusComplete, ""); err != nil {
		return e.W(err, ECode090108)
	}

	if err := m.db.Commit(); err != nil {
		return e.W(err, ECode090109)
	}

	log.Info().Msgf("successfully migrated '%s' to version: %v", ml.code, f.Version)

	return nil
}
