// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// GetMigrator returns the migration chain for db.
func (s *Store) GetMigrator() *gormigrate.Gormigrate {
	db := s.db
	migrator := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "0001_initial",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(allModels()...)
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(reverse(allModels())...)
			},
		},
	})

	migrator.InitSchema(func(tx *gorm.DB) error {
		// Clean database: create the latest schema directly instead of
		// replaying every migration.
		s.log.Info("clean database detected, running full schema initialization")

		dbType := db.Dialector.Name()
		if dbType == "sqlite" || dbType == "sqlite3" {
			// Sqlite does not enforce foreign keys unless asked to.
			if err := tx.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
				s.log.Error("error enabling foreign keys for SQLite", "error", err)
			}
		}

		return tx.AutoMigrate(allModels()...)
	})

	return migrator
}

// Migrate brings the schema up to date.
func (s *Store) Migrate() error {
	return s.GetMigrator().Migrate()
}

func reverse(in []any) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}
