// database/bootstrap.go
package database

import (
	"fmt"
	"strings"

	sqlite "github.com/glebarez/sqlite" // CGO-free driver
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"umbra/entities"
)

// Models lists every table owned by the service, in dependency order.
var Models = []any{
	&entities.Publication{},
	&entities.Embedding{},
	&entities.KnowledgeNode{},
	&entities.KnowledgeEdge{},
	&entities.ResearchGap{},
	&entities.SearchQuery{},
	&entities.Document{},
	&entities.CitationSuggestion{},
}

// OpenSQLite opens (or creates) the database at path with foreign keys enforced
// and brings the schema up to date.
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn(path)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		// single writer avoids SQLITE_BUSY under the job workers
		sqlDB.SetMaxOpenConns(1)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Migrate brings the schema up to date. Indexes gorm tags cannot express are
// created afterwards.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	for _, stmt := range indexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

var indexes = []string{
	// a source URL identifies at most one publication; seeded rows may have none
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_publications_source_url ON publications(source_url) WHERE source_url <> ''`,
}
