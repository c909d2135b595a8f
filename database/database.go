package database

import (
	"database/sql"
	"fmt"
	"log"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// InitDB opens the raw connection used by the materialized relationship store.
// Members and rules live in the same file but are managed through GORM.
func InitDB(dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer at a time; workers queue on the pool instead of failing with SQLITE_BUSY
	db.SetMaxOpenConns(1)

	// enable write-ahead Logging for better concurrency
	_, err = db.Exec("PRAGMA journal_mode=WAL;")
	if err != nil {
		log.Printf("warning: failed to set WAL mode: %v", err)
	}
	_, err = db.Exec("PRAGMA busy_timeout=5000;")
	if err != nil {
		log.Printf("warning: failed to set busy timeout: %v", err)
	}

	if err := InitRelationshipStore(db); err != nil {
		db.Close()
		return nil, err
	}

	log.Println("database initialized successfully at", dataSourceName)
	return db, nil
}

// InitRelationshipStore creates the relationships table and its epoch row if
// they are missing.
func InitRelationshipStore(db *sql.DB) error {
	sqlStmt := `
	CREATE TABLE IF NOT EXISTS relationships (
		from_ser_no INTEGER NOT NULL,
		to_ser_no INTEGER NOT NULL,
		relation TEXT NOT NULL,
		relation_marathi TEXT,
		generation INTEGER NOT NULL DEFAULT 0,
		run_id TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (from_ser_no, to_ser_no)
	);
	CREATE INDEX IF NOT EXISTS idx_relationships_relation ON relationships(relation);
	CREATE TABLE IF NOT EXISTS relationship_epoch (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		epoch INTEGER NOT NULL
	);
	INSERT OR IGNORE INTO relationship_epoch (id, epoch) VALUES (1, 0);
	`
	if _, err := db.Exec(sqlStmt); err != nil {
		return fmt.Errorf("failed to create relationships table: %w", err)
	}
	return nil
}
