package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/grow-controller/internal/fault"
)

const schema = `
CREATE TABLE IF NOT EXISTS watering_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	time INTEGER NOT NULL,
	amount INTEGER NOT NULL,
	moisture_before_watering REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS data_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp INTEGER NOT NULL,
	temperature REAL NOT NULL,
	soil_moisture REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS data_records_timestamp ON data_records (timestamp);
`

// DB is the SQLite implementation of store.Store.
type DB struct {
	conn *sql.DB
}

func Open(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fault.Persistence("open database", err)
	}
	// sqlite serialises writers anyway
	conn.SetMaxOpenConns(1)

	if err := ApplySchema(conn); err != nil {
		conn.Close()
		return nil, err
	}

	log.Info().Str("path", dbPath).Msg("SQLite store opened")
	return &DB{conn: conn}, nil
}

func ApplySchema(conn *sql.DB) error {
	if _, err := conn.Exec(schema); err != nil {
		return fault.Persistence("apply schema", fmt.Errorf("failed to create tables: %w", err))
	}
	return nil
}

func (d *DB) Conn() *sql.DB {
	return d.conn
}

func (d *DB) Close() error {
	return d.conn.Close()
}
