package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Connect initializes the database connection and runs migrations.
func Connect(dsn string) (*sqlx.DB, error) {
	database, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(database); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return database, nil
}

func runMigrations(database *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS cases (
            id SERIAL PRIMARY KEY,
            case_number TEXT NOT NULL UNIQUE,
            case_type TEXT NOT NULL,
            title TEXT NOT NULL,
            description TEXT NOT NULL,
            client_id INT NOT NULL,
            lawyer_id INT,
            status TEXT NOT NULL DEFAULT 'submitted',
            priority TEXT NOT NULL DEFAULT 'medium',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS case_remarks (
            id SERIAL PRIMARY KEY,
            case_id INT NOT NULL REFERENCES cases(id) ON DELETE CASCADE,
            text TEXT NOT NULL,
            added_by INT NOT NULL,
            added_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS messages (
            id SERIAL PRIMARY KEY,
            case_id INT NOT NULL REFERENCES cases(id) ON DELETE CASCADE,
            sender_id INT NOT NULL,
            receiver_id INT NOT NULL,
            message_type TEXT NOT NULL DEFAULT 'text',
            content TEXT NOT NULL DEFAULT '',
            file_name TEXT,
            file_url TEXT,
            file_size BIGINT,
            read_status BOOLEAN NOT NULL DEFAULT FALSE,
            read_at TIMESTAMPTZ,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE INDEX IF NOT EXISTS idx_messages_case_created ON messages (case_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_receiver_unread ON messages (receiver_id, read_status);`,
	}

	for _, m := range migrations {
		if _, err := database.Exec(m); err != nil {
			return err
		}
	}
	zap.S().Info("database migrations applied")
	return nil
}
