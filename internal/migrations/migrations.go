package migrations

import (
	"database/sql"
	"fmt"
)

// Statements is the ordered list of journal migrations.
var Statements = []string{
	`
CREATE TABLE IF NOT EXISTS thera_notification (
    id BIGSERIAL PRIMARY KEY,
    scout_id BIGINT NOT NULL,

    reference_name VARCHAR(100) NOT NULL,
    reference_id BIGINT NOT NULL,

    system_name VARCHAR(100) NOT NULL,
    region_name VARCHAR(100) NOT NULL,
    jumps INTEGER NOT NULL,

    in_signature VARCHAR(20),
    out_signature VARCHAR(20),
    content TEXT NOT NULL,

    created_at TIMESTAMP(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),

    CONSTRAINT uk_thera_notification UNIQUE (scout_id, reference_id)
);
`,
	`CREATE INDEX IF NOT EXISTS idx_thera_notification_created ON thera_notification (created_at);`,
	`CREATE INDEX IF NOT EXISTS idx_thera_notification_system ON thera_notification (system_name);`,
}

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// Run applies every migration to the journal database.
func Run(db Execer) error {
	for i, stmt := range Statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}
	return nil
}
