package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"topolab/internal/domain"
	"topolab/internal/repository"

	_ "modernc.org/sqlite"
)

// Repository implements repository.Store using SQLite
type Repository struct {
	db *sql.DB
}

var _ repository.Store = (*Repository)(nil)

// New creates a new SQLite repository
func New(dbPath string) (*Repository, error) {
	dsn := dbPath
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
		if dbPath != ":memory:" {
			dsn += "&_pragma=journal_mode(WAL)"
		}
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite has a single writer; one connection also keeps :memory: databases alive
	db.SetMaxOpenConns(1)

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS topologies (
		name TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		digest TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS topology_components (
		topology TEXT NOT NULL,
		seq INTEGER NOT NULL,
		id TEXT NOT NULL,
		data JSON NOT NULL,
		PRIMARY KEY (topology, seq),
		FOREIGN KEY (topology) REFERENCES topologies(name) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS topology_connections (
		topology TEXT NOT NULL,
		seq INTEGER NOT NULL,
		id TEXT NOT NULL,
		data JSON NOT NULL,
		PRIMARY KEY (topology, seq),
		FOREIGN KEY (topology) REFERENCES topologies(name) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_topology_components_id ON topology_components(id);
	CREATE INDEX IF NOT EXISTS idx_topology_connections_id ON topology_connections(id);
	`

	_, err := r.db.Exec(schema)
	return err
}

// Save stores doc under name, replacing any previous content
func (r *Repository) Save(ctx context.Context, name string, doc *domain.Document) (bool, error) {
	if name == "" {
		return false, fmt.Errorf("topology name required")
	}
	if doc == nil {
		return false, fmt.Errorf("nil document")
	}

	digest, err := documentDigest(doc)
	if err != nil {
		return false, err
	}

	var existing string
	err = r.db.QueryRowContext(ctx, `SELECT digest FROM topologies WHERE name = ?`, name).Scan(&existing)
	switch {
	case err == nil && existing == digest:
		return false, nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("failed to read topology digest: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO topologies (name, version, digest, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			version = excluded.version,
			digest = excluded.digest,
			updated_at = excluded.updated_at
	`, name, doc.Version, digest, now, now)
	if err != nil {
		return false, fmt.Errorf("failed to upsert topology: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM topology_components WHERE topology = ?`, name); err != nil {
		return false, fmt.Errorf("failed to clear components: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM topology_connections WHERE topology = ?`, name); err != nil {
		return false, fmt.Errorf("failed to clear connections: %w", err)
	}

	compStmt, err := tx.PrepareContext(ctx, `INSERT INTO topology_components (topology, seq, id, data) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return false, err
	}
	defer compStmt.Close()

	for i, c := range doc.Components {
		data, err := json.Marshal(c)
		if err != nil {
			return false, fmt.Errorf("failed to marshal component %s: %w", c.ID, err)
		}
		if _, err := compStmt.ExecContext(ctx, name, i, c.ID, data); err != nil {
			return false, fmt.Errorf("failed to insert component %s: %w", c.ID, err)
		}
	}

	connStmt, err := tx.PrepareContext(ctx, `INSERT INTO topology_connections (topology, seq, id, data) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return false, err
	}
	defer connStmt.Close()

	for i, c := range doc.Connections {
		data, err := json.Marshal(c)
		if err != nil {
			return false, fmt.Errorf("failed to marshal connection %s: %w", c.ID, err)
		}
		if _, err := connStmt.ExecContext(ctx, name, i, c.ID, data); err != nil {
			return false, fmt.Errorf("failed to insert connection %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit topology: %w", err)
	}
	return true, nil
}

// Load reads a saved topology. Rows that fail to decode are skipped and
// listed in the result.
func (r *Repository) Load(ctx context.Context, name string) (*repository.Loaded, error) {
	doc := domain.NewDocument()
	err := r.db.QueryRowContext(ctx, `SELECT version FROM topologies WHERE name = ?`, name).Scan(&doc.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", repository.ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query topology: %w", err)
	}

	loaded := &repository.Loaded{Document: doc}

	rows, err := r.db.QueryContext(ctx, `
		SELECT seq, id, data FROM topology_components WHERE topology = ? ORDER BY seq
	`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query components: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			seq  int
			id   string
			data []byte
		)
		if err := rows.Scan(&seq, &id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan component: %w", err)
		}
		c, err := decodeComponent(data)
		if err != nil {
			loaded.Skipped = append(loaded.Skipped, domain.SkippedRecord{
				Kind: domain.RecordComponent, Index: seq, ID: id, Reason: err.Error(),
			})
			continue
		}
		doc.AddComponent(c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating components: %w", err)
	}

	connRows, err := r.db.QueryContext(ctx, `
		SELECT seq, id, data FROM topology_connections WHERE topology = ? ORDER BY seq
	`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query connections: %w", err)
	}
	defer connRows.Close()

	for connRows.Next() {
		var (
			seq  int
			id   string
			data []byte
		)
		if err := connRows.Scan(&seq, &id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		c, err := decodeConnection(data)
		if err != nil {
			loaded.Skipped = append(loaded.Skipped, domain.SkippedRecord{
				Kind: domain.RecordConnection, Index: seq, ID: id, Reason: err.Error(),
			})
			continue
		}
		doc.AddConnection(c)
	}
	if err := connRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating connections: %w", err)
	}

	return loaded, nil
}

// List returns a summary of every saved topology ordered by name
func (r *Repository) List(ctx context.Context) ([]repository.Summary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.name, t.digest, t.updated_at,
			(SELECT COUNT(*) FROM topology_components c WHERE c.topology = t.name),
			(SELECT COUNT(*) FROM topology_connections c WHERE c.topology = t.name)
		FROM topologies t
		ORDER BY t.name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query topologies: %w", err)
	}
	defer rows.Close()

	summaries := make([]repository.Summary, 0)
	for rows.Next() {
		var (
			s       repository.Summary
			updated int64
		)
		if err := rows.Scan(&s.Name, &s.Digest, &updated, &s.Components, &s.Connections); err != nil {
			return nil, fmt.Errorf("failed to scan topology: %w", err)
		}
		s.UpdatedAt = time.Unix(updated, 0).UTC()
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating topologies: %w", err)
	}
	return summaries, nil
}

// Delete removes a saved topology and its records
func (r *Repository) Delete(ctx context.Context, name string) error {
	// Records are deleted by CASCADE
	res, err := r.db.ExecContext(ctx, `DELETE FROM topologies WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete topology: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", repository.ErrNotFound, name)
	}
	return nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}
