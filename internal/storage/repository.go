package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"lifedash/internal/docstore"
)

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// SQLiteRepository is a document store on a single SQLite file. Every write
// bumps the document version so a mirror worker can tell what still needs syncing.
type SQLiteRepository struct {
	db     *sql.DB
	now    func() time.Time
	schema uint
}

// VersionedDocument is a stored document with its sync bookkeeping.
type VersionedDocument struct {
	Ref           docstore.Ref
	Document      docstore.Document
	Version       int64
	SyncedVersion int64
}

// PendingDocument identifies a document whose latest version has not been mirrored yet.
type PendingDocument struct {
	Ref     docstore.Ref
	Version int64
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	schema, err := RunMigrations(dbPath)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now, schema: schema}, nil
}

// SchemaVersion is the migration version the database was opened at.
func (r *SQLiteRepository) SchemaVersion() uint {
	return r.schema
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Get(ctx context.Context, ref docstore.Ref) (docstore.Document, error) {
	v, err := r.GetVersioned(ctx, ref)
	if err != nil {
		return nil, err
	}
	return v.Document, nil
}

func (r *SQLiteRepository) GetVersioned(ctx context.Context, ref docstore.Ref) (VersionedDocument, error) {
	if err := ref.Validate(); err != nil {
		return VersionedDocument{}, err
	}
	row := r.db.QueryRowContext(ctx, `
		SELECT fields, version, synced_version, last_updated
		FROM documents
		WHERE user_id = ? AND collection = ? AND doc_id = ?`,
		ref.UserID, ref.Collection, ref.DocID)

	var (
		raw     string
		updated string
		out     = VersionedDocument{Ref: ref}
	)
	if err := row.Scan(&raw, &out.Version, &out.SyncedVersion, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return VersionedDocument{}, docstore.ErrNotFound
		}
		return VersionedDocument{}, fmt.Errorf("get %s: %w", ref, err)
	}
	doc, err := decodeFields(raw, updated)
	if err != nil {
		return VersionedDocument{}, fmt.Errorf("get %s: %w", ref, err)
	}
	out.Document = doc
	return out, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, ref docstore.Ref, doc docstore.Document) error {
	_, err := r.Save(ctx, ref, doc)
	return err
}

// Save merges doc into the stored document inside one transaction and returns the new version.
func (r *SQLiteRepository) Save(ctx context.Context, ref docstore.Ref, doc docstore.Document) (int64, error) {
	if err := ref.Validate(); err != nil {
		return 0, err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	current := docstore.Document{}
	var version int64
	var raw string
	err = tx.QueryRowContext(ctx, `
		SELECT fields, version FROM documents
		WHERE user_id = ? AND collection = ? AND doc_id = ?`,
		ref.UserID, ref.Collection, ref.DocID).Scan(&raw, &version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return 0, fmt.Errorf("read %s: %w", ref, err)
	default:
		if err := json.Unmarshal([]byte(raw), &current); err != nil {
			return 0, fmt.Errorf("decode %s: %w", ref, err)
		}
	}

	merged, err := json.Marshal(docstore.Merge(current, docstore.Document(doc.Fields())))
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", ref, err)
	}
	version++
	now := r.now().UTC().Format(timeLayout)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (user_id, collection, doc_id, fields, version, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, collection, doc_id) DO UPDATE SET
			fields = excluded.fields,
			version = excluded.version,
			last_updated = excluded.last_updated`,
		ref.UserID, ref.Collection, ref.DocID, string(merged), version, now)
	if err != nil {
		return 0, fmt.Errorf("write %s: %w", ref, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit %s: %w", ref, err)
	}

	slog.DebugContext(ctx, "Document saved to SQLite", "path", ref.Path(), "version", version)
	return version, nil
}

func (r *SQLiteRepository) List(ctx context.Context, userID, collection string) ([]docstore.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT fields, last_updated FROM documents
		WHERE user_id = ? AND collection = ?
		ORDER BY doc_id`, userID, collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	var out []docstore.Document
	for rows.Next() {
		var raw, updated string
		if err := rows.Scan(&raw, &updated); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		doc, err := decodeFields(raw, updated)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// PendingSync returns up to limit documents whose latest version is not mirrored, oldest first.
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]PendingDocument, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, collection, doc_id, version FROM documents
		WHERE synced_version < version
		ORDER BY last_updated
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending documents: %w", err)
	}
	defer rows.Close()

	var out []PendingDocument
	for rows.Next() {
		var p PendingDocument
		if err := rows.Scan(&p.Ref.UserID, &p.Ref.Collection, &p.Ref.DocID, &p.Version); err != nil {
			return nil, fmt.Errorf("scan pending document: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkSynced records that version has been mirrored. Older versions never move the marker back.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, ref docstore.Ref, version int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE documents SET synced_version = MAX(synced_version, ?)
		WHERE user_id = ? AND collection = ? AND doc_id = ?`,
		version, ref.UserID, ref.Collection, ref.DocID)
	if err != nil {
		return fmt.Errorf("mark %s synced: %w", ref, err)
	}
	return nil
}

func decodeFields(raw, updated string) (docstore.Document, error) {
	doc := docstore.Document{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	if ts, err := time.Parse(timeLayout, updated); err == nil {
		doc[docstore.FieldLastUpdated] = ts
	}
	return doc, nil
}
