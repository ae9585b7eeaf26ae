package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"healthgate/internal/audit/models"
	dErrors "healthgate/pkg/domain-errors"
)

// PostgresStore persists the chain in two tables: audit_entries holds the
// log, audit_chain_head holds a single row with the head and root markers.
// Appends CAS on the head row's hash inside a transaction.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS audit_chain_head (
	id             smallint PRIMARY KEY CHECK (id = 1),
	seq            bigint NOT NULL,
	hash           text   NOT NULL,
	root_seq       bigint NOT NULL,
	root_prev_hash text   NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_entries (
	seq            bigint PRIMARY KEY,
	id             text        NOT NULL UNIQUE,
	ts             timestamptz NOT NULL,
	action         text        NOT NULL,
	actor_id       text        NOT NULL DEFAULT '',
	source_ip      text        NOT NULL DEFAULT '',
	user_agent     text        NOT NULL DEFAULT '',
	request_path   text        NOT NULL DEFAULT '',
	method         text        NOT NULL DEFAULT '',
	details        jsonb,
	integrity_hash text        NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_entries_ts ON audit_entries (ts);
CREATE INDEX IF NOT EXISTS idx_audit_entries_actor ON audit_entries (actor_id);
CREATE INDEX IF NOT EXISTS idx_audit_entries_action ON audit_entries (action);
`

// EnsureSchema creates the audit tables and seeds the head row if absent.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return wrapStoreErr("ensure schema", err)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_chain_head (id, seq, hash, root_seq, root_prev_hash)
		 VALUES (1, 0, $1, 1, $1)
		 ON CONFLICT (id) DO NOTHING`,
		models.ChainSeed,
	)
	if err != nil {
		return wrapStoreErr("seed chain head", err)
	}
	return nil
}

func (s *PostgresStore) Head(ctx context.Context) (Head, error) {
	var head Head
	err := s.db.QueryRowContext(ctx,
		`SELECT seq, hash FROM audit_chain_head WHERE id = 1`,
	).Scan(&head.Seq, &head.Hash)
	if err != nil {
		return Head{}, wrapStoreErr("read chain head", err)
	}
	return head, nil
}

func (s *PostgresStore) Append(ctx context.Context, entry *models.Entry, expectedPrevHash string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapStoreErr("begin append", err)
	}
	defer tx.Rollback()

	// The CAS: advancing the head only succeeds if nobody moved it since
	// the caller read it.
	res, err := tx.ExecContext(ctx,
		`UPDATE audit_chain_head SET seq = $1, hash = $2 WHERE id = 1 AND hash = $3 AND seq = $1 - 1`,
		entry.Seq, entry.IntegrityHash, expectedPrevHash,
	)
	if err != nil {
		return wrapStoreErr("advance chain head", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrapStoreErr("advance chain head", err)
	}
	if affected == 0 {
		return dErrors.New(dErrors.CodeChainConflict, "chain head moved during append")
	}

	var details []byte
	if entry.Details != nil {
		details, err = json.Marshal(entry.Details)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInvalidInput, "marshal entry details")
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO audit_entries
		 (seq, id, ts, action, actor_id, source_ip, user_agent, request_path, method, details, integrity_hash)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		entry.Seq, entry.ID, entry.Timestamp, string(entry.Action), entry.ActorID,
		entry.SourceIP, entry.UserAgent, entry.RequestPath, entry.Method, details, entry.IntegrityHash,
	)
	if err != nil {
		return wrapStoreErr("insert audit entry", err)
	}

	if err := tx.Commit(); err != nil {
		return wrapStoreErr("commit append", err)
	}
	return nil
}

const entryColumns = `seq, id, ts, action, actor_id, source_ip, user_agent, request_path, method, details, integrity_hash`

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*models.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM audit_entries WHERE id = $1`, id)
	return scanEntry(row)
}

func (s *PostgresStore) GetBySeq(ctx context.Context, seq int64) (*models.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM audit_entries WHERE seq = $1`, seq)
	return scanEntry(row)
}

func (s *PostgresStore) Root(ctx context.Context) (Root, error) {
	var root Root
	err := s.db.QueryRowContext(ctx,
		`SELECT root_seq, root_prev_hash FROM audit_chain_head WHERE id = 1`,
	).Scan(&root.Seq, &root.PrevHash)
	if err != nil {
		return Root{}, wrapStoreErr("read chain root", err)
	}
	return root, nil
}

func (s *PostgresStore) FindMany(ctx context.Context, filter models.Filter) ([]*models.Entry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultFindLimit
	}
	if limit > maxFindLimit {
		limit = maxFindLimit
	}

	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.ActorID != "" {
		where = append(where, "actor_id = "+arg(filter.ActorID))
	}
	if filter.Action != "" {
		where = append(where, "action = "+arg(string(filter.Action)))
	}
	if !filter.From.IsZero() {
		where = append(where, "ts >= "+arg(filter.From))
	}
	if !filter.To.IsZero() {
		where = append(where, "ts < "+arg(filter.To))
	}

	query := `SELECT ` + entryColumns + ` FROM audit_entries`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq DESC LIMIT " + arg(limit) + " OFFSET " + arg(filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapStoreErr("find audit entries", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *PostgresStore) ListRange(ctx context.Context, from, to time.Time) ([]*models.Entry, error) {
	var (
		where []string
		args  []any
	)
	if !from.IsZero() {
		args = append(args, from)
		where = append(where, fmt.Sprintf("ts >= $%d", len(args)))
	}
	if !to.IsZero() {
		args = append(args, to)
		where = append(where, fmt.Sprintf("ts < $%d", len(args)))
	}

	query := `SELECT ` + entryColumns + ` FROM audit_entries`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapStoreErr("list audit entries", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *PostgresStore) Cleanup(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, wrapStoreErr("begin cleanup", err)
	}
	defer tx.Rollback()

	// Lock the head row so cleanup serializes against appends.
	var head Head
	err = tx.QueryRowContext(ctx,
		`SELECT seq, hash FROM audit_chain_head WHERE id = 1 FOR UPDATE`,
	).Scan(&head.Seq, &head.Hash)
	if err != nil {
		return 0, wrapStoreErr("lock chain head", err)
	}

	// The prune boundary is the first entry at or past the cutoff; entries
	// behind it go even if a later entry carries an older caller timestamp.
	var boundary sql.NullInt64
	err = tx.QueryRowContext(ctx,
		`SELECT MIN(seq) FROM audit_entries WHERE ts >= $1`, cutoff,
	).Scan(&boundary)
	if err != nil {
		return 0, wrapStoreErr("find cleanup boundary", err)
	}

	var (
		newRootSeq  int64
		newRootPrev string
	)
	if boundary.Valid {
		newRootSeq = boundary.Int64
		// The survivor was chained against its deleted predecessor.
		err = tx.QueryRowContext(ctx,
			`SELECT integrity_hash FROM audit_entries WHERE seq = $1`, newRootSeq-1,
		).Scan(&newRootPrev)
		if errors.Is(err, sql.ErrNoRows) {
			// Predecessor already pruned by an earlier run; nothing to remove.
			return 0, nil
		}
		if err != nil {
			return 0, wrapStoreErr("read boundary predecessor", err)
		}
	} else {
		// Nothing survives; anchor the next append against the head.
		newRootSeq = head.Seq + 1
		newRootPrev = head.Hash
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM audit_entries WHERE seq < $1`, newRootSeq)
	if err != nil {
		return 0, wrapStoreErr("delete audit entries", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, wrapStoreErr("delete audit entries", err)
	}
	if removed == 0 {
		return 0, nil
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE audit_chain_head SET root_seq = $1, root_prev_hash = $2 WHERE id = 1`,
		newRootSeq, newRootPrev)
	if err != nil {
		return 0, wrapStoreErr("update chain root", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, wrapStoreErr("commit cleanup", err)
	}
	return removed, nil
}

func scanEntry(row *sql.Row) (*models.Entry, error) {
	var (
		entry   models.Entry
		action  string
		details []byte
	)
	err := row.Scan(&entry.Seq, &entry.ID, &entry.Timestamp, &action, &entry.ActorID,
		&entry.SourceIP, &entry.UserAgent, &entry.RequestPath, &entry.Method, &details, &entry.IntegrityHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapStoreErr("scan audit entry", err)
	}
	entry.Action = models.Action(action)
	if len(details) > 0 {
		if err := json.Unmarshal(details, &entry.Details); err != nil {
			return nil, wrapStoreErr("decode entry details", err)
		}
	}
	return &entry, nil
}

func scanEntries(rows *sql.Rows) ([]*models.Entry, error) {
	var out []*models.Entry
	for rows.Next() {
		var (
			entry   models.Entry
			action  string
			details []byte
		)
		err := rows.Scan(&entry.Seq, &entry.ID, &entry.Timestamp, &action, &entry.ActorID,
			&entry.SourceIP, &entry.UserAgent, &entry.RequestPath, &entry.Method, &details, &entry.IntegrityHash)
		if err != nil {
			return nil, wrapStoreErr("scan audit entry", err)
		}
		entry.Action = models.Action(action)
		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				return nil, wrapStoreErr("decode entry details", err)
			}
		}
		out = append(out, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("iterate audit entries", err)
	}
	return out, nil
}

func wrapStoreErr(op string, err error) error {
	return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, op)
}

var _ Store = (*PostgresStore)(nil)
