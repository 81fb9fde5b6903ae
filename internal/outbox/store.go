package outbox

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// DefaultLeaseTTL bounds how long a claimed item stays reserved for its
// Store. It must outlast the slowest replay.
const DefaultLeaseTTL = 2 * time.Minute

// Store persists the queue in a SQLite file. The file is opened on first use.
// Several Stores, in one process or several, may share a file: Claim leases
// an item to the Store that made it, and nobody else can claim it until the
// lease is released or runs out.
type Store struct {
	path     string
	owner    string
	leaseTTL time.Duration
	now      func() time.Time

	once    sync.Once
	db      *sql.DB
	openErr error

	closeOnce sync.Once
	closeErr  error
}

type Option func(*Store)

func WithLeaseTTL(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.leaseTTL = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(path string, opts ...Option) *Store {
	s := &Store{
		path:     path,
		owner:    uuid.NewString(),
		leaseTTL: DefaultLeaseTTL,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Open is NewStore followed by an eager open, for callers that want to fail
// at startup rather than on the first queue operation.
func Open(path string, opts ...Option) (*Store, error) {
	s := NewStore(path, opts...)
	if _, err := s.conn(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Store) conn() (*sql.DB, error) {
	s.once.Do(func() {
		db, err := openDB(s.path)
		if err != nil {
			s.openErr = err
			return
		}

		if err := recoverExpired(db, s.now()); err != nil {
			db.Close()
			s.openErr = err

			return
		}

		s.db = db
	})

	return s.db, s.openErr
}

// dsn carries the pragmas so that every connection the pool opens gets them.
func dsn(path string) string {
	params := url.Values{}
	params.Set("_journal_mode", "WAL")
	params.Set("_synchronous", "FULL")
	params.Set("_busy_timeout", "5000")
	params.Set("_txlock", "immediate")

	return "file:" + path + "?" + params.Encode()
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("opening outbox: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to outbox: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying outbox schema: %w", err)
	}

	return db, nil
}

// recoverExpired returns syncing items whose lease has run out to pending.
// Their owner died mid-transmission. Live leases are left alone.
func recoverExpired(db *sql.DB, now time.Time) error {
	_, err := db.Exec(`
		UPDATE outbox_items
		SET status = 'pending', lease_owner = '', lease_expires_at = 0
		WHERE status = 'syncing' AND lease_expires_at <= ?`,
		now.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("recovering syncing items: %w", err)
	}

	return nil
}

// Close hands this Store's leased items back to the queue and closes the
// file. Operations after Close fail.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.once.Do(func() { s.openErr = ErrClosed })

		if s.db == nil {
			return
		}

		_, err := s.db.Exec(`
			UPDATE outbox_items
			SET status = 'pending', lease_owner = '', lease_expires_at = 0
			WHERE status = 'syncing' AND lease_owner = ?`,
			s.owner,
		)
		if err != nil {
			err = fmt.Errorf("releasing leases: %w", err)
		}

		s.closeErr = errors.Join(err, s.db.Close())
	})

	return s.closeErr
}

// Enqueue stores item as pending and returns its id. CreatedAt is assigned
// here and never goes backwards, even if the wall clock does.
func (s *Store) Enqueue(ctx context.Context, item *Item) (string, error) {
	db, err := s.conn()
	if err != nil {
		return "", err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning enqueue: %w", err)
	}
	defer tx.Rollback()

	var last sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT MAX(created_at) FROM outbox_items`).Scan(&last); err != nil {
		return "", fmt.Errorf("reading queue tail: %w", err)
	}

	now := s.now()

	createdAt := now.UnixNano()
	if last.Valid && createdAt <= last.Int64 {
		createdAt = last.Int64 + 1
	}

	if item.ID == "" {
		item.ID = uuid.NewString()
	}

	var clientCreatedAt int64
	if !item.ClientCreatedAt.IsZero() {
		clientCreatedAt = item.ClientCreatedAt.UnixNano()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO outbox_items (id, entity_type, action, method, url, body, created_at, status, client_id, client_created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 'pending', ?, ?, ?)`,
		item.ID, item.EntityType, item.Action, item.Method, item.URL, []byte(item.Body),
		createdAt, item.ClientID, clientCreatedAt, now.UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("inserting outbox item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing enqueue: %w", err)
	}

	item.CreatedAt = time.Unix(0, createdAt)
	item.UpdatedAt = now
	item.Status = StatusPending

	return item.ID, nil
}

const selectItemColumns = `id, entity_type, action, method, url, body, created_at, status, last_error, attempts, client_id, client_created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(sc scanner) (*Item, error) {
	var (
		it                                   Item
		body                                 []byte
		createdAt, clientCreatedAt, updateAt int64
	)

	if err := sc.Scan(
		&it.ID, &it.EntityType, &it.Action, &it.Method, &it.URL, &body, &createdAt,
		&it.Status, &it.LastError, &it.Attempts, &it.ClientID, &clientCreatedAt, &updateAt,
	); err != nil {
		return nil, err
	}

	it.Body = body
	it.CreatedAt = time.Unix(0, createdAt)
	it.UpdatedAt = time.Unix(0, updateAt)

	if clientCreatedAt != 0 {
		it.ClientCreatedAt = time.Unix(0, clientCreatedAt).UTC()
	}

	return &it, nil
}

func (s *Store) Get(ctx context.Context, id string) (*Item, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	it, err := scanItem(db.QueryRowContext(ctx, `SELECT `+selectItemColumns+` FROM outbox_items WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("getting outbox item: %w", err)
	}

	return it, nil
}

// ListByStatus returns the items in any of statuses, oldest first. That order
// is the replay order.
func (s *Store) ListByStatus(ctx context.Context, statuses ...Status) ([]*Item, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(statuses)), ",")

	args := make([]any, len(statuses))
	for i, st := range statuses {
		args[i] = st
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+selectItemColumns+` FROM outbox_items WHERE status IN (`+placeholders+`) ORDER BY created_at ASC, seq ASC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("listing outbox items: %w", err)
	}
	defer rows.Close()

	var items []*Item

	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning outbox item: %w", err)
		}

		items = append(items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating outbox items: %w", err)
	}

	return items, nil
}

func (s *Store) Update(ctx context.Context, id string, patch Patch) error {
	db, err := s.conn()
	if err != nil {
		return err
	}

	sets := []string{"updated_at = ?"}
	args := []any{s.now().UnixNano()}

	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *patch.Status)

		if *patch.Status != StatusSyncing {
			sets = append(sets, "lease_owner = ''", "lease_expires_at = 0")
		}
	}

	if patch.LastError != nil {
		sets = append(sets, "last_error = ?")
		args = append(args, *patch.LastError)
	}

	args = append(args, id)

	res, err := db.ExecContext(ctx, `UPDATE outbox_items SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("updating outbox item: %w", err)
	}

	return expectOne(res)
}

// Claim leases an item to this Store and moves it to syncing. Pending and
// failed items can be claimed, and so can syncing items whose lease has
// expired. It returns false when another Store holds the item, and
// ErrNotFound when the item is gone.
func (s *Store) Claim(ctx context.Context, id string) (bool, error) {
	db, err := s.conn()
	if err != nil {
		return false, err
	}

	now := s.now()

	res, err := db.ExecContext(ctx, `
		UPDATE outbox_items
		SET status = 'syncing', attempts = attempts + 1, updated_at = ?, lease_owner = ?, lease_expires_at = ?
		WHERE id = ? AND (status IN ('pending', 'failed') OR (status = 'syncing' AND lease_expires_at <= ?))`,
		now.UnixNano(), s.owner, now.Add(s.leaseTTL).UnixNano(), id, now.UnixNano(),
	)
	if err != nil {
		return false, fmt.Errorf("claiming outbox item: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claiming outbox item: %w", err)
	}

	if n == 1 {
		return true, nil
	}

	var one int
	if err := db.QueryRowContext(ctx, `SELECT 1 FROM outbox_items WHERE id = ?`, id).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrNotFound
		}

		return false, fmt.Errorf("claiming outbox item: %w", err)
	}

	return false, nil
}

func (s *Store) Remove(ctx context.Context, id string) error {
	db, err := s.conn()
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx, `DELETE FROM outbox_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("removing outbox item: %w", err)
	}

	return expectOne(res)
}

func (s *Store) CountByStatus(ctx context.Context) (Counts, error) {
	db, err := s.conn()
	if err != nil {
		return Counts{}, err
	}

	rows, err := db.QueryContext(ctx, `SELECT status, COUNT(*) FROM outbox_items GROUP BY status`)
	if err != nil {
		return Counts{}, fmt.Errorf("counting outbox items: %w", err)
	}
	defer rows.Close()

	var c Counts

	for rows.Next() {
		var (
			st Status
			n  int
		)

		if err := rows.Scan(&st, &n); err != nil {
			return Counts{}, fmt.Errorf("scanning outbox count: %w", err)
		}

		switch st {
		case StatusPending:
			c.Pending = n
		case StatusSyncing:
			c.Syncing = n
		case StatusFailed:
			c.Failed = n
		}
	}

	if err := rows.Err(); err != nil {
		return Counts{}, fmt.Errorf("iterating outbox counts: %w", err)
	}

	return c, nil
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}

	if n == 0 {
		return ErrNotFound
	}

	return nil
}
