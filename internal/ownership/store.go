package ownership

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/mattn/go-sqlite3"

	"github.com/nerrad567/device-relay/internal/infrastructure/database"
)

// SQLiteStore implements the ownership relation on the relay database.
// Migrations must have been applied.
//
// All methods are safe for concurrent use; SQLite serialises writers.
type SQLiteStore struct {
	db  *database.DB
	now func() time.Time
}

// NewSQLiteStore creates a store on an open, migrated database.
func NewSQLiteStore(db *database.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

// unavailable wraps a storage error so callers can match ErrUnavailable.
func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}

// Bind records userID as the owner of rec.DeviceID.
//
// Binding a device the user already owns is a no-op that returns the stored
// record. Binding a device owned by someone else returns ErrConflict without
// revealing the owner.
func (s *SQLiteStore) Bind(ctx context.Context, userID string, rec Record) (Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, unavailable("bind", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	owner, owned, err := ownerTx(ctx, tx, rec.DeviceID)
	if err != nil {
		return Record{}, err
	}
	if owned {
		if owner != userID {
			return Record{}, ErrConflict
		}
		doc, err := loadTx(ctx, tx, userID)
		if err != nil {
			return Record{}, err
		}
		if existing, ok := doc.Devices[rec.DeviceID]; ok {
			return existing, nil
		}
		// Index without document entry; fall through and repair the document.
	}

	doc, err := loadTx(ctx, tx, userID)
	if err != nil {
		return Record{}, err
	}

	now := s.now().UTC()
	if rec.RegisteredAt.IsZero() {
		rec.RegisteredAt = now
	}
	if rec.Settings == nil {
		rec.Settings = map[string]any{}
	}
	doc.Devices[rec.DeviceID] = rec

	if err := saveTx(ctx, tx, userID, doc, now); err != nil {
		return Record{}, err
	}
	if !owned {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO device_owners (device_id, user_id, bound_at) VALUES (?, ?, ?)",
			rec.DeviceID, userID, now.Format(time.RFC3339Nano),
		); err != nil {
			if isConstraint(err) {
				return Record{}, ErrConflict
			}
			return Record{}, unavailable("bind", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Record{}, unavailable("bind commit", err)
	}
	return rec, nil
}

// IsOwner reports whether userID currently owns deviceID.
func (s *SQLiteStore) IsOwner(ctx context.Context, userID, deviceID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM device_owners WHERE device_id = ? AND user_id = ?",
		deviceID, userID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, unavailable("is owner", err)
	}
	return true, nil
}

// OwnersOf returns the users owning deviceID: none or exactly one.
func (s *SQLiteStore) OwnersOf(ctx context.Context, deviceID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT user_id FROM device_owners WHERE device_id = ?", deviceID)
	if err != nil {
		return nil, unavailable("owners", err)
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, unavailable("owners scan", err)
		}
		owners = append(owners, id)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("owners", err)
	}
	return owners, nil
}

// Devices lists the user's devices sorted by device id.
// A user with no account has no devices.
func (s *SQLiteStore) Devices(ctx context.Context, userID string) ([]Record, error) {
	doc, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(doc.Devices))
	for _, rec := range doc.Devices {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].DeviceID < records[j].DeviceID })
	return records, nil
}

// Device returns one of the user's devices, or ErrNotFound.
func (s *SQLiteStore) Device(ctx context.Context, userID, deviceID string) (Record, error) {
	doc, err := s.load(ctx, userID)
	if err != nil {
		return Record{}, err
	}
	rec, ok := doc.Devices[deviceID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// MergeSettings writes changes over the device's stored settings and returns
// the updated record. Values are stored as given; validation is the caller's.
func (s *SQLiteStore) MergeSettings(ctx context.Context, userID, deviceID string, changes map[string]any) (Record, error) {
	return s.update(ctx, userID, deviceID, func(rec *Record) {
		if rec.Settings == nil {
			rec.Settings = make(map[string]any, len(changes))
		}
		for k, v := range changes {
			rec.Settings[k] = v
		}
	})
}

// Rename sets the device's display name.
func (s *SQLiteStore) Rename(ctx context.Context, userID, deviceID, name string) (Record, error) {
	return s.update(ctx, userID, deviceID, func(rec *Record) {
		rec.Name = name
	})
}

// Release removes the user's ownership of deviceID. It returns ErrNotFound
// when the user does not own it.
func (s *SQLiteStore) Release(ctx context.Context, userID, deviceID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("release", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	res, err := tx.ExecContext(ctx,
		"DELETE FROM device_owners WHERE device_id = ? AND user_id = ?",
		deviceID, userID,
	)
	if err != nil {
		return unavailable("release", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return unavailable("release", err)
	} else if n == 0 {
		return ErrNotFound
	}

	doc, err := loadTx(ctx, tx, userID)
	if err != nil {
		return err
	}
	delete(doc.Devices, deviceID)
	if err := saveTx(ctx, tx, userID, doc, s.now().UTC()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return unavailable("release commit", err)
	}
	return nil
}

// HealthCheck verifies the backing database answers.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if err := s.db.HealthCheck(ctx); err != nil {
		return unavailable("health", err)
	}
	return nil
}

// update applies fn to an owned device's record inside one transaction.
func (s *SQLiteStore) update(ctx context.Context, userID, deviceID string, fn func(*Record)) (Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, unavailable("update", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	owner, owned, err := ownerTx(ctx, tx, deviceID)
	if err != nil {
		return Record{}, err
	}
	if !owned || owner != userID {
		return Record{}, ErrNotFound
	}

	doc, err := loadTx(ctx, tx, userID)
	if err != nil {
		return Record{}, err
	}
	rec, ok := doc.Devices[deviceID]
	if !ok {
		return Record{}, ErrNotFound
	}

	fn(&rec)
	doc.Devices[deviceID] = rec

	if err := saveTx(ctx, tx, userID, doc, s.now().UTC()); err != nil {
		return Record{}, err
	}
	if err := tx.Commit(); err != nil {
		return Record{}, unavailable("update commit", err)
	}
	return rec, nil
}

func (s *SQLiteStore) load(ctx context.Context, userID string) (document, error) {
	return loadTx(ctx, s.db, userID)
}

// querier is satisfied by *sql.Tx and *database.DB.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func ownerTx(ctx context.Context, q querier, deviceID string) (string, bool, error) {
	var owner string
	err := q.QueryRowContext(ctx, "SELECT user_id FROM device_owners WHERE device_id = ?", deviceID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable("owner lookup", err)
	}
	return owner, true, nil
}

func loadTx(ctx context.Context, q querier, userID string) (document, error) {
	var raw string
	err := q.QueryRowContext(ctx, "SELECT document FROM accounts WHERE user_id = ?", userID).Scan(&raw)
	return decodeDocument(raw, err)
}

func decodeDocument(raw string, scanErr error) (document, error) {
	doc := document{Devices: map[string]Record{}}
	if errors.Is(scanErr, sql.ErrNoRows) {
		return doc, nil
	}
	if scanErr != nil {
		return document{}, unavailable("load account", scanErr)
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return document{}, unavailable("decode account", err)
	}
	if doc.Devices == nil {
		doc.Devices = map[string]Record{}
	}
	for id, rec := range doc.Devices {
		rec.DeviceID = id
		doc.Devices[id] = rec
	}
	return doc, nil
}

func saveTx(ctx context.Context, q querier, userID string, doc document, now time.Time) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return unavailable("encode account", err)
	}
	ts := now.Format(time.RFC3339Nano)
	if _, err := q.ExecContext(ctx, `
		INSERT INTO accounts (user_id, document, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at
	`, userID, string(raw), ts, ts); err != nil {
		return unavailable("save account", err)
	}
	return nil
}

// isConstraint reports a SQLite uniqueness or key violation.
func isConstraint(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.Code == sqlite3.ErrConstraint
}
