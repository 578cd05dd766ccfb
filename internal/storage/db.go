package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/per-shree/game-spending-tracker/internal/models"

	// Import sqlite driver
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested account does not exist.
var ErrNotFound = errors.New("storage: not found")

// DB wraps a sql.DB connection.
type DB struct {
	conn *sql.DB
}

// NewDB opens a database connection and runs migrations.
func NewDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// sqlite allows a single writer; one pooled connection also keeps
	// :memory: databases shared across the process.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		return nil, err
	}

	return db, nil
}

func (db *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			account_type TEXT NOT NULL DEFAULT 'parent',
			parent_username TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS ledgers (
			username TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			expires_at DATETIME NOT NULL,
			last_activity DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (username) REFERENCES accounts(username) ON DELETE CASCADE
		)`,
	}

	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			return err
		}
	}

	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// GetAccount retrieves an account by username. Returns ErrNotFound if no
// account with that username exists.
func (db *DB) GetAccount(username string) (*models.Account, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, password_hash, account_type, parent_username, created_at FROM accounts WHERE username = ?",
		username,
	)

	var a models.Account
	if err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.AccountType, &a.ParentUsername, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// AccountCount returns the number of registered accounts.
func (db *DB) AccountCount() (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM accounts").Scan(&count)
	return count, err
}

// GetLedger loads the ledger document for a username. A user without a
// persisted ledger gets an empty default one, mirroring how a fresh account
// starts out.
func (db *DB) GetLedger(username string) (*models.Ledger, error) {
	row := db.conn.QueryRow("SELECT data FROM ledgers WHERE username = ?", username)

	var data []byte
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.Ledger{}, nil
		}
		return nil, err
	}

	var l models.Ledger
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("decode ledger for %s: %w", username, err)
	}
	return &l, nil
}

const putLedgerSQL = `
	INSERT INTO ledgers (username, data, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(username) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`

// PutLedger persists the whole ledger document for a username.
func (db *DB) PutLedger(username string, l *models.Ledger) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("encode ledger for %s: %w", username, err)
	}
	_, err = db.conn.Exec(putLedgerSQL, username, string(data), time.Now())
	return err
}

// CreateRegistration stores a new account together with its initial ledger,
// and optionally the updated ledger of the linked parent, in one
// transaction. Nothing is persisted if any write fails.
func (db *DB) CreateRegistration(a *models.Account, l *models.Ledger, parentUsername string, parentLedger *models.Ledger) (*models.Account, error) {
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("encode ledger for %s: %w", a.Username, err)
	}
	var parentData []byte
	if parentLedger != nil {
		if parentData, err = json.Marshal(parentLedger); err != nil {
			return nil, fmt.Errorf("encode ledger for %s: %w", parentUsername, err)
		}
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		"INSERT INTO accounts (username, password_hash, account_type, parent_username) VALUES (?, ?, ?, ?)",
		a.Username, a.PasswordHash, a.AccountType, a.ParentUsername,
	)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if _, err := tx.Exec(putLedgerSQL, a.Username, string(data), now); err != nil {
		return nil, err
	}
	if parentLedger != nil {
		if _, err := tx.Exec(putLedgerSQL, parentUsername, string(parentData), now); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	created := *a
	created.ID = id
	created.CreatedAt = now
	return &created, nil
}

// CreateSession creates a new session for a user.
func (db *DB) CreateSession(token, username string, expiresAt time.Time) error {
	now := time.Now()
	_, err := db.conn.Exec(
		"INSERT INTO sessions (token, username, expires_at, last_activity) VALUES (?, ?, ?, ?)",
		token, username, expiresAt, now,
	)
	return err
}

// SessionInfo holds session validation data.
type SessionInfo struct {
	Account      *models.Account
	LastActivity time.Time
	ExpiresAt    time.Time
}

// ValidateSession checks if a session token is valid and returns the associated account.
func (db *DB) ValidateSession(token string) (*models.Account, error) {
	info, err := db.ValidateSessionWithInfo(token)
	if err != nil {
		return nil, err
	}
	return info.Account, nil
}

// ValidateSessionWithInfo checks if a session token is valid and returns session details.
func (db *DB) ValidateSessionWithInfo(token string) (*SessionInfo, error) {
	row := db.conn.QueryRow(`
		SELECT a.id, a.username, a.password_hash, a.account_type, a.parent_username, a.created_at, s.last_activity, s.expires_at
		FROM sessions s
		JOIN accounts a ON s.username = a.username
		WHERE s.token = ? AND s.expires_at > CURRENT_TIMESTAMP
	`, token)

	var a models.Account
	var lastActivity, expiresAt time.Time
	if err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.AccountType, &a.ParentUsername, &a.CreatedAt, &lastActivity, &expiresAt); err != nil {
		return nil, err
	}
	return &SessionInfo{
		Account:      &a,
		LastActivity: lastActivity,
		ExpiresAt:    expiresAt,
	}, nil
}

// RenewSession updates the last_activity and expires_at for a session.
func (db *DB) RenewSession(token string, newExpiresAt time.Time) error {
	now := time.Now()
	_, err := db.conn.Exec(
		"UPDATE sessions SET last_activity = ?, expires_at = ? WHERE token = ?",
		now, newExpiresAt, token,
	)
	return err
}

// DeleteSession removes a session by token.
func (db *DB) DeleteSession(token string) error {
	_, err := db.conn.Exec("DELETE FROM sessions WHERE token = ?", token)
	return err
}

// CleanExpiredSessions removes all expired sessions.
func (db *DB) CleanExpiredSessions() error {
	_, err := db.conn.Exec("DELETE FROM sessions WHERE expires_at <= CURRENT_TIMESTAMP")
	return err
}
