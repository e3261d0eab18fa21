// Package store provides SQLite-backed persistence for accounts, orders,
// addresses, cards and the append-only step log.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redmi6provk-cell/tira-order-auto/internal/domain"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed persistence.
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

const accountColumns = `id, name, email, phone, cookies, status, points, is_active, created_at, updated_at`

// GetAccountsByRange returns active accounts for the 1-based inclusive
// range [start, end] over the store's stable id ordering. A range reaching
// past the last account is truncated, not an error.
func (s *Store) GetAccountsByRange(start, end int) ([]*domain.Account, error) {
	if start < 1 || end < start {
		return nil, fmt.Errorf("invalid range [%d, %d]", start, end)
	}

	rows, err := s.db.Query(`
		SELECT `+accountColumns+` FROM accounts
		WHERE is_active = TRUE
		ORDER BY id
		LIMIT ? OFFSET ?
	`, end-start+1, start-1)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acct)
	}
	return accounts, rows.Err()
}

// GetAccount retrieves an account by id.
func (s *Store) GetAccount(id int64) (*domain.Account, error) {
	rows, err := s.db.Query(`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, sql.ErrNoRows
	}
	return scanAccount(rows)
}

// UpdateAccountPoints stores the latest reward metric for an account.
func (s *Store) UpdateAccountPoints(id int64, points string) error {
	_, err := s.db.Exec(`UPDATE accounts SET points = ?, updated_at = ? WHERE id = ?`,
		points, time.Now(), id)
	return err
}

// UpdateAccountStatus stores the latest auth status for an account.
func (s *Store) UpdateAccountStatus(id int64, status domain.AccountStatus) error {
	_, err := s.db.Exec(`UPDATE accounts SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now(), id)
	return err
}

// InsertAccount adds a new account and returns its id.
func (s *Store) InsertAccount(acct *domain.Account) (int64, error) {
	status := acct.Status
	if status == "" {
		status = domain.AccountUnknown
	}
	res, err := s.db.Exec(`
		INSERT INTO accounts (name, email, phone, cookies, status, points, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, acct.Name, acct.Email, acct.Phone, string(acct.Cookies), string(status), acct.Points, acct.Active)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func scanAccount(rows *sql.Rows) (*domain.Account, error) {
	var acct domain.Account
	var name, email, phone, cookies, points sql.NullString
	var status string

	err := rows.Scan(&acct.ID, &name, &email, &phone, &cookies, &status, &points,
		&acct.Active, &acct.CreatedAt, &acct.UpdatedAt)
	if err != nil {
		return nil, err
	}

	acct.Name = name.String
	acct.Email = email.String
	acct.Phone = phone.String
	acct.Points = points.String
	acct.Status = domain.AccountStatus(status)
	if cookies.Valid && cookies.String != "" {
		acct.Cookies = json.RawMessage(cookies.String)
	}
	return &acct, nil
}

// GetAddress retrieves an address by id.
func (s *Store) GetAddress(id string) (*domain.Address, error) {
	row := s.db.QueryRow(`
		SELECT id, full_name, phone, line1, line2, city, state, pincode
		FROM addresses WHERE id = ?
	`, id)

	var addr domain.Address
	var phone, line2 sql.NullString
	err := row.Scan(&addr.ID, &addr.FullName, &phone, &addr.Line1, &line2,
		&addr.City, &addr.State, &addr.Pincode)
	if err != nil {
		return nil, err
	}
	addr.Phone = phone.String
	addr.Line2 = line2.String
	return &addr, nil
}

// UpsertAddress inserts or replaces an address.
func (s *Store) UpsertAddress(addr *domain.Address) error {
	_, err := s.db.Exec(`
		INSERT INTO addresses (id, full_name, phone, line1, line2, city, state, pincode)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			full_name = excluded.full_name,
			phone = excluded.phone,
			line1 = excluded.line1,
			line2 = excluded.line2,
			city = excluded.city,
			state = excluded.state,
			pincode = excluded.pincode
	`, addr.ID, addr.FullName, addr.Phone, addr.Line1, addr.Line2, addr.City, addr.State, addr.Pincode)
	return err
}

// GetCard retrieves a stored card by id. The expiry is normalized from the
// stored MM/YYYY form to MM/YY.
func (s *Store) GetCard(id string) (*domain.Card, error) {
	row := s.db.QueryRow(`
		SELECT card_number, card_name, expiry_date, cvv FROM cards WHERE id = ?
	`, id)

	var card domain.Card
	if err := row.Scan(&card.Number, &card.Holder, &card.Expiry, &card.CVV); err != nil {
		return nil, err
	}
	card.Expiry = domain.NormalizeExpiry(card.Expiry)
	return &card, nil
}

// UpsertCard inserts or replaces a stored card.
func (s *Store) UpsertCard(id string, card *domain.Card, bank string) error {
	_, err := s.db.Exec(`
		INSERT INTO cards (id, card_number, card_name, expiry_date, cvv, bank_name)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			card_number = excluded.card_number,
			card_name = excluded.card_name,
			expiry_date = excluded.expiry_date,
			cvv = excluded.cvv,
			bank_name = excluded.bank_name
	`, id, card.Number, card.Holder, card.Expiry, card.CVV, bank)
	return err
}
