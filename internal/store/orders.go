package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redmi6provk-cell/tira-order-auto/internal/domain"
)

const orderColumns = `id, batch_id, account_id, session_token, order_number, products, address,
	payment_method, status, subtotal, discount, total, confirmation, error_message,
	created_at, started_at, completed_at`

// CreateOrder persists a new order record.
func (s *Store) CreateOrder(o *domain.Order) error {
	productsJSON, err := json.Marshal(o.Products)
	if err != nil {
		return err
	}
	addressJSON, err := json.Marshal(o.Address)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO orders (`+orderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, o.ID, o.BatchID, o.AccountID, o.SessionToken, o.Number, string(productsJSON),
		string(addressJSON), string(o.PaymentMethod), string(o.Status),
		o.Subtotal, o.Discount, o.Total, o.Confirmation, o.ErrorMessage,
		o.CreatedAt, o.StartedAt, o.CompletedAt)
	return err
}

// UpdateOrder applies the non-nil fields of the update. Updating an
// unknown order id returns sql.ErrNoRows.
func (s *Store) UpdateOrder(id string, u domain.OrderUpdate) error {
	query := `UPDATE orders SET id = id`
	var args []interface{}

	if u.Status != nil {
		query += `, status = ?`
		args = append(args, string(*u.Status))
	}
	if u.Total != nil {
		query += `, total = ?`
		args = append(args, *u.Total)
	}
	if u.Confirmation != nil {
		query += `, confirmation = ?`
		args = append(args, *u.Confirmation)
	}
	if u.ErrorMessage != nil {
		query += `, error_message = ?`
		args = append(args, *u.ErrorMessage)
	}
	if u.StartedAt != nil {
		query += `, started_at = ?`
		args = append(args, *u.StartedAt)
	}
	if u.CompletedAt != nil {
		query += `, completed_at = ?`
		args = append(args, *u.CompletedAt)
	}

	query += ` WHERE id = ?`
	args = append(args, id)

	res, err := s.db.Exec(query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetOrder retrieves an order by id.
func (s *Store) GetOrder(id string) (*domain.Order, error) {
	rows, err := s.db.Query(`SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
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
	return scanOrder(rows)
}

// ListOrdersByBatch returns all orders for a batch, oldest first.
func (s *Store) ListOrdersByBatch(batchID string) ([]*domain.Order, error) {
	rows, err := s.db.Query(`
		SELECT `+orderColumns+` FROM orders WHERE batch_id = ? ORDER BY created_at
	`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// CountNonTerminalOrders returns how many orders in a batch never reached a
// terminal state.
func (s *Store) CountNonTerminalOrders(batchID string) (int, error) {
	row := s.db.QueryRow(`
		SELECT COUNT(*) FROM orders WHERE batch_id = ? AND status IN ('pending', 'processing')
	`, batchID)
	var n int
	err := row.Scan(&n)
	return n, err
}

func scanOrder(rows *sql.Rows) (*domain.Order, error) {
	var o domain.Order
	var batchID, sessionToken, productsJSON, addressJSON sql.NullString
	var payment, status string
	var confirmation, errorMessage sql.NullString
	var startedAt, completedAt sql.NullTime

	err := rows.Scan(&o.ID, &batchID, &o.AccountID, &sessionToken, &o.Number,
		&productsJSON, &addressJSON, &payment, &status, &o.Subtotal, &o.Discount,
		&o.Total, &confirmation, &errorMessage, &o.CreatedAt, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	o.BatchID = batchID.String
	o.SessionToken = sessionToken.String
	o.PaymentMethod = domain.PaymentMethod(payment)
	o.Status = domain.OrderStatus(status)
	if confirmation.Valid {
		o.Confirmation = &confirmation.String
	}
	if errorMessage.Valid {
		o.ErrorMessage = &errorMessage.String
	}
	if startedAt.Valid {
		t := startedAt.Time
		o.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		o.CompletedAt = &t
	}

	if productsJSON.Valid && productsJSON.String != "" {
		if err := json.Unmarshal([]byte(productsJSON.String), &o.Products); err != nil {
			return nil, fmt.Errorf("decoding order products: %w", err)
		}
	}
	if addressJSON.Valid && addressJSON.String != "" {
		if err := json.Unmarshal([]byte(addressJSON.String), &o.Address); err != nil {
			return nil, fmt.Errorf("decoding order address: %w", err)
		}
	}
	return &o, nil
}

// AppendLog stores one step event. The log is append-only.
func (s *Store) AppendLog(ev domain.StepEvent) error {
	var metaJSON string
	if len(ev.Metadata) > 0 {
		data, err := json.Marshal(ev.Metadata)
		if err != nil {
			return err
		}
		metaJSON = string(data)
	}

	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := s.db.Exec(`
		INSERT INTO step_logs (session_token, order_id, step, level, message, metadata, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, ev.SessionToken, ev.OrderID, ev.Step, ev.Level, ev.Message, metaJSON, ts)
	return err
}

// LogsForSession returns all step events for a session in emission order.
func (s *Store) LogsForSession(sessionToken string) ([]domain.StepEvent, error) {
	rows, err := s.db.Query(`
		SELECT session_token, order_id, step, level, message, metadata, timestamp
		FROM step_logs WHERE session_token = ? ORDER BY id
	`, sessionToken)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.StepEvent
	for rows.Next() {
		var ev domain.StepEvent
		var orderID, step, metaJSON sql.NullString
		if err := rows.Scan(&ev.SessionToken, &orderID, &step, &ev.Level, &ev.Message, &metaJSON, &ev.Timestamp); err != nil {
			return nil, err
		}
		ev.OrderID = orderID.String
		ev.Step = step.String
		if metaJSON.Valid && metaJSON.String != "" {
			if err := json.Unmarshal([]byte(metaJSON.String), &ev.Metadata); err != nil {
				return nil, err
			}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
