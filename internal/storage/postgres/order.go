package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ovenworks/breadstore/internal/domain/inventory"
	"github.com/ovenworks/breadstore/internal/domain/order"
	"github.com/ovenworks/breadstore/internal/domain/payment"
)

// weeklyCapLockID is the transaction-scoped advisory lock key that
// serializes the capacity check with the insert. Any fixed value works as
// long as every writer uses the same one.
const weeklyCapLockID = 7_240_199

var (
	_ order.Repository      = (*OrderRepository)(nil)
	_ inventory.SoldCounter = (*OrderRepository)(nil)
)

const insertOrderSQL = `INSERT INTO orders (
	id, created_at, customer_name, email, address, city, state, zip, phone,
	items, shipping_option, payment_method, payment_chain, payment_amount,
	total_usd, status, tx_hash, notes
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

const selectOrderColumns = `id, created_at, customer_name, email, address, city,
	state, zip, phone, items, shipping_option, payment_method, payment_chain,
	COALESCE(payment_amount, ''), total_usd, status, COALESCE(tx_hash, ''), COALESCE(notes, '')`

// OrderRepository implements order.Repository and inventory.SoldCounter
// backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// quantitySoldSince scans the trailing window of counted orders and sums
// line-item quantities in Go, exactly mirroring the ledger definition.
// Orders whose items column fails to decode contribute zero.
func quantitySoldSince(ctx context.Context, q querier, since time.Time) (int, error) {
	rows, err := q.Query(ctx,
		`SELECT items FROM orders WHERE status = ANY($1) AND created_at >= $2`,
		inventory.CountedStatuses, since,
	)
	if err != nil {
		return 0, fmt.Errorf("querying sold quantity: %w", err)
	}
	defer rows.Close()

	sold := 0
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return 0, fmt.Errorf("scanning items: %w", err)
		}
		var items []order.Item
		if err := json.Unmarshal(raw, &items); err != nil {
			continue
		}
		for _, it := range items {
			sold += it.Qty
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("reading sold quantity: %w", err)
	}
	return sold, nil
}

// QuantitySoldSince implements inventory.SoldCounter for ledger reads.
func (r *OrderRepository) QuantitySoldSince(ctx context.Context, since time.Time) (int, error) {
	return quantitySoldSince(ctx, r.pool, since)
}

// CreateReserving persists the order if the weekly cap admits its quantity.
// The capacity re-check and the insert run in one transaction serialized by
// a transaction-scoped advisory lock, so concurrent submissions cannot both
// pass the check and oversell the cap.
func (r *OrderRepository) CreateReserving(ctx context.Context, o *order.Order, cap int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, weeklyCapLockID); err != nil {
		return fmt.Errorf("acquiring capacity lock: %w", err)
	}

	sold, err := quantitySoldSince(ctx, tx, o.CreatedAt.Add(-inventory.Window))
	if err != nil {
		return err
	}
	if sold+o.Quantity() > cap {
		return &inventory.CapacityError{Sold: sold, Cap: cap}
	}

	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	_, err = tx.Exec(ctx, insertOrderSQL,
		o.ID, o.CreatedAt, o.CustomerName, o.Email, o.Address, o.City,
		o.State, o.Zip, o.Phone, itemsJSON, o.ShippingOption, o.PaymentMethod,
		string(o.PaymentChain), nullable(o.PaymentAmount), o.TotalUSD,
		string(o.Status), nullable(o.TxHash), nullable(o.Notes),
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	return tx.Commit(ctx)
}

// GetByID fetches a single order. Returns order.ErrNotFound for unknown IDs.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+selectOrderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("fetching order %q: %w", id, err)
	}
	return o, nil
}

// List returns orders newest first. An empty status returns all orders.
func (r *OrderRepository) List(ctx context.Context, status order.Status, limit int) ([]order.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+selectOrderColumns+` FROM orders
		 WHERE ($1 = '' OR status = $1)
		 ORDER BY created_at DESC LIMIT $2`,
		string(status), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	defer rows.Close()

	var out []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// UpdateStatus moves an order to a new fulfillment status. Used only by
// back-office tooling.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status order.Status) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("updating order %q status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*order.Order, error) {
	var (
		o                     order.Order
		items                 []byte
		chain, status         string
		amount, txHash, notes *string
	)
	err := row.Scan(
		&o.ID, &o.CreatedAt, &o.CustomerName, &o.Email, &o.Address, &o.City,
		&o.State, &o.Zip, &o.Phone, &items, &o.ShippingOption,
		&o.PaymentMethod, &chain, &amount, &o.TotalUSD, &status,
		&txHash, &notes,
	)
	if err != nil {
		return nil, err
	}
	o.PaymentChain = payment.Chain(chain)
	o.Status = order.Status(status)
	o.PaymentAmount = deref(amount)
	o.TxHash = deref(txHash)
	o.Notes = deref(notes)
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decoding order items: %w", err)
	}
	return &o, nil
}

// nullable maps empty strings to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
