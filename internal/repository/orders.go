package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/hotelbooking-system/internal/model"
)

const orderColumns = `id, room_id, member_id, ordered_at, start_date, end_date, paid, cancelled, total_cents`

func scanOrder(row rowScanner) (model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.ID, &o.RoomID, &o.MemberID, &o.OrderedAt, &o.StartDate, &o.EndDate,
		&o.Paid, &o.Cancelled, &o.TotalCents,
	)
	return o, err
}

func collectOrders(rows pgx.Rows) ([]model.Order, error) {
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}

// GetOrder возвращает заказ по идентификатору.
func (r *PostgresRepository) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &o, nil
}

// ListOrdersByRoom возвращает заказы номера по дате заезда. При activeOnly отменённые заказы не возвращаются.
func (r *PostgresRepository) ListOrdersByRoom(ctx context.Context, roomID int64, activeOnly bool) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+`
		 FROM orders
		 WHERE room_id = $1 AND (NOT $2 OR NOT cancelled)
		 ORDER BY start_date, id`,
		roomID, activeOnly,
	)
	if err != nil {
		return nil, fmt.Errorf("select room orders: %w", err)
	}
	return collectOrders(rows)
}

// ListOrdersByMember возвращает заказы участника, новые первыми.
func (r *PostgresRepository) ListOrdersByMember(ctx context.Context, memberID int64) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+`
		 FROM orders
		 WHERE member_id = $1
		 ORDER BY ordered_at DESC, id DESC`,
		memberID,
	)
	if err != nil {
		return nil, fmt.Errorf("select member orders: %w", err)
	}
	return collectOrders(rows)
}

// CreateOrder сохраняет бронирование. Строка номера блокируется на время транзакции,
// поэтому параллельные бронирования одного номера выполняются последовательно;
// ограничение orders_no_overlap защищает от пересечений на уровне схемы.
func (r *PostgresRepository) CreateOrder(ctx context.Context, order model.Order) (*model.Order, error) {
	created := order

	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var active bool
		err = tx.QueryRow(ctx, `SELECT active FROM rooms WHERE id = $1 FOR UPDATE`, order.RoomID).Scan(&active)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrRoomNotFound
			}
			return fmt.Errorf("lock room for update: %w", err)
		}
		if !active {
			return ErrRoomNotFound
		}

		var busy bool
		err = tx.QueryRow(ctx,
			`SELECT EXISTS (
			     SELECT 1 FROM orders
			     WHERE room_id = $1 AND NOT cancelled
			       AND start_date < $3
			       AND $2 < GREATEST(end_date, start_date + 1)
			 )`,
			order.RoomID, order.StartDate, order.OccupiedUntil(),
		).Scan(&busy)
		if err != nil {
			return fmt.Errorf("check overlap: %w", err)
		}
		if busy {
			return ErrRoomUnavailable
		}

		err = tx.QueryRow(ctx,
			`INSERT INTO orders (room_id, member_id, ordered_at, start_date, end_date, paid, cancelled, total_cents)
			 VALUES ($1, $2, $3, $4, $5, FALSE, FALSE, $6)
			 RETURNING id, ordered_at`,
			order.RoomID, order.MemberID, order.OrderedAt, order.StartDate, order.EndDate, order.TotalCents,
		).Scan(&created.ID, &created.OrderedAt)
		if err != nil {
			if hasPgCode(err, pgerrcode.ExclusionViolation) {
				return ErrRoomUnavailable
			}
			return fmt.Errorf("insert order: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	created.Paid = false
	created.Cancelled = false

	return &created, nil
}

// CancelOrder помечает заказ отменённым. При unpaidOnly оплаченный заказ не отменяется.
func (r *PostgresRepository) CancelOrder(ctx context.Context, id int64, unpaidOnly bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET cancelled = TRUE
		 WHERE id = $1 AND NOT cancelled AND (NOT $2 OR NOT paid)`,
		id, unpaidOnly,
	)
	if err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	o, err := r.GetOrder(ctx, id)
	if err != nil {
		return err
	}
	if o.Cancelled {
		return ErrOrderAlreadyCancelled
	}
	if unpaidOnly && o.Paid {
		return ErrOrderPaid
	}
	return fmt.Errorf("cancel order %d: no rows updated", id)
}

// CheckoutCart атомарно помечает оплаченными все неоплаченные и неотменённые заказы участника
// и возвращает их. Пустой результат означает пустую корзину.
func (r *PostgresRepository) CheckoutCart(ctx context.Context, memberID int64) ([]model.Order, error) {
	var paid []model.Order

	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		rows, err := tx.Query(ctx,
			`UPDATE orders SET paid = TRUE
			 WHERE member_id = $1 AND NOT paid AND NOT cancelled
			 RETURNING `+orderColumns,
			memberID,
		)
		if err != nil {
			return fmt.Errorf("pay cart: %w", err)
		}

		paid, err = collectOrders(rows)
		if err != nil {
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return paid, nil
}
