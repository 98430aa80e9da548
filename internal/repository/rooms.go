package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/hotelbooking-system/internal/model"
)

const roomColumns = `id, name, room_type, address, description, price_cents, capacity, active`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (model.Room, error) {
	var room model.Room
	err := row.Scan(
		&room.ID, &room.Name, &room.Type, &room.Address, &room.Description,
		&room.PriceCents, &room.Capacity, &room.Active,
	)
	return room, err
}

func collectRooms(rows pgx.Rows) ([]model.Room, error) {
	defer rows.Close()

	var rooms []model.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, room)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return rooms, nil
}

// GetRoom возвращает номер по идентификатору независимо от признака активности.
func (r *PostgresRepository) GetRoom(ctx context.Context, id int64) (*model.Room, error) {
	room, err := scanRoom(r.pool.QueryRow(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("get room: %w", err)
	}
	return &room, nil
}

// ListActiveRooms возвращает номера, доступные для бронирования.
func (r *PostgresRepository) ListActiveRooms(ctx context.Context) ([]model.Room, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE active ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("select active rooms: %w", err)
	}
	return collectRooms(rows)
}

// SearchRooms возвращает страницу номеров по ключевому слову в названии и признаку активности.
func (r *PostgresRepository) SearchRooms(ctx context.Context, filter model.RoomFilter) (model.RoomPage, error) {
	page := model.RoomPage{Page: filter.Page, PageSize: filter.PageSize}

	const where = `WHERE ($1 = '' OR name ILIKE '%' || $1 || '%') AND ($2::boolean IS NULL OR active = $2)`

	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM rooms `+where,
		filter.Keyword, filter.Active,
	).Scan(&page.Total)
	if err != nil {
		return page, fmt.Errorf("count rooms: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+roomColumns+` FROM rooms `+where+` ORDER BY id LIMIT $3 OFFSET $4`,
		filter.Keyword, filter.Active, filter.PageSize, (filter.Page-1)*filter.PageSize,
	)
	if err != nil {
		return page, fmt.Errorf("search rooms: %w", err)
	}

	page.Rooms, err = collectRooms(rows)
	if err != nil {
		return page, err
	}

	if filter.PageSize > 0 {
		page.TotalPages = (page.Total + filter.PageSize - 1) / filter.PageSize
	}

	return page, nil
}

// CreateRoom добавляет номер и возвращает его идентификатор.
func (r *PostgresRepository) CreateRoom(ctx context.Context, room model.Room) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO rooms (name, room_type, address, description, price_cents, capacity, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		room.Name, room.Type, room.Address, room.Description, room.PriceCents, room.Capacity, room.Active,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create room: %w", err)
	}
	return id, nil
}

// UpdateRoom обновляет данные номера, включая признак активности.
func (r *PostgresRepository) UpdateRoom(ctx context.Context, room model.Room) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE rooms
		 SET name = $2, room_type = $3, address = $4, description = $5,
		     price_cents = $6, capacity = $7, active = $8
		 WHERE id = $1`,
		room.ID, room.Name, room.Type, room.Address, room.Description,
		room.PriceCents, room.Capacity, room.Active,
	)
	if err != nil {
		return fmt.Errorf("update room: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRoomNotFound
	}
	return nil
}
