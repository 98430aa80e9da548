package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/hotelbooking-system/internal/model"
)

// CreateMember создаёт нового участника.
func (r *PostgresRepository) CreateMember(ctx context.Context, email, phone string, passwordHash []byte) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO members (email, phone, password_hash) VALUES ($1, $2, $3) RETURNING id`,
		email, phone, passwordHash,
	).Scan(&id)
	if err != nil {
		if hasPgCode(err, pgerrcode.UniqueViolation) {
			return 0, fmt.Errorf("%w: %s", ErrMemberExists, email)
		}
		return 0, fmt.Errorf("create member: %w", err)
	}
	return id, nil
}

// GetMemberByEmail возвращает участника по e-mail.
func (r *PostgresRepository) GetMemberByEmail(ctx context.Context, email string) (*model.Member, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, email, phone, password_hash, is_admin, created_at FROM members WHERE email = $1`,
		email,
	)

	var m model.Member
	err := row.Scan(&m.ID, &m.Email, &m.Phone, &m.PasswordHash, &m.Admin, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("get member: %w", err)
	}

	return &m, nil
}
