package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/GregMSThompson/finance-ledger/internal/database"
	"github.com/GregMSThompson/finance-ledger/internal/errs"
	"github.com/GregMSThompson/finance-ledger/internal/models"
)

const uniqueViolation = "23505"

type profileStore struct {
	db *database.DB
}

func NewProfileStore(db *database.DB) *profileStore {
	return &profileStore{db: db}
}

func (s *profileStore) Get(ctx context.Context, uid string) (models.Profile, error) {
	var p models.Profile
	err := s.db.WithUserScope(ctx, uid, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx,
			`SELECT id, username, full_name, avatar_url, updated_at FROM profiles WHERE id = $1`, uid,
		).Scan(&p.ID, &p.Username, &p.FullName, &p.AvatarURL, &p.UpdatedAt)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Profile{}, errs.NewNotFoundError("profile not found")
	}
	if err != nil {
		return models.Profile{}, errs.NewDatabaseError("read", "failed to get profile", err)
	}
	return p, nil
}

func (s *profileStore) Upsert(ctx context.Context, p models.Profile) (models.Profile, error) {
	var out models.Profile
	err := s.db.WithUserScope(ctx, p.ID, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `
			INSERT INTO profiles (id, username, full_name, avatar_url, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE
			SET username = EXCLUDED.username, full_name = EXCLUDED.full_name,
				avatar_url = EXCLUDED.avatar_url, updated_at = EXCLUDED.updated_at
			RETURNING id, username, full_name, avatar_url, updated_at`,
			p.ID, p.Username, p.FullName, p.AvatarURL, p.UpdatedAt,
		).Scan(&out.ID, &out.Username, &out.FullName, &out.AvatarURL, &out.UpdatedAt)
	})
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return models.Profile{}, errs.NewConflictError("username already taken")
	}
	if err != nil {
		return models.Profile{}, errs.NewDatabaseError("update", "failed to save profile", err)
	}
	return out, nil
}
