package users

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/conecta2/conecta2/internal/platform/db"
)

//go:embed schema.sql
var schemaSQL string

const (
	insertUserSQL = `INSERT INTO users (name, age, interests) VALUES ($1, $2, $3)
RETURNING id, name, age, interests`
	upsertUserSQL = `INSERT INTO users (id, name, age, interests) VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, age = EXCLUDED.age, interests = EXCLUDED.interests, updated_at = NOW()
RETURNING id, name, age, interests`
	// Explicit ids bypass the sequence; keep it ahead of them.
	syncSequenceSQL = `SELECT setval(pg_get_serial_sequence('users', 'id'), GREATEST((SELECT COALESCE(MAX(id), 0) FROM users), 1))`
)

// Repository persists users in PostgreSQL. It is not part of the fetch
// pipeline; the sync job mirrors remote snapshots into it.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the users table when missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("users: ensure schema: %w", err)
	}
	return nil
}

// Save inserts u with a generated id when u.ID is zero and upserts by id otherwise.
func (r *Repository) Save(ctx context.Context, u User) (User, error) {
	if err := u.Validate(); err != nil {
		return User{}, err
	}
	var saved User
	if u.ID == 0 {
		err := r.pool.QueryRow(ctx, insertUserSQL, u.Name, u.Age, u.Interests).
			Scan(&saved.ID, &saved.Name, &saved.Age, &saved.Interests)
		if err != nil {
			return User{}, mapPgError(err)
		}
		return saved, nil
	}
	err := db.WithTx(ctx, r.pool, db.MirrorTxOptions, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, upsertUserSQL, u.ID, u.Name, u.Age, u.Interests).
			Scan(&saved.ID, &saved.Name, &saved.Age, &saved.Interests); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, syncSequenceSQL)
		return err
	})
	if err != nil {
		return User{}, mapPgError(err)
	}
	return saved, nil
}

// LoadAll returns every stored user ordered by id.
func (r *Repository) LoadAll(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, age, interests FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := make([]User, 0)
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Age, &u.Interests); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// ReplaceAll makes the table match snapshot: every user is upserted and rows
// whose id is absent from snapshot are deleted, in one transaction.
func (r *Repository) ReplaceAll(ctx context.Context, snapshot []User) error {
	ids := make([]int64, 0, len(snapshot))
	for i, u := range snapshot {
		if err := u.Validate(); err != nil {
			return fmt.Errorf("user %d: %w", i, err)
		}
		if u.ID <= 0 {
			return fmt.Errorf("user %d: %w: mirrored users need a server id", i, ErrValidation)
		}
		ids = append(ids, u.ID)
	}
	err := db.WithTx(ctx, r.pool, db.MirrorTxOptions, func(tx pgx.Tx) error {
		if len(snapshot) > 0 {
			batch := &pgx.Batch{}
			for _, u := range snapshot {
				batch.Queue(upsertUserSQL, u.ID, u.Name, u.Age, u.Interests)
			}
			results := tx.SendBatch(ctx, batch)
			for range snapshot {
				if _, err := results.Exec(); err != nil {
					_ = results.Close()
					return err
				}
			}
			if err := results.Close(); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(ctx, `DELETE FROM users WHERE NOT (id = ANY($1))`, ids); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, syncSequenceSQL)
		return err
	})
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
		case "23514":
			return fmt.Errorf("%w: %s", ErrValidation, pgErr.ConstraintName)
		}
	}
	return err
}
