package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-login-relay/internal/domain"
	"telegram-login-relay/internal/domain/model"
	"telegram-login-relay/internal/domain/ports/repository"
)

var _ repository.CredentialRepository = (*PostgresCredentialRepo)(nil)

const pgUniqueViolation = "23505"

// PostgresCredentialRepo stores login tokens in auth_tokens.
type PostgresCredentialRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresCredentialRepo(pool *pgxpool.Pool) *PostgresCredentialRepo {
	return &PostgresCredentialRepo{pool: pool}
}

const credentialColumns = `id::text, telegram_id, token, issued_at, expires_at, used, used_at`

func scanCredential(row pgx.Row) (*model.Credential, error) {
	var c model.Credential
	if err := row.Scan(&c.ID, &c.TelegramID, &c.Token, &c.IssuedAt, &c.ExpiresAt, &c.Used, &c.UsedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts c. An empty c.ID is filled from the database default.
func (r *PostgresCredentialRepo) Create(ctx context.Context, tx repository.Tx, c *model.Credential) error {
	const q = `
INSERT INTO auth_tokens (id, telegram_id, token, issued_at, expires_at, used)
VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, FALSE)
RETURNING id::text;`
	row, err := pickRow(ctx, r.pool, tx, q, c.ID, c.TelegramID, c.Token, c.IssuedAt, c.ExpiresAt)
	if err != nil {
		return err
	}
	if err := row.Scan(&c.ID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("create credential: %w", domain.ErrAlreadyExists)
		}
		return fmt.Errorf("create credential: %w", err)
	}
	return nil
}

// Consume flips used in one conditional UPDATE so concurrent callers cannot
// both succeed. A miss is classified by reading the row back.
func (r *PostgresCredentialRepo) Consume(ctx context.Context, tx repository.Tx, token string, now time.Time) (*model.Credential, error) {
	if token == "" {
		return nil, domain.ErrTokenNotFound
	}
	const upd = `
UPDATE auth_tokens
   SET used = TRUE, used_at = $2
 WHERE token = $1 AND used = FALSE AND expires_at > $2
RETURNING ` + credentialColumns + `;`
	row, err := pickRow(ctx, r.pool, tx, upd, token, now)
	if err != nil {
		return nil, err
	}
	c, err := scanCredential(row)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("consume credential: %w", err)
	}

	const sel = `SELECT ` + credentialColumns + ` FROM auth_tokens WHERE token = $1;`
	row, err = pickRow(ctx, r.pool, tx, sel, token)
	if err != nil {
		return nil, err
	}
	c, err = scanCredential(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, fmt.Errorf("classify credential: %w", err)
	}
	if rej := c.RejectionErr(now); rej != nil {
		return nil, rej
	}
	// Valid per the row but the update missed: the expiry boundary was crossed between statements.
	return nil, domain.ErrTokenExpired
}

func (r *PostgresCredentialRepo) CountByState(ctx context.Context, tx repository.Tx, now time.Time) (repository.CredentialCounts, error) {
	const q = `
SELECT COUNT(*) FILTER (WHERE used = FALSE AND expires_at > $1),
       COUNT(*) FILTER (WHERE used = TRUE),
       COUNT(*) FILTER (WHERE used = FALSE AND expires_at <= $1)
  FROM auth_tokens;`
	var out repository.CredentialCounts
	row, err := pickRow(ctx, r.pool, tx, q, now)
	if err != nil {
		return out, err
	}
	if err := row.Scan(&out.Valid, &out.Used, &out.Expired); err != nil {
		return out, fmt.Errorf("count credentials: %w", err)
	}
	return out, nil
}
