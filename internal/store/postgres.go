package store

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/cyphera/preauth-api/internal/types"
)

// PostgresStore persists records in Postgres. The derived slot is the primary
// key, so the existence-uniqueness invariants are enforced by the same
// addressing scheme the in-memory store uses. UpdatePreAuthorization takes a
// row lock for the duration of the mutation, serializing concurrent debits
// against one record while leaving distinct records independent.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresPool creates a connection pool with the service's standard
// sizing.
func NewPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "unable to parse database connection string")
	}

	poolConfig.MaxConns = 20
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create connection pool")
	}
	return pool, nil
}

// NewPostgresStore wraps an existing pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the two record tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS smart_delegates (
			slot BYTEA PRIMARY KEY,
			token_account BYTEA NOT NULL,
			delegate BYTEA NOT NULL,
			rent_deposit BIGINT NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS pre_authorizations (
			slot BYTEA PRIMARY KEY,
			token_account BYTEA NOT NULL,
			debit_authority BYTEA NOT NULL,
			paused BOOLEAN NOT NULL DEFAULT FALSE,
			activation_unix_timestamp BIGINT NOT NULL,
			variant JSONB NOT NULL,
			rent_deposit BIGINT NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_pre_authorizations_token_account
			ON pre_authorizations (token_account);
		CREATE INDEX IF NOT EXISTS idx_pre_authorizations_debit_authority
			ON pre_authorizations (debit_authority);
	`)
	return errors.Wrap(err, "failed to ensure schema")
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// CreateSmartDelegate inserts the record at its derived slot.
func (s *PostgresStore) CreateSmartDelegate(ctx context.Context, delegate *types.SmartDelegate) error {
	slot := SmartDelegateAddress(delegate.TokenAccount)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO smart_delegates (slot, token_account, delegate, rent_deposit)
		VALUES ($1, $2, $3, $4)
	`, slot.Bytes(), delegate.TokenAccount.Bytes(), delegate.Delegate.Bytes(), int64(delegate.RentDeposit))
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return errors.Wrap(err, "failed to insert smart delegate")
}

// GetSmartDelegate returns the smart delegate for the token account.
func (s *PostgresStore) GetSmartDelegate(ctx context.Context, tokenAccount common.Address) (*types.SmartDelegate, error) {
	slot := SmartDelegateAddress(tokenAccount)
	var tokenAccountBytes, delegateBytes []byte
	var rentDeposit int64
	err := s.pool.QueryRow(ctx, `
		SELECT token_account, delegate, rent_deposit FROM smart_delegates WHERE slot = $1
	`, slot.Bytes()).Scan(&tokenAccountBytes, &delegateBytes, &rentDeposit)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch smart delegate")
	}

	return &types.SmartDelegate{
		TokenAccount: common.BytesToAddress(tokenAccountBytes),
		Delegate:     common.BytesToAddress(delegateBytes),
		RentDeposit:  uint64(rentDeposit),
	}, nil
}

// DeleteSmartDelegate removes the record.
func (s *PostgresStore) DeleteSmartDelegate(ctx context.Context, tokenAccount common.Address) error {
	slot := SmartDelegateAddress(tokenAccount)
	tag, err := s.pool.Exec(ctx, `DELETE FROM smart_delegates WHERE slot = $1`, slot.Bytes())
	if err != nil {
		return errors.Wrap(err, "failed to delete smart delegate")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreatePreAuthorization inserts the record at its derived slot.
func (s *PostgresStore) CreatePreAuthorization(ctx context.Context, preAuth *types.PreAuthorization) error {
	variantJSON, err := types.MarshalVariant(preAuth.Variant)
	if err != nil {
		return err
	}

	slot := PreAuthorizationAddress(preAuth.TokenAccount, preAuth.DebitAuthority)
	_, err = s.pool.Exec(ctx, `
		INSERT INTO pre_authorizations
			(slot, token_account, debit_authority, paused, activation_unix_timestamp, variant, rent_deposit)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, slot.Bytes(), preAuth.TokenAccount.Bytes(), preAuth.DebitAuthority.Bytes(),
		preAuth.Paused, preAuth.ActivationUnixTimestamp, variantJSON, int64(preAuth.RentDeposit))
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return errors.Wrap(err, "failed to insert pre-authorization")
}

func scanPreAuthorization(row pgx.Row) (*types.PreAuthorization, error) {
	var tokenAccountBytes, debitAuthorityBytes, variantJSON []byte
	var paused bool
	var activation, rentDeposit int64
	if err := row.Scan(&tokenAccountBytes, &debitAuthorityBytes, &paused, &activation, &variantJSON, &rentDeposit); err != nil {
		return nil, err
	}

	variant, err := types.UnmarshalVariant(variantJSON)
	if err != nil {
		return nil, err
	}

	return &types.PreAuthorization{
		TokenAccount:            common.BytesToAddress(tokenAccountBytes),
		DebitAuthority:          common.BytesToAddress(debitAuthorityBytes),
		Paused:                  paused,
		ActivationUnixTimestamp: activation,
		Variant:                 variant,
		RentDeposit:             uint64(rentDeposit),
	}, nil
}

const preAuthColumns = `token_account, debit_authority, paused, activation_unix_timestamp, variant, rent_deposit`

// GetPreAuthorization returns the pre-authorization for the key pair.
func (s *PostgresStore) GetPreAuthorization(ctx context.Context, tokenAccount, debitAuthority common.Address) (*types.PreAuthorization, error) {
	slot := PreAuthorizationAddress(tokenAccount, debitAuthority)
	preAuth, err := scanPreAuthorization(s.pool.QueryRow(ctx,
		`SELECT `+preAuthColumns+` FROM pre_authorizations WHERE slot = $1`, slot.Bytes()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch pre-authorization")
	}
	return preAuth, nil
}

func (s *PostgresStore) listPreAuthorizations(ctx context.Context, query string, arg []byte) ([]types.PreAuthorization, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list pre-authorizations")
	}
	defer rows.Close()

	var result []types.PreAuthorization
	for rows.Next() {
		preAuth, err := scanPreAuthorization(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan pre-authorization")
		}
		result = append(result, *preAuth)
	}
	return result, errors.Wrap(rows.Err(), "failed to iterate pre-authorizations")
}

// ListPreAuthorizationsByTokenAccount returns every pre-authorization funded
// by the token account.
func (s *PostgresStore) ListPreAuthorizationsByTokenAccount(ctx context.Context, tokenAccount common.Address) ([]types.PreAuthorization, error) {
	return s.listPreAuthorizations(ctx,
		`SELECT `+preAuthColumns+` FROM pre_authorizations WHERE token_account = $1`, tokenAccount.Bytes())
}

// ListPreAuthorizationsByDebitAuthority returns every pre-authorization the
// debit authority may draw on.
func (s *PostgresStore) ListPreAuthorizationsByDebitAuthority(ctx context.Context, debitAuthority common.Address) ([]types.PreAuthorization, error) {
	return s.listPreAuthorizations(ctx,
		`SELECT `+preAuthColumns+` FROM pre_authorizations WHERE debit_authority = $1`, debitAuthority.Bytes())
}

// DeletePreAuthorization removes the record.
func (s *PostgresStore) DeletePreAuthorization(ctx context.Context, tokenAccount, debitAuthority common.Address) error {
	slot := PreAuthorizationAddress(tokenAccount, debitAuthority)
	tag, err := s.pool.Exec(ctx, `DELETE FROM pre_authorizations WHERE slot = $1`, slot.Bytes())
	if err != nil {
		return errors.Wrap(err, "failed to delete pre-authorization")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePreAuthorization runs fn against a row-locked copy of the record
// inside a transaction. The row lock serializes concurrent mutations of the
// same record; a failure in fn (including the ledger transfer it performs)
// rolls the whole transaction back.
func (s *PostgresStore) UpdatePreAuthorization(ctx context.Context, tokenAccount, debitAuthority common.Address, fn func(*types.PreAuthorization) error) error {
	slot := PreAuthorizationAddress(tokenAccount, debitAuthority)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	preAuth, err := scanPreAuthorization(tx.QueryRow(ctx,
		`SELECT `+preAuthColumns+` FROM pre_authorizations WHERE slot = $1 FOR UPDATE`, slot.Bytes()))
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return errors.Wrap(err, "failed to lock pre-authorization")
	}

	if err := fn(preAuth); err != nil {
		return err
	}

	variantJSON, err := types.MarshalVariant(preAuth.Variant)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE pre_authorizations SET paused = $2, variant = $3 WHERE slot = $1
	`, slot.Bytes(), preAuth.Paused, variantJSON)
	if err != nil {
		return errors.Wrap(err, "failed to update pre-authorization")
	}

	return errors.Wrap(tx.Commit(ctx), "failed to commit pre-authorization update")
}
