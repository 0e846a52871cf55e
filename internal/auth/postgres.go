package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"inkwell.org/internal/ids"
)

// PGStore implements UserStore and SessionStore over PostgreSQL.
type PGStore struct {
	db *sql.DB
}

var (
	_ UserStore    = (*PGStore)(nil)
	_ SessionStore = (*PGStore)(nil)
)

// NewPGStore wraps an open database handle.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

// OpenPG opens a pooled connection with the pgx driver.
func OpenPG(dsn string) (*PGStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &PGStore{db: db}, nil
}

func (s *PGStore) Close() error { return s.db.Close() }

func (s *PGStore) DB() *sql.DB { return s.db }

const userColumns = `id, username, email, full_name, password_hash, role, status, is_verified,
	coalesce(refresh_token_hash, ''), created_at, updated_at, last_login`

func (s *PGStore) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, username, email, full_name, password_hash, role, status, is_verified)
		 values($1,$2,$3,$4,$5,$6,$7,$8)`,
		u.ID, u.Username, u.Email, u.FullName, u.PasswordHash, string(u.Role), string(u.Status), u.IsVerified,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: username or email is taken", ErrConflict)
		}
		return err
	}
	return nil
}

func (s *PGStore) FindByID(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id=$1`, id)
	return scanUser(row)
}

func (s *PGStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where email=$1`, email)
	return scanUser(row)
}

func (s *PGStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where username=$1`, username)
	return scanUser(row)
}

func (s *PGStore) IsUsernameTaken(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`select exists(select 1 from users where username=$1)`, username).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (s *PGStore) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`update users set password_hash=$2, updated_at=now() where id=$1`,
		userID, passwordHash)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *PGStore) TouchLastLogin(ctx context.Context, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`update users set last_login=now() where id=$1`, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Session store ------------------------------------------------------------

func (s *PGStore) Save(ctx context.Context, userID, tokenHash string) error {
	res, err := s.db.ExecContext(ctx,
		`update users set refresh_token_hash=$2, updated_at=now() where id=$1`,
		userID, tokenHash)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *PGStore) Matches(ctx context.Context, userID, tokenHash string) (bool, error) {
	var stored sql.NullString
	err := s.db.QueryRowContext(ctx,
		`select refresh_token_hash from users where id=$1`, userID).Scan(&stored)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	if !stored.Valid || stored.String == "" {
		return false, nil
	}
	return secureCompareHash(stored.String, tokenHash), nil
}

// Replace is a single-row compare-and-swap: the update applies only while
// the old hash is still current, so concurrent rotations on the same stale
// token cannot both succeed.
func (s *PGStore) Replace(ctx context.Context, userID, oldHash, newHash string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`update users set refresh_token_hash=$3, updated_at=now()
		 where id=$1 and refresh_token_hash=$2`,
		userID, oldHash, newHash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *PGStore) Clear(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`update users set refresh_token_hash=null, updated_at=now() where id=$1`, userID)
	return err
}

// helpers ------------------------------------------------------------------

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u         User
		role      string
		status    string
		lastLogin sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.FullName, &u.PasswordHash,
		&role, &status, &u.IsVerified, &u.RefreshTokenHash,
		&u.CreatedAt, &u.UpdatedAt, &lastLogin,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.Role = Role(role)
	u.Status = Status(status)
	if lastLogin.Valid {
		u.LastLogin = lastLogin.Time
	}
	return &u, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
