package auth

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUserNotFound = errors.New("user not found")

// UserStore persists accounts and their password hashes.
type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash string) (string, error)
	GetCredentials(ctx context.Context, email string) (userID, passwordHash string, err error)
}

type PostgresUserStore struct {
	pool *pgxpool.Pool
}

func NewPostgresUserStore(pool *pgxpool.Pool) *PostgresUserStore {
	return &PostgresUserStore{pool: pool}
}

func (s *PostgresUserStore) CreateUser(ctx context.Context, email, passwordHash string) (string, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)
	var userID string
	if err := tx.QueryRow(ctx, "insert into users (email) values ($1) returning id", email).Scan(&userID); err != nil {
		return "", err
	}
	if _, err := tx.Exec(ctx, "insert into user_credentials (user_id, password_hash) values ($1, $2)", userID, passwordHash); err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return userID, nil
}

func (s *PostgresUserStore) GetCredentials(ctx context.Context, email string) (string, string, error) {
	var userID, hash string
	err := s.pool.QueryRow(ctx, "select u.id, c.password_hash from users u join user_credentials c on c.user_id = u.id where u.email = $1", email).Scan(&userID, &hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", ErrUserNotFound
	}
	if err != nil {
		return "", "", err
	}
	return userID, hash, nil
}

type memoryUser struct {
	id           string
	passwordHash string
}

// MemoryUserStore backs the database-less mode and tests.
type MemoryUserStore struct {
	mu    sync.Mutex
	users map[string]memoryUser
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]memoryUser)}
}

func (s *MemoryUserStore) CreateUser(ctx context.Context, email, passwordHash string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[email]; ok {
		return "", errors.New("email already registered")
	}
	id := uuid.NewString()
	s.users[email] = memoryUser{id: id, passwordHash: passwordHash}
	return id, nil
}

func (s *MemoryUserStore) GetCredentials(ctx context.Context, email string) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return "", "", ErrUserNotFound
	}
	return u.id, u.passwordHash, nil
}
