package account

import (
	"context"
	"database/sql"
	"errors"

	"connect-service/internal/auth"
	"connect-service/internal/db"

	"github.com/google/uuid"
)

var (
	ErrInvalidUsername    = errors.New("account: invalid username")
	ErrUsernameTaken      = errors.New("account: username taken")
	ErrInvalidCredentials = errors.New("account: invalid credentials")
	ErrNotFound           = errors.New("account: not found")
)

// Service is the local account collaborator: it owns the users and
// credentials tables and knows nothing about external identities.
type Service struct {
	db *db.DB
}

func NewService(db *db.DB) *Service {
	return &Service{db: db}
}

// Register creates an account with a password credential, for the local
// signup endpoint. Account and credential commit in one transaction.
// Accounts created through identity linking have no credential until one
// is set.
func (s *Service) Register(
	ctx context.Context,
	username string,
	password string,
) (string, error) {

	if !ValidUsername(username) {
		return "", ErrInvalidUsername
	}

	hash, version, err := HashPassword(password)
	if err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var userID uuid.UUID
	err = tx.QueryRowContext(ctx, `
		INSERT INTO users (username)
		VALUES ($1)
		RETURNING id
	`, username).Scan(&userID)

	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return "", ErrUsernameTaken
		}
		return "", err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO credentials (user_id, password_hash, hash_version)
		VALUES ($1, $2, $3)
	`, userID, hash, version)

	if err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}

	return userID.String(), nil
}

// dummyPasswordHash is a well-formed bcrypt hash of no real credential,
// compared against on the unknown-user path so its cost matches a real
// verification.
const dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Authenticate verifies username/password against stored credentials.
// Failures never reveal whether the account exists — including by timing:
// the unknown-user path burns a bcrypt compare too.
func (s *Service) Authenticate(
	ctx context.Context,
	username string,
	password string,
) (string, error) {

	var (
		userID       uuid.UUID
		passwordHash string
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT u.id, c.password_hash
		FROM users u
		JOIN credentials c ON c.user_id = u.id
		WHERE LOWER(u.username) = LOWER($1)
	`, username).Scan(&userID, &passwordHash)

	if err != nil {
		_ = VerifyPassword(dummyPasswordHash, password)
		return "", ErrInvalidCredentials
	}

	if err := VerifyPassword(passwordHash, password); err != nil {
		return "", ErrInvalidCredentials
	}

	return userID.String(), nil
}

// DisplayName returns the username for the given account id.
func (s *Service) DisplayName(ctx context.Context, userID string) (string, error) {
	var username string
	err := s.db.QueryRowContext(ctx, `
		SELECT username FROM users WHERE id = $1
	`, userID).Scan(&username)

	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return username, nil
}

// UpdateAttributes copies the given external display attributes onto the
// local profile. Unknown attribute keys are ignored.
func (s *Service) UpdateAttributes(
	ctx context.Context,
	userID string,
	attrs map[string]string,
) error {

	columns := map[string]string{
		auth.AttrFullName: "real_name",
		auth.AttrNickname: "nickname",
		auth.AttrEmail:    "email",
	}

	for key, column := range columns {
		value, ok := attrs[key]
		if !ok {
			continue
		}
		_, err := s.db.ExecContext(ctx, `
			UPDATE users SET `+column+` = $1, updated_at = NOW() WHERE id = $2
		`, value, userID)
		if err != nil {
			return err
		}
	}

	return nil
}
