package link

import (
	"context"
	"database/sql"

	"connect-service/internal/db"

	"github.com/google/uuid"
)

// DBStore is the canonical Store over the links table.
type DBStore struct {
	db *db.DB
}

func NewDBStore(db *db.DB) *DBStore {
	return &DBStore{db: db}
}

func (s *DBStore) Find(ctx context.Context, externalID string) (string, error) {

	var accountID uuid.UUID
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id
		FROM links
		WHERE external_id = $1
	`, externalID).Scan(&accountID)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	return accountID.String(), nil
}

func (s *DBStore) FindByAccount(ctx context.Context, accountID string) ([]string, error) {

	rows, err := s.db.QueryContext(ctx, `
		SELECT external_id
		FROM links
		WHERE user_id = $1
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var externalIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		externalIDs = append(externalIDs, id)
	}

	return externalIDs, rows.Err()
}

func (s *DBStore) InsertWithAccount(ctx context.Context, username, externalID string) (string, error) {

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		if db.IsReadOnly(err) {
			return "", ErrReadOnly
		}
		return "", err
	}
	defer tx.Rollback()

	var accountID uuid.UUID
	err = tx.QueryRowContext(ctx, `
		INSERT INTO users (username)
		VALUES ($1)
		RETURNING id
	`, username).Scan(&accountID)

	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return "", ErrInvalidUsername
		}
		if db.IsReadOnly(err) {
			return "", ErrReadOnly
		}
		return "", err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO links (external_id, user_id)
		VALUES ($1, $2)
	`, externalID, accountID)

	if err != nil {
		// A concurrent writer winning the unique constraint rolls the
		// account insert back with it; the username is not burned.
		if db.IsUniqueViolation(err, "") {
			return "", ErrAlreadyLinked
		}
		if db.IsReadOnly(err) {
			return "", ErrReadOnly
		}
		return "", err
	}

	if err := tx.Commit(); err != nil {
		if db.IsReadOnly(err) {
			return "", ErrReadOnly
		}
		return "", err
	}

	return accountID.String(), nil
}

func (s *DBStore) Insert(ctx context.Context, externalID, accountID string) error {

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO links (external_id, user_id)
		VALUES ($1, $2)
	`, externalID, accountID)

	if err != nil {
		// The two unique constraints serialize concurrent linking; the
		// losing writer surfaces as a conflict, never an overwrite.
		if db.IsUniqueViolation(err, "") {
			return ErrAlreadyLinked
		}
		if db.IsReadOnly(err) {
			return ErrReadOnly
		}
		return err
	}

	return nil
}

func (s *DBStore) Delete(ctx context.Context, externalID string) error {

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM links
		WHERE external_id = $1
	`, externalID)

	if err != nil && db.IsReadOnly(err) {
		return ErrReadOnly
	}
	return err
}
