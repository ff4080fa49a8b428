package link

import (
	"context"
	"errors"
)

var (
	// ErrInvalidUsername means the chosen username failed the naming policy
	// (empty, reserved, malformed or already taken). Recoverable: re-prompt.
	ErrInvalidUsername = errors.New("link: invalid username")

	// ErrInvalidCredential means local authentication failed before any
	// mapping was touched. Recoverable: re-prompt.
	ErrInvalidCredential = errors.New("link: invalid credentials")

	// ErrAlreadyLinked means either side of the requested mapping already
	// holds an active link.
	ErrAlreadyLinked = errors.New("link: already linked")

	// ErrReadOnly means the backing store rejected the write. Fatal for
	// the current request.
	ErrReadOnly = errors.New("link: store is read-only")
)

// Store is the persisted external-id to local-account mapping table.
// At most one active mapping exists per external id and per account;
// implementations enforce both with uniqueness constraints so that a
// losing concurrent writer fails instead of overwriting.
type Store interface {
	// Find returns the account currently mapped to externalID, or "" when
	// no mapping exists.
	Find(ctx context.Context, externalID string) (string, error)

	// FindByAccount returns the external ids linked to the given account.
	FindByAccount(ctx context.Context, accountID string) ([]string, error)

	// Insert commits one mapping row. Returns ErrAlreadyLinked when either
	// uniqueness constraint is violated, ErrReadOnly when the store rejects
	// writes.
	Insert(ctx context.Context, externalID, accountID string) error

	// InsertWithAccount creates a new local account under username and its
	// mapping to externalID in one transaction: neither row survives the
	// other failing, so a losing concurrent writer leaves no trace. Returns
	// the new account id, ErrInvalidUsername when the username is taken,
	// ErrAlreadyLinked when the external id is.
	InsertWithAccount(ctx context.Context, username, externalID string) (string, error)

	// Delete removes the active mapping for externalID. Deleting a mapping
	// that does not exist is not an error; revocation notifications may
	// arrive more than once.
	Delete(ctx context.Context, externalID string) error
}

// Accounts is the local account collaborator as seen by the linker.
// Account creation for new external identities goes through the store's
// InsertWithAccount so the account and its mapping commit together.
type Accounts interface {
	Authenticate(ctx context.Context, username, password string) (string, error)
	DisplayName(ctx context.Context, accountID string) (string, error)
	UpdateAttributes(ctx context.Context, accountID string, attrs map[string]string) error
}
