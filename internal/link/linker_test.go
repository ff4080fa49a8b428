package link_test

import (
	"context"
	"fmt"
	"testing"

	"connect-service/internal/account"
	"connect-service/internal/auth"
	"connect-service/internal/link"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mappings map[string]string // external id -> account id
	accounts *memAccounts
	readOnly bool

	// insertErr simulates a concurrent writer winning the unique
	// constraint between the linker's pre-check and the combined insert.
	insertErr error
}

func newMemStore(accounts *memAccounts) *memStore {
	return &memStore{
		mappings: map[string]string{},
		accounts: accounts,
	}
}

func (m *memStore) Find(_ context.Context, externalID string) (string, error) {
	return m.mappings[externalID], nil
}

func (m *memStore) FindByAccount(_ context.Context, accountID string) ([]string, error) {
	var out []string
	for ext, acct := range m.mappings {
		if acct == accountID {
			out = append(out, ext)
		}
	}
	return out, nil
}

func (m *memStore) Insert(_ context.Context, externalID, accountID string) error {
	if m.readOnly {
		return link.ErrReadOnly
	}
	if _, ok := m.mappings[externalID]; ok {
		return link.ErrAlreadyLinked
	}
	for _, acct := range m.mappings {
		if acct == accountID {
			return link.ErrAlreadyLinked
		}
	}
	m.mappings[externalID] = accountID
	return nil
}

func (m *memStore) InsertWithAccount(ctx context.Context, username, externalID string) (string, error) {
	if m.readOnly {
		return "", link.ErrReadOnly
	}
	if m.insertErr != nil {
		return "", m.insertErr
	}
	// All-or-nothing like the transactional store: the mapping conflict is
	// detected before the account row exists.
	if _, ok := m.mappings[externalID]; ok {
		return "", link.ErrAlreadyLinked
	}
	id, err := m.accounts.Create(ctx, username)
	if err != nil {
		return "", link.ErrInvalidUsername
	}
	m.mappings[externalID] = id
	return id, nil
}

func (m *memStore) Delete(_ context.Context, externalID string) error {
	if m.readOnly {
		return link.ErrReadOnly
	}
	delete(m.mappings, externalID)
	return nil
}

type memAccounts struct {
	byUsername map[string]string // username -> account id
	passwords  map[string]string // username -> password
	updated    map[string]map[string]string
	next       int
}

func newMemAccounts() *memAccounts {
	return &memAccounts{
		byUsername: map[string]string{},
		passwords:  map[string]string{},
		updated:    map[string]map[string]string{},
	}
}

func (m *memAccounts) Create(_ context.Context, username string) (string, error) {
	if !account.ValidUsername(username) {
		return "", account.ErrInvalidUsername
	}
	if _, ok := m.byUsername[username]; ok {
		return "", account.ErrUsernameTaken
	}
	m.next++
	id := fmt.Sprintf("acct-%d", m.next)
	m.byUsername[username] = id
	return id, nil
}

func (m *memAccounts) Authenticate(_ context.Context, username, password string) (string, error) {
	want, ok := m.passwords[username]
	if !ok || want != password {
		return "", account.ErrInvalidCredentials
	}
	return m.byUsername[username], nil
}

func (m *memAccounts) DisplayName(_ context.Context, accountID string) (string, error) {
	for username, id := range m.byUsername {
		if id == accountID {
			return username, nil
		}
	}
	return "", account.ErrNotFound
}

func (m *memAccounts) UpdateAttributes(_ context.Context, accountID string, attrs map[string]string) error {
	m.updated[accountID] = attrs
	return nil
}

func (m *memAccounts) seed(username, password string) string {
	m.next++
	id := fmt.Sprintf("acct-%d", m.next)
	m.byUsername[username] = id
	m.passwords[username] = password
	return id
}

func fixture() (*link.Linker, *memStore, *memAccounts) {
	accounts := newMemAccounts()
	store := newMemStore(accounts)
	return link.NewLinker(store, accounts), store, accounts
}

func TestCreateAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("creates account and mapping", func(t *testing.T) {
		linker, store, accounts := fixture()

		id, err := linker.CreateAccount(ctx, link.CreateRequest{
			Username:   "alice",
			ExternalID: "fb-42",
			Attributes: map[string]string{auth.AttrFullName: "Alice Example"},
			Update:     []string{auth.AttrFullName},
		})
		require.NoError(t, err)

		assert.Equal(t, id, store.mappings["fb-42"])
		assert.Equal(t, map[string]string{auth.AttrFullName: "Alice Example"},
			accounts.updated[id])
	})

	t.Run("rejects bad username", func(t *testing.T) {
		linker, store, _ := fixture()

		_, err := linker.CreateAccount(ctx, link.CreateRequest{
			Username:   "",
			ExternalID: "fb-42",
		})
		assert.ErrorIs(t, err, link.ErrInvalidUsername)
		assert.Empty(t, store.mappings)
	})

	t.Run("rejects taken username", func(t *testing.T) {
		linker, _, accounts := fixture()
		accounts.seed("alice", "secret123")

		_, err := linker.CreateAccount(ctx, link.CreateRequest{
			Username:   "alice",
			ExternalID: "fb-42",
		})
		assert.ErrorIs(t, err, link.ErrInvalidUsername)
	})

	t.Run("rejects mapped external id", func(t *testing.T) {
		linker, store, _ := fixture()
		store.mappings["fb-42"] = "acct-9"

		_, err := linker.CreateAccount(ctx, link.CreateRequest{
			Username:   "alice",
			ExternalID: "fb-42",
		})
		assert.ErrorIs(t, err, link.ErrAlreadyLinked)
	})

	t.Run("replayed submission succeeds quietly", func(t *testing.T) {
		linker, store, _ := fixture()

		// First submission already created the account and logged in.
		id, err := linker.CreateAccount(ctx, link.CreateRequest{
			Username:   "alice",
			ExternalID: "fb-42",
		})
		require.NoError(t, err)

		// Second submission arrives with the fresh session attached.
		again, err := linker.CreateAccount(ctx, link.CreateRequest{
			Username:         "alice",
			ExternalID:       "fb-42",
			SessionAccountID: id,
		})
		require.NoError(t, err)
		assert.Equal(t, id, again)
		assert.Len(t, store.mappings, 1)
	})

	t.Run("replay under a foreign session refuses", func(t *testing.T) {
		linker, _, _ := fixture()

		_, err := linker.CreateAccount(ctx, link.CreateRequest{
			Username:         "alice",
			ExternalID:       "fb-42",
			SessionAccountID: "acct-other",
		})
		assert.ErrorIs(t, err, link.ErrAlreadyLinked)
	})

	t.Run("losing a concurrent race leaves no account behind", func(t *testing.T) {
		linker, store, accounts := fixture()
		store.insertErr = link.ErrAlreadyLinked

		_, err := linker.CreateAccount(ctx, link.CreateRequest{
			Username:   "alice",
			ExternalID: "fb-42",
		})
		assert.ErrorIs(t, err, link.ErrAlreadyLinked)
		assert.Empty(t, accounts.byUsername)
		assert.Empty(t, store.mappings)
	})

	t.Run("read-only store", func(t *testing.T) {
		linker, store, _ := fixture()
		store.readOnly = true

		_, err := linker.CreateAccount(ctx, link.CreateRequest{
			Username:   "alice",
			ExternalID: "fb-42",
		})
		assert.ErrorIs(t, err, link.ErrReadOnly)
	})
}

func TestAttachExisting(t *testing.T) {
	ctx := context.Background()

	t.Run("attaches after authentication", func(t *testing.T) {
		linker, store, accounts := fixture()
		id := accounts.seed("bob", "secret123")

		got, err := linker.AttachExisting(ctx, link.AttachRequest{
			Username:   "bob",
			Password:   "secret123",
			ExternalID: "fb-7",
		})
		require.NoError(t, err)
		assert.Equal(t, id, got)
		assert.Equal(t, id, store.mappings["fb-7"])
	})

	t.Run("bad credentials never touch the store", func(t *testing.T) {
		linker, store, accounts := fixture()
		accounts.seed("bob", "secret123")

		_, err := linker.AttachExisting(ctx, link.AttachRequest{
			Username:   "bob",
			Password:   "wrong",
			ExternalID: "fb-7",
		})
		assert.ErrorIs(t, err, link.ErrInvalidCredential)
		assert.Empty(t, store.mappings)
	})

	t.Run("idempotent: second attach yields AlreadyLinked", func(t *testing.T) {
		linker, store, accounts := fixture()
		accounts.seed("bob", "secret123")

		req := link.AttachRequest{
			Username:   "bob",
			Password:   "secret123",
			ExternalID: "fb-7",
		}

		_, err := linker.AttachExisting(ctx, req)
		require.NoError(t, err)

		_, err = linker.AttachExisting(ctx, req)
		assert.ErrorIs(t, err, link.ErrAlreadyLinked)
		assert.Len(t, store.mappings, 1)
	})

	t.Run("account with another mapping refuses", func(t *testing.T) {
		linker, store, accounts := fixture()
		id := accounts.seed("bob", "secret123")
		store.mappings["fb-7"] = id

		_, err := linker.AttachExisting(ctx, link.AttachRequest{
			Username:   "bob",
			Password:   "secret123",
			ExternalID: "fb-99",
		})
		assert.ErrorIs(t, err, link.ErrAlreadyLinked)
	})
}

func TestMergeCurrent(t *testing.T) {
	ctx := context.Background()

	t.Run("merges free accounts", func(t *testing.T) {
		linker, store, accounts := fixture()
		id := accounts.seed("bob", "secret123")

		err := linker.MergeCurrent(ctx, link.MergeRequest{
			AccountID:  id,
			ExternalID: "fb-7",
		})
		require.NoError(t, err)
		assert.Equal(t, id, store.mappings["fb-7"])
	})

	t.Run("revalidates server-side", func(t *testing.T) {
		linker, store, accounts := fixture()
		id := accounts.seed("bob", "secret123")
		store.mappings["fb-7"] = id

		// Client claims both sides are free; the store says otherwise.
		err := linker.MergeCurrent(ctx, link.MergeRequest{
			AccountID:  id,
			ExternalID: "fb-99",
		})
		assert.ErrorIs(t, err, link.ErrAlreadyLinked)
		assert.Len(t, store.mappings, 1)
	})

	t.Run("requires a signed-in account", func(t *testing.T) {
		linker, _, _ := fixture()

		err := linker.MergeCurrent(ctx, link.MergeRequest{
			ExternalID: "fb-7",
		})
		assert.ErrorIs(t, err, link.ErrInvalidCredential)
	})
}

func TestDetach(t *testing.T) {
	ctx := context.Background()

	t.Run("removes the mapping", func(t *testing.T) {
		linker, store, _ := fixture()
		store.mappings["fb-42"] = "acct-1"

		require.NoError(t, linker.Detach(ctx, "fb-42"))
		assert.Empty(t, store.mappings)
	})

	t.Run("no-op on unknown external id", func(t *testing.T) {
		linker, store, _ := fixture()

		require.NoError(t, linker.Detach(ctx, "fb-42"))
		require.NoError(t, linker.Detach(ctx, "fb-42"))
		assert.Empty(t, store.mappings)
	})
}
