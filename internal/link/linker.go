package link

import (
	"context"

	"connect-service/internal/account"
	"connect-service/internal/logger"
)

// Linker executes the mutating side of reconciliation outcomes against the
// mapping store and the local account collaborator. Every operation is safe
// under request replay; uniqueness is always re-validated server-side.
type Linker struct {
	store    Store
	accounts Accounts
}

func NewLinker(store Store, accounts Accounts) *Linker {
	return &Linker{
		store:    store,
		accounts: accounts,
	}
}

// CreateRequest carries a committed choose-a-name submission.
type CreateRequest struct {
	Username   string
	ExternalID string
	Attributes map[string]string
	Update     []string

	// SessionAccountID is the local account signed in at the time of the
	// call, probed immediately before invoking CreateAccount. Non-empty
	// means an earlier submission already won (double form post).
	SessionAccountID string
}

// CreateAccount creates a local account for a new external identity and
// commits the mapping. Account and mapping commit in one transaction; a
// failed link leaves no account row behind.
func (l *Linker) CreateAccount(ctx context.Context, req CreateRequest) (string, error) {

	if !account.ValidUsername(req.Username) {
		return "", ErrInvalidUsername
	}

	// Replayed submission: the browser already holds a session. Succeed
	// quietly when that session owns the mapping, refuse otherwise.
	if req.SessionAccountID != "" {
		mapped, err := l.store.Find(ctx, req.ExternalID)
		if err != nil {
			return "", err
		}
		if mapped == req.SessionAccountID {
			return mapped, nil
		}
		return "", ErrAlreadyLinked
	}

	mapped, err := l.store.Find(ctx, req.ExternalID)
	if err != nil {
		return "", err
	}
	if mapped != "" {
		return "", ErrAlreadyLinked
	}

	accountID, err := l.store.InsertWithAccount(ctx, req.Username, req.ExternalID)
	if err != nil {
		return "", err
	}

	l.applyUpdates(ctx, accountID, req.Attributes, req.Update)

	return accountID, nil
}

// AttachRequest carries an attach-to-existing-account submission.
type AttachRequest struct {
	Username   string
	Password   string
	ExternalID string
	Attributes map[string]string
	Update     []string
}

// AttachExisting authenticates against the local account first, so failed
// attempts never partially mutate state, then commits the mapping if both
// sides are free.
func (l *Linker) AttachExisting(ctx context.Context, req AttachRequest) (string, error) {

	accountID, err := l.accounts.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return "", ErrInvalidCredential
	}

	if err := l.checkBothFree(ctx, req.ExternalID, accountID); err != nil {
		return "", err
	}

	if err := l.store.Insert(ctx, req.ExternalID, accountID); err != nil {
		return "", err
	}

	l.applyUpdates(ctx, accountID, req.Attributes, req.Update)

	return accountID, nil
}

// MergeRequest carries a merge submission for an already signed-in account.
type MergeRequest struct {
	AccountID  string
	ExternalID string
	Attributes map[string]string
	Update     []string
}

// MergeCurrent links the external identity to the account the caller is
// already signed in as. Both sides are re-validated here; a client-supplied
// "both accounts are free" claim is never trusted.
func (l *Linker) MergeCurrent(ctx context.Context, req MergeRequest) error {

	if req.AccountID == "" {
		return ErrInvalidCredential
	}

	if err := l.checkBothFree(ctx, req.ExternalID, req.AccountID); err != nil {
		return err
	}

	if err := l.store.Insert(ctx, req.ExternalID, req.AccountID); err != nil {
		return err
	}

	l.applyUpdates(ctx, req.AccountID, req.Attributes, req.Update)

	return nil
}

// Find returns the account currently mapped to externalID, "" when none.
func (l *Linker) Find(ctx context.Context, externalID string) (string, error) {
	return l.store.Find(ctx, externalID)
}

// Detach removes the active mapping for externalID. Detaching an unmapped
// external id succeeds as a no-op.
func (l *Linker) Detach(ctx context.Context, externalID string) error {
	return l.store.Delete(ctx, externalID)
}

func (l *Linker) checkBothFree(ctx context.Context, externalID, accountID string) error {

	mapped, err := l.store.Find(ctx, externalID)
	if err != nil {
		return err
	}
	if mapped != "" {
		return ErrAlreadyLinked
	}

	existing, err := l.store.FindByAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return ErrAlreadyLinked
	}

	return nil
}

// applyUpdates copies the flagged external attributes onto the local
// profile. The mapping is already committed; a failed profile update is
// logged and does not fail the link.
func (l *Linker) applyUpdates(
	ctx context.Context,
	accountID string,
	attrs map[string]string,
	update []string,
) {
	if len(update) == 0 || len(attrs) == 0 {
		return
	}

	selected := make(map[string]string)
	for _, key := range update {
		if value, ok := attrs[key]; ok {
			selected[key] = value
		}
	}
	if len(selected) == 0 {
		return
	}

	if err := l.accounts.UpdateAttributes(ctx, accountID, selected); err != nil {
		logger.Warn("profile attribute update failed", map[string]any{
			"account_id": accountID,
			"error":      err.Error(),
		})
	}
}
