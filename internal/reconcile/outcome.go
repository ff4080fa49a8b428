package reconcile

// Context is the immutable per-request snapshot of the three independent
// session facts the reconciler decides over. It is built once by the Probe
// and never mutated.
type Context struct {
	LocalAuthed    bool
	LocalAccountID string

	ExternalAuthed bool
	ExternalID     string

	// MappedAccountID is the local account currently holding the mapping
	// for ExternalID, "" when no mapping exists.
	MappedAccountID string

	// LocalMappings are the external ids already linked to the local
	// account. A local account with any existing mapping is not eligible
	// for another link without an explicit replace.
	LocalMappings []string
}

// Action enumerates the possible reconciliation outcomes.
type Action int

const (
	NoAction Action = iota
	RedirectToLocalLogin
	PromptAttachExternalSession
	PromptChooseNewAccountName
	PromptMergeAccounts
	ConflictDifferentMapping
	PromptLogoutAndContinueAs
	AutoLoginAs
)

func (a Action) String() string {
	switch a {
	case NoAction:
		return "no_action"
	case RedirectToLocalLogin:
		return "redirect_to_login"
	case PromptAttachExternalSession:
		return "prompt_attach_external"
	case PromptChooseNewAccountName:
		return "prompt_choose_name"
	case PromptMergeAccounts:
		return "prompt_merge"
	case ConflictDifferentMapping:
		return "conflict_different_mapping"
	case PromptLogoutAndContinueAs:
		return "prompt_logout_and_continue"
	case AutoLoginAs:
		return "auto_login"
	}
	return "unknown"
}

// Outcome is the terminal decision for one request. AccountID is set for
// AutoLoginAs and PromptLogoutAndContinueAs and names the account the
// mapping points to.
type Outcome struct {
	Action    Action
	AccountID string
}
