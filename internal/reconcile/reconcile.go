package reconcile

// Reconcile decides the single next action for the given session snapshot.
// It is a pure, total function: every context combination yields exactly one
// outcome and no branch performs I/O or mutates anything.
//
// The cases are ordered by precedence, first match wins. Account equality is
// checked before any conflict case, and the no-mapping branches distinguish
// whether the local account is free, because that determines whether a merge
// is legal at all.
func Reconcile(c Context) Outcome {

	if !c.ExternalAuthed {
		if !c.LocalAuthed {
			// Nothing on either side, nothing to reconcile here.
			return Outcome{Action: RedirectToLocalLogin}
		}
		// Signed in locally only. State is consistent; the entry point
		// may still offer to attach an external identity.
		return Outcome{Action: NoAction}
	}

	if !c.LocalAuthed {
		if c.MappedAccountID == "" {
			// External identity is new to the site.
			return Outcome{Action: PromptChooseNewAccountName}
		}
		// Known identity, no local session: sign them in.
		return Outcome{Action: AutoLoginAs, AccountID: c.MappedAccountID}
	}

	if c.MappedAccountID == c.LocalAccountID && c.MappedAccountID != "" {
		// Mapping and session agree.
		return Outcome{Action: NoAction}
	}

	if c.MappedAccountID == "" {
		if len(c.LocalMappings) == 0 {
			// Both sides are free. Ask to merge.
			return Outcome{Action: PromptMergeAccounts}
		}
		// The local account already holds a different mapping.
		return Outcome{Action: ConflictDifferentMapping}
	}

	// The external identity belongs to some other local account.
	return Outcome{Action: PromptLogoutAndContinueAs, AccountID: c.MappedAccountID}
}
