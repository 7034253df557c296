package audithook

import "log/slog"

// Option configures an Extension.
type Option func(*Extension)

// WithLogger sets the logger that reports recorder failures.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extension) { e.logger = logger }
}

// WithEnabledActions records only the named actions.
func WithEnabledActions(actions ...string) Option {
	return func(e *Extension) { e.enabled = actionSet(actions) }
}

// WithDisabledActions skips the named actions. After WithEnabledActions it
// narrows that set; on its own it starts from Actions().
func WithDisabledActions(actions ...string) Option {
	return func(e *Extension) {
		if e.enabled == nil {
			e.enabled = actionSet(Actions())
		}
		for _, a := range actions {
			delete(e.enabled, a)
		}
	}
}

// Actions lists every action the extension records, in ledger order.
func Actions() []string {
	return []string{
		ActionPlatformInitialized,
		ActionContentUploaded,
		ActionPaymentProcessed,
		ActionPaymentFailed,
		ActionAccessGranted,
		ActionOwnershipGranted,
		ActionOwnershipMinted,
	}
}

func actionSet(actions []string) map[string]bool {
	set := make(map[string]bool, len(actions))
	for _, a := range actions {
		set[a] = true
	}
	return set
}
