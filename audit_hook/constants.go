package audithook

// Action constants for audit events.
const (
	// Platform actions
	ActionPlatformInitialized = "platform.initialized"

	// Content actions
	ActionContentUploaded = "content.uploaded"

	// Payment actions
	ActionPaymentProcessed = "payment.processed"
	ActionPaymentFailed    = "payment.failed"

	// Access actions
	ActionAccessGranted = "access.granted"

	// Ownership actions
	ActionOwnershipGranted = "ownership.granted"
	ActionOwnershipMinted  = "ownership.minted"
)

// Resource constants for audit events.
const (
	ResourcePlatform  = "platform"
	ResourceContent   = "content"
	ResourcePayment   = "payment"
	ResourceSession   = "session"
	ResourceOwnership = "ownership"
)

// Category constants for audit events.
const (
	CategoryAdmin     = "admin"
	CategoryRegistry  = "registry"
	CategoryPayment   = "payment"
	CategoryAccess    = "access"
	CategoryOwnership = "ownership"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
