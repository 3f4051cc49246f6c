package domain

import "errors"

// Validation errors. Checked before any mutation; the call leaves no trace.
var (
	// ErrBadMetadata is returned when project metadata fails validation.
	// Wrapped with the failing subkind (price, decimals, allocation, ...).
	ErrBadMetadata = errors.New("bad project metadata")

	// ErrTicketTooLow is returned when a USD ticket is below the class minimum.
	ErrTicketTooLow = errors.New("ticket size below class minimum")

	// ErrTicketTooHigh is returned when the identity's aggregate USD ticket
	// exceeds the class maximum.
	ErrTicketTooHigh = errors.New("ticket size above class maximum")

	// ErrForbiddenMultiplier is returned when a multiplier is outside the
	// investor class range.
	ErrForbiddenMultiplier = errors.New("multiplier outside allowed range")

	// ErrFundingAssetNotAccepted is returned when the project does not accept
	// the offered funding asset.
	ErrFundingAssetNotAccepted = errors.New("funding asset not accepted")

	// ErrPolicyMismatch is returned when the participant accepted a policy
	// different from the project's.
	ErrPolicyMismatch = errors.New("participant policy does not match project policy")
)

// Authorization errors.
var (
	// ErrNotAllowed is returned when the caller is not authorized for the
	// operation (e.g. a non-issuer editing a project).
	ErrNotAllowed = errors.New("caller not allowed")

	// ErrParticipationToOwnProject is returned when the issuer evaluates,
	// bids on, or contributes to their own project.
	ErrParticipationToOwnProject = errors.New("issuer cannot participate in own project")
)

// State errors. Guard against calling an operation outside its phase or twice.
var (
	// ErrIncorrectRound is returned when the project is not in the round the
	// operation requires.
	ErrIncorrectRound = errors.New("project not in required round")

	// ErrTooEarlyForRound is returned when a round transition is requested
	// before the current round has run its course.
	ErrTooEarlyForRound = errors.New("current round has not ended")

	// ErrSettlementNotStarted is returned when settling a participation
	// before start_settlement.
	ErrSettlementNotStarted = errors.New("settlement not started")

	// ErrSettlementNotComplete is returned when marking a project settled
	// while participations remain.
	ErrSettlementNotComplete = errors.New("participations remain unsettled")

	// ErrParticipationNotFound is returned when the participation record was
	// already consumed or never existed.
	ErrParticipationNotFound = errors.New("participation not found")

	// ErrIssuerHasActiveProject is returned when an issuer identity already
	// has a project in flight.
	ErrIssuerHasActiveProject = errors.New("issuer already has an active project")

	// ErrUserHasWinningBid bars auction winners from the community round.
	ErrUserHasWinningBid = errors.New("identity holds a winning bid")

	// ErrProjectSoldOut is returned when no contribution tokens remain.
	ErrProjectSoldOut = errors.New("no contribution tokens remaining")
)

// Resource errors, surfaced from collaborators.
var (
	// ErrInsufficientBalance is returned by the asset ledger when funds do
	// not cover a hold or transfer.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrPriceNotFound is returned when the oracle has no price for an asset.
	ErrPriceNotFound = errors.New("price not found")

	// ErrTooManyParticipations is returned when an account reaches
	// MaxParticipationsPerUser on a project.
	ErrTooManyParticipations = errors.New("participation limit reached")
)

// Internal errors. Unreachable in correct code; clock-triggered transitions
// record them as diagnostic events instead of propagating.
var (
	ErrImpossibleState = errors.New("impossible state")
	ErrBadMath         = errors.New("arithmetic invariant broken")
)
