package domain

// ProjectID is the opaque incrementing project identifier.
type ProjectID uint32

// BlockNumber is the engine's logical clock. All durations and deadlines
// are expressed as block counts.
type BlockNumber uint64

// AssetID identifies an asset on the external ledger. The native collateral
// asset and every accepted funding asset have a fixed id; contribution token
// ids are assigned at settlement start.
type AssetID uint32

// AccountID is an opaque ledger account address.
type AccountID string

// Identity is the stable cross-account key (DID-equivalent) supplied by the
// credential collaborator. Aggregate ticket caps are enforced per identity,
// not per account.
type Identity string

// Well-known asset ids. Funding asset ids follow the original deployment's
// price map.
const (
	AssetPLMC AssetID = 0
	AssetUSDT AssetID = 1984
	AssetUSDC AssetID = 1337
	AssetDOT  AssetID = 10
	AssetWETH AssetID = 10000
)
