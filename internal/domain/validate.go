package domain

import "fmt"

// Metadata validation subkinds, wrapped into ErrBadMetadata.
const (
	MetaPriceTooLow          = "price below minimum"
	MetaTicketSizeError      = "ticket size bounds inverted"
	MetaCurrenciesError      = "participation currencies empty or duplicated"
	MetaAllocationSizeError  = "auction allocation exceeds total allocation"
	MetaFundingTargetTooLow  = "funding target below protocol minimum"
	MetaFundingTargetTooHigh = "funding target above protocol maximum"
	MetaBadDecimals          = "token decimals out of range"
	MetaBadTokenomics        = "allocation size is zero"
)

// Validate checks the issuer-supplied metadata before a project is created
// or edited.
func (m ProjectMetadata) Validate() error {
	if m.MinimumPrice.IsZero() || m.MinimumPrice.IsNegative() {
		return fmt.Errorf("%w: %s", ErrBadMetadata, MetaPriceTooLow)
	}
	if m.TokenDecimals < MinCTDecimals || m.TokenDecimals > MaxCTDecimals {
		return fmt.Errorf("%w: %s", ErrBadMetadata, MetaBadDecimals)
	}
	if m.TotalAllocationSize.IsZero() || m.TotalAllocationSize.IsNegative() {
		return fmt.Errorf("%w: %s", ErrBadMetadata, MetaBadTokenomics)
	}
	if m.AuctionRoundAllocation.GreaterThan(m.TotalAllocationSize) ||
		m.AuctionRoundAllocation.IsZero() || m.AuctionRoundAllocation.IsNegative() {
		return fmt.Errorf("%w: %s", ErrBadMetadata, MetaAllocationSizeError)
	}
	target := m.FundingTargetUSD()
	if target.LessThan(MinFundingTargetUSD) {
		return fmt.Errorf("%w: %s", ErrBadMetadata, MetaFundingTargetTooLow)
	}
	if target.GreaterThan(MaxFundingTargetUSD) {
		return fmt.Errorf("%w: %s", ErrBadMetadata, MetaFundingTargetTooHigh)
	}
	if len(m.ParticipationCurrencies) == 0 {
		return fmt.Errorf("%w: %s", ErrBadMetadata, MetaCurrenciesError)
	}
	seen := make(map[AssetID]bool, len(m.ParticipationCurrencies))
	for _, a := range m.ParticipationCurrencies {
		if seen[a] {
			return fmt.Errorf("%w: %s", ErrBadMetadata, MetaCurrenciesError)
		}
		seen[a] = true
	}
	for _, ts := range []TicketSize{
		m.BiddingTicketSizes.Professional,
		m.BiddingTicketSizes.Institutional,
		m.ContributingTicketSizes.Retail,
		m.ContributingTicketSizes.Professional,
		m.ContributingTicketSizes.Institutional,
	} {
		if ts.MinUSD != nil && ts.MaxUSD != nil && ts.MinUSD.GreaterThan(*ts.MaxUSD) {
			return fmt.Errorf("%w: %s", ErrBadMetadata, MetaTicketSizeError)
		}
	}
	return nil
}
