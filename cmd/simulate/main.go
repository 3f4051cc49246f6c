package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"launchpad/internal/analytics"
	"launchpad/internal/auction"
	"launchpad/internal/contribution"
	"launchpad/internal/domain"
	"launchpad/internal/evaluation"
	"launchpad/internal/ledger"
	"launchpad/internal/lifecycle"
	"launchpad/internal/oracle"
	"launchpad/internal/settlement"
	"launchpad/internal/storage/memory"
	"launchpad/internal/vesting"
)

// result is the JSON shape of a finished run.
type result struct {
	Status        string                      `json:"status"`
	Outcome       string                      `json:"outcome"`
	TargetUSD     string                      `json:"target_usd"`
	ReachedUSD    string                      `json:"reached_usd"`
	WAP           string                      `json:"weighted_average_price,omitempty"`
	RemainingCT   string                      `json:"remaining_ct"`
	BidderCT      string                      `json:"bidder_ct"`
	ContributorCT string                      `json:"contributor_ct"`
	EvaluatorCT   string                      `json:"evaluator_reward_ct"`
	DestinationUS string                      `json:"funding_destination_usdt"`
	Snapshots     []analytics.FundingSnapshot `json:"snapshots"`
}

func main() {
	// Scenario parameters
	supplyCT := flag.Int64("ct-supply", 100_000, "Total contribution token allocation (whole tokens)")
	auctionCT := flag.Int64("auction-allocation", 50_000, "Tokens sold through the auction (whole tokens)")
	priceUSD := flag.Int64("price-usd", 1, "Minimum price in USD per token")
	evaluationUSD := flag.Int64("evaluation-usd", 15_000, "USD bonded by the evaluator")
	bidCT := flag.Int64("bid-ct", 35_000, "Tokens bid by the professional bidder")
	bidLimitUSD := flag.Int64("bid-limit-usd", 2, "Bidder limit price in USD per token")
	contributionCT := flag.Int64("contribution-ct", 3_000, "Tokens bought by the retail contributor")

	// Output
	outputJSON := flag.Bool("json", false, "Output as JSON")
	verbose := flag.Bool("verbose", false, "Log every lifecycle step")

	flag.Parse()

	logger := logrus.New()
	if !*verbose {
		logger.SetOutput(io.Discard)
	}

	if *auctionCT > *supplyCT {
		logger.SetOutput(os.Stderr)
		logger.Fatal("--auction-allocation cannot exceed --ct-supply")
	}

	ctx := context.Background()
	res, err := run(ctx, scenario{
		supplyCT:       *supplyCT,
		auctionCT:      *auctionCT,
		priceUSD:       *priceUSD,
		evaluationUSD:  *evaluationUSD,
		bidCT:          *bidCT,
		bidLimitUSD:    *bidLimitUSD,
		contributionCT: *contributionCT,
	}, logger)
	if err != nil {
		logger.SetOutput(os.Stderr)
		logger.Fatalf("simulation failed: %v", err)
	}

	if *outputJSON {
		output, _ := json.MarshalIndent(res, "", "  ")
		fmt.Println(string(output))
	} else {
		printResult(res)
	}
}

type scenario struct {
	supplyCT       int64
	auctionCT      int64
	priceUSD       int64
	evaluationUSD  int64
	bidCT          int64
	bidLimitUSD    int64
	contributionCT int64
}

// ctDecimals is the token precision every simulated project uses.
const ctDecimals = 6

// run drives one project from application to settlement over in-memory
// stores: one evaluator, one professional bidder, one retail contributor.
func run(ctx context.Context, sc scenario, logger *logrus.Logger) (*result, error) {
	projects := memory.NewProjectStore()
	schedule := memory.NewScheduleStore()
	evaluations := memory.NewEvaluationStore()
	bids := memory.NewBidStore()
	contributions := memory.NewContributionStore()
	seqs := memory.NewSequenceStore()
	assets := ledger.NewMemory()
	book := vesting.NewBook()
	recorder := analytics.NewMemoryRecorder()
	prices := oracle.NewStatic(oracle.DefaultPrices())

	controller := lifecycle.New(lifecycle.Options{
		Projects: projects,
		Schedule: schedule,
		Evaluation: evaluation.New(evaluation.Options{
			Evaluations: evaluations, Seqs: seqs, Assets: assets, Prices: prices,
		}),
		Auction: auction.New(auction.Options{
			Bids: bids, Seqs: seqs, Assets: assets, Prices: prices,
		}),
		Contribution: contribution.New(contribution.Options{
			Contributions: contributions, Bids: bids, Evaluations: evaluations,
			Seqs: seqs, Assets: assets, Prices: prices,
		}),
		Settlement: settlement.New(settlement.Options{
			Evaluations: evaluations, Bids: bids, Contributions: contributions,
			Assets: assets, Prices: prices, Schedules: book,
		}),
		Recorder: recorder,
		Logger:   logger,
	})

	// Give every participant ample PLMC and stablecoin.
	plmcPrice, err := prices.Price(domain.AssetPLMC)
	if err != nil {
		return nil, err
	}
	funding := decimal.New(sc.supplyCT*sc.bidLimitUSD*2, domain.USDDecimals)
	plmcStake := funding.Div(plmcPrice).Floor()
	for _, account := range []domain.AccountID{"evaluator", "bidder", "contributor"} {
		if err := assets.Mint(domain.AssetPLMC, account, plmcStake); err != nil {
			return nil, err
		}
		if err := assets.Mint(domain.AssetUSDT, account, funding); err != nil {
			return nil, err
		}
	}

	min := decimal.New(10, domain.USDDecimals)
	meta := domain.ProjectMetadata{
		TokenName:              "Simulated Token",
		TokenSymbol:            "SIM",
		TokenDecimals:          ctDecimals,
		TotalAllocationSize:    decimal.New(sc.supplyCT, ctDecimals),
		AuctionRoundAllocation: decimal.New(sc.auctionCT, ctDecimals),
		MinimumPrice:           decimal.New(sc.priceUSD, 0),
		BiddingTicketSizes: domain.BiddingTicketSizes{
			Professional:  domain.TicketSize{MinUSD: &min},
			Institutional: domain.TicketSize{MinUSD: &min},
		},
		ContributingTicketSizes: domain.ContributingTicketSizes{
			Retail: domain.TicketSize{MinUSD: &min},
		},
		ParticipationCurrencies: []domain.AssetID{domain.AssetUSDT},
		FundingDestination:      "issuer-wallet",
		PolicyHash:              "QmSimulatedPolicy",
	}

	rec, err := controller.CreateProject(ctx, "issuer", "did:issuer", meta)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	id := rec.ID
	logger.WithField("project", id).Info("Project created")

	now := domain.BlockNumber(1)
	if err := controller.StartEvaluation(ctx, id, "did:issuer", now); err != nil {
		return nil, fmt.Errorf("start evaluation: %w", err)
	}

	if _, err := controller.Evaluate(ctx, id, evaluation.EvaluateParams{
		Account: "evaluator", Identity: "did:evaluator",
		USDAmount: decimal.New(sc.evaluationUSD, domain.USDDecimals),
		Policy:    "QmSimulatedPolicy",
	}, now+1); err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	logger.WithField("usd", sc.evaluationUSD).Info("Evaluation bonded")

	now += domain.EvaluationRoundDuration
	controller.AdvanceBlock(ctx, now)
	if err := expectStatus(ctx, projects, id, domain.StatusAuctionRound); err != nil {
		return nil, err
	}

	if _, err := controller.Bid(ctx, id, auction.BidParams{
		Account: "bidder", Identity: "did:bidder", Class: domain.ClassProfessional,
		CTAmount:   decimal.New(sc.bidCT, ctDecimals),
		Price:      decimal.New(sc.bidLimitUSD, 0),
		Multiplier: 1, Asset: domain.AssetUSDT, Policy: "QmSimulatedPolicy",
	}, now+1); err != nil {
		return nil, fmt.Errorf("bid: %w", err)
	}
	logger.WithField("ct", sc.bidCT).Info("Bid placed")

	now += domain.AuctionRoundDuration
	controller.AdvanceBlock(ctx, now)
	if err := expectStatus(ctx, projects, id, domain.StatusCommunityRound); err != nil {
		return nil, err
	}

	if _, err := controller.Contribute(ctx, id, contribution.ContributeParams{
		Account: "contributor", Identity: "did:contributor", Class: domain.ClassRetail,
		CTAmount:   decimal.New(sc.contributionCT, ctDecimals),
		Multiplier: 1, Asset: domain.AssetUSDT, Policy: "QmSimulatedPolicy",
	}, now+1); err != nil {
		return nil, fmt.Errorf("contribute: %w", err)
	}
	logger.WithField("ct", sc.contributionCT).Info("Contribution placed")

	now += domain.CommunityRoundDuration
	controller.AdvanceBlock(ctx, now)
	now += domain.RemainderRoundDuration
	controller.AdvanceBlock(ctx, now)

	now += domain.SettlementCooldown
	controller.AdvanceBlock(ctx, now)

	rec, err = projects.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Details.Status == domain.StatusSettlementStarted {
		if err := controller.SettleEvaluation(ctx, id, "evaluator", 1); err != nil {
			return nil, fmt.Errorf("settle evaluation: %w", err)
		}
		if err := controller.SettleBid(ctx, id, "bidder", 1); err != nil {
			return nil, fmt.Errorf("settle bid: %w", err)
		}
		if err := controller.SettleContribution(ctx, id, "contributor", 1); err != nil {
			return nil, fmt.Errorf("settle contribution: %w", err)
		}
		if err := controller.MarkProjectAsSettled(ctx, id); err != nil {
			return nil, fmt.Errorf("mark settled: %w", err)
		}
		rec, err = projects.Get(ctx, id)
		if err != nil {
			return nil, err
		}
	}

	snaps := recorder.ByProject(id)

	ct := rec.Details.ContributionTokenAsset
	res := &result{
		Status:        rec.Details.Status.String(),
		Outcome:       string(rec.Details.Outcome),
		TargetUSD:     rec.Details.FundraisingTargetUSD.Shift(-domain.USDDecimals).String(),
		ReachedUSD:    rec.Details.FundingAmountReachedUSD.Shift(-domain.USDDecimals).String(),
		RemainingCT:   rec.Details.RemainingContributionTokens.Shift(-ctDecimals).String(),
		BidderCT:      assets.Balance(ct, "bidder").Shift(-ctDecimals).String(),
		ContributorCT: assets.Balance(ct, "contributor").Shift(-ctDecimals).String(),
		EvaluatorCT:   assets.Balance(ct, "evaluator").Shift(-ctDecimals).String(),
		DestinationUS: assets.Balance(domain.AssetUSDT, "issuer-wallet").Shift(-domain.USDDecimals).String(),
		Snapshots:     snaps,
	}
	if rec.Details.WeightedAveragePrice != nil {
		res.WAP = rec.Details.WeightedAveragePrice.String()
	}
	return res, nil
}

func expectStatus(ctx context.Context, projects *memory.ProjectStore, id domain.ProjectID, want domain.ProjectStatus) error {
	rec, err := projects.Get(ctx, id)
	if err != nil {
		return err
	}
	if rec.Details.Status != want {
		return fmt.Errorf("project in %s, want %s", rec.Details.Status, want)
	}
	return nil
}

// printResult outputs a human-readable run summary.
func printResult(r *result) {
	fmt.Println()
	fmt.Println("=== Simulation Result ===")
	fmt.Printf("Status:             %s\n", r.Status)
	fmt.Printf("Outcome:            %s\n", r.Outcome)
	fmt.Println()

	fmt.Println("Funding:")
	fmt.Printf("  Target:           %s USD\n", r.TargetUSD)
	fmt.Printf("  Reached:          %s USD\n", r.ReachedUSD)
	if r.WAP != "" {
		fmt.Printf("  Avg Price:        %s\n", r.WAP)
	}
	fmt.Printf("  Unsold Tokens:    %s\n", r.RemainingCT)
	fmt.Printf("  To Issuer:        %s USDT\n", r.DestinationUS)
	fmt.Println()

	fmt.Println("Token Holdings:")
	fmt.Printf("  Bidder:           %s\n", r.BidderCT)
	fmt.Printf("  Contributor:      %s\n", r.ContributorCT)
	fmt.Printf("  Evaluator Reward: %s\n", r.EvaluatorCT)
	fmt.Println()

	fmt.Printf("Snapshots recorded: %d\n", len(r.Snapshots))
	for _, s := range r.Snapshots {
		fmt.Printf("  block %-8d %-22s raised %s USD\n",
			s.Block, s.Status, s.RaisedUSD.Shift(-domain.USDDecimals))
	}
}
