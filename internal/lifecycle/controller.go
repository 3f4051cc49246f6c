// Package lifecycle drives each project through its rounds. A block clock
// feeds AdvanceBlock; everything else is a user- or issuer-triggered
// operation that loads the project, applies one engine, and persists it.
package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"launchpad/internal/analytics"
	"launchpad/internal/auction"
	"launchpad/internal/contribution"
	"launchpad/internal/domain"
	"launchpad/internal/evaluation"
	"launchpad/internal/settlement"
	"launchpad/internal/storage"
)

// Recorder receives a funding snapshot for every project a block tick
// transitions. Optional; failures are logged, never fatal.
type Recorder interface {
	Record(ctx context.Context, s analytics.FundingSnapshot) error
}

// Controller owns the project state machine.
type Controller struct {
	projects storage.ProjectStore
	schedule storage.ScheduleStore

	evaluation   *evaluation.Engine
	auction      *auction.Engine
	contribution *contribution.Engine
	settlement   *settlement.Engine

	recorder Recorder
	log      logrus.FieldLogger
}

// Options configures the lifecycle controller.
type Options struct {
	Projects storage.ProjectStore
	Schedule storage.ScheduleStore

	Evaluation   *evaluation.Engine
	Auction      *auction.Engine
	Contribution *contribution.Engine
	Settlement   *settlement.Engine

	Recorder Recorder // optional
	Logger   logrus.FieldLogger
}

// New creates a lifecycle controller.
func New(opts Options) *Controller {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Controller{
		projects:     opts.Projects,
		schedule:     opts.Schedule,
		evaluation:   opts.Evaluation,
		auction:      opts.Auction,
		contribution: opts.Contribution,
		settlement:   opts.Settlement,
		recorder:     opts.Recorder,
		log:          log,
	}
}

// CreateProject registers a validated application. An issuer identity may
// run at most one project at a time.
func (c *Controller) CreateProject(ctx context.Context, issuer domain.AccountID, identity domain.Identity, meta domain.ProjectMetadata) (*storage.ProjectRecord, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	if _, err := c.projects.ActiveByIssuerIdentity(ctx, identity); err == nil {
		return nil, domain.ErrIssuerHasActiveProject
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	rec := &storage.ProjectRecord{
		Metadata: meta,
		Details: domain.ProjectDetails{
			Issuer:                      issuer,
			IssuerIdentity:              identity,
			Status:                      domain.StatusApplication,
			FundraisingTargetUSD:        meta.FundingTargetUSD(),
			RemainingContributionTokens: meta.TotalAllocationSize,
		},
		Ladder: auction.NewLadder(meta),
	}
	id, err := c.projects.Create(ctx, rec)
	if err != nil {
		return nil, err
	}
	return c.projects.Get(ctx, id)
}

// EditProject replaces the metadata of a project still in application.
func (c *Controller) EditProject(ctx context.Context, id domain.ProjectID, identity domain.Identity, meta domain.ProjectMetadata) error {
	rec, err := c.issuerProject(ctx, id, identity)
	if err != nil {
		return err
	}
	if rec.Details.Status != domain.StatusApplication {
		return fmt.Errorf("edit project in %s: %w", rec.Details.Status, domain.ErrIncorrectRound)
	}
	if err := meta.Validate(); err != nil {
		return err
	}
	rec.Metadata = meta
	rec.Details.FundraisingTargetUSD = meta.FundingTargetUSD()
	rec.Details.RemainingContributionTokens = meta.TotalAllocationSize
	rec.Ladder = auction.NewLadder(meta)
	return c.projects.Update(ctx, rec)
}

// RemoveProject withdraws an application before evaluation starts.
func (c *Controller) RemoveProject(ctx context.Context, id domain.ProjectID, identity domain.Identity) error {
	rec, err := c.issuerProject(ctx, id, identity)
	if err != nil {
		return err
	}
	if rec.Details.Status != domain.StatusApplication {
		return fmt.Errorf("remove project in %s: %w", rec.Details.Status, domain.ErrIncorrectRound)
	}
	if err := c.projects.Delete(ctx, id); err != nil {
		return err
	}
	return c.schedule.RemoveProject(ctx, id)
}

// StartEvaluation opens the evaluation round and schedules its end.
func (c *Controller) StartEvaluation(ctx context.Context, id domain.ProjectID, identity domain.Identity, now domain.BlockNumber) error {
	rec, err := c.issuerProject(ctx, id, identity)
	if err != nil {
		return err
	}
	if rec.Details.Status != domain.StatusApplication {
		return fmt.Errorf("start evaluation in %s: %w", rec.Details.Status, domain.ErrIncorrectRound)
	}
	if err := c.enterRound(ctx, rec, domain.StatusEvaluationRound, now, domain.EvaluationRoundDuration); err != nil {
		return err
	}
	return c.projects.Update(ctx, rec)
}

// Evaluate bonds PLMC against a project under evaluation.
func (c *Controller) Evaluate(ctx context.Context, id domain.ProjectID, p evaluation.EvaluateParams, now domain.BlockNumber) (*domain.Evaluation, error) {
	rec, err := c.projects.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	eval, err := c.evaluation.Evaluate(ctx, rec, p, now)
	if err != nil {
		return nil, err
	}
	return eval, c.projects.Update(ctx, rec)
}

// StartAuction lets the issuer open the auction once the evaluation round
// has run its course and passed, without waiting for the block tick.
func (c *Controller) StartAuction(ctx context.Context, id domain.ProjectID, identity domain.Identity, now domain.BlockNumber) error {
	rec, err := c.issuerProject(ctx, id, identity)
	if err != nil {
		return err
	}
	if rec.Details.Status != domain.StatusEvaluationRound {
		return fmt.Errorf("start auction in %s: %w", rec.Details.Status, domain.ErrIncorrectRound)
	}
	if rec.Details.RoundEnd == nil || now < *rec.Details.RoundEnd {
		return fmt.Errorf("evaluation round still open: %w", domain.ErrTooEarlyForRound)
	}
	if !evaluation.RoundPassed(rec.Details) {
		return fmt.Errorf("evaluation threshold not met: %w", domain.ErrIncorrectRound)
	}
	if err := c.schedule.RemoveProject(ctx, id); err != nil {
		return err
	}
	if err := c.enterRound(ctx, rec, domain.StatusAuctionRound, now, domain.AuctionRoundDuration); err != nil {
		return err
	}
	return c.projects.Update(ctx, rec)
}

// Bid places an auction bid.
func (c *Controller) Bid(ctx context.Context, id domain.ProjectID, p auction.BidParams, now domain.BlockNumber) (*domain.Bid, error) {
	rec, err := c.projects.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	bid, err := c.auction.PlaceBid(ctx, rec, p, now)
	if err != nil {
		return nil, err
	}
	return bid, c.projects.Update(ctx, rec)
}

// Contribute buys contribution tokens in the community or remainder round.
// A sell-out pulls the funding end forward to the next block.
func (c *Controller) Contribute(ctx context.Context, id domain.ProjectID, p contribution.ContributeParams, now domain.BlockNumber) (*domain.Contribution, error) {
	rec, err := c.projects.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	cont, soldOut, err := c.contribution.Contribute(ctx, rec, p, now)
	if err != nil {
		return nil, err
	}
	if err := c.projects.Update(ctx, rec); err != nil {
		return nil, err
	}
	if soldOut {
		if err := c.schedule.RemoveProject(ctx, id); err != nil {
			return nil, err
		}
		if _, err := c.schedule.Append(ctx, now+1, id); err != nil {
			return nil, err
		}
	}
	return cont, nil
}

// StartSettlement opens settlement after the post-funding cooldown.
func (c *Controller) StartSettlement(ctx context.Context, id domain.ProjectID, now domain.BlockNumber) error {
	rec, err := c.projects.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := c.settlement.Start(ctx, rec, now); err != nil {
		return err
	}
	if err := c.projects.Update(ctx, rec); err != nil {
		return err
	}
	// Drop the cooldown entry so the clock does not try a second start.
	return c.schedule.RemoveProject(ctx, id)
}

// SettleEvaluation settles one evaluation bond.
func (c *Controller) SettleEvaluation(ctx context.Context, id domain.ProjectID, account domain.AccountID, participation uint32) error {
	rec, err := c.projects.Get(ctx, id)
	if err != nil {
		return err
	}
	return c.settlement.SettleEvaluation(ctx, rec, account, participation)
}

// SettleBid settles one bid.
func (c *Controller) SettleBid(ctx context.Context, id domain.ProjectID, account domain.AccountID, participation uint32) error {
	rec, err := c.projects.Get(ctx, id)
	if err != nil {
		return err
	}
	return c.settlement.SettleBid(ctx, rec, account, participation)
}

// SettleContribution settles one contribution.
func (c *Controller) SettleContribution(ctx context.Context, id domain.ProjectID, account domain.AccountID, participation uint32) error {
	rec, err := c.projects.Get(ctx, id)
	if err != nil {
		return err
	}
	return c.settlement.SettleContribution(ctx, rec, account, participation)
}

// MarkProjectAsSettled closes a fully settled project.
func (c *Controller) MarkProjectAsSettled(ctx context.Context, id domain.ProjectID) error {
	rec, err := c.projects.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := c.settlement.MarkSettled(ctx, rec); err != nil {
		return err
	}
	if err := c.projects.Update(ctx, rec); err != nil {
		return err
	}
	return c.schedule.RemoveProject(ctx, id)
}

// AdvanceBlock applies every transition due at the block. A failing project
// is logged and skipped so it cannot stall the rest of the schedule.
func (c *Controller) AdvanceBlock(ctx context.Context, now domain.BlockNumber) {
	due, err := c.schedule.Take(ctx, now)
	if err != nil {
		c.log.WithError(err).WithField("block", now).Error("taking due transitions")
		return
	}
	for _, id := range due {
		rec, err := c.projects.Get(ctx, id)
		if err != nil {
			c.log.WithError(err).WithFields(logrus.Fields{"project": id, "block": now}).
				Error("loading project for transition")
			continue
		}
		if err := c.transition(ctx, rec, now); err != nil {
			c.log.WithError(err).WithFields(logrus.Fields{
				"project": id, "block": now, "status": rec.Details.Status,
			}).Error("project transition")
			continue
		}
		if err := c.projects.Update(ctx, rec); err != nil {
			c.log.WithError(err).WithFields(logrus.Fields{"project": id, "block": now}).
				Error("persisting transition")
			continue
		}
		if c.recorder != nil {
			if err := c.recorder.Record(ctx, analytics.Snapshot(rec.Details, now)); err != nil {
				c.log.WithError(err).WithFields(logrus.Fields{"project": id, "block": now}).
					Warn("recording funding snapshot")
			}
		}
	}
}

// transition applies the one state change due for the project's round.
func (c *Controller) transition(ctx context.Context, rec *storage.ProjectRecord, now domain.BlockNumber) error {
	switch rec.Details.Status {
	case domain.StatusEvaluationRound:
		return c.endEvaluation(ctx, rec, now)

	case domain.StatusAuctionRound:
		if err := c.auction.Close(ctx, rec); err != nil {
			return err
		}
		return c.enterRound(ctx, rec, domain.StatusCommunityRound, now, domain.CommunityRoundDuration)

	case domain.StatusCommunityRound:
		if rec.Details.RemainingContributionTokens.IsZero() {
			return c.endFunding(ctx, rec, now)
		}
		return c.enterRound(ctx, rec, domain.StatusRemainderRound, now, domain.RemainderRoundDuration)

	case domain.StatusRemainderRound:
		return c.endFunding(ctx, rec, now)

	case domain.StatusFundingSuccessful, domain.StatusFundingFailed, domain.StatusEvaluationFailed:
		return c.settlement.Start(ctx, rec, now)

	default:
		return fmt.Errorf("no transition from %s: %w", rec.Details.Status, domain.ErrImpossibleState)
	}
}

// endEvaluation closes the evaluation round either into the auction or
// into a slashed failure waiting for settlement.
func (c *Controller) endEvaluation(ctx context.Context, rec *storage.ProjectRecord, now domain.BlockNumber) error {
	if evaluation.RoundPassed(rec.Details) {
		return c.enterRound(ctx, rec, domain.StatusAuctionRound, now, domain.AuctionRoundDuration)
	}
	rec.Details.Status = domain.StatusEvaluationFailed
	rec.Details.Outcome = domain.OutcomeFailure
	rec.Details.FundingEndBlock = now
	rec.Details.RoundEnd = nil
	rec.Details.EvaluationRoundInfo.Outcome = domain.EvaluatorsSlashed
	_, err := c.schedule.Append(ctx, now+domain.SettlementCooldown, rec.ID)
	return err
}

// endFunding fixes the funding outcome and the evaluator verdict, then
// schedules settlement after the cooldown.
func (c *Controller) endFunding(ctx context.Context, rec *storage.ProjectRecord, now domain.BlockNumber) error {
	threshold := rec.Details.FundraisingTargetUSD.Mul(domain.FundingSuccessRate).Floor()
	rec.Details.FundingEndBlock = now
	rec.Details.RoundEnd = nil

	if rec.Details.FundingAmountReachedUSD.GreaterThanOrEqual(threshold) {
		rec.Details.Status = domain.StatusFundingSuccessful
		rec.Details.Outcome = domain.OutcomeSuccess
		rec.Details.EvaluationRoundInfo.Outcome = domain.EvaluatorsRewarded

		if rec.Details.WeightedAveragePrice == nil {
			return fmt.Errorf("funding ended without a final price: %w", domain.ErrImpossibleState)
		}
		feeCT, err := settlement.FeeCT(settlement.FeeUSD(rec.Details.FundingAmountReachedUSD), *rec.Details.WeightedAveragePrice)
		if err != nil {
			return err
		}
		rewards := settlement.ComputeRewardInfo(feeCT, rec.Details.EvaluationRoundInfo, rec.Details.FundraisingTargetUSD)
		rec.Details.EvaluationRoundInfo.Rewards = &rewards
	} else {
		rec.Details.Status = domain.StatusFundingFailed
		rec.Details.Outcome = domain.OutcomeFailure
		rec.Details.EvaluationRoundInfo.Outcome = domain.EvaluatorsSlashed
	}

	_, err := c.schedule.Append(ctx, now+domain.SettlementCooldown, rec.ID)
	return err
}

// enterRound moves the project into a round and schedules its end, using
// the landing block the schedule actually assigned.
func (c *Controller) enterRound(ctx context.Context, rec *storage.ProjectRecord, status domain.ProjectStatus, now domain.BlockNumber, duration domain.BlockNumber) error {
	landing, err := c.schedule.Append(ctx, now+duration, rec.ID)
	if err != nil {
		return err
	}
	rec.Details.Status = status
	rec.Details.RoundStart = now
	rec.Details.RoundEnd = &landing
	return nil
}

// issuerProject loads a project and checks the caller is its issuer.
func (c *Controller) issuerProject(ctx context.Context, id domain.ProjectID, identity domain.Identity) (*storage.ProjectRecord, error) {
	rec, err := c.projects.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Details.IssuerIdentity != identity {
		return nil, fmt.Errorf("caller is not the issuer: %w", domain.ErrNotAllowed)
	}
	return rec, nil
}
