package settlement

import (
	"testing"

	"github.com/shopspring/decimal"

	"launchpad/internal/domain"
)

func TestFeeUSDBrackets(t *testing.T) {
	cases := []struct {
		name    string
		reached int64 // whole USD
		want    int64 // whole USD
	}{
		{"inside first bracket", 500_000, 50_000},
		{"exactly first ceiling", 1_000_000, 100_000},
		{"straddling second bracket", 3_000_000, 260_000},
		{"all three brackets", 10_000_000, 720_000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := FeeUSD(decimal.New(tc.reached, domain.USDDecimals))
			if want := decimal.New(tc.want, domain.USDDecimals); !got.Equal(want) {
				t.Errorf("FeeUSD(%d) = %s, want %s", tc.reached, got, want)
			}
		})
	}
}

func TestFeeUSDZero(t *testing.T) {
	if got := FeeUSD(decimal.Zero); !got.IsZero() {
		t.Errorf("FeeUSD(0) = %s, want 0", got)
	}
}

func TestEvaluatorRewardWorkedExample(t *testing.T) {
	// 10M USD raised, CT at 6 decimals priced 10 USD, target 10M USD:
	// fee 720k USD, fee pot 72k CT, evaluator pool 21.6k CT split
	// 4,320 early / 17,280 normal. An evaluator who bonded 500k USD all
	// early, out of 1.07M total bonded against a 1M early cap, earns
	// 2,160 + ~8,074.77 CT.
	wap := decimal.New(10, 0)
	feeCT, err := FeeCT(FeeUSD(decimal.New(10_000_000, domain.USDDecimals)), wap)
	if err != nil {
		t.Fatalf("fee CT: %v", err)
	}
	if want := decimal.New(72_000, 6); !feeCT.Equal(want) {
		t.Fatalf("fee CT = %s, want %s", feeCT, want)
	}

	info := domain.EvaluationRoundInfo{
		TotalBondedUSD: decimal.New(1_070_000, domain.USDDecimals),
		EarlyBondedUSD: decimal.New(1_000_000, domain.USDDecimals),
	}
	rewards := ComputeRewardInfo(feeCT, info, decimal.New(10_000_000, domain.USDDecimals))

	if want := decimal.New(4_320, 6); !rewards.EarlyEvaluatorRewardPot.Equal(want) {
		t.Errorf("early pot = %s, want %s", rewards.EarlyEvaluatorRewardPot, want)
	}
	if want := decimal.New(17_280, 6); !rewards.NormalEvaluatorRewardPot.Equal(want) {
		t.Errorf("normal pot = %s, want %s", rewards.NormalEvaluatorRewardPot, want)
	}
	if want := decimal.New(1_000_000, domain.USDDecimals); !rewards.EarlyEvaluatorTotalBondedUSD.Equal(want) {
		t.Errorf("early denominator = %s, want capped at %s", rewards.EarlyEvaluatorTotalBondedUSD, want)
	}

	eval := &domain.Evaluation{EarlyUSD: decimal.New(500_000, domain.USDDecimals)}
	got := EvaluatorReward(eval, rewards)
	want := decimal.RequireFromString("10234.77").Shift(6)
	if diff := got.Sub(want).Abs(); diff.GreaterThan(want.Mul(decimal.RequireFromString("0.0001"))) {
		t.Errorf("reward = %s CT base units, want within 0.01%% of %s", got, want)
	}
}

func TestEvaluatorRewardZeroDenominators(t *testing.T) {
	eval := &domain.Evaluation{EarlyUSD: decimal.New(100, domain.USDDecimals)}
	got := EvaluatorReward(eval, domain.RewardInfo{
		EarlyEvaluatorRewardPot:  decimal.New(1, 6),
		NormalEvaluatorRewardPot: decimal.New(1, 6),
	})
	if !got.IsZero() {
		t.Errorf("reward with zero denominators = %s, want 0", got)
	}
}
