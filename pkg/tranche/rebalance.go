package tranche

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/tranche-vault/pkg/metrics"
	"github.com/code-payments/tranche-vault/pkg/solana/vault"
)

const (
	DefaultMaxRefinements = 2

	rebalanceEventName = "VaultRebalanceComputed"
)

type Direction uint8

const (
	DirectionBetaToAlpha Direction = iota
	DirectionAlphaToBeta
)

func (d Direction) String() string {
	if d == DirectionAlphaToBeta {
		return "alpha_to_beta"
	}
	return "beta_to_alpha"
}

type QuoteRequest struct {
	InputMint   ed25519.PublicKey
	OutputMint  ed25519.PublicKey
	Amount      uint64
	SlippageBps uint16
}

// Quote is a venue's price for swapping InAmount of the input mint. MinOutAmount
// already accounts for the requested slippage.
type Quote struct {
	InAmount     uint64
	OutAmount    uint64
	MinOutAmount uint64
}

// Quoter prices swaps between the two tranche mints.
type Quoter interface {
	Quote(ctx context.Context, req *QuoteRequest) (*Quote, error)
}

type RebalanceInput struct {
	InvestedAlpha   uint64
	FixedRate       uint16
	RedeemableAlpha uint64
	RedeemableBeta  uint64
	AlphaMint       ed25519.PublicKey
	BetaMint        ed25519.PublicKey
	SlippageBps     uint16
}

// SwapPlan is the swap executed at redemption so that alpha ends with its
// fixed-rate promise and beta keeps the residual.
type SwapPlan struct {
	Direction     Direction
	AmountIn      uint64
	ExpectedOut   uint64
	MinOut        uint64
	RequiredAlpha uint64
}

// SwapConfig is the on-chain form of the plan. The minimum output is always
// the quote's slippage-adjusted amount.
func (p *SwapPlan) SwapConfig() *vault.SwapConfig {
	if p == nil {
		return nil
	}
	return &vault.SwapConfig{
		MaxIn:       p.AmountIn,
		MinOut:      p.MinOut,
		AlphaToBeta: p.Direction == DirectionAlphaToBeta,
	}
}

func (p *SwapPlan) String() string {
	if p == nil {
		return "SwapPlan{<nil>}"
	}
	return fmt.Sprintf(
		"SwapPlan{direction=%s,amount_in=%d,expected_out=%d,min_out=%d,required_alpha=%d}",
		p.Direction.String(),
		p.AmountIn,
		p.ExpectedOut,
		p.MinOut,
		p.RequiredAlpha,
	)
}

type Rebalancer struct {
	log            *logrus.Entry
	quoter         Quoter
	maxRefinements int
}

// NewRebalancer returns a rebalancer that prices swaps with quoter. After the
// confirming quote, the beta input is re-sized at most maxRefinements times
// while the guaranteed output still falls short of alpha's deficit.
func NewRebalancer(quoter Quoter, maxRefinements int) *Rebalancer {
	if maxRefinements < 0 {
		maxRefinements = 0
	}
	return &Rebalancer{
		log:            logrus.StandardLogger().WithField("type", "tranche/rebalancer"),
		quoter:         quoter,
		maxRefinements: maxRefinements,
	}
}

// ComputeRebalance sizes the swap between tranches needed at redemption. A
// nil plan with a nil error means no swap is required.
func (r *Rebalancer) ComputeRebalance(ctx context.Context, input *RebalanceInput) (*SwapPlan, error) {
	log := r.log.WithFields(logrus.Fields{
		"method":           "ComputeRebalance",
		"invested_alpha":   input.InvestedAlpha,
		"fixed_rate":       input.FixedRate,
		"redeemable_alpha": input.RedeemableAlpha,
		"redeemable_beta":  input.RedeemableBeta,
	})

	if input.RedeemableAlpha == 0 && input.RedeemableBeta == 0 {
		return nil, ErrNothingToRebalance
	}

	required, err := RequiredAlpha(input.InvestedAlpha, input.FixedRate)
	if err != nil {
		return nil, err
	}
	log = log.WithField("required_alpha", required)

	var plan *SwapPlan
	switch {
	case input.RedeemableAlpha < required:
		plan, err = r.coverDeficit(ctx, input, required-input.RedeemableAlpha)
	case input.RedeemableAlpha > required:
		plan, err = r.releaseSurplus(ctx, input, input.RedeemableAlpha-required)
	default:
		log.Debug("alpha is exactly covered")
		return nil, nil
	}
	if err != nil {
		log.WithError(err).Warn("failure computing rebalance")
		return nil, err
	}

	if plan == nil {
		log.Debug("no swap required")
		return nil, nil
	}
	plan.RequiredAlpha = required

	log.WithField("plan", plan.String()).Debug("computed rebalance")
	metrics.RecordEvent(ctx, rebalanceEventName, map[string]interface{}{
		"direction":      plan.Direction.String(),
		"amount_in":      plan.AmountIn,
		"min_out":        plan.MinOut,
		"required_alpha": required,
		"alpha_mint":     base58.Encode(input.AlphaMint),
		"beta_mint":      base58.Encode(input.BetaMint),
	})

	return plan, nil
}

// coverDeficit sells beta for the alpha shortfall. The first quote only
// samples the price, the beta input is sized from that ratio and re-quoted.
func (r *Rebalancer) coverDeficit(ctx context.Context, input *RebalanceInput, deficit uint64) (*SwapPlan, error) {
	if input.RedeemableBeta == 0 {
		return nil, nil
	}

	sample, err := r.quote(ctx, input.BetaMint, input.AlphaMint, deficit, input.SlippageBps)
	if err != nil {
		return nil, err
	}
	if sample.InAmount == 0 || sample.OutAmount == 0 {
		return nil, ErrZeroQuote
	}

	inputBeta, err := MulDiv(deficit, sample.InAmount, sample.OutAmount, RoundingUp)
	if err != nil {
		return nil, err
	}
	inputBeta = min(inputBeta, input.RedeemableBeta)
	if inputBeta == 0 {
		return nil, nil
	}

	quote, err := r.quote(ctx, input.BetaMint, input.AlphaMint, inputBeta, input.SlippageBps)
	if err != nil {
		return nil, err
	}

	for i := 0; i < r.maxRefinements; i++ {
		if quote.MinOutAmount >= deficit || quote.MinOutAmount == 0 || inputBeta >= input.RedeemableBeta {
			break
		}

		next, err := MulDiv(inputBeta, deficit, quote.MinOutAmount, RoundingUp)
		if err != nil {
			return nil, err
		}
		next = min(next, input.RedeemableBeta)
		if next <= inputBeta {
			break
		}

		refined, err := r.quote(ctx, input.BetaMint, input.AlphaMint, next, input.SlippageBps)
		if err != nil {
			return nil, err
		}
		inputBeta, quote = next, refined
	}

	if quote.InAmount == 0 {
		return nil, nil
	}

	return &SwapPlan{
		Direction:   DirectionBetaToAlpha,
		AmountIn:    quote.InAmount,
		ExpectedOut: quote.OutAmount,
		MinOut:      quote.MinOutAmount,
	}, nil
}

// releaseSurplus sells alpha above its promised return back to beta.
func (r *Rebalancer) releaseSurplus(ctx context.Context, input *RebalanceInput, surplus uint64) (*SwapPlan, error) {
	quote, err := r.quote(ctx, input.AlphaMint, input.BetaMint, surplus, input.SlippageBps)
	if err != nil {
		return nil, err
	}
	if quote.InAmount == 0 {
		return nil, nil
	}

	return &SwapPlan{
		Direction:   DirectionAlphaToBeta,
		AmountIn:    quote.InAmount,
		ExpectedOut: quote.OutAmount,
		MinOut:      quote.MinOutAmount,
	}, nil
}

func (r *Rebalancer) quote(ctx context.Context, inputMint, outputMint ed25519.PublicKey, amount uint64, slippageBps uint16) (*Quote, error) {
	quote, err := r.quoter.Quote(ctx, &QuoteRequest{
		InputMint:   inputMint,
		OutputMint:  outputMint,
		Amount:      amount,
		SlippageBps: slippageBps,
	})
	if err != nil {
		return nil, err
	}
	if quote == nil {
		return nil, errors.New("quoter returned no quote")
	}
	return quote, nil
}
