package tranche

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"math/big"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/tranche-vault/pkg/metrics"
)

const (
	DefaultTradeFeeNumerator   = 30
	DefaultTradeFeeDenominator = 10_000

	poolQuoterMetricsStructName = "tranche.constant_product_quoter"
)

// ReserveReader reads SPL token account balances.
type ReserveReader interface {
	GetTokenBalance(ctx context.Context, account ed25519.PublicKey) (uint64, error)
}

// PoolReserves names the token accounts holding a two-sided pool's liquidity.
type PoolReserves struct {
	MintA    ed25519.PublicKey
	ReserveA ed25519.PublicKey
	MintB    ed25519.PublicKey
	ReserveB ed25519.PublicKey
}

// Withdrawal is liquidity paid out of a reserve account before a quoted swap
// executes, such as a redemption that removes liquidity and then swaps in the
// same instruction.
type Withdrawal struct {
	Reserve ed25519.PublicKey
	Amount  uint64
}

// WithdrawalAwareQuoter is a Quoter that can price swaps against reserves
// reduced by prior withdrawals. Quoters that route through pools they cannot
// attribute withdrawals to, like an aggregator, don't implement it.
type WithdrawalAwareQuoter interface {
	Quoter

	// AfterWithdrawal returns a Quoter that prices against the reserves left
	// once withdrawals are paid. Withdrawals from reserves outside the quoted
	// pool are ignored.
	AfterWithdrawal(withdrawals ...Withdrawal) Quoter
}

// ConstantProductQuoter quotes x*y=k pools directly from their reserves.
type ConstantProductQuoter struct {
	reader              ReserveReader
	pool                PoolReserves
	tradeFeeNumerator   uint64
	tradeFeeDenominator uint64

	// Pending withdrawals, subtracted from the read balances
	debitA uint64
	debitB uint64
}

func NewConstantProductQuoter(reader ReserveReader, pool PoolReserves, tradeFeeNumerator, tradeFeeDenominator uint64) (*ConstantProductQuoter, error) {
	if tradeFeeDenominator == 0 || tradeFeeNumerator >= tradeFeeDenominator {
		return nil, errors.New("invalid trade fee")
	}
	if bytes.Equal(pool.MintA, pool.MintB) {
		return nil, errors.New("pool mints must be distinct")
	}

	return &ConstantProductQuoter{
		reader:              reader,
		pool:                pool,
		tradeFeeNumerator:   tradeFeeNumerator,
		tradeFeeDenominator: tradeFeeDenominator,
	}, nil
}

func (q *ConstantProductQuoter) Quote(ctx context.Context, req *QuoteRequest) (*Quote, error) {
	tracer := metrics.TraceMethodCall(ctx, poolQuoterMetricsStructName, "Quote")
	defer tracer.End()

	var inReserveAccount, outReserveAccount ed25519.PublicKey
	var inDebit, outDebit uint64
	switch {
	case bytes.Equal(req.InputMint, q.pool.MintA) && bytes.Equal(req.OutputMint, q.pool.MintB):
		inReserveAccount, outReserveAccount = q.pool.ReserveA, q.pool.ReserveB
		inDebit, outDebit = q.debitA, q.debitB
	case bytes.Equal(req.InputMint, q.pool.MintB) && bytes.Equal(req.OutputMint, q.pool.MintA):
		inReserveAccount, outReserveAccount = q.pool.ReserveB, q.pool.ReserveA
		inDebit, outDebit = q.debitB, q.debitA
	default:
		err := errors.Errorf("pool does not trade %s for %s", base58.Encode(req.InputMint), base58.Encode(req.OutputMint))
		tracer.OnError(err)
		return nil, err
	}

	inReserve, err := q.reader.GetTokenBalance(ctx, inReserveAccount)
	if err != nil {
		tracer.OnError(err)
		return nil, errors.Wrap(err, "error getting input reserve")
	}
	outReserve, err := q.reader.GetTokenBalance(ctx, outReserveAccount)
	if err != nil {
		tracer.OnError(err)
		return nil, errors.Wrap(err, "error getting output reserve")
	}

	if inReserve <= inDebit || outReserve <= outDebit {
		err := errors.Wrap(ErrInsufficientLiquidity, "withdrawals drain the pool")
		tracer.OnError(err)
		return nil, err
	}
	inReserve -= inDebit
	outReserve -= outDebit

	out, err := GetConstantProductAmountOut(req.Amount, inReserve, outReserve, q.tradeFeeNumerator, q.tradeFeeDenominator)
	if err != nil {
		tracer.OnError(err)
		return nil, err
	}

	minOut, err := GetMinAmountWithSlippage(out, req.SlippageBps)
	if err != nil {
		tracer.OnError(err)
		return nil, err
	}

	return &Quote{
		InAmount:     req.Amount,
		OutAmount:    out,
		MinOutAmount: minOut,
	}, nil
}

func (q *ConstantProductQuoter) AfterWithdrawal(withdrawals ...Withdrawal) Quoter {
	adjusted := *q
	for _, w := range withdrawals {
		switch {
		case bytes.Equal(w.Reserve, q.pool.ReserveA):
			adjusted.debitA += w.Amount
		case bytes.Equal(w.Reserve, q.pool.ReserveB):
			adjusted.debitB += w.Amount
		}
	}
	return &adjusted
}

// GetConstantProductAmountOut applies the trade fee to the input and returns
// the output that keeps the reserve product constant.
func GetConstantProductAmountOut(amountIn, inReserve, outReserve, feeNumerator, feeDenominator uint64) (uint64, error) {
	if feeDenominator == 0 {
		return 0, ErrDivideByZero
	}
	if amountIn == 0 || outReserve == 0 {
		return 0, nil
	}

	fee, err := MulDiv(amountIn, feeNumerator, feeDenominator, RoundingUp)
	if err != nil {
		return 0, err
	}
	inAfterFee := new(big.Int).SetUint64(amountIn - fee)

	denominator := new(big.Int).Add(new(big.Int).SetUint64(inReserve), inAfterFee)
	if denominator.Sign() == 0 {
		return 0, nil
	}

	out := new(big.Int).Mul(new(big.Int).SetUint64(outReserve), inAfterFee)
	out.Quo(out, denominator)
	return toUint64(out)
}

// LpShare is the part of a pool reserve owned by lp out of supply pool
// tokens.
func LpShare(lp, supply, reserve uint64) (uint64, error) {
	if supply == 0 {
		return 0, nil
	}
	return MulDiv(reserve, lp, supply, RoundingDown)
}
