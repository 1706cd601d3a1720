package vaulttest

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/tranche-vault/pkg/tranche"
)

// PoolConfig seeds a constant product pool.
type PoolConfig struct {
	MintA ed25519.PublicKey
	MintB ed25519.PublicKey

	SeedA uint64
	SeedB uint64

	// Zero values default to tranche.DefaultTradeFeeNumerator and
	// tranche.DefaultTradeFeeDenominator.
	TradeFeeNumerator   uint64
	TradeFeeDenominator uint64
}

// Pool is a constant product pool the vault invests into. The same pool
// backs both the Saber and Orca strategy instructions.
type Pool struct {
	Address    ed25519.PublicKey
	Authority  ed25519.PublicKey
	MintA      ed25519.PublicKey
	MintB      ed25519.PublicKey
	ReserveA   ed25519.PublicKey
	ReserveB   ed25519.PublicKey
	PoolMint   ed25519.PublicKey
	FeeAccount ed25519.PublicKey

	// Holds the LP minted for the seed liquidity.
	SeedLp ed25519.PublicKey

	TradeFeeNumerator   uint64
	TradeFeeDenominator uint64
}

// RegisterPool creates a pool with its reserves, LP mint and seed liquidity.
func (p *Program) RegisterPool(config PoolConfig) (*Pool, error) {
	if bytes.Equal(config.MintA, config.MintB) {
		return nil, errors.New("pool mints must be distinct")
	}
	if config.SeedA == 0 || config.SeedB == 0 {
		return nil, errors.New("pool must be seeded on both sides")
	}

	pool := &Pool{
		Address:             newKey(),
		Authority:           newKey(),
		MintA:               config.MintA,
		MintB:               config.MintB,
		TradeFeeNumerator:   config.TradeFeeNumerator,
		TradeFeeDenominator: config.TradeFeeDenominator,
	}
	if pool.TradeFeeDenominator == 0 {
		pool.TradeFeeNumerator = tranche.DefaultTradeFeeNumerator
		pool.TradeFeeDenominator = tranche.DefaultTradeFeeDenominator
	}

	pool.PoolMint = p.CreateMint(pool.Authority, 6)

	var err error
	if pool.ReserveA, err = p.CreateTokenAccount(pool.Authority, pool.MintA); err != nil {
		return nil, errors.Wrap(err, "failed to create reserve a")
	}
	if pool.ReserveB, err = p.CreateTokenAccount(pool.Authority, pool.MintB); err != nil {
		return nil, errors.Wrap(err, "failed to create reserve b")
	}
	if pool.FeeAccount, err = p.CreateTokenAccount(pool.Authority, pool.PoolMint); err != nil {
		return nil, errors.Wrap(err, "failed to create fee account")
	}
	if pool.SeedLp, err = p.CreateTokenAccount(newKey(), pool.PoolMint); err != nil {
		return nil, errors.Wrap(err, "failed to create seed lp account")
	}

	if err := p.MintTo(pool.ReserveA, config.SeedA); err != nil {
		return nil, err
	}
	if err := p.MintTo(pool.ReserveB, config.SeedB); err != nil {
		return nil, err
	}
	if err := p.MintTo(pool.SeedLp, config.SeedA+config.SeedB); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.pools[string(pool.Address)] = pool
	p.mu.Unlock()

	return pool, nil
}

// AddPoolYield credits a pool reserve, raising the value of every LP token.
func (p *Program) AddPoolYield(pool *Pool, mint ed25519.PublicKey, amount uint64) error {
	reserve, err := pool.reserveFor(mint)
	if err != nil {
		return err
	}
	return p.MintTo(reserve, amount)
}

func (p *Program) getPool(address ed25519.PublicKey) (*Pool, error) {
	pool, ok := p.pools[string(address)]
	if !ok {
		return nil, errInvalidAccountData
	}
	return pool, nil
}

func (pool *Pool) reserveFor(mint ed25519.PublicKey) (ed25519.PublicKey, error) {
	switch {
	case bytes.Equal(mint, pool.MintA):
		return pool.ReserveA, nil
	case bytes.Equal(mint, pool.MintB):
		return pool.ReserveB, nil
	}
	return nil, errors.New("mint is not traded by the pool")
}

type poolLeg struct {
	source ed25519.PublicKey
	amount uint64
}

// depositLiquidity moves both legs into the reserves and mints LP for the
// average share of the reserves they add, as a stable pool prices them.
func (p *Program) depositLiquidity(pool *Pool, owner ed25519.PublicKey, legs [2]poolLeg, lpDest ed25519.PublicKey) (uint64, error) {
	mint, err := p.getMint(pool.PoolMint)
	if err != nil {
		return 0, err
	}

	var lp uint64
	for _, leg := range legs {
		src, err := p.getTokenAccount(leg.source)
		if err != nil {
			return 0, err
		}
		reserve, err := pool.reserveFor(src.Mint)
		if err != nil {
			return 0, errTokenMintMismatch
		}
		reserveAccount, err := p.getTokenAccount(reserve)
		if err != nil {
			return 0, err
		}

		share, err := tranche.MulDiv(leg.amount, mint.Supply, reserveAccount.Amount, tranche.RoundingDown)
		if err != nil {
			return 0, errInvalidAccountData
		}
		lp += share

		if err := p.transferTokens(leg.source, reserve, owner, leg.amount); err != nil {
			return 0, err
		}
	}

	lp /= 2
	if err := p.mintTokens(pool.PoolMint, lpDest, lp); err != nil {
		return 0, err
	}
	return lp, nil
}

// withdrawLiquidity burns every pool token in lpSource for a pro-rata share
// of both reserves, paid to the owner's accounts for each mint.
func (p *Program) withdrawLiquidity(pool *Pool, owner, lpSource ed25519.PublicKey, destinations [2]ed25519.PublicKey) (map[string]uint64, error) {
	lpAccount, err := p.getTokenAccount(lpSource)
	if err != nil {
		return nil, err
	}
	mint, err := p.getMint(pool.PoolMint)
	if err != nil {
		return nil, err
	}

	lp := lpAccount.Amount
	received := make(map[string]uint64)
	for _, dest := range destinations {
		dst, err := p.getTokenAccount(dest)
		if err != nil {
			return nil, err
		}
		reserve, err := pool.reserveFor(dst.Mint)
		if err != nil {
			return nil, errTokenMintMismatch
		}
		reserveAccount, err := p.getTokenAccount(reserve)
		if err != nil {
			return nil, err
		}

		amount, err := tranche.LpShare(lp, mint.Supply, reserveAccount.Amount)
		if err != nil {
			return nil, errInvalidAccountData
		}
		if err := p.transferTokens(reserve, dest, pool.Authority, amount); err != nil {
			return nil, err
		}
		received[string(dst.Mint)] = amount
	}

	if err := p.burnTokens(lpSource, pool.PoolMint, owner, lp); err != nil {
		return nil, err
	}
	return received, nil
}

// swap sells amountIn from source for the other side of the pool.
func (p *Program) swap(pool *Pool, owner, source, dest ed25519.PublicKey, amountIn uint64) (uint64, error) {
	src, err := p.getTokenAccount(source)
	if err != nil {
		return 0, err
	}
	dst, err := p.getTokenAccount(dest)
	if err != nil {
		return 0, err
	}

	inReserve, err := pool.reserveFor(src.Mint)
	if err != nil {
		return 0, errTokenMintMismatch
	}
	outReserve, err := pool.reserveFor(dst.Mint)
	if err != nil || bytes.Equal(inReserve, outReserve) {
		return 0, errTokenMintMismatch
	}

	inAccount, err := p.getTokenAccount(inReserve)
	if err != nil {
		return 0, err
	}
	outAccount, err := p.getTokenAccount(outReserve)
	if err != nil {
		return 0, err
	}

	out, err := tranche.GetConstantProductAmountOut(amountIn, inAccount.Amount, outAccount.Amount, pool.TradeFeeNumerator, pool.TradeFeeDenominator)
	if err != nil {
		return 0, errInvalidAccountData
	}

	if err := p.transferTokens(source, inReserve, owner, amountIn); err != nil {
		return 0, err
	}
	if err := p.transferTokens(outReserve, dest, pool.Authority, out); err != nil {
		return 0, err
	}
	return out, nil
}
