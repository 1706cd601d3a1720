package lifecycle

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"sync"

	"github.com/mr-tron/base58"

	"github.com/code-payments/tranche-vault/pkg/solana/vault"
)

// SaberAccounts are the stable swap accounts a Saber strategy invests into.
type SaberAccounts struct {
	SaberProgram  ed25519.PublicKey
	Swap          ed25519.PublicKey
	SwapAuthority ed25519.PublicKey
	TokenA        ed25519.PublicKey
	TokenB        ed25519.PublicKey
	ReserveA      ed25519.PublicKey
	ReserveB      ed25519.PublicKey
	PoolMint      ed25519.PublicKey
	AdminFeesA    ed25519.PublicKey
	AdminFeesB    ed25519.PublicKey
}

// OrcaAccounts are the constant product pool accounts an Orca strategy
// invests into.
type OrcaAccounts struct {
	SwapProgram ed25519.PublicKey
	Pool        ed25519.PublicKey
	Authority   ed25519.PublicKey
	TokenA      ed25519.PublicKey
	TokenB      ed25519.PublicKey
	ReserveA    ed25519.PublicKey
	ReserveB    ed25519.PublicKey
	PoolMint    ed25519.PublicKey
	FeeAccount  ed25519.PublicKey

	// Optional
	Farm *OrcaFarmAccounts
}

// OrcaFarmAccounts are the aquafarm accounts the vault's pool tokens are
// staked in, and the pool rewards are sold through.
type OrcaFarmAccounts struct {
	AquafarmProgram        ed25519.PublicKey
	GlobalFarm             ed25519.PublicKey
	GlobalBaseTokenVault   ed25519.PublicKey
	GlobalRewardTokenVault ed25519.PublicKey
	FarmTokenMint          ed25519.PublicKey
	RewardMint             ed25519.PublicKey
	FarmAuthority          ed25519.PublicKey

	RewardPool *OrcaRewardPoolAccounts
}

// OrcaRewardPoolAccounts is the pool that sells farm rewards into one of
// the vault's tranche mints.
type OrcaRewardPoolAccounts struct {
	Pool            ed25519.PublicKey
	Authority       ed25519.PublicKey
	PoolSource      ed25519.PublicKey
	PoolDestination ed25519.PublicKey
	PoolMint        ed25519.PublicKey
	FeeAccount      ed25519.PublicKey
	OutputMint      ed25519.PublicKey
}

// VenueAccounts are the off-program accounts a strategy's invest and redeem
// instructions need. Exactly one of Saber or Orca is set, matching Flag.
type VenueAccounts struct {
	Flag  vault.StrategyFlag
	Saber *SaberAccounts
	Orca  *OrcaAccounts
}

func (v *VenueAccounts) Validate() error {
	if err := v.Flag.Validate(); err != nil {
		return err
	}

	switch v.Flag {
	case vault.StrategyFlagSaber:
		if v.Saber == nil || v.Orca != nil {
			return vault.ErrInvalidStrategyFlag
		}
	case vault.StrategyFlagOrca:
		if v.Orca == nil || v.Saber != nil {
			return vault.ErrInvalidStrategyFlag
		}
	}
	return nil
}

// Tokens returns the venue's mints in the order the strategy was
// initialized with.
func (v *VenueAccounts) Tokens() (tokenA, tokenB ed25519.PublicKey) {
	if v.Saber != nil {
		return v.Saber.TokenA, v.Saber.TokenB
	}
	return v.Orca.TokenA, v.Orca.TokenB
}

// Reserves returns the pool's reserve token accounts in token order.
func (v *VenueAccounts) Reserves() (reserveA, reserveB ed25519.PublicKey) {
	if v.Saber != nil {
		return v.Saber.ReserveA, v.Saber.ReserveB
	}
	return v.Orca.ReserveA, v.Orca.ReserveB
}

// PoolMint returns the mint of the pool's LP token.
func (v *VenueAccounts) PoolMint() ed25519.PublicKey {
	if v.Saber != nil {
		return v.Saber.PoolMint
	}
	return v.Orca.PoolMint
}

// ordered maps a pair of tranche amounts onto the venue's token order.
func (v *VenueAccounts) ordered(mint ed25519.PublicKey, forMint, other uint64) (a, b uint64) {
	tokenA, _ := v.Tokens()
	if bytes.Equal(tokenA, mint) {
		return forMint, other
	}
	return other, forMint
}

// VenueProvider resolves the venue accounts of a strategy.
type VenueProvider interface {
	GetVenueAccounts(ctx context.Context, strategy ed25519.PublicKey) (*VenueAccounts, error)
}

// StaticVenueProvider is a VenueProvider over a fixed set of registrations.
type StaticVenueProvider struct {
	mu     sync.RWMutex
	venues map[string]*VenueAccounts
}

func NewStaticVenueProvider() *StaticVenueProvider {
	return &StaticVenueProvider{
		venues: make(map[string]*VenueAccounts),
	}
}

// Register sets the venue accounts used for strategy.
func (p *StaticVenueProvider) Register(strategy ed25519.PublicKey, venue *VenueAccounts) error {
	if err := venue.Validate(); err != nil {
		return err
	}

	p.mu.Lock()
	p.venues[base58.Encode(strategy)] = venue
	p.mu.Unlock()
	return nil
}

// GetVenueAccounts implements VenueProvider.GetVenueAccounts
func (p *StaticVenueProvider) GetVenueAccounts(_ context.Context, strategy ed25519.PublicKey) (*VenueAccounts, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	venue, ok := p.venues[base58.Encode(strategy)]
	if !ok {
		return nil, ErrVenueNotFound
	}
	return venue, nil
}
