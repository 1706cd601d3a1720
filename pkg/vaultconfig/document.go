package vaultconfig

import (
	"bytes"
	"crypto/ed25519"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/code-payments/tranche-vault/pkg/lifecycle"
	"github.com/code-payments/tranche-vault/pkg/solana/vault"
)

// DefaultPeriod separates the start, invest and redeem timestamps of a
// document that doesn't set them explicitly.
const DefaultPeriod = 10 * time.Second

var (
	ErrMissingField       = errors.New("required field is missing")
	ErrConflictingTimes   = errors.New("period and absolute timestamps are mutually exclusive")
	ErrUnsupportedVenue   = errors.New("strategy flag must be saber or orca")
	ErrVenueFlagMismatch  = errors.New("venue section doesn't match the strategy flag")
	ErrInvalidFixedRate   = errors.New("fixed rate exceeds 10000 bps")
	ErrInvalidPublicKey   = errors.New("invalid public key")
	ErrNonPositivePeriod  = errors.New("period must be positive")
	ErrIncompleteSchedule = errors.New("start_at, invest_at and redeem_at must all be set")
)

// Key is a base58 encoded public key.
type Key ed25519.PublicKey

func (k *Key) UnmarshalYAML(value *yaml.Node) error {
	var encoded string
	if err := value.Decode(&encoded); err != nil {
		return err
	}

	decoded, err := base58.Decode(strings.TrimSpace(encoded))
	if err != nil || len(decoded) != ed25519.PublicKeySize {
		return errors.Wrapf(ErrInvalidPublicKey, "line %d: %q", value.Line, encoded)
	}
	*k = decoded
	return nil
}

func (k Key) MarshalYAML() (interface{}, error) {
	return base58.Encode(k), nil
}

func (k Key) PublicKey() ed25519.PublicKey {
	if len(k) == 0 {
		return nil
	}
	return ed25519.PublicKey(k)
}

// Document describes a vault along with the strategy and venue it invests
// through.
type Document struct {
	Authority  Key `yaml:"authority,omitempty"`
	Strategist Key `yaml:"strategist,omitempty"`

	Alpha Tranche `yaml:"alpha"`
	Beta  Tranche `yaml:"beta"`

	// Basis points, defaulting to vault.DefaultFixedRate
	FixedRate *uint16 `yaml:"fixed_rate,omitempty"`

	// Either a period between each timestamp, or all three unix timestamps
	Period   time.Duration `yaml:"period,omitempty"`
	StartAt  uint64        `yaml:"start_at,omitempty"`
	InvestAt uint64        `yaml:"invest_at,omitempty"`
	RedeemAt uint64        `yaml:"redeem_at,omitempty"`

	Strategy Strategy `yaml:"strategy"`
}

type Tranche struct {
	Mint     Key     `yaml:"mint"`
	UserCap  *uint64 `yaml:"user_cap,omitempty"`
	AssetCap *uint64 `yaml:"asset_cap,omitempty"`
}

type Strategy struct {
	Flag    string  `yaml:"flag"`
	Version *uint16 `yaml:"version,omitempty"`

	Saber *Saber `yaml:"saber,omitempty"`
	Orca  *Orca  `yaml:"orca,omitempty"`
}

type Saber struct {
	Program       Key `yaml:"program,omitempty"`
	Swap          Key `yaml:"swap"`
	SwapAuthority Key `yaml:"swap_authority"`
	TokenA        Key `yaml:"token_a"`
	TokenB        Key `yaml:"token_b"`
	ReserveA      Key `yaml:"reserve_a"`
	ReserveB      Key `yaml:"reserve_b"`
	PoolMint      Key `yaml:"pool_mint"`
	AdminFeesA    Key `yaml:"admin_fees_a"`
	AdminFeesB    Key `yaml:"admin_fees_b"`
}

type Orca struct {
	Program    Key `yaml:"program,omitempty"`
	Pool       Key `yaml:"pool"`
	Authority  Key `yaml:"authority"`
	TokenA     Key `yaml:"token_a"`
	TokenB     Key `yaml:"token_b"`
	ReserveA   Key `yaml:"reserve_a"`
	ReserveB   Key `yaml:"reserve_b"`
	PoolMint   Key `yaml:"pool_mint"`
	FeeAccount Key `yaml:"fee_account"`

	DoubleDipFarmLp Key `yaml:"double_dip_farm_lp,omitempty"`

	Farm *Farm `yaml:"farm,omitempty"`
}

type Farm struct {
	Program                Key `yaml:"program,omitempty"`
	GlobalFarm             Key `yaml:"global_farm"`
	GlobalBaseTokenVault   Key `yaml:"global_base_token_vault"`
	GlobalRewardTokenVault Key `yaml:"global_reward_token_vault"`
	FarmTokenMint          Key `yaml:"farm_token_mint"`
	RewardMint             Key `yaml:"reward_mint"`
	FarmAuthority          Key `yaml:"farm_authority"`

	RewardPool *RewardPool `yaml:"reward_pool,omitempty"`
}

type RewardPool struct {
	Pool            Key `yaml:"pool"`
	Authority       Key `yaml:"authority"`
	PoolSource      Key `yaml:"pool_source"`
	PoolDestination Key `yaml:"pool_destination"`
	PoolMint        Key `yaml:"pool_mint"`
	FeeAccount      Key `yaml:"fee_account"`
	OutputMint      Key `yaml:"output_mint"`
}

// Resolved is a validated document, ready to initialize.
type Resolved struct {
	Config    *vault.VaultConfig
	AlphaMint ed25519.PublicKey
	BetaMint  ed25519.PublicKey

	Strategy *lifecycle.StrategyDefinition
	Venue    *lifecycle.VenueAccounts
}

// Load reads and parses a document from a file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "error reading vault document")
	}
	return Parse(data)
}

// Parse decodes a YAML document. Unknown fields are rejected.
func Parse(data []byte) (*Document, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var doc Document
	if err := decoder.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "error parsing vault document")
	}
	return &doc, nil
}

// Encode writes the document as YAML.
func (d *Document) Encode(w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(d); err != nil {
		return errors.Wrap(err, "error encoding vault document")
	}
	return encoder.Close()
}

// Resolve validates the document and converts it into the vault's config and
// strategy. Relative schedules are anchored at now.
func (d *Document) Resolve(now time.Time) (*Resolved, error) {
	if len(d.Alpha.Mint) == 0 {
		return nil, errors.Wrap(ErrMissingField, "alpha.mint")
	}
	if len(d.Beta.Mint) == 0 {
		return nil, errors.Wrap(ErrMissingField, "beta.mint")
	}

	fixedRate := uint16(vault.DefaultFixedRate)
	if d.FixedRate != nil {
		fixedRate = *d.FixedRate
	}
	if fixedRate > vault.MaxBps {
		return nil, ErrInvalidFixedRate
	}

	startAt, investAt, redeemAt, err := d.schedule(now)
	if err != nil {
		return nil, err
	}

	def, venue, err := d.Strategy.resolve()
	if err != nil {
		return nil, err
	}

	strategy, _, err := def.Address()
	if err != nil {
		return nil, err
	}

	return &Resolved{
		Config: &vault.VaultConfig{
			Strategy:   strategy,
			Authority:  d.Authority.PublicKey(),
			Strategist: d.Strategist.PublicKey(),
			Alpha: vault.AssetConfig{
				UserCap:  d.Alpha.UserCap,
				AssetCap: d.Alpha.AssetCap,
			},
			Beta: vault.AssetConfig{
				UserCap:  d.Beta.UserCap,
				AssetCap: d.Beta.AssetCap,
			},
			FixedRate: fixedRate,
			StartAt:   startAt,
			InvestAt:  investAt,
			RedeemAt:  redeemAt,
		},
		AlphaMint: d.Alpha.Mint.PublicKey(),
		BetaMint:  d.Beta.Mint.PublicKey(),
		Strategy:  def,
		Venue:     venue,
	}, nil
}

func (d *Document) schedule(now time.Time) (startAt, investAt, redeemAt uint64, err error) {
	absolute := d.StartAt != 0 || d.InvestAt != 0 || d.RedeemAt != 0
	if absolute && d.Period != 0 {
		return 0, 0, 0, ErrConflictingTimes
	}

	if absolute {
		if d.StartAt == 0 || d.InvestAt == 0 || d.RedeemAt == 0 {
			return 0, 0, 0, ErrIncompleteSchedule
		}
		return d.StartAt, d.InvestAt, d.RedeemAt, nil
	}

	period := d.Period
	if period == 0 {
		period = DefaultPeriod
	}
	if period < 0 {
		return 0, 0, 0, ErrNonPositivePeriod
	}

	// Rounded up so every timestamp is at least one period out
	seconds := uint64((period + time.Second - 1) / time.Second)
	startAt = uint64(now.Unix()) + seconds
	investAt = startAt + seconds
	redeemAt = investAt + seconds
	return startAt, investAt, redeemAt, nil
}

func (s *Strategy) resolve() (*lifecycle.StrategyDefinition, *lifecycle.VenueAccounts, error) {
	var flag vault.StrategyFlag
	switch strings.ToLower(s.Flag) {
	case vault.StrategyFlagSaber.String():
		flag = vault.StrategyFlagSaber
	case vault.StrategyFlagOrca.String():
		flag = vault.StrategyFlagOrca
	default:
		return nil, nil, errors.Wrapf(ErrUnsupportedVenue, "got %q", s.Flag)
	}

	version := flag.DefaultVersion()
	if s.Version != nil {
		version = vault.StrategyVersion(*s.Version)
	}

	var def *lifecycle.StrategyDefinition
	var venue *lifecycle.VenueAccounts
	switch flag {
	case vault.StrategyFlagSaber:
		if s.Saber == nil || s.Orca != nil {
			return nil, nil, ErrVenueFlagMismatch
		}
		saber := s.Saber
		if err := requireKeys(map[string]Key{
			"strategy.saber.swap":           saber.Swap,
			"strategy.saber.swap_authority": saber.SwapAuthority,
			"strategy.saber.token_a":        saber.TokenA,
			"strategy.saber.token_b":        saber.TokenB,
			"strategy.saber.reserve_a":      saber.ReserveA,
			"strategy.saber.reserve_b":      saber.ReserveB,
			"strategy.saber.pool_mint":      saber.PoolMint,
			"strategy.saber.admin_fees_a":   saber.AdminFeesA,
			"strategy.saber.admin_fees_b":   saber.AdminFeesB,
		}); err != nil {
			return nil, nil, err
		}

		program := saber.Program.PublicKey()
		if program == nil {
			program = vault.SABER_SWAP_PROGRAM_ID
		}

		def = &lifecycle.StrategyDefinition{
			Flag:     flag,
			Version:  version,
			TokenA:   saber.TokenA.PublicKey(),
			TokenB:   saber.TokenB.PublicKey(),
			BasePool: saber.Swap.PublicKey(),
			PoolLp:   saber.PoolMint.PublicKey(),
		}
		venue = &lifecycle.VenueAccounts{
			Flag: flag,
			Saber: &lifecycle.SaberAccounts{
				SaberProgram:  program,
				Swap:          saber.Swap.PublicKey(),
				SwapAuthority: saber.SwapAuthority.PublicKey(),
				TokenA:        saber.TokenA.PublicKey(),
				TokenB:        saber.TokenB.PublicKey(),
				ReserveA:      saber.ReserveA.PublicKey(),
				ReserveB:      saber.ReserveB.PublicKey(),
				PoolMint:      saber.PoolMint.PublicKey(),
				AdminFeesA:    saber.AdminFeesA.PublicKey(),
				AdminFeesB:    saber.AdminFeesB.PublicKey(),
			},
		}
	case vault.StrategyFlagOrca:
		if s.Orca == nil || s.Saber != nil {
			return nil, nil, ErrVenueFlagMismatch
		}
		orca := s.Orca
		if err := requireKeys(map[string]Key{
			"strategy.orca.pool":        orca.Pool,
			"strategy.orca.authority":   orca.Authority,
			"strategy.orca.token_a":     orca.TokenA,
			"strategy.orca.token_b":     orca.TokenB,
			"strategy.orca.reserve_a":   orca.ReserveA,
			"strategy.orca.reserve_b":   orca.ReserveB,
			"strategy.orca.pool_mint":   orca.PoolMint,
			"strategy.orca.fee_account": orca.FeeAccount,
		}); err != nil {
			return nil, nil, err
		}

		program := orca.Program.PublicKey()
		if program == nil {
			program = vault.ORCA_SWAP_PROGRAM_ID
		}

		def = &lifecycle.StrategyDefinition{
			Flag:            flag,
			Version:         version,
			TokenA:          orca.TokenA.PublicKey(),
			TokenB:          orca.TokenB.PublicKey(),
			SwapProgram:     program,
			FarmProgram:     vault.ORCA_FARM_PROGRAM_ID,
			Pool:            orca.Pool.PublicKey(),
			BaseLp:          orca.PoolMint.PublicKey(),
			DoubleDipFarmLp: orca.DoubleDipFarmLp.PublicKey(),
		}
		accounts := &lifecycle.OrcaAccounts{
			SwapProgram: program,
			Pool:        orca.Pool.PublicKey(),
			Authority:   orca.Authority.PublicKey(),
			TokenA:      orca.TokenA.PublicKey(),
			TokenB:      orca.TokenB.PublicKey(),
			ReserveA:    orca.ReserveA.PublicKey(),
			ReserveB:    orca.ReserveB.PublicKey(),
			PoolMint:    orca.PoolMint.PublicKey(),
			FeeAccount:  orca.FeeAccount.PublicKey(),
		}

		if orca.Farm != nil {
			farm, err := orca.Farm.resolve()
			if err != nil {
				return nil, nil, err
			}
			accounts.Farm = farm

			def.FarmProgram = farm.AquafarmProgram
			def.Farm = farm.GlobalFarm
			def.FarmLp = farm.FarmTokenMint
		}

		venue = &lifecycle.VenueAccounts{
			Flag: flag,
			Orca: accounts,
		}
	}

	if err := venue.Validate(); err != nil {
		return nil, nil, err
	}
	return def, venue, nil
}

func (f *Farm) resolve() (*lifecycle.OrcaFarmAccounts, error) {
	if err := requireKeys(map[string]Key{
		"strategy.orca.farm.global_farm":               f.GlobalFarm,
		"strategy.orca.farm.global_base_token_vault":   f.GlobalBaseTokenVault,
		"strategy.orca.farm.global_reward_token_vault": f.GlobalRewardTokenVault,
		"strategy.orca.farm.farm_token_mint":           f.FarmTokenMint,
		"strategy.orca.farm.reward_mint":               f.RewardMint,
		"strategy.orca.farm.farm_authority":            f.FarmAuthority,
	}); err != nil {
		return nil, err
	}

	program := f.Program.PublicKey()
	if program == nil {
		program = vault.ORCA_FARM_PROGRAM_ID
	}

	farm := &lifecycle.OrcaFarmAccounts{
		AquafarmProgram:        program,
		GlobalFarm:             f.GlobalFarm.PublicKey(),
		GlobalBaseTokenVault:   f.GlobalBaseTokenVault.PublicKey(),
		GlobalRewardTokenVault: f.GlobalRewardTokenVault.PublicKey(),
		FarmTokenMint:          f.FarmTokenMint.PublicKey(),
		RewardMint:             f.RewardMint.PublicKey(),
		FarmAuthority:          f.FarmAuthority.PublicKey(),
	}

	if pool := f.RewardPool; pool != nil {
		if err := requireKeys(map[string]Key{
			"strategy.orca.farm.reward_pool.pool":             pool.Pool,
			"strategy.orca.farm.reward_pool.authority":        pool.Authority,
			"strategy.orca.farm.reward_pool.pool_source":      pool.PoolSource,
			"strategy.orca.farm.reward_pool.pool_destination": pool.PoolDestination,
			"strategy.orca.farm.reward_pool.pool_mint":        pool.PoolMint,
			"strategy.orca.farm.reward_pool.fee_account":      pool.FeeAccount,
			"strategy.orca.farm.reward_pool.output_mint":      pool.OutputMint,
		}); err != nil {
			return nil, err
		}

		farm.RewardPool = &lifecycle.OrcaRewardPoolAccounts{
			Pool:            pool.Pool.PublicKey(),
			Authority:       pool.Authority.PublicKey(),
			PoolSource:      pool.PoolSource.PublicKey(),
			PoolDestination: pool.PoolDestination.PublicKey(),
			PoolMint:        pool.PoolMint.PublicKey(),
			FeeAccount:      pool.FeeAccount.PublicKey(),
			OutputMint:      pool.OutputMint.PublicKey(),
		}
	}

	return farm, nil
}

func requireKeys(keys map[string]Key) error {
	var missing []string
	for name, key := range keys {
		if len(key) == 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	sort.Strings(missing)
	return errors.Wrap(ErrMissingField, strings.Join(missing, ", "))
}
