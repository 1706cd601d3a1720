package main

import (
	"crypto/ed25519"
	"strings"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/tranche-vault/pkg/journal"
	"github.com/code-payments/tranche-vault/pkg/lifecycle"
	"github.com/code-payments/tranche-vault/pkg/solana/vault"
	"github.com/code-payments/tranche-vault/pkg/tranche"
	"github.com/code-payments/tranche-vault/pkg/vaultconfig"
)

type trancheView struct {
	Mint              string  `yaml:"mint"`
	Lp                string  `yaml:"lp"`
	AssetCap          *uint64 `yaml:"asset_cap,omitempty"`
	UserCap           *uint64 `yaml:"user_cap,omitempty"`
	Deposits          uint64  `yaml:"deposits"`
	Deposited         uint64  `yaml:"deposited"`
	Invested          uint64  `yaml:"invested"`
	Excess            uint64  `yaml:"excess"`
	Received          uint64  `yaml:"received"`
	RolloverDeposited uint64  `yaml:"rollover_deposited,omitempty"`
	ClaimsProcessed   bool    `yaml:"claims_processed"`
}

type vaultView struct {
	Address        string      `yaml:"address"`
	Authority      string      `yaml:"authority"`
	Strategy       string      `yaml:"strategy"`
	State          string      `yaml:"state"`
	PredictedState string      `yaml:"predicted_state"`
	FixedRate      uint16      `yaml:"fixed_rate"`
	StartAt        string      `yaml:"start_at"`
	InvestAt       string      `yaml:"invest_at"`
	RedeemAt       string      `yaml:"redeem_at"`
	Invested       bool        `yaml:"invested"`
	Alpha          trancheView `yaml:"alpha"`
	Beta           trancheView `yaml:"beta"`
}

func newTrancheView(asset *vault.Asset) trancheView {
	return trancheView{
		Mint:              base58.Encode(asset.Mint),
		Lp:                base58.Encode(asset.Lp),
		AssetCap:          asset.AssetCap,
		UserCap:           asset.UserCap,
		Deposits:          asset.Deposits,
		Deposited:         asset.Deposited,
		Invested:          asset.Invested,
		Excess:            asset.Excess,
		Received:          asset.Received,
		RolloverDeposited: asset.RolloverDeposited,
		ClaimsProcessed:   asset.ClaimsProcessed,
	}
}

func newVaultView(address ed25519.PublicKey, v *vault.VaultAccount, predicted vault.State) vaultView {
	return vaultView{
		Address:        base58.Encode(address),
		Authority:      base58.Encode(v.Authority),
		Strategy:       base58.Encode(v.Strategy),
		State:          v.State.String(),
		PredictedState: predicted.String(),
		FixedRate:      v.FixedRate,
		StartAt:        formatUnix(v.StartAt),
		InvestAt:       formatUnix(v.InvestAt),
		RedeemAt:       formatUnix(v.RedeemAt),
		Invested:       tranche.IsInvested(v),
		Alpha:          newTrancheView(&v.Alpha),
		Beta:           newTrancheView(&v.Beta),
	}
}

type swapView struct {
	Direction     string `yaml:"direction"`
	AmountIn      uint64 `yaml:"amount_in"`
	ExpectedOut   uint64 `yaml:"expected_out"`
	MinOut        uint64 `yaml:"min_out"`
	RequiredAlpha uint64 `yaml:"required_alpha"`
}

type estimateView struct {
	Lp              uint64    `yaml:"lp"`
	RedeemableA     uint64    `yaml:"redeemable_a"`
	RedeemableB     uint64    `yaml:"redeemable_b"`
	MinTokenA       uint64    `yaml:"min_token_a"`
	MinTokenB       uint64    `yaml:"min_token_b"`
	RedeemableAlpha uint64    `yaml:"redeemable_alpha"`
	RedeemableBeta  uint64    `yaml:"redeemable_beta"`
	Swap            *swapView `yaml:"swap,omitempty"`
}

func newEstimateView(est *lifecycle.RedemptionEstimate) estimateView {
	view := estimateView{
		Lp:              est.Lp,
		RedeemableA:     est.RedeemableA,
		RedeemableB:     est.RedeemableB,
		MinTokenA:       est.MinTokenA,
		MinTokenB:       est.MinTokenB,
		RedeemableAlpha: est.RedeemableAlpha,
		RedeemableBeta:  est.RedeemableBeta,
	}
	if est.Plan != nil {
		view.Swap = &swapView{
			Direction:     est.Plan.Direction.String(),
			AmountIn:      est.Plan.AmountIn,
			ExpectedOut:   est.Plan.ExpectedOut,
			MinOut:        est.Plan.MinOut,
			RequiredAlpha: est.Plan.RequiredAlpha,
		}
	}
	return view
}

type recordView struct {
	Id        uint64 `yaml:"id"`
	Signature string `yaml:"signature"`
	Operation string `yaml:"operation"`
	Mint      string `yaml:"mint,omitempty"`
	Owner     string `yaml:"owner,omitempty"`
	Amount    uint64 `yaml:"amount,omitempty"`
	State     string `yaml:"state"`
	CreatedAt string `yaml:"created_at"`
}

func newRecordView(record *journal.Record) recordView {
	return recordView{
		Id:        record.Id,
		Signature: record.Signature,
		Operation: string(record.Operation),
		Mint:      record.Mint,
		Owner:     record.Owner,
		Amount:    record.Amount,
		State:     record.State.String(),
		CreatedAt: record.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// placeholder fills every account in a template so it round trips through
// Parse. It's the system program's address.
var placeholder = vaultconfig.Key(make([]byte, ed25519.PublicKeySize))

func templateDocument(venue string) (*vaultconfig.Document, error) {
	userCap := uint64(1_000_000_000)
	fixedRate := uint16(vault.DefaultFixedRate)

	doc := &vaultconfig.Document{
		Alpha:     vaultconfig.Tranche{Mint: placeholder, UserCap: &userCap},
		Beta:      vaultconfig.Tranche{Mint: placeholder},
		FixedRate: &fixedRate,
		Period:    time.Minute,
	}

	switch strings.ToLower(venue) {
	case "saber":
		doc.Strategy = vaultconfig.Strategy{
			Flag: "saber",
			Saber: &vaultconfig.Saber{
				Swap:          placeholder,
				SwapAuthority: placeholder,
				TokenA:        placeholder,
				TokenB:        placeholder,
				ReserveA:      placeholder,
				ReserveB:      placeholder,
				PoolMint:      placeholder,
				AdminFeesA:    placeholder,
				AdminFeesB:    placeholder,
			},
		}
	case "orca":
		doc.Strategy = vaultconfig.Strategy{
			Flag: "orca",
			Orca: &vaultconfig.Orca{
				Pool:       placeholder,
				Authority:  placeholder,
				TokenA:     placeholder,
				TokenB:     placeholder,
				ReserveA:   placeholder,
				ReserveB:   placeholder,
				PoolMint:   placeholder,
				FeeAccount: placeholder,
			},
		}
	default:
		return nil, errors.Errorf("unsupported venue %q", venue)
	}

	return doc, nil
}
