package vault

import (
	"crypto/ed25519"

	"github.com/code-payments/tranche-vault/pkg/solana"
)

var (
	GlobalStatePrefix = []byte("globalstate")
	VaultPrefix       = []byte("vault")
	FarmVaultPrefix   = []byte("farmvault")
	StrategyPrefix    = []byte("strategy")
	ReceiptPrefix     = []byte("receipt")
	HistoryPrefix     = []byte("history")
)

func GetGlobalProtocolStateAddress() (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		GlobalStatePrefix,
	)
}

type GetVaultAddressArgs struct {
	Authority ed25519.PublicKey
}

// GetVaultAddress derives the vault PDA. There is at most one vault per
// authority.
func GetVaultAddress(args *GetVaultAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		VaultPrefix,
		args.Authority,
	)
}

type GetFarmVaultAddressArgs struct {
	Vault ed25519.PublicKey
}

func GetFarmVaultAddress(args *GetFarmVaultAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		FarmVaultPrefix,
		args.Vault,
	)
}

type GetHistoryAddressArgs struct {
	Vault     ed25519.PublicKey
	Mint      ed25519.PublicKey
	Depositor ed25519.PublicKey
}

func GetHistoryAddress(args *GetHistoryAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		HistoryPrefix,
		args.Vault,
		args.Mint,
		args.Depositor,
	)
}

type GetReceiptAddressArgs struct {
	Vault        ed25519.PublicKey
	Mint         ed25519.PublicKey
	DepositIndex uint64
}

func GetReceiptAddress(args *GetReceiptAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		ReceiptPrefix,
		args.Vault,
		args.Mint,
		uint64ToBytes(args.DepositIndex),
	)
}

type GetSaberStrategyAddressArgs struct {
	Flag     StrategyFlag
	Version  StrategyVersion
	TokenA   ed25519.PublicKey
	TokenB   ed25519.PublicKey
	BasePool ed25519.PublicKey
	PoolLp   ed25519.PublicKey
}

func GetSaberStrategyAddress(args *GetSaberStrategyAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		StrategyPrefix,
		uint64ToBytes(uint64(args.Flag)),
		uint16ToBytes(uint16(args.Version)),
		args.TokenA,
		args.TokenB,
		args.BasePool,
		args.PoolLp,
	)
}

type GetOrcaStrategyAddressArgs struct {
	Flag    StrategyFlag
	Version StrategyVersion
	TokenA  ed25519.PublicKey
	TokenB  ed25519.PublicKey
	Pool    ed25519.PublicKey
	BaseLp  ed25519.PublicKey
	Farm    ed25519.PublicKey
	FarmLp  ed25519.PublicKey
}

func GetOrcaStrategyAddress(args *GetOrcaStrategyAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		StrategyPrefix,
		uint64ToBytes(uint64(args.Flag)),
		uint16ToBytes(uint16(args.Version)),
		args.TokenA,
		args.TokenB,
		args.Pool,
		args.BaseLp,
		args.Farm,
		args.FarmLp,
	)
}
