package vault

import (
	"fmt"

	"github.com/code-payments/tranche-vault/pkg/solana"
)

// ProgramError is a custom error code returned by the vault program.
type ProgramError uint32

const (
	// Protocol is paused
	ErrProtocolPaused ProgramError = iota + 0x1770

	// Math operation overflowed or underflowed
	ErrMathError

	// Public key did not match the expected account
	ErrPublicKeyMismatch

	// Bump did not match the derived bump
	ErrBumpMismatch

	// Mint authority is not the vault
	ErrInvalidMintAuthority

	// Account is not initialized
	ErrUninitializedAccount

	// Account owner is incorrect
	ErrIncorrectOwner

	// Public keys should be unique
	ErrPublicKeysShouldBeUnique

	// Account is already initialized
	ErrAccountAlreadyInitialized

	// Token balance is insufficient
	ErrInsufficientTokenBalance

	// Requested token ratio is impossible
	ErrImpossibleTokenRatioRequested

	// Vault state transition is invalid
	ErrInvalidStateTransition

	// Missing transition timestamp for state
	ErrMissingTransitionAtTimeForState

	// Vault has no deposits
	ErrVaultHasNoDeposits

	// Deposit is invalid for this vault
	ErrInvalidDepositForVault

	// Account owner is wrong
	ErrWrongAccountOwner

	// Account data is invalid
	ErrInvalidProgramAccountData

	// Strategy flag is invalid
	ErrProgramInvalidStrategyFlag

	// Strategy already exists
	ErrStrategyAlreadyExists

	// Vault is not in a valid state for this instruction
	ErrInvalidVaultState

	// Mint is not an asset of this vault
	ErrNonexistentAsset

	// LP mint does not match the tranche
	ErrInvalidLpMint

	// Deposit exceeds the per-user cap
	ErrDepositExceedsUserCap

	// Deposit exceeds the tranche cap
	ErrAssetCapExceeded

	// Withdrawals require LP tokens
	ErrCannotWithdrawWithoutLpTokens

	// Data type mismatch
	ErrDataTypeMismatch

	// Slippage too high
	ErrSlippageTooHigh

	// Both tranches cannot have excess
	ErrDualSidedExcessNotPossible

	// Derived key is invalid
	ErrDerivedKeyInvalid

	// Remaining accounts index is invalid
	ErrInvalidRemainingAccountsIndex

	// Required field is missing
	ErrMissingRequiredField

	// Required config is missing
	ErrMissingRequiredConfig

	// Farm vault already exists
	ErrCannotReinstantiateFarmVault

	// Farm vault is missing
	ErrMissingFarmVault

	// Authority is unexpected
	ErrUnexpectedAuthority

	// Mint decimals do not match
	ErrDecimalMismatch

	// LP tokens were already claimed
	ErrAlreadyClaimedLpTokens

	// Unable to write to a remaining account
	ErrUnableToWriteToRemainingAccount
)

var programErrorNames = map[ProgramError]string{
	ErrProtocolPaused:                  "ProtocolPaused",
	ErrMathError:                       "MathError",
	ErrPublicKeyMismatch:               "PublicKeyMismatch",
	ErrBumpMismatch:                    "BumpMismatch",
	ErrInvalidMintAuthority:            "InvalidMintAuthority",
	ErrUninitializedAccount:            "UninitializedAccount",
	ErrIncorrectOwner:                  "IncorrectOwner",
	ErrPublicKeysShouldBeUnique:        "PublicKeysShouldBeUnique",
	ErrAccountAlreadyInitialized:       "AccountAlreadyInitialized",
	ErrInsufficientTokenBalance:        "InsufficientTokenBalance",
	ErrImpossibleTokenRatioRequested:   "ImpossibleTokenRatioRequested",
	ErrInvalidStateTransition:          "InvalidStateTransition",
	ErrMissingTransitionAtTimeForState: "MissingTransitionAtTimeForState",
	ErrVaultHasNoDeposits:              "VaultHasNoDeposits",
	ErrInvalidDepositForVault:          "InvalidDepositForVault",
	ErrWrongAccountOwner:               "WrongAccountOwner",
	ErrInvalidProgramAccountData:       "InvalidAccountData",
	ErrProgramInvalidStrategyFlag:      "InvalidStrategyFlag",
	ErrStrategyAlreadyExists:           "StrategyAlreadyExists",
	ErrInvalidVaultState:               "InvalidVaultState",
	ErrNonexistentAsset:                "NonexistentAsset",
	ErrInvalidLpMint:                   "InvalidLpMint",
	ErrDepositExceedsUserCap:           "DepositExceedsUserCap",
	ErrAssetCapExceeded:                "AssetCapExceeded",
	ErrCannotWithdrawWithoutLpTokens:   "CannotWithdrawWithoutLpTokens",
	ErrDataTypeMismatch:                "DataTypeMismatch",
	ErrSlippageTooHigh:                 "SlippageTooHigh",
	ErrDualSidedExcessNotPossible:      "DualSidedExcesssNotPossible",
	ErrDerivedKeyInvalid:               "DerivedKeyInvalid",
	ErrInvalidRemainingAccountsIndex:   "InvalidRemainingAccountsIndex",
	ErrMissingRequiredField:            "MissingRequiredField",
	ErrMissingRequiredConfig:           "MissingRequiredConfig",
	ErrCannotReinstantiateFarmVault:    "CannotReinstantiateFarmVault",
	ErrMissingFarmVault:                "MissingFarmVault",
	ErrUnexpectedAuthority:             "UnexpectedAuthority",
	ErrDecimalMismatch:                 "DecimalMismatch",
	ErrAlreadyClaimedLpTokens:          "AlreadyClaimedLpTokens",
	ErrUnableToWriteToRemainingAccount: "UnableToWriteToRemainingAccount",
}

func (e ProgramError) Error() string {
	name, ok := programErrorNames[e]
	if !ok {
		return fmt.Sprintf("vault program error: %#x", uint32(e))
	}
	return fmt.Sprintf("vault program error: %s (%#x)", name, uint32(e))
}

// ToCustomError converts the program error into the instruction error that
// the runtime reports for it.
func (e ProgramError) ToCustomError() solana.CustomError {
	return solana.CustomError(e)
}

// ParseProgramError extracts a vault program error from a failed
// transaction. It returns nil if the failure wasn't a vault custom error.
func ParseProgramError(txErr *solana.TransactionError) *ProgramError {
	if txErr == nil {
		return nil
	}

	instructionErr := txErr.InstructionError()
	if instructionErr == nil {
		return nil
	}

	custom := instructionErr.CustomError()
	if custom == nil {
		return nil
	}

	programErr := ProgramError(*custom)
	if _, ok := programErrorNames[programErr]; !ok {
		return nil
	}
	return &programErr
}
