package vault

import (
	"crypto/ed25519"
	"errors"
)

var (
	ErrInvalidProgram         = errors.New("invalid program id")
	ErrInvalidAccountData     = errors.New("unexpected account data")
	ErrInvalidInstructionData = errors.New("unexpected instruction data")
	ErrInvalidStrategyFlag    = errors.New("invalid strategy flag")
)

var (
	PROGRAM_ADDRESS = mustBase58Decode("CRDRY8VKkjPBBoyurn3jQdy7n2TjgexDqfePno5gnQxV")
	PROGRAM_ID      = ed25519.PublicKey(PROGRAM_ADDRESS)
)

var (
	SYSTEM_PROGRAM_ID               = ed25519.PublicKey(mustBase58Decode("11111111111111111111111111111111"))
	SPL_TOKEN_PROGRAM_ID            = ed25519.PublicKey(mustBase58Decode("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"))
	SPL_ASSOCIATED_TOKEN_PROGRAM_ID = ed25519.PublicKey(mustBase58Decode("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"))

	SYSVAR_RENT_PUBKEY = ed25519.PublicKey(mustBase58Decode("SysvarRent111111111111111111111111111111111"))
)

var (
	SABER_SWAP_PROGRAM_ID = ed25519.PublicKey(mustBase58Decode("SSwpkEEcbUqx4vtoEByFjSkhKdCT862DNVb52nZg1UZ"))

	ORCA_SWAP_PROGRAM_ID        = ed25519.PublicKey(mustBase58Decode("9W959DqEETiGZocYWCQPaJ6sBmUzgfxXfqGeTEdp3aQP"))
	ORCA_SWAP_DEVNET_PROGRAM_ID = ed25519.PublicKey(mustBase58Decode("3xQ8SWv2GaFXXpHZNqkXsdxq5DZciHBz6ZFoPPfbFd7U"))
	ORCA_FARM_PROGRAM_ID        = ed25519.PublicKey(mustBase58Decode("82yxjeMsvaURa4MbZZ7WZZHfobirZYkH1zF8fmeGtyaQ"))
)

// Wrapped SOL
var (
	NATIVE_MINT          = ed25519.PublicKey(mustBase58Decode("So11111111111111111111111111111111111111112"))
	NATIVE_MINT_DECIMALS = uint8(9)
)

const (
	MaxBps = 10_000

	DefaultFixedRate = 1_000
)
