package vaulttest

import (
	"bytes"
	"crypto/ed25519"

	"github.com/code-payments/tranche-vault/pkg/solana/system"
	"github.com/code-payments/tranche-vault/pkg/solana/token"
)

func (p *Program) executeSystem(txn *transaction, i int) error {
	switch {
	case system.IsCreateAccount(txn.message, i):
		ixn, err := system.DecompileCreateAccount(txn.message, i)
		if err != nil {
			return errInvalidData
		}
		if !txn.isSigner(ixn.Funder) || !txn.isSigner(ixn.Address) {
			return errMissingSignature
		}
		if p.exists(ixn.Address) {
			return ErrAccountAlreadyInUse
		}
		if err := p.debit(ixn.Funder, ixn.Lamports); err != nil {
			return err
		}

		p.accounts[string(ixn.Address)] = &account{
			owner:    ixn.Owner,
			lamports: ixn.Lamports,
			data:     make([]byte, ixn.Size),
		}
		return nil
	case system.IsTransfer(txn.message, i):
		ixn, err := system.DecompileTransfer(txn.message, i)
		if err != nil {
			return errInvalidData
		}
		if !txn.isSigner(ixn.From) {
			return errMissingSignature
		}
		if err := p.debit(ixn.From, ixn.Lamports); err != nil {
			return err
		}
		p.credit(ixn.To, ixn.Lamports)
		return nil
	}
	return errInvalidData
}

func (p *Program) executeToken(txn *transaction, i int) error {
	cmd, err := token.GetCommand(txn.message, i)
	if err != nil {
		return errInvalidData
	}

	switch cmd {
	case token.CommandInitializeMint:
		ixn, err := token.DecompileInitializeMint(txn.message, i)
		if err != nil {
			return errInvalidData
		}

		acc, ok := p.accounts[string(ixn.Mint)]
		if !ok || !bytes.Equal(acc.owner, token.ProgramKey) || len(acc.data) != token.MintSize {
			return errInvalidAccountData
		}
		var existing token.Mint
		if existing.Unmarshal(acc.data) && existing.IsInitialized {
			return errTokenAlreadyInUse
		}

		p.putMint(ixn.Mint, &token.Mint{
			MintAuthority:   ixn.MintAuthority,
			Decimals:        ixn.Decimals,
			IsInitialized:   true,
			FreezeAuthority: ixn.FreezeAuthority,
		})
		return nil
	case token.CommandTransfer:
		ixn, err := token.DecompileTransfer(txn.message, i)
		if err != nil {
			return errInvalidData
		}
		if !txn.isSigner(ixn.Owner) {
			return errMissingSignature
		}
		return p.transferTokens(ixn.Source, ixn.Destination, ixn.Owner, ixn.Amount)
	case token.CommandMintTo:
		ixn, err := token.DecompileMintTo(txn.message, i)
		if err != nil {
			return errInvalidData
		}
		if !txn.isSigner(ixn.MintAuthority) {
			return errMissingSignature
		}
		mint, err := p.getMint(ixn.Mint)
		if err != nil {
			return err
		}
		if !bytes.Equal(mint.MintAuthority, ixn.MintAuthority) {
			return errTokenOwnerMismatch
		}
		return p.mintTokens(ixn.Mint, ixn.Destination, ixn.Amount)
	case token.CommandBurn:
		ixn, err := token.DecompileBurn(txn.message, i)
		if err != nil {
			return errInvalidData
		}
		if !txn.isSigner(ixn.Owner) {
			return errMissingSignature
		}
		return p.burnTokens(ixn.Account, ixn.Mint, ixn.Owner, ixn.Amount)
	case token.CommandCloseAccount:
		ixn, err := token.DecompileCloseAccount(txn.message, i)
		if err != nil {
			return errInvalidData
		}
		if !txn.isSigner(ixn.Owner) {
			return errMissingSignature
		}

		tokenAccount, err := p.getTokenAccount(ixn.Account)
		if err != nil {
			return err
		}
		if !bytes.Equal(tokenAccount.Owner, ixn.Owner) {
			return errTokenOwnerMismatch
		}
		if tokenAccount.IsNative == nil && tokenAccount.Amount > 0 {
			return errTokenNonNativeHasBalance
		}

		p.credit(ixn.Destination, p.accounts[string(ixn.Account)].lamports)
		delete(p.accounts, string(ixn.Account))
		return nil
	case token.CommandSyncNative:
		ixn, err := token.DecompileSyncNative(txn.message, i)
		if err != nil {
			return errInvalidData
		}

		tokenAccount, err := p.getTokenAccount(ixn.Account)
		if err != nil {
			return err
		}
		if tokenAccount.IsNative == nil {
			return errInvalidAccountData
		}

		lamports := p.accounts[string(ixn.Account)].lamports
		if lamports < *tokenAccount.IsNative {
			return errInsufficientFunds
		}
		tokenAccount.Amount = lamports - *tokenAccount.IsNative
		p.putTokenAccount(ixn.Account, tokenAccount)
		return nil
	}

	return errInvalidData
}

func (p *Program) executeAssociated(txn *transaction, i int) error {
	ixn, err := token.DecompileCreateAssociatedAccount(txn.message, i)
	if err != nil {
		return errInvalidData
	}
	if !txn.isSigner(ixn.Subsidizer) {
		return errMissingSignature
	}

	expected, err := token.GetAssociatedAccount(ixn.Owner, ixn.Mint)
	if err != nil || !bytes.Equal(expected, ixn.Address) {
		return errInvalidSeeds
	}

	if p.exists(ixn.Address) {
		if !ixn.Idempotent {
			return ErrAccountAlreadyInUse
		}

		existing, err := p.getTokenAccount(ixn.Address)
		if err != nil {
			return err
		}
		if !bytes.Equal(existing.Owner, ixn.Owner) || !bytes.Equal(existing.Mint, ixn.Mint) {
			return errInvalidAccountData
		}
		return nil
	}

	return p.createAssociatedAccount(ixn.Subsidizer, ixn.Owner, ixn.Mint)
}

// createAssociatedAccount funds and initializes owner's associated token
// account for mint.
func (p *Program) createAssociatedAccount(funder, owner, mint ed25519.PublicKey) error {
	address, err := token.GetAssociatedAccount(owner, mint)
	if err != nil {
		return errInvalidSeeds
	}
	if p.exists(address) {
		return ErrAccountAlreadyInUse
	}
	if err := p.debit(funder, Rent(token.AccountSize)); err != nil {
		return err
	}
	return p.initTokenAccount(address, owner, mint)
}
