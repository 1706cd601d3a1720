// Package vaulttest executes vault program transactions against an in-memory
// ledger. It models the system, token, associated token account and vault
// programs closely enough to run full vault lifecycles in unit tests.
package vaulttest

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"sync"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/tranche-vault/pkg/solana"
	"github.com/code-payments/tranche-vault/pkg/solana/system"
	"github.com/code-payments/tranche-vault/pkg/solana/token"
	"github.com/code-payments/tranche-vault/pkg/solana/vault"
)

const (
	lamportsPerByteYear    = 3480
	exemptionThresholdYrs  = 2
	accountStorageOverhead = 128
)

// Instruction level failures reported by the built-in programs.
var (
	errMissingSignature   = errors.New(string(solana.InstructionErrorMissingRequiredSignature))
	errInvalidAccountData = errors.New(string(solana.InstructionErrorInvalidAccountData))
	errInvalidData        = errors.New(string(solana.InstructionErrorInvalidInstructionData))
	errUninitialized      = errors.New(string(solana.InstructionErrorUninitializedAccount))
	errNotEnoughKeys      = errors.New(string(solana.InstructionErrorNotEnoughAccountKeys))
	errIncorrectProgram   = errors.New(string(solana.InstructionErrorIncorrectProgramID))
	errInvalidSeeds       = errors.New(string(solana.InstructionErrorInvalidSeeds))
	errInsufficientFunds  = errors.New(string(solana.InstructionErrorInsufficientFunds))
)

// Custom error codes of the system and token programs.
const (
	// ErrAccountAlreadyInUse is returned by the system program when an
	// account being created already exists.
	ErrAccountAlreadyInUse solana.CustomError = 0

	errResultWithNegativeLamports solana.CustomError = 1

	errTokenInsufficientFunds   solana.CustomError = 1
	errTokenMintMismatch        solana.CustomError = 3
	errTokenOwnerMismatch       solana.CustomError = 4
	errTokenAlreadyInUse        solana.CustomError = 6
	errTokenNonNativeHasBalance solana.CustomError = 11
)

type account struct {
	owner    ed25519.PublicKey
	lamports uint64
	data     []byte
}

func (a *account) clone() *account {
	return &account{
		owner:    a.owner,
		lamports: a.lamports,
		data:     append([]byte(nil), a.data...),
	}
}

// Clock is a settable time source shared by the program and the code under
// test.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Program is an in-memory ledger plus the programs that mutate it.
type Program struct {
	log   *logrus.Entry
	clock *Clock

	mu       sync.Mutex
	accounts map[string]*account
	pools    map[string]*Pool
	txCount  uint64
}

func NewProgram(clock *Clock) *Program {
	p := &Program{
		log:      logrus.StandardLogger().WithField("type", "vaulttest/program"),
		clock:    clock,
		accounts: make(map[string]*account),
		pools:    make(map[string]*Pool),
	}

	nativeMint := &token.Mint{
		Decimals:      vault.NATIVE_MINT_DECIMALS,
		IsInitialized: true,
	}
	p.accounts[string(vault.NATIVE_MINT)] = &account{
		owner:    token.ProgramKey,
		lamports: Rent(token.MintSize),
		data:     nativeMint.Marshal(),
	}

	return p
}

// Clock returns the clock the program transitions vaults by.
func (p *Program) Clock() *Clock {
	return p.clock
}

// Rent is the rent exempt minimum balance for an account of size bytes.
func Rent(size uint64) uint64 {
	return (accountStorageOverhead + size) * lamportsPerByteYear * exemptionThresholdYrs
}

// Submit signs and executes a transaction. All instructions apply or none
// do. Failures are returned as *solana.TransactionError.
func (p *Program) Submit(ctx context.Context, signers []ed25519.PrivateKey, ixns ...solana.Instruction) (solana.Signature, error) {
	if err := ctx.Err(); err != nil {
		return solana.Signature{}, err
	}
	if len(signers) == 0 {
		return solana.Signature{}, errors.New("at least one signer is required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	payer := signers[0].Public().(ed25519.PublicKey)
	tx := solana.NewTransaction(payer, ixns...)

	p.txCount++
	tx.SetBlockhash(blockhashFor(p.txCount))

	if err := tx.Sign(signers...); err != nil {
		return solana.Signature{}, errors.Wrap(err, "failed to sign transaction")
	}
	for i := 0; i < int(tx.Message.Header.NumSignatures); i++ {
		if tx.Signatures[i] == (solana.Signature{}) {
			return solana.Signature{}, solana.NewTransactionError(solana.TransactionErrorSignatureFailure)
		}
	}

	txn := &transaction{
		message: tx.Message,
		signers: make(map[string]struct{}),
	}
	for i := 0; i < int(tx.Message.Header.NumSignatures); i++ {
		txn.signers[string(tx.Message.Accounts[i])] = struct{}{}
	}

	snapshot := make(map[string]*account, len(p.accounts))
	for k, v := range p.accounts {
		snapshot[k] = v.clone()
	}

	for i := range tx.Message.Instructions {
		if err := p.execute(txn, i); err != nil {
			p.accounts = snapshot

			p.log.WithError(err).WithFields(logrus.Fields{
				"method":      "Submit",
				"instruction": i,
			}).Debug("transaction failed")

			return solana.Signature{}, toTransactionError(i, err)
		}
	}

	var sig solana.Signature
	copy(sig[:], tx.Signature())
	return sig, nil
}

type transaction struct {
	message solana.Message
	signers map[string]struct{}
}

func (t *transaction) isSigner(key ed25519.PublicKey) bool {
	_, ok := t.signers[string(key)]
	return ok
}

// keys resolves the account list of instruction i.
func (t *transaction) keys(i int) []ed25519.PublicKey {
	ci := t.message.Instructions[i]
	keys := make([]ed25519.PublicKey, len(ci.Accounts))
	for j, idx := range ci.Accounts {
		keys[j] = t.message.Accounts[idx]
	}
	return keys
}

func (p *Program) execute(txn *transaction, i int) error {
	ci := txn.message.Instructions[i]
	program := txn.message.Accounts[ci.ProgramIndex]

	switch {
	case bytes.Equal(program, system.ProgramKey[:]):
		return p.executeSystem(txn, i)
	case bytes.Equal(program, token.ProgramKey):
		return p.executeToken(txn, i)
	case bytes.Equal(program, token.AssociatedTokenAccountProgramKey):
		return p.executeAssociated(txn, i)
	case bytes.Equal(program, vault.PROGRAM_ID):
		return p.executeVault(txn, i)
	}
	return errIncorrectProgram
}

func toTransactionError(index int, err error) error {
	var cause error
	switch e := err.(type) {
	case vault.ProgramError:
		cause = e.ToCustomError()
	default:
		cause = err
	}

	txErr, convErr := solana.TransactionErrorFromInstructionError(&solana.InstructionError{
		Index: index,
		Err:   cause,
	})
	if convErr != nil {
		return errors.Wrap(convErr, "failed to build transaction error")
	}
	return txErr
}

func blockhashFor(n uint64) solana.Blockhash {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], n)
	return sha256.Sum256(b[:])
}

// GetAccountData returns a copy of the account's data, or
// solana.ErrNoAccountInfo when the account doesn't exist.
func (p *Program) GetAccountData(_ context.Context, address ed25519.PublicKey) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	acc, ok := p.accounts[string(address)]
	if !ok {
		return nil, solana.ErrNoAccountInfo
	}
	return append([]byte(nil), acc.data...), nil
}

// GetTokenBalance returns the amount held by a token account.
func (p *Program) GetTokenBalance(_ context.Context, address ed25519.PublicKey) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.accounts[string(address)]; !ok {
		return 0, solana.ErrNoAccountInfo
	}
	tokenAccount, err := p.getTokenAccount(address)
	if err != nil {
		return 0, errors.Wrapf(err, "%s is not a token account", base58.Encode(address))
	}
	return tokenAccount.Amount, nil
}

func (p *Program) GetMinimumBalanceForRentExemption(_ context.Context, size uint64) (uint64, error) {
	return Rent(size), nil
}

// Lamports returns the native balance of an account.
func (p *Program) Lamports(address ed25519.PublicKey) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	acc, ok := p.accounts[string(address)]
	if !ok {
		return 0
	}
	return acc.lamports
}

// Airdrop credits lamports to a system account, creating it if needed.
func (p *Program) Airdrop(address ed25519.PublicKey, lamports uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	acc, ok := p.accounts[string(address)]
	if !ok {
		acc = &account{owner: system.ProgramKey[:]}
		p.accounts[string(address)] = acc
	}
	acc.lamports += lamports
}

// CreateMint creates and initializes a new mint.
func (p *Program) CreateMint(authority ed25519.PublicKey, decimals uint8) ed25519.PublicKey {
	address := newKey()

	p.mu.Lock()
	defer p.mu.Unlock()

	mint := &token.Mint{
		MintAuthority: authority,
		Decimals:      decimals,
		IsInitialized: true,
	}
	p.accounts[string(address)] = &account{
		owner:    token.ProgramKey,
		lamports: Rent(token.MintSize),
		data:     mint.Marshal(),
	}
	return address
}

// CreateTokenAccount creates the owner's associated token account for mint
// if it doesn't already exist and returns its address.
func (p *Program) CreateTokenAccount(owner, mint ed25519.PublicKey) (ed25519.PublicKey, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	address, err := token.GetAssociatedAccount(owner, mint)
	if err != nil {
		return nil, err
	}
	if _, ok := p.accounts[string(address)]; ok {
		return address, nil
	}
	if err := p.initTokenAccount(address, owner, mint); err != nil {
		return nil, err
	}
	return address, nil
}

// MintTo credits tokens to a token account without requiring the mint
// authority.
func (p *Program) MintTo(dest ed25519.PublicKey, amount uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	tokenAccount, err := p.getTokenAccount(dest)
	if err != nil {
		return err
	}
	return p.mintTokens(tokenAccount.Mint, dest, amount)
}

// GetMint returns a decoded mint.
func (p *Program) GetMint(address ed25519.PublicKey) (*token.Mint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.getMint(address)
}

func (p *Program) exists(address ed25519.PublicKey) bool {
	_, ok := p.accounts[string(address)]
	return ok
}

func (p *Program) createAccount(funder, address, owner ed25519.PublicKey, size uint64) error {
	if p.exists(address) {
		return ErrAccountAlreadyInUse
	}
	if err := p.debit(funder, Rent(size)); err != nil {
		return err
	}
	p.accounts[string(address)] = &account{
		owner:    owner,
		lamports: Rent(size),
		data:     make([]byte, size),
	}
	return nil
}

func (p *Program) debit(address ed25519.PublicKey, lamports uint64) error {
	acc, ok := p.accounts[string(address)]
	if !ok || acc.lamports < lamports {
		return errResultWithNegativeLamports
	}
	acc.lamports -= lamports
	return nil
}

func (p *Program) credit(address ed25519.PublicKey, lamports uint64) {
	acc, ok := p.accounts[string(address)]
	if !ok {
		acc = &account{owner: system.ProgramKey[:]}
		p.accounts[string(address)] = acc
	}
	acc.lamports += lamports
}

func (p *Program) getTokenAccount(address ed25519.PublicKey) (*token.Account, error) {
	acc, ok := p.accounts[string(address)]
	if !ok {
		return nil, errUninitialized
	}
	if !bytes.Equal(acc.owner, token.ProgramKey) {
		return nil, errInvalidAccountData
	}

	var tokenAccount token.Account
	if !tokenAccount.Unmarshal(acc.data) || tokenAccount.State == token.AccountStateUninitialized {
		return nil, errUninitialized
	}
	return &tokenAccount, nil
}

func (p *Program) putTokenAccount(address ed25519.PublicKey, tokenAccount *token.Account) {
	p.accounts[string(address)].data = tokenAccount.Marshal()
}

func (p *Program) getMint(address ed25519.PublicKey) (*token.Mint, error) {
	acc, ok := p.accounts[string(address)]
	if !ok {
		return nil, errUninitialized
	}
	if !bytes.Equal(acc.owner, token.ProgramKey) {
		return nil, errInvalidAccountData
	}

	var mint token.Mint
	if !mint.Unmarshal(acc.data) || !mint.IsInitialized {
		return nil, errUninitialized
	}
	return &mint, nil
}

func (p *Program) putMint(address ed25519.PublicKey, mint *token.Mint) {
	p.accounts[string(address)].data = mint.Marshal()
}

func (p *Program) initTokenAccount(address, owner, mint ed25519.PublicKey) error {
	if _, err := p.getMint(mint); err != nil {
		return err
	}

	tokenAccount := &token.Account{
		Mint:  mint,
		Owner: owner,
		State: token.AccountStateInitialized,
	}

	rent := Rent(token.AccountSize)
	if bytes.Equal(mint, vault.NATIVE_MINT) {
		reserve := rent
		tokenAccount.IsNative = &reserve
	}

	p.accounts[string(address)] = &account{
		owner:    token.ProgramKey,
		lamports: rent,
		data:     tokenAccount.Marshal(),
	}
	return nil
}

// transferTokens moves tokens between accounts of the same mint. authority
// must own the source account.
func (p *Program) transferTokens(source, dest, authority ed25519.PublicKey, amount uint64) error {
	src, err := p.getTokenAccount(source)
	if err != nil {
		return err
	}
	dst, err := p.getTokenAccount(dest)
	if err != nil {
		return err
	}

	if !bytes.Equal(src.Owner, authority) {
		return errTokenOwnerMismatch
	}
	if !bytes.Equal(src.Mint, dst.Mint) {
		return errTokenMintMismatch
	}
	if src.Amount < amount {
		return errTokenInsufficientFunds
	}
	if bytes.Equal(source, dest) {
		return nil
	}

	src.Amount -= amount
	dst.Amount += amount
	p.putTokenAccount(source, src)
	p.putTokenAccount(dest, dst)

	if src.IsNative != nil {
		p.accounts[string(source)].lamports -= amount
		p.accounts[string(dest)].lamports += amount
	}

	return nil
}

func (p *Program) mintTokens(mintAddress, dest ed25519.PublicKey, amount uint64) error {
	mint, err := p.getMint(mintAddress)
	if err != nil {
		return err
	}
	dst, err := p.getTokenAccount(dest)
	if err != nil {
		return err
	}
	if !bytes.Equal(dst.Mint, mintAddress) {
		return errTokenMintMismatch
	}

	mint.Supply += amount
	dst.Amount += amount
	p.putMint(mintAddress, mint)
	p.putTokenAccount(dest, dst)
	return nil
}

func (p *Program) burnTokens(address, mintAddress, authority ed25519.PublicKey, amount uint64) error {
	src, err := p.getTokenAccount(address)
	if err != nil {
		return err
	}
	mint, err := p.getMint(mintAddress)
	if err != nil {
		return err
	}

	if !bytes.Equal(src.Owner, authority) {
		return errTokenOwnerMismatch
	}
	if !bytes.Equal(src.Mint, mintAddress) {
		return errTokenMintMismatch
	}
	if src.Amount < amount {
		return errTokenInsufficientFunds
	}

	src.Amount -= amount
	mint.Supply -= amount
	p.putTokenAccount(address, src)
	p.putMint(mintAddress, mint)
	return nil
}

func newKey() ed25519.PublicKey {
	pub, _, err := ed25519.GenerateKey(nil)
	if err != nil {
		panic(err)
	}
	return pub
}
