package lifecycle

import (
	"context"
	"crypto/ed25519"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/tranche-vault/pkg/journal"
	"github.com/code-payments/tranche-vault/pkg/metrics"
	"github.com/code-payments/tranche-vault/pkg/solana"
	"github.com/code-payments/tranche-vault/pkg/solana/token"
	"github.com/code-payments/tranche-vault/pkg/solana/vault"
	"github.com/code-payments/tranche-vault/pkg/tranche"
)

const (
	metricsStructName = "lifecycle.orchestrator"

	instructionSubmittedEventName = "VaultInstructionSubmitted"
)

// Orchestrator sequences the vault lifecycle. Every operation reads fresh
// state, checks the action is valid client-side, and then submits and
// journals the instructions that perform it.
type Orchestrator struct {
	log       *logrus.Entry
	conf      *conf
	reader    AccountReader
	submitter Submitter
	quoter    tranche.Quoter
	venues    VenueProvider
	clock     Clock
	journal   journal.Store
}

func NewOrchestrator(
	reader AccountReader,
	submitter Submitter,
	quoter tranche.Quoter,
	venues VenueProvider,
	clock Clock,
	journal journal.Store,
	configProvider ConfigProvider,
) *Orchestrator {
	return &Orchestrator{
		log:       logrus.StandardLogger().WithField("type", "lifecycle/orchestrator"),
		conf:      configProvider(),
		reader:    reader,
		submitter: submitter,
		quoter:    quoter,
		venues:    venues,
		clock:     clock,
		journal:   journal,
	}
}

// GetVault reads and decodes a vault account.
func (o *Orchestrator) GetVault(ctx context.Context, address ed25519.PublicKey) (*vault.VaultAccount, error) {
	data, err := o.reader.GetAccountData(ctx, address)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading vault %s", base58.Encode(address))
	}

	var v vault.VaultAccount
	if err := v.Unmarshal(data); err != nil {
		return nil, errors.Wrapf(err, "error decoding vault %s", base58.Encode(address))
	}
	return &v, nil
}

// GetHistory reads a depositor's history in a tranche. A depositor that has
// never deposited has a nil history.
func (o *Orchestrator) GetHistory(ctx context.Context, vaultAddress, mint, depositor ed25519.PublicKey) (*vault.HistoryAccount, ed25519.PublicKey, uint8, error) {
	address, bump, err := vault.GetHistoryAddress(&vault.GetHistoryAddressArgs{
		Vault:     vaultAddress,
		Mint:      mint,
		Depositor: depositor,
	})
	if err != nil {
		return nil, nil, 0, err
	}

	data, err := o.reader.GetAccountData(ctx, address)
	if errors.Is(err, ErrAccountNotFound) {
		return nil, address, bump, nil
	} else if err != nil {
		return nil, nil, 0, errors.Wrap(err, "error reading history")
	}

	var history vault.HistoryAccount
	if err := history.Unmarshal(data); err != nil {
		return nil, nil, 0, errors.Wrap(err, "error decoding history")
	}
	return &history, address, bump, nil
}

// GetReceipt reads the receipt of one deposit.
func (o *Orchestrator) GetReceipt(ctx context.Context, vaultAddress, mint ed25519.PublicKey, depositIndex uint64) (*vault.ReceiptAccount, ed25519.PublicKey, error) {
	address, _, err := vault.GetReceiptAddress(&vault.GetReceiptAddressArgs{
		Vault:        vaultAddress,
		Mint:         mint,
		DepositIndex: depositIndex,
	})
	if err != nil {
		return nil, nil, err
	}

	data, err := o.reader.GetAccountData(ctx, address)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "error reading receipt %d", depositIndex)
	}

	var receipt vault.ReceiptAccount
	if err := receipt.Unmarshal(data); err != nil {
		return nil, nil, errors.Wrapf(err, "error decoding receipt %d", depositIndex)
	}
	return &receipt, address, nil
}

// GetStrategy reads and decodes a strategy account of either venue.
func (o *Orchestrator) GetStrategy(ctx context.Context, address ed25519.PublicKey) (*vault.Strategy, error) {
	data, err := o.reader.GetAccountData(ctx, address)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading strategy %s", base58.Encode(address))
	}
	return vault.UnmarshalStrategy(data)
}

// PredictState is the state the program will move the vault to on its next
// instruction.
func (o *Orchestrator) PredictState(v *vault.VaultAccount) vault.State {
	return tranche.PredictVaultState(o.clock.Now(), v)
}

func (o *Orchestrator) getMint(ctx context.Context, address ed25519.PublicKey) (*token.Mint, error) {
	data, err := o.reader.GetAccountData(ctx, address)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading mint %s", base58.Encode(address))
	}

	var mint token.Mint
	if !mint.Unmarshal(data) || !mint.IsInitialized {
		return nil, errors.Errorf("%s is not an initialized mint", base58.Encode(address))
	}
	return &mint, nil
}

func (o *Orchestrator) getVenue(ctx context.Context, v *vault.VaultAccount) (*VenueAccounts, error) {
	strategy, err := o.GetStrategy(ctx, v.Strategy)
	if err != nil {
		return nil, err
	}

	venue, err := o.venues.GetVenueAccounts(ctx, v.Strategy)
	if err != nil {
		return nil, err
	}
	if venue.Flag != strategy.Flag {
		return nil, vault.ErrInvalidStrategyFlag
	}
	return venue, nil
}

func (o *Orchestrator) requireState(v *vault.VaultAccount, allowed ...vault.State) (vault.State, error) {
	state := o.PredictState(v)
	for _, s := range allowed {
		if state == s {
			return state, nil
		}
	}
	return state, errors.Wrapf(ErrInvalidStateForAction, "vault state is %s", state.String())
}

type submission struct {
	operation journal.Operation
	vault     ed25519.PublicKey
	mint      ed25519.PublicKey
	amount    uint64
	state     vault.State
}

// submit sends ixns and journals the result. The payer is the first signer.
func (o *Orchestrator) submit(ctx context.Context, s *submission, signers []ed25519.PrivateKey, ixns ...solana.Instruction) (solana.Signature, error) {
	payer := signers[0].Public().(ed25519.PublicKey)

	log := o.log.WithFields(logrus.Fields{
		"method":    "submit",
		"operation": s.operation,
		"vault":     base58.Encode(s.vault),
		"payer":     base58.Encode(payer),
	})

	sig, err := o.submitter.Submit(ctx, signers, ixns...)
	if err != nil {
		log.WithError(err).Debug("submission failed")
		return solana.Signature{}, classifySubmitError(err)
	}

	encoded := base58.Encode(sig[:])
	log = log.WithField("signature", encoded)

	record := &journal.Record{
		EventId:   uuid.New(),
		Signature: encoded,
		Operation: s.operation,
		Vault:     base58.Encode(s.vault),
		Owner:     base58.Encode(payer),
		Amount:    s.amount,
		State:     s.state,
	}
	if len(s.mint) > 0 {
		record.Mint = base58.Encode(s.mint)
	}

	metrics.RecordEvent(ctx, instructionSubmittedEventName, map[string]interface{}{
		"operation": string(s.operation),
		"vault":     record.Vault,
		"mint":      record.Mint,
		"amount":    s.amount,
		"signature": encoded,
	})

	if err := o.journal.Put(ctx, record); err != nil {
		log.WithError(err).Warn("failure journaling submitted transaction")
		return sig, errors.Wrap(err, "transaction submitted but not journaled")
	}

	log.Debug("transaction submitted")
	return sig, nil
}

// associatedAccounts derives the associated token account of each
// (owner, mint) pair.
func associatedAccounts(pairs ...[2]ed25519.PublicKey) ([]ed25519.PublicKey, error) {
	res := make([]ed25519.PublicKey, len(pairs))
	for i, pair := range pairs {
		address, err := token.GetAssociatedAccount(pair[0], pair[1])
		if err != nil {
			return nil, errors.Wrap(err, "error deriving associated token account")
		}
		res[i] = address
	}
	return res, nil
}
