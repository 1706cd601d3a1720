package lifecycle

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/tranche-vault/pkg/metrics"
	"github.com/code-payments/tranche-vault/pkg/retry"
	"github.com/code-payments/tranche-vault/pkg/retry/backoff"
	"github.com/code-payments/tranche-vault/pkg/solana"
	compute_budget "github.com/code-payments/tranche-vault/pkg/solana/computebudget"
)

const confirmationLatencyMetricName = "VaultTransactionConfirmationLatency"

var errNotConfirmed = errors.New("transaction not confirmed")

// RPCAccountReader is an AccountReader over a Solana RPC client.
type RPCAccountReader struct {
	client     solana.Client
	commitment solana.Commitment
}

func NewRPCAccountReader(client solana.Client, commitment solana.Commitment) *RPCAccountReader {
	return &RPCAccountReader{
		client:     client,
		commitment: commitment,
	}
}

// GetAccountData implements AccountReader.GetAccountData
func (r *RPCAccountReader) GetAccountData(_ context.Context, address ed25519.PublicKey) ([]byte, error) {
	info, err := r.client.GetAccountInfo(address, r.commitment)
	if err != nil {
		return nil, err
	}
	return info.Data, nil
}

// GetTokenBalance implements AccountReader.GetTokenBalance
func (r *RPCAccountReader) GetTokenBalance(_ context.Context, address ed25519.PublicKey) (uint64, error) {
	balance, _, err := r.client.GetTokenAccountBalance(address, r.commitment)
	return balance, err
}

// GetMinimumBalanceForRentExemption implements AccountReader.GetMinimumBalanceForRentExemption
func (r *RPCAccountReader) GetMinimumBalanceForRentExemption(_ context.Context, size uint64) (uint64, error) {
	return r.client.GetMinimumBalanceForRentExemption(size)
}

// RPCSubmitter is a Submitter that sends transactions through a Solana RPC
// client and polls until they reach its commitment level.
type RPCSubmitter struct {
	log        *logrus.Entry
	conf       *conf
	client     solana.Client
	commitment solana.Commitment
}

func NewRPCSubmitter(client solana.Client, commitment solana.Commitment, configProvider ConfigProvider) *RPCSubmitter {
	return &RPCSubmitter{
		log:        logrus.StandardLogger().WithField("type", "lifecycle/rpc_submitter"),
		conf:       configProvider(),
		client:     client,
		commitment: commitment,
	}
}

// Submit implements Submitter.Submit
func (s *RPCSubmitter) Submit(ctx context.Context, signers []ed25519.PrivateKey, ixns ...solana.Instruction) (solana.Signature, error) {
	if len(signers) == 0 {
		return solana.Signature{}, errors.New("at least one signer is required")
	}
	if err := ctx.Err(); err != nil {
		return solana.Signature{}, err
	}

	payer := signers[0].Public().(ed25519.PublicKey)

	blockhash, err := s.client.GetLatestBlockhash()
	if err != nil {
		return solana.Signature{}, errors.Wrap(err, "error getting latest blockhash")
	}

	txn := solana.NewTransaction(payer, append(s.budgetInstructions(ctx), ixns...)...)
	txn.SetBlockhash(blockhash)
	if err := txn.Sign(signers...); err != nil {
		return solana.Signature{}, errors.Wrap(err, "error signing transaction")
	}

	sig, err := s.client.SubmitTransaction(txn, s.commitment)
	if err != nil {
		return solana.Signature{}, err
	}

	log := s.log.WithFields(logrus.Fields{
		"method":    "Submit",
		"signature": base58.Encode(sig[:]),
	})
	log.Debug("transaction submitted")

	start := time.Now()
	err = s.awaitConfirmation(ctx, sig)
	metrics.RecordDuration(ctx, confirmationLatencyMetricName, time.Since(start))
	if err != nil {
		log.WithError(err).Debug("transaction did not confirm")
		return sig, err
	}
	return sig, nil
}

// budgetInstructions are prepended to every transaction when a compute unit
// limit or price is configured.
func (s *RPCSubmitter) budgetInstructions(ctx context.Context) []solana.Instruction {
	var ixns []solana.Instruction
	if limit := s.conf.computeUnitLimit.Get(ctx); limit > 0 {
		ixns = append(ixns, compute_budget.SetComputeUnitLimit(uint32(limit)))
	}
	if price := s.conf.computeUnitPrice.Get(ctx); price > 0 {
		ixns = append(ixns, compute_budget.SetComputeUnitPrice(price))
	}
	return ixns
}

func (s *RPCSubmitter) awaitConfirmation(ctx context.Context, sig solana.Signature) error {
	timeout := s.conf.confirmationTimeout.Get(ctx)
	attempts := uint(timeout / solana.PollRate)
	if attempts == 0 {
		attempts = 1
	}

	var txErr *solana.TransactionError
	_, err := retry.Retry(
		func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			statuses, err := s.client.GetSignatureStatuses([]solana.Signature{sig})
			if err != nil {
				return err
			}

			status := statuses[0]
			if status == nil {
				return errNotConfirmed
			}
			if status.ErrorResult != nil {
				txErr = status.ErrorResult
				return nil
			}

			switch s.commitment {
			case solana.CommitmentFinalized:
				if status.Finalized() {
					return nil
				}
			case solana.CommitmentConfirmed:
				if status.Confirmed() {
					return nil
				}
			default:
				return nil
			}
			return errNotConfirmed
		},
		retry.Context(ctx),
		retry.RetriableErrors(errNotConfirmed),
		retry.Limit(attempts),
		retry.Backoff(backoff.Constant(solana.PollRate), time.Second),
	)
	if err != nil {
		return errors.Wrap(err, "error awaiting confirmation")
	}
	if txErr != nil {
		return txErr
	}
	return nil
}

// Airdrop funds account from the cluster faucet and waits for the transfer to
// land. It returns the account's resulting balance in lamports.
func (s *RPCSubmitter) Airdrop(ctx context.Context, account ed25519.PublicKey, lamports uint64) (solana.Signature, uint64, error) {
	sig, err := s.client.RequestAirdrop(account, lamports, s.commitment)
	if err != nil {
		return solana.Signature{}, 0, err
	}

	if err := s.awaitConfirmation(ctx, sig); err != nil {
		return sig, 0, err
	}

	balance, err := s.client.GetBalance(account)
	if err != nil {
		return sig, 0, errors.Wrap(err, "error getting balance")
	}
	return sig, balance, nil
}
