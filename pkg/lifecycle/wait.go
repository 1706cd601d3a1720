package lifecycle

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/pkg/errors"

	"github.com/code-payments/tranche-vault/pkg/solana/vault"
)

// WaitUntil polls clock every interval until it reads at or after target.
// It returns ctx.Err() if the context is done first.
func WaitUntil(ctx context.Context, clock Clock, target time.Time, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("interval must be positive")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if !clock.Now().Before(target) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// WaitUntil blocks until the orchestrator's clock reaches target, for at
// most the configured maximum wait.
func (o *Orchestrator) WaitUntil(ctx context.Context, target time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, o.conf.maxWaitDuration.Get(ctx))
	defer cancel()

	err := WaitUntil(ctx, o.clock, target, o.conf.waitPollInterval.Get(ctx))
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrWaitTimeout
	}
	return err
}

// WaitForState blocks until the vault's timestamps put it in state. Only
// the time-driven states can be waited on.
func (o *Orchestrator) WaitForState(ctx context.Context, vaultAddress ed25519.PublicKey, state vault.State) error {
	v, err := o.GetVault(ctx, vaultAddress)
	if err != nil {
		return err
	}

	var ts uint64
	switch state {
	case vault.StateDeposit:
		ts = v.StartAt
	case vault.StateLive:
		ts = v.InvestAt
	case vault.StateRedeem:
		ts = v.RedeemAt
	default:
		return errors.Errorf("cannot wait for %s", state.String())
	}

	return o.WaitUntil(ctx, time.Unix(int64(ts), 0))
}
