package keeper

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"sync"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/tranche-vault/pkg/lifecycle"
	"github.com/code-payments/tranche-vault/pkg/metrics"
	"github.com/code-payments/tranche-vault/pkg/solana/vault"
	"github.com/code-payments/tranche-vault/pkg/tranche"
)

const (
	crankEventName = "VaultCranked"
)

// Action is the lifecycle step a crank performed on a vault.
type Action uint8

const (
	ActionNone Action = iota
	ActionInvest
	ActionProcessClaims
	ActionRedeem
)

func (a Action) String() string {
	switch a {
	case ActionInvest:
		return "invest"
	case ActionProcessClaims:
		return "process_claims"
	case ActionRedeem:
		return "redeem"
	}
	return "none"
}

// Service drives watched vaults through the permissioned steps of their
// lifecycle on a cron schedule. Each crank performs at most one step per
// vault.
type Service struct {
	log          *logrus.Entry
	conf         *conf
	orchestrator *lifecycle.Orchestrator
	payer        ed25519.PrivateKey

	vaultsMu sync.RWMutex
	vaults   []ed25519.PublicKey
	locks    map[string]*sync.Mutex
}

func New(orchestrator *lifecycle.Orchestrator, payer ed25519.PrivateKey, configProvider ConfigProvider, vaults ...ed25519.PublicKey) *Service {
	s := &Service{
		log:          logrus.StandardLogger().WithField("service", "keeper"),
		conf:         configProvider(),
		orchestrator: orchestrator,
		payer:        payer,
		locks:        make(map[string]*sync.Mutex),
	}
	for _, v := range vaults {
		s.Watch(v)
	}
	return s
}

// Watch adds a vault to the set cranked on every tick.
func (s *Service) Watch(vaultAddress ed25519.PublicKey) {
	s.vaultsMu.Lock()
	defer s.vaultsMu.Unlock()

	key := base58.Encode(vaultAddress)
	if _, ok := s.locks[key]; ok {
		return
	}
	s.locks[key] = &sync.Mutex{}
	s.vaults = append(s.vaults, vaultAddress)
}

// Start cranks watched vaults on the configured schedule until ctx is done.
func (s *Service) Start(ctx context.Context) error {
	if !s.conf.enabled.Get(ctx) {
		s.log.Info("keeper is disabled")
		<-ctx.Done()
		return ctx.Err()
	}

	schedule := s.conf.schedule.Get(ctx)

	scheduler := cron.New(cron.WithSeconds())
	_, err := scheduler.AddFunc(schedule, func() {
		s.Tick(ctx)
	})
	if err != nil {
		return errors.Wrapf(err, "invalid keeper schedule %q", schedule)
	}

	s.log.WithField("schedule", schedule).Info("starting keeper")
	scheduler.Start()

	<-ctx.Done()
	<-scheduler.Stop().Done()
	return ctx.Err()
}

// Tick cranks every watched vault once. A vault still being cranked by a
// previous tick is skipped.
func (s *Service) Tick(ctx context.Context) {
	s.vaultsMu.RLock()
	vaults := make([]ed25519.PublicKey, len(s.vaults))
	copy(vaults, s.vaults)
	s.vaultsMu.RUnlock()

	for _, vaultAddress := range vaults {
		if ctx.Err() != nil {
			return
		}

		log := s.log.WithField("vault", base58.Encode(vaultAddress))

		action, err := s.crankExclusive(ctx, vaultAddress)
		if err != nil && err != context.Canceled {
			log.WithError(err).WithField("action", action.String()).Warn("failure cranking vault")
			continue
		}
		if action != ActionNone {
			log.WithField("action", action.String()).Info("cranked vault")
		}
	}
}

func (s *Service) crankExclusive(ctx context.Context, vaultAddress ed25519.PublicKey) (Action, error) {
	s.vaultsMu.RLock()
	lock := s.locks[base58.Encode(vaultAddress)]
	s.vaultsMu.RUnlock()

	if !lock.TryLock() {
		return ActionNone, nil
	}
	defer lock.Unlock()

	return s.Crank(ctx, vaultAddress)
}

// Crank advances the vault by one lifecycle step if one is due:
//
//   - Live and uninvested: invest every deposit
//   - invested with unprocessed claims: process claims
//   - Redeem: redeem with the configured default slippage
//
// Vaults without deposits in both tranches cannot be invested and are left
// alone.
func (s *Service) Crank(ctx context.Context, vaultAddress ed25519.PublicKey) (action Action, err error) {
	defer func() {
		if action != ActionNone {
			metrics.RecordEvent(ctx, crankEventName, map[string]interface{}{
				"vault":   base58.Encode(vaultAddress),
				"action":  action.String(),
				"success": err == nil,
			})
		}
	}()

	v, err := s.orchestrator.GetVault(ctx, vaultAddress)
	if err != nil {
		return ActionNone, err
	}

	invested := tranche.IsInvested(v)
	state := s.orchestrator.PredictState(v)

	switch {
	case state == vault.StateLive && !invested:
		if v.Alpha.Deposits == 0 || v.Beta.Deposits == 0 {
			return ActionNone, nil
		}
		_, err = s.orchestrator.InvestAll(ctx, s.payer, vaultAddress, s.conf.minLpOut.Get(ctx))
		return ActionInvest, err

	case invested && !tranche.ClaimsProcessed(v):
		_, err = s.orchestrator.ProcessClaims(ctx, s.payer, vaultAddress)
		return ActionProcessClaims, err

	case state == vault.StateRedeem && invested:
		_, err = s.orchestrator.RedeemWithSlippage(ctx, s.payer, vaultAddress)
		return ActionRedeem, err
	}

	return ActionNone, nil
}

// Watching reports whether vaultAddress is cranked by the service.
func (s *Service) Watching(vaultAddress ed25519.PublicKey) bool {
	s.vaultsMu.RLock()
	defer s.vaultsMu.RUnlock()

	for _, v := range s.vaults {
		if bytes.Equal(v, vaultAddress) {
			return true
		}
	}
	return false
}
