package main

import (
	"context"
	"crypto/ed25519"
	"flag"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/code-payments/tranche-vault/pkg/app"
	"github.com/code-payments/tranche-vault/pkg/database/query"
	"github.com/code-payments/tranche-vault/pkg/journal"
	"github.com/code-payments/tranche-vault/pkg/keeper"
	"github.com/code-payments/tranche-vault/pkg/lifecycle"
	"github.com/code-payments/tranche-vault/pkg/solana"
	"github.com/code-payments/tranche-vault/pkg/solana/vault"
	"github.com/code-payments/tranche-vault/pkg/vaultconfig"
)

var stdout io.Writer = os.Stdout

// target is a vault document resolved against the payer.
type target struct {
	doc          *vaultconfig.Resolved
	vault        ed25519.PublicKey
	orchestrator *lifecycle.Orchestrator
}

func loadTarget(env *app.Env, path string) (*target, error) {
	if path == "" {
		return nil, errors.New("-doc is required")
	}

	data, err := app.LoadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := vaultconfig.Parse(data)
	if err != nil {
		return nil, err
	}
	resolved, err := doc.Resolve(time.Now())
	if err != nil {
		return nil, err
	}
	if len(resolved.Config.Authority) == 0 {
		resolved.Config.Authority = env.PayerKey()
	}

	vaultAddress, _, err := vault.GetVaultAddress(&vault.GetVaultAddressArgs{
		Authority: resolved.Config.Authority,
	})
	if err != nil {
		return nil, err
	}

	orchestrator, err := env.Orchestrator(resolved)
	if err != nil {
		return nil, err
	}

	return &target{
		doc:          resolved,
		vault:        vaultAddress,
		orchestrator: orchestrator,
	}, nil
}

func (t *target) trancheMint(name string) (ed25519.PublicKey, error) {
	switch strings.ToLower(name) {
	case "alpha":
		return t.doc.AlphaMint, nil
	case "beta":
		return t.doc.BetaMint, nil
	}
	return nil, errors.Errorf("tranche must be alpha or beta, got %q", name)
}

func runTemplate(_ context.Context, _ *app.Env, args []string) error {
	fs := flag.NewFlagSet("template", flag.ContinueOnError)
	venue := fs.String("venue", "saber", "saber or orca")
	if err := fs.Parse(args); err != nil {
		return err
	}

	doc, err := templateDocument(*venue)
	if err != nil {
		return err
	}
	return doc.Encode(stdout)
}

func runInitGlobal(ctx context.Context, env *app.Env, args []string) error {
	fs := flag.NewFlagSet("init-global", flag.ContinueOnError)
	treasury := fs.String("treasury", "", "treasury key, defaulting to the payer")
	if err := fs.Parse(args); err != nil {
		return err
	}

	treasuryKey := env.PayerKey()
	if *treasury != "" {
		var err error
		if treasuryKey, err = parseKey(*treasury); err != nil {
			return err
		}
	}

	orchestrator, err := env.Orchestrator(nil)
	if err != nil {
		return err
	}

	sig, err := orchestrator.InitializeGlobalProtocolState(ctx, env.Payer, treasuryKey)
	if err != nil {
		return err
	}
	return printYAML(map[string]string{"signature": encodeSignature(sig)})
}

func runAirdrop(ctx context.Context, env *app.Env, args []string) error {
	fs := flag.NewFlagSet("airdrop", flag.ContinueOnError)
	to := fs.String("to", "", "recipient, defaulting to the payer")
	lamports := fs.Uint64("lamports", 1_000_000_000, "amount to request")
	if err := fs.Parse(args); err != nil {
		return err
	}

	recipient := env.PayerKey()
	if *to != "" {
		var err error
		if recipient, err = parseKey(*to); err != nil {
			return err
		}
	}

	sig, balance, err := env.Submitter.Airdrop(ctx, recipient, *lamports)
	if err != nil {
		return err
	}
	return printYAML(map[string]interface{}{
		"account":   base58.Encode(recipient),
		"signature": encodeSignature(sig),
		"balance":   balance,
	})
}

func runInitStrategy(ctx context.Context, env *app.Env, args []string) error {
	fs := flag.NewFlagSet("init-strategy", flag.ContinueOnError)
	docPath := fs.String("doc", "", "vault document")
	if err := fs.Parse(args); err != nil {
		return err
	}

	t, err := loadTarget(env, *docPath)
	if err != nil {
		return err
	}

	strategy, err := t.orchestrator.InitializeStrategy(ctx, env.Payer, t.doc.Strategy)
	if err != nil {
		return err
	}
	return printYAML(map[string]string{"strategy": base58.Encode(strategy)})
}

func runInitVault(ctx context.Context, env *app.Env, args []string) error {
	fs := flag.NewFlagSet("init-vault", flag.ContinueOnError)
	docPath := fs.String("doc", "", "vault document")
	if err := fs.Parse(args); err != nil {
		return err
	}

	t, err := loadTarget(env, *docPath)
	if err != nil {
		return err
	}

	alphaDecimals, betaDecimals, err := env.CheckMints(t.doc)
	if err != nil {
		return err
	}

	created, err := t.orchestrator.InitializeVault(ctx, env.Payer, t.doc.Config, t.doc.AlphaMint, t.doc.BetaMint)
	if err != nil {
		return err
	}

	return printYAML(map[string]interface{}{
		"vault":          base58.Encode(created.Vault),
		"alpha_lp":       base58.Encode(created.AlphaLp),
		"beta_lp":        base58.Encode(created.BetaLp),
		"alpha_decimals": alphaDecimals,
		"beta_decimals":  betaDecimals,
		"signature":      encodeSignature(created.Signature),
		"start_at":       formatUnix(t.doc.Config.StartAt),
		"invest_at":      formatUnix(t.doc.Config.InvestAt),
		"redeem_at":      formatUnix(t.doc.Config.RedeemAt),
	})
}

func runDeposit(ctx context.Context, env *app.Env, args []string) error {
	fs := flag.NewFlagSet("deposit", flag.ContinueOnError)
	docPath := fs.String("doc", "", "vault document")
	trancheName := fs.String("tranche", "", "alpha or beta")
	amount := fs.Uint64("amount", 0, "amount in the mint's base units")
	if err := fs.Parse(args); err != nil {
		return err
	}

	t, err := loadTarget(env, *docPath)
	if err != nil {
		return err
	}
	mint, err := t.trancheMint(*trancheName)
	if err != nil {
		return err
	}

	sig, err := t.orchestrator.Deposit(ctx, env.Payer, t.vault, mint, *amount)
	if err != nil {
		return err
	}
	return printYAML(map[string]string{"signature": encodeSignature(sig)})
}

func runInvest(ctx context.Context, env *app.Env, args []string) error {
	fs := flag.NewFlagSet("invest", flag.ContinueOnError)
	docPath := fs.String("doc", "", "vault document")
	alpha := fs.Uint64("alpha", 0, "alpha amount to offer, or 0 with -beta 0 to invest everything")
	beta := fs.Uint64("beta", 0, "beta amount to offer")
	minLp := fs.Uint64("min-lp", 1, "minimum pool tokens to receive")
	if err := fs.Parse(args); err != nil {
		return err
	}

	t, err := loadTarget(env, *docPath)
	if err != nil {
		return err
	}

	var sig solana.Signature
	if *alpha == 0 && *beta == 0 {
		sig, err = t.orchestrator.InvestAll(ctx, env.Payer, t.vault, *minLp)
	} else {
		sig, err = t.orchestrator.InvestFunds(ctx, env.Payer, t.vault, *alpha, *beta, *minLp)
	}
	if err != nil {
		return err
	}
	return printYAML(map[string]string{"signature": encodeSignature(sig)})
}

func runProcessClaims(ctx context.Context, env *app.Env, args []string) error {
	fs := flag.NewFlagSet("process-claims", flag.ContinueOnError)
	docPath := fs.String("doc", "", "vault document")
	if err := fs.Parse(args); err != nil {
		return err
	}

	t, err := loadTarget(env, *docPath)
	if err != nil {
		return err
	}

	sigs, err := t.orchestrator.ProcessClaims(ctx, env.Payer, t.vault)
	if err != nil {
		return err
	}

	encoded := make([]string, len(sigs))
	for i, sig := range sigs {
		encoded[i] = encodeSignature(sig)
	}
	return printYAML(map[string][]string{"signatures": encoded})
}

func runClaim(ctx context.Context, env *app.Env, args []string) error {
	fs := flag.NewFlagSet("claim", flag.ContinueOnError)
	docPath := fs.String("doc", "", "vault document")
	trancheName := fs.String("tranche", "", "alpha or beta")
	if err := fs.Parse(args); err != nil {
		return err
	}

	t, err := loadTarget(env, *docPath)
	if err != nil {
		return err
	}
	mint, err := t.trancheMint(*trancheName)
	if err != nil {
		return err
	}

	sig, err := t.orchestrator.Claim(ctx, env.Payer, t.vault, mint)
	if err != nil {
		return err
	}
	return printYAML(map[string]string{"signature": encodeSignature(sig)})
}

func runRedeem(ctx context.Context, env *app.Env, args []string) error {
	fs := flag.NewFlagSet("redeem", flag.ContinueOnError)
	docPath := fs.String("doc", "", "vault document")
	minA := fs.Uint64("min-a", 0, "minimum token a out, or 0 with -min-b 0 for the default slippage")
	minB := fs.Uint64("min-b", 0, "minimum token b out")
	estimate := fs.Bool("estimate", false, "print the redemption estimate without redeeming")
	if err := fs.Parse(args); err != nil {
		return err
	}

	t, err := loadTarget(env, *docPath)
	if err != nil {
		return err
	}

	if *estimate {
		est, err := t.orchestrator.EstimateRedemption(ctx, t.vault)
		if err != nil {
			return err
		}
		return printYAML(newEstimateView(est))
	}

	var sig solana.Signature
	if *minA == 0 && *minB == 0 {
		sig, err = t.orchestrator.RedeemWithSlippage(ctx, env.Payer, t.vault)
	} else {
		sig, err = t.orchestrator.Redeem(ctx, env.Payer, t.vault, *minA, *minB)
	}
	if err != nil {
		return err
	}
	return printYAML(map[string]string{"signature": encodeSignature(sig)})
}

func runWithdraw(ctx context.Context, env *app.Env, args []string) error {
	fs := flag.NewFlagSet("withdraw", flag.ContinueOnError)
	docPath := fs.String("doc", "", "vault document")
	trancheName := fs.String("tranche", "", "alpha or beta")
	lp := fs.Uint64("lp", 0, "tranche lp to burn, or 0 for the whole balance")
	if err := fs.Parse(args); err != nil {
		return err
	}

	t, err := loadTarget(env, *docPath)
	if err != nil {
		return err
	}
	mint, err := t.trancheMint(*trancheName)
	if err != nil {
		return err
	}

	sig, err := t.orchestrator.Withdraw(ctx, env.Payer, t.vault, mint, *lp)
	if err != nil {
		return err
	}
	return printYAML(map[string]string{"signature": encodeSignature(sig)})
}

func runFarm(ctx context.Context, env *app.Env, args []string) error {
	fs := flag.NewFlagSet("farm", flag.ContinueOnError)
	docPath := fs.String("doc", "", "vault document")
	amountIn := fs.Uint64("amount-in", 0, "reward amount to swap")
	minOut := fs.Uint64("min-out", 0, "minimum swap output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("expected one of init, convert, harvest, revert or swap")
	}

	t, err := loadTarget(env, *docPath)
	if err != nil {
		return err
	}

	var sig solana.Signature
	switch fs.Arg(0) {
	case "init":
		sig, err = t.orchestrator.InitializeUserFarm(ctx, env.Payer, t.vault)
	case "convert":
		sig, err = t.orchestrator.ConvertLp(ctx, env.Payer, t.vault)
	case "harvest":
		sig, err = t.orchestrator.HarvestRewards(ctx, env.Payer, t.vault)
	case "revert":
		sig, err = t.orchestrator.RevertLp(ctx, env.Payer, t.vault)
	case "swap":
		sig, err = t.orchestrator.SwapRewards(ctx, env.Payer, t.vault, *amountIn, *minOut)
	default:
		return errors.Errorf("unknown farm operation %q", fs.Arg(0))
	}
	if err != nil {
		return err
	}
	return printYAML(map[string]string{"signature": encodeSignature(sig)})
}

func runState(ctx context.Context, env *app.Env, args []string) error {
	fs := flag.NewFlagSet("state", flag.ContinueOnError)
	docPath := fs.String("doc", "", "vault document")
	wait := fs.String("wait", "", "block until the vault reaches this state")
	if err := fs.Parse(args); err != nil {
		return err
	}

	t, err := loadTarget(env, *docPath)
	if err != nil {
		return err
	}

	if *wait != "" {
		state, err := vault.ParseState(*wait)
		if err != nil {
			return err
		}
		if err := t.orchestrator.WaitForState(ctx, t.vault, state); err != nil {
			return err
		}
	}

	v, err := t.orchestrator.GetVault(ctx, t.vault)
	if err != nil {
		return err
	}
	return printYAML(newVaultView(t.vault, v, t.orchestrator.PredictState(v)))
}

func runHistory(ctx context.Context, env *app.Env, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	docPath := fs.String("doc", "", "vault document")
	limit := fs.Uint64("limit", 100, "maximum records to print")
	if err := fs.Parse(args); err != nil {
		return err
	}

	t, err := loadTarget(env, *docPath)
	if err != nil {
		return err
	}

	records, err := env.Journal.GetAllByVault(ctx, base58.Encode(t.vault), query.EmptyCursor, *limit, query.Ascending)
	if errors.Is(err, journal.ErrNotFound) {
		records = nil
	} else if err != nil {
		return err
	}

	views := make([]recordView, len(records))
	for i, record := range records {
		views[i] = newRecordView(record)
	}
	return printYAML(views)
}

func runKeeper(ctx context.Context, env *app.Env, args []string) error {
	fs := flag.NewFlagSet("keeper", flag.ContinueOnError)
	var docPaths stringsFlag
	fs.Var(&docPaths, "doc", "vault document, repeatable")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(docPaths) == 0 {
		return errors.New("at least one -doc is required")
	}

	// One service per document, so that each vault is quoted against its
	// own venue
	var services []*keeper.Service
	for _, path := range docPaths {
		t, err := loadTarget(env, path)
		if err != nil {
			return errors.Wrapf(err, "error loading %s", path)
		}
		services = append(services, keeper.New(t.orchestrator, env.Payer, keeper.WithEnvConfigs(), t.vault))
	}

	var wg sync.WaitGroup
	errCh := make(chan error, len(services))
	for _, service := range services {
		wg.Add(1)
		go func(service *keeper.Service) {
			defer wg.Done()
			if err := service.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- err
			}
		}(service)
	}

	<-ctx.Done()
	env.Log.Info("interrupt received, shutting down")

	stopped := make(chan struct{})
	go func() {
		wg.Wait()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(env.Config.ShutdownGracePeriod):
		return errors.Errorf("failed to stop the keeper within %v", env.Config.ShutdownGracePeriod)
	}

	close(errCh)
	for err := range errCh {
		env.Log.WithError(err).Warn("keeper stopped with error")
		return err
	}
	return nil
}

type stringsFlag []string

func (s *stringsFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringsFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func parseKey(encoded string) (ed25519.PublicKey, error) {
	decoded, err := base58.Decode(encoded)
	if err != nil || len(decoded) != ed25519.PublicKeySize {
		return nil, errors.Errorf("invalid public key %q", encoded)
	}
	return decoded, nil
}

func encodeSignature(sig solana.Signature) string {
	return base58.Encode(sig[:])
}

func formatUnix(ts uint64) string {
	return time.Unix(int64(ts), 0).UTC().Format(time.RFC3339)
}

func printYAML(v interface{}) error {
	encoder := yaml.NewEncoder(stdout)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return errors.Wrap(err, "error encoding output")
	}
	return encoder.Close()
}
