package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/tranche-vault/pkg/app"
)

var configPath = flag.String("config", "vault-cli.yaml", "configuration file path")

type command struct {
	usage string
	run   func(ctx context.Context, env *app.Env, args []string) error
}

var commands = map[string]command{
	"template":       {"print an example vault document", runTemplate},
	"airdrop":        {"[-to key] [-lamports n] fund an account on a test cluster", runAirdrop},
	"init-global":    {"[-treasury key] initialize the global protocol state", runInitGlobal},
	"init-strategy":  {"-doc file initialize the document's strategy", runInitStrategy},
	"init-vault":     {"-doc file initialize the document's vault", runInitVault},
	"deposit":        {"-doc file -tranche alpha|beta -amount n", runDeposit},
	"invest":         {"-doc file [-alpha n -beta n] [-min-lp n]", runInvest},
	"process-claims": {"-doc file process every pending claim", runProcessClaims},
	"claim":          {"-doc file -tranche alpha|beta", runClaim},
	"redeem":         {"-doc file [-min-a n -min-b n] [-estimate]", runRedeem},
	"withdraw":       {"-doc file -tranche alpha|beta [-lp n]", runWithdraw},
	"farm":           {"-doc file init|convert|harvest|revert|swap [-amount-in n -min-out n]", runFarm},
	"state":          {"-doc file [-wait state] print the vault", runState},
	"history":        {"-doc file [-limit n] print journaled operations", runHistory},
	"keeper":         {"-doc file [-doc file...] crank vaults until interrupted", runKeeper},
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "usage: vault-cli [-config file] <command> [flags]\n\ncommands:\n")

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-15s %s\n", name, commands[name].usage)
	}
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if err := run(flag.Args()); err != nil {
		logrus.StandardLogger().WithError(err).Error("command failed")
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		usage()
		return errors.Errorf("missing command")
	}

	cmd, ok := commands[args[0]]
	if !ok {
		usage()
		return errors.Errorf("unknown command %q", args[0])
	}

	// Templates don't need a keypair or RPC node
	if args[0] == "template" {
		return cmd.run(context.Background(), nil, args[1:])
	}

	config, err := app.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	env, err := app.NewEnv(config)
	if err != nil {
		return err
	}
	defer env.Close()

	ctx, cancel := app.SignalContext(context.Background())
	defer cancel()

	ctx, end := env.StartOperation(ctx, args[0])
	err = cmd.run(ctx, env, args[1:])
	end(err)
	return err
}
