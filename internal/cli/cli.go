// Package cli is the finassist command line: an interactive chat (the default),
// one-shot questions, and maintenance commands for seeding and alerts.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"finassist/internal/alerts"
	"finassist/internal/app"
	"finassist/internal/assistant"
	"finassist/internal/config"
	"finassist/internal/formatter"
	"finassist/internal/logging"
)

// errReported means the command already printed its failure.
var errReported = errors.New("reported")

// deps is what commands need from the outside world. Tests replace newAsker.
type deps struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	loadConfig func() (config.Config, string, error)
	newAsker   func(ctx context.Context, cfg config.Config, log *zap.Logger) (Asker, error)
	services   func(ctx context.Context, cfg config.Config) (*app.Services, error)
}

func defaultDeps() *deps {
	return &deps{
		in:         os.Stdin,
		out:        os.Stdout,
		errOut:     os.Stderr,
		loadConfig: config.Load,
		services:   newServices,
		newAsker: func(ctx context.Context, cfg config.Config, log *zap.Logger) (Asker, error) {
			svc, err := newServices(ctx, cfg)
			if err != nil {
				return nil, err
			}
			return svc.Pipeline(ctx, cfg, log)
		},
	}
}

func newServices(ctx context.Context, cfg config.Config) (*app.Services, error) {
	awsCfg, err := cfg.AWS(ctx)
	if err != nil {
		return nil, err
	}
	return app.NewServices(awsCfg), nil
}

// Main runs the CLI and exits non-zero on failure.
func Main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt := defaultDeps()
	root := newRootCmd(rt)
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(rt.errOut, newStyles(rt.errOut).err.Render(assistant.ErrorText(err)))
		}
		os.Exit(1)
	}
}

func newRootCmd(rt *deps) *cobra.Command {
	root := &cobra.Command{
		Use:   "finassist",
		Short: "Ask about your subscriptions, financial products and goals.",
		Long: `finassist routes a plain-language request to one of a small set of financial
functions, runs it against your data and prints the answer.

  finassist                          # interactive chat
  finassist ask "show my goals"      # one question
  finassist seed                     # load the function catalog and sample data

Settings come from .finassist/config.yaml (working directory, then home),
then environment variables, then flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd, rt)
		},
	}
	root.SetIn(rt.in)
	root.SetOut(rt.out)
	root.SetErr(rt.errOut)

	f := root.PersistentFlags()
	f.Bool("local", false, "Call DynamoDB and Bedrock directly instead of the deployed functions")
	f.Bool("verbose", false, "Log at debug level on stderr")
	f.String("user", "", "User id to act as (default from config, then test_user)")
	f.String("region", "", "AWS region")

	chat := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive session (default).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd, rt)
		},
	}

	ask := &cobra.Command{
		Use:   "ask QUESTION...",
		Short: "Answer one request and exit.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, rt, strings.Join(args, " "))
		},
	}
	ask.Flags().Bool("skip-execution", false, "Only report which function matched")
	ask.Flags().Bool("raw", false, "Print the raw function result before the formatted answer")

	seed := &cobra.Command{
		Use:   "seed",
		Short: "Write the function catalog and sample records to DynamoDB.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, rt)
		},
	}

	alertsCmd := &cobra.Command{
		Use:   "alerts",
		Short: "Manage goal-reached notifications.",
	}
	alertsCmd.AddCommand(&cobra.Command{
		Use:   "subscribe EMAIL",
		Short: "Subscribe an email address to the goal alerts topic.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubscribe(cmd, rt, args[0])
		},
	})

	root.AddCommand(chat, ask, seed, alertsCmd)
	return root
}

// settings merges config file, environment and flags, and builds the logger.
func settings(cmd *cobra.Command, rt *deps) (config.Config, *zap.Logger, error) {
	cfg, _, err := rt.loadConfig()
	if err != nil {
		return config.Config{}, nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("local") {
		cfg.Local, _ = flags.GetBool("local")
	}
	if u, _ := flags.GetString("user"); strings.TrimSpace(u) != "" {
		cfg.UserID = strings.TrimSpace(u)
	}
	if r, _ := flags.GetString("region"); strings.TrimSpace(r) != "" {
		cfg.Region = strings.TrimSpace(r)
	}

	// JSON logs would interleave with the conversation, so only errors by default.
	level := "error"
	if v, _ := flags.GetBool("verbose"); v {
		level = "debug"
	}
	log, err := logging.New(level)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}

func runChat(cmd *cobra.Command, rt *deps) error {
	cfg, log, err := settings(cmd, rt)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	asker, err := rt.newAsker(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	return NewSession(asker, cfg.UserID, cmd.InOrStdin(), cmd.OutOrStdout()).Run(cmd.Context())
}

func runAsk(cmd *cobra.Command, rt *deps, question string) error {
	cfg, log, err := settings(cmd, rt)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	asker, err := rt.newAsker(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}

	skip, _ := cmd.Flags().GetBool("skip-execution")
	raw, _ := cmd.Flags().GetBool("raw")

	out := cmd.OutOrStdout()
	st := newStyles(out)
	res := asker.Ask(cmd.Context(), cfg.UserID, question, assistant.Options{SkipExecution: skip})

	if raw && res.Raw != nil {
		pretty, err := formatter.Pretty(res.Raw)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, pretty)
	}
	fmt.Fprintln(out, st.outcome(res))

	if res.Kind == assistant.KindError {
		return errReported
	}
	return nil
}

func runSeed(cmd *cobra.Command, rt *deps) error {
	cfg, log, err := settings(cmd, rt)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	svc, err := rt.services(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	n, err := svc.Seeder(log).Seed(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d items.\n", n)
	return nil
}

func runSubscribe(cmd *cobra.Command, rt *deps, email string) error {
	cfg, log, err := settings(cmd, rt)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	svc, err := rt.services(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	arn, err := alerts.NewNotifier(svc.SNS, alerts.TopicArnFromEnv(), log).Subscribe(cmd.Context(), email)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Subscription requested (%s). Check %s to confirm.\n", arn, email)
	return nil
}
