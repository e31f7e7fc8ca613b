package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/medgraph/medgraph/engine/bootstrap"
	"github.com/medgraph/medgraph/engine/rag"
	"github.com/medgraph/medgraph/pkg/config"
	"github.com/medgraph/medgraph/pkg/natsutil"
)

var (
	envFile string
	verbose bool
	asJSON  bool
)

var rootCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the medical knowledge graph a question",
	Long: `Ask the medical knowledge graph a question.

Examples:
  ask "what are the symptoms of malaria"
  ask --json "how to prevent dengue"
  ask vocab --symptoms
  ask events`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := bootstrap.Build(ctx, cfg, nil, logger)
		if err != nil {
			return err
		}
		defer closeApp(app, logger)

		resp := app.Service.Process(ctx, strings.Join(args, " "))
		if asJSON {
			err = printJSON(cmd.OutOrStdout(), resp)
		} else {
			printResponse(cmd.OutOrStdout(), resp)
		}
		if err != nil {
			return err
		}
		if resp.Outcome == rag.OutcomeStoreFailure || resp.Outcome == rag.OutcomeEmptyInput {
			return fmt.Errorf("query %s", resp.Outcome)
		}
		return nil
	},
}

var vocabCmd = &cobra.Command{
	Use:   "vocab",
	Short: "List the disease and symptom names loaded from the graph",
	RunE: func(cmd *cobra.Command, args []string) error {
		symptoms, _ := cmd.Flags().GetBool("symptoms")

		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		app, err := bootstrap.Build(ctx, cfg, nil, logger)
		if err != nil {
			return err
		}
		defer closeApp(app, logger)

		kind, list := "diseases", app.Graph.DiseaseNames(ctx)
		if symptoms {
			kind, list = "symptoms", app.Graph.SymptomNames(ctx)
		}
		names, err := list.Unwrap()
		if err != nil {
			return fmt.Errorf("listing %s: %w", kind, err)
		}
		printNames(cmd.OutOrStdout(), kind, names)
		return nil
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Follow processed-query events published by the API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		if cfg.NATSURL == "" {
			return fmt.Errorf("NATS_URL is not set")
		}
		nc, err := natsutil.Connect(cfg.NATSURL, "medgraph-ask", logger)
		if err != nil {
			return err
		}
		defer nc.Close()

		out := cmd.OutOrStdout()
		sub, err := natsutil.Subscribe(nc, rag.EventSubject, func(_ context.Context, ev rag.QueryEvent) {
			fmt.Fprintln(out, formatEvent(ev))
		})
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", rag.EventSubject, err)
		}
		defer sub.Unsubscribe()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		fmt.Fprintf(cmd.ErrOrStderr(), "listening on %s (ctrl-c to stop)\n", rag.EventSubject)
		<-ctx.Done()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "optional dotenv file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline steps to stderr")
	rootCmd.Flags().BoolVar(&asJSON, "json", false, "print the raw JSON response")
	vocabCmd.Flags().Bool("symptoms", false, "list symptoms instead of diseases")

	rootCmd.AddCommand(vocabCmd, eventsCmd)
}

func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, err
	}
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return cfg, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

func closeApp(app *bootstrap.App, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.Close(ctx); err != nil {
		logger.Warn("close failed", "err", err)
	}
}
