package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"ntust-grades/lib/gradestore"
	"ntust-grades/lib/platforms/ntust/core"
	"ntust-grades/lib/platforms/ntust/grades"
	"ntust-grades/lib/platforms/ntust/sso"
	"ntust-grades/lib/restyutil"
	"ntust-grades/lib/telemetry"
	"ntust-grades/lib/timezone"

	"github.com/spf13/cobra"
)

// swapped out by tests only, the cli always talks to the real hosts
var endpoints = core.DefaultEndpoints

type options struct {
	Config
	username string
	password string
}

var flags Config

func init() {
	rootCmd.Flags().StringVar(&flags.Format, "format", formatJson, `Output format, "json" or "table".`)
	rootCmd.Flags().StringVar(&flags.Db, "db", "", "Also store the fetched grades as a snapshot in this sqlite file or libsql url.")
	rootCmd.Flags().StringVar(&flags.DumpHttp, "dump-http", "", "Write every http exchange into this directory, the password is redacted.")
	rootCmd.Flags().BoolVarP(&flags.Verbose, "verbose", "v", false, "Log debug information to stderr.")
	// flags go before the credentials, a password like "-secret" is positional
	rootCmd.Flags().SetInterspersed(false)
}

var rootCmd = &cobra.Command{
	Use:   "ntust-grades [flags] <username> <password>",
	Short: "ntust-grades logs into the NTUST SSO and prints your course grades as json.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return fmt.Errorf("read %s: %w", configFile, err)
		}
		opts := options{
			Config:   mergeFlags(cmd, cfg),
			username: args[0],
			password: args[1],
		}
		if opts.Format != formatJson && opts.Format != formatTable {
			return fmt.Errorf("unknown format %q", opts.Format)
		}

		telemetry.InitSlog(opts.Verbose)
		tel, err := telemetry.SetupFromEnv(cmd.Context(), "ntust-grades")
		if err == nil {
			defer shutdownTelemetry(tel)
			telemetry.InstrumentPerfStats(cmd.Context(), 30*time.Second)
		} else if !os.IsNotExist(err) {
			slog.Warn("failed to setup telemetry", "err", err)
		}

		// the json contract is not affected by anything past argument parsing
		cmd.SilenceUsage = true
		return run(cmd.Context(), opts, cmd.OutOrStdout())
	},
}

// mergeFlags takes config values for every flag not given explicitly.
func mergeFlags(cmd *cobra.Command, cfg Config) Config {
	merged := flags
	if !cmd.Flags().Changed("format") && cfg.Format != "" {
		merged.Format = cfg.Format
	}
	if !cmd.Flags().Changed("db") && cfg.Db != "" {
		merged.Db = cfg.Db
	}
	if !cmd.Flags().Changed("dump-http") && cfg.DumpHttp != "" {
		merged.DumpHttp = cfg.DumpHttp
	}
	if !cmd.Flags().Changed("verbose") && cfg.Verbose {
		merged.Verbose = true
	}
	return merged
}

func shutdownTelemetry(tel telemetry.Telemetry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := tel.Shutdown(ctx)
	if err != nil {
		slog.Warn("failed to shutdown telemetry", "err", err)
	}
}

func run(ctx context.Context, opts options, out io.Writer) error {
	tel := telemetry.SlogAPI{}

	sessionOpts := core.SessionOptions{
		Endpoints: endpoints,
		Telemetry: tel,
	}
	if opts.DumpHttp != "" {
		dump, err := restyutil.NewFilesystemOutput(opts.DumpHttp)
		if err != nil {
			return err
		}
		sessionOpts.DumpOutput = dump
	}

	session, err := core.NewSession(ctx, sessionOpts)
	if err != nil {
		return err
	}
	defer session.Close()

	auth := sso.NewAuthenticator(session, tel)
	if !auth.Login(ctx, opts.username, opts.password) {
		return writeLoginFailure(out)
	}

	courses := grades.NewExtractor(session, tel).FetchGrades(ctx)

	if opts.Db != "" {
		err = storeSnapshot(ctx, opts.Db, courses)
		if err != nil {
			slog.Warn("failed to store snapshot", "db", opts.Db, "err", err)
		}
	}

	return writeCourses(out, opts.Format, courses)
}

func storeSnapshot(ctx context.Context, dsn string, courses []grades.Course) error {
	store, err := gradestore.Open(ctx, dsn)
	if err != nil {
		return err
	}
	_, pushErr := store.Push(ctx, timezone.Now(), courses)
	return errors.Join(pushErr, store.Close())
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
