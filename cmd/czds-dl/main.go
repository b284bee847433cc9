package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/matthieugras/czds-client/internal/api"
	"github.com/matthieugras/czds-client/internal/config"
	"github.com/matthieugras/czds-client/internal/logging"
	"github.com/matthieugras/czds-client/internal/output"
	"github.com/matthieugras/czds-client/internal/ui"
	"github.com/matthieugras/czds-client/internal/zone"
)

var (
	version = "0.1.0"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "czds-dl",
		Short: "Download zone files from ICANN's Centralized Zone Data Service",
		Long: `A CLI tool to list, inspect and download the zone files your CZDS account is approved for.

Access tokens are obtained from the account API and renewed transparently when they expire.`,
		Version:       version,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // We handle error output ourselves
	}

	// Setup flags
	config.SetupFlags(rootCmd)

	rootCmd.AddCommand(linksCmd(), probeCmd(), fetchCmd(), downloadCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.ErrorStyle.Render(err.Error()))
		logging.Close() // Ensure log file is flushed before exit
		os.Exit(1)
	}
}

// session bundles what every subcommand needs
type session struct {
	cfg    *config.Config
	client *api.Client
	ctx    context.Context
	cancel context.CancelFunc
}

func (s *session) Close() {
	s.cancel()
	logging.Close()
}

// newSession loads configuration and sets up logging
func newSession() (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	// Initialize logger if log file specified; --verbose without a file logs to stderr
	switch {
	case cfg.LogFile != "":
		if err := logging.Init(cfg.LogFile); err != nil {
			return nil, fmt.Errorf("failed to initialize logging: %w", err)
		}
	case cfg.Verbose:
		logging.InitWriter(os.Stderr, hclog.Debug)
	}
	logging.Info("Configuration loaded: auth=%s data=%s user=%s output=%s",
		cfg.AuthenticationURL(), cfg.DataBaseURL, cfg.Username, cfg.OutputDir)

	// Setup context with signal handling using NotifyContext.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &session{cfg: cfg, ctx: ctx, cancel: cancel}, nil
}

// connect builds the authenticated client.
// One HTTP client is shared by the authenticator and the transport.
func (s *session) connect(opts ...api.Option) *api.Client {
	httpClient := api.BuildHTTPClient(api.HTTPOptions{
		Timeout:      s.cfg.HTTPTimeout,
		RetryMax:     s.cfg.RetryMax,
		RetryWaitMin: s.cfg.RetryWaitMin,
		RetryWaitMax: s.cfg.RetryWaitMax,
	})
	s.client = api.New(httpClient, s.cfg.ClientConfig, opts...)
	return s.client
}

func linksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "links",
		Short: "List the zone files the account is approved for",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession()
			if err != nil {
				return err
			}
			defer s.Close()
			s.connect()

			links, err := newDownloader(s, nil, nil).Links(s.ctx)
			if err != nil {
				return err
			}
			ui.PrintLinks(cmd.OutOrStdout(), links)
			return nil
		},
	}
}

func probeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe <url>",
		Short: "Send an authenticated HEAD request and print status and headers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			s, err := newSession()
			if err != nil {
				return err
			}
			defer s.Close()
			s.connect(api.WithDiagnostics(ui.NewReporter(out).Diagnostic))

			resp, err := s.client.Probe(s.ctx, args[0])
			if err != nil {
				return err
			}
			ui.PrintProbe(out, args[0], resp)
			return nil
		},
	}
}

func fetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Send an authenticated GET request and write the body to stdout or a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession()
			if err != nil {
				return err
			}
			defer s.Close()
			s.connect()

			target, _ := cmd.Flags().GetString("output-file")

			resp, err := s.client.Fetch(s.ctx, args[0])
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if target == "" || target == "-" {
				_, err := io.Copy(cmd.OutOrStdout(), resp.Body)
				return err
			}

			files, err := output.NewFileManager(filepath.Dir(target))
			if err != nil {
				return err
			}
			writer, err := files.NewZoneWriter(filepath.Base(target))
			if err != nil {
				return err
			}
			if _, err := io.Copy(writer, resp.Body); err != nil {
				writer.Abort()
				return fmt.Errorf("failed to read body of %s: %w", args[0], err)
			}
			if err := writer.Commit(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), ui.SuccessStyle.Render(
				fmt.Sprintf("✓ %s (%s)", writer.Path(), ui.FormatBytes(writer.Count()))))
			return nil
		},
	}
	cmd.Flags().StringP("output-file", "O", "", "Write the body to this file instead of stdout")
	return cmd
}

func downloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download [tld...]",
		Short: "Download all approved zone files, or only the given TLDs",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession()
			if err != nil {
				return err
			}
			defer s.Close()
			return runDownload(s, cmd.OutOrStdout(), args)
		},
	}
}

// runDownload downloads the approved zones, or the selected TLDs, reporting to out.
// Skipped zones are reported through their result only, so the client gets no
// diagnostics hook here.
func runDownload(s *session, out io.Writer, tlds []string) error {
	s.connect()
	reporter := ui.NewReporter(out)

	files, err := output.NewFileManager(s.cfg.OutputDir)
	if err != nil {
		return err
	}
	downloader := newDownloader(s, files, reporter)

	links, err := downloader.Links(s.ctx)
	if err != nil {
		return err
	}
	if len(tlds) > 0 {
		links = zone.FilterLinks(links, tlds)
		if len(links) == 0 {
			return fmt.Errorf("none of %v is among the approved zone files", config.NormalizeZones(tlds))
		}
	}

	reporter.Start(len(links))
	_, err = downloader.DownloadAll(s.ctx, links, reporter.Result)
	if err != nil {
		reporter.Fatal(err)
	}
	reporter.Summary()

	if err != nil {
		return err
	}
	if n := reporter.Failed(); n > 0 {
		return fmt.Errorf("%d zone files failed", n)
	}
	return nil
}

// newDownloader wires the session into a zone downloader.
// files may be nil when only Links is used; reporter may be nil.
func newDownloader(s *session, files *output.FileManager, reporter *ui.Reporter) *zone.Downloader {
	opts := zone.Options{
		DataBaseURL: s.cfg.DataBaseURL,
		MaxAttempts: s.cfg.MaxAttempts,
		Backoff:     s.cfg.GetBackoffConfig(),
	}
	if reporter != nil {
		opts.OnBackoff = reporter.Backoff
	}
	return zone.NewDownloader(s.client, files, opts)
}
