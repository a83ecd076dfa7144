package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"connscan/internal/config"
	"connscan/internal/logging"
	"connscan/internal/output"
	"connscan/internal/probe"
	"connscan/internal/scan"
	"connscan/internal/services"
	"connscan/internal/targets"
	"connscan/internal/ui"
)

// options holds the resolved command line, after the config file is applied.
type options struct {
	ports    string
	threads  int
	timeout  float64 // seconds
	output   string
	format   string
	config   string
	services string
	noTUI    bool
	quiet    bool
	verbose  bool
	sort     bool
	shuffle  bool
}

// maxTimeoutSeconds is the largest timeout a time.Duration can hold.
const maxTimeoutSeconds = math.MaxInt64 / float64(time.Second)

func defaultOptions() options {
	return options{ports: "1-1024", threads: 50, timeout: 0.8}
}

func newRootCmd() *cobra.Command {
	defaults := defaultOptions()
	o := &options{}
	cmd := &cobra.Command{
		Use:   "connscan <host>",
		Short: "Concurrent TCP connect port scanner",
		Long: "connscan opens a full TCP connection to every requested port of one host\n" +
			"and reports the ports that accept, with their well-known service names.",
		Example: "  connscan scanme.example\n" +
			"  connscan 192.0.2.7 -p 22,80,443,8000-8100 --threads 200 --timeout 1.5\n" +
			"  connscan localhost -o results.xlsx --sort",
		Args:         cobra.ExactArgs(1),
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.config != "" {
				cfg, err := config.LoadConfig(o.config)
				if err != nil {
					return err
				}
				applyConfig(cfg, cmd.Flags().Changed, o)
			}
			return o.run(cmd.Context(), args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.SetVersionTemplate("connscan version {{.Version}}\n")

	f := cmd.Flags()
	f.StringVarP(&o.ports, "ports", "p", defaults.ports, "ports to scan, e.g. 22,80,443,8000-8100")
	f.IntVarP(&o.threads, "threads", "t", defaults.threads, "concurrent probes (1-1000)")
	f.Float64Var(&o.timeout, "timeout", defaults.timeout, "connect timeout in seconds")
	f.StringVarP(&o.output, "output", "o", "", "export open ports to a file, - for stdout")
	f.StringVar(&o.format, "format", "", "export format: csv, json, text, grep, xlsx (default from the output extension)")
	f.StringVarP(&o.config, "config", "c", "", "config file (YAML)")
	f.StringVar(&o.services, "services", "", "extra service-name YAML file or directory")
	f.BoolVar(&o.noTUI, "no-tui", false, "disable the interactive view")
	f.BoolVarP(&o.quiet, "quiet", "q", false, "print the summary only")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "debug logging")
	f.BoolVar(&o.sort, "sort", false, "order the summary and export by port number")
	f.BoolVar(&o.shuffle, "shuffle", false, "probe ports in random order")
	return cmd
}

// applyConfig copies config values into o for every flag not set on the command line.
func applyConfig(cfg *config.Config, changed func(name string) bool, o *options) {
	s := cfg.Scan
	out := cfg.Output

	if !changed("ports") && s.Ports != "" {
		o.ports = s.Ports
	}
	if !changed("threads") && s.Threads > 0 {
		o.threads = s.Threads
	}
	if !changed("timeout") && s.Timeout.Duration > 0 {
		o.timeout = s.Timeout.Seconds()
	}
	if !changed("shuffle") && s.Shuffle {
		o.shuffle = true
	}
	if !changed("services") && s.Services != "" {
		o.services = s.Services
	}
	if !changed("output") && out.File != "" {
		o.output = out.File
	}
	if !changed("format") && out.Format != "" {
		o.format = out.Format
	}
	if !changed("quiet") && out.Quiet {
		o.quiet = true
	}
	if !changed("verbose") && out.Verbose {
		o.verbose = true
	}
	if !changed("no-tui") && out.NoTUI {
		o.noTUI = true
	}
	if !changed("sort") && out.Sort {
		o.sort = true
	}
}

func (o *options) exportFormat() (output.Format, error) {
	if o.format != "" {
		return output.ParseFormat(o.format)
	}
	return output.FormatForPath(o.output), nil
}

func (o *options) run(ctx context.Context, host string, stdout, stderr io.Writer) error {
	log := logging.NewWithWriter(stderr, logging.Level(o.verbose, o.quiet))
	defer log.Sync()

	if o.timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", o.timeout)
	}
	if o.timeout >= maxTimeoutSeconds {
		return fmt.Errorf("timeout too large, got %v (max %.0f seconds)", o.timeout, maxTimeoutSeconds)
	}
	format, err := o.exportFormat()
	if err != nil {
		return err
	}

	ports, err := targets.ResolvePorts(o.ports, func(te targets.TokenError) {
		log.Warn(te.Error(), zap.String("token", te.Token), zap.String("reason", te.Reason))
	})
	if err != nil {
		return err
	}
	addr, err := targets.ResolveHost(ctx, nil, host)
	if err != nil {
		return err
	}

	var overrides []string
	if o.services != "" {
		overrides = append(overrides, o.services)
	}
	table, err := services.Default(overrides...)
	if err != nil {
		return fmt.Errorf("load services: %w", err)
	}

	sess := scan.Session{
		Host:        host,
		Addr:        addr,
		Timeout:     time.Duration(o.timeout * float64(time.Second)),
		Concurrency: o.threads,
		Ports:       ports,
		Shuffle:     o.shuffle,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Stdout carries the export, so console output moves to stderr.
	toStdout := o.output == output.Stdout
	printer := &ui.TextPrinter{Out: stdout, Err: stderr}
	if toStdout {
		printer.Out = stderr
	}
	mode := ui.SelectMode(isTerminal(stdout), o.noTUI || toStdout, o.quiet)
	log.Debug("starting", zap.Stringer("mode", mode), zap.Stringer("ports", ports))

	coord := &scan.Coordinator{Services: table, Logger: log}
	var rep scan.Report
	switch mode {
	case ui.ModeTUI:
		rep, err = runTUI(ctx, cancel, coord, sess, stdout)
	case ui.ModeText:
		printer.PrintHeader(sess)
		coord.OnOpen = printer.PrintOpen
		rep, err = coord.Run(ctx, sess)
	default:
		rep, err = coord.Run(ctx, sess)
	}
	if err != nil {
		return err
	}

	printer.PrintSummary(rep, o.sort)

	if o.output == "" {
		return nil
	}
	open := rep.Open
	if o.sort {
		open = scan.SortByPort(open)
	}
	if err := output.Export(stdout, o.output, format, output.Records(host, addr, open)); err != nil {
		// The scan itself succeeded; a failed export is reported but not fatal.
		log.Error("could not save results", zap.String("path", o.output), zap.Error(err))
		return nil
	}
	if !toStdout {
		printer.PrintSaved(o.output)
	}
	return nil
}

// runTUI drives the interactive view while the coordinator runs in the background.
// Quitting the view cancels the scan.
func runTUI(ctx context.Context, cancel context.CancelFunc, coord *scan.Coordinator, sess scan.Session, stdout io.Writer) (scan.Report, error) {
	model := ui.NewModel(sess.Host, sess.Addr.String(), sess.Ports.String(), sess.Ports.Len(), cancel)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithOutput(stdout))

	coord.OnOpen = func(r probe.Result) { program.Send(ui.OpenMsg(r)) }
	coord.OnProgress = func(done, total int) { program.Send(ui.ProgressMsg{Done: done, Total: total}) }

	var (
		rep    scan.Report
		runErr error
	)
	scanDone := make(chan struct{})
	go func() {
		defer close(scanDone)
		rep, runErr = coord.Run(ctx, sess)
		program.Send(ui.DoneMsg{Report: rep})
	}()

	_, tuiErr := program.Run()
	if tuiErr != nil {
		cancel()
	}
	<-scanDone
	return rep, errors.Join(runErr, tuiErr)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
