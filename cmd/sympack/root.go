package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/Ning0612/sympack/internal/config"
	"github.com/Ning0612/sympack/internal/logger"
	"github.com/Ning0612/sympack/internal/progress"
	"github.com/Ning0612/sympack/internal/service"
)

var (
	// Version is the semantic version (set via -ldflags)
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags)
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags)
	BuildDate = "unknown"
)

// app carries global flags and the service shared by every subcommand
type app struct {
	cfgFile string
	verbose bool
	quiet   bool

	cfg *config.Config
	svc *service.PackService
}

func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// newRootCmd builds the command tree around a
func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "sympack",
		Short: "Pack script trees into ZIP archives and executables",
		Long: TitleStyle.Render("sympack") + SubtitleStyle.Render(" - script archives and self-contained executables") + `

sympack compresses directories into ZIP archives (optionally ZipCrypto
encrypted), extracts them safely, and appends an archive holding
main.sym to an executable so the program can load its own script.

` + SubtitleStyle.Render("Examples:") + `
  sympack compress ./scripts app.zip -l 9
  sympack extract app.zip ./out -p secret
  sympack embed runtime.exe main.sym -o app.exe
  sympack payload app.exe
  sympack history`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default searches ./config.yaml, ~/.config/sympack/config.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging and per-entry progress")
	root.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "only print errors")

	root.AddCommand(
		newCompressCmd(a),
		newExtractCmd(a),
		newListCmd(a),
		newEmbedCmd(a),
		newStripCmd(a),
		newPayloadCmd(a),
		newHistoryCmd(a),
		newStatusCmd(a),
		newUnlockCmd(a),
	)
	return root
}

// setup loads config, starts the logger and opens the service
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return &ExitError{Code: ExitConfig, Err: err}
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}
	if err := logger.Init(cfg.LoggerConfig()); err != nil {
		return &ExitError{Code: ExitConfig, Err: fmt.Errorf("failed to initialize logger: %w", err)}
	}

	svc, err := service.NewPackService(cfg)
	if err != nil {
		return err
	}
	if a.verbose && !a.quiet {
		svc.SetProgressReporter(progress.NewTextReporter(cmd.ErrOrStderr()))
	}

	a.cfg, a.svc = cfg, svc
	return nil
}

// close releases the service and flushes logs
func (a *app) close() {
	if a.svc != nil {
		a.svc.Close()
		a.svc = nil
	}
	logger.Shutdown()
}

// printf writes to the command output unless --quiet
func (a *app) printf(w io.Writer, format string, args ...any) {
	if !a.quiet {
		fmt.Fprintf(w, format, args...)
	}
}

// Execute runs the CLI and returns the process exit code
func Execute() int {
	a := &app{}
	defer a.close()

	err := fang.Execute(
		context.Background(),
		newRootCmd(a),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	)
	return exitCode(err)
}
