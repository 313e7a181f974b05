// Package cli provides the command-line interface with injectable io.Writer for testing.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mcdonaldj/genbak/internal/adapters/aferofs"
	"github.com/mcdonaldj/genbak/internal/adapters/maclaunchd"
	"github.com/mcdonaldj/genbak/internal/backup"
	"github.com/mcdonaldj/genbak/internal/backuperr"
	"github.com/mcdonaldj/genbak/internal/config"
	"github.com/mcdonaldj/genbak/internal/generation"
	"github.com/mcdonaldj/genbak/internal/history"
	"github.com/mcdonaldj/genbak/internal/logging"
	"github.com/mcdonaldj/genbak/internal/ports"
	"github.com/mcdonaldj/genbak/internal/recovery"
)

// ConfigService provides configuration operations for the CLI.
type ConfigService interface {
	Load() (*config.Config, error)
	Save(cfg *config.Config) error
	ConfigPath() (string, error)
	DefaultConfig() *config.Config
}

// BackupService provides backup operations for the CLI.
type BackupService interface {
	BackupOrDiff(ctx context.Context, req backup.Request) (backup.Result, error)
	CopyBackup(workFile, root string) (string, error)
	ArchiveBackup(workFile, root string) (string, error)
}

// RecoveryService provides recovery operations for the CLI.
type RecoveryService interface {
	Restore(ctx context.Context, workFile string, deltaPaths []string) (recovery.Result, error)
	RestoreFull(workFile, backupPath string) (string, error)
	OutputPath(workFile string) string
}

// HistoryService lists backups and manages their notes.
type HistoryService interface {
	Scan(root, workFile string) ([]history.Entry, error)
	Generations(root string) ([]generation.Generation, error)
	ReadNote(artifact string) (string, error)
	WriteNote(artifact, text string) error
}

// CLI represents the command-line interface with injectable dependencies.
type CLI struct {
	Out     io.Writer // Standard output
	Err     io.Writer // Standard error
	Version string    // Application version
	Args    []string  // Command arguments (like os.Args)

	// Context bounds delta production and replay (defaults to Background)
	Context context.Context

	// Exit function for testability (defaults to os.Exit)
	Exit func(code int)

	// Injectable dependencies (nil means use defaults)
	ConfigSvc   ConfigService
	BackupSvc   BackupService
	RecoverySvc RecoveryService
	HistorySvc  HistoryService
	Scheduler   ports.Scheduler

	// Color functions (can be disabled for testing)
	green  func(a ...interface{}) string
	yellow func(a ...interface{}) string
	cyan   func(a ...interface{}) string
	gray   func(a ...interface{}) string
	red    func(a ...interface{}) string
}

// New creates a new CLI with default settings.
func New(version string) *CLI {
	return &CLI{
		Out:     os.Stdout,
		Err:     os.Stderr,
		Version: version,
		Args:    os.Args,
		Context: context.Background(),
		Exit:    os.Exit,
		green:   color.New(color.FgGreen, color.Bold).SprintFunc(),
		yellow:  color.New(color.FgYellow).SprintFunc(),
		cyan:    color.New(color.FgCyan).SprintFunc(),
		gray:    color.New(color.FgHiBlack).SprintFunc(),
		red:     color.New(color.FgRed).SprintFunc(),
	}
}

// NewForTesting creates a CLI configured for testing (no colors, captured output).
func NewForTesting(out, errOut io.Writer, args []string) *CLI {
	noColor := func(a ...interface{}) string { return fmt.Sprint(a...) }
	return &CLI{
		Out:     out,
		Err:     errOut,
		Version: "test",
		Args:    args,
		Context: context.Background(),
		Exit:    func(code int) {},
		green:   noColor,
		yellow:  noColor,
		cyan:    noColor,
		gray:    noColor,
		red:     noColor,
	}
}

// defaultConfigService wraps the config package functions.
type defaultConfigService struct{}

func (d *defaultConfigService) Load() (*config.Config, error) { return config.Load() }
func (d *defaultConfigService) Save(cfg *config.Config) error { return cfg.Save() }
func (d *defaultConfigService) ConfigPath() (string, error) { return config.ConfigPath() }
func (d *defaultConfigService) DefaultConfig() *config.Config { return config.DefaultConfig() }

// defaultHistoryService reads history from the real filesystem.
type defaultHistoryService struct {
	fs ports.FileSystem
}

func (d *defaultHistoryService) Scan(root, workFile string) ([]history.Entry, error) {
	return history.Scan(d.fs, root, workFile)
}
func (d *defaultHistoryService) Generations(root string) ([]generation.Generation, error) {
	return generation.NewStore(d.fs).List(root)
}
func (d *defaultHistoryService) ReadNote(artifact string) (string, error) {
	return history.ReadNote(d.fs, artifact)
}
func (d *defaultHistoryService) WriteNote(artifact, text string) error {
	return history.WriteNote(d.fs, artifact, text)
}

// Helper methods to get the service or default
func (c *CLI) configSvc() ConfigService {
	if c.ConfigSvc != nil {
		return c.ConfigSvc
	}
	return &defaultConfigService{}
}

func (c *CLI) backupSvc(cfg *config.Config) BackupService {
	if c.BackupSvc != nil {
		return c.BackupSvc
	}
	return backup.NewDefaultService(cfg)
}

func (c *CLI) recoverySvc(cfg *config.Config) RecoveryService {
	if c.RecoverySvc != nil {
		return c.RecoverySvc
	}
	return recovery.NewDefaultService(cfg)
}

func (c *CLI) historySvc() HistoryService {
	if c.HistorySvc != nil {
		return c.HistorySvc
	}
	return &defaultHistoryService{fs: aferofs.NewOS()}
}

func (c *CLI) scheduler() ports.Scheduler {
	if c.Scheduler != nil {
		return c.Scheduler
	}
	return maclaunchd.New()
}

func (c *CLI) ctx() context.Context {
	if c.Context != nil {
		return c.Context
	}
	return context.Background()
}

// Run executes the CLI with the configured arguments.
func (c *CLI) Run() {
	if len(c.Args) < 2 {
		fmt.Fprintln(c.Out, "No command specified. Use 'genbak help' for usage.")
		return
	}

	switch c.Args[1] {
	case "backup":
		c.RunBackup()
	case "copy":
		c.RunCopy()
	case "archive":
		c.RunArchive()
	case "restore":
		c.RunRestore()
	case "restore-full":
		c.RunRestoreFull()
	case "list", "history":
		c.ListHistory()
	case "generations":
		c.ListGenerations()
	case "note":
		c.RunNote()
	case "init":
		c.InitConfig()
	case "schedule":
		c.InstallSchedule()
	case "unschedule":
		c.UninstallSchedule()
	case "status":
		c.ShowStatus()
	case "version", "-v", "--version":
		fmt.Fprintf(c.Out, "genbak v%s\n", c.Version)
	case "help", "-h", "--help":
		c.PrintUsage()
	default:
		fmt.Fprintf(c.Err, "Unknown command: %s\n", c.Args[1])
		c.PrintUsage()
		c.Exit(1)
	}
}

// PrintUsage prints the help message.
func (c *CLI) PrintUsage() {
	fmt.Fprintln(c.Out, `genbak - Generation-based Incremental File Backup

Usage:
  genbak ui <file>                         Browse generations and deltas interactively
  genbak backup <file> [--algo=bsdiff|hdiff] [--threshold=0.5] [--compress=zstd] [--root=DIR]
                                           Record the file as a delta (starting or rotating generations)
  genbak copy <file> [--root=DIR]          Full copy backup
  genbak archive <file> [--root=DIR]       Full zip backup
  genbak restore <file> <delta>...         Replay deltas in order to <stem>_restored<ext>
  genbak restore-full <file> <backup>      Restore a full copy or zip backup
  genbak list <file> [--root=DIR]          List every backup of the file
  genbak generations <file> [--root=DIR]   List generations
  genbak note <artifact> [text...]         Show or set the note of a backup ("" clears it)
  genbak schedule <file> [--every=MIN]     Install a launchd agent backing up the file periodically
  genbak unschedule                        Remove the launchd agent
  genbak status                            Show configuration and schedule status
  genbak init                              Create default config file
  genbak version, -v                       Show version
  genbak help, -h                          Show this help

Config: ~/.genbak/config.yaml`)
}

// loadConfig loads the config and configures logging from it.
func (c *CLI) loadConfig() (*config.Config, bool) {
	cfg, err := c.configSvc().Load()
	if err != nil {
		fmt.Fprintf(c.Err, "Error loading config: %v\n", err)
		c.Exit(1)
		return nil, false
	}
	if err := logging.Init(logging.FromConfig(cfg), c.Err); err != nil {
		fmt.Fprintf(c.Err, "Error configuring logging: %v\n", err)
		c.Exit(1)
		return nil, false
	}
	return cfg, true
}

// fail prints err labelled with its error kind and exits.
func (c *CLI) fail(what string, err error) {
	label := "error"
	if kind := backuperr.Kind(err); kind != "" {
		label = kind
	}
	fmt.Fprintf(c.Err, "%s %s: %v\n", c.red("["+label+"]"), what, err)
	c.Exit(1)
}

// parseArgs splits the arguments after the command into positionals and
// --key=value flags.
func parseArgs(args []string) ([]string, map[string]string) {
	var positional []string
	flags := make(map[string]string)
	for _, arg := range args {
		if strings.HasPrefix(arg, "--") {
			k, v, _ := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
			flags[k] = v
			continue
		}
		positional = append(positional, arg)
	}
	return positional, flags
}

// rootFor returns the --root flag or the configured root for workFile.
func rootFor(cfg *config.Config, workFile string, flags map[string]string) string {
	if root := flags["root"]; root != "" {
		return config.ExpandPath(root)
	}
	return cfg.RootFor(workFile)
}

// InitConfig creates the default config file.
func (c *CLI) InitConfig() {
	svc := c.configSvc()
	if err := svc.Save(svc.DefaultConfig()); err != nil {
		fmt.Fprintf(c.Err, "Error saving config: %v\n", err)
		c.Exit(1)
		return
	}
	path, err := svc.ConfigPath()
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
		return
	}
	fmt.Fprintf(c.Out, "Created config at %s\n", path)
}

// RunBackup records the working file as a delta.
func (c *CLI) RunBackup() {
	args, flags := parseArgs(c.Args[2:])
	if len(args) != 1 {
		fmt.Fprintln(c.Out, "Usage: genbak backup <file> [--algo=bsdiff|hdiff] [--threshold=0.5] [--compress=zstd] [--root=DIR]")
		c.Exit(1)
		return
	}

	cfg, ok := c.loadConfig()
	if !ok {
		return
	}

	req := backup.RequestFor(cfg, args[0])
	req.Root = rootFor(cfg, args[0], flags)
	if algo := flags["algo"]; algo != "" {
		req.Algorithm = algo
	}
	if compress := flags["compress"]; compress != "" {
		req.Compress = compress
	}
	if s := flags["threshold"]; s != "" {
		threshold, err := strconv.ParseFloat(s, 64)
		if err != nil || threshold <= 0 {
			fmt.Fprintf(c.Err, "Invalid threshold %q: must be a positive number\n", s)
			c.Exit(1)
			return
		}
		req.Threshold = threshold
	}

	res, err := c.backupSvc(cfg).BackupOrDiff(c.ctx(), req)
	if err != nil {
		c.fail("Backup failed", err)
		return
	}

	switch {
	case res.Created:
		fmt.Fprintf(c.Out, "%s Started generation %d in %s\n", c.cyan("=>"), res.Generation.Index, res.Generation.Dir)
	case res.Rotated:
		fmt.Fprintf(c.Out, "%s Deltas outgrew the base, rotated to generation %d\n", c.yellow("!"), res.Generation.Index)
	}
	fmt.Fprintf(c.Out, "%s %s %s\n",
		c.green("*"),
		filepath.Base(res.DeltaPath),
		c.yellow(backup.FormatSize(res.Size)))
}

// RunCopy takes a full copy backup.
func (c *CLI) RunCopy() {
	c.runFull("copy", func(svc BackupService, work, root string) (string, error) {
		return svc.CopyBackup(work, root)
	})
}

// RunArchive takes a full zip backup.
func (c *CLI) RunArchive() {
	c.runFull("archive", func(svc BackupService, work, root string) (string, error) {
		return svc.ArchiveBackup(work, root)
	})
}

func (c *CLI) runFull(command string, take func(svc BackupService, work, root string) (string, error)) {
	args, flags := parseArgs(c.Args[2:])
	if len(args) != 1 {
		fmt.Fprintf(c.Out, "Usage: genbak %s <file> [--root=DIR]\n", command)
		c.Exit(1)
		return
	}

	cfg, ok := c.loadConfig()
	if !ok {
		return
	}

	path, err := take(c.backupSvc(cfg), args[0], rootFor(cfg, args[0], flags))
	if err != nil {
		c.fail("Backup failed", err)
		return
	}
	fmt.Fprintf(c.Out, "%s %s\n", c.green("*"), path)
}

// RunRestore replays deltas against their base snapshots.
func (c *CLI) RunRestore() {
	args, _ := parseArgs(c.Args[2:])
	if len(args) < 2 {
		fmt.Fprintln(c.Out, "Usage: genbak restore <file> <delta>...")
		c.Exit(1)
		return
	}

	cfg, ok := c.loadConfig()
	if !ok {
		return
	}

	work, deltas := args[0], args[1:]
	res, err := c.recoverySvc(cfg).Restore(c.ctx(), work, deltas)
	if err != nil {
		if res.Applied > 0 {
			fmt.Fprintf(c.Out, "%s Applied %d of %d, last good output: %s\n",
				c.yellow("!"), res.Applied, len(deltas), res.Output)
		}
		c.fail(fmt.Sprintf("Restore stopped at %s", filepath.Base(deltas[res.Applied])), err)
		return
	}

	fmt.Fprintf(c.Out, "%s Applied %d delta(s) to %s\n", c.green("*"), res.Applied, res.Output)
}

// RunRestoreFull restores a full copy or archive.
func (c *CLI) RunRestoreFull() {
	args, _ := parseArgs(c.Args[2:])
	if len(args) != 2 {
		fmt.Fprintln(c.Out, "Usage: genbak restore-full <file> <backup>")
		c.Exit(1)
		return
	}

	cfg, ok := c.loadConfig()
	if !ok {
		return
	}

	out, err := c.recoverySvc(cfg).RestoreFull(args[0], args[1])
	if err != nil {
		c.fail("Restore failed", err)
		return
	}
	fmt.Fprintf(c.Out, "%s Restored %s to %s\n", c.green("*"), filepath.Base(args[1]), out)
}

// ListHistory lists every backup of a working file.
func (c *CLI) ListHistory() {
	args, flags := parseArgs(c.Args[2:])
	if len(args) != 1 {
		fmt.Fprintln(c.Out, "Usage: genbak list <file> [--root=DIR]")
		c.Exit(1)
		return
	}

	cfg, ok := c.loadConfig()
	if !ok {
		return
	}

	work := args[0]
	entries, err := c.historySvc().Scan(rootFor(cfg, work, flags), work)
	if err != nil {
		c.fail("Listing failed", err)
		return
	}

	if len(entries) == 0 {
		fmt.Fprintf(c.Out, "No backups found for %s\n", work)
		return
	}

	fmt.Fprintf(c.Out, "Backups of %s:\n\n", c.cyan(filepath.Base(work)))
	fmt.Fprintf(c.Out, "  %-19s %-7s %4s %-7s %10s %s\n", "TAKEN", "KIND", "GEN", "ALGO", "SIZE", "NAME")
	fmt.Fprintf(c.Out, "  %-19s %-7s %4s %-7s %10s %s\n", "-----", "----", "---", "----", "----", "----")

	for _, e := range entries {
		gen, algo := "-", "-"
		if e.Kind == history.KindDelta {
			gen = strconv.Itoa(e.Generation)
			algo = e.Algorithm
		}
		fmt.Fprintf(c.Out, "  %-19s %-7s %4s %-7s %10s %s\n",
			e.Timestamp.Format("2006-01-02 15:04:05"), e.Kind, gen, algo, e.HumanSize(), e.Name())
		if e.Note != "" {
			fmt.Fprintf(c.Out, "  %s\n", c.gray("  "+e.Note))
		}
	}
}

// ListGenerations lists the generations of a working file.
func (c *CLI) ListGenerations() {
	args, flags := parseArgs(c.Args[2:])
	if len(args) != 1 {
		fmt.Fprintln(c.Out, "Usage: genbak generations <file> [--root=DIR]")
		c.Exit(1)
		return
	}

	cfg, ok := c.loadConfig()
	if !ok {
		return
	}

	root := rootFor(cfg, args[0], flags)
	gens, err := c.historySvc().Generations(root)
	if err != nil {
		c.fail("Listing failed", err)
		return
	}

	if len(gens) == 0 {
		fmt.Fprintf(c.Out, "No generations in %s\n", root)
		return
	}

	fmt.Fprintf(c.Out, "Generations in %s:\n\n", c.cyan(root))
	for i, g := range gens {
		marker := " "
		if i == len(gens)-1 {
			marker = c.green("*")
		}
		fmt.Fprintf(c.Out, "  %s %4d  %s  %s\n", marker, g.Index, g.Timestamp.Format("2006-01-02 15:04:05"), g.Name())
	}
}

// RunNote shows or sets the note attached to a backup artifact.
func (c *CLI) RunNote() {
	if len(c.Args) < 3 {
		fmt.Fprintln(c.Out, "Usage: genbak note <artifact> [text...]")
		c.Exit(1)
		return
	}

	artifact := c.Args[2]
	svc := c.historySvc()

	if len(c.Args) == 3 {
		note, err := svc.ReadNote(artifact)
		if err != nil {
			c.fail("Reading note failed", err)
			return
		}
		if note == "" {
			fmt.Fprintln(c.Out, c.gray("(no note)"))
			return
		}
		fmt.Fprintln(c.Out, note)
		return
	}

	text := strings.Join(c.Args[3:], " ")
	if err := svc.WriteNote(artifact, text); err != nil {
		c.fail("Writing note failed", err)
		return
	}
	if strings.TrimSpace(text) == "" {
		fmt.Fprintf(c.Out, "%s Cleared note on %s\n", c.yellow("-"), filepath.Base(artifact))
		return
	}
	fmt.Fprintf(c.Out, "%s Noted %s\n", c.green("*"), filepath.Base(artifact))
}

// InstallSchedule installs the launchd agent for a working file.
func (c *CLI) InstallSchedule() {
	args, flags := parseArgs(c.Args[2:])
	if len(args) != 1 {
		fmt.Fprintln(c.Out, "Usage: genbak schedule <file> [--every=MIN] [--root=DIR]")
		c.Exit(1)
		return
	}

	cfg, ok := c.loadConfig()
	if !ok {
		return
	}

	svc := c.scheduler()
	if svc.IsInstalled() {
		fmt.Fprintln(c.Out, "Schedule already installed. Run 'genbak unschedule' first to reinstall.")
		c.Exit(1)
		return
	}

	interval := cfg.Schedule.IntervalMinutes
	if s := flags["every"]; s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			fmt.Fprintf(c.Err, "Invalid interval %q: must be a positive number of minutes\n", s)
			c.Exit(1)
			return
		}
		interval = n
	}
	if interval <= 0 {
		fmt.Fprintln(c.Err, "Schedule interval must be positive (set schedule.interval_minutes or --every)")
		c.Exit(1)
		return
	}

	work, err := filepath.Abs(args[0])
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
		return
	}

	execPath, _ := os.Executable()
	if err := svc.Install(execPath, work, rootFor(cfg, work, flags), interval); err != nil {
		fmt.Fprintf(c.Err, "Error installing schedule: %v\n", err)
		c.Exit(1)
		return
	}

	fmt.Fprintf(c.Out, "%s Backing up %s every %d minutes\n", c.green("*"), work, interval)
	fmt.Fprintf(c.Out, "  Plist: %s\n", svc.PlistPath())
	fmt.Fprintf(c.Out, "  Log:   %s\n", svc.LogPath())
}

// UninstallSchedule removes the launchd agent.
func (c *CLI) UninstallSchedule() {
	svc := c.scheduler()

	if !svc.IsInstalled() {
		fmt.Fprintln(c.Out, "Schedule not installed.")
		c.Exit(1)
		return
	}

	if err := svc.Uninstall(); err != nil {
		fmt.Fprintf(c.Err, "Error removing schedule: %v\n", err)
		c.Exit(1)
		return
	}

	fmt.Fprintf(c.Out, "%s Removed schedule\n", c.yellow("-"))
}

// ShowStatus shows the configuration and schedule status.
func (c *CLI) ShowStatus() {
	cfg, ok := c.loadConfig()
	if !ok {
		return
	}

	configPath, err := c.configSvc().ConfigPath()
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
		return
	}

	backupDir := cfg.BackupDir
	if backupDir == "" {
		backupDir = c.gray("(next to each file)")
	}

	fmt.Fprintln(c.Out, "genbak status:")
	fmt.Fprintf(c.Out, "  Backup:    %s\n", backupDir)
	fmt.Fprintf(c.Out, "  Algorithm: %s\n", cfg.Algorithm)
	fmt.Fprintf(c.Out, "  Threshold: %g\n", cfg.Threshold)
	fmt.Fprintf(c.Out, "  Config:    %s\n", configPath)

	switch status := c.scheduler().Status(); status {
	case "loaded":
		fmt.Fprintf(c.Out, "  Schedule:  %s\n", c.green("installed & loaded"))
	default:
		fmt.Fprintf(c.Out, "  Schedule:  %s\n", c.gray(status))
	}
}
