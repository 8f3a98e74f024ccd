package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/arbor/internal/config"
)

var (
	flagConfig string
	flagDB     string
	flagFormat string

	// cfg and logger are set by loadConfig before any command runs.
	cfg    *config.Config
	logger *slog.Logger
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "arbor",
	Short:             "Parse, walk and index source code with tree-sitter",
	Long:              "Arbor parses source files into immutable syntax trees, stores node snapshots in SQLite and runs Risor scripts over them.",
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	// No Run, prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: ./.arbor.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: .arbor/index.db relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level: debug|info|warn|error")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: json|text")

	rootCmd.AddCommand(languagesCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(walkCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(queryCmd)
}

// flagKeys maps command-line flags to config keys. Only flags defined on
// the running command are bound.
var flagKeys = map[string]string{
	"db":          "db",
	"format":      "format",
	"log-level":   "log.level",
	"log-format":  "log.format",
	"languages":   "index.languages",
	"workers":     "index.workers",
	"parallel":    "index.parallel",
	"scripts-dir": "index.scripts_dir",
	"file-script": "index.file_script",
	"tree-cache":  "index.tree_cache",
}

// loadConfig resolves the configuration for cmd from defaults, the config
// file, ARBOR_* environment variables and flags, in increasing precedence.
func loadConfig(cmd *cobra.Command, args []string) error {
	v, err := config.NewViper(flagConfig)
	if err != nil {
		return err
	}
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("binding --%s: %w", name, err)
			}
		}
	}
	c, err := config.Load(v)
	if err != nil {
		return err
	}
	cfg = c
	flagFormat = c.Format
	logger = c.Log.Logger(os.Stderr)
	slog.SetDefault(logger)
	return nil
}

// resolveTargetDir returns the absolute path of the directory to index.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root without finding .git.
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the configured database path or the default.
func resolveDBPath(repoRoot, configured string) string {
	if configured != "" {
		if filepath.IsAbs(configured) {
			return configured
		}
		return filepath.Join(repoRoot, configured)
	}
	return filepath.Join(repoRoot, ".arbor", "index.db")
}

// resolveFilePath converts a file argument to an absolute path.
func resolveFilePath(file string) (string, error) {
	if filepath.IsAbs(file) {
		return file, nil
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving file path %q: %w", file, err)
	}
	return abs, nil
}
