package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/arbor"
	"github.com/jward/arbor/scripts"
)

var flagForce bool

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a directory into the snapshot database",
	Long:  "Parses every supported source file under path with tree-sitter, stores node snapshots in SQLite and runs the per-file script hook.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "delete database and reindex from scratch")
	indexCmd.Flags().String("languages", "", "comma-separated language filter (e.g. go,python)")
	indexCmd.Flags().Int("workers", 0, "parse workers (default: number of CPUs)")
	indexCmd.Flags().Bool("parallel", true, "parse files on a worker pool")
	indexCmd.Flags().Bool("tree-cache", true, "keep trees in memory for incremental re-parsing")
	indexCmd.Flags().String("scripts-dir", "", "load scripts from disk path instead of embedded")
	indexCmd.Flags().String("file-script", "", "script run for every indexed file, relative to the scripts source")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	// Determine the target directory.
	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}

	// Resolve repo root and DB path.
	repoRoot := findRepoRoot(targetDir)
	dbPath := resolveDBPath(repoRoot, cfg.DB)

	// Ensure .arbor/ directory exists.
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dbDir, err)
	}

	// Handle --force: delete the DB file entirely.
	if flagForce {
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing database for --force: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Cleared database: %s\n", dbPath)
	}

	engine, err := arbor.New(dbPath, engineOptions()...)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer engine.Close()

	if err := engine.IndexDirectory(cmd.Context(), targetDir); err != nil {
		return fmt.Errorf("indexing: %w", err)
	}

	files, err := engine.Query().Files()
	if err != nil {
		return fmt.Errorf("listing files: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Indexed %s in %s (%d files)\n",
		targetDir, time.Since(start).Round(time.Millisecond), len(files))
	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)
	return nil
}

// engineOptions translates the loaded configuration into Engine options.
// Without a scripts directory the embedded scripts are used and the summary
// hook runs for every file unless another file script is configured.
func engineOptions() []arbor.Option {
	opts := []arbor.Option{
		arbor.WithLogger(logger),
		arbor.WithParallel(cfg.Index.Parallel),
		arbor.WithWorkers(cfg.Index.Workers),
		arbor.WithTreeCache(cfg.Index.TreeCache),
	}
	if len(cfg.Index.Languages) > 0 {
		opts = append(opts, arbor.WithLanguages(cfg.Index.Languages...))
	}

	fileScript := cfg.Index.FileScript
	if cfg.Index.ScriptsDir != "" {
		opts = append(opts, arbor.WithScriptsDir(cfg.Index.ScriptsDir))
	} else {
		opts = append(opts, arbor.WithScriptsFS(scripts.FS))
		if fileScript == "" {
			fileScript = scripts.SummaryHook
		}
	}
	if fileScript != "" {
		opts = append(opts, arbor.WithFileScript(fileScript))
	}
	return opts
}
