package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/arbor"
)

var runCmd = &cobra.Command{
	Use:   "run <script> [file]",
	Short: "Run a Risor script",
	Long: `Runs a Risor script with the arbor globals (parse, Parser, languages, log and the
store functions against the index database). When file is given it is parsed
first and exposed to the script as tree and file_path. Imports resolve relative
to the script's directory.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&flagLanguage, "language", "", "grammar for file instead of detecting it from the extension")
}

func runRun(cmd *cobra.Command, args []string) error {
	script, err := resolveFilePath(args[0])
	if err != nil {
		return err
	}
	if _, err := os.Stat(script); err != nil {
		return fmt.Errorf("script not found: %s", script)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting cwd: %w", err)
	}
	dbPath := resolveDBPath(findRepoRoot(cwd), cfg.DB)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}

	engine, err := arbor.New(dbPath,
		arbor.WithLogger(logger),
		arbor.WithScriptsDir(filepath.Dir(script)),
	)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer engine.Close()

	globals := map[string]any{}
	if len(args) == 2 {
		tree, path, err := parseArg(cmd.Context(), args[1], flagLanguage)
		if err != nil {
			return err
		}
		defer tree.Close()
		globals["tree"] = tree
		globals["file_path"] = path
	}
	return engine.RunScript(cmd.Context(), filepath.Base(script), globals)
}
