package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jward/arbor"
	"github.com/jward/arbor/internal/store"
)

var flagQueryLanguage string

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the snapshot index",
	Long:  "Run queries against an indexed directory. All line and column numbers are 0-based.",
}

var kindsCmd = &cobra.Command{
	Use:   "kinds [file...]",
	Short: "Count node kinds across the index or the given files",
	RunE:  runKinds,
}

var nodeAtCmd = &cobra.Command{
	Use:   "node-at <file> <line> <col>",
	Short: "Show the deepest stored node at a position",
	Args:  cobra.ExactArgs(3),
	RunE:  runNodeAt,
}

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List indexed files",
	Args:  cobra.NoArgs,
	RunE:  runFiles,
}

var errorsCmd = &cobra.Command{
	Use:   "errors",
	Short: "List indexed files whose tree has syntax errors",
	Args:  cobra.NoArgs,
	RunE:  runErrors,
}

func init() {
	filesCmd.Flags().StringVar(&flagQueryLanguage, "language", "", "only files of this language")

	queryCmd.AddCommand(kindsCmd)
	queryCmd.AddCommand(nodeAtCmd)
	queryCmd.AddCommand(filesCmd)
	queryCmd.AddCommand(errorsCmd)
}

// --- Helpers ---

// openStore opens the Store from the configured path (or default).
func openStore() (*store.Store, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	dbPath := resolveDBPath(findRepoRoot(cwd), cfg.DB)

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'arbor index' first)", dbPath)
	}
	return store.NewStore(dbPath)
}

// parseIntArg parses a positional argument as an integer with a clear error.
func parseIntArg(value, name string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", name, value)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be non-negative", name, value)
	}
	return n, nil
}

// outputResult writes result in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(os.Stdout, result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	if flagFormat == "text" {
		errorHandled = true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	return writeErrorJSON(os.Stdout, command, err)
}

// writeErrorJSON encodes err as a CLIResult envelope. If the envelope cannot
// be written, the encoder error is joined to err and main reports both.
func writeErrorJSON(w io.Writer, command string, err error) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(CLIResult{Command: command, Error: err.Error()}); encErr != nil {
		return errors.Join(err, fmt.Errorf("writing error result: %w", encErr))
	}
	errorHandled = true
	return err
}

func fileToCLI(f *store.File) CLIFile {
	return CLIFile{
		ID:        f.ID,
		Path:      f.Path,
		Language:  f.Language,
		ByteSize:  f.ByteSize,
		NodeCount: f.NodeCount,
		HasError:  f.HasError,
	}
}

func filesToCLI(files []*store.File) []CLIFile {
	out := make([]CLIFile, 0, len(files))
	for _, f := range files {
		out = append(out, fileToCLI(f))
	}
	return out
}

func storedNodeToCLI(file string, n *store.NodeRow) CLIStoredNode {
	return CLIStoredNode{
		File:      file,
		Kind:      n.Kind,
		Field:     n.Field,
		Named:     n.IsNamed,
		Depth:     n.Depth,
		StartLine: n.StartLine,
		StartCol:  n.StartCol,
		EndLine:   n.EndLine,
		EndCol:    n.EndCol,
	}
}

// --- Commands ---

func runKinds(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("kinds", err)
	}
	defer s.Close()

	paths := make([]string, 0, len(args))
	for _, arg := range args {
		path, err := resolveFilePath(arg)
		if err != nil {
			return outputError("kinds", err)
		}
		paths = append(paths, path)
	}

	counts, err := arbor.NewQueryBuilder(s).KindCounts(paths...)
	if err != nil {
		return outputError("kinds", err)
	}
	out := make([]CLIKindCount, 0, len(counts))
	for _, kc := range counts {
		out = append(out, CLIKindCount{Kind: kc.Kind, Named: kc.IsNamed, Count: kc.Count})
	}
	return outputResult(CLIResult{Command: "kinds", Results: out})
}

func runNodeAt(cmd *cobra.Command, args []string) error {
	file, err := resolveFilePath(args[0])
	if err != nil {
		return outputError("node-at", err)
	}
	line, err := parseIntArg(args[1], "line")
	if err != nil {
		return outputError("node-at", err)
	}
	col, err := parseIntArg(args[2], "col")
	if err != nil {
		return outputError("node-at", err)
	}

	s, err := openStore()
	if err != nil {
		return outputError("node-at", err)
	}
	defer s.Close()

	q := arbor.NewQueryBuilder(s)
	n, err := q.NodeAt(file, line, col)
	if err != nil {
		return outputError("node-at", err)
	}
	if n == nil {
		return outputResult(CLIResult{Command: "node-at", Results: nil})
	}

	chain := []CLIStoredNode{storedNodeToCLI(file, n)}
	ancestors, err := q.Ancestors(n)
	if err != nil {
		return outputError("node-at", err)
	}
	for _, a := range ancestors {
		chain = append(chain, storedNodeToCLI(file, a))
	}
	return outputResult(CLIResult{Command: "node-at", Results: chain})
}

func runFiles(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("files", err)
	}
	defer s.Close()

	var files []*store.File
	if flagQueryLanguage != "" {
		files, err = s.FilesByLanguage(flagQueryLanguage)
	} else {
		files, err = arbor.NewQueryBuilder(s).Files()
	}
	if err != nil {
		return outputError("files", err)
	}
	return outputResult(CLIResult{Command: "files", Results: filesToCLI(files)})
}

func runErrors(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("errors", err)
	}
	defer s.Close()

	files, err := arbor.NewQueryBuilder(s).FilesWithErrors()
	if err != nil {
		return outputError("errors", err)
	}
	return outputResult(CLIResult{Command: "errors", Results: filesToCLI(files)})
}
