package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/arbor"
)

var flagLanguage string

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List the built-in grammars",
	Args:  cobra.NoArgs,
	RunE:  runLanguages,
}

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Parse a file and print its syntax tree",
	Long:  "Parses a file with the grammar its extension maps to (or --language) and prints the tree as JSON or an S-expression.",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

var walkCmd = &cobra.Command{
	Use:   "walk <file>",
	Short: "Walk a file's syntax tree with a cursor",
	Long:  "Visits every node in pre-order and prints its depth, field name, kind and range.",
	Args:  cobra.ExactArgs(1),
	RunE:  runWalk,
}

func init() {
	parseCmd.Flags().StringVar(&flagLanguage, "language", "", "grammar to use instead of detecting it from the extension")
	walkCmd.Flags().StringVar(&flagLanguage, "language", "", "grammar to use instead of detecting it from the extension")
}

func runLanguages(cmd *cobra.Command, args []string) error {
	reg := arbor.DefaultRegistry()
	var langs []CLILanguage
	for _, name := range reg.Names() {
		lang, _ := reg.Lookup(name)
		langs = append(langs, CLILanguage{
			Name:       lang.Name(),
			Version:    lang.Version(),
			KindCount:  lang.KindCount(),
			FieldCount: lang.FieldCount(),
		})
	}
	return outputResult(CLIResult{Command: "languages", Results: langs})
}

// parseArg parses the file named by a positional argument.
func parseArg(ctx context.Context, file, langName string) (*arbor.Tree, string, error) {
	path, err := resolveFilePath(file)
	if err != nil {
		return nil, "", err
	}
	reg := arbor.DefaultRegistry()

	var lang *arbor.Language
	if langName != "" {
		l, ok := reg.Lookup(langName)
		if !ok {
			return nil, "", fmt.Errorf("unsupported language %q", langName)
		}
		lang = l
	} else {
		l, ok := reg.ForFile(path)
		if !ok {
			return nil, "", fmt.Errorf("no language for %s (use --language)", path)
		}
		lang = l
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	p := arbor.NewParser(arbor.WithParserLogger(logger))
	defer p.Close()
	if err := p.SetLanguage(lang); err != nil {
		return nil, "", err
	}
	tree, err := p.Parse(ctx, src, nil)
	if err != nil {
		return nil, "", err
	}
	return tree, path, nil
}

func runParse(cmd *cobra.Command, args []string) error {
	tree, path, err := parseArg(cmd.Context(), args[0], flagLanguage)
	if err != nil {
		return outputError("parse", err)
	}
	defer tree.Close()

	return outputResult(CLIResult{Command: "parse", Results: CLITree{
		File:      path,
		Language:  tree.Language().Name(),
		NodeCount: tree.NodeCount(),
		HasError:  tree.HasError(),
		SExp:      tree.String(),
		Root:      nodeToCLI(tree.RootNode()),
	}})
}

func runWalk(cmd *cobra.Command, args []string) error {
	tree, _, err := parseArg(cmd.Context(), args[0], flagLanguage)
	if err != nil {
		return outputError("walk", err)
	}
	defer tree.Close()

	return outputResult(CLIResult{Command: "walk", Results: walkTree(tree)})
}

// nodeToCLI converts n and its subtree.
func nodeToCLI(n arbor.Node) CLINode {
	out := CLINode{
		Kind:      n.Kind(),
		Field:     n.FieldName(),
		Named:     n.IsNamed(),
		Missing:   n.IsMissing(),
		Extra:     n.IsExtra(),
		StartByte: n.StartByte(),
		EndByte:   n.EndByte(),
		Start:     pointToCLI(n.StartPoint()),
		End:       pointToCLI(n.EndPoint()),
	}
	for i := range n.ChildCount() {
		out.Children = append(out.Children, nodeToCLI(n.Child(i)))
	}
	return out
}

// walkTree visits every node of tree in pre-order with a cursor. Leaf text
// is included for named leaves.
func walkTree(tree *arbor.Tree) []CLIWalkStep {
	c := tree.Walk()
	defer c.Close()

	var steps []CLIWalkStep
	for {
		n := c.Node()
		field, _ := c.FieldName()
		step := CLIWalkStep{
			Depth: c.Depth(),
			Field: field,
			Kind:  n.Kind(),
			Named: n.IsNamed(),
			Start: pointToCLI(n.StartPoint()),
			End:   pointToCLI(n.EndPoint()),
		}
		if n.IsNamed() && n.ChildCount() == 0 {
			step.Text = n.Text()
		}
		steps = append(steps, step)

		if c.GotoFirstChild() {
			continue
		}
		for !c.GotoNextSibling() {
			if !c.GotoParent() {
				return steps
			}
		}
	}
}

func pointToCLI(p arbor.Point) CLIPoint {
	return CLIPoint{Row: p.Row, Column: p.Column}
}
