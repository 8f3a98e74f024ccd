package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// formatLanguagesText formats CLILanguage results as aligned columns.
func formatLanguagesText(w io.Writer, langs []CLILanguage) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tABI\tKINDS\tFIELDS")
	for _, l := range langs {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", l.Name, l.Version, l.KindCount, l.FieldCount)
	}
	tw.Flush()
}

// formatTreeText prints the S-expression of a parsed tree.
func formatTreeText(w io.Writer, tree CLITree) {
	fmt.Fprintln(w, tree.SExp)
}

// formatWalkText prints one indented line per cursor step, e.g.
//
//	  name: identifier [2:5 - 2:8] "Run"
func formatWalkText(w io.Writer, steps []CLIWalkStep) {
	for _, s := range steps {
		var b strings.Builder
		b.WriteString(strings.Repeat("  ", s.Depth))
		if s.Field != "" {
			b.WriteString(s.Field)
			b.WriteString(": ")
		}
		if s.Named {
			b.WriteString(s.Kind)
		} else {
			fmt.Fprintf(&b, "%q", s.Kind)
		}
		fmt.Fprintf(&b, " [%d:%d - %d:%d]", s.Start.Row, s.Start.Column, s.End.Row, s.End.Column)
		if s.Text != "" {
			fmt.Fprintf(&b, " %q", s.Text)
		}
		fmt.Fprintln(w, b.String())
	}
}

// formatFilesText formats CLIFile results as aligned columns.
func formatFilesText(w io.Writer, files []CLIFile) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPATH\tLANGUAGE\tNODES\tERRORS")
	for _, f := range files {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%t\n", f.ID, f.Path, f.Language, f.NodeCount, f.HasError)
	}
	tw.Flush()
}

// formatKindCountsText formats CLIKindCount results as aligned columns.
// Anonymous kinds are quoted.
func formatKindCountsText(w io.Writer, counts []CLIKindCount) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tCOUNT")
	for _, kc := range counts {
		kind := kc.Kind
		if !kc.Named {
			kind = fmt.Sprintf("%q", kind)
		}
		fmt.Fprintf(tw, "%s\t%d\n", kind, kc.Count)
	}
	tw.Flush()
}

// formatStoredNodesText prints a node and its ancestors as "file:line:col kind".
func formatStoredNodesText(w io.Writer, nodes []CLIStoredNode) {
	for _, n := range nodes {
		label := n.Kind
		if n.Field != "" {
			label = n.Field + ": " + n.Kind
		}
		fmt.Fprintf(w, "%s:%d:%d %s\n", n.File, n.StartLine, n.StartCol, label)
	}
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLILanguage:
		formatLanguagesText(w, v)
	case CLITree:
		formatTreeText(w, v)
	case []CLIWalkStep:
		formatWalkText(w, v)
	case []CLIFile:
		formatFilesText(w, v)
	case []CLIKindCount:
		formatKindCountsText(w, v)
	case []CLIStoredNode:
		formatStoredNodesText(w, v)
	case nil:
		// No output for nil results (e.g., node-at with no match).
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}
