// Package scripts holds the Risor scripts shipped with arbor.
//
// walk.risor is an importable library of tree traversal helpers. Scripts
// under hooks/ are meant for WithFileScript and expect the file_path,
// file_id and tree globals.
package scripts

import "embed"

//go:embed *.risor hooks/*.risor
var FS embed.FS

// SummaryHook is the path of the default per-file hook within FS.
const SummaryHook = "hooks/summary.risor"
