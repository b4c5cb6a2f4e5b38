// Package editor turns raw pointer and numeric input into validated
// timeline mutations. It owns the interaction-level guards (handle
// separation, edge margins, tool modes); the model owns the structural
// invariants.
package editor

import "errors"

// Tool is the active editing mode of the timeline surface. Modes are
// mutually exclusive: clicking a clip dispatches to the operation matching
// the active mode instead of selecting it.
type Tool string

const (
	ToolSelect Tool = "select"
	ToolSplit  Tool = "split"
	ToolDelete Tool = "delete"
)

var (
	ErrUnknownTool     = errors.New("unknown tool")
	ErrNoActiveDrag    = errors.New("no trim drag in progress")
	ErrTrimOutOfBounds = errors.New("trim outside source bounds")
	ErrSplitTooClose   = errors.New("split too close to clip edge")
)

// MinTrimSeparation is the smallest distance the two trim handles may have,
// enforced during the drag, not just on commit.
const MinTrimSeparation = 0.5

// MinSplitMargin rejects splits within this distance of either clip edge,
// preventing zero-length remnants.
const MinSplitMargin = 0.1

// ValidTool reports whether s names a tool mode.
func ValidTool(s string) bool {
	switch Tool(s) {
	case ToolSelect, ToolSplit, ToolDelete:
		return true
	}
	return false
}
