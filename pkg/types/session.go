package types

// SessionSummary aggregates the file changes a session's edit/write tool
// calls have made, for display in a session's change log.
type SessionSummary struct {
	Additions int        `json:"additions"`
	Deletions int        `json:"deletions"`
	Files     int        `json:"files"`
	Diffs     []FileDiff `json:"diffs,omitempty"`
}

// FileDiff is one file's change within a SessionSummary.
type FileDiff struct {
	Path      string `json:"path"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// SummarizeEdits walks a session's message history and aggregates every
// edit/write tool result into a SessionSummary, one FileDiff per distinct
// path touched, in first-touched order.
func SummarizeEdits(history []Message) SessionSummary {
	var summary SessionSummary
	index := make(map[string]int)

	for _, msg := range history {
		if msg.Role != RoleTool || msg.Tool == nil {
			continue
		}
		result := msg.Tool.Result
		if result.Kind != ToolResultEdit || result.Edit == nil {
			continue
		}
		e := result.Edit

		i, ok := index[e.Path]
		if !ok {
			i = len(summary.Diffs)
			index[e.Path] = i
			summary.Diffs = append(summary.Diffs, FileDiff{Path: e.Path})
			summary.Files++
		}
		summary.Diffs[i].Additions += e.LinesAdded
		summary.Diffs[i].Deletions += e.LinesRemoved
		summary.Additions += e.LinesAdded
		summary.Deletions += e.LinesRemoved
	}

	return summary
}
