package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/agnivade/levenshtein"
	einotool "github.com/cloudwego/eino/components/tool"

	"github.com/BrendanGraham14/steer-sub008/internal/formatter"
	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

const editDescription = `Performs exact string replacements in files.

Usage:
- The filePath parameter must be an absolute path
- The oldString must exist in the file (exact match required)
- The newString will replace oldString
- Use replaceAll to replace all occurrences
- The edit will FAIL if oldString is not unique (unless using replaceAll)`

// EditTool implements file editing.
type EditTool struct {
	fmtMgr *formatter.Manager
}

// NewEditTool creates a new edit tool.
func NewEditTool() *EditTool { return &EditTool{} }

// SetFormatter attaches a formatter.Manager run against the local
// filesystem after a successful edit. nil disables formatting.
func (t *EditTool) SetFormatter(mgr *formatter.Manager) { t.fmtMgr = mgr }

// format runs the attached formatter (if any) against path and returns
// the file's content afterward so a caller's diff reflects what the
// formatter actually produced, falling back to unformatted when
// formatting is disabled or fails.
func (t *EditTool) format(ctx context.Context, toolCtx *Context, path, unformatted string) string {
	if t.fmtMgr == nil {
		return unformatted
	}
	if _, err := t.fmtMgr.Format(ctx, path); err != nil {
		return unformatted
	}
	after, _, err := toolCtx.Workspace.ReadFile(ctx, path, 0, 0)
	if err != nil {
		return unformatted
	}
	return after
}

// EditInput represents the input for the edit tool.
type EditInput struct {
	FilePath   string `json:"filePath"`
	OldString  string `json:"oldString"`
	NewString  string `json:"newString"`
	ReplaceAll bool   `json:"replaceAll,omitempty"`
}

func (t *EditTool) ID() string              { return "edit" }
func (t *EditTool) Description() string     { return editDescription }
func (t *EditTool) Capabilities() Capability { return CapWorkspace }

func (t *EditTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"filePath": {
				"type": "string",
				"description": "The absolute path to the file to edit"
			},
			"oldString": {
				"type": "string",
				"description": "The exact text to replace"
			},
			"newString": {
				"type": "string",
				"description": "The text to replace it with"
			},
			"replaceAll": {
				"type": "boolean",
				"description": "Replace all occurrences (default: false)"
			}
		},
		"required": ["filePath", "oldString", "newString"]
	}`)
}

func (t *EditTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params EditInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("edit: invalid input: %w", err)
	}
	if toolCtx == nil || toolCtx.Workspace == nil {
		return nil, fmt.Errorf("edit: no workspace in context")
	}

	title := fmt.Sprintf("Edited %s", filepath.Base(params.FilePath))

	if params.OldString == params.NewString {
		return errorResult(title, "old_string and new_string must be different", false), nil
	}

	text, _, err := toolCtx.Workspace.ReadFile(ctx, params.FilePath, 0, 0)
	if err != nil {
		return errorResult(title, err.Error(), false), nil
	}

	newText, count, ok := applyReplace(text, params)
	if !ok {
		return t.fuzzyReplace(ctx, text, params, toolCtx, title)
	}

	if err := toolCtx.Workspace.WriteFile(ctx, params.FilePath, newText); err != nil {
		return errorResult(title, err.Error(), false), nil
	}
	newText = t.format(ctx, toolCtx, params.FilePath, newText)

	diffText, added, removed := buildDiffMetadata(params.FilePath, text, newText, "")
	return &Result{
		Title: title,
		Value: types.ToolResult{Kind: types.ToolResultEdit, Edit: &types.EditResult{
			Path:         params.FilePath,
			UnifiedDiff:  diffText,
			LinesAdded:   added,
			LinesRemoved: removed,
		}},
		Metadata: map[string]any{"file": params.FilePath, "replacements": count},
	}, nil
}

// applyReplace performs the exact-match replacement; ok is false when
// oldString isn't found or when it occurs more than once without
// replaceAll. The caller hands both cases to fuzzyReplace, which reports
// the ambiguous case as an error result.
func applyReplace(text string, params EditInput) (string, int, bool) {
	count := strings.Count(text, params.OldString)
	if count == 0 {
		return "", 0, false
	}
	if params.ReplaceAll {
		return strings.ReplaceAll(text, params.OldString, params.NewString), count, true
	}
	if count > 1 {
		return "", count, false
	}
	return strings.Replace(text, params.OldString, params.NewString, 1), 1, true
}

// fuzzyReplace attempts to find similar text when exact match fails.
func (t *EditTool) fuzzyReplace(ctx context.Context, text string, params EditInput, toolCtx *Context, title string) (*Result, error) {
	if strings.Count(text, params.OldString) > 1 && !params.ReplaceAll {
		return errorResult(title, fmt.Sprintf("old_string appears %d times in file; use replace_all or provide more context", strings.Count(text, params.OldString)), false), nil
	}

	normalizedOld := normalizeLineEndings(params.OldString)
	normalizedText := normalizeLineEndings(text)

	if strings.Contains(normalizedText, normalizedOld) {
		newText := strings.Replace(normalizedText, normalizedOld, params.NewString, 1)
		if err := toolCtx.Workspace.WriteFile(ctx, params.FilePath, newText); err != nil {
			return errorResult(title, err.Error(), false), nil
		}
		newText = t.format(ctx, toolCtx, params.FilePath, newText)
		diffText, added, removed := buildDiffMetadata(params.FilePath, text, newText, "")
		return &Result{
			Title: title + " (normalized)",
			Value: types.ToolResult{Kind: types.ToolResultEdit, Edit: &types.EditResult{
				Path: params.FilePath, UnifiedDiff: diffText, LinesAdded: added, LinesRemoved: removed,
			}},
		}, nil
	}

	match, sim := findBestMatch(text, params.OldString)
	if match != "" && sim >= 0.7 {
		newText := strings.Replace(text, match, params.NewString, 1)
		if err := toolCtx.Workspace.WriteFile(ctx, params.FilePath, newText); err != nil {
			return errorResult(title, err.Error(), false), nil
		}
		newText = t.format(ctx, toolCtx, params.FilePath, newText)
		diffText, added, removed := buildDiffMetadata(params.FilePath, text, newText, "")
		return &Result{
			Title: fmt.Sprintf("%s (fuzzy, %.0f%% match)", title, sim*100),
			Value: types.ToolResult{Kind: types.ToolResultEdit, Edit: &types.EditResult{
				Path: params.FilePath, UnifiedDiff: diffText, LinesAdded: added, LinesRemoved: removed,
			}},
		}, nil
	}

	return errorResult(title, "old_string not found in file; the content may have changed or the string doesn't exist", false), nil
}

func normalizeLineEndings(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// findBestMatch finds the substring most similar to target.
func findBestMatch(text, target string) (string, float64) {
	lines := strings.Split(text, "\n")
	targetLines := strings.Split(target, "\n")

	if len(targetLines) == 1 {
		bestMatch := ""
		bestSimilarity := 0.0
		for _, line := range lines {
			if sim := similarity(line, target); sim > bestSimilarity {
				bestSimilarity = sim
				bestMatch = line
			}
		}
		return bestMatch, bestSimilarity
	}

	targetLen := len(targetLines)
	bestMatch := ""
	bestSimilarity := 0.0
	for i := 0; i <= len(lines)-targetLen; i++ {
		block := strings.Join(lines[i:i+targetLen], "\n")
		if sim := similarity(block, target); sim > bestSimilarity {
			bestSimilarity = sim
			bestMatch = block
		}
	}
	return bestMatch, bestSimilarity
}

// similarity calculates normalized Levenshtein similarity.
func similarity(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	if len(a) > 10000 || len(b) > 10000 {
		maxLen := max(len(a), len(b))
		minLen := min(len(a), len(b))
		return float64(minLen) / float64(maxLen)
	}
	dist := levenshtein.ComputeDistance(a, b)
	maxLen := max(len(a), len(b))
	return 1.0 - float64(dist)/float64(maxLen)
}

func (t *EditTool) EinoTool() einotool.InvokableTool { return &einoToolWrapper{tool: t} }
