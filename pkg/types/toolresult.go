package types

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ToolResultKind discriminates the ToolResult tagged union. Every built-in
// tool produces exactly one of these kinds; External and Error cover MCP
// tools and failures respectively.
type ToolResultKind string

const (
	ToolResultSearch      ToolResultKind = "search"
	ToolResultFileList    ToolResultKind = "file_list"
	ToolResultFileContent ToolResultKind = "file_content"
	ToolResultEdit        ToolResultKind = "edit"
	ToolResultBash        ToolResultKind = "bash"
	ToolResultGlob        ToolResultKind = "glob"
	ToolResultTodoRead    ToolResultKind = "todo_read"
	ToolResultTodoWrite   ToolResultKind = "todo_write"
	ToolResultFetch       ToolResultKind = "fetch"
	ToolResultAgent       ToolResultKind = "agent"
	ToolResultExternal    ToolResultKind = "external"
	ToolResultError       ToolResultKind = "error"
)

// ToolResult is the tagged union of everything a tool invocation can
// produce. Exactly one of the pointer fields matching Kind is populated.
// LLMFormat renders the result the way it must appear back in the
// conversation sent to the model; it is the single place that decides
// that rendering, so every call site (history replay, live turn) agrees.
type ToolResult struct {
	Kind ToolResultKind `json:"kind"`

	Search      *SearchResult      `json:"search,omitempty"`
	FileList    *FileListResult    `json:"fileList,omitempty"`
	FileContent *FileContentResult `json:"fileContent,omitempty"`
	Edit        *EditResult        `json:"edit,omitempty"`
	Bash        *BashResult        `json:"bash,omitempty"`
	Glob        *GlobResult        `json:"glob,omitempty"`
	TodoRead    *TodoReadResult    `json:"todoRead,omitempty"`
	TodoWrite   *TodoWriteResult   `json:"todoWrite,omitempty"`
	Fetch       *FetchResult       `json:"fetch,omitempty"`
	Agent       *AgentResult       `json:"agent,omitempty"`
	External    *ExternalResult    `json:"external,omitempty"`
	Error       *ErrorResult       `json:"error,omitempty"`
}

// SearchMatch is a single grep hit.
type SearchMatch struct {
	Path    string `json:"path"`
	Line    int    `json:"line"`
	Snippet string `json:"snippet"`
}

// SearchResult is the result of the grep tool.
type SearchResult struct {
	Pattern   string        `json:"pattern"`
	Matches   []SearchMatch `json:"matches"`
	Truncated bool          `json:"truncated"`
}

// FileListEntry is one entry returned by the list tool.
type FileListEntry struct {
	Path  string `json:"path"`
	IsDir bool   `json:"isDir"`
	Size  int64  `json:"size"`
}

// FileListResult is the result of the list tool, optionally fuzzy-ranked
// against a query.
type FileListResult struct {
	Root      string          `json:"root"`
	Entries   []FileListEntry `json:"entries"`
	Truncated bool            `json:"truncated"`
}

// FileContentResult is the result of the read tool.
type FileContentResult struct {
	Path      string `json:"path"`
	Content   string `json:"content"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
	Truncated bool   `json:"truncated"`
}

// EditResult is the result of the edit/write tool: the unified diff hunk
// actually applied, used both for display and for revert.
type EditResult struct {
	Path      string `json:"path"`
	UnifiedDiff string `json:"unifiedDiff"`
	Created   bool   `json:"created"`
	LinesAdded int   `json:"linesAdded"`
	LinesRemoved int `json:"linesRemoved"`
}

// BashResult is the result of the bash tool.
type BashResult struct {
	Command  string `json:"command"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exitCode"`
	TimedOut bool   `json:"timedOut"`
}

// GlobResult is the result of the glob tool.
type GlobResult struct {
	Pattern   string   `json:"pattern"`
	Matches   []string `json:"matches"`
	Truncated bool     `json:"truncated"`
}

// TodoItem is one entry in the session todo list.
type TodoItem struct {
	ID       string `json:"id"`
	Content  string `json:"content"`
	Status   string `json:"status"` // pending | in_progress | completed
	Priority string `json:"priority,omitempty"`
}

// TodoReadResult is the result of the todo_read tool.
type TodoReadResult struct {
	Items []TodoItem `json:"items"`
}

// TodoWriteResult is the result of the todo_write tool.
type TodoWriteResult struct {
	Items []TodoItem `json:"items"`
}

// FetchResult is the result of the webfetch tool.
type FetchResult struct {
	URL        string `json:"url"`
	StatusCode int    `json:"statusCode"`
	Content    string `json:"content"`
	Truncated  bool   `json:"truncated"`
}

// AgentResult is the result of spawning a sub-agent via the task tool.
type AgentResult struct {
	Summary     string `json:"summary"`
	TurnsTaken  int    `json:"turnsTaken"`
	ChildSessionID SessionID `json:"childSessionId,omitempty"`
}

// ExternalResult wraps an MCP tool result, which is opaque JSON plus an
// optional plain-text summary the server chose to return.
type ExternalResult struct {
	ServerName string          `json:"serverName"`
	ToolName   string          `json:"toolName"`
	Content    json.RawMessage `json:"content"`
	Text       string          `json:"text,omitempty"`
	IsError    bool            `json:"isError"`
}

// ErrorKind classifies a tool failure for callers that branch on cause
// (the agent loop deciding whether to retry, a client rendering a denial
// differently from a timeout) rather than just displaying Message.
// Kind is left empty by tools that fail for reasons too specific to bucket
// (a validation message is self-explanatory); the executor always sets it
// for the five outcomes its own protocol can produce.
type ErrorKind string

const (
	ErrorKindUnknownTool   ErrorKind = "unknown_tool"
	ErrorKindDeniedByUser  ErrorKind = "denied_by_user"
	ErrorKindCancelled     ErrorKind = "cancelled"
	ErrorKindInternal      ErrorKind = "internal"
	ErrorKindTimeout       ErrorKind = "timeout"
)

// ErrorResult wraps any tool failure: validation, execution, denial, or
// timeout. Retryable marks failures the agent loop may retry without
// user intervention.
type ErrorResult struct {
	Kind      ErrorKind `json:"kind,omitempty"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
}

// LLMFormat renders a ToolResult as the canonical text block sent back to
// the model as the content of a tool_result turn. It is deliberately
// compact; tools that need structure (search matches, todo items) render
// one line per item.
func (r ToolResult) LLMFormat() string {
	switch r.Kind {
	case ToolResultSearch:
		if r.Search == nil {
			return ""
		}
		var sb strings.Builder
		for _, m := range r.Search.Matches {
			fmt.Fprintf(&sb, "%s:%d: %s\n", m.Path, m.Line, m.Snippet)
		}
		if r.Search.Truncated {
			sb.WriteString("... (truncated)\n")
		}
		if sb.Len() == 0 {
			return "No matches found."
		}
		return sb.String()

	case ToolResultFileList:
		if r.FileList == nil {
			return ""
		}
		entries := append([]FileListEntry(nil), r.FileList.Entries...)
		sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
		var sb strings.Builder
		for _, e := range entries {
			if e.IsDir {
				fmt.Fprintf(&sb, "%s/\n", e.Path)
			} else {
				fmt.Fprintf(&sb, "%s\n", e.Path)
			}
		}
		if r.FileList.Truncated {
			sb.WriteString("... (truncated)\n")
		}
		return sb.String()

	case ToolResultFileContent:
		if r.FileContent == nil {
			return ""
		}
		if r.FileContent.Truncated {
			return r.FileContent.Content + "\n... (truncated)"
		}
		return r.FileContent.Content

	case ToolResultEdit:
		if r.Edit == nil {
			return ""
		}
		if r.Edit.Created {
			return fmt.Sprintf("Created %s (+%d lines)", r.Edit.Path, r.Edit.LinesAdded)
		}
		return fmt.Sprintf("Edited %s (+%d -%d)\n%s", r.Edit.Path, r.Edit.LinesAdded, r.Edit.LinesRemoved, r.Edit.UnifiedDiff)

	case ToolResultBash:
		if r.Bash == nil {
			return ""
		}
		var sb strings.Builder
		sb.WriteString(r.Bash.Stdout)
		if r.Bash.Stderr != "" {
			sb.WriteString("\n[stderr]\n")
			sb.WriteString(r.Bash.Stderr)
		}
		if r.Bash.TimedOut {
			sb.WriteString("\n(command timed out)")
		}
		fmt.Fprintf(&sb, "\n[exit %d]", r.Bash.ExitCode)
		return sb.String()

	case ToolResultGlob:
		if r.Glob == nil {
			return ""
		}
		out := strings.Join(r.Glob.Matches, "\n")
		if r.Glob.Truncated {
			out += "\n... (truncated)"
		}
		return out

	case ToolResultTodoRead, ToolResultTodoWrite:
		items := todoItems(r)
		if len(items) == 0 {
			return "(empty todo list)"
		}
		var sb strings.Builder
		for _, it := range items {
			fmt.Fprintf(&sb, "[%s] %s\n", it.Status, it.Content)
		}
		return sb.String()

	case ToolResultFetch:
		if r.Fetch == nil {
			return ""
		}
		out := r.Fetch.Content
		if r.Fetch.Truncated {
			out += "\n... (truncated)"
		}
		return out

	case ToolResultAgent:
		if r.Agent == nil {
			return ""
		}
		return r.Agent.Summary

	case ToolResultExternal:
		if r.External == nil {
			return ""
		}
		if r.External.Text != "" {
			return r.External.Text
		}
		return string(r.External.Content)

	case ToolResultError:
		if r.Error == nil {
			return "error"
		}
		return "Error: " + r.Error.Message

	default:
		return ""
	}
}

func todoItems(r ToolResult) []TodoItem {
	switch r.Kind {
	case ToolResultTodoRead:
		if r.TodoRead != nil {
			return r.TodoRead.Items
		}
	case ToolResultTodoWrite:
		if r.TodoWrite != nil {
			return r.TodoWrite.Items
		}
	}
	return nil
}

// IsError reports whether the result represents a failure, regardless of
// which kind carries it (a built-in tool failure is always wrapped as
// ToolResultError; an MCP tool signals failure via ExternalResult.IsError).
func (r ToolResult) IsError() bool {
	if r.Kind == ToolResultError {
		return true
	}
	if r.Kind == ToolResultExternal && r.External != nil {
		return r.External.IsError
	}
	return false
}
