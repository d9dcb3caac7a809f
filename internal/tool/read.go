package tool

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	einotool "github.com/cloudwego/eino/components/tool"

	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

const readDescription = `Reads a file from the workspace.

Usage:
- The filePath parameter must be an absolute path
- By default, reads up to 2000 lines from the beginning
- You can optionally specify offset and limit for pagination
- Can read image files and return them as an attachment`

const defaultReadLimit = 2000

// ReadTool implements file reading.
type ReadTool struct{}

// NewReadTool creates a new read tool.
func NewReadTool() *ReadTool { return &ReadTool{} }

// ReadInput represents the input for the read tool.
type ReadInput struct {
	FilePath string `json:"filePath"`
	Offset   int    `json:"offset,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

func (t *ReadTool) ID() string              { return "read" }
func (t *ReadTool) Description() string     { return readDescription }
func (t *ReadTool) Capabilities() Capability { return CapWorkspace }

func (t *ReadTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"filePath": {
				"type": "string",
				"description": "The absolute path to the file to read"
			},
			"offset": {
				"type": "integer",
				"description": "Line number to start reading from"
			},
			"limit": {
				"type": "integer",
				"description": "Number of lines to read (default: 2000)"
			}
		},
		"required": ["filePath"]
	}`)
}

func (t *ReadTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params ReadInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("read: invalid input: %w", err)
	}
	if toolCtx == nil || toolCtx.Workspace == nil {
		return nil, fmt.Errorf("read: no workspace in context")
	}
	if params.Limit <= 0 {
		params.Limit = defaultReadLimit
	}

	title := fmt.Sprintf("Read %s", filepath.Base(params.FilePath))

	if shouldBlockEnvFile(params.FilePath) {
		return errorResult(title, fmt.Sprintf("reading %s is blocked", params.FilePath), false), nil
	}

	if isImageFile(params.FilePath) {
		return t.readImage(params.FilePath, title)
	}

	startLine := params.Offset
	if startLine <= 0 {
		startLine = 1
	}
	endLine := startLine + params.Limit - 1

	content, truncated, err := toolCtx.Workspace.ReadFile(ctx, params.FilePath, startLine, endLine)
	if err != nil {
		return errorResult(title, err.Error(), false), nil
	}

	return &Result{
		Title: title,
		Value: types.ToolResult{Kind: types.ToolResultFileContent, FileContent: &types.FileContentResult{
			Path:      params.FilePath,
			Content:   content,
			StartLine: startLine,
			EndLine:   endLine,
			Truncated: truncated,
		}},
		Metadata: map[string]any{"file": params.FilePath},
	}, nil
}

func (t *ReadTool) readImage(path, title string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return errorResult(title, err.Error(), false), nil
	}
	mediaType := detectMediaType(path)
	dataURL := fmt.Sprintf("data:%s;base64,%s", mediaType, base64.StdEncoding.EncodeToString(data))

	return &Result{
		Title: title,
		Value: types.ToolResult{Kind: types.ToolResultFileContent, FileContent: &types.FileContentResult{
			Path:    path,
			Content: "(image file)",
		}},
		Attachments: []Attachment{{Filename: filepath.Base(path), MediaType: mediaType, URL: dataURL}},
	}, nil
}

func (t *ReadTool) EinoTool() einotool.InvokableTool { return &einoToolWrapper{tool: t} }

func isImageFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".jpg" || ext == ".jpeg" || ext == ".png" ||
		ext == ".gif" || ext == ".bmp" || ext == ".webp"
}

func detectMediaType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// shouldBlockEnvFile checks if a file should be blocked based on .env
// patterns. Whitelist: .env.sample, .example suffixes are allowed.
func shouldBlockEnvFile(filePath string) bool {
	whitelist := []string{".env.sample", ".example"}
	for _, w := range whitelist {
		if strings.HasSuffix(filePath, w) {
			return false
		}
	}
	return strings.Contains(filePath, ".env")
}
