package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BrendanGraham14/steer-sub008/internal/workspace"
)

// SystemPrompt builds the system prompt fed to the LLM for one operation.
// It composes a provider header, the agent's base prompt, model-specific
// guidance, an environment snapshot, any project custom-rules file, and
// general tool-usage guidelines, in that order.
type SystemPrompt struct {
	env        workspace.Environment
	agent      *Agent
	modelID    string
	providerID string

	// Override, when non-empty, replaces the agent's base prompt
	// entirely (a session-level custom prompt set via
	// EventSystemPromptChanged goes through this rather than mutating the
	// shared Agent).
	Override string
}

// NewSystemPrompt creates a new system prompt builder for one operation.
func NewSystemPrompt(env workspace.Environment, agent *Agent, providerID, modelID string) *SystemPrompt {
	return &SystemPrompt{
		env:        env,
		agent:      agent,
		modelID:    modelID,
		providerID: providerID,
	}
}

// Build constructs the complete system prompt.
func (s *SystemPrompt) Build() string {
	var parts []string

	if header := s.providerHeader(); header != "" {
		parts = append(parts, header)
	}

	if s.Override != "" {
		parts = append(parts, s.Override)
	} else if s.agent != nil && s.agent.Prompt != "" {
		parts = append(parts, s.agent.Prompt)
	}

	if modelPrompt := s.modelPrompt(); modelPrompt != "" {
		parts = append(parts, modelPrompt)
	}

	parts = append(parts, s.environmentContext())

	if rules := s.loadCustomRules(); rules != "" {
		parts = append(parts, rules)
	}

	if toolInstructions := s.toolInstructions(); toolInstructions != "" {
		parts = append(parts, toolInstructions)
	}

	return strings.Join(parts, "\n\n")
}

// providerHeader returns the provider-specific system header.
func (s *SystemPrompt) providerHeader() string {
	switch s.providerID {
	case "anthropic":
		return `You are Claude, an AI assistant made by Anthropic. You are helpful, harmless, and honest.

IMPORTANT: You have access to tools that can read, write, and execute commands on the user's computer. Use them responsibly.`

	case "openai":
		return `You are a helpful AI assistant with access to tools for reading, writing, and executing commands.

Use tools responsibly and follow user instructions carefully.`

	case "google":
		return `You are a helpful AI assistant with tool access.

You can read files, write code, and execute commands to help the user.`

	default:
		return ""
	}
}

// modelPrompt returns model-specific instructions.
func (s *SystemPrompt) modelPrompt() string {
	switch {
	case strings.Contains(s.modelID, "claude"):
		return `When using tools, be decisive and take action. Don't ask for confirmation unless absolutely necessary.

For file operations:
- Read files before editing to understand context
- Make minimal, focused changes
- Preserve existing code style and formatting`

	case strings.Contains(s.modelID, "gpt"):
		return `When working with files:
- Always read files before making changes
- Make precise, targeted edits
- Follow existing code conventions`

	case strings.Contains(s.modelID, "gemini"):
		return `For code tasks:
- Examine existing code structure first
- Make minimal necessary changes
- Maintain code style consistency`

	default:
		return ""
	}
}

// environmentContext reports the workspace snapshot already gathered by
// the caller (Workspace.Environment), so this package never shells out
// or stats the filesystem itself.
func (s *SystemPrompt) environmentContext() string {
	var b strings.Builder
	b.WriteString("# Environment Information\n\n")
	b.WriteString(fmt.Sprintf("Working Directory: %s\n", s.env.WorkDir))
	b.WriteString(fmt.Sprintf("Current Date: %s\n", time.Now().Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("Platform: %s\n", s.env.Platform))
	if s.env.Branch != "" {
		b.WriteString(fmt.Sprintf("Git Branch: %s\n", s.env.Branch))
	}
	if s.env.GitRoot != "" {
		b.WriteString(fmt.Sprintf("Git Root: %s\n", s.env.GitRoot))
	}
	if projectType := s.detectProjectType(s.env.WorkDir); projectType != "" {
		b.WriteString(fmt.Sprintf("Project Type: %s\n", projectType))
	}
	return b.String()
}

// loadCustomRules loads custom rules from various locations, preferring
// a project-local file over the user's global one.
func (s *SystemPrompt) loadCustomRules() string {
	workDir := s.env.WorkDir
	if workDir == "" {
		workDir, _ = os.Getwd()
	}

	locations := []string{
		filepath.Join(workDir, "AGENTS.md"),
		filepath.Join(workDir, "STEER.md"),
		filepath.Join(workDir, ".steer", "rules.md"),
	}
	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(home, ".config", "steer", "rules.md"))
	}

	for _, loc := range locations {
		if content, err := os.ReadFile(loc); err == nil && len(content) > 0 {
			return fmt.Sprintf("# Custom Rules\n\n%s", string(content))
		}
	}
	return ""
}

// toolInstructions returns general tool usage guidelines.
func (s *SystemPrompt) toolInstructions() string {
	return `# Tool Usage Guidelines

1. **File Operations**
   - Use the read tool before editing files
   - Use edit for surgical changes, write for new files
   - Always provide absolute paths

2. **Bash Commands**
   - Prefer built-in tools over bash when possible
   - Include a description for every bash command
   - Handle errors gracefully

3. **Search**
   - Use glob for file discovery
   - Use grep for content search
   - Be specific with patterns to avoid noise

4. **Best Practices**
   - Work iteratively, verify changes work
   - Don't modify files you haven't read
   - Explain your reasoning before acting`
}

// detectProjectType detects the project type from marker files.
func (s *SystemPrompt) detectProjectType(dir string) string {
	if dir == "" {
		return ""
	}
	indicators := map[string][]string{
		"Node.js": {"package.json"},
		"Python":  {"pyproject.toml", "setup.py", "requirements.txt"},
		"Go":      {"go.mod"},
		"Rust":    {"Cargo.toml"},
		"Java":    {"pom.xml", "build.gradle"},
		"Ruby":    {"Gemfile"},
	}
	for projectType, files := range indicators {
		for _, pattern := range files {
			matches, _ := filepath.Glob(filepath.Join(dir, pattern))
			if len(matches) > 0 {
				return projectType
			}
		}
	}
	return ""
}

// WithOverride sets a replacement for the agent's base prompt, e.g. a
// per-session custom system prompt set via EventSystemPromptChanged.
func (s *SystemPrompt) WithOverride(prompt string) *SystemPrompt {
	s.Override = prompt
	return s
}

// buildEnvironment fetches a workspace's environment snapshot under the
// caller's ctx (no extra timeout), falling back to an empty Environment
// rather than failing the whole prompt build if it errors.
func buildEnvironment(ctx context.Context, ws workspace.Workspace) workspace.Environment {
	if ws == nil {
		return workspace.Environment{}
	}
	env, err := ws.Environment(ctx)
	if err != nil {
		return workspace.Environment{}
	}
	return env
}
