// Package command provides a flexible command execution system: users
// define and run templated commands with variable substitution.
// Commands can be defined in configuration or as markdown files in the
// .steer/commands directory.
//
// # Command Sources
//
// Commands can be loaded from two sources:
//
//  1. Configuration: commands defined in the project's config file
//  2. Markdown files: .md files in .steer/commands/
//
// # Command Structure
//
// Each command consists of:
//   - Name: Unique identifier for the command
//   - Description: Human-readable description of what the command does
//   - Template: The template string that will be executed with variable substitution
//   - Agent: Optional agent to use for execution
//   - Model: Optional model to use for execution
//   - Subtask: Whether this command represents a subtask
//
// # Template System
//
// Commands use Go templates with additional support for simple variable substitution:
//
//   - ${variable} syntax for variable expansion
//   - $variable syntax for simple variable references
//   - $1, $2, ... for positional arguments
//   - $input for the full input string
//   - --name=value or --name value for named arguments
//
// # Template Context
//
// Templates have access to:
//   - args: Map of parsed arguments
//   - input: The raw input string
//   - vars: Configured prompt variables
//   - env: Environment variables
//   - workDir: Current working directory
//   - Custom template functions (env, default, trim, upper, lower, etc.)
//
// # Markdown Command Format
//
// Markdown commands can include YAML frontmatter:
//
//	---
//	description: Run tests
//	agent: test-agent
//	model: claude-3
//	subtask: true
//	---
//	Run tests for ${1} package
//
// # Built-in Commands
//
// The package enumerates the same names the session actor's own
// built-in slash commands (clear, compact) answer directly; BuiltinCommands
// exists so a client can list them alongside file- and config-defined
// commands in one catalog.
//
// # Session integration
//
// internal/session/customcmd.go wraps an Executor per session, keyed to
// that session's working directory, and expands a named command into a
// plain user message before handing it to the agent loop the same way
// a typed message would be.
package command
