package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/BrendanGraham14/steer-sub008/internal/approval"
	"github.com/BrendanGraham14/steer-sub008/internal/event"
	"github.com/BrendanGraham14/steer-sub008/internal/session"
	"github.com/BrendanGraham14/steer-sub008/internal/llm"
	"github.com/BrendanGraham14/steer-sub008/pkg/types"
	"github.com/spf13/cobra"
)

var (
	headlessPrompt      string
	headlessWorkDir     string
	headlessAutoApprove bool
	headlessTimeout     string
	headlessStdin       bool
	headlessSessionID   string
	headlessContinue    bool
	headlessQuiet       bool
	headlessTitle       string
	headlessCommand     string
)

var headlessCmd = &cobra.Command{
	Use:   "headless [prompt...]",
	Short: "Run one prompt through a session without the TUI",
	Long: `Run headless drives a single turn of an agent loop from the
command line, streaming assistant text to stdout and exiting once the
operation completes.

Examples:
  steer headless "fix the bug in main.go"
  steer headless --yolo "refactor the auth module"
  steer headless -s <session-id> "now add tests for that"
  echo "fix lint errors" | steer headless --stdin`,
	RunE: runHeadless,
}

func init() {
	headlessCmd.Flags().StringVarP(&headlessPrompt, "prompt", "p", "", "Prompt to send")
	headlessCmd.Flags().BoolVar(&headlessStdin, "stdin", false, "Read the prompt from stdin")
	headlessCmd.Flags().StringVarP(&headlessWorkDir, "workdir", "w", "", "Working directory")
	headlessCmd.Flags().StringVarP(&headlessSessionID, "session", "s", "", "Continue an existing session ID")
	headlessCmd.Flags().BoolVarP(&headlessContinue, "continue", "c", false, "Continue the most recently updated session")
	headlessCmd.Flags().StringVar(&headlessTitle, "title", "", "Session title, applied on creation")
	headlessCmd.Flags().BoolVar(&headlessAutoApprove, "auto-approve", false, "Auto-approve every tool call for the session")
	headlessCmd.Flags().BoolVar(&headlessAutoApprove, "yolo", false, "Alias for --auto-approve")
	headlessCmd.Flags().BoolVarP(&headlessQuiet, "quiet", "q", false, "Only print the final assistant reply")
	headlessCmd.Flags().StringVarP(&headlessTimeout, "timeout", "t", "30m", "Maximum time to wait for the operation to finish")
	headlessCmd.Flags().StringVar(&headlessCommand, "command", "", "Run a project-defined custom command instead of a plain prompt; remaining args become its argument string")
}

func runHeadless(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir(headlessWorkDir)
	if err != nil {
		return err
	}

	timeout, err := time.ParseDuration(headlessTimeout)
	if err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}

	prompt := headlessPrompt
	if prompt == "" && len(args) > 0 && headlessCommand == "" {
		prompt = strings.Join(args, " ")
	}
	if prompt == "" && headlessStdin {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		prompt = strings.TrimSpace(string(data))
	}
	if prompt == "" && headlessCommand == "" {
		return fmt.Errorf("prompt required: pass it as an argument, --prompt, or --stdin")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	rt, err := buildRuntime(ctx, workDir, 0)
	if err != nil {
		return err
	}
	defer rt.Close()

	id, err := resolveHeadlessSession(ctx, rt, workDir)
	if err != nil {
		return err
	}

	if model := GetGlobalModel(); model != "" {
		if err := rt.client.SendCommand(ctx, id, workDir, session.Command{Kind: session.CmdSetModel, Model: model}); err != nil {
			return fmt.Errorf("set model: %w", err)
		}
	}

	var unsubApproval func()
	if headlessAutoApprove {
		unsubApproval = event.Subscribe(event.ToolApprovalRequested, func(ev event.Event) {
			req, ok := ev.Data.(approval.Request)
			if !ok || req.SessionID != id {
				return
			}
			_ = rt.client.SendCommand(ctx, id, workDir, session.Command{
				Kind:   session.CmdApproveTool,
				CallID: req.CallID,
				Scope:  approval.ScopeSession,
			})
		})
		defer unsubApproval()
	}

	sub, unsub, err := rt.client.Subscribe(ctx, id, workDir)
	if err != nil {
		return err
	}
	defer unsub()

	if headlessCommand != "" {
		if err := rt.client.SendCommand(ctx, id, workDir, session.Command{
			Kind:          session.CmdRunCustomCommand,
			CustomCmdName: headlessCommand,
			CustomCmdArgs: strings.Join(args, " "),
		}); err != nil {
			return fmt.Errorf("run command %q: %w", headlessCommand, err)
		}
	} else if err := rt.client.SendCommand(ctx, id, workDir, session.Command{
		Kind:    session.CmdSendUserMessage,
		Content: []types.UserBlock{{Kind: types.UserBlockText, Text: prompt}},
	}); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	for {
		select {
		case ev := <-sub:
			switch ev.Kind {
			case session.ClientEventDelta:
				if !headlessQuiet && ev.Delta.Kind == llm.DeltaTextChunk {
					fmt.Print(ev.Delta.Text)
				}
			case session.ClientEventPersisted:
				if ev.Event == nil {
					continue
				}
				switch ev.Event.Kind {
				case types.EventOperationCompleted, types.EventOperationCancelled:
					if headlessQuiet {
						if history, _, _, _, _, err := rt.client.Snapshot(ctx, id, workDir); err == nil {
							for i := len(history) - 1; i >= 0; i-- {
								if history[i].Role == types.RoleAssistant {
									fmt.Print(history[i].TextContent())
									break
								}
							}
						}
					}
					fmt.Println()
					fmt.Fprintf(os.Stderr, "session %s\n", id)
					return nil
				}
			case session.ClientEventNotice:
				if ev.Level == session.NoticeError {
					fmt.Fprintf(os.Stderr, "error: %s\n", ev.Message)
				}
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func resolveHeadlessSession(ctx context.Context, rt *runtime, workDir string) (types.SessionID, error) {
	if headlessSessionID != "" {
		return types.SessionID(headlessSessionID), nil
	}
	if headlessContinue {
		metas, err := rt.client.ListSessions(ctx)
		if err != nil {
			return "", err
		}
		if len(metas) == 0 {
			return "", fmt.Errorf("no sessions to continue")
		}
		latest := metas[0]
		for _, m := range metas[1:] {
			if m.UpdatedAt > latest.UpdatedAt {
				latest = m
			}
		}
		return latest.ID, nil
	}
	return rt.client.CreateSession(ctx, workDir)
}
