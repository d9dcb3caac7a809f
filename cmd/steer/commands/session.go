package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BrendanGraham14/steer-sub008/internal/session"
	"github.com/BrendanGraham14/steer-sub008/internal/sharing"
	"github.com/BrendanGraham14/steer-sub008/pkg/types"
	"github.com/spf13/cobra"
)

var sessionDir string

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage sessions",
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions",
	RunE:  runSessionList,
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print a session's message history",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionShow,
}

var sessionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new, empty session",
	RunE:  runSessionCreate,
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session and its event log",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionDelete,
}

var sessionDiffCmd = &cobra.Command{
	Use:   "diff <session-id>",
	Short: "Summarize the file changes a session's edit/write tool calls made",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionDiff,
}

var sessionShareCmd = &cobra.Command{
	Use:   "share <session-id>",
	Short: "Generate a share token for a session and print its URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionShare,
}

var sessionUnshareCmd = &cobra.Command{
	Use:   "unshare <session-id>",
	Short: "Revoke a session's share token",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionUnshare,
}

func init() {
	sessionCmd.PersistentFlags().StringVar(&sessionDir, "directory", "", "Working directory sessions default to")
	sessionCmd.AddCommand(sessionListCmd, sessionShowCmd, sessionCreateCmd, sessionDeleteCmd, sessionDiffCmd, sessionShareCmd, sessionUnshareCmd)
}

func runSessionList(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir(sessionDir)
	if err != nil {
		return err
	}
	ctx := context.Background()
	rt, err := buildRuntime(ctx, workDir, 0)
	if err != nil {
		return err
	}
	defer rt.Close()

	metas, err := rt.client.ListSessions(ctx)
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		fmt.Println("no sessions")
		return nil
	}
	for _, m := range metas {
		updated := time.Unix(m.UpdatedAt, 0).Format(time.RFC3339)
		title := m.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%s  %-20s  %3d msgs  %s\n", m.ID, title, m.MessageCount, updated)
	}
	return nil
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir(sessionDir)
	if err != nil {
		return err
	}
	ctx := context.Background()
	rt, err := buildRuntime(ctx, workDir, 0)
	if err != nil {
		return err
	}
	defer rt.Close()

	id := types.SessionID(args[0])
	history, _, model, title, shareToken, err := rt.client.Snapshot(ctx, id, workDir)
	if err != nil {
		return err
	}
	if title != "" {
		fmt.Printf("# %s (%s)\n\n", title, model)
	}
	if shareToken != "" {
		fmt.Printf("shared at %s\n\n", sharing.URL("", shareToken))
	}
	for _, msg := range history {
		fmt.Printf("--- %s ---\n%s\n\n", strings.ToUpper(string(msg.Role)), msg.TextContent())
	}
	return nil
}

func runSessionCreate(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir(sessionDir)
	if err != nil {
		return err
	}
	ctx := context.Background()
	rt, err := buildRuntime(ctx, workDir, 0)
	if err != nil {
		return err
	}
	defer rt.Close()

	id, err := rt.client.CreateSession(ctx, workDir)
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

func runSessionDelete(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir(sessionDir)
	if err != nil {
		return err
	}
	ctx := context.Background()
	rt, err := buildRuntime(ctx, workDir, 0)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.client.DeleteSession(ctx, types.SessionID(args[0])); err != nil {
		return err
	}
	fmt.Printf("deleted %s\n", args[0])
	return nil
}

func runSessionDiff(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir(sessionDir)
	if err != nil {
		return err
	}
	ctx := context.Background()
	rt, err := buildRuntime(ctx, workDir, 0)
	if err != nil {
		return err
	}
	defer rt.Close()

	id := types.SessionID(args[0])
	history, _, _, _, _, err := rt.client.Snapshot(ctx, id, workDir)
	if err != nil {
		return err
	}

	summary := types.SummarizeEdits(history)
	if summary.Files == 0 {
		fmt.Println("no file changes")
		return nil
	}
	for _, d := range summary.Diffs {
		fmt.Printf("%s  +%d -%d\n", d.Path, d.Additions, d.Deletions)
	}
	fmt.Printf("\n%d file(s) changed, +%d -%d\n", summary.Files, summary.Additions, summary.Deletions)
	return nil
}

func runSessionShare(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir(sessionDir)
	if err != nil {
		return err
	}
	ctx := context.Background()
	rt, err := buildRuntime(ctx, workDir, 0)
	if err != nil {
		return err
	}
	defer rt.Close()

	id := types.SessionID(args[0])
	if err := rt.client.SendCommand(ctx, id, workDir, session.Command{Kind: session.CmdShareSession}); err != nil {
		return err
	}
	_, _, _, _, shareToken, err := rt.client.Snapshot(ctx, id, workDir)
	if err != nil {
		return err
	}
	fmt.Println(sharing.URL("", shareToken))
	return nil
}

func runSessionUnshare(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir(sessionDir)
	if err != nil {
		return err
	}
	ctx := context.Background()
	rt, err := buildRuntime(ctx, workDir, 0)
	if err != nil {
		return err
	}
	defer rt.Close()

	id := types.SessionID(args[0])
	if err := rt.client.SendCommand(ctx, id, workDir, session.Command{Kind: session.CmdUnshareSession}); err != nil {
		return err
	}
	fmt.Printf("unshared %s\n", args[0])
	return nil
}
