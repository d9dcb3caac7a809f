package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	tuiSession       string
	tuiRemote        string
	tuiModel         string
	tuiSystemPrompt  string
	tuiSessionConfig string
)

// tuiCmd is a contract stand-in: it accepts every flag the interactive
// surface would, so scripts and docs referencing it stay valid, but the
// surface itself is out of scope here.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive terminal UI (not implemented)",
	Long: `The interactive terminal surface is out of scope for this build.
This command accepts the same flags the full TUI would so that tooling
built against the CLI contract keeps working; it exits after printing
a pointer to 'steer headless' and 'steer session'.`,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().StringVar(&tuiSession, "session", "", `Session id, or "latest"`)
	tuiCmd.Flags().StringVar(&tuiRemote, "remote", "", "Address of a steer server to attach to instead of running in-process")
	tuiCmd.Flags().StringVar(&tuiModel, "model", "", "Model to use (provider/model format)")
	tuiCmd.Flags().StringVar(&tuiSystemPrompt, "system-prompt", "", "Custom system prompt")
	tuiCmd.Flags().StringVar(&tuiSessionConfig, "session-config", "", "Path to a session config file")
}

func runTUI(cmd *cobra.Command, args []string) error {
	fmt.Println("the interactive terminal surface is not built here.")
	fmt.Println("use 'steer headless' for one-shot turns or 'steer session' to inspect history,")
	fmt.Println("and 'steer server' plus a remote client for anything interactive over the network.")
	return nil
}
