package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BrendanGraham14/steer-sub008/internal/auth"
	"github.com/BrendanGraham14/steer-sub008/internal/config"
	"github.com/spf13/cobra"
)

// oauthProviders lists the providers a browser login is supported for;
// everything else falls back to the API-key prompt in authLoginCmd.
var oauthProviders = map[string]bool{
	"anthropic": true,
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage provider credentials",
	Long: `Manage authentication credentials for AI providers.

Subcommands:
  list     List all configured providers and their status
  login    Log in to a provider (browser OAuth for anthropic, API key otherwise)
  logout   Remove stored credentials for a provider`,
}

var authListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all providers and their status",
	RunE:    runAuthList,
}

var authLoginCmd = &cobra.Command{
	Use:   "login <provider>",
	Short: "Log in to a provider",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout <provider>",
	Short: "Remove stored credentials for a provider",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthLogout,
}

func init() {
	authCmd.AddCommand(authListCmd, authLoginCmd, authLogoutCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthList(cmd *cobra.Command, args []string) error {
	store := auth.NewStore(config.GetPaths().AuthPath())
	creds, err := store.List()
	if err != nil {
		return fmt.Errorf("list credentials: %w", err)
	}

	envVars := map[string]string{
		"anthropic": "ANTHROPIC_API_KEY",
		"openai":    "OPENAI_API_KEY",
		"google":    "GOOGLE_API_KEY",
		"bedrock":   "AWS_ACCESS_KEY_ID",
		"ark":       "ARK_API_KEY",
	}

	fmt.Println("Provider Authentication Status:")
	fmt.Println()
	for provider, envVar := range envVars {
		status := "not configured"
		if os.Getenv(envVar) != "" {
			status = fmt.Sprintf("configured (via %s)", envVar)
		}
		if cred, ok := creds[provider]; ok {
			switch {
			case cred.AccessToken != "" && cred.Expired():
				status = "expired (re-run login)"
			case cred.AccessToken != "":
				status = "configured (via OAuth login)"
			case cred.APIKey != "":
				status = "configured (via auth file)"
			}
		}
		fmt.Printf("  %-12s %s\n", provider, status)
	}
	fmt.Println()
	fmt.Printf("Auth file: %s\n", config.GetPaths().AuthPath())
	return nil
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	provider := args[0]
	store := auth.NewStore(config.GetPaths().AuthPath())

	if !oauthProviders[provider] {
		return loginWithAPIKey(store, provider)
	}

	mgr := auth.NewManager(config.GetPaths().AuthPath())
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	flowID, progress, err := mgr.StartAuth(ctx, provider)
	if err != nil {
		return fmt.Errorf("start auth: %w", err)
	}

	fmt.Printf("Opening browser to authorize steer for %s...\n", provider)
	fmt.Println("If it doesn't open automatically, visit:")
	fmt.Println(progress.AuthURL)
	fmt.Println()
	fmt.Println("After authorizing, either wait for the redirect to be captured automatically,")
	fmt.Println("or paste the resulting code here and press enter:")
	fmt.Print("Code (or press enter to keep waiting): ")

	return pollAuthFlow(ctx, mgr, flowID)
}

// pollAuthFlow races a stdin read for a manually pasted code against
// the flow reaching a terminal state on its own (the local callback
// listener caught the redirect first).
func pollAuthFlow(ctx context.Context, mgr *auth.Manager, flowID auth.FlowID) error {
	input := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		input <- strings.TrimSpace(line)
	}()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case line := <-input:
			if line == "" {
				continue
			}
			progress, err := mgr.SubmitInput(ctx, flowID, line)
			if err != nil {
				return err
			}
			return printAuthOutcome(progress)
		case <-ticker.C:
			progress, err := mgr.GetAuthProgress(flowID)
			if err != nil {
				return err
			}
			if progress.State == auth.StateComplete || progress.State == auth.StateFailed {
				return printAuthOutcome(progress)
			}
		case <-ctx.Done():
			return fmt.Errorf("auth: timed out waiting for authorization")
		}
	}
}

func printAuthOutcome(p auth.Progress) error {
	if p.State == auth.StateFailed {
		return fmt.Errorf("login failed: %s", p.Err)
	}
	fmt.Println(p.Message)
	return nil
}

func loginWithAPIKey(store *auth.Store, provider string) error {
	fmt.Printf("Enter API key for %s: ", provider)
	reader := bufio.NewReader(os.Stdin)
	apiKey, err := reader.ReadString('\n')
	if err != nil {
		return err
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return fmt.Errorf("API key cannot be empty")
	}
	if err := store.SetAPIKey(provider, apiKey); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	fmt.Printf("Successfully logged in to %s\n", provider)
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	provider := args[0]
	store := auth.NewStore(config.GetPaths().AuthPath())
	if _, ok := store.Get(provider); !ok {
		return fmt.Errorf("not logged in to %s", provider)
	}
	if err := store.Delete(provider); err != nil {
		return fmt.Errorf("remove credential: %w", err)
	}
	fmt.Printf("Successfully logged out from %s\n", provider)
	return nil
}
