package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/BrendanGraham14/steer-sub008/internal/project"
	"github.com/spf13/cobra"
)

var projectDir string

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Show the project steer detects at a directory",
	Long: `Identifies the project a directory belongs to the same way session
IDs are scoped: by walking up to the nearest .git directory and using
its initial commit SHA, falling back to a "global" project for
directories outside any git repository.`,
	RunE: runProjectInfo,
}

func init() {
	projectCmd.Flags().StringVar(&projectDir, "directory", "", "Directory to identify (defaults to the current directory)")
	rootCmd.AddCommand(projectCmd)
}

func runProjectInfo(cmd *cobra.Command, args []string) error {
	dir, err := GetWorkDir(projectDir)
	if err != nil {
		return err
	}

	svc := project.NewService(dir)
	info, err := svc.Current(cmd.Context())
	if err != nil {
		return fmt.Errorf("identify project: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(info)
}
