package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/ganymede/pkg/cli"
	"mercator-hq/ganymede/pkg/forge"
)

var runFlags struct {
	sourceType string
	sourceID   int64
	dryRun     bool
	output     string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the triage policies once against a project or group",
	Long: `Run the triage policies once against a project or group and exit.

Examples:
  # Triage a project
  ganymede run --source-type projects --source-id 42

  # Triage a group, without touching the forge
  ganymede run --source-type groups --source-id 7 --dry-run

  # Machine-readable result
  ganymede run --source-type projects --source-id 42 --output json`,
	RunE: runOnce,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.sourceType, "source-type", "", "source type (projects or groups)")
	runCmd.Flags().Int64Var(&runFlags.sourceID, "source-id", 0, "numeric project or group id")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "log actions without executing them")
	runCmd.Flags().StringVarP(&runFlags.output, "output", "o", "text", "output format (text or json)")
}

func runOnce(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(runFlags.output)
	if err != nil {
		return err
	}

	st := forge.SourceType(runFlags.sourceType)
	if !st.Valid() {
		return fmt.Errorf("--source-type must be %q or %q", forge.SourceTypeProject, forge.SourceTypeGroup)
	}
	if runFlags.sourceID <= 0 {
		return fmt.Errorf("--source-id is required")
	}

	a, cleanup, err := buildApp()
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer cleanup()

	ctx := cli.SetupSignalHandler()
	if err := a.reload(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	a.metrics.RunStarted("cli", runFlags.dryRun)
	result, err := a.processor.ProcessDocument(ctx, a.document(), st, runFlags.sourceID, runFlags.dryRun)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	if err := cli.WriteResult(os.Stdout, format, result, runFlags.dryRun); err != nil {
		return err
	}
	if result.Errors > 0 {
		return fmt.Errorf("%d rule or resource failures were contained, see the log", result.Errors)
	}
	return nil
}
