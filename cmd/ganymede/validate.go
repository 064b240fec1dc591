package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/ganymede/pkg/policy/source"
)

var validateFlags struct {
	policy string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check policy files without running them",
	Long: `Parse and validate a policy file or a directory of policy files,
reporting schema errors with file and line information.

Examples:
  ganymede validate --policy triage.yml
  ganymede validate --policy policies/`,
	RunE: validatePolicies,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&validateFlags.policy, "policy", "p", "", "policy file or directory (required)")
	_ = validateCmd.MarkFlagRequired("policy")
}

func validatePolicies(cmd *cobra.Command, args []string) error {
	doc, err := source.NewFileSource(validateFlags.policy).Load(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("✓ %s is valid\n", validateFlags.policy)
	if doc.Name != "" {
		fmt.Printf("  name:  %s\n", doc.Name)
	}
	fmt.Printf("  rules: %d\n", doc.RuleCount())
	for _, rt := range doc.ResourceTypes() {
		rp := doc.ResourceRules[rt]
		fmt.Printf("  %s: %d rules, %d summaries\n", rt, len(rp.Rules), len(rp.Summaries))
	}
	return nil
}
