package main

import (
	"github.com/spf13/cobra"
)

// skipConfigAnnotation marks commands that must work before a config exists.
const skipConfigAnnotation = "skipConfigLoad"

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := newCommandContext(&configFlag)

	root := &cobra.Command{
		Use:           "demoforge",
		Short:         "Generate narrated product demo videos",
		Long:          "demoforge turns a product specification into a narrated, captioned demo video.\nEach stage caches its artifacts under the run root, so a rerun resumes where the last one stopped.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if needsNoConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	root.AddCommand(
		newRunCommand(ctx),
		newStatusCommand(ctx),
		newHistoryCommand(ctx),
		newDoctorCommand(ctx),
		newLogsCommand(ctx),
		newRunsCommand(ctx),
		newCleanCommand(ctx),
		newConfigCommand(ctx),
		newProductCommand(),
	)
	return root
}

func needsNoConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[skipConfigAnnotation] == "true" {
			return true
		}
	}
	return false
}
