package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"demoforge/internal/config"
	"demoforge/internal/product"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigValidateCommand(ctx))
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			}
			target, err := writeSample(target, overwrite, config.CreateSample)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Set the LLM, TTS and transcription API keys (or export them) before running demoforge.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite an existing file")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", ctx.configPath)
			if _, err := os.Stat(ctx.configPath); errors.Is(err, os.ErrNotExist) {
				fmt.Fprintln(out, "Config file does not exist; defaults were used")
			}
			fmt.Fprintf(out, "Run root: %s\n", cfg.Paths.RunRoot)
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func newProductCommand() *cobra.Command {
	productCmd := &cobra.Command{
		Use:   "product",
		Short: "Product specification utilities",
	}
	productCmd.AddCommand(newProductInitCommand())
	productCmd.AddCommand(newProductValidateCommand())
	return productCmd
}

func newProductInitCommand() *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init <path>",
		Short:       "Write an example product specification",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := writeSample(args[0], overwrite, func(path string) error {
				return os.WriteFile(path, product.Sample(), 0o644)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote example product specification to %s\n", target)
			return nil
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite an existing file")
	return cmd
}

func newProductValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "validate <path>",
		Short:       "Check a product specification without running anything",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve product path: %w", err)
			}
			spec, err := product.Load(path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Product: %s (%s)\n", spec.Product.Name, spec.Slug())
			fmt.Fprintf(out, "Scenes: %d, planned %s\n", len(spec.Demo.Scenes), spec.Demo.PlannedDuration())
			for _, w := range spec.Warnings() {
				fmt.Fprintf(out, "warning: %s\n", w)
			}
			fmt.Fprintln(out, "Product specification valid")
			return nil
		},
	}
}

// writeSample resolves target and writes it with write, refusing to replace
// an existing file unless overwrite is set.
func writeSample(target string, overwrite bool, write func(string) error) (string, error) {
	expanded, err := config.ExpandPath(strings.TrimSpace(target))
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return "", fmt.Errorf("create directory %q: %w", filepath.Dir(expanded), err)
	}
	if !overwrite {
		if _, err := os.Stat(expanded); err == nil {
			return "", fmt.Errorf("file already exists at %s (use --overwrite to replace it)", expanded)
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("check path: %w", err)
		}
	}
	if err := write(expanded); err != nil {
		return "", err
	}
	return expanded, nil
}
