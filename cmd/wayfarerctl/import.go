package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/wayfarer/internal/game/world"
)

func importCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import <dir>",
		Short: "Validate catalog YAML files and upsert them into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, flags, args[0])
		},
	}
}

func runImport(cmd *cobra.Command, flags *globalFlags, dir string) error {
	start := time.Now()
	ctx := cmd.Context()

	cat, err := world.LoadCatalogFromDir(dir)
	if err != nil {
		return err
	}

	env, err := openLocal(ctx, flags)
	if err != nil {
		return err
	}
	defer env.close()

	content := cat.Content()
	if err := env.store.ImportContent(ctx, content); err != nil {
		return fmt.Errorf("importing content: %w", err)
	}
	env.logger.Info("catalog imported",
		zap.String("dir", dir),
		zap.Duration("elapsed", time.Since(start)),
	)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Import complete.")
	fmt.Fprintf(out, "  Towns:     %d\n", len(content.Towns))
	fmt.Fprintf(out, "  Locations: %d\n", len(content.Locations))
	fmt.Fprintf(out, "  Actions:   %d\n", len(content.Actions))
	fmt.Fprintf(out, "  Items:     %d\n", len(content.Items))
	return nil
}
