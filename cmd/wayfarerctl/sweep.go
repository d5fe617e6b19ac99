package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cory-johannsen/wayfarer/internal/game/action"
)

func sweepCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired cooldown rows once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd, flags)
		},
	}
}

func runSweep(cmd *cobra.Command, flags *globalFlags) error {
	ctx := cmd.Context()
	env, err := openLocal(ctx, flags)
	if err != nil {
		return err
	}
	defer env.close()

	if env.cfg.Sweeper.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, env.cfg.Sweeper.Timeout)
		defer cancel()
	}
	n, err := action.NewSweeper(env.store, env.logger, 0, env.cfg.Sweeper.Timeout).Sweep(ctx, time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired cooldowns.\n", n)
	return nil
}
