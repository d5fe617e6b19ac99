package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cory-johannsen/wayfarer/internal/gameserver"
)

func actionCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "action",
		Short: "Action commands",
	}
	cmd.AddCommand(actionListCmd(flags))
	cmd.AddCommand(actionExecCmd(flags))
	return cmd
}

func actionListCmd(flags *globalFlags) *cobra.Command {
	var location string
	cmd := &cobra.Command{
		Use:   "list <character-id>",
		Short: "List the actions a character can start now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			charID, err := parseID("character", args[0])
			if err != nil {
				return err
			}
			var locID *uuid.UUID
			if location != "" {
				id, err := parseID("location", location)
				if err != nil {
					return err
				}
				locID = &id
			}
			client, closeConn, err := dial(flags)
			if err != nil {
				return err
			}
			defer closeConn()

			view, err := client.GetAvailableActions(cmd.Context(), charID, locID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(view.Actions) == 0 {
				fmt.Fprintln(out, "No actions available.")
				return nil
			}
			for _, a := range view.Actions {
				fmt.Fprintf(out, "%s  %s [%s/%s] cost=%d ap=%d cooldown=%ds\n",
					a.ID, a.Name, a.Type, a.Category, a.RequiredCurrency, a.ActionPointsCost, a.CooldownSeconds)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&location, "location", "", "location id (defaults to the character's location)")
	return cmd
}

func actionExecCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "exec <character-id> <action-id>",
		Short: "Execute an action for a character",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			charID, err := parseID("character", args[0])
			if err != nil {
				return err
			}
			actionID, err := parseID("action", args[1])
			if err != nil {
				return err
			}
			client, closeConn, err := dial(flags)
			if err != nil {
				return err
			}
			defer closeConn()

			res, err := client.ExecuteAction(cmd.Context(), charID, actionID)
			if reason, ok := gameserver.IneligibleReason(err); ok {
				return fmt.Errorf("action refused: %s", reason)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}
