package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func characterCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "character",
		Short: "Character commands",
	}
	cmd.AddCommand(characterCreateCmd(flags))
	cmd.AddCommand(characterShowCmd(flags))
	return cmd
}

func characterCreateCmd(flags *globalFlags) *cobra.Command {
	var class string
	cmd := &cobra.Command{
		Use:   "create <player-id> <name>",
		Short: "Create a character at the start location",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			playerID, err := parseID("player", args[0])
			if err != nil {
				return err
			}
			client, closeConn, err := dial(flags)
			if err != nil {
				return err
			}
			defer closeConn()
			c, err := client.CreateCharacter(cmd.Context(), playerID, args[1], class)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), c)
		},
	}
	cmd.Flags().StringVar(&class, "class", "", "character class (default adventurer)")
	return cmd
}

func characterShowCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <character-id>",
		Short: "Show a character and its inventory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("character", args[0])
			if err != nil {
				return err
			}
			client, closeConn, err := dial(flags)
			if err != nil {
				return err
			}
			defer closeConn()
			c, err := client.GetCharacter(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), c)
		},
	}
}

func parseID(kind, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s id %q: %w", kind, s, err)
	}
	return id, nil
}
