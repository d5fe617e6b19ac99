package main

import (
	"github.com/spf13/cobra"
)

func playerCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "player",
		Short: "Player commands",
	}
	cmd.AddCommand(playerResolveCmd(flags))
	return cmd
}

func playerResolveCmd(flags *globalFlags) *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "resolve <wallet>",
		Short: "Resolve a wallet address to a player, creating it on first sight",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, closeConn, err := dial(flags)
			if err != nil {
				return err
			}
			defer closeConn()
			p, err := client.ResolvePlayer(cmd.Context(), args[0], username)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "display name to store on first sight")
	return cmd
}
