package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the harveyctl profile",
	Long:  "View or modify the profile stored in ~/.harvey/config.toml.",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the profile file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := profilePath()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				fmt.Fprintln(cmd.OutOrStdout(), "No profile found. Run 'harveyctl config set backend.base_url <url>' to create one.")
				return nil
			}
			return fmt.Errorf("cannot read profile: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a profile value",
	Long:  "Set a profile value using dot notation.\nExample: harveyctl config set backend.base_url https://harvey.example.com",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		p, err := loadProfile()
		if err != nil {
			return err
		}
		if err := setProfileValue(p, key, value); err != nil {
			return err
		}
		if err := saveProfile(p); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s\n", key)
		return nil
	},
}
