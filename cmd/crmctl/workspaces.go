package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	workspacesCmd := &cobra.Command{Use: "workspaces", Short: "Workspace operations"}

	var name string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return fmt.Errorf("--name required")
			}
			data, err := doPost("/api/workspaces", map[string]string{"name": name})
			if err != nil {
				return err
			}
			printJSON(data)
			return nil
		},
	}
	createCmd.Flags().StringVarP(&name, "name", "n", "", "Workspace name (required)")
	_ = createCmd.MarkFlagRequired("name")
	workspacesCmd.AddCommand(createCmd)

	getCmd := &cobra.Command{
		Use:   "get WORKSPACE_ID",
		Short: "Get workspace by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doGet("/api/workspaces/"+args[0], nil)
			if err != nil {
				return err
			}
			printJSON(data)
			return nil
		},
	}
	workspacesCmd.AddCommand(getCmd)

	rootCmd.AddCommand(workspacesCmd)
}
