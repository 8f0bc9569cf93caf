package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	workflowsCmd := &cobra.Command{Use: "workflows", Short: "Workflow operations"}

	var workspaceID, name, stepsFile string
	var triggers []string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a workflow (disabled until enabled)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if workspaceID == "" || actorFlag == "" {
				return fmt.Errorf("--workspace and --actor required")
			}
			payload := map[string]interface{}{
				"actorId":      actorFlag,
				"name":         name,
				"triggerTypes": triggers,
			}
			if stepsFile != "" {
				raw, err := os.ReadFile(stepsFile)
				if err != nil {
					return err
				}
				var steps []map[string]interface{}
				if err := json.Unmarshal(raw, &steps); err != nil {
					return fmt.Errorf("steps file: %w", err)
				}
				payload["steps"] = steps
			}
			data, err := doPost(fmt.Sprintf("/api/workspaces/%s/workflows", workspaceID), payload)
			if err != nil {
				return err
			}
			printJSON(data)
			return nil
		},
	}
	createCmd.Flags().StringVarP(&workspaceID, "workspace", "w", "", "Workspace ID (required)")
	createCmd.Flags().StringVarP(&name, "name", "n", "", "Workflow name (required)")
	createCmd.Flags().StringSliceVarP(&triggers, "trigger", "t", nil, "Trigger activity type (repeatable)")
	createCmd.Flags().StringVar(&stepsFile, "steps", "", "Path to a JSON file with the step list")
	_ = createCmd.MarkFlagRequired("workspace")
	_ = createCmd.MarkFlagRequired("name")
	workflowsCmd.AddCommand(createCmd)

	var listWorkspace string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List workflows in a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			if listWorkspace == "" {
				return fmt.Errorf("--workspace required")
			}
			data, err := doGet(fmt.Sprintf("/api/workspaces/%s/workflows", listWorkspace), nil)
			if err != nil {
				return err
			}
			printJSON(data)
			return nil
		},
	}
	listCmd.Flags().StringVarP(&listWorkspace, "workspace", "w", "", "Workspace ID (required)")
	_ = listCmd.MarkFlagRequired("workspace")
	workflowsCmd.AddCommand(listCmd)

	for _, verb := range []string{"enable", "disable", "archive"} {
		verb := verb
		var vw string
		verbCmd := &cobra.Command{
			Use:   fmt.Sprintf("%s WORKFLOW_ID", verb),
			Short: fmt.Sprintf("%s a workflow", verb),
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if vw == "" || actorFlag == "" {
					return fmt.Errorf("--workspace and --actor required")
				}
				_, err := doPost(fmt.Sprintf("/api/workspaces/%s/workflows/%s/%s", vw, args[0], verb), map[string]string{"actorId": actorFlag})
				return err
			},
		}
		verbCmd.Flags().StringVarP(&vw, "workspace", "w", "", "Workspace ID (required)")
		_ = verbCmd.MarkFlagRequired("workspace")
		workflowsCmd.AddCommand(verbCmd)
	}

	rootCmd.AddCommand(workflowsCmd)
}
