package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	contactsCmd := &cobra.Command{Use: "contacts", Short: "Contact operations"}

	var workspaceID, email, firstName, lastName string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a contact",
		RunE: func(cmd *cobra.Command, args []string) error {
			if workspaceID == "" || actorFlag == "" {
				return fmt.Errorf("--workspace and --actor required")
			}
			payload := map[string]interface{}{"actorId": actorFlag}
			if email != "" {
				payload["email"] = email
			}
			if firstName != "" {
				payload["firstName"] = firstName
			}
			if lastName != "" {
				payload["lastName"] = lastName
			}
			data, err := doPost(fmt.Sprintf("/api/workspaces/%s/contacts", workspaceID), payload)
			if err != nil {
				return err
			}
			printJSON(data)
			return nil
		},
	}
	createCmd.Flags().StringVarP(&workspaceID, "workspace", "w", "", "Workspace ID (required)")
	createCmd.Flags().StringVarP(&email, "email", "e", "", "Email")
	createCmd.Flags().StringVar(&firstName, "first-name", "", "First name")
	createCmd.Flags().StringVar(&lastName, "last-name", "", "Last name")
	_ = createCmd.MarkFlagRequired("workspace")
	contactsCmd.AddCommand(createCmd)

	var getWorkspace string
	getCmd := &cobra.Command{
		Use:   "get CONTACT_ID",
		Short: "Get contact by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if getWorkspace == "" {
				return fmt.Errorf("--workspace required")
			}
			data, err := doGet(fmt.Sprintf("/api/workspaces/%s/contacts/%s", getWorkspace, args[0]), nil)
			if err != nil {
				return err
			}
			printJSON(data)
			return nil
		},
	}
	getCmd.Flags().StringVarP(&getWorkspace, "workspace", "w", "", "Workspace ID (required)")
	_ = getCmd.MarkFlagRequired("workspace")
	contactsCmd.AddCommand(getCmd)

	var listWorkspace string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List contacts in a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			if listWorkspace == "" {
				return fmt.Errorf("--workspace required")
			}
			data, err := doGet(fmt.Sprintf("/api/workspaces/%s/contacts", listWorkspace), nil)
			if err != nil {
				return err
			}
			printJSON(data)
			return nil
		},
	}
	listCmd.Flags().StringVarP(&listWorkspace, "workspace", "w", "", "Workspace ID (required)")
	_ = listCmd.MarkFlagRequired("workspace")
	contactsCmd.AddCommand(listCmd)

	var archiveWorkspace string
	archiveCmd := &cobra.Command{
		Use:   "archive CONTACT_ID",
		Short: "Archive a contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if archiveWorkspace == "" || actorFlag == "" {
				return fmt.Errorf("--workspace and --actor required")
			}
			data, err := doPost(fmt.Sprintf("/api/workspaces/%s/contacts/%s/archive", archiveWorkspace, args[0]),
				map[string]string{"actorId": actorFlag})
			if err != nil {
				return err
			}
			printJSON(data)
			return nil
		},
	}
	archiveCmd.Flags().StringVarP(&archiveWorkspace, "workspace", "w", "", "Workspace ID (required)")
	_ = archiveCmd.MarkFlagRequired("workspace")
	contactsCmd.AddCommand(archiveCmd)

	var timelineWorkspace, cursor string
	var limit int
	timelineCmd := &cobra.Command{
		Use:   "timeline CONTACT_ID",
		Short: "Page a contact's activity timeline, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if timelineWorkspace == "" {
				return fmt.Errorf("--workspace required")
			}
			query := map[string]string{}
			if limit > 0 {
				query["limit"] = fmt.Sprintf("%d", limit)
			}
			if cursor != "" {
				query["cursor"] = cursor
			}
			data, err := doGet(fmt.Sprintf("/api/workspaces/%s/contacts/%s/timeline", timelineWorkspace, args[0]), query)
			if err != nil {
				return err
			}
			printJSON(data)
			return nil
		},
	}
	timelineCmd.Flags().StringVarP(&timelineWorkspace, "workspace", "w", "", "Workspace ID (required)")
	timelineCmd.Flags().IntVarP(&limit, "limit", "l", 0, "Page size")
	timelineCmd.Flags().StringVarP(&cursor, "cursor", "c", "", "Cursor from the previous page")
	_ = timelineCmd.MarkFlagRequired("workspace")
	contactsCmd.AddCommand(timelineCmd)

	var mergeWorkspace, secondary string
	mergeCmd := &cobra.Command{
		Use:   "merge PRIMARY_CONTACT_ID",
		Short: "Merge a secondary contact into the primary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if mergeWorkspace == "" || actorFlag == "" || secondary == "" {
				return fmt.Errorf("--workspace, --actor and --secondary required")
			}
			data, err := doPost(fmt.Sprintf("/api/workspaces/%s/contacts/%s/merge", mergeWorkspace, args[0]),
				map[string]string{"actorId": actorFlag, "secondaryContactId": secondary})
			if err != nil {
				return err
			}
			printJSON(data)
			return nil
		},
	}
	mergeCmd.Flags().StringVarP(&mergeWorkspace, "workspace", "w", "", "Workspace ID (required)")
	mergeCmd.Flags().StringVarP(&secondary, "secondary", "s", "", "Secondary contact ID (required)")
	_ = mergeCmd.MarkFlagRequired("workspace")
	_ = mergeCmd.MarkFlagRequired("secondary")
	contactsCmd.AddCommand(mergeCmd)

	rootCmd.AddCommand(contactsCmd)
}
