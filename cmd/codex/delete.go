package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	deleteText string
	deleteFile string
)

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete stored data or attributes",
}

var deleteDataCmd = &cobra.Command{
	Use:   "data ATTRIBUTE",
	Short: "Delete the records holding exactly --text under ATTRIBUTE",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeleteData,
}

var deleteAttributeCmd = &cobra.Command{
	Use:   "attribute ATTRIBUTE",
	Short: "Delete ATTRIBUTE and all of its data",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeleteAttribute,
}

func init() {
	deleteDataCmd.Flags().StringVarP(&deleteText, "text", "t", "", "Literal data text to delete")
	deleteDataCmd.Flags().StringVarP(&deleteFile, "file", "f", "", "Read the data text from file")

	deleteCmd.AddCommand(deleteDataCmd)
	deleteCmd.AddCommand(deleteAttributeCmd)
}

func runDeleteData(cmd *cobra.Command, args []string) error {
	text, err := readText(deleteText, deleteFile)
	if err != nil {
		return err
	}
	rt, err := openClient(cmd)
	if err != nil {
		return err
	}
	defer rt.client.Shutdown()

	n, err := rt.client.DeleteData(cmd.Context(), args[0], text)
	if err != nil {
		return fmt.Errorf("delete data: %w", err)
	}
	return printDeleted(cmd, n)
}

func runDeleteAttribute(cmd *cobra.Command, args []string) error {
	rt, err := openClient(cmd)
	if err != nil {
		return err
	}
	defer rt.client.Shutdown()

	n, err := rt.client.DeleteAttribute(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("delete attribute: %w", err)
	}
	return printDeleted(cmd, n)
}

func printDeleted(cmd *cobra.Command, n int64) error {
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{"deleted": n})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d record(s).\n", n)
	return nil
}
