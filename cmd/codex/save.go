package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/codex/internal/save"
)

var (
	saveAttribute string
	saveData      string
	saveFile      string
)

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save data under an attribute path",
	Long: "Save data under an attribute path. Identical attribute/data pairs are " +
		"detected and not written twice.",
	Args: cobra.NoArgs,
	RunE: runSave,
}

func init() {
	saveCmd.Flags().StringVarP(&saveAttribute, "attribute", "a", "", "Attribute path below the novel title")
	saveCmd.Flags().StringVarP(&saveData, "data", "d", "", "Data text")
	saveCmd.Flags().StringVarP(&saveFile, "file", "f", "", "Read data text from file")
}

func runSave(cmd *cobra.Command, args []string) error {
	if err := requireNovel(); err != nil {
		return err
	}
	data, err := readText(saveData, saveFile)
	if err != nil {
		return err
	}

	rt, err := openClient(cmd)
	if err != nil {
		return err
	}
	defer rt.client.Shutdown()

	if err := rt.client.SetAttribute(saveAttribute); err != nil {
		return err
	}
	if err := rt.client.SetData(data); err != nil {
		return err
	}

	res, err := rt.client.SaveNow(cmd.Context())
	if err != nil {
		return err
	}

	if jsonOutput {
		out := map[string]any{
			"outcome":  res.Outcome.String(),
			"path":     res.Path,
			"id":       res.ID,
			"warnings": res.Warnings,
		}
		if res.Reason != nil {
			out["error"] = save.UserMessage(res.Reason)
		}
		if err := printJSON(cmd.OutOrStdout(), out); err != nil {
			return err
		}
	} else {
		for _, w := range res.Warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
		}
		switch res.Outcome {
		case save.OutcomeCommitted:
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s)\n", res.Path, res.ID)
		case save.OutcomeDuplicate:
			fmt.Fprintf(cmd.OutOrStdout(), "Already saved: %s\n", res.Path)
		}
	}

	if !res.Saved() {
		return errors.New(save.UserMessage(res.Reason))
	}
	return nil
}
