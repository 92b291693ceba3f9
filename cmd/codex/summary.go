package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/codex/internal/save"
)

var summarySave bool

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Draft the past summary of the current chapter",
	Long: "Draft the past summary of the current chapter. The draft is printed; " +
		"--save stores it as the next chapter's past summary.",
	Args: cobra.NoArgs,
	RunE: runSummary,
}

func init() {
	summaryCmd.Flags().BoolVar(&summarySave, "save", false, "Store the draft under the next chapter")
}

func runSummary(cmd *cobra.Command, args []string) error {
	if err := requireNovel(); err != nil {
		return err
	}
	rt, err := openClient(cmd)
	if err != nil {
		return err
	}
	defer rt.client.Shutdown()

	recap, err := rt.client.Summary(cmd.Context())
	if err != nil {
		return err
	}
	if len(recap.Missing) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: missing sections: %s\n", strings.Join(recap.Missing, " "))
	}

	var res save.Result
	if summarySave {
		res, err = rt.client.SavePastSummary(cmd.Context(), recap.Text)
		if err != nil {
			return errors.New(save.UserMessage(err))
		}
	}

	if jsonOutput {
		out := map[string]any{
			"chapter": recap.Chapter,
			"text":    recap.Text,
			"missing": recap.Missing,
		}
		if summarySave {
			out["saved_to"] = res.Path
			out["outcome"] = res.Outcome.String()
		}
		return printJSON(cmd.OutOrStdout(), out)
	}

	fmt.Fprintln(cmd.OutOrStdout(), recap.Text)
	if summarySave {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", res.Outcome, res.Path)
	}
	return nil
}
