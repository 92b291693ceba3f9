package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/codex/internal/chapter"
	"github.com/hyperengineering/codex/pkg/codex"
)

var chaptersCmd = &cobra.Command{
	Use:   "chapters",
	Short: "List and navigate the chapters of a novel",
	Args:  cobra.NoArgs,
	RunE:  runChaptersList,
}

var chaptersCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show the chapter under the cursor",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNavigate(cmd, (*codex.Client).Current)
	},
}

var chaptersNextCmd = &cobra.Command{
	Use:   "next",
	Short: "Move to the next chapter, creating one past the end",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNavigate(cmd, (*codex.Client).Next)
	},
}

var chaptersPrevCmd = &cobra.Command{
	Use:   "prev",
	Short: "Move to the previous chapter",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNavigate(cmd, (*codex.Client).Prev)
	},
}

func init() {
	chaptersCmd.AddCommand(chaptersCurrentCmd)
	chaptersCmd.AddCommand(chaptersNextCmd)
	chaptersCmd.AddCommand(chaptersPrevCmd)
}

func runChaptersList(cmd *cobra.Command, args []string) error {
	if err := requireNovel(); err != nil {
		return err
	}
	rt, err := openClient(cmd)
	if err != nil {
		return err
	}
	defer rt.client.Shutdown()

	view, err := rt.client.Chapters(cmd.Context())
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), view)
	}
	if len(view.Chapters) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No chapters yet.")
		return nil
	}

	w := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintln(w, "NUMBER\tTITLE\tSCENES")
	for _, ch := range view.Chapters {
		fmt.Fprintf(w, "%s\t%s\t%s\n", ch.Number, ch.Title, sceneList(ch))
	}
	return w.Flush()
}

func runNavigate(cmd *cobra.Command, move func(*codex.Client, context.Context) (chapter.Position, error)) error {
	if err := requireNovel(); err != nil {
		return err
	}
	rt, err := openClient(cmd)
	if err != nil {
		return err
	}
	defer rt.client.Shutdown()

	pos, err := move(rt.client, cmd.Context())
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"index":   pos.Index,
			"created": pos.Created,
			"chapter": pos.Chapter,
		})
	}
	marker := ""
	if pos.Created {
		marker = " (new)"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "[%d] %s%s\n", pos.Index, pos.Chapter.Ref().Segment(), marker)
	fmt.Fprintf(cmd.OutOrStdout(), "    scenes: %s\n", sceneList(pos.Chapter))
	return nil
}

func sceneList(ch chapter.Chapter) string {
	if len(ch.Scenes) == 0 {
		return "-"
	}
	return strings.Join(ch.Scenes, ", ")
}
