package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/codex/internal/snapshot"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the chapter view of a novel as JSON",
	Long: "Export the chapter view of a novel as JSON. With export storage " +
		"configured the document is uploaded and a download URL is printed; " +
		"otherwise it is written to --out or stdout.",
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Write the document to this file")
}

func runExport(cmd *cobra.Command, args []string) error {
	if err := requireNovel(); err != nil {
		return err
	}
	rt, err := openClient(cmd)
	if err != nil {
		return err
	}
	defer rt.client.Shutdown()

	uploader, err := snapshot.NewUploader(rt.cfg.Export)
	if err != nil {
		return err
	}

	view, err := rt.client.Chapters(cmd.Context())
	if err != nil {
		return err
	}
	res, err := snapshot.NewExporter(uploader).Export(cmd.Context(), view)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	if exportOut != "" {
		if err := os.WriteFile(exportOut, res.Body, 0644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
	}

	switch {
	case res.URL != "":
		fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s\n%s\n(expires %s)\n",
			res.Key, res.URL, res.Expiry.Format("2006-01-02 15:04"))
	case exportOut == "":
		_, err = cmd.OutOrStdout().Write(res.Body)
		if err == nil {
			fmt.Fprintln(cmd.OutOrStdout())
		}
		return err
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", exportOut)
	}
	return nil
}
