package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/codex/internal/watch"
)

var watchAttribute string

var watchCmd = &cobra.Command{
	Use:   "watch FILE",
	Short: "Save the contents of FILE whenever it settles",
	Long: "Watch FILE and save its contents under --attribute each time it stops " +
		"changing for the configured quiet period. Unchanged content is never " +
		"written twice.",
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchAttribute, "attribute", "a", "", "Attribute path below the novel title")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := requireNovel(); err != nil {
		return err
	}
	if watchAttribute == "" {
		return fmt.Errorf("--attribute is required")
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	rt, err := openClient(cmd)
	if err != nil {
		return err
	}
	defer rt.client.Shutdown()

	if err := rt.client.SetAttribute(watchAttribute); err != nil {
		return err
	}
	if err := rt.client.Start(ctx); err != nil {
		return err
	}

	source := watch.NewFileSource(args[0], func(text string) {
		if err := rt.client.SetData(text); err != nil {
			rt.logger.Warn("input rejected", "error", err)
		}
	}, rt.logger).WithPollInterval(time.Duration(rt.cfg.Save.PollInterval))

	rt.logger.Info("watching", "file", args[0], "novel", novelFlag, "attribute", watchAttribute)
	return source.Run(ctx)
}
