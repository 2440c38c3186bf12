package cmd

import (
	"fmt"
	"log/slog"

	"github.com/gophertribe/devtool/test"
	"github.com/spf13/cobra"
)

type task struct {
	use   string
	short string
	run   func() error
}

var qualityTasks = []task{
	{use: "test", short: "Run unit tests", run: func() error { return test.Test() }},
	{use: "lint", short: "Run linting", run: func() error { return test.Lint() }},
	{use: "integration-test", short: "Run integration testing", run: func() error { return test.Integ() }},
}

// QualityCmds returns one command per test/lint task.
func QualityCmds() []*cobra.Command {
	cmds := make([]*cobra.Command, 0, len(qualityTasks))
	for _, t := range qualityTasks {
		cmds = append(cmds, taskCmd(t))
	}
	return cmds
}

func taskCmd(t task) *cobra.Command {
	return &cobra.Command{
		Use:   t.use,
		Short: t.short,
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Debug("running task", "task", t.use)
			if err := t.run(); err != nil {
				return fmt.Errorf("failed to run %s: %w", t.use, err)
			}
			return nil
		},
	}
}
