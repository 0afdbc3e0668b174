// Command pollerdemo runs fixed demonstrations of the poller scheduler.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/joeycumines/go-poller"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "pollerdemo",
	Short:         "Demonstrations of a single-threaded, poll-based task scheduler",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "pollerdemo:", err)
		os.Exit(1)
	}
}

// newLogger returns the JSON logger shared by the demos.
func newLogger(w io.Writer) *logiface.Logger[logiface.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(w)),
		stumpy.L.WithLevel(logiface.LevelInformational),
	).Logger()
}

// newScheduler builds a scheduler logging to w, which reports faults on the
// same logger.
func newScheduler(w io.Writer) (*poller.Scheduler, *logiface.Logger[logiface.Event], error) {
	logger := newLogger(w)
	s, err := poller.New(
		poller.WithLogger(logger),
		poller.WithFaultReporter(func(err error) {
			logger.Alert().Err(err).Log("pollerdemo: scheduler fault")
		}),
	)
	return s, logger, err
}
