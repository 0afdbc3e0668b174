package main

import (
	"fmt"
	"time"

	"github.com/joeycumines/go-poller"
	"github.com/spf13/cobra"
)

const counterTarget = 10_000_000

var counterCmd = &cobra.Command{
	Use:   "counter",
	Short: "Count to ten million, while two intervals observe the counter",
	Args:  cobra.NoArgs,
	RunE:  counterRun,
}

func init() {
	rootCmd.AddCommand(counterCmd)
}

func counterRun(cmd *cobra.Command, _ []string) error {
	s, logger, err := newScheduler(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	// shared by every task, only touched from within Run
	n := 5

	increment := poller.NewInterval(func() {
		n++
		fmt.Fprintf(out, "interval 1 increased n, n = %d\n", n)
	}, 10*time.Millisecond)

	report := poller.NewInterval(func() {
		fmt.Fprintf(out, "interval 2 observed n = %d\n", n)
	}, 10*time.Millisecond)

	count := poller.Func(func() poller.Outcome[int] {
		if n < counterTarget {
			n++
			return poller.Pending[int]()
		}
		return poller.Done(n)
	}).Then(func(v int) poller.Task {
		increment.Stop()
		report.Stop()
		logger.Info().
			Int("n", v).
			Uint64("increments", increment.Fired()).
			Uint64("reports", report.Fired()).
			Log("pollerdemo: counter finished")
		return nil
	})

	s.Schedule(count)
	s.Schedule(increment)
	s.Schedule(report)

	return s.Run(cmd.Context())
}
