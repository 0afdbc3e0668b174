package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/joeycumines/go-poller"
	"github.com/spf13/cobra"
)

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Compose tasks with then, catch and block",
	Args:  cobra.NoArgs,
	RunE:  chainRun,
}

func init() {
	rootCmd.AddCommand(chainCmd)
}

var errFlaky = errors.New("flaky step failed")

func chainRun(cmd *cobra.Command, _ []string) error {
	s, _, err := newScheduler(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	// a blocking task runs to completion before anything else is polled
	s.Schedule(poller.NewPromise(0, func(i *int) poller.Outcome[int] {
		if *i++; *i < 3 {
			return poller.Pending[int]()
		}
		return poller.Done(*i)
	}).Block().Then(func(v int) poller.Task {
		fmt.Fprintf(out, "blocking task resolved after %d polls\n", v)
		return nil
	}))

	s.Schedule(poller.Reject[string](errFlaky).
		Catch(func(err error) poller.Task {
			fmt.Fprintf(out, "recovered from %q, retrying\n", err)
			return poller.Resolve("second attempt").Then(func(v string) poller.Task {
				fmt.Fprintln(out, v)
				return nil
			})
		}))

	s.Schedule(poller.Then(poller.NewTimeout(func() {
		fmt.Fprintln(out, "timeout fired")
	}, 50*time.Millisecond), func(any) poller.Task {
		return poller.Resolve("after timeout").Then(func(v string) poller.Task {
			fmt.Fprintln(out, v)
			return nil
		})
	}))

	abort, deadline := poller.AbortTimeout(20 * time.Millisecond)
	s.Schedule(deadline)
	s.Schedule(poller.NewInterval(func() {
		fmt.Fprintln(out, "interval tick")
	}, time.Millisecond, poller.WithSignal(abort.Signal())))

	return s.Run(cmd.Context())
}
