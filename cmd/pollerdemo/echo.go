//go:build linux || darwin

package main

import (
	"context"
	"time"

	"github.com/joeycumines/go-poller"
	"github.com/joeycumines/go-poller/httpecho"
	"github.com/joeycumines/go-poller/iotask"
	"github.com/spf13/cobra"
)

const echoAddr = "127.0.0.1:8080"

var echoCmd = &cobra.Command{
	Use:   "echo",
	Short: "Serve HTTP echo responses on " + echoAddr + ", until interrupted",
	Args:  cobra.NoArgs,
	RunE:  echoRun,
}

func init() {
	rootCmd.AddCommand(echoCmd)
}

func echoRun(cmd *cobra.Command, _ []string) error {
	s, logger, err := newScheduler(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	controller := poller.NewAbortController()
	defer context.AfterFunc(ctx, func() { controller.Abort(context.Cause(ctx)) })()

	connector, err := iotask.Listen(echoAddr,
		iotask.WithLogger(logger),
		iotask.WithSignal(controller.Signal()),
		iotask.WithOnReceive(httpecho.Handle),
		iotask.WithPeerRateLimit(map[time.Duration]int{
			time.Second: 50,
			time.Minute: 1000,
		}),
	)
	if err != nil {
		return err
	}
	defer connector.Close()

	s.Schedule(connector)

	// the signal is observed by the connector, which drops out as cancelled
	return s.Run(context.WithoutCancel(ctx))
}
