package main

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/rpcclient/logger"
	"github.com/kbukum/rpcclient/rpc"
)

var streamTimeout time.Duration

var streamCmd = &cobra.Command{
	Use:   "stream PATH [key=value...]",
	Short: "Follow /sse/PATH and print one JSON line per event until interrupted",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := parseParams(args[1:])
		if err != nil {
			return err
		}
		client, err := newClient()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log := logger.WithComponent("cli")
		out := cmd.OutOrStdout()
		var mu sync.Mutex
		onData := func(v any) {
			mu.Lock()
			defer mu.Unlock()
			if err := printJSON(out, v, false); err != nil {
				log.Warn("write failed", logger.Fields(logger.FieldError, err.Error()))
			}
		}
		onError := func(err error) {
			log.Warn("skipping event", logger.Fields(logger.FieldError, err.Error()))
		}

		s := client.OpenStream(args[0], onData, params, streamTimeout, rpc.WithErrorHandler(onError))
		log.Info("streaming", logger.Fields(logger.FieldSessionID, s.ID(), logger.FieldURL, client.StreamURL(args[0], params)))

		<-ctx.Done()
		return s.Close()
	},
}

func init() {
	streamCmd.Flags().DurationVarP(&streamTimeout, "timeout", "t", 0, "reconnect after this long without events (default: client.stream_timeout)")
}
