package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"steelloop/internal/app"
)

var errWorkerRunning = errors.New("another worker holds the database lock")

func newWorkerCommand(ctx *commandContext) *cobra.Command {
	workerCmd := &cobra.Command{
		Use:   "worker",
		Short: "Run or drive the background job worker",
	}

	workerCmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Dispatch pipeline events until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return ctx.withApp(cmd, func(a *app.Application) error {
				lock := flock.New(a.Store().Path() + ".lock")
				ok, err := lock.TryLock()
				if err != nil {
					return fmt.Errorf("acquire lock: %w", err)
				}
				if !ok {
					return errWorkerRunning
				}
				defer func() {
					_ = lock.Unlock()
				}()
				return a.RunWorker(signalCtx)
			})
		},
	})

	workerCmd.AddCommand(&cobra.Command{
		Use:   "drain",
		Short: "Deliver pending events until the outbox is empty",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.Application) error {
				total := 0
				for {
					n, err := a.DispatchOnce(cmd.Context())
					total += n
					if err != nil {
						return err
					}
					if n == 0 {
						break
					}
				}
				return ctx.emit(cmd, map[string]int{"delivered": total}, func() string {
					return fmt.Sprintf("Delivered %d event(s)", total)
				})
			})
		},
	})

	return workerCmd
}
