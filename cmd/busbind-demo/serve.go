package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"github.com/b0bbywan/go-busbind/bus"
	"github.com/b0bbywan/go-busbind/logger"
)

func newServeCommand() *cobra.Command {
	var busName string
	var path string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the demo greeter object until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			b, err := openBus()
			if err != nil {
				return err
			}
			if conn, ok := b.(*bus.Conn); ok {
				reply, err := conn.Raw().RequestName(busName, dbus.NameFlagDoNotQueue)
				if err != nil {
					return err
				}
				if reply != dbus.RequestNameReplyPrimaryOwner {
					return fmt.Errorf("bus name %s already taken", busName)
				}
			}

			d := newDemo()
			if err := d.StartServing(ctx, b, path); err != nil {
				return err
			}
			logger.Info("[demo] serving %s at %s", busName, path)

			// Readiness for Type=notify units; a no-op outside systemd.
			if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
				logger.Warn("[demo] sd_notify failed: %v", err)
			}

			<-ctx.Done()
			logger.Info("[demo] shutting down")
			return nil
		},
	}

	cmd.Flags().StringVar(&busName, "name", demoBusName, "bus name to claim")
	cmd.Flags().StringVar(&path, "path", demoPath, "object path to serve at")
	return cmd
}
