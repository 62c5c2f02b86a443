package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/b0bbywan/go-busbind/object"
)

func newPingCommand() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "ping <peer>",
		Short: "Ping a peer through org.freedesktop.DBus.Peer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBus()
			if err != nil {
				return err
			}
			proxy, err := object.NewProxy(object.Common(), b, args[0], path)
			if err != nil {
				return err
			}
			if _, err := proxy.Method("ping").Call(context.Background()); err != nil {
				return err
			}
			fmt.Println("pong")
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "/", "object path to ping")
	return cmd
}

func newIntrospectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "introspect <peer> <path>",
		Short: "Print a remote object's introspection XML",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBus()
			if err != nil {
				return err
			}
			proxy, err := object.NewProxy(object.Common(), b, args[0], args[1])
			if err != nil {
				return err
			}
			xml, err := proxy.Method("introspect").Call(context.Background())
			if err != nil {
				return err
			}
			fmt.Println(xml)
			return nil
		},
	}
	return cmd
}

func newGetPropertyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get-property <peer> <path> <interface> <property>",
		Short: "Read a remote property",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBus()
			if err != nil {
				return err
			}
			value, err := b.GetProperty(context.Background(), args[0], args[1], args[2], args[3])
			if err != nil {
				return err
			}
			fmt.Printf("%v\n", value)
			return nil
		},
	}
	return cmd
}
