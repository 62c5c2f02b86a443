package object

import (
	"context"
	"errors"

	"github.com/b0bbywan/go-busbind/member"
)

// ErrNotImplemented is returned by the standard interfaces' local handlers.
// They are proxy-side declarations; serving them requires overriding the
// handlers and enabling serving in a derived table.
var ErrNotImplemented = errors.New("object: not implemented locally")

func notImplemented(ctx context.Context, recv any, args []any) (any, error) {
	return nil, ErrNotImplemented
}

var (
	peerTable = MustBuild(Spec{
		InterfaceName: "org.freedesktop.DBus.Peer",
		Methods: map[string]*member.Method{
			"ping": {Handler: notImplemented},
			"get_machine_id": {
				OutputSignature: "s",
				OutputNames:     []string{"machine_uuid"},
				Handler:         notImplemented,
			},
		},
	})

	introspectableTable = MustBuild(Spec{
		InterfaceName: "org.freedesktop.DBus.Introspectable",
		Methods: map[string]*member.Method{
			"introspect": {
				OutputSignature: "s",
				OutputNames:     []string{"xml_data"},
				Handler:         notImplemented,
			},
		},
	})

	commonTable = MustBuild(Spec{
		Extends: []*Table{peerTable, introspectableTable},
	})
)

// Peer returns the org.freedesktop.DBus.Peer declaration: Ping and
// GetMachineId, serving disabled.
func Peer() *Table { return peerTable }

// Introspectable returns the org.freedesktop.DBus.Introspectable
// declaration: Introspect, serving disabled.
func Introspectable() *Table { return introspectableTable }

// Common merges the two standard declarations; extend it to give a bindable
// type the members every bus object answers to.
func Common() *Table { return commonTable }
