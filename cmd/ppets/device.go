package main

import (
	"context"
	"fmt"

	"github.com/bets-framework/ppets/pkg/protocol"
	"github.com/bets-framework/ppets/pkg/transport/ws"
	"github.com/bets-framework/ppets/protocols/ppets"
	"github.com/spf13/cobra"
)

func deviceCmd() *cobra.Command {
	var connect string
	var attributes []string
	cmd := &cobra.Command{
		Use:   "device",
		Short: "Obtain and show a ticket at a reader",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			if connect != "" {
				e.cfg.Device.Connect = connect
			}
			if len(attributes) > 0 {
				e.cfg.Device.Attributes = attributes
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), e.timeout)
			conn, err := ws.Dial(ctx, e.cfg.Device.Connect)
			cancel()
			if err != nil {
				return err
			}
			defer conn.Close()

			c := ppets.NewDeviceContext(e.provider,
				ppets.WithLogger(e.log),
				ppets.WithAttributes(e.cfg.Device.Attributes...),
			)
			m, err := ppets.NewDevice(e.variant, c,
				protocol.WithLogger(e.log),
				protocol.WithTimeout(e.timeout),
			)
			if err != nil {
				return err
			}
			res := m.Run(cmd.Context(), conn, nil)
			if res.Err != nil {
				return res.Err
			}
			if res.Status != protocol.EndSuccess {
				return fmt.Errorf("session ended with %s", res.Status)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "session ended at stage %s\n", c.Stage())
			return nil
		},
	}
	cmd.Flags().StringVar(&connect, "connect", "", "websocket URL of the reader (default from config)")
	cmd.Flags().StringSliceVar(&attributes, "attribute", nil, "attribute disclosed by the user, repeatable")
	return cmd
}
