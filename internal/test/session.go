package test

import (
	"context"

	"github.com/bets-framework/ppets/pkg/protocol"
	"golang.org/x/sync/errgroup"
)

// Results holds the outcome of both peers.
type Results struct {
	Reader protocol.Result
	Device protocol.Result
}

// Session runs reader and device over n until both have ended.
// Each end is closed as soon as its machine returns, so the other one does not
// wait for a peer which is gone.
func Session[C any](ctx context.Context, n *Network, reader, device *protocol.Machine[C]) Results {
	var (
		res   Results
		group errgroup.Group
	)
	group.Go(func() error {
		start := protocol.StartMessage()
		res.Reader = reader.Run(ctx, n.Reader, &start)
		return n.Reader.Close()
	})
	group.Go(func() error {
		res.Device = device.Run(ctx, n.Device, nil)
		return n.Device.Close()
	})
	_ = group.Wait()
	return res
}
