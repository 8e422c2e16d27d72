package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bets-framework/ppets/pkg/ledger"
	"github.com/bets-framework/ppets/pkg/protocol"
	"github.com/bets-framework/ppets/pkg/transport"
	"github.com/bets-framework/ppets/pkg/transport/ws"
	"github.com/bets-framework/ppets/protocols/ppets"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommands(t *testing.T) {
	root := NewRootCmd()
	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"reader", "device"}, names)
}

func TestReaderParametersKeepDefaults(t *testing.T) {
	e, err := loadEnv(NewRootCmd())
	require.NoError(t, err)
	defer e.close()
	var buf bytes.Buffer
	e.log = zerolog.New(&buf)

	params := readerParameters(e, []string{"false", "2", "Z"})
	assert.Equal(t, ppets.DefaultParameters(), params)
	assert.Contains(t, buf.String(), "could not set parameters")

	buf.Reset()
	e.cfg.Reader.Parameters = []string{"true", "3"}
	params = readerParameters(e, nil)
	assert.True(t, params.SkipVerification)
	assert.Equal(t, 3, params.NumValidations)
	assert.Empty(t, buf.String())
}

// TestWebsocketSession runs a reader session behind a websocket handler, the way
// `ppets reader` does, against a device dialing in.
func TestWebsocketSession(t *testing.T) {
	root := NewRootCmd()
	e, err := loadEnv(root)
	require.NoError(t, err)
	defer e.close()
	e.log = zerolog.Nop()

	store := ledger.NewMemory()
	params, err := ppets.ParseParameters([]string{"false", "2"}, ppets.DefaultParameters())
	require.NoError(t, err)

	done := make(chan protocol.Result, 1)
	h := ws.NewHandler(func(ctx context.Context, conn transport.Conn) {
		c := ppets.NewReaderContext(e.provider, ppets.WithParameters(params), ppets.WithLedger(store))
		m, err := ppets.NewReader(e.variant, c, protocol.WithTimeout(5*time.Second))
		if err != nil {
			done <- protocol.Result{Status: protocol.EndFailure, Err: err}
			return
		}
		start := protocol.StartMessage()
		done <- m.Run(ctx, transport.WithInternal(conn, reportSink(e.log)), &start)
	}, e.log)
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	conn, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"))
	require.NoError(t, err)
	defer conn.Close()

	device, err := ppets.NewDevice(e.variant, ppets.NewDeviceContext(e.provider), protocol.WithTimeout(5*time.Second))
	require.NoError(t, err)
	res := device.Run(ctx, conn, nil)
	require.NoError(t, res.Err)
	assert.Equal(t, protocol.EndSuccess, res.Status)

	readerRes := <-done
	require.NoError(t, readerRes.Err)
	report, err := ppets.DecodeReport(readerRes.Payload)
	require.NoError(t, err)
	assert.Equal(t, []ppets.Outcome{ppets.OutcomeValid, ppets.OutcomeDoubleSpend}, report.Outcomes)
	assert.Equal(t, 1, store.Len())
}
