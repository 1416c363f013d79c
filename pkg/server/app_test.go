package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockSim/pkg/config"
	xhttp "StockSim/pkg/http"
	applogger "StockSim/pkg/logger"
)

type recordingSink struct{ published int }

func (s *recordingSink) Publish(context.Context, string, []byte, interface{}) error {
	s.published++
	return nil
}

func TestRunContextShutsDownOnCancel(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)

	sink := &recordingSink{}
	digest := applogger.NewDigest(applogger.DigestConfig{Interval: time.Hour, Topic: "logs", Sink: sink})
	l := applogger.Nop()
	l.AttachDigest(digest)

	srv := xhttp.NewServer(nil,
		xhttp.WithHost("127.0.0.1"),
		xhttp.WithPort(0),
		xhttp.WithMetricsPath(""),
		xhttp.WithTimeouts(time.Second, time.Second, time.Second),
	)
	app := New(cfg, l, srv, nil, digest)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.RunContext(ctx) }()

	l.Warn("upstream slow")
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.Equal(t, 0, digest.Pending())
	assert.Equal(t, 1, sink.published)
}
