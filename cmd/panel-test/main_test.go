package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkcurrie/rpi-metro-display/pkg/ledmatrix"
	"github.com/fkcurrie/rpi-metro-display/pkg/ledmatrix/paneltest"
)

func smallConfig() ledmatrix.PanelConfig {
	cfg := ledmatrix.DefaultPanelConfig()
	cfg.Rows = 16
	cfg.ChainLength = 1
	return cfg
}

func TestRunTestCompletes(t *testing.T) {
	rec := paneltest.NewRecorder()

	n, err := runTest(context.Background(), smallConfig(), rec, nil, session{
		draw:     solid(ledmatrix.Green),
		interval: time.Millisecond,
		frames:   3,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, rec.Presents())
	assert.True(t, rec.Closed())
}

func TestRunTestReportsPresentFailure(t *testing.T) {
	rec := paneltest.NewRecorder()
	rec.FailPresent(1, nil)

	n, err := runTest(context.Background(), smallConfig(), rec, nil, session{
		draw:     solid(ledmatrix.Red),
		interval: time.Millisecond,
		frames:   3,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ledmatrix.ErrBackend))
	assert.Zero(t, n)
	assert.True(t, rec.Closed(), "the panel is closed before the error is reported")
}

func TestRunTestReportsInitFailure(t *testing.T) {
	rec := paneltest.NewRecorder()
	rec.FailInitialize(errors.New("no gpiochip0"))

	_, err := runTest(context.Background(), smallConfig(), rec, nil, session{
		draw:     solid(ledmatrix.Red),
		interval: time.Millisecond,
	})
	assert.ErrorContains(t, err, "no gpiochip0")
	assert.Zero(t, rec.Presents())
}

func TestRunTestQuit(t *testing.T) {
	rec := paneltest.NewRecorder()
	quit := make(chan struct{})
	close(quit)

	_, err := runTest(context.Background(), smallConfig(), rec, quit, session{
		draw:     solid(ledmatrix.Blue),
		interval: 10 * time.Millisecond,
	})
	assert.NoError(t, err)
	assert.True(t, rec.Closed())
}
