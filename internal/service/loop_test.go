package service

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/neiam/apollos-kiosk/internal/config"
	"github.com/neiam/apollos-kiosk/internal/domain"
	"github.com/neiam/apollos-kiosk/internal/service/mocks"
)

func TestLoopWakeDrainsPromptly(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	configs := mocks.NewMockConfigStore(ctrl)
	configs.EXPECT().Save(gomock.Any()).Return(nil).Times(1)

	cfg := &config.Config{Layout: domain.NewLayout(), CurrentTheme: "Dark"}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	// The tick interval is far beyond the test deadline, so only the wake
	// signal can trigger the drain.
	var loop *Loop
	engine := NewEngine(cfg, configs, nil, func() { loop.Wake() }, logger)
	loop = NewLoop(engine, time.Hour, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Start(ctx) }()

	engine.DataMailbox().Push([]byte(`{"cal-family": [{"description": "Dentist", "date_start": "2026-09-02"}]}`))

	require.Eventually(t, func() bool {
		return engine.DataMailbox().Len() == 0
	}, 5*time.Second, 5*time.Millisecond)

	cancel()
	err := <-done
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 1, engine.Feeds().Len())
	assert.Equal(t, []string{"cal-family"}, cfg.Unassigned)
}

func TestLoopWakeNeverBlocks(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	loop := NewLoop(nil, time.Hour, logger)

	// Repeated wake-ups coalesce instead of blocking the producer.
	for i := 0; i < 100; i++ {
		loop.Wake()
	}
}
