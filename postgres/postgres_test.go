package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jt05610/ptnet"
	"github.com/jt05610/ptnet/historytest"
	"github.com/jt05610/ptnet/postgres"
	"github.com/stretchr/testify/require"
)

func TestHistory(t *testing.T) {
	dsn, ok := os.LookupEnv("PTNET_TEST_POSTGRES_DSN")
	if !ok {
		t.Skip("PTNET_TEST_POSTGRES_DSN not set")
	}
	s, err := postgres.Open(context.Background(), dsn, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	historytest.Run(t, func(t *testing.T) ptnet.History {
		return s.History(uuid.NewString())
	})
	historytest.RunIsolation(t, func(_ *testing.T, machine string) ptnet.History {
		return s.History(machine)
	})
}

func TestOpen_EmptyDSN(t *testing.T) {
	_, err := postgres.Open(context.Background(), "", nil)
	require.Error(t, err)
}
