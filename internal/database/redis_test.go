package database

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestConnectRedis(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client, err := ConnectRedis(context.Background(), "redis://"+server.Addr()+"/0")
	require.NoError(t, err)
	require.NoError(t, client.Set(context.Background(), "ping", "1", 0).Err())
	require.NoError(t, client.Close())
}

func TestConnectRedisErrors(t *testing.T) {
	_, err := ConnectRedis(context.Background(), "")
	require.Error(t, err)

	_, err = ConnectRedis(context.Background(), "not-a-url")
	require.Error(t, err)

	server, err := miniredis.Run()
	require.NoError(t, err)
	addr := server.Addr()
	server.Close()

	_, err = ConnectRedis(context.Background(), "redis://"+addr)
	require.ErrorContains(t, err, "ping redis")
}
