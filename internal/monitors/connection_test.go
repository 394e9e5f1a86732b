package monitors

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptimer-dev/uptimer/internal/types"
)

func closedPort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	return port
}

func TestCheckRedisRefused(t *testing.T) {
	port := closedPort(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := CheckRedis(ctx, "redis://127.0.0.1:"+strconv.Itoa(port))

	var probeErr *ProbeError
	require.ErrorAs(t, err, &probeErr)
	assert.Equal(t, types.ConnectionRefused, probeErr.Status)
	assert.Equal(t, 500, probeErr.Code)
	assert.NotEmpty(t, probeErr.Message)
}

func TestCheckRedisInvalidURL(t *testing.T) {
	_, err := CheckRedis(context.Background(), "http://not-redis")

	var probeErr *ProbeError
	require.ErrorAs(t, err, &probeErr)
	assert.Equal(t, 500, probeErr.Code)
}

func TestCheckMongoRefused(t *testing.T) {
	port := closedPort(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := CheckMongo(ctx, "mongodb://127.0.0.1:"+strconv.Itoa(port)+"/?connectTimeoutMS=200")

	var probeErr *ProbeError
	require.ErrorAs(t, err, &probeErr)
	assert.Equal(t, types.ConnectionRefused, probeErr.Status)
	assert.Equal(t, 500, probeErr.Code)
	assert.Equal(t, "MongoDB server down", probeErr.Message)
}

func TestCheckDatabaseUnsupported(t *testing.T) {
	_, err := CheckDatabase(context.Background(), &types.DatabaseConfig{Type: "oracle"})

	var probeErr *ProbeError
	require.ErrorAs(t, err, &probeErr)
	assert.Equal(t, types.ConnectionRefused, probeErr.Status)
}

func TestCheckDatabaseRefused(t *testing.T) {
	port := closedPort(t)

	_, err := CheckDatabase(context.Background(), &types.DatabaseConfig{
		Type:     types.Postgres,
		Host:     "127.0.0.1",
		Port:     port,
		Database: "app",
		Username: "app",
		Password: "secret",
		Timeout:  2,
	})

	var probeErr *ProbeError
	require.ErrorAs(t, err, &probeErr)
	assert.Equal(t, 500, probeErr.Code)
}
