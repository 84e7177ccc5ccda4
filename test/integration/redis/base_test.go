package redis

import (
	"context"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/RealZimboGuy/graphflow/test/integration/common"
)

var portBase int32 = 9198

func nextPort() int {
	return int(atomic.AddInt32(&portBase, 1))
}

func runTestWithSetup(t *testing.T, testFunc func(t *testing.T, c *common.Client)) {
	if testing.Short() {
		t.Skip("redis container test skipped in short mode")
	}
	port := nextPort()
	t.Setenv("HTTP_ADDR", ":"+strconv.Itoa(port))
	t.Setenv("GFLOW_DATABASE_TYPE", "REDIS")
	t.Setenv("GFLOW_REDIS_URL", "redis://"+SetupRedisTestInstance(t)+"/0")
	t.Setenv("GFLOW_REDIS_PREFIX", "it:")
	testFunc(t, common.StartApp(t, port))
}

// SetupRedisTestInstance returns the host:port of a fresh redis container.
func SetupRedisTestInstance(t *testing.T) string {
	ctx := context.Background()
	redisC, err := testcontainers.Run(
		ctx, "redis:7-alpine",
		testcontainers.WithExposedPorts("6379/tcp"),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("6379/tcp"),
			wait.ForLog("Ready to accept connections"),
		),
	)
	testcontainers.CleanupContainer(t, redisC)
	require.NoError(t, err, "error starting redis container")

	endpoint, err := redisC.Endpoint(ctx, "")
	require.NoError(t, err)
	return endpoint
}
