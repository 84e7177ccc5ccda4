package postgres

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

var portBase int32 = 9098 // starting port number (can be anything safe)

func nextPort() int {
	return int(atomic.AddInt32(&portBase, 1))
}

func runTestWithSetup(t *testing.T, testFunc func(t *testing.T, c *common.Client)) {
	if testing.Short() {
		t.Skip("postgres container test skipped in short mode")
	}
	port := nextPort()
	t.Setenv("HTTP_ADDR", ":"+strconv.Itoa(port))
	container, dsn := SetupPostgresTestInstance(t, t.Context())
	defer container.Terminate(context.Background())
	t.Setenv("GFLOW_DATABASE_TYPE", "POSTGRES")
	t.Setenv("GFLOW_DATABASE_URL", dsn)
	testFunc(t, common.StartApp(t, port))
}

func SetupPostgresTestInstance(t *testing.T, ctx context.Context) (testcontainers.Container, string) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_USER":     "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp"),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "error starting postgres container")

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := "postgres://test:test@" + host + ":" + port.Port() + "/testdb?sslmode=disable"
	return container, dsn
}
