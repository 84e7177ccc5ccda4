package sqllite

import (
	"fmt"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/RealZimboGuy/graphflow/test/integration/common"
)

var portBase int32 = 9018 // starting port number (can be anything safe)

func nextPort() int {
	return int(atomic.AddInt32(&portBase, 1))
}

func runTestWithSetup(t *testing.T, testFunc func(t *testing.T, c *common.Client)) {
	port := nextPort()
	t.Setenv("HTTP_ADDR", ":"+strconv.Itoa(port))
	SetupSqlLiteTestInstance(t, filepath.Join(t.TempDir(), fmt.Sprintf("graphflow-test-%d.db", port)))
	testFunc(t, common.StartApp(t, port))
}

func SetupSqlLiteTestInstance(t *testing.T, filename string) {
	t.Setenv("GFLOW_DATABASE_TYPE", "SQLLITE")
	t.Setenv("GFLOW_DATABASE_SQLLITE_FILE_NAME", filename)
}
