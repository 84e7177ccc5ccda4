package engine

import (
	"strings"

	"github.com/google/uuid"
)

func NewGraphID() string { return newID("graph_") }
func NewRunID() string   { return newID("run_") }

func newID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}
