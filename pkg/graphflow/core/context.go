package core

type ctxKey string

const (
	CtxKeyRunId    ctxKey = ctxKey("runId")
	CtxKeyUsername ctxKey = ctxKey("username")
)
