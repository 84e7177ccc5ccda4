package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/RealZimboGuy/graphflow/internal/engine"
	"github.com/RealZimboGuy/graphflow/pkg/graphflow/domain"
	"github.com/RealZimboGuy/graphflow/pkg/graphflow/models"
)

const streamWriteTimeout = 10 * time.Second

// StreamController runs a graph over a websocket, pushing one message per
// executed step followed by the finished run.
type StreamController struct {
	*AuthController
	Graphs   GraphService
	upgrader websocket.Upgrader
}

func NewStreamController(graphs GraphService, auth *AuthController) *StreamController {
	return &StreamController{
		AuthController: auth,
		Graphs:         graphs,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (c *StreamController) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.WarnContext(r.Context(), "Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	var req models.RunGraphRequest
	if err := conn.ReadJSON(&req); err != nil {
		c.send(r.Context(), conn, models.StreamMessage{Type: models.StreamMessageError, Error: "invalid run request: " + err.Error()})
		return
	}
	if req.GraphID == "" {
		c.send(r.Context(), conn, models.StreamMessage{Type: models.StreamMessageError, Error: "graph_id is required"})
		return
	}

	obs := engine.ObserverFuncs{
		StepCompleted: func(ctx context.Context, run *domain.Run, entry domain.LogEntry) {
			c.send(ctx, conn, models.StreamMessage{Type: models.StreamMessageStep, Entry: &entry})
		},
	}
	run, err := c.Graphs.RunGraphObserved(r.Context(), req.GraphID, req.InitialState, req.MaxIterations, obs)
	if err != nil && run == nil {
		c.send(r.Context(), conn, models.StreamMessage{Type: models.StreamMessageError, Error: err.Error()})
		return
	}
	result := models.NewRunGraphResponse(run)
	c.send(r.Context(), conn, models.StreamMessage{Type: models.StreamMessageResult, Run: &result})

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(streamWriteTimeout))
}

func (c *StreamController) send(ctx context.Context, conn *websocket.Conn, msg models.StreamMessage) {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		slog.WarnContext(ctx, "Failed to write stream message", "type", msg.Type, "error", err)
	}
}
