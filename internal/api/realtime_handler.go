package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/phrazzld/taskhub-api/internal/domain"
	"github.com/phrazzld/taskhub-api/internal/events"
	"github.com/phrazzld/taskhub-api/internal/platform/logger"
	"github.com/phrazzld/taskhub-api/internal/service"
	"github.com/tidwall/gjson"
)

// Control frame types exchanged on the realtime connection.
const (
	frameJoin   = "join"
	frameLeave  = "leave"
	framePing   = "ping"
	framePong   = "pong"
	frameJoined = "joined"
	frameLeft   = "left"
	frameError  = "error"
)

// maxControlFrameBytes bounds client frames; clients only send control frames.
const maxControlFrameBytes = 4096

// controlReply answers a client control frame.
type controlReply struct {
	Type    string `json:"type"`
	TaskID  string `json:"task_id,omitempty"`
	Message string `json:"message,omitempty"`
}

// RealtimeHandler upgrades authenticated requests to websocket connections
// registered with the hub. Server-pushed frames are serialized events.
type RealtimeHandler struct {
	hub            *events.Hub
	tasks          service.TaskService
	originPatterns []string
	logger         *slog.Logger
}

// NewRealtimeHandler creates a RealtimeHandler. originPatterns lists the
// extra origins allowed to connect; same-origin requests are always allowed.
func NewRealtimeHandler(
	hub *events.Hub,
	tasks service.TaskService,
	originPatterns []string,
	logger *slog.Logger,
) *RealtimeHandler {
	if hub == nil || tasks == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("hub and task service are required for RealtimeHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RealtimeHandler{
		hub:            hub,
		tasks:          tasks,
		originPatterns: originPatterns,
		logger:         logger.With(slog.String("component", "realtime_handler")),
	}
}

// wsSender adapts a websocket connection to events.Sender.
type wsSender struct {
	conn *websocket.Conn
}

// Send implements events.Sender.
func (s *wsSender) Send(ctx context.Context, data []byte) error {
	return s.conn.Write(ctx, websocket.MessageText, data)
}

// ServeWS handles GET /hubs/tasks.
func (h *RealtimeHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		log.Warn("websocket accept failed", slog.String("error", err.Error()))
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxControlFrameBytes)

	connID := uuid.NewString()
	log = log.With(slog.String("connection_id", connID))

	if err := h.hub.Subscribe(connID, userID, &wsSender{conn: conn}); err != nil {
		if errors.Is(err, events.ErrHubClosed) {
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		}
		log.Error("failed to register connection", slog.String("error", err.Error()))
		_ = conn.Close(websocket.StatusInternalError, "registration failed")
		return
	}
	defer h.hub.Unsubscribe(connID)

	log.Info("realtime connection opened")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		select {
		case <-h.hub.Done():
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		case <-ctx.Done():
		}
	}()

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				log.Info("realtime connection closed")
			} else {
				log.Debug("realtime connection ended", slog.String("error", err.Error()))
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		reply := h.handleControl(ctx, connID, userID, data)
		payload, err := json.Marshal(reply)
		if err != nil {
			log.Error("failed to encode control reply", slog.String("error", err.Error()))
			continue
		}
		if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
			log.Debug("failed to write control reply", slog.String("error", err.Error()))
			return
		}
	}
}

// handleControl applies one client control frame. Joining a task topic
// requires that the caller can read the task.
func (h *RealtimeHandler) handleControl(
	ctx context.Context,
	connID string,
	userID uuid.UUID,
	data []byte,
) controlReply {
	log := logger.FromContextOrDefault(ctx, h.logger)

	if !gjson.ValidBytes(data) {
		return controlReply{Type: frameError, Message: "malformed frame"}
	}
	frame := gjson.ParseBytes(data)

	switch frameType := frame.Get("type").String(); frameType {
	case framePing:
		return controlReply{Type: framePong}

	case frameJoin, frameLeave:
		raw := frame.Get("task_id").String()
		taskID, err := uuid.Parse(raw)
		if err != nil {
			return controlReply{Type: frameError, TaskID: raw, Message: "invalid task id"}
		}

		topic := events.TaskTopic(taskID)
		if frameType == frameLeave {
			if err := h.hub.LeaveTopic(connID, topic); err != nil {
				return controlReply{Type: frameError, TaskID: raw, Message: "connection closed"}
			}
			return controlReply{Type: frameLeft, TaskID: taskID.String()}
		}

		if _, err := h.tasks.Get(ctx, taskID, userID); err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				log.Error("failed to authorize topic join",
					slog.String("task_id", taskID.String()),
					slog.String("error", err.Error()))
			}
			return controlReply{Type: frameError, TaskID: taskID.String(), Message: "task not found"}
		}
		if err := h.hub.JoinTopic(connID, topic); err != nil {
			return controlReply{Type: frameError, TaskID: raw, Message: "connection closed"}
		}
		log.Debug("joined task topic", slog.String("task_id", taskID.String()))
		return controlReply{Type: frameJoined, TaskID: taskID.String()}

	default:
		return controlReply{Type: frameError, Message: "unknown frame type"}
	}
}
