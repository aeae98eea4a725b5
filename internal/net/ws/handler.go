package ws

import (
	"log"
	nethttp "net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"ghost-lap/server/internal/net/intake"
)

type HandlerConfig struct {
	Logger *log.Logger
}

// Handler upgrades record-feed connections and runs one session per
// connection. Each session's read loop is the producer side of the rollback
// queue: it only ever reaches the inbox push operations.
type Handler struct {
	intake   intake.Context
	logger   *log.Logger
	upgrader websocket.Upgrader
}

func NewHandler(ctx intake.Context, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		intake:   ctx,
		logger:   logger,
		upgrader: upgrader,
	}
}

func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	sessionID := r.URL.Query().Get("id")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", sessionID, err)
		return
	}

	session := newSession(sessionID, conn, h.intake, h.logger)
	session.run()
}
