package ws

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"ghost-lap/server/internal/net/intake"
	"ghost-lap/server/internal/net/proto"
)

// session owns one websocket connection's read loop. It runs on the network
// goroutine and forwards validated records into the rollback inbox.
type session struct {
	id     string
	conn   *websocket.Conn
	intake intake.Context
	logger *log.Logger
}

func newSession(id string, conn *websocket.Conn, ctx intake.Context, logger *log.Logger) *session {
	return &session{id: id, conn: conn, intake: ctx, logger: logger}
}

func (s *session) run() {
	defer s.conn.Close()

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		msg, err := proto.DecodeClientMessage(payload)
		if err != nil {
			s.logger.Printf("discarding malformed message from %s: %v", s.id, err)
			continue
		}

		if msg.Type == proto.TypeHeartbeat {
			s.writeJSON(proto.NewHeartbeat(time.Now().UnixMilli(), msg.SentAt))
			continue
		}

		seq := uint64(0)
		if msg.Seq != nil {
			seq = *msg.Seq
		}

		staged, reason := intake.StageNetworkRecord(s.intake, msg)
		if !staged {
			s.logger.Printf("rejecting %s record from %s: %s", msg.Type, s.id, reason)
			if !s.writeJSON(proto.NewRecordReject(seq, reason, msg.Tick)) {
				return
			}
			continue
		}

		if !s.writeJSON(proto.NewRecordAck(seq, msg.Tick)) {
			return
		}
	}
}

func (s *session) writeJSON(payload any) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Printf("failed to encode reply for %s: %v", s.id, err)
		return true
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return false
	}
	return true
}
