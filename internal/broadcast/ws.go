package broadcast

import (
	"encoding/json"
	"net/http"

	"golang.org/x/net/websocket"
)

// command is a pull request sent by a subscriber over the socket. Requests
// carry a "command" key, distinguishing them from the "type"-keyed frames the
// hub pushes.
type command struct {
	Command    string `json:"command"`
	LocationID *int   `json:"location_id,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	EmployeeID string `json:"employee_id,omitempty"`
}

// Handler returns the WebSocket endpoint. Each connection gets the init
// snapshot, then live scan events interleaved with replies to its pull
// commands. Malformed frames are ignored; the connection closes only when
// the client goes away.
func (h *Hub) Handler() http.Handler {
	return websocket.Handler(func(conn *websocket.Conn) {
		ctx := conn.Request().Context()

		sub, err := h.register(ctx, conn)
		if err != nil {
			h.logger.Warn("subscriber handshake failed", "error", err)
			conn.Close()
			return
		}
		defer func() {
			h.unregister(sub)
			conn.Close()
		}()

		for {
			var raw string
			if err := websocket.Message.Receive(conn, &raw); err != nil {
				return
			}

			var cmd command
			if err := json.Unmarshal([]byte(raw), &cmd); err != nil {
				h.logger.Debug("ignoring malformed frame", "error", err)
				continue
			}
			h.handleCommand(sub, cmd)
		}
	})
}

func (h *Hub) handleCommand(sub *subscriber, cmd command) {
	ctx := sub.conn.Request().Context()

	var (
		replyType string
		payload   any
		err       error
	)

	switch cmd.Command {
	case "get_active":
		replyType = "active_employees"
		payload, err = h.source.ListActive(ctx, cmd.LocationID)
	case "get_logs":
		replyType = "attendance_logs"
		payload, err = h.source.ListLogs(ctx, cmd.Limit, cmd.EmployeeID)
	case "get_stats":
		replyType = "stats"
		payload, err = h.source.TodayStats(ctx)
	case "get_employees":
		replyType = "employees"
		payload, err = h.source.ListEmployees(ctx)
	case "get_locations":
		replyType = "locations"
		payload, err = h.source.ListLocations(ctx)
	default:
		h.logger.Debug("ignoring unknown command", "command", cmd.Command)
		return
	}

	if err != nil {
		h.logger.Warn("command query failed", "command", cmd.Command, "error", err)
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("command reply encode failed", "command", cmd.Command, "error", err)
		return
	}
	if err := sub.send(envelope{Type: replyType, Data: data}); err != nil {
		h.unregister(sub)
	}
}
