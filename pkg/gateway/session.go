package gateway

import "time"

const (
	TransportTCP       = "tcp"
	TransportWebSocket = "websocket"
)

// Session tracks a single client connection.
type Session struct {
	ID         string    `json:"id"`
	Transport  string    `json:"transport"`
	RemoteAddr string    `json:"remote_addr"`
	StartedAt  time.Time `json:"started_at"`
}
