package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/shaunagostinho/oceagpx/internal/metrics"
	"github.com/shaunagostinho/oceagpx/internal/preview"
)

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade error: %v", err)
		return
	}

	client := &wsClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, 16),
	}

	s.clientsMu.Lock()
	s.clients[client] = struct{}{}
	total := len(s.clients)
	s.clientsMu.Unlock()
	metrics.PreviewClients.Inc()

	log.Printf("[ws] client %s connected (%d total)", client.id, total)

	// Greet with the client ID and current config
	hello := Frame{Type: FrameHello, ClientID: client.id, Stamp: time.Now().UnixMilli()}
	if data, err := s.cfg.ToJSON(); err == nil {
		hello.Config = data
	}
	s.sendTo(client, hello)

	// Writer goroutine
	go func() {
		defer conn.Close()
		for msg := range client.send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
	}()

	// Reader goroutine: each message selects the records to preview
	go func() {
		defer func() {
			s.clientsMu.Lock()
			delete(s.clients, client)
			total := len(s.clients)
			close(client.send)
			s.clientsMu.Unlock()
			metrics.PreviewClients.Dec()
			log.Printf("[ws] client %s disconnected (%d total)", client.id, total)
		}()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			s.sendTo(client, s.previewFrame(msg))
		}
	}()
}

func (s *Server) previewFrame(msg []byte) Frame {
	frame := Frame{Type: FramePreview, Stamp: time.Now().UnixMilli()}

	var sel selection
	if err := json.Unmarshal(msg, &sel); err != nil {
		frame.Type = FrameError
		frame.Error = "invalid request: " + err.Error()
		return frame
	}

	tracks, err := s.fetchTracks(s.ctx, sel.RecordIDs)
	if err != nil {
		frame.Type = FrameError
		frame.Error = err.Error()
		return frame
	}
	frame.Preview = preview.Tracks(tracks)
	return frame
}

// sendTo queues a frame for one client, dropping it if the client is slow.
func (s *Server) sendTo(client *wsClient, frame Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		log.Printf("[ws] marshal %s frame: %v", frame.Type, err)
		return
	}
	select {
	case client.send <- data:
	default:
		log.Printf("[ws] client %s too slow, dropped %s frame", client.id, frame.Type)
	}
}

func (s *Server) broadcast(frame Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for client := range s.clients {
		select {
		case client.send <- data:
		default:
			// Client too slow, skip
		}
	}
}

// closeClients disconnects every client; their reader goroutines clean up.
func (s *Server) closeClients() {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for client := range s.clients {
		client.conn.Close()
	}
}
