package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsTranscript is one partial transcript pushed to the client
type wsTranscript struct {
	Type  string `json:"type"` // "transcript", "error", or "done"
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// transcribeWSHandler bridges a browser websocket to the live
// transcription backend. The client sends binary audio frames and a
// text frame {"type":"stop"} to end the session; partial transcripts
// flow back as JSON text frames.
func (s *Server) transcribeWSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.deps.STT == nil {
			writeError(w, http.StatusServiceUnavailable, "no speech-to-text provider configured")
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("websocket upgrade: %v", err)
			return
		}
		defer conn.Close()

		audio := make(chan []byte)
		stream, err := s.deps.STT.TranscribeStream(r.Context(), audio)
		if err != nil {
			_ = conn.WriteJSON(wsTranscript{Type: "error", Error: err.Error()})
			return
		}
		defer stream.Cancel()

		// Reader: client frames in, audio chunks up
		go func() {
			defer close(audio)
			for {
				msgType, data, err := conn.ReadMessage()
				if err != nil {
					return
				}
				switch msgType {
				case websocket.BinaryMessage:
					select {
					case audio <- data:
					case <-r.Context().Done():
						return
					}
				case websocket.TextMessage:
					var ctl struct {
						Type string `json:"type"`
					}
					if json.Unmarshal(data, &ctl) == nil && ctl.Type == "stop" {
						return
					}
				}
			}
		}()

		for fragment := range stream.Fragments() {
			if err := conn.WriteJSON(wsTranscript{Type: "transcript", Text: fragment}); err != nil {
				return
			}
		}

		if err := stream.Err(); err != nil {
			_ = conn.WriteJSON(wsTranscript{Type: "error", Error: err.Error()})
			return
		}
		_ = conn.WriteJSON(wsTranscript{Type: "done"})
	}
}
