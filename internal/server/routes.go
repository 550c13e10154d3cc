package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/luca-ts/impostor-backend/internal"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	// Apply CORS middleware
	r.Use(s.corsMiddleware)

	r.HandleFunc("/", s.HelloHandler)

	r.HandleFunc("/healthz", s.HealthHandler)

	r.HandleFunc("/lobbies", s.ListLobbiesHandler)

	r.HandleFunc("/ws", s.HandleWebSocket)

	return r
}

// CORS middleware
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.cfg.AllowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")

		// If it's a websocket upgrade, skip further CORS checks
		if strings.ToLower(r.Header.Get("Upgrade")) == "websocket" {
			next.ServeHTTP(w, r)
			return
		}

		// Handle preflight OPTIONS requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) HelloHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{
		"message":  "impostor backend",
		"serverId": s.engine.ServerId(),
	}

	jsonResp, err := json.Marshal(resp)
	if err != nil {
		log.Printf("[Server.HelloHandler] error marshaling JSON: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(jsonResp)
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ListLobbiesHandler serves the public lobby directory over plain HTTP, for
// clients that want a lobby browser before opening a websocket. The snapshot
// is fetched through the engine loop so it never races an inbound action.
func (s *Server) ListLobbiesHandler(w http.ResponseWriter, r *http.Request) {
	done := make(chan internal.LobbyListData, 1)
	s.engine.Do(func() {
		done <- internal.LobbyListData{Lobbies: s.engine.PublicDirectory()}
	})
	data := <-done

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[Server.ListLobbiesHandler] error encoding response: %v", err)
	}
}
