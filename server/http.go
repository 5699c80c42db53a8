package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wmmnpr/pm5monitor-sub000/models"
)

// APIResponse is the envelope every REST endpoint answers with.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// newRouter builds the request/response surface. Every route dispatches into
// the same coordinator the websocket commands use, so both transports see
// identical state transitions.
func (s *GameServer) newRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/lobbies", func(r chi.Router) {
			r.Post("/", s.handleCreateLobbyHTTP)
			r.Get("/", s.handleListLobbiesHTTP)

			r.Route("/{lobbyID}", func(r chi.Router) {
				r.Get("/", s.handleGetLobbyHTTP)
				r.Post("/join", s.handleJoinLobbyHTTP)
				r.Post("/bots", s.handleAddBotHTTP)
				r.Post("/ready", s.handleSetReadyHTTP)
				r.Post("/leave", s.handleLeaveLobbyHTTP)
				r.Post("/start", s.handleStartRaceHTTP)
			})
		})

		r.Route("/races/{raceID}", func(r chi.Router) {
			r.Get("/", s.handleGetRaceHTTP)
			r.Post("/metrics", s.handleReportMetricsHTTP)
		})
	})

	return r
}

func (s *GameServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": s.sessionManager.Count(),
		"lobbies":  s.coordinator.ActiveLobbies(),
		"races":    s.coordinator.ActiveRaces(),
	})
}

func (s *GameServer) handleCreateLobbyHTTP(w http.ResponseWriter, r *http.Request) {
	var req models.CreateLobbyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, models.ErrInvalidPayload)
		return
	}

	l, err := s.coordinator.CreateLobby("", req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, APIResponse{Success: true, Data: l})
}

func (s *GameServer) handleListLobbiesHTTP(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	s.writeSuccess(w, s.coordinator.ListLobbies(userID))
}

func (s *GameServer) handleGetLobbyHTTP(w http.ResponseWriter, r *http.Request) {
	l, err := s.coordinator.GetLobby(chi.URLParam(r, "lobbyID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSuccess(w, l)
}

func (s *GameServer) handleJoinLobbyHTTP(w http.ResponseWriter, r *http.Request) {
	var req models.JoinLobbyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, models.ErrInvalidPayload)
		return
	}

	l, err := s.coordinator.JoinLobby(chi.URLParam(r, "lobbyID"), req.Participant)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSuccess(w, l)
}

func (s *GameServer) handleAddBotHTTP(w http.ResponseWriter, r *http.Request) {
	var req models.AddBotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, models.ErrInvalidPayload)
		return
	}

	l, bot, err := s.coordinator.AddBot(chi.URLParam(r, "lobbyID"), req.Difficulty)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSuccess(w, map[string]interface{}{"lobby": l, "bot": bot})
}

func (s *GameServer) handleSetReadyHTTP(w http.ResponseWriter, r *http.Request) {
	var req models.SetReadyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, models.ErrInvalidPayload)
		return
	}

	l, err := s.coordinator.SetReady(chi.URLParam(r, "lobbyID"), req.ParticipantID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSuccess(w, l)
}

func (s *GameServer) handleLeaveLobbyHTTP(w http.ResponseWriter, r *http.Request) {
	var req models.LeaveLobbyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, models.ErrInvalidPayload)
		return
	}

	l, err := s.coordinator.LeaveLobby(chi.URLParam(r, "lobbyID"), req.ParticipantID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSuccess(w, l)
}

func (s *GameServer) handleStartRaceHTTP(w http.ResponseWriter, r *http.Request) {
	race, err := s.coordinator.StartRace(chi.URLParam(r, "lobbyID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSuccess(w, race)
}

func (s *GameServer) handleGetRaceHTTP(w http.ResponseWriter, r *http.Request) {
	race, err := s.coordinator.GetRace(chi.URLParam(r, "raceID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSuccess(w, race)
}

func (s *GameServer) handleReportMetricsHTTP(w http.ResponseWriter, r *http.Request) {
	var req models.ReportMetricsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, models.ErrInvalidPayload)
		return
	}
	req.RaceID = chi.URLParam(r, "raceID")

	race, err := s.coordinator.ReportMetrics(req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSuccess(w, race)
}

func (s *GameServer) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *GameServer) writeSuccess(w http.ResponseWriter, data interface{}) {
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

func (s *GameServer) writeError(w http.ResponseWriter, err error) {
	s.writeJSON(w, httpStatus(err), APIResponse{
		Success: false,
		Error:   err.Error(),
		Code:    errorCode(err),
	})
}

// httpStatus maps a rejection to its HTTP status.
func httpStatus(err error) int {
	switch {
	case models.IsNotFound(err):
		return http.StatusNotFound
	case errorCode(err) == "invalid_request":
		return http.StatusBadRequest
	case errorCode(err) == "not_identified":
		return http.StatusUnauthorized
	case errorCode(err) == "internal_error":
		return http.StatusInternalServerError
	default:
		return http.StatusConflict
	}
}
