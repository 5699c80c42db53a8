package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/rpc"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wmmnpr/pm5monitor-sub000/broadcast"
	"github.com/wmmnpr/pm5monitor-sub000/config"
	"github.com/wmmnpr/pm5monitor-sub000/coordinator"
	"github.com/wmmnpr/pm5monitor-sub000/lobby"
	"github.com/wmmnpr/pm5monitor-sub000/logger"
	"github.com/wmmnpr/pm5monitor-sub000/models"
	"github.com/wmmnpr/pm5monitor-sub000/monitor"
	"github.com/wmmnpr/pm5monitor-sub000/network"
	"github.com/wmmnpr/pm5monitor-sub000/persistence"
	"github.com/wmmnpr/pm5monitor-sub000/race"
	race_rpc "github.com/wmmnpr/pm5monitor-sub000/rpc"
	"github.com/wmmnpr/pm5monitor-sub000/services"
	"github.com/wmmnpr/pm5monitor-sub000/session"
	"github.com/wmmnpr/pm5monitor-sub000/timer"
)

// GameServer ties the transports to the coordinator: websocket and REST in
// front, net/rpc and the monitor on the side, the janitor timer underneath.
type GameServer struct {
	cfg            *config.Config
	upgrader       websocket.Upgrader
	sessionManager *session.Manager
	registry       *lobby.Registry
	coordinator    *coordinator.Coordinator
	broadcaster    *broadcast.RoomBroadcaster
	profileService *services.ProfileService
	rpcServer      *race_rpc.Server
	monitor        *monitor.Monitor
	timers         *timer.TimerManager
	httpServer     *http.Server
	shutdownChan   chan struct{}
}

func NewGameServer(cfg *config.Config, db persistence.Database) *GameServer {
	s := &GameServer{
		cfg:            cfg,
		sessionManager: session.NewManager(),
		registry:       lobby.NewRegistry(nil),
		profileService: services.NewProfileService(db),
		monitor:        monitor.NewMonitor("raceserver"),
		timers:         timer.NewTimerManager(),
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	s.broadcaster = broadcast.NewRoomBroadcaster(s.sessionManager, s.registry, s.monitor)

	raceCfg := race.Config{
		TickInterval:     cfg.Race.TickInterval(),
		CountdownSeconds: cfg.Race.CountdownSeconds,
	}
	s.coordinator = coordinator.New(s.registry, s.broadcaster, s.broadcaster,
		services.NewSyncService(db), raceCfg, nil)

	rpcServer, err := race_rpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer

	statsService := race_rpc.NewStatsService(s.profileService, db)
	rpc.Register(statsService)

	return s
}

func (s *GameServer) Start() error {
	go s.rpcServer.Start()
	s.monitor.StartServer(s.cfg.Server.MonitorAddress)
	s.startJanitor()

	router := s.newRouter()
	router.HandleFunc("/ws", s.handleWebSocket)

	s.httpServer = &http.Server{
		Addr:    s.cfg.Server.HTTPAddress,
		Handler: router,
	}

	logger.Log.Infof("Race server listening on %s", s.cfg.Server.HTTPAddress)
	return s.httpServer.ListenAndServe()
}

func (s *GameServer) Shutdown() {
	close(s.shutdownChan)
	s.rpcServer.Stop()
	s.timers.Stop()
	s.coordinator.Shutdown()
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(ctx)
	}
}

// startJanitor schedules the periodic sweep of finished lobbies and keeps
// the activity gauges fresh.
func (s *GameServer) startJanitor() {
	interval := s.cfg.Lobby.SweepInterval()
	retention := s.cfg.Lobby.Retention()

	s.timers.AddTimer(interval, interval, func() {
		removed := s.coordinator.Sweep(retention)
		if removed > 0 {
			logger.Log.Infof("Janitor removed %d finished lobbies", removed)
		}
		s.monitor.SetActiveLobbies(s.coordinator.ActiveLobbies())
		s.monitor.SetActiveRaces(s.coordinator.ActiveRaces())
	})
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)
	s.monitor.IncOnlineSessions()

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	// A dropped connection only removes the session. The participant keeps
	// its lobby slot and may rejoin from a new connection.
	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.sessionManager.Remove(sess.GetID())
		s.monitor.DecOnlineSessions()
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(sess, packet)
		}
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	start := time.Now()
	s.monitor.IncCommandsReceived()
	defer func() {
		s.monitor.ObserveCommandLatency(time.Since(start))
	}()

	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		sess.LastActive = time.Now()
		return
	case network.MsgTypeIdentify:
		s.handleIdentify(sess, packet)
		return
	}

	if !sess.IsIdentified() {
		s.sendError(sess, models.ErrNotIdentified)
		return
	}

	switch packet.MsgID {
	case network.MsgTypeCreateLobby:
		s.handleCreateLobby(sess, packet)
	case network.MsgTypeJoinLobby:
		s.handleJoinLobby(sess, packet)
	case network.MsgTypeLeaveLobby:
		s.handleLeaveLobby(sess, packet)
	case network.MsgTypeAddBot:
		s.handleAddBot(sess, packet)
	case network.MsgTypeSetReady:
		s.handleSetReady(sess, packet)
	case network.MsgTypeRejoin:
		s.handleRejoin(sess, packet)
	case network.MsgTypeStartRace:
		s.handleStartRace(sess, packet)
	case network.MsgTypeListLobbies:
		s.handleListLobbies(sess)
	case network.MsgTypeReportMetrics:
		s.handleReportMetrics(sess, packet)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
	}
}

func (s *GameServer) handleIdentify(sess *session.Session, packet *network.Packet) {
	var req models.IdentifyRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil || req.UserID == "" {
		s.sendError(sess, models.ErrInvalidPayload)
		return
	}

	sess.Identify(req.UserID, req.DisplayName)
	logger.Log.Infof("Session %s identified as %s", sess.GetID(), req.UserID)

	// Best effort: record the profile so stats queries see the latest name.
	go func() {
		profile, err := s.profileService.FetchUserProfile(req.UserID, req.DisplayName)
		if err != nil {
			logger.Log.Warnf("Failed to load profile for %s: %v", req.UserID, err)
			return
		}
		if req.DisplayName != "" {
			profile.DisplayName = req.DisplayName
		}
		if err := s.profileService.SaveUserProfile(profile); err != nil {
			logger.Log.Warnf("Failed to save profile for %s: %v", req.UserID, err)
		}
	}()

	sess.SendJSON(network.MsgTypeIdentify, map[string]string{
		"session_id": sess.GetID(),
		"user_id":    req.UserID,
	})
	s.broadcaster.SendLobbyList(sess.GetID())
}

func (s *GameServer) handleCreateLobby(sess *session.Session, packet *network.Packet) {
	var req models.CreateLobbyRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, models.ErrInvalidPayload)
		return
	}
	if req.CreatorID == "" {
		req.CreatorID = sess.GetUserID()
	}

	if _, err := s.coordinator.CreateLobby(sess.GetID(), req); err != nil {
		s.sendError(sess, err)
	}
}

func (s *GameServer) handleJoinLobby(sess *session.Session, packet *network.Packet) {
	var req models.JoinLobbyRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, models.ErrInvalidPayload)
		return
	}
	if req.Participant.ID == "" {
		req.Participant.ID = sess.GetUserID()
	}
	if req.Participant.DisplayName == "" {
		req.Participant.DisplayName = sess.DisplayName
	}

	if _, err := s.coordinator.JoinLobby(req.LobbyID, req.Participant); err != nil {
		s.sendError(sess, err)
		return
	}
	if req.Participant.ID == sess.GetUserID() {
		sess.SetLobby(req.LobbyID)
	}
}

func (s *GameServer) handleLeaveLobby(sess *session.Session, packet *network.Packet) {
	var req models.LeaveLobbyRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, models.ErrInvalidPayload)
		return
	}
	if req.ParticipantID == "" {
		req.ParticipantID = sess.GetUserID()
	}

	if _, err := s.coordinator.LeaveLobby(req.LobbyID, req.ParticipantID); err != nil {
		s.sendError(sess, err)
		return
	}
	if req.ParticipantID == sess.GetUserID() {
		sess.SetLobby("")
	}
}

func (s *GameServer) handleAddBot(sess *session.Session, packet *network.Packet) {
	var req models.AddBotRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, models.ErrInvalidPayload)
		return
	}

	if _, _, err := s.coordinator.AddBot(req.LobbyID, req.Difficulty); err != nil {
		s.sendError(sess, err)
	}
}

func (s *GameServer) handleSetReady(sess *session.Session, packet *network.Packet) {
	var req models.SetReadyRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, models.ErrInvalidPayload)
		return
	}
	if req.ParticipantID == "" {
		req.ParticipantID = sess.GetUserID()
	}

	if _, err := s.coordinator.SetReady(req.LobbyID, req.ParticipantID); err != nil {
		s.sendError(sess, err)
	}
}

func (s *GameServer) handleRejoin(sess *session.Session, packet *network.Packet) {
	var req models.RejoinRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, models.ErrInvalidPayload)
		return
	}

	if _, _, err := s.coordinator.Rejoin(sess.GetID(), req.LobbyID); err != nil {
		s.sendError(sess, err)
		return
	}
	sess.SetLobby(req.LobbyID)
}

func (s *GameServer) handleStartRace(sess *session.Session, packet *network.Packet) {
	var req models.StartRaceRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, models.ErrInvalidPayload)
		return
	}

	if _, err := s.coordinator.StartRace(req.LobbyID); err != nil {
		s.sendError(sess, err)
	}
}

func (s *GameServer) handleListLobbies(sess *session.Session) {
	s.broadcaster.SendLobbyList(sess.GetID())
}

func (s *GameServer) handleReportMetrics(sess *session.Session, packet *network.Packet) {
	var req models.ReportMetricsRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, models.ErrInvalidPayload)
		return
	}
	if req.ParticipantID == "" {
		req.ParticipantID = sess.GetUserID()
	}

	if _, err := s.coordinator.ReportMetrics(req); err != nil {
		s.sendError(sess, err)
	}
}

func (s *GameServer) sendError(sess *session.Session, err error) {
	sess.SendJSON(network.MsgTypeError, models.ErrorReply{
		Code:    errorCode(err),
		Message: err.Error(),
	})
}

// errorCode maps a rejection to its stable wire identifier.
func errorCode(err error) string {
	switch {
	case errors.Is(err, models.ErrLobbyNotFound):
		return "lobby_not_found"
	case errors.Is(err, models.ErrRaceNotFound):
		return "race_not_found"
	case errors.Is(err, models.ErrParticipantNotFound):
		return "participant_not_found"
	case errors.Is(err, models.ErrLobbyFull):
		return "lobby_full"
	case errors.Is(err, models.ErrLobbyNotJoinable):
		return "lobby_not_joinable"
	case errors.Is(err, models.ErrLobbyNotStartable):
		return "lobby_not_startable"
	case errors.Is(err, models.ErrInvalidDistance),
		errors.Is(err, models.ErrInvalidCapacity),
		errors.Is(err, models.ErrInvalidEntryFee),
		errors.Is(err, models.ErrInvalidDifficulty),
		errors.Is(err, models.ErrInvalidPayload):
		return "invalid_request"
	case errors.Is(err, models.ErrNotIdentified):
		return "not_identified"
	default:
		return "internal_error"
	}
}
