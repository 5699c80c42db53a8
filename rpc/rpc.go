package rpc

import (
	"net"
	"net/rpc"

	"github.com/wmmnpr/pm5monitor-sub000/logger"
	"github.com/wmmnpr/pm5monitor-sub000/models"
	"github.com/wmmnpr/pm5monitor-sub000/persistence"
	"github.com/wmmnpr/pm5monitor-sub000/services"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server. Services are registered by the
// caller before Start.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Check if the error is due to the listener being closed.
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// StatsService exposes profile and race-record lookups over net/rpc for
// operator tooling.
type StatsService struct {
	profileService *services.ProfileService
	db             persistence.Database
}

func NewStatsService(ps *services.ProfileService, db persistence.Database) *StatsService {
	return &StatsService{profileService: ps, db: db}
}

// GetProfileWithStats follows the net/rpc signature: exported method,
// exported arguments, second argument is a pointer, return type is error.
type GetProfileArgs struct {
	UserID string
}

type GetProfileReply struct {
	Data map[string]interface{}
}

func (ss *StatsService) GetProfileWithStats(args *GetProfileArgs, reply *GetProfileReply) error {
	data, err := ss.profileService.GetProfileWithStats(args.UserID)
	if err != nil {
		return err
	}
	reply.Data = data
	return nil
}

type GetRaceArgs struct {
	RaceID string
}

type GetRaceReply struct {
	Record *models.RaceRecord
}

// GetRaceRecord returns the stored summary of a completed race.
func (ss *StatsService) GetRaceRecord(args *GetRaceArgs, reply *GetRaceReply) error {
	record, err := ss.db.LoadRaceRecord(args.RaceID)
	if err != nil {
		return err
	}
	reply.Record = record
	return nil
}
