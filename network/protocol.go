package network

// Message ids multiplexed over one connection. Commands flow client to
// server, events server to client; both carry a JSON body.
const (
	MsgTypeHeartbeat = 1
	MsgTypeIdentify  = 2

	// Commands
	MsgTypeCreateLobby   = 101
	MsgTypeJoinLobby     = 102
	MsgTypeLeaveLobby    = 103
	MsgTypeAddBot        = 104
	MsgTypeSetReady      = 105
	MsgTypeRejoin        = 106
	MsgTypeStartRace     = 107
	MsgTypeListLobbies   = 108
	MsgTypeReportMetrics = 201

	// Events
	MsgTypeLobbyCreated  = 301
	MsgTypeLobbyUpdated  = 302
	MsgTypeLobbyList     = 303
	MsgTypeCountdown     = 304
	MsgTypeRaceStarted   = 305
	MsgTypeRaceUpdate    = 306
	MsgTypeRaceCompleted = 307

	MsgTypeError = 400
)
