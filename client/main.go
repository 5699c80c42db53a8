package main

import (
	"encoding/binary"
	"encoding/json"
	"log"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wmmnpr/pm5monitor-sub000/models"
	"github.com/wmmnpr/pm5monitor-sub000/network"
)

// Scripted demo client: identifies, opens a lobby, joins it, fills the
// roster with a bot, starts the race and reports rowing telemetry at 2Hz
// until the race completes.

// send formats and sends a message to the WebSocket server.
func send(c *websocket.Conn, msgID uint16, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	packet := make([]byte, 4+len(data))
	binary.BigEndian.PutUint16(packet[0:2], msgID)
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(data)))
	copy(packet[4:], data)

	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func main() {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: "localhost:8080", Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})
	lobbyCh := make(chan models.Lobby, 1)
	raceCh := make(chan models.Race, 1)
	completedCh := make(chan struct{}, 1)

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			if len(message) < 4 {
				log.Printf("Received invalid packet of size %d", len(message))
				continue
			}
			msgID := binary.BigEndian.Uint16(message[0:2])
			data := message[4:]
			log.Printf("<- RECV (ID: %d): %s", msgID, string(data))

			switch msgID {
			case network.MsgTypeLobbyCreated:
				var l models.Lobby
				if json.Unmarshal(data, &l) == nil {
					select {
					case lobbyCh <- l:
					default:
					}
				}
			case network.MsgTypeRaceStarted:
				var r models.Race
				if json.Unmarshal(data, &r) == nil {
					select {
					case raceCh <- r:
					default:
					}
				}
			case network.MsgTypeRaceCompleted:
				select {
				case completedCh <- struct{}{}:
				default:
				}
			}
		}
	}()

	userID := "demo-rower"

	log.Println("Identifying...")
	if err := send(c, network.MsgTypeIdentify, models.IdentifyRequest{
		UserID:      userID,
		DisplayName: "Demo Rower",
	}); err != nil {
		log.Fatalf("Write error: %v", err)
	}

	log.Println("Creating lobby...")
	if err := send(c, network.MsgTypeCreateLobby, models.CreateLobbyRequest{
		RaceDistanceMeters: 500,
		EntryFee:           "0",
		MaxParticipants:    4,
		MinParticipants:    2,
	}); err != nil {
		log.Fatalf("Write error: %v", err)
	}

	var lobbyID string
	select {
	case l := <-lobbyCh:
		lobbyID = l.ID
		log.Printf("Lobby %s created", lobbyID)
	case <-time.After(5 * time.Second):
		log.Fatal("No lobby created event")
	}

	send(c, network.MsgTypeJoinLobby, models.JoinLobbyRequest{
		LobbyID: lobbyID,
		Participant: models.Participant{
			ID:            userID,
			DisplayName:   "Demo Rower",
			EquipmentType: models.EquipmentRower,
		},
	})
	send(c, network.MsgTypeAddBot, models.AddBotRequest{
		LobbyID:    lobbyID,
		Difficulty: models.BotMedium,
	})
	send(c, network.MsgTypeSetReady, models.SetReadyRequest{
		LobbyID:       lobbyID,
		ParticipantID: userID,
	})
	send(c, network.MsgTypeStartRace, models.StartRaceRequest{LobbyID: lobbyID})

	var raceID string
	select {
	case r := <-raceCh:
		raceID = r.ID
		log.Printf("Race %s started", raceID)
	case <-time.After(15 * time.Second):
		log.Fatal("No race started event")
	}

	// Report telemetry at 2Hz until the race completes.
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	start := time.Now()

	for {
		select {
		case <-done:
			return
		case <-completedCh:
			log.Println("Race completed.")
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			c.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		case <-ticker.C:
			elapsed := time.Since(start).Seconds()
			send(c, network.MsgTypeReportMetrics, models.ReportMetricsRequest{
				RaceID:        raceID,
				ParticipantID: userID,
				Distance:      elapsed * 4.5,
				Pace:          125,
				Watts:         210,
			})
		}
	}
}
