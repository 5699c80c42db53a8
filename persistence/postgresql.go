// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/wmmnpr/pm5monitor-sub000/models"
)

const queryTimeout = 5 * time.Second

// PostgreSQL is the raw database/sql store. It covers the same tables as
// the GORM implementation for deployments that prefer plain SQL.
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL opens a PostgreSQL connection and ensures the mirror
// tables exist.
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

func initTables(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS profiles (
            id SERIAL PRIMARY KEY,
            user_id VARCHAR(255) UNIQUE NOT NULL,
            display_name VARCHAR(255) NOT NULL DEFAULT '',
            races_total INT NOT NULL DEFAULT 0,
            wins INT NOT NULL DEFAULT 0,
            data JSONB,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS lobby_records (
            id SERIAL PRIMARY KEY,
            lobby_id VARCHAR(255) UNIQUE NOT NULL,
            creator_id VARCHAR(255) NOT NULL,
            status VARCHAR(50) NOT NULL,
            distance_meters INT NOT NULL,
            entry_fee VARCHAR(64) NOT NULL,
            payout_mode VARCHAR(50) NOT NULL,
            participant_count INT NOT NULL,
            participants JSONB NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS race_records (
            id SERIAL PRIMARY KEY,
            race_id VARCHAR(255) UNIQUE NOT NULL,
            lobby_id VARCHAR(255) NOT NULL,
            distance_meters INT NOT NULL,
            participants JSONB NOT NULL,
            results JSONB NOT NULL,
            duration_ms BIGINT NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE INDEX IF NOT EXISTS idx_profiles_user_id ON profiles(user_id);
        CREATE INDEX IF NOT EXISTS idx_lobby_records_lobby_id ON lobby_records(lobby_id);
        CREATE INDEX IF NOT EXISTS idx_race_records_lobby_id ON race_records(lobby_id);
        CREATE INDEX IF NOT EXISTS idx_race_records_created_at ON race_records(created_at);
    `)

	return err
}

// SaveProfile upserts a user profile.
func (p *PostgreSQL) SaveProfile(profile *models.UserProfile) error {
	data, err := json.Marshal(profile.Data)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	_, err = p.db.ExecContext(ctx, `
        INSERT INTO profiles (user_id, display_name, races_total, wins, data, updated_at)
        VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP)
        ON CONFLICT (user_id)
        DO UPDATE SET display_name = $2, races_total = $3, wins = $4, data = $5, updated_at = CURRENT_TIMESTAMP
    `, profile.UserID, profile.DisplayName, profile.RacesTotal, profile.Wins, data)

	return err
}

// LoadProfile fetches a user profile.
func (p *PostgreSQL) LoadProfile(userID string) (*models.UserProfile, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var (
		profile models.UserProfile
		data    []byte
	)
	err := p.db.QueryRowContext(ctx, `
        SELECT user_id, display_name, races_total, wins, data, created_at, updated_at
        FROM profiles WHERE user_id = $1
    `, userID).Scan(&profile.UserID, &profile.DisplayName, &profile.RacesTotal,
		&profile.Wins, &data, &profile.CreatedAt, &profile.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &profile.Data); err != nil {
			return nil, err
		}
	}
	return &profile, nil
}

// SaveLobbyRecord upserts the mirror row for a lobby.
func (p *PostgreSQL) SaveLobbyRecord(l models.Lobby) error {
	participants, err := json.Marshal(l.Participants)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	_, err = p.db.ExecContext(ctx, `
        INSERT INTO lobby_records (lobby_id, creator_id, status, distance_meters, entry_fee, payout_mode, participant_count, participants, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, CURRENT_TIMESTAMP)
        ON CONFLICT (lobby_id)
        DO UPDATE SET status = $3, participant_count = $7, participants = $8, updated_at = CURRENT_TIMESTAMP
    `, l.ID, l.CreatorID, string(l.Status), l.RaceDistanceMeters, l.EntryFee,
		string(l.PayoutMode), len(l.Participants), participants)

	return err
}

// UpdateLobbyRecord updates just the status and roster size of a mirror row.
func (p *PostgreSQL) UpdateLobbyRecord(lobbyID string, status models.LobbyStatus, participantCount int) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	_, err := p.db.ExecContext(ctx, `
        UPDATE lobby_records
        SET status = $2, participant_count = $3, updated_at = CURRENT_TIMESTAMP
        WHERE lobby_id = $1
    `, lobbyID, string(status), participantCount)

	return err
}

// SaveRaceRecord writes the completed race with its final standings.
func (p *PostgreSQL) SaveRaceRecord(r models.Race, results []models.RaceResult) error {
	participants, err := json.Marshal(r.Participants)
	if err != nil {
		return err
	}
	standings, err := json.Marshal(results)
	if err != nil {
		return err
	}

	var duration int64
	for _, res := range results {
		if res.FinishTimeMs > duration {
			duration = res.FinishTimeMs
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	_, err = p.db.ExecContext(ctx, `
        INSERT INTO race_records (race_id, lobby_id, distance_meters, participants, results, duration_ms)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (race_id) DO NOTHING
    `, r.ID, r.LobbyID, r.TargetDistanceMeters, participants, standings, duration)

	return err
}

// LoadRaceRecord reads back a stored race with its standings.
func (p *PostgreSQL) LoadRaceRecord(raceID string) (*models.RaceRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var (
		record    models.RaceRecord
		standings []byte
	)
	err := p.db.QueryRowContext(ctx, `
        SELECT race_id, lobby_id, distance_meters, results, duration_ms
        FROM race_records WHERE race_id = $1
    `, raceID).Scan(&record.RaceID, &record.LobbyID, &record.DistanceMeters,
		&standings, &record.DurationMs)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(standings, &record.Results); err != nil {
		return nil, err
	}
	return &record, nil
}

// RecordRaceOutcome bumps a user's race count, and win count when won. The
// upsert keeps it a single statement, safe under concurrent completions.
func (p *PostgreSQL) RecordRaceOutcome(userID, displayName string, won bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	winInc := 0
	if won {
		winInc = 1
	}

	_, err := p.db.ExecContext(ctx, `
        INSERT INTO profiles (user_id, display_name, races_total, wins, updated_at)
        VALUES ($1, $2, 1, $3, CURRENT_TIMESTAMP)
        ON CONFLICT (user_id)
        DO UPDATE SET races_total = profiles.races_total + 1,
                      wins = profiles.wins + $3,
                      updated_at = CURRENT_TIMESTAMP
    `, userID, displayName, winInc)

	return err
}

// GetProfileStats returns the race and win counters for a user.
func (p *PostgreSQL) GetProfileStats(userID string) (models.ProfileStats, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var stats models.ProfileStats
	err := p.db.QueryRowContext(ctx, `
        SELECT races_total, wins FROM profiles WHERE user_id = $1
    `, userID).Scan(&stats.RacesTotal, &stats.Wins)
	if err == sql.ErrNoRows {
		return stats, ErrRecordNotFound
	}
	return stats, err
}

// Close shuts down the connection pool.
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
