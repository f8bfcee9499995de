package entity

import (
	"time"
)

type Phase string

const (
	PhaseNotMounted Phase = "not-mounted"
	PhaseIdle       Phase = "idle"
	PhaseInFlight   Phase = "in-flight"
)

// Session holds the keys and the displayed page state of one page load.
type Session struct {
	ID            string    `json:"id"`
	GameKey       string    `json:"game_key"`
	PlayerOneKey  string    `json:"player_one_key"`
	PlayerTwoKey  string    `json:"player_two_key"`
	SnapshotCount int       `json:"snapshot_count"`
	Phase         Phase     `json:"phase"`
	View          View      `json:"view"`
	CreatedAt     time.Time `json:"created_at"`
}

// View is what the page currently displays.
type View struct {
	Game           *GameView `json:"game,omitempty"`
	GameFunds      uint64    `json:"game_funds"`
	PlayerOneFunds uint64    `json:"player_one_funds"`
	PlayerTwoFunds uint64    `json:"player_two_funds"`
	CurrentPlayer  int       `json:"current_player"`
	LastSignature  string    `json:"last_signature,omitempty"`
	LastError      string    `json:"last_error,omitempty"`
	Notice         string    `json:"notice,omitempty"`
}

// GameView is the JSON form of Game kept in the session.
type GameView struct {
	Players [2]string                    `json:"players"`
	Turn    uint8                        `json:"turn"`
	Board   [BoardSize][BoardSize]string `json:"board"`
	State   string                       `json:"state"`
	Winner  string                       `json:"winner,omitempty"`
}

const (
	StateActive = "active"
	StateTie    = "tie"
	StateWon    = "won"
)
