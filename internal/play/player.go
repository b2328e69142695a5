package play

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// DefaultPlayers lists the supported audio players in order of preference
var DefaultPlayers = []string{"aplay", "paplay", "afplay", "ffplay", "mpv", "vlc"}

type Player struct {
	players  []string
	lookPath func(string) (string, error)
}

// New creates a player that picks the first available program from players,
// or from DefaultPlayers when none are given
func New(players ...string) *Player {
	if len(players) == 0 {
		players = DefaultPlayers
	}
	return &Player{players: players, lookPath: exec.LookPath}
}

// Play plays a WAV file and waits for playback to finish
func (p *Player) Play(audioFile string) error {
	// Check if file exists
	if _, err := os.Stat(audioFile); err != nil {
		return fmt.Errorf("audio file not found: %s", audioFile)
	}

	player, err := p.findAudioPlayer()
	if err != nil {
		return fmt.Errorf("no suitable audio player found: %w", err)
	}

	args, err := playerArgs(player, audioFile)
	if err != nil {
		return err
	}

	fmt.Printf("Playing: %s\n", audioFile)
	slog.Debug("Starting audio player", "player", player, "args", args)

	cmd := exec.Command(player, args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("playback failed with %s: %w", player, err)
	}

	fmt.Println("Playback completed")
	return nil
}

func playerArgs(player, audioFile string) ([]string, error) {
	switch player {
	case "aplay", "paplay", "afplay":
		return []string{audioFile}, nil
	case "ffplay":
		return []string{"-nodisp", "-autoexit", "-loglevel", "error", audioFile}, nil
	case "mpv":
		return []string{"--no-video", audioFile}, nil
	case "vlc":
		return []string{"--intf", "dummy", "--play-and-exit", audioFile}, nil
	default:
		return nil, fmt.Errorf("unsupported player: %s", player)
	}
}

func (p *Player) findAudioPlayer() (string, error) {
	for _, player := range p.players {
		if _, err := p.lookPath(player); err == nil {
			return player, nil
		}
	}

	return "", fmt.Errorf("no audio player found (tried: %s)", strings.Join(p.players, ", "))
}
