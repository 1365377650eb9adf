// Package command turns chat text like "!play song" into playback calls.
package command

import (
	"errors"
	"strings"
)

type Name string

const (
	Play   Name = "play"
	Skip   Name = "skip"
	Stop   Name = "stop"
	Pause  Name = "pause"
	Resume Name = "resume"
	Queue  Name = "queue"
)

var aliases = map[string]Name{
	"play":   Play,
	"p":      Play,
	"skip":   Skip,
	"stop":   Stop,
	"pause":  Pause,
	"resume": Resume,
	"queue":  Queue,
}

var (
	ErrNotCommand = errors.New("not a command")
	ErrUnknown    = errors.New("unknown command")
)

type Command struct {
	Name Name
	Arg  string
}

// Parse reads "<prefix><name> [arg]". Names are case-insensitive.
func Parse(prefix, text string) (Command, error) {
	text = strings.TrimSpace(text)
	if prefix == "" || !strings.HasPrefix(text, prefix) {
		return Command{}, ErrNotCommand
	}
	body := strings.TrimPrefix(text, prefix)
	parts := strings.SplitN(body, " ", 2)
	name := strings.ToLower(strings.TrimSpace(parts[0]))
	if name == "" {
		return Command{}, ErrNotCommand
	}
	cmd, ok := aliases[name]
	if !ok {
		return Command{}, ErrUnknown
	}
	arg := ""
	if len(parts) > 1 {
		arg = strings.TrimSpace(parts[1])
	}
	return Command{Name: cmd, Arg: arg}, nil
}
