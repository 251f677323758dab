// SPDX-License-Identifier: EPL-2.0

package hpaslt

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	// ErrUnknownCommand is returned by Execute for an unregistered name.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrMissingArgument is returned when a command gets too few
	// arguments.
	ErrMissingArgument = errors.New("missing argument")
)

// Command is an operation reachable by name from the console.
type Command struct {
	Name    string
	Usage   string
	Help    string
	MinArgs int
	Run     func(args []string) error
}

// Commands is the table of console commands of an App.
type Commands struct {
	log logrus.FieldLogger

	mu   sync.RWMutex
	cmds map[string]Command
}

func newCommands(a *App) *Commands {
	c := &Commands{log: a.log, cmds: make(map[string]Command)}

	for _, cmd := range []Command{
		{
			Name: "loadAudioCurr", Usage: "loadAudioCurr <path>", MinArgs: 1,
			Help: "Load audio to current workspace.",
			Run: func(args []string) error {
				a.LoadAudioFile(args[0])
				return nil
			},
		},
		{
			Name: "play", Usage: "play", Help: "Start or resume playback.",
			Run: func([]string) error { return a.engine.Play() },
		},
		{
			Name: "pause", Usage: "pause", Help: "Pause playback.",
			Run: func([]string) error { return a.engine.Pause() },
		},
		{
			Name: "replay", Usage: "replay", Help: "Play from the beginning.",
			Run: func([]string) error { return a.engine.Replay() },
		},
		{
			Name: "stop", Usage: "stop", Help: "Stop playback and rewind.",
			Run: func([]string) error { return a.engine.Stop() },
		},
		{
			Name: "seek", Usage: "seek <seconds>", MinArgs: 1,
			Help: "Move the playback position.",
			Run: func(args []string) error {
				t, err := strconv.ParseFloat(args[0], 64)
				if err != nil {
					return fmt.Errorf("seek: %w", err)
				}
				a.Seek(t)
				return nil
			},
		},
		{
			Name: "spectrogram", Usage: "spectrogram [nfft]",
			Help: "Generate the spectrogram of the current workspace.",
			Run: func(args []string) error {
				nfft := 0
				if len(args) > 0 {
					n, err := strconv.Atoi(args[0])
					if err != nil {
						return fmt.Errorf("spectrogram: %w", err)
					}
					nfft = n
				}
				_, err := a.Spectrogram(context.Background(), nfft)
				return err
			},
		},
		{
			Name: "createWorkspace", Usage: "createWorkspace <name>", MinArgs: 1,
			Help: "Create an empty workspace.",
			Run:  func(args []string) error { return a.CreateWorkspace(args[0]) },
		},
		{
			Name: "switchWorkspace", Usage: "switchWorkspace <name>", MinArgs: 1,
			Help: "Make a workspace current.",
			Run:  func(args []string) error { return a.SwitchWorkspace(args[0]) },
		},
		{
			Name: "export", Usage: "export <path> [bits]", MinArgs: 1,
			Help: "Write the current workspace as a WAV file.",
			Run: func(args []string) error {
				bits := 16
				if len(args) > 1 {
					n, err := strconv.Atoi(args[1])
					if err != nil {
						return fmt.Errorf("export: %w", err)
					}
					bits = n
				}
				return a.Export(args[0], bits)
			},
		},
	} {
		c.cmds[cmd.Name] = cmd
	}

	c.log.WithFields(logrus.Fields{
		"function": "newCommands",
		"count":    len(c.cmds),
	}).Debug("Console commands registered")
	return c
}

// Register adds or replaces a command.
func (c *Commands) Register(cmd Command) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cmds[cmd.Name] = cmd
}

// List returns the commands sorted by name.
func (c *Commands) List() []Command {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Command, 0, len(c.cmds))
	for _, cmd := range c.cmds {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Execute runs the command called name. Failures are logged and returned.
func (c *Commands) Execute(name string, args ...string) error {
	log := c.log.WithFields(logrus.Fields{
		"function": "Execute",
		"command":  name,
	})

	c.mu.RLock()
	cmd, ok := c.cmds[name]
	c.mu.RUnlock()

	if !ok {
		log.Error("Unknown command")
		return fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	if len(args) < cmd.MinArgs {
		log.Error("Missing argument")
		return fmt.Errorf("%w: usage: %s", ErrMissingArgument, cmd.Usage)
	}

	if err := cmd.Run(args); err != nil {
		log.WithError(err).Error("Command failed")
		return err
	}
	return nil
}
