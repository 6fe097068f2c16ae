package app

import (
	"context"
	"fmt"

	"github.com/eiannone/keyboard"
	"github.com/specialistvlad/scopyflow/internal/builder"
	"github.com/specialistvlad/scopyflow/internal/topblock"
)

const consoleHelp = "space: start/stop, 1-9: toggle path, r: rebuild, s: status, q: quit"

type keyPress struct {
	char rune
	key  keyboard.Key
}

// openConsole switches the terminal to raw mode and forwards key presses
// until ctx is done. The returned function restores the terminal.
func openConsole(ctx context.Context) (<-chan keyPress, func(), error) {
	if err := keyboard.Open(); err != nil {
		return nil, nil, fmt.Errorf("failed to open console: %w", err)
	}
	keys := make(chan keyPress)
	go func() {
		defer close(keys)
		for {
			char, key, err := keyboard.GetKey()
			if err != nil {
				return
			}
			select {
			case keys <- keyPress{char: char, key: key}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return keys, func() { _ = keyboard.Close() }, nil
}

// handleKey applies one console command on the control goroutine. It
// reports whether the run should end.
func (a *App) handleKey(m *topblock.Manager, s *builder.Session, k keyPress) (quit bool) {
	switch {
	// Raw mode swallows SIGINT, so Ctrl-C arrives as a key.
	case k.key == keyboard.KeyCtrlC, k.char == 'q', k.char == 'Q':
		a.logger.Info("Quit requested from console.")
		return true
	case k.key == keyboard.KeySpace:
		if m.Running() {
			if err := m.Stop(); err != nil && !isCancel(err) {
				a.logger.Warn("Engine reported an error while stopping.", "error", err)
			}
		} else if err := m.Start(); err != nil {
			a.logger.Error("Failed to start engine.", "error", err)
		}
	case k.char == 'r':
		m.Rebuild()
	case k.char == 's':
		a.logStatus(m, s)
	case k.char >= '1' && k.char <= '9':
		paths := s.Paths()
		i := int(k.char - '1')
		if i >= len(paths) {
			a.logger.Warn("No signal path with that number.", "key", string(k.char), "paths", len(paths))
			return false
		}
		p := paths[i]
		p.SetEnabled(!p.Enabled())
		a.logger.Info("Signal path toggled.", "path", p.Name(), "enabled", p.Enabled())
	}
	return false
}

func (a *App) logStatus(m *topblock.Manager, s *builder.Session) {
	a.logger.Info("Engine status.", "running", m.Running(), "built", m.Built(), "edges", len(m.Graph().Edges()))
	for i, p := range s.Paths() {
		a.logger.Info("Signal path.", "key", i+1, "path", p.Name(), "enabled", p.Enabled())
	}
}
