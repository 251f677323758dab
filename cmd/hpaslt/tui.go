// SPDX-License-Identifier: EPL-2.0

package main

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ik5/hpaslt"
	"github.com/ik5/hpaslt/playback"
)

const (
	tickInterval = 50 * time.Millisecond
	seekStep     = 5.0
	waveRows     = 8
)

type tickMsg time.Time

type loadedMsg struct{}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// model is the terminal interface. It polls the engine on every tick and
// dispatches the engine's notices on the UI goroutine.
type model struct {
	app  *hpaslt.App
	path string

	state  playback.State
	time   float64
	length float64

	width  int
	height int

	commandMode bool
	input       string
	message     string

	wave  []string
	peaks []float64
}

func newModel(app *hpaslt.App, path string) model {
	return model{app: app, path: path, width: 80}
}

func (m model) Init() tea.Cmd {
	if m.path == "" {
		return tick()
	}
	path := m.path
	return tea.Batch(tick(), func() tea.Msg {
		m.app.LoadAudioFile(path)
		return nil
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.commandMode {
			return m.handleCommandKey(msg)
		}
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.refreshViews()
	case tickMsg:
		m.app.Engine().Dispatch()
		m.poll()
		return m, tick()
	case loadedMsg:
		m.message = "Loaded " + m.app.Current().Name()
		m.refreshViews()
	}
	return m, nil
}

func (m *model) poll() {
	eng := m.app.Engine()
	m.state = eng.State()
	m.time = eng.Time()
	m.length = eng.Length()
	m.peaks = m.currentPeaks()
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ":
		if m.app.Engine().Playing() {
			m.app.Pause()
		} else {
			m.app.Play()
		}
	case "s":
		m.app.Stop()
	case "r":
		m.app.Replay()
	case "left":
		m.app.Seek(m.app.Engine().Time() - seekStep)
	case "right":
		m.app.Seek(m.app.Engine().Time() + seekStep)
	case "f":
		if _, err := m.app.Spectrogram(context.Background(), 0); err != nil {
			m.message = err.Error()
		} else {
			m.message = "Spectrogram ready"
		}
	case ":":
		m.commandMode = true
		m.input = ""
	}
	m.poll()
	return m, nil
}

func (m model) handleCommandKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.commandMode = false
	case tea.KeyEnter:
		m.commandMode = false
		m.message = m.execute(m.input)
		m.refreshViews()
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
	case tea.KeySpace:
		m.input += " "
	case tea.KeyRunes:
		m.input += string(msg.Runes)
	}
	m.poll()
	return m, nil
}

func (m model) execute(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	if err := m.app.Commands().Execute(fields[0], fields[1:]...); err != nil {
		return err.Error()
	}
	return "ok: " + fields[0]
}

// refreshViews redraws the waveform for the current width.
func (m *model) refreshViews() {
	m.wave = nil
	pyramids, err := m.app.Waveform(context.Background())
	if err != nil || len(pyramids) == 0 {
		return
	}
	view := pyramids[0].Select(0, pyramids[0].Length())
	m.wave = renderWave(view.Y, max(m.width-2, 10), waveRows)
}

// currentPeaks returns the three strongest frequencies of the spectrogram
// frame at the playback position.
func (m model) currentPeaks() []float64 {
	grid := m.app.Current().Spectrogram()
	if grid == nil || grid.FrameCount() == 0 {
		return nil
	}
	f := min(int(m.time*grid.SpectrogramSampleRate()), grid.FrameCount()-1)
	var out []float64
	for _, k := range grid.PeakBins(0, f, 3) {
		out = append(out, grid.BinFrequency(k))
	}
	return out
}

func (m model) View() string {
	var b strings.Builder

	fmt.Fprintf(&b, "hpaslt  workspace: %s  [%s]\n\n", m.app.Current().Name(), m.state)
	for _, row := range m.wave {
		b.WriteString(row)
		b.WriteByte('\n')
	}
	if m.wave == nil {
		b.WriteString("(no audio loaded)\n")
	}

	fmt.Fprintf(&b, "\n%s %s / %s\n", progressBar(m.time, m.length, max(m.width-16, 10)),
		formatTime(m.time), formatTime(m.length))

	if len(m.peaks) > 0 {
		parts := make([]string, len(m.peaks))
		for i, f := range m.peaks {
			parts[i] = fmt.Sprintf("%.0f Hz", f)
		}
		fmt.Fprintf(&b, "Peaks: %s\n", strings.Join(parts, ", "))
	}

	if m.commandMode {
		fmt.Fprintf(&b, "\n:%s", m.input)
	} else if m.message != "" {
		fmt.Fprintf(&b, "\n%s", m.message)
	}
	b.WriteString("\n\nspace:play/pause  s:stop  r:replay  ←/→:seek  f:spectrogram  ::command  q:quit\n")
	return b.String()
}

func progressBar(pos, total float64, width int) string {
	filled := 0
	if total > 0 {
		filled = int(math.Round(pos / total * float64(width)))
	}
	filled = min(max(filled, 0), width)
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}

// renderWave draws the peak amplitude of each column as a bar centred on
// the middle row.
func renderWave(samples []float32, width, rows int) []string {
	grid := make([][]byte, rows)
	for r := range grid {
		grid[r] = []byte(strings.Repeat(" ", width))
	}
	if len(samples) == 0 {
		return toStrings(grid)
	}

	per := max(len(samples)/width, 1)
	for col := 0; col < width && col*per < len(samples); col++ {
		peak := float32(0)
		for _, v := range samples[col*per : min((col+1)*per, len(samples))] {
			peak = max(peak, float32(math.Abs(float64(v))))
		}
		half := int(math.Round(float64(min(peak, 1)) * float64(rows) / 2))
		for r := rows/2 - half; r < rows/2+max(half, 1); r++ {
			if r >= 0 && r < rows {
				grid[r][col] = '|'
			}
		}
	}
	return toStrings(grid)
}

func toStrings(grid [][]byte) []string {
	out := make([]string, len(grid))
	for i, row := range grid {
		out[i] = string(row)
	}
	return out
}
