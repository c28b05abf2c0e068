package tui

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/mjsim/internal/mujoco"
	"github.com/san-kum/mjsim/internal/sim"
)

const (
	historyLen   = 60
	maxSpeed     = 256
	tickInterval = 16 * time.Millisecond

	fineStep   = 0.1
	coarseStep = 1.0
)

// Tunable is a controller driven before every step whose parameters can be
// adjusted while the program runs.
type Tunable interface {
	sim.Observer
	GetParams() map[string]float64
	SetParam(name string, value float64)
	Reset()
}

type paramRef struct {
	tunable int
	name    string
}

// Model is the live joint table. It steps data on every tick; data must
// not be used elsewhere while the program runs.
type Model struct {
	title  string
	data   *mujoco.Data
	paused bool
	speed  int
	cursor int
	steps  int

	history []float64
	err     error

	tunables []Tunable
	params   []paramRef
	paramSel int

	width  int
	height int
}

func New(title string, data *mujoco.Data, tunables ...Tunable) Model {
	m := Model{
		title:    title,
		data:     data,
		speed:    1,
		history:  make([]float64, 0, historyLen),
		tunables: tunables,
		width:    80,
		height:   24,
	}
	for i, t := range tunables {
		for _, name := range slices.Sorted(maps.Keys(t.GetParams())) {
			m.params = append(m.params, paramRef{tunable: i, name: name})
		}
	}
	return m
}

// Run starts the program on the terminal and blocks until the user quits.
func Run(title string, data *mujoco.Data, tunables ...Tunable) error {
	final, err := tea.NewProgram(New(title, data, tunables...), tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}
	if m, ok := final.(Model); ok && m.err != nil {
		return m.err
	}
	return nil
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		if m.err != nil {
			return m, nil
		}
		if !m.paused {
			for i := 0; i < m.speed; i++ {
				if !m.step() {
					break
				}
			}
		}
		return m, tick()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case " ", "p":
		m.paused = !m.paused
	case "s", ".":
		m.paused = true
		m.step()
	case "r":
		if err := m.data.Reset(); err != nil {
			m.err = err
			break
		}
		for _, t := range m.tunables {
			t.Reset()
		}
		m.err = nil
		m.steps = 0
		m.history = m.history[:0]
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.history = m.history[:0]
		}
	case "down", "j":
		if m.cursor < m.data.Model().NumJoints()-1 {
			m.cursor++
			m.history = m.history[:0]
		}
	case "+", "=":
		m.speed = min(m.speed*2, maxSpeed)
	case "-", "_":
		m.speed = max(m.speed/2, 1)
	case "tab":
		if len(m.params) > 0 {
			m.paramSel = (m.paramSel + 1) % len(m.params)
		}
	case "shift+tab":
		if len(m.params) > 0 {
			m.paramSel = (m.paramSel + len(m.params) - 1) % len(m.params)
		}
	case "]":
		m.adjust(fineStep)
	case "[":
		m.adjust(-fineStep)
	case "}":
		m.adjust(coarseStep)
	case "{":
		m.adjust(-coarseStep)
	}
	return m, nil
}

// adjust shifts the selected controller parameter by delta.
func (m *Model) adjust(delta float64) {
	if len(m.params) == 0 {
		return
	}
	ref := m.params[m.paramSel]
	t := m.tunables[ref.tunable]
	t.SetParam(ref.name, t.GetParams()[ref.name]+delta)
}

// step advances one timestep and samples the selected joint.
func (m *Model) step() bool {
	for _, t := range m.tunables {
		t.OnStep(m.steps, m.data)
	}
	if err := m.data.Step(); err != nil {
		m.err = err
		return false
	}
	m.steps++

	if j, ok := m.data.Joint(m.cursor); ok && len(j.Qpos) > 0 {
		m.history = append(m.history, j.Qpos[0])
		if len(m.history) > historyLen {
			m.history = m.history[1:]
		}
	}
	return true
}

func (m Model) View() string {
	var b strings.Builder

	status := statusRunning.Render("● running")
	switch {
	case m.err != nil:
		status = statusError.Render("✗ " + m.err.Error())
	case m.paused:
		status = statusPaused.Render("❚❚ paused")
	}
	fmt.Fprintf(&b, "%s  %s  %s\n",
		headerStyle.Render(m.title),
		status,
		dim.Render(fmt.Sprintf("t=%.3fs  steps=%d  speed=%dx", m.data.Time(), m.steps, m.speed)))
	b.WriteString("\n")

	b.WriteString(panel.Render(m.table()))
	b.WriteString("\n\n")

	if name, ok := m.data.Model().JointName(m.cursor); ok {
		fmt.Fprintf(&b, "  %s %s\n", cyan.Render(name+".qpos[0]"), sparkline(m.history, min(historyLen, max(m.width-30, 10))))
	}
	if len(m.params) > 0 {
		b.WriteString(m.paramLine())
		b.WriteString("\n")
	}
	b.WriteString("\n")
	help := "  space pause · s step · r reset · ↑/↓ select · +/- speed · q quit"
	if len(m.params) > 0 {
		help += " · tab param · [/] tune · {/} coarse"
	}
	b.WriteString(dimmer.Render(help))
	b.WriteString("\n")
	return b.String()
}

func (m Model) table() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", white.Render(fmt.Sprintf("%-3s %-14s %-6s %-30s %-26s", "id", "joint", "kind", "qpos", "qvel")))

	for id := 0; id < m.data.Model().NumJoints(); id++ {
		j, ok := m.data.Joint(id)
		var line string
		if !ok {
			line = fmt.Sprintf("%-3d %-14s", id, "<unavailable>")
		} else {
			line = fmt.Sprintf("%-3d %-14s %-6s %-30s %-26s",
				id, truncate(j.Name, 14), j.Type, formatVec(j.Qpos), formatVec(j.Qvel))
		}
		if id == m.cursor {
			line = selectedRow.Render("▸ " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if ctrl := m.data.Ctrl(); len(ctrl) > 0 {
		b.WriteString("\n")
		b.WriteString(magenta.Render("ctrl " + formatVec(ctrl)))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) paramLine() string {
	parts := make([]string, len(m.params))
	for i, ref := range m.params {
		v := m.tunables[ref.tunable].GetParams()[ref.name]
		s := fmt.Sprintf("pid%d.%s=%.2f", ref.tunable, ref.name, v)
		if i == m.paramSel {
			s = selectedRow.Render(s)
		} else {
			s = dim.Render(s)
		}
		parts[i] = s
	}
	return "  " + strings.Join(parts, "  ")
}

func formatVec(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			parts[i] = fmt.Sprint(x)
			continue
		}
		parts[i] = fmt.Sprintf("%+.3f", x)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
