package sim

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"cubesat-sim/internal/config"
	"cubesat-sim/internal/recovery"
	"cubesat-sim/internal/telemetry"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// logMsg carries a telemetry log line for the viewport.
type logMsg struct{ line string }

// eventMsg carries an event log line.
type eventMsg struct{ line string }

// snapshotMsg carries the latest telemetry snapshot for the footer.
type snapshotMsg struct{ telemetry.Snapshot }

// statusMsg carries a recovery status update.
type statusMsg struct{ recovery.Status }

type setInjectMsg struct {
	fn func(telemetry.FaultKind, time.Duration) error
}

const (
	fallbackFaultInput  = "LOW_VOLTAGE,60"
	maxSectionHeightPct = 0.2
)

// TUIWriter renders telemetry using a bubbletea TUI.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter.
func NewTUIWriter(cfg *config.SimulationConfig) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	m := newTUIModel(cfg)
	p := tea.NewProgram(m, tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// Write implements TelemetryWriter.
func (w *TUIWriter) Write(snap telemetry.Snapshot) error {
	line := fmt.Sprintf("%s[%s]%s %ssat=%s%s %smode=%s%s %svbat=%.2f%s %ssoc=%.1f%s %ssolar=%.2f%s %spayload=%.2f%s %seps=%s%s %stbat=%.1f%s %srad=%.2f%s",
		colorGray, snap.Timestamp.Format(time.RFC3339), colorReset,
		colorBlue, snap.SatelliteID, colorReset,
		modeColor(snap.Mode), snap.Mode, colorReset,
		colorGreen, snap.BatteryVoltageV, colorReset,
		colorCyan, snap.BatterySOCPct, colorReset,
		colorMagenta, snap.SolarArrayPowerW, colorReset,
		colorMagenta, snap.PayloadPowerW, colorReset,
		colorBlue, snap.EPSMode, colorReset,
		colorYellow, snap.BatteryTempC, colorReset,
		colorCyan, snap.RadCPS, colorReset,
	)
	if snap.FaultInjected {
		line += fmt.Sprintf(" %sfault%s", colorRed, colorReset)
	}
	w.program.Send(logMsg{line: line})
	w.program.Send(snapshotMsg{snap})
	return nil
}

// WriteBatch outputs multiple telemetry snapshots.
func (w *TUIWriter) WriteBatch(snaps []telemetry.Snapshot) error {
	for _, s := range snaps {
		_ = w.Write(s)
	}
	return nil
}

// WriteEvent implements EventWriter.
func (w *TUIWriter) WriteEvent(e telemetry.Event) error {
	line := fmt.Sprintf("%s[%s]%s %s%s%s %s",
		colorGray, e.Timestamp.Format(time.RFC3339), colorReset,
		colorRed, e.Type, colorReset, e.Description)
	w.program.Send(eventMsg{line: line})
	return nil
}

// WriteEvents outputs multiple satellite events.
func (w *TUIWriter) WriteEvents(events []telemetry.Event) error {
	for _, e := range events {
		_ = w.WriteEvent(e)
	}
	return nil
}

// SetRecoveryStatus updates the footer with the engine state.
func (w *TUIWriter) SetRecoveryStatus(st recovery.Status) {
	w.program.Send(statusMsg{st})
}

// SetFaultInjector registers a callback used by the fault dialog.
func (w *TUIWriter) SetFaultInjector(fn func(telemetry.FaultKind, time.Duration) error) {
	w.program.Send(setInjectMsg{fn: fn})
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type tuiModel struct {
	cfg          *config.SimulationConfig
	table        table.Model
	vp           viewport.Model
	eventVP      viewport.Model
	logs         []string
	eventLogs    []string
	snap         telemetry.Snapshot
	haveSnap     bool
	status       recovery.Status
	wrap         bool
	autoscroll   bool
	header       string
	headerHeight int
	height       int
	inject       func(telemetry.FaultKind, time.Duration) error
	faultInput   textinput.Model
	faultDialog  bool
	faultErr     string
	help         bool
}

func newTUIModel(cfg *config.SimulationConfig) tuiModel {
	cols := []table.Column{
		{Title: "Config", Width: 24},
		{Title: "Value", Width: 12},
		{Title: "Config", Width: 24},
		{Title: "Value", Width: 12},
	}
	rows := []table.Row{
		{"Satellite ID", cfg.SatelliteID, "Tick Interval", cfg.TickInterval().String()},
		{"Orbital Period (min)", fmt.Sprintf("%.1f", cfg.Orbit.PeriodMinutes), "Sunlit Fraction", fmt.Sprintf("%.2f", cfg.Orbit.SunFraction)},
		{"Spike Probability", fmt.Sprintf("%.4f", cfg.Radiation.SpikeProbability), "Spike Duration (s)", fmt.Sprintf("%.0f", cfg.Radiation.SpikeDurationS)},
		{"Base Solar Power (W)", fmt.Sprintf("%.1f", cfg.Power.BaseSolarPowerW), "Base Battery (V)", fmt.Sprintf("%.1f", cfg.Power.BaseBatteryVoltageV)},
	}
	t := table.New(table.WithColumns(cols), table.WithRows(rows), table.WithHeight(len(rows)+1))
	m := tuiModel{
		cfg:        cfg,
		table:      t,
		vp:         viewport.New(0, 0),
		eventVP:    viewport.New(0, 0),
		autoscroll: true,
	}
	return m
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetWidth(msg.Width)
		m.vp.Width = msg.Width
		m.eventVP.Width = msg.Width
		m.height = msg.Height
		m.header = m.table.View()
		m.headerHeight = lipgloss.Height(m.header)
		m.updateViewportHeight()
		m.refreshViewport()
		m.refreshEvents()
	case tea.KeyMsg:
		if m.faultDialog {
			switch msg.Type {
			case tea.KeyEnter:
				kind, dur, err := parseFaultInput(m.faultInput.Value())
				if err == nil && m.inject != nil {
					err = m.inject(kind, dur)
				}
				if err != nil {
					m.faultErr = err.Error()
				} else {
					m.faultErr = ""
					m.faultDialog = false
				}
				m.updateViewportHeight()
			case tea.KeyEsc:
				m.faultDialog = false
				m.faultErr = ""
				m.updateViewportHeight()
			default:
				var cmd tea.Cmd
				m.faultInput, cmd = m.faultInput.Update(msg)
				return m, cmd
			}
			return m, nil
		}
		if m.help {
			switch msg.String() {
			case "?", "h", "esc":
				m.help = false
				m.updateViewportHeight()
			}
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
			m.updateViewportHeight()
			return m, nil
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
				m.eventVP.GotoBottom()
			}
			return m, nil
		case "f":
			m.faultInput = textinput.New()
			m.faultInput.Placeholder = "kind,duration_s"
			m.faultInput.SetValue(fallbackFaultInput)
			m.faultInput.CursorEnd()
			m.faultInput.Focus()
			m.faultDialog = true
			m.faultErr = ""
			m.updateViewportHeight()
			return m, nil
		case "h", "?":
			m.help = !m.help
			m.updateViewportHeight()
			return m, nil
		}
		if !m.autoscroll {
			switch msg.String() {
			case "j", "down":
				m.vp.LineDown(1)
				m.eventVP.LineDown(1)
			case "k", "up":
				m.vp.LineUp(1)
				m.eventVP.LineUp(1)
			case "pgdown", "ctrl+n":
				m.vp.LineDown(10)
				m.eventVP.LineDown(10)
			case "pgup", "ctrl+p":
				m.vp.LineUp(10)
				m.eventVP.LineUp(10)
			default:
				var cmd tea.Cmd
				m.vp, cmd = m.vp.Update(msg)
				m.eventVP, _ = m.eventVP.Update(msg)
				return m, cmd
			}
			return m, nil
		}
		return m, nil
	case logMsg:
		m.logs = append(m.logs, msg.line)
		if len(m.logs) > 1000 {
			m.logs = m.logs[len(m.logs)-1000:]
		}
		m.refreshViewport()
	case eventMsg:
		m.eventLogs = append(m.eventLogs, msg.line)
		if len(m.eventLogs) > 1000 {
			m.eventLogs = m.eventLogs[len(m.eventLogs)-1000:]
		}
		m.updateViewportHeight()
		m.refreshEvents()
		m.refreshViewport()
	case snapshotMsg:
		m.snap = msg.Snapshot
		m.haveSnap = true
	case statusMsg:
		m.status = msg.Status
	case setInjectMsg:
		m.inject = msg.fn
	}
	return m, nil
}

// parseFaultInput parses "kind,duration_s" from the fault dialog.
func parseFaultInput(s string) (telemetry.FaultKind, time.Duration, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("expected kind,duration_s")
	}
	kind := telemetry.FaultKind(strings.TrimSpace(strings.ToUpper(parts[0])))
	if !telemetry.ValidFaultKind(kind) {
		return "", 0, fmt.Errorf("unknown fault kind %q", string(kind))
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid duration: %w", err)
	}
	return kind, time.Duration(secs * float64(time.Second)), nil
}

func (m *tuiModel) updateViewportHeight() {
	bottomHeight := lipgloss.Height(m.renderBottom())

	maxLines := m.maxSectionLines()
	eventLines := len(m.eventLogs)
	if eventLines == 0 {
		eventLines = 1
	}
	if eventLines > maxLines {
		eventLines = maxLines
	}
	m.eventVP.Height = eventLines

	eventHeight := 1 + m.eventVP.Height
	dialogHeight := 0
	if m.faultDialog {
		dialogHeight = 2
	}
	h := m.height - m.headerHeight - bottomHeight - eventHeight - dialogHeight - 4
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	if m.autoscroll {
		m.eventVP.GotoBottom()
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshViewport() {
	var lines []string
	for _, l := range m.logs {
		if m.wrap {
			lines = append(lines, wordwrap.String(l, m.vp.Width))
		} else {
			lines = append(lines, l)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshEvents() {
	content := "none"
	if len(m.eventLogs) > 0 {
		content = strings.Join(m.eventLogs, "\n")
	}
	m.eventVP.SetContent(content)
	if m.autoscroll {
		m.eventVP.GotoBottom()
	}
}

func (m tuiModel) maxSectionLines() int {
	h := int(float64(m.height) * maxSectionHeightPct)
	if h < 1 {
		h = 1
	}
	return h
}

func (m tuiModel) View() string {
	if m.help {
		return m.renderHelp()
	}
	bottom := m.renderBottom()
	divider := strings.Repeat("─", m.vp.Width)
	sections := []string{
		m.header,
		divider,
		m.vp.View(),
		divider,
		"Events:",
		m.eventVP.View(),
	}
	if m.faultDialog {
		dialog := "Inject fault (kind,duration_s): " + m.faultInput.View()
		if m.faultErr != "" {
			dialog += "\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Render(m.faultErr)
		}
		sections = append(sections, divider, dialog)
	}
	sections = append(sections, divider, bottom)
	return strings.Join(sections, "\n")
}

func (m tuiModel) renderBottom() string {
	wrapColor := lipgloss.Color("9")
	if m.wrap {
		wrapColor = lipgloss.Color("10")
	}
	scrollColor := lipgloss.Color("10")
	if !m.autoscroll {
		scrollColor = lipgloss.Color("9")
	}
	wrapIndicator := lipgloss.NewStyle().Foreground(wrapColor).Render("●")
	scrollIndicator := lipgloss.NewStyle().Foreground(scrollColor).Render("●")

	mode := telemetry.ModeNormal
	if m.haveSnap {
		mode = m.snap.Mode
	}
	recov := "idle"
	if m.status.RecoveryActive {
		recov = fmt.Sprintf("active(%s)", m.status.ActiveAnomaly)
	}
	state := fmt.Sprintf("%sSTATE%s %smode=%s%s %srecovery=%s%s %shistory=%d%s",
		colorBlue, colorReset,
		modeColor(mode), mode, colorReset,
		colorYellow, recov, colorReset,
		colorGreen, m.status.HistoryCount, colorReset)
	return fmt.Sprintf("%s | Wrap %s | Scroll %s", state, wrapIndicator, scrollIndicator)
}

func (m tuiModel) renderHelp() string {
	lines := []string{
		"Key Bindings:",
		" q  quit",
		" w  toggle wrap for telemetry lines",
		" s  toggle auto-scroll",
		" f  inject fault (kind,duration_s)",
		" h/? toggle this help view",
		"",
		"When auto-scroll is disabled:",
		" j/k or up/down    scroll one line",
		" pgdown/pgup       scroll a page",
	}
	return strings.Join(lines, "\n")
}
