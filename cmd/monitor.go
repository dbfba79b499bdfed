// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/marcelscruz/open-gt/internal/analyzer"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live operator dashboard for a running server",
	Long:  `monitor dials a running "gtengineer serve" instance over --url and renders its snapshot and engineer events as a terminal dashboard.`,
	RunE:  runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	conn, label, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	m := initialMonitorModel(label)
	p := tea.NewProgram(m, tea.WithAltScreen())

	go pumpEvents(conn, p)

	_, err = p.Run()
	return err
}

// pumpEvents decodes one JSON envelope at a time off the websocket and
// feeds it into the bubbletea program as a message.
func pumpEvents(conn Connection, p *tea.Program) {
	dec := json.NewDecoder(conn)
	for {
		var env struct {
			Event   string          `json:"event"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := dec.Decode(&env); err != nil {
			p.Send(monitorErrorMsg{err: err})
			return
		}
		p.Send(monitorEventMsg{event: env.Event, payload: env.Payload})
	}
}

type monitorEventMsg struct {
	event   string
	payload json.RawMessage
}
type monitorErrorMsg struct{ err error }

type engineerStatusView struct {
	connected       bool
	personalityName string
}

type monitorModel struct {
	label        string
	snapshot     *analyzer.Snapshot
	engineer     engineerStatusView
	lastText     string
	errorLog     []string
	disconnected bool
	connErr      error
	width        int
	height       int
	quitting     bool
}

func initialMonitorModel(label string) monitorModel {
	return monitorModel{label: label, width: 80, height: 24}
}

func (m monitorModel) Init() tea.Cmd {
	return tea.EnterAltScreen
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case monitorErrorMsg:
		m.disconnected = true
		m.connErr = msg.err

	case monitorEventMsg:
		m.applyEvent(msg)
	}

	return m, nil
}

func (m *monitorModel) applyEvent(msg monitorEventMsg) {
	switch msg.event {
	case "telemetry:snapshot":
		var snap analyzer.Snapshot
		if err := json.Unmarshal(msg.payload, &snap); err == nil {
			m.snapshot = &snap
		}
	case "engineer:status":
		var status struct {
			Connected   bool `json:"connected"`
			Personality *struct {
				DisplayName string `json:"displayName"`
			} `json:"personality"`
		}
		if err := json.Unmarshal(msg.payload, &status); err == nil {
			m.engineer.connected = status.Connected
			if status.Personality != nil {
				m.engineer.personalityName = status.Personality.DisplayName
			}
		}
	case "engineer:text":
		var text struct {
			Text string `json:"text"`
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg.payload, &text); err == nil {
			m.lastText = fmt.Sprintf("[%s] %s", text.Type, text.Text)
		}
	case "engineer:error":
		var e struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(msg.payload, &e); err == nil {
			m.addLogEntry(e.Message)
		}
	}
}

func (m *monitorModel) addLogEntry(message string) {
	entry := fmt.Sprintf("%s %s", time.Now().Format("15:04:05.000"), message)
	m.errorLog = append(m.errorLog, entry)
	if len(m.errorLog) > 100 {
		m.errorLog = m.errorLog[len(m.errorLog)-100:]
	}
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Background(lipgloss.Color("235")).Padding(0, 1)
	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statsLabelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	statsValueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warningStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	boxStyle := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)

	var s strings.Builder
	s.WriteString(titleStyle.Render("GT ENGINEER - MONITOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Press 'q' to quit", m.label)))
	s.WriteString("\n\n")

	if m.disconnected {
		s.WriteString(errorStyle.Render(fmt.Sprintf("Disconnected: %v", m.connErr)))
		s.WriteString("\n\n")
	}

	if m.snapshot == nil {
		s.WriteString(warningStyle.Render("Waiting for telemetry..."))
		s.WriteString("\n\n")
	} else {
		snap := m.snapshot
		content := strings.Builder{}
		content.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
			statsLabelStyle.Render("Lap:"), statsValueStyle.Render(fmt.Sprintf("%d/%d", snap.LapCount, snap.LapsTotal)),
			statsLabelStyle.Render("Last:"), statsValueStyle.Render(formatLapTime(snap.LastLapTimeMs)),
			statsLabelStyle.Render("Best:"), statsValueStyle.Render(formatLapTime(snap.BestLapTimeMs)),
		))
		content.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			statsLabelStyle.Render("Pace:"), statsValueStyle.Render(string(snap.PaceTrend)),
			statsLabelStyle.Render("Speed:"), statsValueStyle.Render(fmt.Sprintf("%.0f km/h", snap.SpeedKmh)),
		))
		content.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			statsLabelStyle.Render("Fuel:"), statsValueStyle.Render(fmt.Sprintf("%.1f / %.1f L", snap.FuelLevel, snap.FuelCapacity)),
			statsLabelStyle.Render("Laps left:"), statsValueStyle.Render(formatLapsRemaining(snap.EstimatedLapsRemaining)),
		))
		content.WriteString(fmt.Sprintf("%s FL %s FR %s RL %s RR %s",
			statsLabelStyle.Render("Tyres:"),
			tyreTrendStyle(snap.TyreTrends.FL, snap.TyreTemps.FL, warningStyle, statsValueStyle),
			tyreTrendStyle(snap.TyreTrends.FR, snap.TyreTemps.FR, warningStyle, statsValueStyle),
			tyreTrendStyle(snap.TyreTrends.RL, snap.TyreTemps.RL, warningStyle, statsValueStyle),
			tyreTrendStyle(snap.TyreTrends.RR, snap.TyreTemps.RR, warningStyle, statsValueStyle),
		))
		s.WriteString(boxStyle.Render(content.String()))
		s.WriteString("\n\n")
	}

	s.WriteString(statsLabelStyle.Render("Engineer:"))
	s.WriteString("\n")
	status := "disconnected"
	statusStyle := warningStyle
	if m.engineer.connected {
		status = "connected"
		if m.engineer.personalityName != "" {
			status += " (" + m.engineer.personalityName + ")"
		}
		statusStyle = statsValueStyle
	}
	engineerContent := statusStyle.Render(status)
	if m.lastText != "" {
		engineerContent += "\n" + headerStyle.Render(m.lastText)
	}
	s.WriteString(boxStyle.Render(engineerContent))
	s.WriteString("\n\n")

	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")
	logHeight := m.height - 18
	if logHeight < 5 {
		logHeight = 5
	}
	logContent := strings.Builder{}
	startIdx := len(m.errorLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}
	if len(m.errorLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.errorLog); i++ {
			logContent.WriteString(errorStyle.Render("✗ "+m.errorLog[i]) + "\n")
		}
	}
	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}

func formatLapTime(ms int32) string {
	if ms <= 0 {
		return "--:--.---"
	}
	d := time.Duration(ms) * time.Millisecond
	return fmt.Sprintf("%d:%02d.%03d", int(d.Minutes()), int(d.Seconds())%60, d.Milliseconds()%1000)
}

func formatLapsRemaining(v float64) string {
	if v < 0 || v > 9999 {
		return "--"
	}
	return fmt.Sprintf("%.1f", v)
}

func tyreTrendStyle(trend analyzer.TyreTrend, temp float32, warn, ok lipgloss.Style) string {
	text := fmt.Sprintf("%.0f°C", temp)
	if trend == analyzer.TyreRising {
		return warn.Render(text)
	}
	return ok.Render(text)
}
