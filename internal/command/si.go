// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/labctl/labctl/internal/command/si"
	"github.com/labctl/labctl/internal/config"
	"github.com/labctl/labctl/internal/meta"
	"github.com/labctl/labctl/internal/session"
)

// siCommandAction is the action handler for the "si" subcommand. It loads
// the session store for the target lab root and launches an interactive
// inspector UI to explore sessions and their progress.
func siCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	config.Config.Namespace = "si"

	st := session.NewStore(m.LabDir)
	doc, err := json.Marshal(st.Load())
	if err != nil {
		return fmt.Errorf("failed to marshal session store: %w", err)
	}

	return runSiInteractiveConsole(doc)
}

// siModel represents the Bubble Tea model for si command
type siModel struct {
	input          textinput.Model
	history        []string // Full history for navigation (includes file history)
	sessionHistory []string // Only commands from this session (matches with outputs)
	histIndex      int
	output         []string
	doc            []byte
}

func initialSiModel(doc []byte) siModel {
	ti := textinput.New()
	ti.Placeholder = ""
	ti.Focus()
	ti.CharLimit = 2048
	ti.Width = 999
	ti.Prompt = ""
	ti.Cursor.SetMode(cursor.CursorBlink) // Set to blinking vertical line

	// Load history from file
	history := loadSiHistory(getSiHistoryFile())

	// Add initial welcome message
	var output []string
	var sessions map[string]json.RawMessage
	if err := json.Unmarshal(doc, &sessions); err == nil {
		output = append(output, fmt.Sprintf("Interactive session console loaded. %d sessions found.", len(sessions)))
	} else {
		output = append(output, "Interactive session console loaded.")
	}
	output = append(output, "Type 'help' for syntax, 'exit' or Ctrl+C to quit.")

	return siModel{
		input:          ti,
		history:        history,
		sessionHistory: []string{}, // Empty for new session
		histIndex:      -1,
		output:         output,
		doc:            doc,
	}
}

func (m siModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m siModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter":
			entry := m.input.Value()
			if strings.TrimSpace(entry) != "" {
				// Handle special commands
				if entry == "exit" || entry == "quit" {
					return m, tea.Quit
				}

				// Process query and get output
				result := si.ProcessQuery(m.doc, entry)
				if result == "" {
					result = "No results found."
				}

				m.history = append(m.history, entry)
				m.sessionHistory = append(m.sessionHistory, entry)
				m.histIndex = -1
				m.output = append(m.output, result)
				saveSiHistory(getSiHistoryFile(), m.history)
			}
			m.input.SetValue("")
			return m, nil

		case "up":
			if len(m.history) == 0 {
				return m, nil
			}
			if m.histIndex == -1 {
				m.histIndex = len(m.history) - 1
			} else if m.histIndex > 0 {
				m.histIndex--
			}
			m.input.SetValue(m.history[m.histIndex])
			m.input.CursorEnd()
			return m, nil

		case "down":
			if len(m.history) == 0 {
				return m, nil
			}
			if m.histIndex >= 0 && m.histIndex < len(m.history)-1 {
				m.histIndex++
				m.input.SetValue(m.history[m.histIndex])
				m.input.CursorEnd()
			} else {
				m.histIndex = -1
				m.input.SetValue("")
			}
			return m, nil

		case "ctrl+c", "esc":
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m siModel) View() string {
	// AWS orange style for the prompt
	promptStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FF9900"))

	var lines []string

	// Add the initial welcome messages first
	if len(m.output) >= 2 {
		lines = append(lines, m.output[0])
		lines = append(lines, m.output[1])
	}

	// Add each command from THIS SESSION with its corresponding output
	for i := 0; i < len(m.sessionHistory); i++ {
		// Show the command that was entered in this session
		lines = append(lines, promptStyle.Render("> ")+m.sessionHistory[i])

		// Show the corresponding output (accounting for the 2 initial messages)
		if (i + 2) < len(m.output) {
			lines = append(lines, m.output[i+2])
		}
	}

	// Add current prompt and input
	lines = append(lines, promptStyle.Render("> ")+m.input.View())

	return strings.Join(lines, "\n")
}

// getSiHistoryFile returns the path to the si history file
func getSiHistoryFile() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".labctl_si_history"
	}
	return filepath.Join(homeDir, ".labctl_si_history")
}

func loadSiHistory(filename string) []string {
	var history []string

	file, err := os.Open(filename)
	if err != nil {
		return history // Return empty history if file doesn't exist
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			history = append(history, line)
		}
	}

	return history
}

func runSiInteractiveConsole(doc []byte) error {
	p := tea.NewProgram(initialSiModel(doc))
	_, err := p.Run()
	return err
}

func saveSiHistory(filename string, history []string) {
	// Keep only the last 1000 commands
	maxHistory := 1000
	start := 0
	if len(history) > maxHistory {
		start = len(history) - maxHistory
	}

	file, err := os.Create(filename)
	if err != nil {
		return // Silently fail if we can't save history
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for i := start; i < len(history); i++ {
		fmt.Fprintln(writer, history[i])
	}
	writer.Flush()
}

// siCommandBuilder constructs the cli.Command for "si" and wires up metadata,
// flags, and the action handler.
func siCommandBuilder(meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "si",
		Hidden:    true,
		Usage:     "session inspector",
		UsageText: "labctl si [LabDir] [options]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags:  NewGlobalFlags("si"),
		Action: siCommandAction,
	}
}
