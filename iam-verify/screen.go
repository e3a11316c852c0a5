package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kadisoka/iam-verify/pkg/iam"
	"github.com/kadisoka/iam-verify/pkg/v10nflow"
)

const noticeDuration = 4 * time.Second

var (
	colorMuted = lipgloss.Color("241")
	colorError = lipgloss.Color("203")
	colorOK    = lipgloss.Color("78")

	titleStyle   = lipgloss.NewStyle().Bold(true).MarginBottom(1)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError)
	okStyle      = lipgloss.NewStyle().Foreground(colorOK).Bold(true)
	codeStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	codeErrStyle = codeStyle.BorderForeground(colorError)
)

// verificationFlow is the part of the controller the screen drives.
// Every call may block on the controller, so the screen only makes them
// from commands, never from Update or View.
type verificationFlow interface {
	Start(resendIntervalSeconds int) error
	OnCodeChanged(code string) bool
	Submit(code string) v10nflow.Outcome
	Resend(challengeToken *iam.ChallengeToken) bool
	Pause()
	Resume()
}

type (
	flowEventMsg     struct{ event v10nflow.Event }
	startedMsg       struct{ err error }
	submittedMsg     struct{ outcome v10nflow.Outcome }
	resendMsg        struct{ accepted bool }
	noticeExpiredMsg struct{ seq int }
)

// screenModel renders the code entry screen. Its state is a projection
// of the flow's events.
type screenModel struct {
	flow           verificationFlow
	maskedSubject  string
	resendInterval int
	codeLength     int

	input   textinput.Model
	spinner spinner.Model

	remaining     int
	busy          bool
	resending     bool
	verified      bool
	inputError    bool
	receivesInput bool
	notice        string
	noticeIsError bool
	noticeSeq     int
	fatalErr      error
}

func newScreenModel(
	flow verificationFlow,
	maskedSubject string,
	resendInterval int,
	codeLength int,
) *screenModel {
	input := textinput.New()
	input.Placeholder = strings.Repeat("•", codeLength)
	input.CharLimit = codeLength
	input.Width = codeLength + 1
	input.Prompt = ""

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = mutedStyle

	return &screenModel{
		flow:           flow,
		maskedSubject:  maskedSubject,
		resendInterval: resendInterval,
		codeLength:     codeLength,
		input:          input,
		spinner:        spin,
		remaining:      resendInterval,
	}
}

func (m *screenModel) Init() tea.Cmd {
	flow, interval := m.flow, m.resendInterval
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		func() tea.Msg { return startedMsg{err: flow.Start(interval)} },
	)
}

func (m *screenModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.updateKey(msg)
	case tea.FocusMsg:
		return m, m.flowCmd(m.flow.Resume)
	case tea.BlurMsg:
		return m, m.flowCmd(m.flow.Pause)
	case flowEventMsg:
		return m.applyEvent(msg.event)
	case inputMsg:
		return m.applyInput(msg)
	case startedMsg:
		if msg.err != nil {
			m.fatalErr = msg.err
			return m, tea.Quit
		}
		return m, nil
	case submittedMsg:
		if msg.outcome.Succeeded() {
			return m, tea.Quit
		}
		return m, nil
	case resendMsg:
		return m, nil
	case noticeExpiredMsg:
		if msg.seq == m.noticeSeq {
			m.notice = ""
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *screenModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "ctrl+r":
		if m.remaining > 0 || m.busy || m.resending || m.verified {
			return m, nil
		}
		flow := m.flow
		return m, func() tea.Msg { return resendMsg{accepted: flow.Resend(nil)} }
	}

	if !m.receivesInput {
		return m, nil
	}
	if msg.Type == tea.KeyRunes {
		for _, r := range msg.Runes {
			if r < '0' || r > '9' {
				return m, nil
			}
		}
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	code := m.input.Value()
	if code == before {
		return m, cmd
	}
	m.inputError = false

	return m, tea.Batch(cmd, m.codeCmd(code, len(code) == m.codeLength))
}

// codeCmd reports the typed code and submits it once it is complete.
func (m *screenModel) codeCmd(code string, submit bool) tea.Cmd {
	flow := m.flow
	return func() tea.Msg {
		flow.OnCodeChanged(code)
		if submit {
			return submittedMsg{outcome: flow.Submit(code)}
		}
		return nil
	}
}

func (m *screenModel) applyEvent(event v10nflow.Event) (tea.Model, tea.Cmd) {
	switch ev := event.(type) {
	case v10nflow.CooldownTicked:
		m.remaining = ev.Remaining
	case v10nflow.ResendAvailable:
		m.remaining = 0
	case v10nflow.BusyChanged:
		m.busy = ev.Busy
	case v10nflow.ResendingChanged:
		m.resending = ev.Resending
	case v10nflow.CodeChanged:
		if m.input.Value() != ev.Code {
			m.input.SetValue(ev.Code)
		}
	case v10nflow.CodeResent:
		return m, m.showNotice("A new code is on its way.", false)
	case v10nflow.NoticeRaised:
		return m, m.showNotice(ev.Message, true)
	case v10nflow.VerificationSucceeded:
		m.verified = true
	}
	return m, nil
}

func (m *screenModel) showNotice(text string, isError bool) tea.Cmd {
	m.noticeSeq++
	m.notice = text
	m.noticeIsError = isError
	seq := m.noticeSeq
	return tea.Tick(noticeDuration, func(time.Time) tea.Msg {
		return noticeExpiredMsg{seq: seq}
	})
}

func (m *screenModel) flowCmd(fn func()) tea.Cmd {
	return func() tea.Msg {
		fn()
		return nil
	}
}

func (m *screenModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Enter the code we sent to " + m.maskedSubject))
	b.WriteString("\n")

	field := codeStyle
	if m.inputError {
		field = codeErrStyle
	}
	b.WriteString(field.Render(m.input.View()))
	if m.busy && !m.verified {
		b.WriteString(" " + m.spinner.View())
	}
	b.WriteString("\n\n")

	switch {
	case m.verified:
		b.WriteString(okStyle.Render("Phone number verified."))
	case m.resending:
		b.WriteString(mutedStyle.Render("Requesting a new code " + m.spinner.View()))
	case m.remaining > 0:
		b.WriteString(mutedStyle.Render(fmt.Sprintf("Resend code in %ds", m.remaining)))
	default:
		b.WriteString("[ctrl+r] Resend code")
	}
	b.WriteString("\n")

	if m.notice != "" {
		style := mutedStyle
		if m.noticeIsError {
			style = errorStyle
		}
		b.WriteString("\n" + style.Render(m.notice) + "\n")
	}

	b.WriteString("\n" + mutedStyle.Render("[esc] Quit") + "\n")
	return b.String()
}
