package main

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kadisoka/iam-verify/pkg/v10nflow"
)

type inputAction int

const (
	inputActionClear inputAction = iota
	inputActionShowError
	inputActionReceivesInput
	inputActionFocus
)

type inputMsg struct {
	action        inputAction
	receivesInput bool
}

// inputField forwards the flow's requests on the code input to the
// screen's event loop.
type inputField struct {
	send func(tea.Msg)
}

var _ v10nflow.InputField = inputField{}

func (in inputField) Clear()     { in.send(inputMsg{action: inputActionClear}) }
func (in inputField) ShowError() { in.send(inputMsg{action: inputActionShowError}) }
func (in inputField) Focus()     { in.send(inputMsg{action: inputActionFocus}) }

func (in inputField) SetReceivesInput(receivesInput bool) {
	in.send(inputMsg{action: inputActionReceivesInput, receivesInput: receivesInput})
}

func (m *screenModel) applyInput(msg inputMsg) (tea.Model, tea.Cmd) {
	switch msg.action {
	case inputActionClear:
		m.input.SetValue("")
	case inputActionShowError:
		m.inputError = true
	case inputActionReceivesInput:
		m.receivesInput = msg.receivesInput
		if !msg.receivesInput {
			m.input.Blur()
			return m, nil
		}
		return m, m.input.Focus()
	case inputActionFocus:
		if m.receivesInput {
			return m, m.input.Focus()
		}
	}
	return m, nil
}
