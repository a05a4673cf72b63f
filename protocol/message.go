package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Outbound message kinds.
const (
	CommandEcho     = "echo"
	CommandResult   = "result"
	CommandStatus   = "status"
	CommandSetMode  = "set_mode"
	CommandSetNav   = "set_nav"
	CommandResource = "resource"
	CommandResponse = "response"
	CommandSetLib   = "set_lib"
)

// ResultType classifies a result message.
type ResultType string

const (
	ResultStatement       ResultType = "statement"
	ResultExpression      ResultType = "expression"
	ResultException       ResultType = "exception"
	ResultPrint           ResultType = "print"
	ResultInfo            ResultType = "info"
	ResultEcho            ResultType = "echo"
	ResultRenderException ResultType = "render_exception"
)

// StatusType classifies a status message.
type StatusType string

const (
	StatusNormal StatusType = "normal"
	StatusError  StatusType = "error"
)

// ErrorInfo describes a failed callback in a response message.
type ErrorInfo struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// Message is an outbound record. Only the fields relevant to Command are
// encoded; Resources lists assets the client must load before the message
// and is never encoded itself.
type Message struct {
	Command    string
	Value      any
	Type       string
	HTML       string
	Error      *ErrorInfo
	ResponseID json.RawMessage
	Lib        map[string]CallbackID
	NavID      string
	EvalID     int64
	Resources  []string
}

// Echo repeats a submitted expression back to the client.
func Echo(value string) Message {
	return Message{Command: CommandEcho, Value: value}
}

// Result carries the rendered outcome of an evaluation.
func Result(value any, typ ResultType) Message {
	return Message{Command: CommandResult, Value: value, Type: string(typ)}
}

// Status updates the status line.
func Status(typ StatusType, value string) Message {
	return Message{Command: CommandStatus, Value: value, Type: string(typ)}
}

// SetMode replaces the prompt area with html.
func SetMode(html string) Message {
	return Message{Command: CommandSetMode, HTML: html}
}

// SetNav replaces the navigation bar. navID names the thread it belongs to.
func SetNav(html, navID string) Message {
	return Message{Command: CommandSetNav, Value: html, NavID: navID}
}

// Resource asks the client to load a script or stylesheet.
func Resource(value string) Message {
	return Message{Command: CommandResource, Value: value}
}

// Response answers a callback invocation identified by responseID.
func Response(responseID json.RawMessage, value any) Message {
	return Message{Command: CommandResponse, Value: value, ResponseID: responseID}
}

// ResponseError reports a failed callback. The error type is the innermost
// wrapped error's dynamic type.
func ResponseError(responseID json.RawMessage, err error) Message {
	inner := err
	for {
		next := errors.Unwrap(inner)
		if next == nil {
			break
		}
		inner = next
	}
	return Message{
		Command:    CommandResponse,
		ResponseID: responseID,
		Error:      &ErrorInfo{Type: fmt.Sprintf("%T", inner), Message: err.Error()},
	}
}

// SetLib sends the table of callable ids the client may invoke.
func SetLib(lib map[string]CallbackID) Message {
	return Message{Command: CommandSetLib, Lib: lib}
}

// WithEvalID returns a copy of m attributed to the given evaluation.
func (m Message) WithEvalID(id int64) Message {
	m.EvalID = id
	return m
}

// WithResources returns a copy of m that requires the given resources.
func (m Message) WithResources(resources ...string) Message {
	m.Resources = append(append([]string(nil), m.Resources...), resources...)
	return m
}

// MarshalJSON encodes only the fields meaningful for m.Command.
func (m Message) MarshalJSON() ([]byte, error) {
	out := map[string]any{"command": m.Command}

	switch m.Command {
	case CommandEcho, CommandResource:
		out["value"] = m.Value
	case CommandResult, CommandStatus:
		out["value"] = m.Value
		out["type"] = m.Type
	case CommandSetMode:
		out["html"] = m.HTML
	case CommandSetNav:
		out["value"] = m.Value
		if m.NavID != "" {
			out["navid"] = m.NavID
		}
	case CommandResponse:
		if m.Error != nil {
			out["error"] = m.Error
		} else {
			out["value"] = m.Value
		}
		if len(m.ResponseID) > 0 {
			out["response_id"] = m.ResponseID
		} else {
			out["response_id"] = nil
		}
	case CommandSetLib:
		out["lib"] = m.Lib
	default:
		if m.Value != nil {
			out["value"] = m.Value
		}
		if m.Type != "" {
			out["type"] = m.Type
		}
	}

	if m.EvalID > 0 {
		out["evalid"] = m.EvalID
	}
	return json.Marshal(out)
}

// String summarizes m for logs.
func (m Message) String() string {
	return fmt.Sprintf("Message{Command: %s, Type: %s, EvalID: %d}", m.Command, m.Type, m.EvalID)
}
