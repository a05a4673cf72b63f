// Package protocol defines the records exchanged between the browser client
// and the session: inbound Commands decoded from client frames and outbound
// Messages encoded for delivery. Every frame is a JSON object discriminated
// by its "command" field.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind discriminates inbound command records.
type Kind string

const (
	// KindSubmit is the raw client form of an entered line.
	KindSubmit Kind = "submit"
	// KindCallback invokes a registered callback on the server.
	KindCallback Kind = "callback"

	// Records routed through the inbound queue or the directive table.
	KindExpr    Kind = "expr"
	KindNoop    Kind = "noop"
	KindAttach  Kind = "attach"
	KindDetach  Kind = "detach"
	KindKill    Kind = "kill"
	KindRestart Kind = "restart"
)

// CallbackID identifies a registered callback. Clients send it either as a
// JSON number or as a numeric string.
type CallbackID int64

func (id *CallbackID) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: callback id %s", ErrMalformed, data)
	}
	*id = CallbackID(n)
	return nil
}

// Command is a single inbound record. It is treated as immutable once
// enqueued.
type Command struct {
	Kind       Kind              `json:"command"`
	Expr       string            `json:"expr,omitempty"`
	ID         CallbackID        `json:"id,omitempty"`
	ResponseID json.RawMessage   `json:"response_id,omitempty"`
	Arguments  []json.RawMessage `json:"arguments,omitempty"`
}

// Expr builds an expression record for the inbound queue.
func Expr(expr string) Command {
	return Command{Kind: KindExpr, Expr: expr}
}

// Noop builds the record injected on bind to wake a blocked prompt.
func Noop() Command {
	return Command{Kind: KindNoop}
}

// Decode parses a client frame.
func Decode(data []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if cmd.Kind == "" {
		return Command{}, ErrMissingCommand
	}
	return cmd, nil
}
