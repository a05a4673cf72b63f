package protocol_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/tailored-agentic-units/sktalk/protocol"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		want    protocol.Command
		wantErr error
	}{
		{
			name:  "submit",
			frame: `{"command":"submit","expr":"1+1"}`,
			want:  protocol.Command{Kind: protocol.KindSubmit, Expr: "1+1"},
		},
		{
			name:  "callback numeric id",
			frame: `{"command":"callback","id":7,"response_id":3,"arguments":[1,"x"]}`,
			want:  protocol.Command{Kind: protocol.KindCallback, ID: 7},
		},
		{
			name:  "callback string id",
			frame: `{"command":"callback","id":"12","response_id":"r1","arguments":[]}`,
			want:  protocol.Command{Kind: protocol.KindCallback, ID: 12},
		},
		{
			name:    "missing command",
			frame:   `{"expr":"1+1"}`,
			wantErr: protocol.ErrMissingCommand,
		},
		{
			name:    "not json",
			frame:   `{`,
			wantErr: protocol.ErrMalformed,
		},
		{
			name:    "bad callback id",
			frame:   `{"command":"callback","id":"abc"}`,
			wantErr: protocol.ErrMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := protocol.Decode([]byte(tt.frame))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Decode() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() unexpected error: %v", err)
			}
			if got.Kind != tt.want.Kind || got.Expr != tt.want.Expr || got.ID != tt.want.ID {
				t.Errorf("Decode() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecode_CallbackFields(t *testing.T) {
	cmd, err := protocol.Decode([]byte(`{"command":"callback","id":1,"response_id":42,"arguments":[1,"two"]}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if string(cmd.ResponseID) != "42" {
		t.Errorf("ResponseID = %s, want 42", cmd.ResponseID)
	}
	if len(cmd.Arguments) != 2 || string(cmd.Arguments[1]) != `"two"` {
		t.Errorf("Arguments = %s, want [1 \"two\"]", cmd.Arguments)
	}
}

func TestMessage_MarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		msg  protocol.Message
		want map[string]any
	}{
		{
			name: "echo",
			msg:  protocol.Echo("1+1"),
			want: map[string]any{"command": "echo", "value": "1+1"},
		},
		{
			name: "result with evalid",
			msg:  protocol.Result("2", protocol.ResultExpression).WithEvalID(5),
			want: map[string]any{"command": "result", "value": "2", "type": "expression", "evalid": float64(5)},
		},
		{
			name: "empty statement result keeps value",
			msg:  protocol.Result("", protocol.ResultStatement),
			want: map[string]any{"command": "result", "value": "", "type": "statement"},
		},
		{
			name: "status",
			msg:  protocol.Status(protocol.StatusError, "boom"),
			want: map[string]any{"command": "status", "type": "error", "value": "boom"},
		},
		{
			name: "set_mode",
			msg:  protocol.SetMode("<span>&gt;&gt;&gt;</span>"),
			want: map[string]any{"command": "set_mode", "html": "<span>&gt;&gt;&gt;</span>"},
		},
		{
			name: "set_lib",
			msg:  protocol.SetLib(map[string]protocol.CallbackID{"stop": 1}),
			want: map[string]any{"command": "set_lib", "lib": map[string]any{"stop": float64(1)}},
		},
		{
			name: "response value",
			msg:  protocol.Response(json.RawMessage(`9`), []string{"a"}),
			want: map[string]any{"command": "response", "value": []any{"a"}, "response_id": float64(9)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.msg)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			var got map[string]any
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("encoded = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResponseError(t *testing.T) {
	base := errors.New("division by zero")
	msg := protocol.ResponseError(json.RawMessage(`"r"`), fmt.Errorf("callback 3: %w", base))

	if msg.Error == nil {
		t.Fatal("Error should be set")
	}
	if msg.Error.Message != "callback 3: division by zero" {
		t.Errorf("Error.Message = %q", msg.Error.Message)
	}
	if msg.Error.Type != "*errors.errorString" {
		t.Errorf("Error.Type = %q, want innermost error type", msg.Error.Type)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if _, hasValue := got["value"]; hasValue {
		t.Error("error response should not carry a value")
	}
}

func TestWithResources_DoesNotAlias(t *testing.T) {
	base := protocol.Result("x", protocol.ResultExpression).WithResources("a.css")
	a := base.WithResources("b.js")
	b := base.WithResources("c.js")

	if len(base.Resources) != 1 || a.Resources[1] != "b.js" || b.Resources[1] != "c.js" {
		t.Errorf("resources aliased: base=%v a=%v b=%v", base.Resources, a.Resources, b.Resources)
	}
}
