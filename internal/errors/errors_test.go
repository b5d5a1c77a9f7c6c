package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestCode(t *testing.T) {
	cause := errors.New("disk full")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"storage", NewStorageError("save message", cause), CodeStorage},
		{"transport", NewTransportError("send", cause), CodeTransport},
		{"analysis", NewAnalysisError("classify", nil), CodeAnalysis},
		{"validation", NewValidationError("bad payload", nil), CodeValidation},
		{"config", NewConfigError("load", cause), CodeConfig},
		{"wrapped", fmt.Errorf("pipeline: %w", NewStorageError("history", cause)), CodeStorage},
		{"plain", cause, CodeUnknown},
		{"nil", nil, CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Code(tt.err); got != tt.want {
				t.Errorf("Code() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnwrapAndAs(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("orchestrator: %w", NewTransportError("twilio send", cause))

	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to find the cause")
	}

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected errors.As to find *TransportError")
	}
	if te.Error() != "twilio send: connection refused" {
		t.Errorf("unexpected message %q", te.Error())
	}
}
