package reflux

import (
	"errors"
	"testing"
)

type codecTestAction struct {
	Kind   string `json:"kind" yaml:"kind"`
	Amount int    `json:"amount" yaml:"amount"`
}

func TestJSONCodec_Unmarshal(t *testing.T) {
	codec := JSONCodec{}

	var a codecTestAction
	if err := codec.Unmarshal([]byte(`{"kind": "increment", "amount": 5}`), &a); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if a.Kind != "increment" {
		t.Errorf("expected kind 'increment', got %q", a.Kind)
	}
	if a.Amount != 5 {
		t.Errorf("expected amount 5, got %d", a.Amount)
	}
}

func TestJSONCodec_UnmarshalInvalid(t *testing.T) {
	var a codecTestAction
	if err := (JSONCodec{}).Unmarshal([]byte(`{not valid json}`), &a); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestYAMLCodec_Unmarshal(t *testing.T) {
	codec := YAMLCodec{}

	var a codecTestAction
	if err := codec.Unmarshal([]byte("kind: decrement\namount: 3"), &a); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if a.Kind != "decrement" {
		t.Errorf("expected kind 'decrement', got %q", a.Kind)
	}
	if a.Amount != 3 {
		t.Errorf("expected amount 3, got %d", a.Amount)
	}
}

func TestYAMLCodec_AcceptsJSON(t *testing.T) {
	var a codecTestAction
	if err := (YAMLCodec{}).Unmarshal([]byte(`{"kind": "reset", "amount": 0}`), &a); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if a.Kind != "reset" {
		t.Errorf("expected kind 'reset', got %q", a.Kind)
	}
}

func TestCodec_ContentType(t *testing.T) {
	if ct := (JSONCodec{}).ContentType(); ct != "application/json" {
		t.Errorf("expected 'application/json', got %q", ct)
	}
	if ct := (YAMLCodec{}).ContentType(); ct != "application/x-yaml" {
		t.Errorf("expected 'application/x-yaml', got %q", ct)
	}
}

func TestCodecFor(t *testing.T) {
	tests := []struct {
		format   string
		expected string
	}{
		{"json", "application/json"},
		{"JSON", "application/json"},
		{"yaml", "application/x-yaml"},
		{"yml", "application/x-yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			codec, err := CodecFor(tt.format)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if codec.ContentType() != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, codec.ContentType())
			}
		})
	}
}

func TestCodecFor_Unknown(t *testing.T) {
	_, err := CodecFor("toml")
	if !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}
