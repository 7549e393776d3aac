package rpc

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestOKWrapsResult(t *testing.T) {
	env := OK("Cat Service", map[string]string{"name": "Whiskers"})

	if env.Status != http.StatusOK {
		t.Errorf("expected status 200, got %d", env.Status)
	}
	if env.Message != "" {
		t.Errorf("expected empty message, got %q", env.Message)
	}
	if env.Path != "Cat Service" {
		t.Errorf("expected path \"Cat Service\", got %q", env.Path)
	}

	var data map[string]string
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
	if data["name"] != "Whiskers" {
		t.Errorf("expected name Whiskers, got %q", data["name"])
	}
}

func TestOKWithUnencodableResult(t *testing.T) {
	env := OK("Cat Service", make(chan int))

	if env.Status != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", env.Status)
	}
	if env.Message == "" {
		t.Error("expected a failure message")
	}
}

func TestFailCarriesMessageInData(t *testing.T) {
	env := Fail(http.StatusNotFound, "Cat Service", "Cat not found")

	if env.Status != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", env.Status)
	}
	if env.Message != "Cat not found" {
		t.Errorf("expected message \"Cat not found\", got %q", env.Message)
	}

	// The message must also be readable from data so the calling side can
	// reconstruct the error without the top-level field.
	var body errorBody
	if err := json.Unmarshal(env.Data, &body); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
	if body.Message != "Cat not found" {
		t.Errorf("expected data message \"Cat not found\", got %q", body.Message)
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	env := OK("Owner Service", []int64{1, 2, 3})

	raw, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("failed to marshal envelope: %v", err)
	}
	var decoded Envelope
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("failed to unmarshal envelope: %v", err)
	}

	if decoded.Status != env.Status || decoded.Path != env.Path {
		t.Errorf("round trip changed envelope: %+v -> %+v", env, decoded)
	}
	var ids []int64
	if err := json.Unmarshal(decoded.Data, &ids); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
	if len(ids) != 3 || ids[0] != 1 {
		t.Errorf("unexpected ids: %v", ids)
	}
}
