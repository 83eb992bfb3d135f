package ssestream

import (
	"encoding/json"
	"testing"
)

// the wire form of the termination envelope does not depend on payload type
func TestTerminateEnvelope(t *testing.T) {
	for name, env := range map[string]any{
		"any":   Envelope[any]{Status: StatusTerminate},
		"map":   Envelope[map[string]any]{Status: StatusTerminate},
		"slice": Envelope[[]int]{Status: StatusTerminate},
		"ptr":   Envelope[*progress]{Status: StatusTerminate},
		"raw":   Envelope[json.RawMessage]{Status: StatusTerminate},
	} {
		b, err := json.Marshal(env)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if string(b) != string(terminateEnvelope) {
			t.Errorf("%s: got %s want %s", name, b, terminateEnvelope)
		}
	}
}

func TestIsTerminate(t *testing.T) {
	var env Envelope[progress]
	if err := json.Unmarshal(terminateEnvelope, &env); err != nil {
		t.Fatal(err)
	}
	if !env.IsTerminate() {
		t.Error("decoded termination envelope not recognized")
	}

	running := Envelope[progress]{Payload: progress{10}, Status: StatusRunning}
	if running.IsTerminate() {
		t.Error("running envelope reported as termination")
	}
}
