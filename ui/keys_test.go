package ui

import (
	"testing"

	"github.com/CK6170/Spectro-go/protocol"
)

func TestBindingsMatchCommandBytes(t *testing.T) {
	for _, b := range Bindings {
		if protocol.Command(b.Key) != b.Cmd {
			t.Fatalf("key %q bound to %s", b.Key, b.Cmd)
		}
	}
	if cmd, ok := CommandForKey('j'); !ok || cmd != protocol.ExpStart {
		t.Fatalf("got %v %v", cmd, ok)
	}
	if _, ok := CommandForKey('i'); ok {
		t.Fatal("settings needs a payload")
	}
	if cmd, ok := NeedsPayload('n'); !ok || cmd != protocol.ExpLookup {
		t.Fatalf("got %v %v", cmd, ok)
	}
}
