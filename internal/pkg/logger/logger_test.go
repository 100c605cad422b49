package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{"DEBUG": DebugLevel, " warn ": WarnLevel, "verbose": InfoLevel, "": InfoLevel}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestConfigureStampsServiceAndComponent(t *testing.T) {
	defer Configure(Config{Level: InfoLevel, Pretty: true})

	var buf bytes.Buffer
	Configure(Config{Level: WarnLevel, Output: &buf, Service: "chat"})

	Info().Msg("filtered")
	if buf.Len() != 0 {
		t.Fatalf("info should be below the warn threshold: %s", buf.String())
	}
	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Fatalf("global level not applied: %s", zerolog.GlobalLevel())
	}

	hub := Component("hub")
	hub.Warn().Msg("slow client")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if line["app"] != "chat" || line["component"] != "hub" || line["message"] != "slow client" {
		t.Fatalf("unexpected line %v", line)
	}
}
