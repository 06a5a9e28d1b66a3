package ffmpeg

import (
	"strings"
	"testing"
	"time"
)

func TestConvertArgs(t *testing.T) {
	tests := []struct {
		rate, channels int
		want           string
	}{
		{44100, 2, "-y -i song.mp3 -vn -ar 44100 -ac 2 -f wav /tmp/song.wav"},
		{16000, 1, "-y -i song.mp3 -vn -ar 16000 -ac 1 -f wav /tmp/song.wav"},
	}
	for _, tt := range tests {
		got := strings.Join(convertArgs("song.mp3", "/tmp/song.wav", tt.rate, tt.channels), " ")
		if got != tt.want {
			t.Fatalf("convertArgs = %q, want %q", got, tt.want)
		}
	}
}

func TestParseDuration(t *testing.T) {
	d, err := parseDuration("12.500000\n")
	if err != nil {
		t.Fatal(err)
	}
	if d != 12500*time.Millisecond {
		t.Fatalf("parseDuration = %v, want 12.5s", d)
	}
	if _, err := parseDuration("N/A"); err == nil {
		t.Fatalf("expected error for N/A")
	}
}
