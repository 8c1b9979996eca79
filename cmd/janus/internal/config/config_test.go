package config

import (
	"path/filepath"
	"testing"
)

func TestLoadFromMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Link.Network != "tcp" || cfg.Link.BitsPerSecond != 300 {
		t.Errorf("defaults = %+v; want tcp at 300 bps", cfg.Link)
	}
	if cfg.VAD.Backend != "rms" {
		t.Errorf("default vad = %q; want rms", cfg.VAD.Backend)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	want := Default()
	want.Link.Network = "udp"
	want.Link.BitsPerSecond = 1200
	want.Models.ASR = []string{"whisper-cli", "--rate", "{rate}"}
	want.WSAddr = "127.0.0.1:8900"

	if err := Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if got.Link.Network != "udp" || got.Link.BitsPerSecond != 1200 {
		t.Errorf("link = %+v; want udp at 1200", got.Link)
	}
	if len(got.Models.ASR) != 3 || got.Models.ASR[2] != "{rate}" {
		t.Errorf("asr argv = %v; want placeholder preserved", got.Models.ASR)
	}
	if got.WSAddr != want.WSAddr {
		t.Errorf("ws addr = %q; want %q", got.WSAddr, want.WSAddr)
	}
}

func TestPartialFileKeepsOtherDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	partial := Default()
	partial.Link.Addr = "10.0.0.2:7300"
	if err := Save(path, partial); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if got.Link.Addr != "10.0.0.2:7300" {
		t.Errorf("addr = %q; want overridden value", got.Link.Addr)
	}
	if got.Audio.ChunkSamples != 1536 {
		t.Errorf("chunk samples = %d; want default 1536", got.Audio.ChunkSamples)
	}
}
