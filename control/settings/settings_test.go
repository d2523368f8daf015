package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpenMissing(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "settings.json"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	want := Settings{NTPServer: DefaultNTPServer}
	if got := s.Current(); got != want {
		t.Errorf("settings:\n  got: %+v\n want: %+v", got, want)
	}
}

func TestApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	tz := "America/Chicago"
	if err := s.Apply("home", "p@ss word&", true, &tz); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := s.Apply("cabin", "hunter2", false, nil); err != nil {
		t.Fatalf("apply without timezone: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	want := Settings{SSID: "cabin", Password: "hunter2", NTPEnabled: false, NTPServer: DefaultNTPServer, Timezone: "America/Chicago"}
	if got := reopened.Current(); got != want {
		t.Errorf("settings after reopen:\n  got: %+v\n want: %+v", got, want)
	}

	if err := reopened.SetTimezone("Europe/London"); err != nil {
		t.Fatalf("set timezone: %v", err)
	}
	if err := s.Read(); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got, want := s.Current().Timezone, "Europe/London"; got != want {
		t.Errorf("timezone after read:\n  got: %v\n want: %v", got, want)
	}
}

func TestReadExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	content := `{"ssid": "home", "password": "secret", "ntp_enabled": true, "timezone": "Asia/Tokyo"}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	want := Settings{SSID: "home", Password: "secret", NTPEnabled: true, NTPServer: DefaultNTPServer, Timezone: "Asia/Tokyo"}
	if got := s.Current(); got != want {
		t.Errorf("settings:\n  got: %+v\n want: %+v", got, want)
	}
}

func TestReadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Error("expected an error for a corrupt file")
	}
}
