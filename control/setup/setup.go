// Package setup serves the pages used to configure the clock while it runs its own access point.
package setup

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/JMBoggess/Split-Flap-Clock/control/event"
	"github.com/JMBoggess/Split-Flap-Clock/control/journal"
	"github.com/JMBoggess/Split-Flap-Clock/control/settings"
)

var (
	//go:embed pages.html.tmpl
	pagesHTML string
	funcMap   = template.FuncMap{
		"date":   formatDate,
		"local":  formatLocal,
		"offset": formatOffset,
	}
	pages = template.Must(template.New("pages").Funcs(funcMap).Parse(pagesHTML))
)

// datetimeLocal is the value format of an HTML datetime-local input.
const datetimeLocal = "2006-01-02T15:04"

// Zones are offered on the set-time form, along with whatever zone is configured.
var Zones = []string{
	"UTC",
	"America/New_York",
	"America/Chicago",
	"America/Denver",
	"America/Phoenix",
	"America/Los_Angeles",
	"America/Anchorage",
	"Pacific/Honolulu",
	"Europe/London",
	"Europe/Berlin",
	"Asia/Tokyo",
	"Australia/Sydney",
}

func formatDate(t time.Time) string { return t.Format("Mon Jan 2 2006 3:04:05 PM MST") }

func formatLocal(t time.Time) string { return t.Format(datetimeLocal) }

func formatOffset(d time.Duration) string {
	switch {
	case d == 0:
		return "no correction applied"
	case d < 0:
		return fmt.Sprintf("system clock %s fast", (-d).String())
	default:
		return fmt.Sprintf("system clock %s slow", d.String())
	}
}

// Settings is where submitted settings are kept.
type Settings interface {
	Current() settings.Settings
	Apply(ssid, password string, ntpEnabled bool, timezone *string) error
	SetTimezone(tz string) error
}

// Scanner lists the wifi networks in range.
type Scanner interface {
	Scan(ctx context.Context) ([]string, error)
}

// Journal is the log of the last time setting run.
type Journal interface {
	LastRun() ([]journal.Entry, error)
}

// Clock is the clock the display shows.
type Clock interface {
	Now() time.Time
	Offset() time.Duration
	Set(t time.Time)
	LoadLocation(name string) error
	Location() *time.Location
}

// Server is the setup web server.  Visiting /exit sets Exit.
type Server struct {
	Settings Settings
	Networks Scanner
	Journal  Journal
	Clock    Clock
	Exit     *event.Event

	mu  sync.Mutex
	srv *http.Server // must hold mu to read or write.
}

// Handler returns the setup pages.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.home)
	mux.HandleFunc("GET /settings", s.settingsForm)
	mux.HandleFunc("POST /settings/configure", s.configure)
	mux.HandleFunc("GET /settime", s.setTimeForm)
	mux.HandleFunc("POST /settime/configure", s.setTime)
	mux.HandleFunc("GET /log", s.showLog)
	mux.HandleFunc("GET /exit", s.exit)
	mux.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		render(w, http.StatusNotFound, "message", message{Title: "Not Found", Message: "Unexpected request", Link: "/", LinkText: "Return to the Home Page"})
	})
	return mux
}

func render(w http.ResponseWriter, code int, name string, data interface{}) {
	w.Header().Set("content-type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		log.Printf("setup: execute template %s: %v", name, err)
	}
}

type message struct {
	Title, Message, Link, LinkText string
}

func (s *Server) home(w http.ResponseWriter, req *http.Request) {
	render(w, http.StatusOK, "home", struct {
		Now    time.Time
		Offset time.Duration
	}{
		Now:    s.Clock.Now().In(s.Clock.Location()),
		Offset: s.Clock.Offset(),
	})
}

func (s *Server) settingsForm(w http.ResponseWriter, req *http.Request) {
	data := struct {
		Settings  settings.Settings
		Networks  []string
		ScanError error
	}{Settings: s.Settings.Current()}
	data.Networks, data.ScanError = s.Networks.Scan(req.Context())
	if cur := data.Settings.SSID; cur != "" {
		var found bool
		for _, n := range data.Networks {
			found = found || n == cur
		}
		if !found {
			data.Networks = append(data.Networks, cur)
		}
	}
	render(w, http.StatusOK, "settings", data)
}

func (s *Server) configure(w http.ResponseWriter, req *http.Request) {
	if err := req.ParseForm(); err != nil {
		render(w, http.StatusBadRequest, "message", message{Title: "Configuration Error", Message: fmt.Sprintf("Error reading the form: %v", err), Link: "/settings", LinkText: "Return to the form"})
		return
	}
	_, hasSSID := req.PostForm["ssid"]
	_, hasPass := req.PostForm["pass"]
	if !hasSSID || !hasPass {
		render(w, http.StatusBadRequest, "message", message{Title: "Configuration Error", Message: "Error: missing expected values from configuration form. Please use below link to return to the form and try again.", Link: "/settings", LinkText: "Return to the form"})
		return
	}
	ntp := req.PostForm.Get("ntp") == "enabled"
	if err := s.Settings.Apply(req.PostForm.Get("ssid"), req.PostForm.Get("pass"), ntp, nil); err != nil {
		log.Printf("setup: apply settings: %v", err)
		render(w, http.StatusInternalServerError, "message", message{Title: "Configuration Error", Message: fmt.Sprintf("Could not save the settings: %v", err), Link: "/settings", LinkText: "Return to the form"})
		return
	}
	render(w, http.StatusOK, "message", message{Title: "Configuration Success", Message: "Configuration file updated successfully.", Link: "/", LinkText: "Home Page"})
}

func (s *Server) zones() (current string, all []string) {
	current = s.Settings.Current().Timezone
	if current == "" {
		current = "UTC"
	}
	all = append(all, Zones...)
	for _, z := range all {
		if z == current {
			return current, all
		}
	}
	all = append(all, current)
	sort.Strings(all[1:])
	return current, all
}

func (s *Server) setTimeForm(w http.ResponseWriter, req *http.Request) {
	zone, zones := s.zones()
	render(w, http.StatusOK, "settime", struct {
		Now   time.Time
		Zone  string
		Zones []string
	}{
		Now:   s.Clock.Now().In(s.Clock.Location()),
		Zone:  zone,
		Zones: zones,
	})
}

func (s *Server) setTime(w http.ResponseWriter, req *http.Request) {
	fail := func(code int, msg string) {
		render(w, code, "message", message{Title: "Set Date Time Error", Message: msg, Link: "/settime", LinkText: "Return to the form"})
	}
	if err := req.ParseForm(); err != nil {
		fail(http.StatusBadRequest, fmt.Sprintf("Error reading the form: %v", err))
		return
	}
	tz := req.PostForm.Get("tz")
	if tz == "" {
		fail(http.StatusBadRequest, "Error: no time zone selected.")
		return
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		fail(http.StatusBadRequest, fmt.Sprintf("Error: unknown time zone %q.", tz))
		return
	}
	t, err := time.ParseInLocation(datetimeLocal, req.PostForm.Get("dt"), loc)
	if err != nil {
		fail(http.StatusBadRequest, fmt.Sprintf("Error: could not read the date and time %q.", req.PostForm.Get("dt")))
		return
	}
	if err := s.Settings.SetTimezone(tz); err != nil {
		log.Printf("setup: save time zone: %v", err)
		fail(http.StatusInternalServerError, fmt.Sprintf("Could not save the time zone: %v", err))
		return
	}
	if err := s.Clock.LoadLocation(tz); err != nil {
		fail(http.StatusInternalServerError, err.Error())
		return
	}
	s.Clock.Set(t)
	render(w, http.StatusOK, "message", message{Title: "Set Date Time Success", Message: fmt.Sprintf("Date and time set to %s.", formatDate(t)), Link: "/", LinkText: "Home Page"})
}

func (s *Server) showLog(w http.ResponseWriter, req *http.Request) {
	entries, err := s.Journal.LastRun()
	for i := range entries {
		entries[i].Date = entries[i].Date.In(s.Clock.Location())
	}
	render(w, http.StatusOK, "log", struct {
		Entries []journal.Entry
		Error   error
	}{entries, err})
}

func (s *Server) exit(w http.ResponseWriter, req *http.Request) {
	render(w, http.StatusOK, "exit", nil)
	s.Exit.Set()
}

// Start listens on addr and serves in the background.
func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	srv := &http.Server{Handler: s.Handler()}
	s.mu.Lock()
	s.srv = srv
	s.mu.Unlock()
	go func() {
		log.Printf("setup server listening on %s", lis.Addr())
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("setup server died: %v", err)
		}
	}()
	return nil
}

// Stop shuts the server down.  It is safe to call when the server is not running.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shut down setup server: %w", err)
	}
	return nil
}
