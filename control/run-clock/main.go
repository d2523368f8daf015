package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JMBoggess/Split-Flap-Clock/control/button"
	"github.com/JMBoggess/Split-Flap-Clock/control/clock"
	"github.com/JMBoggess/Split-Flap-Clock/control/flap"
	"github.com/JMBoggess/Split-Flap-Clock/control/hw"
	"github.com/JMBoggess/Split-Flap-Clock/control/journal"
	"github.com/JMBoggess/Split-Flap-Clock/control/led"
	"github.com/JMBoggess/Split-Flap-Clock/control/modes"
	"github.com/JMBoggess/Split-Flap-Clock/control/scheduler"
	"github.com/JMBoggess/Split-Flap-Clock/control/settings"
	"github.com/JMBoggess/Split-Flap-Clock/control/setup"
	"github.com/JMBoggess/Split-Flap-Clock/control/shiftreg"
	"github.com/JMBoggess/Split-Flap-Clock/control/wifi"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/host/v3"
)

// hardware is everything attached to the GPIO header.
type hardware struct {
	bus        flap.Bus
	park       func() error
	sensors    []hw.Pin
	led        hw.Pin
	configBtn  hw.Pin
	setTimeBtn hw.Pin
}

func openHardware(cfg *config) (*hardware, error) {
	if cfg.Fake {
		rig := hw.NewRig(len(cfg.Hall))
		registers := (len(cfg.Hall) + 1) / 2
		return &hardware{
			bus:        rig,
			park:       func() error { return rig.Write(make([]byte, registers)) },
			sensors:    rig.Sensors(),
			led:        hw.NewSim("led", gpio.Low),
			configBtn:  hw.NewSim("config-button", gpio.High),
			setTimeBtn: hw.NewSim("set-time-button", gpio.High),
		}, nil
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph.io: %w", err)
	}
	var outs [4]hw.Pin
	for i, name := range []string{cfg.ClockPin, cfg.LatchPin, cfg.SerialPin, cfg.LEDPin} {
		p, err := hw.OpenOutput(name)
		if err != nil {
			return nil, err
		}
		outs[i] = p
	}
	sensors, err := hw.OpenInputs(cfg.Hall)
	if err != nil {
		return nil, err
	}
	buttons, err := hw.OpenInputs([]string{cfg.ConfigButton, cfg.SetTimeButton})
	if err != nil {
		return nil, err
	}
	bus := &shiftreg.Bus{Clock: outs[0], Latch: outs[1], Serial: outs[2], Registers: (len(sensors) + 1) / 2}
	return &hardware{
		bus:        bus,
		park:       bus.Park,
		sensors:    sensors,
		led:        outs[3],
		configBtn:  buttons[0],
		setTimeBtn: buttons[1],
	}, nil
}

func alphabets(n int) []flap.Alphabet {
	result := make([]flap.Alphabet, n)
	for i := range result {
		result[i] = flap.Digits
	}
	if n == 5 {
		result[4] = flap.WeekdayMeridiem
	}
	return result
}

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	board, err := openHardware(cfg)
	if err != nil {
		log.Fatalf("open hardware: %v", err)
	}
	engine, err := flap.NewEngine(board.bus, board.sensors, alphabets(len(board.sensors)))
	if err != nil {
		log.Fatalf("init display: %v", err)
	}
	light, err := led.New(board.led)
	if err != nil {
		log.Fatalf("init led: %v", err)
	}

	store, err := settings.Open(cfg.Settings)
	if err != nil {
		log.Fatalf("open settings: %v", err)
	}
	db, err := journal.OpenDatabase(cfg.Journal)
	if err != nil {
		log.Fatalf("open journal: %v", err)
	}

	cl := clock.New()
	if err := cl.LoadLocation(store.Current().Timezone); err != nil {
		log.Printf("using UTC: %v", err)
	}

	network := wifi.NewManager(wifi.ExecRunner{}, cfg.Interface)
	events := scheduler.NewEvents()
	activities := &modes.Modes{
		LED:     light,
		Network: network,
		Setup: &setup.Server{
			Settings: store,
			Networks: network,
			Journal:  db,
			Clock:    cl,
			Exit:     events.ConfigExit,
		},
		SetupAddr: cfg.SetupAddr,
		Settings:  store,
		Clock:     cl,
		Journal:   db,
		Display:   engine,
		SyncerFor: syncerFor(cfg, cl),
	}
	sched := scheduler.New(events, activities, cl)

	http.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/display.png", http.StatusFound)
	})
	http.Handle("/display.png", engine)
	http.Handle("/metrics", promhttp.Handler())
	httpServer := &http.Server{Addr: cfg.Bind}

	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("http server listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server died: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		tctx, c := context.WithTimeout(context.Background(), time.Second)
		defer c()
		return httpServer.Shutdown(tctx)
	})
	for _, m := range []*button.Monitor{
		{Name: "config", Pin: board.configBtn, Click: events.ConfigClick, LongClick: events.ConfigCancel},
		{Name: "set-time", Pin: board.setTimeBtn, Click: events.SetTimeClick, LongClick: events.SetTimeCancel},
	} {
		g.Go(func() error { return m.Run(ctx) })
	}
	g.Go(func() error { return sched.Run(ctx) })

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	g.Go(func() error {
		select {
		case <-sigCh:
			log.Printf("interrupt")
			cancel()
		case <-ctx.Done():
		}
		return nil
	})

	err = g.Wait()
	signal.Stop(sigCh)
	cancel()
	if err := board.park(); err != nil {
		log.Printf("park motors: %v", err)
	}
	if err := light.Off(); err != nil {
		log.Printf("led off: %v", err)
	}
	if err := db.Close(); err != nil {
		log.Printf("close journal: %v", err)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("clock died: %v", err)
	}
	os.Exit(1)
}
