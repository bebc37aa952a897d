package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"EOrders/app/api"
	"EOrders/app/config"
	"EOrders/app/database"
	"EOrders/app/services"
	"EOrders/app/websocket"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// App struct
type App struct {
	ctx     context.Context
	dataDir string
	cfg     *config.AppConfig

	LoggerService    *services.LoggerService
	StoreService     *services.StoreService
	Metrics          *services.Metrics
	PrinterService   *services.PrinterService
	OrderService     *services.OrderService
	ShiftService     *services.ShiftService
	SchedulerService *services.SchedulerService
	FeedServer       *websocket.Server
}

// NewApp creates a new App application struct
func NewApp(dataDir string) *App {
	return &App{dataDir: dataDir}
}

// startup loads the configuration, opens storage and wires the services
func (a *App) startup(ctx context.Context) error {
	a.ctx = ctx

	if a.dataDir == "" {
		dir, err := config.GetDataDir()
		if err != nil {
			return fmt.Errorf("failed to resolve data directory: %w", err)
		}
		a.dataDir = dir
	}

	exists, err := config.ConfigExists(a.dataDir)
	if err != nil {
		return err
	}
	if !exists {
		if _, err := config.CreateDefaultConfig(a.dataDir); err != nil {
			return fmt.Errorf("failed to create default config: %w", err)
		}
	}
	cfg, err := config.LoadConfig(a.dataDir)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.LoggerService = services.NewLoggerService(services.LoggerOptions{
		Dir:     config.ResolvePath(a.dataDir, cfg.Log.Dir),
		Level:   cfg.Log.Level,
		Console: cfg.Log.Console,
	})
	a.LoggerService.LogInfo("Starting e-Orders", "Data directory: "+a.dataDir)

	if err := database.Initialize(cfg.Storage, a.dataDir); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	a.StoreService = services.NewStoreService(database.NewBlobStore(database.GetDB()), a.LoggerService.Logger("store"))

	if cfg.FirstRun {
		if _, err := a.StoreService.SeedDefaults(cfg.Tables.InitialCount, cfg.Tables.NamePrefix); err != nil {
			return fmt.Errorf("failed to seed default data: %w", err)
		}
		if err := config.MarkSetupComplete(a.dataDir); err != nil {
			a.LoggerService.LogWarning("Could not mark setup complete", err.Error())
		}
	}

	a.Metrics = services.NewMetrics()
	a.PrinterService = services.NewPrinterService(a.StoreService, services.PrinterDefaults{
		Codepage:    cfg.Printer.Codepage,
		SettleDelay: time.Duration(cfg.Printer.SettleDelayMs) * time.Millisecond,
		Timeout:     time.Duration(cfg.Printer.TimeoutMs) * time.Millisecond,
		FeedLines:   cfg.Printer.FeedLines,
		TopProducts: cfg.Printer.TopProducts,
	}, a.LoggerService.Logger("printer"), a.Metrics)

	a.OrderService = services.NewOrderService(a.StoreService, a.PrinterService, a.LoggerService.Logger("ledger"), a.Metrics)
	a.ShiftService = services.NewShiftService(a.OrderService, a.StoreService, a.PrinterService, cfg.Printer.TopProducts, a.LoggerService.Logger("shift"))
	if _, ok := a.StoreService.LoadShiftStart(); !ok {
		if err := a.StoreService.SaveShiftStart(time.Now()); err != nil {
			a.LoggerService.LogWarning("Could not record shift start", err.Error())
		}
	}
	return nil
}

// startBackground starts the HTTP listener (bar feed, catch-up and waiter
// endpoints) and the maintenance scheduler
func (a *App) startBackground() {
	if a.cfg.Feed.Enabled {
		routes := websocket.NewRESTHandlers(a.OrderService, a.StoreService).Routes()
		waiter := api.NewWaiterHandlers(a.OrderService, a.ShiftService, a.PrinterService, a.StoreService, a.LoggerService.Logger("api"))
		for pattern, h := range waiter.Routes() {
			routes[pattern] = h
		}
		if a.cfg.Feed.MetricsPath != "" {
			routes[a.cfg.Feed.MetricsPath] = a.Metrics.Handler()
		}

		a.FeedServer = websocket.NewServer(websocket.Options{
			Port:              a.cfg.Feed.Port,
			MDNS:              a.cfg.Feed.MDNS,
			InstanceName:      a.cfg.Feed.InstanceName,
			HeartbeatInterval: time.Duration(a.cfg.Feed.HeartbeatSeconds) * time.Second,
			Routes:            routes,
			OnClientCount:     func(n int) { a.Metrics.FeedClients.Set(float64(n)) },
		}, a.LoggerService.Logger("feed"))

		if err := a.FeedServer.Start(); err != nil {
			a.LoggerService.LogError("Bar feed failed to start", err)
			a.FeedServer = nil
		} else {
			a.OrderService.SetFeed(a.FeedServer)
		}
	}

	a.SchedulerService = services.NewSchedulerService(a.LoggerService, a.cfg.Log.RetentionDays, "04:00", a.LoggerService.Logger("scheduler"))
	if err := a.SchedulerService.Start(); err != nil {
		a.LoggerService.LogWarning("Scheduler start error", err.Error())
	}
}

// shutdown stops background work, drains print jobs and closes storage
func (a *App) shutdown() {
	a.LoggerService.LogInfo("Application closing")

	if a.SchedulerService != nil {
		a.SchedulerService.Stop()
	}

	if a.FeedServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.FeedServer.Stop(ctx); err != nil {
			a.LoggerService.LogWarning("Bar feed shutdown error", err.Error())
		}
		cancel()
	}

	if a.PrinterService != nil {
		a.PrinterService.Wait()
	}

	if err := database.Close(); err != nil {
		a.LoggerService.LogError("Error closing database", err)
	} else {
		a.LoggerService.LogInfo("Database connection closed successfully")
	}

	a.LoggerService.LogInfo("Application shutdown complete")
	a.LoggerService.Close()
}

// runTestPrint prints the test receipt on the configured printer
func (a *App) runTestPrint() int {
	result := a.PrinterService.TestPrint(a.ctx)
	if !result.OK {
		fmt.Fprintf(os.Stderr, "test print failed (%s): %s\n", result.Kind, result.Message)
		return 1
	}
	fmt.Println(result.Message)
	return 0
}

// runDiscover lists network and paired Bluetooth printers
func (a *App) runDiscover(timeout time.Duration) int {
	ctx, cancel := context.WithTimeout(a.ctx, timeout)
	defer cancel()

	found, err := services.DiscoverNetworkPrinters(ctx)
	if err != nil {
		a.LoggerService.LogWarning("Network printer discovery failed", err.Error())
	}
	paired, err := services.DetectBluetoothPrinters(a.ctx)
	if err != nil {
		a.LoggerService.LogInfo("Bluetooth printer discovery unavailable", err.Error())
	}

	for _, p := range append(found, paired...) {
		fmt.Printf("%-10s %-24s %s\n", p.Mode, p.Name, p.Config().Target())
	}
	return 0
}

func main() {
	dataDir := pflag.String("data-dir", "", "application data directory (default: per-user config dir)")
	testPrint := pflag.Bool("test-print", false, "print a test receipt and exit")
	discover := pflag.Duration("discover", 0, "browse for printers for the given duration and exit")
	pflag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := NewApp(*dataDir)
	if err := app.startup(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if app.LoggerService != nil {
			app.LoggerService.Close()
		}
		os.Exit(1)
	}

	code := 0
	switch {
	case *testPrint:
		code = app.runTestPrint()
	case *discover > 0:
		code = app.runDiscover(*discover)
	default:
		app.startBackground()
		app.LoggerService.Logger("main").Info("e-Orders terminal ready",
			zap.Int("open_orders", len(app.OrderService.Orders())),
			zap.Bool("feed", app.FeedServer != nil))
		<-ctx.Done()
	}

	app.shutdown()
	if code != 0 {
		os.Exit(code)
	}
}
