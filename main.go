package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"DistCount/internal/assembler"
	"DistCount/internal/config"
	"DistCount/internal/coordinator"
	"DistCount/internal/discovery"
	httpserver "DistCount/internal/http"
	"DistCount/internal/storage"
	"DistCount/internal/worker"
	"DistCount/internal/wordcount"
)

func main() {
	mode := flag.String("mode", "launcher", "Mode: 'launcher' runs driver and workers, 'driver' or 'worker' runs a single role")
	cfgPath := flag.String("config", "", "Path to YAML config file (built-in defaults when empty)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	switch *mode {
	case "launcher":
		runLauncher(cfg)
	case "driver":
		if err := runDriver(cfg); err != nil {
			log.Fatalf("Driver failed: %v", err)
		}
	case "worker":
		if err := runWorker(cfg, 0); err != nil {
			log.Fatalf("Worker failed: %v", err)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown mode: %s\n", *mode)
		os.Exit(1)
	}
}

// runLauncher starts the driver and a staggered pool of workers in one
// process and waits for the job to drain.
func runLauncher(cfg *config.Config) {
	log.Printf("Starting driver and %d workers...", cfg.Workers.Count)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := runDriver(cfg); err != nil {
			log.Fatalf("Driver failed: %v", err)
		}
	}()

	// Give the driver a moment to bind before workers start polling.
	time.Sleep(500 * time.Millisecond)

	for i := 0; i < cfg.Workers.Count; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if err := runWorker(cfg, n); err != nil {
				log.Printf("Worker %d exited with error: %v", n, err)
			}
		}(i)
		time.Sleep(cfg.Workers.Stagger.Std())
	}

	wg.Wait()
	log.Println("Job finished")
}

// runDriver prepares the job, serves the worker protocol until every task is
// completed, then assembles the final results file.
func runDriver(cfg *config.Config) error {
	coord := coordinator.New(cfg)
	if err := coord.Start(); err != nil {
		return err
	}

	if cfg.Discovery.Enabled {
		pool, err := discovery.Join(discovery.Config{
			Name:     "driver",
			BindAddr: cfg.Discovery.BindAddr,
			BindPort: cfg.Discovery.BasePort,
		})
		if err != nil {
			return err
		}
		defer pool.Leave(time.Second)
		coord.SetPool(pool)
	}

	server := httpserver.NewServer(httpserver.ServerOpts{
		ID:   "driver",
		Addr: fmt.Sprintf("%s:%d", cfg.Driver.Host, cfg.Driver.Port),
	}, coord)
	if err := server.Start(); err != nil {
		return err
	}

	if err := assembler.Merge(coord.OutputStore(), coord.NumReduceTasks()); err != nil {
		return fmt.Errorf("failed to assemble results: %w", err)
	}
	log.Printf("Results written to %s", cfg.Directories.Output)
	return nil
}

// runWorker runs one worker against the configured driver address until the
// job is done.
func runWorker(cfg *config.Config, n int) error {
	if cfg.Discovery.Enabled {
		pool, err := discovery.Join(discovery.Config{
			Name:     fmt.Sprintf("worker-%d", n),
			BindAddr: cfg.Discovery.BindAddr,
			BindPort: cfg.Discovery.BasePort + 1 + n,
			JoinAddrs: []string{
				fmt.Sprintf("%s:%d", cfg.Discovery.BindAddr, cfg.Discovery.BasePort),
			},
		})
		if err != nil {
			return err
		}
		defer pool.Leave(time.Second)
	}

	app := wordcount.New()
	w := worker.New(worker.Opts{
		DriverURL:    cfg.DriverURL(),
		Mapper:       app,
		Reducer:      app,
		Intermediate: storage.NewStore(cfg.Directories.Intermediate),
		Output:       storage.NewStore(cfg.Directories.Output),
		PollInterval: cfg.TaskSettings.PollInterval.Std(),
	})
	return w.Run()
}
