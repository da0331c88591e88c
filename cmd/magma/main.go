package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/seantiz/magma/internal/api"
	"github.com/seantiz/magma/internal/config"
	"github.com/seantiz/magma/internal/metrics"
	"github.com/seantiz/magma/internal/store"
	"github.com/seantiz/magma/internal/stress"
	"github.com/seantiz/magma/internal/stress/devshm"
	"github.com/seantiz/magma/internal/stress/pthread"
)

func main() {
	cfg := config.Load()

	stressors := flag.String("stressors", cfg.Stressors, "comma-separated stressors to run (pthread, devshm)")
	instances := flag.Int("instances", cfg.Instances, "parallel instances of each stressor")
	pthreadMax := flag.Uint64("pthread-max", cfg.PthreadMax, "threads per iteration for the pthread stressor")
	maxOps := flag.Uint64("ops", cfg.MaxOps, "stop each instance after this many operations (0 = unlimited)")
	timeout := flag.Duration("timeout", cfg.Timeout, "stop the whole run after this duration (0 = run until ops cap or signal)")
	metricsAddr := flag.String("metrics-addr", cfg.MetricsAddr, "listen address for /metrics and /v1/runs (empty = disabled)")
	dbPath := flag.String("db", cfg.DBPath, "path to the run history database")
	flag.Parse()

	if *pthreadMax < pthread.MinThreads || *pthreadMax > pthread.MaxThreads {
		log.Fatalf("pthread-max must be in range [%d, %d]", pthread.MinThreads, pthread.MaxThreads)
	}
	if *instances < 1 {
		log.Fatal("instances must be at least 1")
	}

	logger := config.NewLogger(os.Stdout, cfg.LogLevel)

	names := strings.Split(*stressors, ",")
	for i := range names {
		names[i] = strings.TrimSpace(names[i])
	}

	logger.Info("magma: starting",
		"stressors", names,
		"instances", *instances,
		"pthread_max", *pthreadMax,
		"ops", *maxOps,
		"timeout", timeout.String(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	db, err := store.Open(ctx, *dbPath)
	if err != nil {
		log.Fatalf("failed to open run database: %v", err)
	}
	defer db.Close()

	reg := stress.NewRegistry()
	reg.Register("pthread", func() stress.Stressor { return pthread.New(int(*pthreadMax)) })
	reg.Register("devshm", func() stress.Stressor { return devshm.New() })

	m := metrics.New(prometheus.DefaultRegisterer)

	srvDone := make(chan error, 1)
	if *metricsAddr != "" {
		srv := api.NewServer(*metricsAddr, db, logger, metrics.NewHTTP(prometheus.DefaultRegisterer))
		go func() {
			srvDone <- srv.Start(ctx)
		}()
	} else {
		close(srvDone)
	}

	runner := stress.NewRunner(reg, db, logger, m)
	runErr := runner.Run(ctx, names, *instances, *maxOps)

	// The run is over; release the signal context so the server winds down.
	stop()
	select {
	case err := <-srvDone:
		if err != nil {
			logger.Error("observability server", "error", err)
		}
	case <-time.After(15 * time.Second):
		logger.Error("observability server did not stop in time")
	}

	if runErr != nil {
		logger.Error("stress run failed", "error", runErr)
		db.Close()
		os.Exit(1)
	}
	logger.Info("stress run complete")
}
