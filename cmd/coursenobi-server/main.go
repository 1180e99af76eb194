package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/kingrea/coursenobi/internal/catalog"
	"github.com/kingrea/coursenobi/internal/config"
	"github.com/kingrea/coursenobi/internal/logging"
	"github.com/kingrea/coursenobi/internal/planner/engine"
	"github.com/kingrea/coursenobi/internal/server"
)

// recentRuns bounds the in-memory run history served by GET /runs/:id.
const recentRuns = 256

func main() {
	configPath := flag.String("config", "", "config file (default coursenobi.yaml or $COURSENOBI_CONFIG)")
	addr := flag.String("addr", "", "listen address (overrides server.addr)")
	catalogPath := flag.String("catalog", "", "catalog file (overrides catalog)")
	flag.Parse()

	if err := run(*configPath, *addr, *catalogPath); err != nil {
		fmt.Fprintf(os.Stderr, "coursenobi-server: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, addr, catalogPath string) error {
	cfg, err := config.Load(config.Resolve(configPath))
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if catalogPath != "" {
		cfg.Catalog = catalogPath
	}

	logger, closeLog, err := logging.New(cfg.Logging, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	depts := cfg.DepartmentTable()
	opts := []engine.Option{
		engine.WithDepartments(depts),
		engine.WithDefaults(cfg.Scheduling.MaxCoursesPerQuarter, cfg.Scheduling.MaxCombinations),
		engine.WithLogger(logger),
		engine.WithStore(engine.NewMemoryStore(recentRuns)),
	}
	if cfg.Catalog != "" {
		cat, warnings, err := catalog.LoadFile(cfg.Catalog, catalog.Options{Departments: depts, Logger: logger})
		if err != nil {
			return err
		}
		for _, w := range warnings {
			logger.Warn().Str("kind", string(w.Kind)).Str("subject", w.Subject).Msg(w.Message)
		}
		logger.Info().Str("path", cfg.Catalog).Int("courses", cat.Len()).Msg("catalog loaded")
		opts = append(opts, engine.WithCatalog(cat))
	} else {
		logger.Warn().Msg("no catalog configured; requests must carry their own")
	}

	gin.SetMode(gin.ReleaseMode)
	srv := server.New(engine.New(opts...), server.WithLogger(logger), server.WithAddr(cfg.Server.Addr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}
