package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kingrea/coursenobi/internal/apperrors"
	"github.com/kingrea/coursenobi/internal/catalog"
	"github.com/kingrea/coursenobi/internal/config"
	"github.com/kingrea/coursenobi/internal/logging"
	"github.com/kingrea/coursenobi/internal/planner"
	"github.com/kingrea/coursenobi/internal/planner/engine"
	"github.com/kingrea/coursenobi/internal/render"
	"github.com/kingrea/coursenobi/internal/tui"
)

type scheduleFlags struct {
	config          string
	request         string
	catalog         string
	required        string
	completed       string
	capacity        int
	maxCombinations int
	remaps          keyValueFlag
	format          string
	interactive     bool
	save            string
}

func (c *cli) schedule(ctx context.Context, args []string) int {
	var f scheduleFlags
	fs := flag.NewFlagSet("schedule", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.StringVar(&f.config, "config", "", "config file (default coursenobi.yaml or $COURSENOBI_CONFIG)")
	fs.StringVar(&f.request, "request", "", "request file (YAML or JSON); read from stdin when omitted")
	fs.StringVar(&f.catalog, "catalog", "", "catalog file; replaces any catalog inside the request")
	fs.StringVar(&f.required, "required", "", "comma-separated required courses (overrides the request)")
	fs.StringVar(&f.completed, "completed", "", "comma-separated completed courses (overrides the request)")
	fs.IntVar(&f.capacity, "capacity", 0, "max courses per quarter (overrides the request)")
	fs.IntVar(&f.maxCombinations, "max-combinations", 0, "ceiling on OR combinations evaluated")
	fs.Var(&f.remaps, "remap", "department remap KEY=VALUE (repeatable)")
	fs.StringVar(&f.format, "format", "text", "output format: text, json or yaml")
	fs.BoolVar(&f.interactive, "interactive", false, "browse the schedule in a terminal viewer")
	fs.StringVar(&f.save, "save", "", "directory to store the run result in")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	format, err := render.ParseFormat(f.format)
	if err != nil {
		return c.fail(render.FormatText, err)
	}
	cfg, err := loadConfig(f.config, f.remaps)
	if err != nil {
		return c.fail(format, err)
	}
	logger, closeLog, err := logging.New(cfg.Logging, c.stderr)
	if err != nil {
		return c.fail(format, err)
	}
	defer closeLog()

	req, err := c.readRequest(f)
	if err != nil {
		return c.fail(format, err)
	}
	cat, catalogWarnings, err := loadCatalog(f.catalog, &req, cfg, logger)
	if err != nil {
		return c.fail(format, err)
	}

	opts := []engine.Option{
		engine.WithCatalog(cat),
		engine.WithDepartments(cfg.DepartmentTable()),
		engine.WithDefaults(cfg.Scheduling.MaxCoursesPerQuarter, cfg.Scheduling.MaxCombinations),
		engine.WithLogger(logger),
	}
	if f.save != "" {
		opts = append(opts, engine.WithStore(engine.NewRepository(f.save)))
	}
	eng := engine.New(opts...)

	result, err := eng.Run(ctx, req)
	result.Warnings = append(catalogWarnings, result.Warnings...)
	if format == render.FormatText {
		c.warn(result.Warnings)
	}
	if f.save != "" {
		c.note("saved run %s to %s", result.RunID, f.save)
	}
	if err != nil {
		return c.fail(format, err)
	}

	if f.interactive {
		if err := tui.Run(result, tui.WithCatalog(eng.Catalog())); err != nil {
			return c.fail(render.FormatText, err)
		}
		return exitOK
	}
	if err := render.Result(c.stdout, result, format); err != nil {
		return c.fail(render.FormatText, err)
	}
	return exitOK
}

// readRequest loads the request from -request or stdin, then applies the
// command-line overrides. Stdin is skipped when it is a terminal.
func (c *cli) readRequest(f scheduleFlags) (planner.Request, error) {
	var req planner.Request
	switch {
	case f.request != "":
		loaded, err := planner.LoadRequestFile(f.request)
		if err != nil {
			return req, err
		}
		req = loaded
	case !interactiveStdin(c.stdin):
		data, err := io.ReadAll(c.stdin)
		if err != nil {
			return req, fmt.Errorf("read stdin: %w", err)
		}
		if len(bytes.TrimSpace(data)) > 0 {
			parsed, err := planner.ParseRequest(data)
			if err != nil {
				return req, err
			}
			req = parsed
		}
	}

	if strings.TrimSpace(f.required) != "" {
		req.RequiredCourses = splitCourses(f.required)
	}
	if strings.TrimSpace(f.completed) != "" {
		req.CompletedCourses = splitCourses(f.completed)
	}
	if f.capacity != 0 {
		req.MaxCoursesPerQuarter = f.capacity
	}
	if f.maxCombinations != 0 {
		req.MaxCombinations = f.maxCombinations
	}
	if len(req.RequiredCourses) == 0 {
		return req, apperrors.New(apperrors.KindInvalidRequest, "required_courses",
			"no request: pass -request FILE, pipe one on stdin, or use -required")
	}
	return req, nil
}

// loadCatalog builds the catalog up front, from -catalog, the request's
// inline records or the configured catalog file, so the viewer can show
// course titles.
func loadCatalog(path string, req *planner.Request, cfg config.Config, logger zerolog.Logger) (*catalog.Catalog, []apperrors.Warning, error) {
	opts := catalog.Options{Departments: cfg.DepartmentTable(), Logger: logger}
	if path == "" && len(req.Catalog) > 0 {
		cat, warnings := catalog.Build(req.Catalog, opts)
		req.Catalog = nil
		return cat, warnings, nil
	}
	if path == "" {
		path = cfg.Catalog
	}
	if path == "" {
		return nil, nil, apperrors.New(apperrors.KindInvalidRequest, "catalog",
			"no catalog: pass -catalog FILE or include one in the request")
	}
	cat, warnings, err := catalog.LoadFile(path, opts)
	if err != nil {
		return nil, nil, err
	}
	req.Catalog = nil
	logger.Debug().Str("path", path).Int("courses", cat.Len()).Int("warnings", len(warnings)).Msg("catalog loaded")
	return cat, warnings, nil
}
