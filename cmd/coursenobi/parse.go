package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kingrea/coursenobi/internal/catalog"
	"github.com/kingrea/coursenobi/internal/course"
	"github.com/kingrea/coursenobi/internal/render"
	"github.com/kingrea/coursenobi/internal/requirement"
)

func (c *cli) parse(args []string) int {
	fs := flag.NewFlagSet("parse", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	configPath := fs.String("config", "", "config file (default coursenobi.yaml or $COURSENOBI_CONFIG)")
	catalogPath := fs.String("catalog", "", "catalog file; when set, tokens must name one of its departments")
	formatFlag := fs.String("format", "text", "output format: text, json or yaml")
	var remaps keyValueFlag
	fs.Var(&remaps, "remap", "department remap KEY=VALUE (repeatable)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	format, err := render.ParseFormat(*formatFlag)
	if err != nil {
		return c.fail(render.FormatText, err)
	}
	text := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if text == "" {
		return c.fail(format, fmt.Errorf(`parse needs a requirement, e.g. coursenobi parse "ICS 31 and (MATH 2A or MATH 5A)"`))
	}
	cfg, err := loadConfig(*configPath, remaps)
	if err != nil {
		return c.fail(format, err)
	}

	depts := cfg.DepartmentTable()
	validator := remapOnly(depts)
	if *catalogPath != "" {
		cat, _, err := catalog.LoadFile(*catalogPath, catalog.Options{Departments: depts, Logger: zerolog.Nop()})
		if err != nil {
			return c.fail(format, err)
		}
		validator = cat.DepartmentTable().Validator()
	}

	expr, err := requirement.ParseStatement(text, validator)
	if err != nil {
		return c.fail(format, err)
	}
	if err := render.Requirement(c.stdout, render.NewParsed(text, expr), format); err != nil {
		return c.fail(render.FormatText, err)
	}
	return exitOK
}

// remapOnly accepts any "DEPT NUMBER" token and applies the remap table. It
// is used when no catalog is at hand to say which departments exist.
func remapOnly(depts *catalog.Departments) requirement.Validator {
	return func(token string) (course.ID, bool) {
		if _, _, ok := course.Parse(token); !ok {
			return "", false
		}
		return depts.NormalizeID(token), true
	}
}
