/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Command thetaagg computes approximate distinct counts over the columns of
// a SQLite table with theta sketches.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/alecthomas/kingpin/v2"
	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	_ "modernc.org/sqlite"

	"github.com/apache/datasketches-aggregation-go/thetaagg"
)

func main() {
	app := kingpin.New("thetaagg", "Approximate distinct counts with theta sketches.")
	app.HelpFlag.Short('h')
	logLevel := app.Flag("log.level", "Only log messages with the given severity or above.").
		Default("info").Enum("debug", "info", "warn", "error")

	addRunCommand(app, logLevel)
	addDescribeCommand(app)

	kingpin.MustParse(app.Parse(os.Args[1:]))
}

func newLogger(lvl string) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = level.NewFilter(logger, levelOption(lvl))
	return log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
}

func levelOption(lvl string) level.Option {
	switch lvl {
	case "debug":
		return level.AllowDebug()
	case "warn":
		return level.AllowWarn()
	case "error":
		return level.AllowError()
	default:
		return level.AllowInfo()
	}
}

func addRunCommand(app *kingpin.Application, logLevel *string) {
	var (
		configFile string
		mode       string
		vectorSize int
	)

	cmd := app.Command("run", "Aggregate the configured columns and print the distinct counts.")
	cmd.Flag("config.file", "YAML configuration file.").Required().ExistingFileVar(&configFile)
	cmd.Flag("mode", "Override the configured aggregation mode.").EnumVar(&mode, modeDirect, modeBuffer, modeVector)
	cmd.Flag("vector-size", "Override the configured vector size.").IntVar(&vectorSize)

	cmd.Action(func(_ *kingpin.ParseContext) error {
		logger := newLogger(*logLevel)

		cfg, err := loadConfig(configFile)
		if err != nil {
			return err
		}
		if mode != "" {
			cfg.Mode = mode
		}
		if vectorSize > 0 {
			cfg.VectorSize = vectorSize
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		results, err := runConfig(ctx, cfg, prometheus.NewRegistry(), logger)
		if err != nil {
			level.Error(logger).Log("msg", "aggregation failed", "err", err)
			return err
		}
		return printResults(os.Stdout, results)
	})
}

func addDescribeCommand(app *kingpin.Application) {
	var configFile string

	cmd := app.Command("describe", "Print the aggregation definitions with their cache keys and memory needs.")
	cmd.Flag("config.file", "YAML configuration file.").Required().ExistingFileVar(&configFile)

	cmd.Action(func(_ *kingpin.ParseContext) error {
		cfg, err := loadConfig(configFile)
		if err != nil {
			return err
		}
		factories, err := cfg.factories()
		if err != nil {
			return err
		}
		return describe(os.Stdout, factories)
	})
}

func runConfig(ctx context.Context, cfg Config, reg prometheus.Registerer, logger log.Logger) ([]Result, error) {
	db, err := sql.Open("sqlite", cfg.Database)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	r, err := newRunner(cfg, db, reg, logger)
	if err != nil {
		return nil, err
	}
	return r.run(ctx)
}

func printResults(w io.Writer, results []Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSEGMENTS\tROWS\tVALUE\tFOOTPRINT\tSLOT")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%v\t%s\t%s\n",
			r.Name,
			r.Segments,
			humanize.Comma(r.Rows),
			formatValue(r.Value),
			humanize.Bytes(uint64(r.Footprint)),
			humanize.Bytes(uint64(r.IntermediateSize)),
		)
	}
	return tw.Flush()
}

func formatValue(v any) string {
	switch x := v.(type) {
	case float64:
		return humanize.CommafWithDigits(x, 2)
	case *thetaagg.Holder:
		b, err := x.MarshalBinary()
		if err != nil {
			return x.String()
		}
		return fmt.Sprintf("sketch(%s)", humanize.Bytes(uint64(len(b))))
	default:
		return fmt.Sprint(v)
	}
}

func describe(w io.Writer, factories []*thetaagg.Factory) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDEFINITION\tCACHE KEY\tSLOT\tFOOTPRINT (1M ROWS)")
	for _, f := range factories {
		def, err := f.MarshalJSON()
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\t%x\t%s\t%s\n",
			f.Name(),
			def,
			f.CacheKey(),
			humanize.Bytes(uint64(f.MaxIntermediateSize())),
			humanize.Bytes(uint64(f.GuessAggregatorHeapFootprint(1_000_000))),
		)
	}
	return tw.Flush()
}
