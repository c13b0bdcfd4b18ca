// Package commands implements CLI command handlers for spanplan.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/spanplan/spanplan/pkg/avltree"
	"github.com/spanplan/spanplan/pkg/chunk"
	"github.com/spanplan/spanplan/pkg/config"
	"github.com/spanplan/spanplan/pkg/observability"
	"github.com/spanplan/spanplan/pkg/planner"
	"github.com/spanplan/spanplan/pkg/version"
)

// Input format selectors.
const (
	formatAuto = "auto"
	formatText = "text"
	formatYAML = "yaml"
)

// ErrUnknownFormat is returned for an unsupported --format value.
var ErrUnknownFormat = errors.New("unknown input format: want auto, text, or yaml")

// PlanCommand holds configuration and dependencies for the plan command.
type PlanCommand struct {
	configPath string
	format     string
	store      string
	plotPath   string
	verbose    bool
	noColor    bool
}

// NewPlanCommand creates the plan command.
func NewPlanCommand() *cobra.Command {
	pc := &PlanCommand{}

	cmd := &cobra.Command{
		Use:   "plan <input.yaml|input.txt|->",
		Short: "Solve a chunk cover request",
		Long: `Solve the minimum-cost chunk cover for a request.

The input is either a YAML manifest (total, latency, bandwidth, chunks) or the
plain-text stream format ("total latency bandwidth" header, one "start end"
pair per line). Pass "-" to read the text format from stdin.

Examples:
  spanplan plan request.yaml
  spanplan plan --store list --verbose request.txt
  spanplan plan - < request.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return pc.run(cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&pc.configPath, "config", "", "Config file path")
	cmd.Flags().StringVar(&pc.format, "format", formatAuto, "Input format: auto, text, yaml")
	cmd.Flags().StringVar(&pc.store, "store", "", "Frontier store: list, tree (default from config)")
	cmd.Flags().StringVar(&pc.plotPath, "plot", "", "Write an HTML frontier chart to this path")
	cmd.Flags().BoolVarP(&pc.verbose, "verbose", "v", false, "Show the frontier and sweep statistics")
	cmd.Flags().BoolVar(&pc.noColor, "no-color", false, "Disable colored output")

	return cmd
}

func (pc *PlanCommand) run(cmd *cobra.Command, inputPath string) error {
	if pc.noColor {
		color.NoColor = true //nolint:reassign // intentional override of library global
	}

	cfg, err := config.LoadConfig(pc.configPath)
	if err != nil {
		return err
	}

	storeKind := pc.store
	if storeKind == "" {
		storeKind = cfg.Planner.Store
	}

	if storeKind != config.StoreList && storeKind != config.StoreTree {
		return fmt.Errorf("%w: %q", config.ErrInvalidStore, storeKind)
	}

	providers, err := observability.Init(observability.Config{
		ServiceName:    "spanplan",
		ServiceVersion: version.Version,
		Environment:    cfg.Telemetry.Environment,
		OTLPEndpoint:   cfg.Telemetry.Endpoint,
		OTLPInsecure:   cfg.Telemetry.Insecure,
		LogLevel:       parseLogLevel(cfg.Logging.Level),
		LogJSON:        cfg.Logging.Format == "json",
	})
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	defer func() {
		shutdownErr := providers.Shutdown(context.WithoutCancel(ctx))
		if shutdownErr != nil {
			providers.Logger.Warn("telemetry shutdown failed", slog.Any("error", shutdownErr))
		}
	}()

	metrics, err := observability.NewSweepMetrics(providers.Meter)
	if err != nil {
		return err
	}

	request, err := pc.readRequest(cmd.InOrStdin(), inputPath)
	if err != nil {
		return err
	}

	return pc.solve(ctx, cmd.OutOrStdout(), solveDeps{
		cfg:       cfg,
		providers: providers,
		metrics:   metrics,
		storeKind: storeKind,
	}, request)
}

type solveDeps struct {
	cfg       *config.Config
	providers observability.Providers
	metrics   *observability.SweepMetrics
	storeKind string
}

func (pc *PlanCommand) solve(
	ctx context.Context, out io.Writer, deps solveDeps, request *chunk.Request,
) error {
	ctx, span := deps.providers.Tracer.Start(ctx, "plan.solve", trace.WithAttributes(
		attribute.Int64("plan.total", int64(request.Total)),
		attribute.Int("plan.chunks", len(request.Chunks)),
		attribute.String("plan.store", deps.storeKind),
	))
	defer span.End()

	chunks, err := chunk.Normalize(request.Chunks)
	if err != nil {
		return err
	}

	cost, err := chunk.NewCostFunc(request.Latency, request.Bandwidth)
	if err != nil {
		return err
	}

	deps.providers.Logger.DebugContext(ctx, "sweep starting",
		slog.Uint64("total", uint64(request.Total)),
		slog.Int("chunks", len(chunks)),
		slog.String("store", deps.storeKind),
	)

	engine := planner.NewEngine(cost,
		planner.WithStore(pc.buildStore(deps.cfg, deps.storeKind)),
		planner.WithLogger(deps.providers.Logger),
	)

	startedAt := time.Now()

	for _, c := range chunks {
		engine.Feed(c)
	}

	best, feasible := engine.Best(request.Total)
	elapsed := time.Since(startedAt)

	status := observability.StatusInfeasible
	if feasible {
		status = observability.StatusFeasible
	}

	deps.metrics.RecordSolve(ctx, deps.storeKind, status, elapsed, engine.Swept(), engine.Frontier().Len())
	span.SetAttributes(attribute.String("plan.status", status))

	pc.printResult(out, best, feasible)

	if pc.verbose {
		pc.printSweepReport(out, request, engine, elapsed)
	}

	if pc.plotPath != "" {
		plotErr := writeFrontierChart(pc.plotPath, request.Total, engine.Frontier())
		if plotErr != nil {
			return plotErr
		}

		deps.providers.Logger.InfoContext(ctx, "frontier chart written", slog.String("path", pc.plotPath))
	}

	return nil
}

func (pc *PlanCommand) buildStore(cfg *config.Config, storeKind string) planner.Store {
	if storeKind == config.StoreList {
		return planner.NewListStore()
	}

	alloc := avltree.NewAllocator()
	alloc.HibernationThreshold = cfg.Planner.HibernationThreshold

	return planner.NewTreeStoreWithAllocator(alloc)
}

// readRequest loads the raw request from a file or stdin. YAML manifests are
// detected by extension unless --format forces a parser.
func (pc *PlanCommand) readRequest(stdin io.Reader, inputPath string) (*chunk.Request, error) {
	if inputPath == "-" {
		if pc.format == formatYAML {
			data, err := io.ReadAll(stdin)
			if err != nil {
				return nil, fmt.Errorf("read stdin: %w", err)
			}

			return chunk.ParseManifest(data)
		}

		return chunk.ParseText(stdin)
	}

	format := pc.format
	if format == formatAuto {
		switch strings.ToLower(filepath.Ext(inputPath)) {
		case ".yaml", ".yml":
			format = formatYAML
		default:
			format = formatText
		}
	}

	switch format {
	case formatYAML:
		data, err := os.ReadFile(inputPath)
		if err != nil {
			return nil, fmt.Errorf("read input %s: %w", inputPath, err)
		}

		return chunk.ParseManifest(data)
	case formatText:
		file, err := os.Open(inputPath)
		if err != nil {
			return nil, fmt.Errorf("open input %s: %w", inputPath, err)
		}
		defer file.Close()

		return chunk.ParseText(file)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, pc.format)
	}
}

func (pc *PlanCommand) printResult(out io.Writer, best float64, feasible bool) {
	if !feasible {
		fmt.Fprintln(out, color.RedString("none"))

		return
	}

	fmt.Fprintln(out, color.GreenString(strconv.FormatFloat(best, 'g', -1, 64)))
}

func (pc *PlanCommand) printSweepReport(
	out io.Writer, request *chunk.Request, engine *planner.Engine, elapsed time.Duration,
) {
	fmt.Fprintf(out, "\ncovering %s in %s (%d chunks swept, %d frontier nodes)\n",
		humanize.Bytes(uint64(request.Total)),
		elapsed.Round(time.Microsecond),
		engine.Swept(),
		engine.Frontier().Len(),
	)

	tbl := table.NewWriter()
	tbl.SetOutputMirror(out)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Endpoint", "Offset", "Cost"})

	engine.Frontier().Descending(func(node planner.PathNode) bool {
		tbl.AppendRow(table.Row{
			node.Endpoint,
			humanize.Bytes(uint64(node.Endpoint)),
			strconv.FormatFloat(node.Cost, 'g', -1, 64),
		})

		return true
	})

	tbl.Render()
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
