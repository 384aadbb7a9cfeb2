package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/jaskrrish/go-dqc/internal/config"
	"github.com/jaskrrish/go-dqc/internal/dqc/circuit"
	"github.com/jaskrrish/go-dqc/internal/dqc/extractor"
	"github.com/jaskrrish/go-dqc/internal/models/dqc"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ff9e64"))

	summaryStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7aa2f7")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9ece6a")).
			Width(24)
)

func main() {
	in := flag.String("in", "", "problem file (.yaml, .yml or .json)")
	out := flag.String("out", "", "write OpenQASM here instead of stdout")
	name := flag.String("name", extractor.DefaultCircuitName, "circuit name")
	level := flag.String("log-level", "warn", "log level")
	quiet := flag.Bool("quiet", false, "do not print the summary")
	flag.Parse()

	if *in == "" {
		fmt.Fprintln(os.Stderr, "dqc-extract: -in is required")
		flag.Usage()
		os.Exit(2)
	}

	logger, err := config.LogConfig{Level: *level, Development: true}.NewLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, "dqc-extract:", err)
		os.Exit(2)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, *in, *out, *name, *quiet, logger); err != nil {
		fmt.Fprintln(os.Stderr, "dqc-extract:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, in, out, name string, quiet bool, logger *zap.Logger) error {
	problem, err := loadProblem(in)
	if err != nil {
		return err
	}

	ex, err := extractor.New(problem, extractor.WithLogger(logger), extractor.WithName(name))
	if err != nil {
		return err
	}
	circ, err := ex.RunContext(ctx)
	if err != nil {
		return err
	}

	qasm := circ.QASM()
	if out == "" {
		fmt.Print(qasm)
	} else if err := os.WriteFile(out, []byte(qasm), 0o644); err != nil {
		return errors.Wrapf(err, "write %s", out)
	}

	if !quiet {
		fmt.Fprintln(os.Stderr, renderSummary(in, problem, circ, ex.Stats()))
	}
	return nil
}

func loadProblem(path string) (*dqc.Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}

	var problem dqc.Problem
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &problem)
	default:
		err = yaml.Unmarshal(data, &problem)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return &problem, nil
}

func renderSummary(source string, p *dqc.Problem, circ *circuit.Circuit, stats dqc.Stats) string {
	rows := []struct {
		label string
		value int
	}{
		{"qubits", p.NumQubits},
		{"partitions", p.NumPartitions()},
		{"layers", p.Depth()},
		{"instructions", stats.Instructions},
		{"state teleports", stats.StateTeleports},
		{"gate teleports", stats.GateTeleports},
		{"links opened", stats.LinksOpened},
		{"local links", stats.LocalLinks},
		{"links closed", stats.LinksClosed},
		{"EPR pairs", stats.EPRPairs},
		{"parked qubits", stats.Parked},
	}

	lines := []string{titleStyle.Render(circ.Name + "  " + filepath.Base(source))}
	for _, row := range rows {
		lines = append(lines, labelStyle.Render(row.label)+fmt.Sprintf("%d", row.value))
	}
	lines = append(lines, labelStyle.Render("fingerprint")+circ.Fingerprint()[:16])

	return summaryStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
