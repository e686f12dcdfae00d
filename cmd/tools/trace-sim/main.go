// Command trace-sim feeds synthetic pointer traces through the evaluator and
// prints the verdicts. Traces run in-process by default, or against a
// running motiond with -server.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/motion.check/internal/api"
	"github.com/banshee-data/motion.check/internal/config"
	"github.com/banshee-data/motion.check/internal/monitor"
	"github.com/banshee-data/motion.check/internal/monitoring"
	"github.com/banshee-data/motion.check/internal/motion/classify"
	"github.com/banshee-data/motion.check/internal/motion/geometry"
	"github.com/banshee-data/motion.check/internal/motion/path"
	"github.com/banshee-data/motion.check/internal/motion/recorder"
	"github.com/banshee-data/motion.check/internal/motion/session"
	"github.com/banshee-data/motion.check/internal/sim"
)

const (
	kindHuman    = "human"
	kindScripted = "scripted"
)

// Config holds the command line options.
type Config struct {
	Runs       int
	Kind       string // human, scripted or both
	Seed       int64
	Width      float64
	Height     float64
	Samples    int
	ScriptedDT float64
	ConfigPath string
	Server     string
	PlotDir    string
	Verbose    bool
}

// Result is the outcome of one simulated attempt.
type Result struct {
	Kind    string
	ID      string
	Seed    int64
	Outcome recorder.State
	Failure recorder.FailureReason
	Verdict *classify.Verdict

	// Path and Trail are kept for plotting.
	Path  path.Path
	Trail []geometry.Point
}

func (c Config) kinds() ([]string, error) {
	switch c.Kind {
	case kindHuman, kindScripted:
		return []string{c.Kind}, nil
	case "both":
		return []string{kindHuman, kindScripted}, nil
	}
	return nil, fmt.Errorf("unknown kind %q (want human, scripted or both)", c.Kind)
}

// simulate produces the moves for one run of the given kind.
func simulate(kind string, p path.Path, seed int64, cfg Config) []sim.Move {
	if kind == kindScripted {
		return sim.Scripted(p, cfg.Samples, cfg.ScriptedDT)
	}
	return sim.Human(p, sim.HumanOptions{Samples: cfg.Samples, Seed: seed})
}

func toEvents(moves []sim.Move) []session.Event {
	events := make([]session.Event, len(moves))
	for i, m := range moves {
		events[i] = session.Move(m.P.X, m.P.Y, m.At)
	}
	return events
}

func trailOf(moves []sim.Move) []geometry.Point {
	pts := make([]geometry.Point, len(moves))
	for i, m := range moves {
		pts[i] = m.P
	}
	return pts
}

// runLocal evaluates every run in-process, one session per run.
func runLocal(ctx context.Context, cfg Config, scfg session.Config) ([]Result, error) {
	kinds, err := cfg.kinds()
	if err != nil {
		return nil, err
	}
	var results []Result
	for _, kind := range kinds {
		for i := 0; i < cfg.Runs; i++ {
			seed := cfg.Seed + int64(i)
			id := fmt.Sprintf("%s-%d", kind, seed)
			s, err := session.New(id, cfg.Width, cfg.Height, scfg)
			if err != nil {
				return nil, err
			}
			snap, err := s.Snapshot(ctx)
			if err != nil {
				s.Close()
				return nil, err
			}
			moves := simulate(kind, snap.Path, seed, cfg)
			snap, err = s.Dispatch(ctx, toEvents(moves)...)
			s.Close()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", id, err)
			}
			results = append(results, Result{
				Kind: kind, ID: id, Seed: seed,
				Outcome: snap.Outcome, Failure: snap.Failure, Verdict: snap.Verdict,
				Path: snap.Path, Trail: snap.LastTrail,
			})
		}
	}
	return results, nil
}

// runRemote evaluates every run against a motiond instance.
func runRemote(ctx context.Context, cfg Config, client *api.Client) ([]Result, error) {
	kinds, err := cfg.kinds()
	if err != nil {
		return nil, err
	}
	var results []Result
	for _, kind := range kinds {
		for i := 0; i < cfg.Runs; i++ {
			seed := cfg.Seed + int64(i)
			created, err := client.CreateAttempt(ctx, cfg.Width, cfg.Height)
			if err != nil {
				return nil, fmt.Errorf("failed to create attempt: %w", err)
			}
			moves := simulate(kind, created.Path, seed, cfg)
			got, err := client.SendEvents(ctx, created.ID, toEvents(moves))
			if cerr := client.CloseAttempt(ctx, created.ID); cerr != nil {
				log.Printf("failed to close attempt %s: %v", created.ID, cerr)
			}
			if err != nil {
				return nil, fmt.Errorf("%s: %w", created.ID, err)
			}
			results = append(results, Result{
				Kind: kind, ID: created.ID, Seed: seed,
				Outcome: got.Outcome, Failure: got.Failure, Verdict: got.Verdict,
				Path: created.Path, Trail: trailOf(moves),
			})
		}
	}
	return results, nil
}

func writeTable(w io.Writer, results []Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tSEED\tOUTCOME\tPASS\tSAMPLES\tCV\tJITTER\tDIR NOISE\tPAUSES\tFAILED")
	passed := map[string]int{}
	total := map[string]int{}
	for _, r := range results {
		total[r.Kind]++
		if r.Verdict == nil {
			fmt.Fprintf(tw, "%s\t%d\t%s\t-\t-\t-\t-\t-\t-\t%s\n", r.Kind, r.Seed, r.Outcome, r.Failure)
			continue
		}
		f := r.Verdict.Features
		if r.Verdict.Pass {
			passed[r.Kind]++
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%t\t%d\t%.3f\t%.3f\t%.3f\t%d\t%s\n",
			r.Kind, r.Seed, r.Outcome, r.Verdict.Pass, f.SampleCount,
			f.VelocityCV, f.JitterRatio, f.DirectionNoise, f.IdlePauses,
			strings.Join(r.Verdict.FailedRequirements(), ","))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, kind := range []string{kindHuman, kindScripted} {
		if total[kind] > 0 {
			fmt.Fprintf(w, "%s: %d/%d passed\n", kind, passed[kind], total[kind])
		}
	}
	return nil
}

func writePlots(dir string, results []Result, a monitor.Anchors) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	for _, r := range results {
		name := filepath.Join(dir, fmt.Sprintf("%s-%d.png", r.Kind, r.Seed))
		f, err := os.Create(name)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", name, err)
		}
		snap := session.Snapshot{ID: r.ID, Outcome: r.Outcome, Path: r.Path, LastTrail: r.Trail}
		werr := monitor.WriteTracePNG(f, snap, a)
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			return fmt.Errorf("failed to write %s: %w", name, werr)
		}
	}
	return nil
}

func main() {
	var cfg Config
	flag.IntVar(&cfg.Runs, "runs", 5, "Runs per kind")
	flag.StringVar(&cfg.Kind, "kind", "both", "Trace kind: human, scripted or both")
	flag.Int64Var(&cfg.Seed, "seed", 1, "First seed; run i uses seed+i")
	flag.Float64Var(&cfg.Width, "width", 640, "Surface width in px")
	flag.Float64Var(&cfg.Height, "height", 320, "Surface height in px")
	flag.IntVar(&cfg.Samples, "samples", 120, "Samples per trace")
	flag.Float64Var(&cfg.ScriptedDT, "scripted-dt", 10, "Sample spacing of scripted traces in ms")
	flag.StringVar(&cfg.ConfigPath, "config", "", "Tuning config JSON file (local mode only)")
	flag.StringVar(&cfg.Server, "server", "", "Base URL of a running motiond (empty runs in-process)")
	flag.StringVar(&cfg.PlotDir, "plots", "", "Write a PNG per run into this directory")
	flag.BoolVar(&cfg.Verbose, "v", false, "Verbose output")
	flag.Parse()

	if cfg.Runs < 1 {
		log.Fatal("-runs must be at least 1")
	}
	if !cfg.Verbose {
		monitoring.SetLogger(nil)
	}

	tuning := config.EmptyTuningConfig()
	if cfg.ConfigPath != "" {
		var err error
		if tuning, err = config.LoadTuningConfig(cfg.ConfigPath); err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var (
		results []Result
		err     error
	)
	if cfg.Server != "" {
		results, err = runRemote(ctx, cfg, api.NewClient(cfg.Server, nil))
	} else {
		scfg := tuning.SessionConfig()
		scfg.Verbose = cfg.Verbose
		results, err = runLocal(ctx, cfg, scfg)
	}
	if err != nil {
		log.Fatalf("simulation failed: %v", err)
	}

	if err := writeTable(os.Stdout, results); err != nil {
		log.Fatalf("failed to write results: %v", err)
	}

	if cfg.PlotDir != "" {
		rc := tuning.RecorderConfig()
		if err := writePlots(cfg.PlotDir, results, monitor.Anchors{StartRadius: rc.StartRadius, EndRadius: rc.EndRadius}); err != nil {
			log.Fatalf("failed to write plots: %v", err)
		}
		fmt.Printf("plots written to %s\n", cfg.PlotDir)
	}
}
