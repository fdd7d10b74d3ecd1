// Command analyze runs a scenario headlessly with a scripted burst of
// emergencies and prints response statistics: queue wait (received to
// dispatched), response (received to on scene) and turnaround (received to
// handled), overall and per priority.
package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/ambulance-fleet/game/city"
	"github.com/wricardo/ambulance-fleet/game/engine"
)

// BurstOptions describes the scripted load
type BurstOptions struct {
	Count      int
	Interval   float64
	Step       float64
	MaxSeconds float64
	Seed       int64
}

// Sample is the timeline of one emergency. Unreached stages are NaN.
type Sample struct {
	EmergencyID int
	Priority    int
	HouseID     int
	Received    float64
	Dispatched  float64
	OnScene     float64
	Handled     float64
}

// Summary aggregates one metric
type Summary struct {
	Count int
	Mean  float64
	P50   float64
	P90   float64
	Max   float64
}

// Report is the outcome of a burst run
type Report struct {
	Scenario  string
	FleetSize int
	Houses    int
	Clock     float64
	Completed int
	Samples   []Sample
}

var metrics = []struct {
	name  string
	value func(Sample) float64
}{
	{"wait", func(s Sample) float64 { return s.Dispatched - s.Received }},
	{"response", func(s Sample) float64 { return s.OnScene - s.Received }},
	{"turnaround", func(s Sample) float64 { return s.Handled - s.Received }},
}

func main() {
	cmd := &cli.Command{
		Name:  "analyze",
		Usage: "Run a scenario with a burst of emergencies and print response statistics",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "Directory containing scenario files"},
			&cli.StringFlag{Name: "scenario", Usage: "Scenario name (built-in default when empty)"},
			&cli.IntFlag{Name: "count", Value: 20, Usage: "Number of emergencies in the burst"},
			&cli.FloatFlag{Name: "interval", Value: 0, Usage: "Seconds between emergencies (0 submits all at once)"},
			&cli.FloatFlag{Name: "step", Value: 0.1, Usage: "Simulation step in seconds"},
			&cli.FloatFlag{Name: "max-seconds", Value: 3600, Usage: "Give up after this much simulated time"},
			&cli.IntFlag{Name: "seed", Value: 1, Usage: "Random seed for houses and severities"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			scenario := engine.DefaultScenarioConfig()
			if name := cmd.String("scenario"); name != "" {
				loaded, err := engine.LoadScenarioByName(cmd.String("config-dir"), name)
				if err != nil {
					return err
				}
				scenario = loaded
			}

			report, err := runBurst(scenario, BurstOptions{
				Count:      cmd.Int("count"),
				Interval:   cmd.Float("interval"),
				Step:       cmd.Float("step"),
				MaxSeconds: cmd.Float("max-seconds"),
				Seed:       int64(cmd.Int("seed")),
			})
			if err != nil {
				return err
			}
			printReport(os.Stdout, report)
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runBurst submits opts.Count emergencies at random houses and ticks until
// every one is handled or opts.MaxSeconds elapse
func runBurst(scenario *engine.ScenarioConfig, opts BurstOptions) (*Report, error) {
	if opts.Count < 1 {
		return nil, fmt.Errorf("count must be at least 1, got %d", opts.Count)
	}
	if opts.Step <= 0 || math.IsNaN(opts.Step) {
		return nil, fmt.Errorf("step must be positive, got %v", opts.Step)
	}
	if opts.Interval < 0 {
		return nil, fmt.Errorf("interval must not be negative, got %v", opts.Interval)
	}

	hospital, err := engine.NewHospital(scenario.HospitalConfig())
	if err != nil {
		return nil, err
	}
	houses, err := city.FromScenario(scenario)
	if err != nil {
		return nil, err
	}
	lots := houses.Houses()

	rng := rand.New(rand.NewSource(opts.Seed))
	severities := engine.Severities()

	samples := make(map[int]*Sample, opts.Count)
	order := make([]int, 0, opts.Count)
	submitted := 0
	nextAt := 0.0

	submitDue := func() {
		for submitted < opts.Count && hospital.Clock() >= nextAt-1e-9 {
			house := lots[rng.Intn(len(lots))]
			severity := severities[rng.Intn(len(severities))]
			id := hospital.SubmitEmergency(engine.PatientInfo{
				Name:       "Patient " + strconv.Itoa(submitted+1),
				Age:        18 + rng.Intn(70),
				Severity:   severity,
				LocationID: house.ID,
			}, house.Location)

			samples[id] = &Sample{
				EmergencyID: id,
				Priority:    engine.PriorityFor(severity),
				HouseID:     house.ID,
				Received:    hospital.Clock(),
				Dispatched:  math.NaN(),
				OnScene:     math.NaN(),
				Handled:     math.NaN(),
			}
			order = append(order, id)
			submitted++
			nextAt += opts.Interval
		}
	}

	submitDue()
	for hospital.Clock() < opts.MaxSeconds && (submitted < opts.Count || hospital.Handled() < opts.Count) {
		for _, e := range hospital.Tick(opts.Step) {
			s, ok := samples[e.EmergencyID]
			if !ok {
				continue
			}
			switch e.Kind {
			case engine.EventVehicleDispatched:
				s.Dispatched = e.Clock
			case engine.EventVehicleOnScene:
				s.OnScene = e.Clock
			case engine.EventEmergencyHandled:
				s.Handled = e.Clock
			}
		}
		submitDue()
	}

	report := &Report{
		Scenario:  scenario.Name,
		FleetSize: hospital.FleetSize(),
		Houses:    houses.Len(),
		Clock:     hospital.Clock(),
		Completed: hospital.Handled(),
	}
	for _, id := range order {
		report.Samples = append(report.Samples, *samples[id])
	}
	return report, nil
}

// summarize ignores NaN values
func summarize(values []float64) Summary {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return Summary{}
	}
	sort.Float64s(clean)

	total := 0.0
	for _, v := range clean {
		total += v
	}
	return Summary{
		Count: len(clean),
		Mean:  total / float64(len(clean)),
		P50:   percentile(clean, 0.5),
		P90:   percentile(clean, 0.9),
		Max:   clean[len(clean)-1],
	}
}

// percentile uses nearest rank on sorted values
func percentile(sorted []float64, p float64) float64 {
	rank := int(math.Ceil(p*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	return sorted[rank]
}

// metricSummaries returns one summary per metric for the samples matching keep
func metricSummaries(samples []Sample, keep func(Sample) bool) []Summary {
	out := make([]Summary, len(metrics))
	for i, m := range metrics {
		var values []float64
		for _, s := range samples {
			if keep(s) {
				values = append(values, m.value(s))
			}
		}
		out[i] = summarize(values)
	}
	return out
}

func priorityLabel(p int) string {
	switch p {
	case engine.PriorityCritical:
		return engine.SeverityCritical
	case engine.PriorityHigh:
		return engine.SeverityHigh
	default:
		return engine.SeverityNormal
	}
}

func printReport(w io.Writer, r *Report) {
	fmt.Fprintf(w, "Scenario: %s (%d vehicles, %d houses)\n", r.Scenario, r.FleetSize, r.Houses)
	fmt.Fprintf(w, "Handled %d/%d emergencies in %.1fs\n\n", r.Completed, len(r.Samples), r.Clock)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GROUP\tMETRIC\tN\tMEAN\tP50\tP90\tMAX")

	writeGroup := func(group string, summaries []Summary) {
		for i, s := range summaries {
			if s.Count == 0 {
				continue
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%.1f\t%.1f\t%.1f\t%.1f\n",
				group, metrics[i].name, s.Count, s.Mean, s.P50, s.P90, s.Max)
		}
	}

	writeGroup("all", metricSummaries(r.Samples, func(Sample) bool { return true }))
	for _, p := range []int{engine.PriorityCritical, engine.PriorityHigh, engine.PriorityNormal} {
		writeGroup(priorityLabel(p), metricSummaries(r.Samples, func(s Sample) bool { return s.Priority == p }))
	}
	tw.Flush()
}
