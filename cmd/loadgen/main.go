// Command loadgen drives a running server over HTTP: it creates simulations
// and submits random emergency reports at a fixed interval, optionally
// advancing each simulation's clock between reports. A share of the reports
// can be deliberately malformed to exercise intake validation.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/ambulance-fleet/game/engine"
	"github.com/wricardo/ambulance-fleet/game/intake"
	"github.com/wricardo/ambulance-fleet/game/service"
	"github.com/wricardo/ambulance-fleet/logging"
)

// Options configures a load run
type Options struct {
	Scenario     string
	Simulations  int
	Emergencies  int
	Interval     time.Duration
	Advance      float64
	Step         float64
	Running      bool
	InvalidRatio float64
	Seed         int64
}

// Stats counts outcomes across all simulations
type Stats struct {
	Submitted atomic.Int64
	Rejected  atomic.Int64
	Failed    atomic.Int64
}

var patientNames = []string{"Ana", "Bruno", "Carla", "Diego", "Elena", "Felipe", "Gabi", "Hugo", "Iris", "Joao"}

func main() {
	cmd := &cli.Command{
		Name:  "loadgen",
		Usage: "Submit random emergencies to a running dispatch server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "Server URL"},
			&cli.StringFlag{Name: "scenario", Usage: "Scenario for new simulations (server default when empty)"},
			&cli.IntFlag{Name: "simulations", Value: 1, Usage: "Number of simulations to drive concurrently"},
			&cli.IntFlag{Name: "emergencies", Value: 50, Usage: "Emergencies per simulation"},
			&cli.DurationFlag{Name: "interval", Value: 500 * time.Millisecond, Usage: "Wall-clock delay between reports"},
			&cli.FloatFlag{Name: "advance", Value: 0, Usage: "Simulated seconds to advance after each report (0 relies on the server clock)"},
			&cli.FloatFlag{Name: "step", Value: service.DefaultAdvanceStep, Usage: "Step used when advancing"},
			&cli.BoolFlag{Name: "running", Value: true, Usage: "Create simulations in running mode"},
			&cli.FloatFlag{Name: "invalid-ratio", Value: 0, Usage: "Share of deliberately malformed reports (0..1)"},
			&cli.IntFlag{Name: "seed", Value: 0, Usage: "Random seed (0 uses the current time)"},
			&cli.BoolFlag{Name: "v", Usage: "Verbose output"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			level := "info"
			if cmd.Bool("v") {
				level = "debug"
			}
			logger := logging.New(logging.Options{Level: level, Pretty: true, Out: os.Stderr})

			seed := int64(cmd.Int("seed"))
			if seed == 0 {
				seed = time.Now().UnixNano()
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts := Options{
				Scenario:     cmd.String("scenario"),
				Simulations:  cmd.Int("simulations"),
				Emergencies:  cmd.Int("emergencies"),
				Interval:     cmd.Duration("interval"),
				Advance:      cmd.Float("advance"),
				Step:         cmd.Float("step"),
				Running:      cmd.Bool("running"),
				InvalidRatio: cmd.Float("invalid-ratio"),
				Seed:         seed,
			}

			logger.Info().Str("url", cmd.String("url")).Int("simulations", opts.Simulations).Msg("Connecting to dispatch server")
			stats, err := Run(ctx, NewClient(cmd.String("url")), opts, logger)
			logger.Info().
				Int64("submitted", stats.Submitted.Load()).
				Int64("rejected", stats.Rejected.Load()).
				Int64("failed", stats.Failed.Load()).
				Msg("Load run finished")
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Run drives opts.Simulations simulations concurrently and returns the combined stats
func Run(ctx context.Context, client *Client, opts Options, logger zerolog.Logger) (*Stats, error) {
	stats := &Stats{}
	if opts.Simulations < 1 {
		return stats, fmt.Errorf("simulations must be at least 1, got %d", opts.Simulations)
	}
	if opts.InvalidRatio < 0 || opts.InvalidRatio > 1 {
		return stats, fmt.Errorf("invalid-ratio must be between 0 and 1, got %v", opts.InvalidRatio)
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < opts.Simulations; i++ {
		rng := rand.New(rand.NewSource(opts.Seed + int64(i)))
		g.Go(func() error {
			return drive(ctx, client, opts, rng, stats, logger)
		})
	}
	return stats, g.Wait()
}

// drive creates one simulation and feeds it reports
func drive(ctx context.Context, client *Client, opts Options, rng *rand.Rand, stats *Stats, logger zerolog.Logger) error {
	sim, err := client.CreateSimulation(ctx, opts.Scenario, opts.Running)
	if err != nil {
		return fmt.Errorf("create simulation: %w", err)
	}
	logger = logger.With().Str("simulation", sim.ID).Logger()
	logger.Info().Str("scenario", sim.ScenarioName).Int("houses", sim.HouseCount).Msg("Simulation created")

	if sim.HouseCount < 1 {
		return fmt.Errorf("simulation %s has no houses", sim.ID)
	}

	var ticker *time.Ticker
	if opts.Interval > 0 {
		ticker = time.NewTicker(opts.Interval)
		defer ticker.Stop()
	}

	for n := 0; n < opts.Emergencies; n++ {
		if ticker != nil && n > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		form := randomForm(rng, sim.HouseCount, rng.Float64() < opts.InvalidRatio)
		result, err := client.SubmitEmergency(ctx, sim.ID, form)

		var apiErr *APIError
		switch {
		case errors.As(err, &apiErr) && apiErr.StatusCode == 400:
			stats.Rejected.Add(1)
			logger.Debug().Interface("fields", apiErr.Fields).Msg("Report rejected")
		case err != nil:
			stats.Failed.Add(1)
			logger.Warn().Err(err).Msg("Submit failed")
		default:
			stats.Submitted.Add(1)
			logger.Debug().Int("emergency", result.EmergencyID).Str("severity", result.Severity).Int("pending", result.PendingCount).Msg(result.Message)
		}

		if opts.Advance > 0 {
			if _, err := client.Advance(ctx, sim.ID, opts.Advance, opts.Step); err != nil {
				return fmt.Errorf("advance %s: %w", sim.ID, err)
			}
		}
	}
	return nil
}

// randomForm builds a report for a random house. Malformed reports break one
// rule at random.
func randomForm(rng *rand.Rand, houses int, malformed bool) intake.Form {
	severities := engine.Severities()
	form := intake.Form{
		PatientName: patientNames[rng.Intn(len(patientNames))],
		Age:         strconv.Itoa(1 + rng.Intn(99)),
		Severity:    severities[rng.Intn(len(severities))],
		House:       strconv.Itoa(1 + rng.Intn(houses)),
	}
	if !malformed {
		return form
	}

	switch rng.Intn(3) {
	case 0:
		form.PatientName = ""
	case 1:
		form.Age = "old"
	default:
		form.House = strconv.Itoa(houses + 1 + rng.Intn(100))
	}
	return form
}
