package main

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/wricardo/ambulance-fleet/game/engine"
)

func TestRunBurst_AllHandled(t *testing.T) {
	report, err := runBurst(engine.DefaultScenarioConfig(), BurstOptions{
		Count:      10,
		Step:       0.1,
		MaxSeconds: 600,
		Seed:       7,
	})
	if err != nil {
		t.Fatalf("runBurst failed: %v", err)
	}

	if report.Completed != 10 {
		t.Fatalf("Expected 10 handled emergencies, got %d", report.Completed)
	}
	if len(report.Samples) != 10 {
		t.Fatalf("Expected 10 samples, got %d", len(report.Samples))
	}
	if report.FleetSize != 4 || report.Houses != 54 {
		t.Errorf("Unexpected scenario shape: %d vehicles, %d houses", report.FleetSize, report.Houses)
	}

	for _, s := range report.Samples {
		if math.IsNaN(s.Dispatched) || math.IsNaN(s.OnScene) || math.IsNaN(s.Handled) {
			t.Errorf("Emergency %d has an incomplete timeline: %+v", s.EmergencyID, s)
			continue
		}
		if !(s.Received <= s.Dispatched && s.Dispatched <= s.OnScene && s.OnScene < s.Handled) {
			t.Errorf("Emergency %d timeline out of order: %+v", s.EmergencyID, s)
		}
		if s.Handled-s.OnScene < engine.DefaultOnSceneSeconds-0.11 {
			t.Errorf("Emergency %d left the scene after %.2fs", s.EmergencyID, s.Handled-s.OnScene)
		}
	}
}

func TestRunBurst_DispatchOrder(t *testing.T) {
	// More emergencies than vehicles at t=0: the first four dispatches happen
	// immediately and every Critical call waits no longer than any Normal call
	report, err := runBurst(engine.DefaultScenarioConfig(), BurstOptions{
		Count:      12,
		Step:       0.1,
		MaxSeconds: 900,
		Seed:       3,
	})
	if err != nil {
		t.Fatalf("runBurst failed: %v", err)
	}

	immediate := 0
	for _, s := range report.Samples {
		if math.Abs(s.Dispatched-0.1) < 1e-9 {
			immediate++
		}
	}
	if immediate != 4 {
		t.Errorf("Expected 4 immediate dispatches, got %d", immediate)
	}

	maxCritical, minNormal := -1.0, math.Inf(1)
	for _, s := range report.Samples {
		wait := s.Dispatched - s.Received
		switch s.Priority {
		case engine.PriorityCritical:
			maxCritical = math.Max(maxCritical, wait)
		case engine.PriorityNormal:
			if wait > 0.1+1e-9 {
				minNormal = math.Min(minNormal, wait)
			}
		}
	}
	if maxCritical > 0 && !math.IsInf(minNormal, 1) && maxCritical > minNormal+1e-9 {
		t.Errorf("Critical call waited %.2fs, longer than a queued Normal call (%.2fs)", maxCritical, minNormal)
	}
}

func TestRunBurst_Interval(t *testing.T) {
	report, err := runBurst(engine.DefaultScenarioConfig(), BurstOptions{
		Count:      3,
		Interval:   5,
		Step:       0.5,
		MaxSeconds: 600,
		Seed:       1,
	})
	if err != nil {
		t.Fatalf("runBurst failed: %v", err)
	}

	want := []float64{0, 5, 10}
	for i, s := range report.Samples {
		if math.Abs(s.Received-want[i]) > 1e-9 {
			t.Errorf("Emergency %d received at %.2f, want %.2f", i+1, s.Received, want[i])
		}
	}
}

func TestRunBurst_MaxSeconds(t *testing.T) {
	report, err := runBurst(engine.DefaultScenarioConfig(), BurstOptions{
		Count:      5,
		Step:       0.5,
		MaxSeconds: 1,
		Seed:       1,
	})
	if err != nil {
		t.Fatalf("runBurst failed: %v", err)
	}

	if report.Clock > 1+1e-9 {
		t.Errorf("Expected run to stop at 1s, clock is %.2f", report.Clock)
	}
	if report.Completed != 0 {
		t.Errorf("Expected nothing handled within 1s, got %d", report.Completed)
	}
}

func TestRunBurst_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts BurstOptions
	}{
		{"zero count", BurstOptions{Count: 0, Step: 0.1}},
		{"zero step", BurstOptions{Count: 1, Step: 0}},
		{"negative interval", BurstOptions{Count: 1, Step: 0.1, Interval: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runBurst(engine.DefaultScenarioConfig(), tt.opts); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	s := summarize([]float64{4, 1, math.NaN(), 3, 2, 10})

	if s.Count != 5 {
		t.Errorf("Expected NaN to be ignored, count %d", s.Count)
	}
	if s.Mean != 4 {
		t.Errorf("Expected mean 4, got %v", s.Mean)
	}
	if s.P50 != 3 {
		t.Errorf("Expected p50 3, got %v", s.P50)
	}
	if s.P90 != 10 {
		t.Errorf("Expected p90 10, got %v", s.P90)
	}
	if s.Max != 10 {
		t.Errorf("Expected max 10, got %v", s.Max)
	}

	if empty := summarize([]float64{math.NaN()}); empty.Count != 0 {
		t.Errorf("Expected empty summary, got %+v", empty)
	}
}

func TestPrintReport(t *testing.T) {
	report := &Report{
		Scenario:  "default",
		FleetSize: 4,
		Houses:    54,
		Clock:     30,
		Completed: 1,
		Samples: []Sample{
			{EmergencyID: 1, Priority: engine.PriorityCritical, Received: 0, Dispatched: 0.1, OnScene: 2, Handled: 6},
		},
	}

	var out bytes.Buffer
	printReport(&out, report)
	text := out.String()

	for _, want := range []string{"Scenario: default (4 vehicles, 54 houses)", "Handled 1/1", "turnaround", "Critical"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in report:\n%s", want, text)
		}
	}
	if strings.Contains(text, "Normal") {
		t.Errorf("Expected empty priority groups to be skipped:\n%s", text)
	}
}
