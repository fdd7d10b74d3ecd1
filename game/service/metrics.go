package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/wricardo/ambulance-fleet/game/engine"
)

const instrumentationName = "github.com/wricardo/ambulance-fleet/game/service"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// dispatchMetrics holds the service instruments. Without an installed
// MeterProvider every instrument is a no-op.
type dispatchMetrics struct {
	received metric.Int64Counter
	assigned metric.Int64Counter
	handled  metric.Int64Counter
	ticks    metric.Int64Counter
	pending  metric.Int64ObservableGauge
}

func newDispatchMetrics(m metric.Meter, pending func() map[string]int) (*dispatchMetrics, error) {
	received, err := m.Int64Counter("dispatch.emergencies.received",
		metric.WithDescription("Emergencies accepted by intake"))
	if err != nil {
		return nil, fmt.Errorf("creating received counter: %w", err)
	}

	assigned, err := m.Int64Counter("dispatch.emergencies.assigned",
		metric.WithDescription("Emergencies assigned to a vehicle"))
	if err != nil {
		return nil, fmt.Errorf("creating assigned counter: %w", err)
	}

	handled, err := m.Int64Counter("dispatch.emergencies.handled",
		metric.WithDescription("Emergencies whose on-scene dwell completed"))
	if err != nil {
		return nil, fmt.Errorf("creating handled counter: %w", err)
	}

	ticks, err := m.Int64Counter("dispatch.ticks",
		metric.WithDescription("Simulation ticks applied"))
	if err != nil {
		return nil, fmt.Errorf("creating tick counter: %w", err)
	}

	gauge, err := m.Int64ObservableGauge("dispatch.queue.pending",
		metric.WithDescription("Emergencies waiting for a vehicle"))
	if err != nil {
		return nil, fmt.Errorf("creating pending gauge: %w", err)
	}

	_, err = m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		for id, n := range pending() {
			o.ObserveInt64(gauge, int64(n), metric.WithAttributes(attribute.String("simulation", id)))
		}
		return nil
	}, gauge)
	if err != nil {
		return nil, fmt.Errorf("registering pending callback: %w", err)
	}

	return &dispatchMetrics{
		received: received,
		assigned: assigned,
		handled:  handled,
		ticks:    ticks,
		pending:  gauge,
	}, nil
}

func noopMetrics() *dispatchMetrics {
	m, _ := newDispatchMetrics(noop.NewMeterProvider().Meter(instrumentationName), func() map[string]int { return nil })
	return m
}

func (m *dispatchMetrics) recordReceived(ctx context.Context, simulationID string) {
	m.received.Add(ctx, 1, metric.WithAttributes(attribute.String("simulation", simulationID)))
}

func (m *dispatchMetrics) recordTick(ctx context.Context, simulationID string, events []engine.Event) {
	attrs := metric.WithAttributes(attribute.String("simulation", simulationID))
	m.ticks.Add(ctx, 1, attrs)

	var assigned, handled int64
	for _, e := range events {
		switch e.Kind {
		case engine.EventVehicleDispatched:
			assigned++
		case engine.EventEmergencyHandled:
			handled++
		}
	}
	if assigned > 0 {
		m.assigned.Add(ctx, assigned, attrs)
	}
	if handled > 0 {
		m.handled.Add(ctx, handled, attrs)
	}
}
