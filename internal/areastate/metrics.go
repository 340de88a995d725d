package areastate

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type metrics struct {
	ticks     metric.Int64Counter
	evictions metric.Int64Counter
	locations metric.Int64Counter
	chests    metric.Int64Counter
	items     metric.Int64Counter
	tracked   metric.Int64UpDownCounter
}

func newMetrics(m metric.Meter) (*metrics, error) {
	if m == nil {
		m = noop.NewMeterProvider().Meter("areastate")
	}
	out := &metrics{}
	var err error
	if out.ticks, err = m.Int64Counter("areastate.ticks",
		metric.WithDescription("Registry ticks processed while in game")); err != nil {
		return nil, fmt.Errorf("create ticks counter: %w", err)
	}
	if out.evictions, err = m.Int64Counter("areastate.evictions",
		metric.WithDescription("Instance caches evicted by the inactive sweep")); err != nil {
		return nil, fmt.Errorf("create evictions counter: %w", err)
	}
	if out.locations, err = m.Int64Counter("areastate.locations.added",
		metric.WithDescription("Locations appended to instance ledgers")); err != nil {
		return nil, fmt.Errorf("create locations counter: %w", err)
	}
	if out.chests, err = m.Int64Counter("areastate.containers.added",
		metric.WithDescription("Container records created")); err != nil {
		return nil, fmt.Errorf("create containers counter: %w", err)
	}
	if out.items, err = m.Int64Counter("areastate.items.accepted",
		metric.WithDescription("Ground items accepted by the pickup filter or highlight override")); err != nil {
		return nil, fmt.Errorf("create items counter: %w", err)
	}
	if out.tracked, err = m.Int64UpDownCounter("areastate.tracked_instances",
		metric.WithDescription("Instance caches currently held by the registry")); err != nil {
		return nil, fmt.Errorf("create tracked counter: %w", err)
	}
	return out, nil
}

func areaAttr(areaID string) metric.AddOption {
	return metric.WithAttributes(attribute.String("area.id", areaID))
}

func (m *metrics) add(c metric.Int64Counter, areaID string) {
	c.Add(context.Background(), 1, areaAttr(areaID))
}
