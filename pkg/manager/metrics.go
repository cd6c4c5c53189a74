/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package manager

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const (
	meterName = "crowdpool.manager"

	metricAllocationsName          = "crowdpool_token_allocations_total"
	metricReusedName               = "crowdpool_token_reused_total"
	metricExhaustedName            = "crowdpool_app_slots_exhausted_total"
	metricInvariantViolationsName  = "crowdpool_invariant_violations_total"
	metricPublishName              = "crowdpool_task_publish_total"
	metricCompensationsName        = "crowdpool_compensations_total"
	metricCompensationFailuresName = "crowdpool_compensation_failures_total"
	metricPollCyclesName           = "crowdpool_poll_cycles_total"
	metricPollingActiveName        = "crowdpool_polling_active"
)

var (
	attrOutcomeSuccess = metric.WithAttributes(attribute.String("outcome", "success"))
	attrOutcomeFailure = metric.WithAttributes(attribute.String("outcome", "failure"))
	attrCycleSkipped   = metric.WithAttributes(attribute.String("decision", "skip"))
	attrCycleAllocate  = metric.WithAttributes(attribute.String("decision", "allocate"))
	attrCycleError     = metric.WithAttributes(attribute.String("decision", "error"))
)

type managerMetrics struct {
	allocations          metric.Int64Counter
	reused               metric.Int64Counter
	exhausted            metric.Int64Counter
	invariantViolations  metric.Int64Counter
	publish              metric.Int64Counter
	compensations        metric.Int64Counter
	compensationFailures metric.Int64Counter
	pollCycles           metric.Int64Counter

	pollingActive  metric.Int64ObservableGauge
	registration   metric.Registration
	unregisterOnce sync.Once
}

// newManagerMetrics registers the manager instruments on mp, or on the global
// provider when mp is nil. Instruments that fail to register fall back to
// no-ops after the error is handed to otel.Handle.
func newManagerMetrics(mp metric.MeterProvider, isPolling func() bool) *managerMetrics {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}

	meter := mp.Meter(meterName)
	fallback := noop.Meter{}

	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			otel.Handle(err)

			c, _ = fallback.Int64Counter(name)
		}

		return c
	}

	m := &managerMetrics{
		allocations:          counter(metricAllocationsName, "Tokens minted against a newly claimed application slot"),
		reused:               counter(metricReusedName, "Allocation requests answered with the device's existing live token"),
		exhausted:            counter(metricExhaustedName, "Allocation attempts that found no unused application slot"),
		invariantViolations:  counter(metricInvariantViolationsName, "Devices observed holding more than one live token"),
		publish:              counter(metricPublishName, "Task publication attempts by outcome"),
		compensations:        counter(metricCompensationsName, "Tokens rolled back after a failed task publication"),
		compensationFailures: counter(metricCompensationFailuresName, "Rollbacks that left an orphaned token behind"),
		pollCycles:           counter(metricPollCyclesName, "Poll cycles by decision"),
	}

	gauge, err := meter.Int64ObservableGauge(
		metricPollingActiveName,
		metric.WithDescription("1 while the polling loop is active"),
	)
	if err != nil {
		otel.Handle(err)
		return m
	}

	m.pollingActive = gauge

	reg, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		var v int64
		if isPolling != nil && isPolling() {
			v = 1
		}

		o.ObserveInt64(gauge, v)

		return nil
	}, gauge)
	if err != nil {
		otel.Handle(err)
		return m
	}

	m.registration = reg

	return m
}

func (m *managerMetrics) unregister() {
	m.unregisterOnce.Do(func() {
		if m.registration == nil {
			return
		}

		if err := m.registration.Unregister(); err != nil {
			otel.Handle(err)
		}
	})
}
