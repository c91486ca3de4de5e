// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatekey Contributors

package auth

import "github.com/prometheus/client_golang/prometheus"

// operationsTotal counts service operations by outcome. Package-level so
// the service can record without holding a registry handle.
var operationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gatekey_auth_operations_total",
		Help: "Total number of authentication service operations by operation and outcome",
	},
	[]string{"operation", "outcome"},
)

// Outcome labels for operationsTotal.
const (
	outcomeOK           = "ok"
	outcomeDenied       = "denied"
	outcomeConflict     = "conflict"
	outcomeNotFound     = "not_found"
	outcomeInvalidToken = "invalid_token"
	outcomeInvalidInput = "invalid_input"
	outcomeError        = "error"
)

// RegisterMetrics registers the service metrics with the given registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(operationsTotal)
}

func recordOp(operation, outcome string) {
	operationsTotal.WithLabelValues(operation, outcome).Inc()
}
