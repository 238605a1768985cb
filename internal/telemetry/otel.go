package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/sandk/offroad-dynamics/internal/telemetry"

// meter returns the global meter for this package. It is a no-op unless an
// OTel SDK is configured by the host process.
func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
