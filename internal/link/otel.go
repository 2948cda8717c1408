package link

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/gw2overlay/linkbridge/internal/link"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
