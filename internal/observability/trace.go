package observability

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "eyewear/internal/usecase"

// プロバイダ未設定ならno-op
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}
