// Package util contains helpers shared by the node's packages.
package util

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name spans are recorded under.
const TracerName = "github.com/Rendaw/kademlia"

// StartSpan starts a span named after the operation, e.g. "Kademlia.kbucket.AddContact".
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, fmt.Sprintf("Kademlia.%s", name), opts...)
}
