package sdk

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/cadenafria/cadenafria-go/headers"
)

// injectTraceparent propagates the caller's active span to the dashboard API
// so server-side traces join the client's trace.
func injectTraceparent(ctx context.Context, req *http.Request) {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return
	}
	req.Header.Set(headers.Traceparent, "00-"+sc.TraceID().String()+"-"+sc.SpanID().String()+"-01")
}
