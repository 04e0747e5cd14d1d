package metrics

import (
	"time"

	domainauth "github.com/triviahub/th-auth-api/internal/domain/auth"
	apperrors "github.com/triviahub/th-auth-api/internal/errors"
	"github.com/triviahub/th-auth-api/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// AuthMetric captures one auth operation for metric emission.
type AuthMetric struct {
	Operation string // login, refresh, session, logout
	Audience  domainauth.Audience
	Duration  time.Duration
	Err       error
}

// EmitAuth emits standardised auth operation metrics.
func EmitAuth(sink statsd.Sink, in AuthMetric) {
	if sink == nil {
		return
	}

	result := ResultSuccess
	tags := map[string]string{
		"operation": in.Operation,
		"audience":  string(in.Audience),
	}
	if in.Err != nil {
		result = ResultError
		tags["error_code"] = string(apperrors.GetCode(in.Err))
	}
	tags["result"] = result

	sink.Count("auth.operation", 1, tags)

	if in.Duration > 0 {
		sink.Timing("auth.duration", in.Duration, cloneTags(tags))
	}
}

func cloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
