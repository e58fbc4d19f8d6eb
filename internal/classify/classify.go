package classify

import (
	"encoding/json"
	"regexp"

	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/jsonrpc"
)

// Kind labels an upstream error as either a fault of the request itself or a
// fault of the provider serving it.
type Kind int

const (
	// KindRPCError is an application-level error: the request's own
	// semantics produced it and another provider would answer the same.
	KindRPCError Kind = iota

	// KindEndpointFailure is a provider-level error: rate limiting, outage
	// or network trouble. Warrants retry and health demotion.
	KindEndpointFailure
)

func (k Kind) String() string {
	switch k {
	case KindEndpointFailure:
		return "endpoint_failure"
	default:
		return "rpc_error"
	}
}

// Ordered pattern tables. The rpcErrorPatterns list is consulted first:
// "gas limit" must win over patterns like "limit exceeded", so a match there
// short-circuits the endpoint table.
var rpcErrorPatterns = compile(
	`intrinsic gas`,
	`insufficient funds`,
	`nonce too (low|high)`,
	`transaction underpriced`,
	`invalid argument`,
	`execution reverted`,
	`contract call exception`,
	`invalid signature`,
	`gas limit`,
	`already known`,
	`replacement transaction`,
)

var endpointFailurePatterns = compile(
	`rate limit`,
	`too many requests`,
	`request limit exceeded`,
	`throttl`,
	`429`,
	`ru credits`,
	`compute units`,
	`quota exceeded`,
	`insufficient credits`,
	`econnrefused`,
	`etimedout`,
	`enotfound`,
	`socket hang up`,
	`network error`,
	`connection (refused|reset|closed)`,
	`timeout`,
	`service unavailable`,
	`503`,
	`502`,
	`gateway`,
	`internal server error`,
	`500`,
)

func compile(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(`(?i)`+p))
	}
	return compiled
}

// Classify labels an error value. Unknown errors default to KindRPCError so
// they never mark an endpoint unhealthy.
func Classify(v any) Kind {
	text := stringify(v)
	if text == "" {
		return KindRPCError
	}

	for _, p := range rpcErrorPatterns {
		if p.MatchString(text) {
			return KindRPCError
		}
	}

	for _, p := range endpointFailurePatterns {
		if p.MatchString(text) {
			return KindEndpointFailure
		}
	}

	return KindRPCError
}

// IsEndpointFailure reports whether the error value should count against the
// serving endpoint's health.
func IsEndpointFailure(v any) bool {
	return Classify(v) == KindEndpointFailure
}

// stringify collapses the polymorphic error shapes upstreams return into a
// single searchable string: message first, then data, then the canonical
// serialization of the whole value.
func stringify(v any) string {
	switch e := v.(type) {
	case nil:
		return ""
	case string:
		return e
	case *jsonrpc.Error:
		if e == nil {
			return ""
		}
		if e.Message != "" {
			return e.Message
		}
		if len(e.Data) > 0 {
			return string(e.Data)
		}
		return marshal(e)
	case error:
		return e.Error()
	default:
		return marshal(v)
	}
}

func marshal(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(raw)
}
