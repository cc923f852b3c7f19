// Package access resolves the caller's batch-size ceiling. Authentication
// itself lives in the gateway in front of this service; the engine only
// consumes the descriptor the gateway would attach.
package access

import (
	"net/http"

	"github.com/yourorg/token-risk-engine/internal/model"
)

// Batch-size ceilings per tier.
const (
	SmallBatchLimit  = 10
	MediumBatchLimit = 25
	LargeBatchLimit  = 100
)

// headers the upstream gateway sets after authenticating the caller.
const (
	tierHeader = "X-Access-Tier"
	kindHeader = "X-Access-Kind"
)

// Resolve derives the access descriptor for a request. Unauthenticated or
// unrecognized callers fall back to the small human tier.
func Resolve(r *http.Request) model.AccessDescriptor {
	kind := model.KindHuman
	if r.Header.Get(kindHeader) == string(model.KindAgent) {
		kind = model.KindAgent
	}

	tier := r.Header.Get(tierHeader)
	switch tier {
	case "medium":
		return model.AccessDescriptor{Kind: kind, Tier: tier, MaxBatchSize: MediumBatchLimit}
	case "large":
		return model.AccessDescriptor{Kind: kind, Tier: tier, MaxBatchSize: LargeBatchLimit}
	default:
		return model.AccessDescriptor{Kind: kind, Tier: "small", MaxBatchSize: SmallBatchLimit}
	}
}
