package vectorstore

import (
	"sort"

	"github.com/helixdesk/tenantstore/internal/qdrant"
)

// tenantFilter builds the payload filter for a tenant-scoped operation. The
// tenant condition always comes first and cannot be overridden: any
// tenant-scoping keys in the caller's filter are discarded.
func tenantFilter(tenantID string, extra map[string]interface{}) *qdrant.Filter {
	must := make([]qdrant.Condition, 0, len(extra)+1)
	must = append(must, qdrant.Condition{Field: payloadTenantID, Match: tenantID})

	// Deterministic condition order for stable requests.
	keys := make([]string, 0, len(extra))
	for k := range extra {
		if k == payloadTenantID {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		must = append(must, qdrant.Condition{Field: k, Match: extra[k]})
	}

	return &qdrant.Filter{Must: must}
}

// documentFilter matches every chunk of one document within a tenant.
func documentFilter(tenantID, documentID string) *qdrant.Filter {
	return &qdrant.Filter{Must: []qdrant.Condition{
		{Field: payloadTenantID, Match: tenantID},
		{Field: payloadDocumentID, Match: documentID},
	}}
}
