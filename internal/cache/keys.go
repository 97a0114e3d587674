package cache

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Key identifies a cached value inside a tenant's namespace.
//
// The canonical string form is
//
//	tenant:{tenantID}:{resource}[:{identifier}][:{base64(sorted k=v&...)}]
//
// Two logically identical parameter sets canonicalize to the same key
// regardless of insertion order, and two distinct tenants never share a key
// prefix.
type Key struct {
	TenantID   string
	Resource   string
	Identifier string
	Params     map[string]string
}

// String returns the canonical cache key.
func (k Key) String() string {
	var b strings.Builder
	b.WriteString("tenant:")
	b.WriteString(escapeSegment(k.TenantID))
	b.WriteString(":")
	b.WriteString(escapeSegment(k.Resource))

	if k.Identifier != "" {
		b.WriteString(":")
		b.WriteString(escapeSegment(k.Identifier))
	}

	if len(k.Params) > 0 {
		b.WriteString(":")
		b.WriteString(encodeParams(k.Params))
	}

	return b.String()
}

// Validate checks the key has the required components.
func (k Key) Validate() error {
	if k.TenantID == "" {
		return ErrMissingTenant
	}
	if k.Resource == "" {
		return ErrMissingResource
	}
	return nil
}

// encodeParams canonicalizes params as sorted "k=v&..." and base64-encodes
// the result so the key stays a single flat token.
func encodeParams(params map[string]string) string {
	pairs := make([]string, 0, len(params))
	for k, v := range params {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return base64.StdEncoding.EncodeToString([]byte(strings.Join(pairs, "&")))
}

// escapeSegment neutralizes the key separator and glob metacharacters in a
// single key segment. Typical identifiers (alphanumerics, "-", "_", ".")
// pass through unchanged, which keeps keys readable and preserves the
// prefix-per-tenant invariant even for hostile identifiers.
func escapeSegment(s string) string {
	return url.QueryEscape(s)
}

// tenantPattern returns the SCAN pattern covering one tenant's namespace,
// optionally narrowed to a single resource.
func tenantPattern(tenantID string, resource string) string {
	if resource != "" {
		return fmt.Sprintf("tenant:%s:%s*", escapeSegment(tenantID), escapeSegment(resource))
	}
	return fmt.Sprintf("tenant:%s:*", escapeSegment(tenantID))
}

// Dedicated namespaces for the specialized entry points. These live outside
// the tenant:* prefix on purpose: they mirror the upstream dashboard's
// hierarchy, permission and query-result caches.

func hierarchyKey(tenantID string) string {
	return "hierarchy:" + escapeSegment(tenantID)
}

func permissionsKey(userID, tenantID string) string {
	return "permissions:" + escapeSegment(userID) + ":" + escapeSegment(tenantID)
}

func permissionsPattern(userID, tenantID string) string {
	if tenantID != "" {
		return "permissions:" + escapeSegment(userID) + ":" + escapeSegment(tenantID)
	}
	return "permissions:" + escapeSegment(userID) + ":*"
}

func queryKey(tenantID, queryHash string) string {
	return "query:" + escapeSegment(tenantID) + ":" + queryHash
}

func queryPattern(tenantID string) string {
	return "query:" + escapeSegment(tenantID) + ":*"
}

// QueryHash derives a stable digest for arbitrary query parameters. The
// params are serialized to canonical JSON (map keys sorted by
// encoding/json), hashed with SHA-256 and base64url-encoded.
func QueryHash(params any) (string, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("marshal query params: %w", err)
	}
	sum := sha256.Sum256(data)
	return base64.RawURLEncoding.EncodeToString(sum[:]), nil
}
