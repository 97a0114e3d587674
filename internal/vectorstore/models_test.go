package vectorstore

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCollectionName(t *testing.T) {
	tests := []struct {
		name     string
		tenantID string
		want     string
	}{
		{"plain id", "acme", "tenant_acme"},
		{"uppercase lowered", "AcmeCorp", "tenant_acmecorp"},
		{"hyphens replaced", "acme-eu-west", "tenant_acme_eu_west"},
		{"dots and spaces replaced", "acme.corp inc", "tenant_acme_corp_inc"},
		{"underscores and digits preserved", "tenant_42", "tenant_tenant_42"},
		{"unicode replaced", "acmé", "tenant_acm_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CollectionName(tt.tenantID))
		})
	}
}

func TestCollectionName_Deterministic(t *testing.T) {
	assert.Equal(t, CollectionName("Acme-Corp"), CollectionName("Acme-Corp"))
	// Distinct tenants that sanitize identically do collide; the id scheme
	// upstream guarantees uniqueness within [a-z0-9-].
	assert.Equal(t, "tenant_a_b", CollectionName("a-b"))
}

func TestPointID(t *testing.T) {
	// Valid UUIDs pass through untouched.
	id := "550e8400-e29b-41d4-a716-446655440000"
	assert.Equal(t, id, pointID(id))

	// Anything else becomes a deterministic name-based UUID.
	first := pointID("doc-1-chunk-0")
	second := pointID("doc-1-chunk-0")
	assert.Equal(t, first, second)
	_, err := uuid.Parse(first)
	assert.NoError(t, err)

	assert.NotEqual(t, pointID("doc-1-chunk-0"), pointID("doc-1-chunk-1"))
}

func TestTenantFilter(t *testing.T) {
	f := tenantFilter("acme", map[string]interface{}{
		"b_field":   "2",
		"a_field":   "1",
		"tenant_id": "globex",
	})

	// Tenant condition first, extras sorted, hostile tenant key dropped.
	assert.Len(t, f.Must, 3)
	assert.Equal(t, "tenant_id", f.Must[0].Field)
	assert.Equal(t, "acme", f.Must[0].Match)
	assert.Equal(t, "a_field", f.Must[1].Field)
	assert.Equal(t, "b_field", f.Must[2].Field)
}

func TestDocumentFilter(t *testing.T) {
	f := documentFilter("acme", "doc-1")

	assert.Len(t, f.Must, 2)
	assert.Equal(t, "tenant_id", f.Must[0].Field)
	assert.Equal(t, "acme", f.Must[0].Match)
	assert.Equal(t, "document_id", f.Must[1].Field)
	assert.Equal(t, "doc-1", f.Must[1].Match)
}
