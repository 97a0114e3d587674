package cache

import "sync"

// Stats holds per-tenant operation counters. Counters increase monotonically
// for the process lifetime and reset only via ResetStats; they are held in
// memory and vanish on restart.
type Stats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Sets    uint64 `json:"sets"`
	Deletes uint64 `json:"deletes"`
	Errors  uint64 `json:"errors"`
}

// statsRegistry tracks Stats per tenant, creating entries lazily.
type statsRegistry struct {
	mu      sync.Mutex
	tenants map[string]*Stats
}

func newStatsRegistry() *statsRegistry {
	return &statsRegistry{tenants: make(map[string]*Stats)}
}

func (r *statsRegistry) get(tenantID string) *Stats {
	if s, ok := r.tenants[tenantID]; ok {
		return s
	}
	s := &Stats{}
	r.tenants[tenantID] = s
	return s
}

func (r *statsRegistry) hit(tenantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.get(tenantID).Hits++
}

func (r *statsRegistry) miss(tenantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.get(tenantID).Misses++
}

func (r *statsRegistry) set(tenantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.get(tenantID).Sets++
}

func (r *statsRegistry) deletes(tenantID string, n uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.get(tenantID).Deletes += n
}

func (r *statsRegistry) err(tenantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.get(tenantID).Errors++
}

// snapshot returns a copy of one tenant's counters.
func (r *statsRegistry) snapshot(tenantID string) Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.tenants[tenantID]; ok {
		return *s
	}
	return Stats{}
}

// snapshotAll returns a copy of every tenant's counters.
func (r *statsRegistry) snapshotAll() map[string]Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]Stats, len(r.tenants))
	for id, s := range r.tenants {
		out[id] = *s
	}
	return out
}

// reset clears counters for one tenant, or all tenants when tenantID is "".
func (r *statsRegistry) reset(tenantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tenantID == "" {
		r.tenants = make(map[string]*Stats)
		return
	}
	delete(r.tenants, tenantID)
}
