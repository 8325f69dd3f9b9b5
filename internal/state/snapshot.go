package state

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/imamik/searchstack/internal/resource"
)

// SchemaVersion is the current snapshot format.
const SchemaVersion = 1

// ResourceState is the last converged state of one resource.
type ResourceState struct {
	Name string        `json:"name"`
	Kind resource.Kind `json:"kind"`
	ID   string        `json:"id"`
	// Inputs are masked; Digests carry the change-detection values.
	Inputs      resource.Properties `json:"inputs,omitempty"`
	Outputs     resource.Properties `json:"outputs,omitempty"`
	Digests     resource.Digests    `json:"digests,omitempty"`
	Fingerprint string              `json:"fingerprint"`
	DependsOn   []string            `json:"dependsOn,omitempty"`
	Consumes    []string            `json:"consumes,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// Dependencies returns the union of strict and consumed dependencies.
func (r *ResourceState) Dependencies() []string {
	deps := slices.Clone(r.DependsOn)
	for _, c := range r.Consumes {
		if !slices.Contains(deps, c) {
			deps = append(deps, c)
		}
	}
	return deps
}

// Snapshot is the observed state of a stack.
type Snapshot struct {
	Version int    `json:"version"`
	Stack   string `json:"stack"`
	// Serial increases on every save.
	Serial int64 `json:"serial"`
	// Lineage identifies the stack across renames of the backend.
	Lineage   string                    `json:"lineage"`
	Resources map[string]*ResourceState `json:"resources"`
	// PendingDeletes are replaced resources whose deletion has not
	// happened yet. Keys are "<name>#<id>".
	PendingDeletes map[string]*ResourceState `json:"pendingDeletes,omitempty"`
	// Outputs are the stack outputs, e.g. the endpoints.
	Outputs   map[string]string `json:"outputs,omitempty"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// NewSnapshot returns an empty snapshot for stack with a fresh lineage.
func NewSnapshot(stack string) *Snapshot {
	return &Snapshot{
		Version:        SchemaVersion,
		Stack:          stack,
		Lineage:        uuid.NewString(),
		Resources:      map[string]*ResourceState{},
		PendingDeletes: map[string]*ResourceState{},
		Outputs:        map[string]string{},
	}
}

// Get returns the state of name.
func (s *Snapshot) Get(name string) (*ResourceState, bool) {
	r, ok := s.Resources[name]
	return r, ok
}

// Upsert records r, stamping timestamps.
func (s *Snapshot) Upsert(r *ResourceState, now time.Time) {
	if prev, ok := s.Resources[r.Name]; ok && prev.ID == r.ID && !prev.CreatedAt.IsZero() {
		r.CreatedAt = prev.CreatedAt
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	s.Resources[r.Name] = r
}

// Remove forgets name.
func (s *Snapshot) Remove(name string) {
	delete(s.Resources, name)
}

// PendingKey is the PendingDeletes key of a replaced resource.
func PendingKey(name, id string) string {
	return name + "#" + id
}

// AddPendingDelete records a replaced resource awaiting deletion.
func (s *Snapshot) AddPendingDelete(r *ResourceState) {
	if s.PendingDeletes == nil {
		s.PendingDeletes = map[string]*ResourceState{}
	}
	s.PendingDeletes[PendingKey(r.Name, r.ID)] = r
}

// RemovePendingDelete forgets a pending delete.
func (s *Snapshot) RemovePendingDelete(key string) {
	delete(s.PendingDeletes, key)
}

// Names returns the resource names in lexical order.
func (s *Snapshot) Names() []string {
	names := make([]string, 0, len(s.Resources))
	for n := range s.Resources {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Clone returns a deep copy.
func (s *Snapshot) Clone() *Snapshot {
	data, err := json.Marshal(s)
	if err != nil {
		panic(fmt.Sprintf("state: snapshot not serializable: %v", err))
	}
	out, err := Decode(data)
	if err != nil {
		panic(fmt.Sprintf("state: snapshot not decodable: %v", err))
	}
	return out
}

// Encode serializes the snapshot as JSON.
func Encode(s *Snapshot) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// Decode parses a JSON snapshot.
func Decode(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if s.Version > SchemaVersion {
		return nil, fmt.Errorf("snapshot version %d is newer than supported version %d", s.Version, SchemaVersion)
	}
	if s.Resources == nil {
		s.Resources = map[string]*ResourceState{}
	}
	if s.PendingDeletes == nil {
		s.PendingDeletes = map[string]*ResourceState{}
	}
	if s.Outputs == nil {
		s.Outputs = map[string]string{}
	}
	return &s, nil
}
