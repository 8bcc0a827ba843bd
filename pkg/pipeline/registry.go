package pipeline

import (
	"sort"
	"strconv"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"

	"github.com/askiada/seqpipe/internal/artifact"
	"github.com/askiada/seqpipe/internal/config"
	"github.com/askiada/seqpipe/internal/store"
)

const attrRequired = "required"

func stageHash(s *Stage) int { return s.ID }

// Registry holds the stage declarations and the dependency graph derived from them. An edge
// goes from the stage producing an artifact to every stage consuming it.
type Registry struct {
	stages    map[int]*Stage
	producers map[artifact.Kind]int

	mem   *store.Memory[int, *Stage]
	graph graph.Graph[int, *Stage]
}

// NewRegistry registers stages in the given order.
func NewRegistry(stages ...*Stage) (*Registry, error) {
	mem := store.NewMemory[int, *Stage]()
	reg := &Registry{
		stages:    make(map[int]*Stage),
		producers: make(map[artifact.Kind]int),
		mem:       mem,
		graph:     graph.NewWithStore(stageHash, mem, graph.Directed(), graph.PreventCycles()),
	}
	for _, s := range stages {
		if err := reg.Register(s); err != nil {
			return nil, err
		}
	}

	return reg, nil
}

// Register adds s. Every artifact s requires or uses must already be produced by a registered
// stage with a lower ID.
func (r *Registry) Register(s *Stage) error {
	if s == nil {
		return errors.Wrap(ErrInvalidStage, "stage must be set")
	}
	if s.ID < MinStageID || s.ID > MaxStageID {
		return errors.Wrapf(ErrInvalidStage, "%d (%s) is outside %d-%d", s.ID, s.Name, MinStageID, MaxStageID)
	}
	if _, ok := r.stages[s.ID]; ok {
		return errors.Wrapf(ErrInvalidStage, "%d is already registered", s.ID)
	}
	if s.Handler == nil {
		return errors.Wrapf(ErrInvalidStage, "%d (%s) has no handler", s.ID, s.Name)
	}
	for _, kind := range s.Produces {
		if owner, ok := r.producers[kind]; ok {
			return errors.Wrapf(ErrInvalidStage, "%d (%s) produces %s, already produced by stage %d", s.ID, s.Name, kind, owner)
		}
	}

	links := make(map[int]bool)
	for _, kinds := range []struct {
		list     []artifact.Kind
		required bool
	}{{s.Requires, true}, {s.Uses, false}} {
		for _, kind := range kinds.list {
			owner, ok := r.producers[kind]
			if !ok || owner >= s.ID {
				return errors.Wrapf(ErrInvalidStage, "%d (%s) consumes %s, which no earlier stage produces", s.ID, s.Name, kind)
			}
			links[owner] = links[owner] || kinds.required
		}
	}

	if err := r.graph.AddVertex(s, graph.VertexAttribute("label", s.Name)); err != nil {
		return errors.Wrapf(err, "unable to add stage %d", s.ID)
	}
	for owner, required := range links {
		if err := r.link(owner, s.ID, required); err != nil {
			return err
		}
	}

	r.stages[s.ID] = s
	for _, kind := range s.Produces {
		r.producers[kind] = s.ID
	}

	return nil
}

func (r *Registry) link(from, to int, required bool) error {
	cycle, err := r.mem.CreatesCycle(from, to)
	if err != nil {
		return errors.Wrap(err, "unable to check dependency")
	}
	if cycle {
		return errors.Wrapf(ErrInvalidStage, "dependency %d -> %d creates a cycle", from, to)
	}

	err = r.graph.AddEdge(from, to, graph.EdgeAttribute(attrRequired, strconv.FormatBool(required)))
	if err != nil {
		return errors.Wrapf(err, "unable to add dependency %d -> %d", from, to)
	}

	return nil
}

// Stage returns the stage registered under id.
func (r *Registry) Stage(id int) (*Stage, error) {
	s, ok := r.stages[id]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownStage, "%d", id)
	}

	return s, nil
}

// Order returns every registered stage in ascending ID order. Register only accepts edges
// from a lower to a higher ID, so this is always a topological order of the graph.
func (r *Registry) Order() []*Stage {
	ids := make([]int, 0, len(r.stages))
	for id := range r.stages {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	res := make([]*Stage, 0, len(ids))
	for _, id := range ids {
		res = append(res, r.stages[id])
	}

	return res
}

// Select returns the stages of req in execution order. Unregistered IDs are an error.
func (r *Registry) Select(req Request) ([]*Stage, error) {
	for _, id := range req.IDs() {
		if _, ok := r.stages[id]; !ok {
			return nil, errors.Wrapf(ErrUnknownStage, "%d", id)
		}
	}

	res := make([]*Stage, 0, req.Len())
	for _, s := range r.Order() {
		if req.Has(s.ID) {
			res = append(res, s)
		}
	}

	return res, nil
}

// Dependencies returns, in ascending order, the stages whose artifacts id requires.
// Artifacts the stage only uses when present do not count.
func (r *Registry) Dependencies(id int) ([]int, error) {
	if _, ok := r.stages[id]; !ok {
		return nil, errors.Wrapf(ErrUnknownStage, "%d", id)
	}

	predecessors, err := r.graph.PredecessorMap()
	if err != nil {
		return nil, errors.Wrap(err, "unable to read dependencies")
	}

	deps := []int{}
	for from, edge := range predecessors[id] {
		if edge.Properties.Attributes[attrRequired] == "true" {
			deps = append(deps, from)
		}
	}
	sort.Ints(deps)

	return deps, nil
}

// Keys returns every configuration key needed by the stages of req, without duplicates.
func (r *Registry) Keys(req Request) []config.Key {
	seen := make(map[config.Key]struct{})
	var keys []config.Key
	for _, id := range req.IDs() {
		s, ok := r.stages[id]
		if !ok {
			continue
		}
		for _, key := range s.Keys {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}

	return keys
}
