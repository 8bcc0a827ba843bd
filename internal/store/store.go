// Package store keeps the stage graph in memory and lets callers annotate vertices after
// they were added, which the graph library's own store does not expose.
package store

import (
	"sync"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
)

// Annotated is a graph.Store whose vertex properties can be changed in place.
type Annotated[K comparable, T any] interface {
	graph.Store[K, T]
	// UpdateVertex applies every option to the properties of k.
	UpdateVertex(k K, options ...func(*graph.VertexProperties)) error
}

// Memory is the in-memory Annotated store.
type Memory[K comparable, T any] struct {
	lock       sync.RWMutex
	vertices   map[K]T
	properties map[K]*graph.VertexProperties

	// out holds source -> target -> edge, in holds target -> source -> edge.
	out map[K]map[K]graph.Edge[K]
	in  map[K]map[K]graph.Edge[K]
}

// NewMemory returns an empty store.
func NewMemory[K comparable, T any]() *Memory[K, T] {
	return &Memory[K, T]{
		vertices:   make(map[K]T),
		properties: make(map[K]*graph.VertexProperties),
		out:        make(map[K]map[K]graph.Edge[K]),
		in:         make(map[K]map[K]graph.Edge[K]),
	}
}

func (s *Memory[K, T]) AddVertex(k K, t T, p graph.VertexProperties) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.vertices[k]; ok {
		return graph.ErrVertexAlreadyExists
	}
	if p.Attributes == nil {
		p.Attributes = make(map[string]string)
	}

	s.vertices[k] = t
	s.properties[k] = &p

	return nil
}

func (s *Memory[K, T]) ListVertices() ([]K, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	hashes := make([]K, 0, len(s.vertices))
	for k := range s.vertices {
		hashes = append(hashes, k)
	}

	return hashes, nil
}

func (s *Memory[K, T]) VertexCount() (int, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return len(s.vertices), nil
}

func (s *Memory[K, T]) Vertex(k K) (T, graph.VertexProperties, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	v, ok := s.vertices[k]
	if !ok {
		return v, graph.VertexProperties{}, graph.ErrVertexNotFound
	}

	return v, *s.properties[k], nil
}

func (s *Memory[K, T]) RemoveVertex(k K) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.vertices[k]; !ok {
		return graph.ErrVertexNotFound
	}
	if len(s.in[k]) > 0 || len(s.out[k]) > 0 {
		return graph.ErrVertexHasEdges
	}

	delete(s.in, k)
	delete(s.out, k)
	delete(s.vertices, k)
	delete(s.properties, k)

	return nil
}

func (s *Memory[K, T]) UpdateVertex(k K, options ...func(*graph.VertexProperties)) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	props, ok := s.properties[k]
	if !ok {
		return errors.Wrapf(graph.ErrVertexNotFound, "unable to update vertex %v", k)
	}
	for _, opt := range options {
		opt(props)
	}

	return nil
}

func (s *Memory[K, T]) AddEdge(source, target K, edge graph.Edge[K]) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.out[source]; !ok {
		s.out[source] = make(map[K]graph.Edge[K])
	}
	s.out[source][target] = edge

	if _, ok := s.in[target]; !ok {
		s.in[target] = make(map[K]graph.Edge[K])
	}
	s.in[target][source] = edge

	return nil
}

func (s *Memory[K, T]) UpdateEdge(source, target K, edge graph.Edge[K]) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.out[source][target]; !ok {
		return graph.ErrEdgeNotFound
	}
	s.out[source][target] = edge
	s.in[target][source] = edge

	return nil
}

func (s *Memory[K, T]) RemoveEdge(source, target K) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.in[target], source)
	delete(s.out[source], target)

	return nil
}

func (s *Memory[K, T]) Edge(source, target K) (graph.Edge[K], error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	edge, ok := s.out[source][target]
	if !ok {
		return graph.Edge[K]{}, graph.ErrEdgeNotFound
	}

	return edge, nil
}

func (s *Memory[K, T]) ListEdges() ([]graph.Edge[K], error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	res := make([]graph.Edge[K], 0)
	for _, edges := range s.out {
		for _, edge := range edges {
			res = append(res, edge)
		}
	}

	return res, nil
}

// CreatesCycle walks the in-edges of source looking for target, so an edge
// source -> target would close a loop. It avoids building a predecessor map per call.
func (s *Memory[K, T]) CreatesCycle(source, target K) (bool, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if _, ok := s.vertices[source]; !ok {
		return false, errors.Wrapf(graph.ErrVertexNotFound, "source %v", source)
	}
	if _, ok := s.vertices[target]; !ok {
		return false, errors.Wrapf(graph.ErrVertexNotFound, "target %v", target)
	}
	if source == target {
		return true, nil
	}

	stack := []K{source}
	visited := make(map[K]struct{})
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, ok := visited[current]; ok {
			continue
		}
		if current == target {
			return true, nil
		}
		visited[current] = struct{}{}

		for parent := range s.in[current] {
			stack = append(stack, parent)
		}
	}

	return false, nil
}

var _ Annotated[int, int] = (*Memory[int, int])(nil)
