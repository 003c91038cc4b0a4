package graph

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/zero-day-ai/graphask/internal/types"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"
)

// Node is a graph node held in a Snapshot, keyed by its database element ID.
type Node struct {
	ID         string         `json:"id"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
}

// HasLabel reports whether the node carries label.
func (n Node) HasLabel(label string) bool {
	for _, l := range n.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// Edge is a directed relationship held in a Snapshot.
type Edge struct {
	From       string         `json:"from"`
	To         string         `json:"to"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
}

// WeightProperty is the relationship property used as edge weight when present.
const WeightProperty = "weight"

// Snapshot is an in-memory copy of (part of) the graph for algorithmic work.
// It is built with AddNode/AddEdge and then frozen; a frozen snapshot is
// read-only and safe to share between concurrent script executions.
type Snapshot struct {
	ids    map[string]int64
	nodes  []Node
	edges  []Edge
	g      *simple.WeightedDirectedGraph
	frozen bool
}

// NewSnapshot returns an empty, unfrozen snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		ids: make(map[string]int64),
		g:   simple.NewWeightedDirectedGraph(0, math.Inf(1)),
	}
}

// AddNode inserts a node. Adding an existing ID replaces its labels and properties.
func (s *Snapshot) AddNode(n Node) error {
	if s.frozen {
		return types.NewError(ErrCodeGraphSnapshotFrozen, "snapshot is frozen")
	}
	if id, ok := s.ids[n.ID]; ok {
		s.nodes[id] = n
		return nil
	}
	id := int64(len(s.nodes))
	s.ids[n.ID] = id
	s.nodes = append(s.nodes, n)
	s.g.AddNode(simple.Node(id))
	return nil
}

// AddEdge inserts a relationship between two known nodes.
// Parallel edges are all kept for Edges(); the algorithm view keeps the lightest.
func (s *Snapshot) AddEdge(e Edge) error {
	if s.frozen {
		return types.NewError(ErrCodeGraphSnapshotFrozen, "snapshot is frozen")
	}
	from, ok := s.ids[e.From]
	if !ok {
		return types.NewError(ErrCodeGraphNodeNotFound, fmt.Sprintf("unknown node %q", e.From))
	}
	to, ok := s.ids[e.To]
	if !ok {
		return types.NewError(ErrCodeGraphNodeNotFound, fmt.Sprintf("unknown node %q", e.To))
	}

	s.edges = append(s.edges, e)

	// gonum's simple graphs reject self loops.
	if from == to {
		return nil
	}
	weight := edgeWeight(e.Properties)
	if existing := s.g.WeightedEdge(from, to); existing != nil && existing.Weight() <= weight {
		return nil
	}
	s.g.SetWeightedEdge(s.g.NewWeightedEdge(simple.Node(from), simple.Node(to), weight))
	return nil
}

func edgeWeight(props map[string]any) float64 {
	switch w := props[WeightProperty].(type) {
	case int64:
		if w >= 0 {
			return float64(w)
		}
	case int:
		if w >= 0 {
			return float64(w)
		}
	case float64:
		if w >= 0 && !math.IsNaN(w) {
			return w
		}
	}
	return 1
}

// Freeze makes the snapshot read-only.
func (s *Snapshot) Freeze() {
	s.frozen = true
}

// Frozen reports whether Freeze has been called.
func (s *Snapshot) Frozen() bool {
	return s.frozen
}

func (s *Snapshot) NodeCount() int { return len(s.nodes) }

func (s *Snapshot) EdgeCount() int { return len(s.edges) }

// Node returns the node with the given ID.
func (s *Snapshot) Node(id string) (Node, bool) {
	idx, ok := s.ids[id]
	if !ok {
		return Node{}, false
	}
	return s.nodes[idx], true
}

// Nodes returns nodes in insertion order, filtered by label when label != "".
func (s *Snapshot) Nodes(label string) []Node {
	out := make([]Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		if label == "" || n.HasLabel(label) {
			out = append(out, n)
		}
	}
	return out
}

// Edges returns relationships in insertion order, filtered by type when relType != "".
func (s *Snapshot) Edges(relType string) []Edge {
	out := make([]Edge, 0, len(s.edges))
	for _, e := range s.edges {
		if relType == "" || e.Type == relType {
			out = append(out, e)
		}
	}
	return out
}

// Direction selects which relationships Neighbors and Degree follow.
type Direction int

const (
	DirectionBoth Direction = iota
	DirectionOut
	DirectionIn
)

// Neighbors returns the IDs adjacent to id, sorted.
func (s *Snapshot) Neighbors(id string, dir Direction) ([]string, error) {
	idx, err := s.index(id)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]bool)
	if dir == DirectionBoth || dir == DirectionOut {
		for it := s.g.From(idx); it.Next(); {
			seen[it.Node().ID()] = true
		}
	}
	if dir == DirectionBoth || dir == DirectionIn {
		for it := s.g.To(idx); it.Next(); {
			seen[it.Node().ID()] = true
		}
	}

	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, s.nodes[n].ID)
	}
	sort.Strings(out)
	return out, nil
}

// Degree counts relationships touching id, including parallel edges and self loops.
func (s *Snapshot) Degree(id string, dir Direction) (int, error) {
	if _, err := s.index(id); err != nil {
		return 0, err
	}
	count := 0
	for _, e := range s.edges {
		if (dir == DirectionBoth || dir == DirectionOut) && e.From == id {
			count++
		}
		if (dir == DirectionBoth || dir == DirectionIn) && e.To == id {
			count++
		}
	}
	return count, nil
}

// ShortestPath returns the node IDs on the cheapest path and its total weight.
// With directed false, relationships are followed in both directions and
// every hop costs 1. An unreachable target yields an empty path and +Inf.
func (s *Snapshot) ShortestPath(from, to string, directed bool) ([]string, float64, error) {
	src, err := s.index(from)
	if err != nil {
		return nil, 0, err
	}
	dst, err := s.index(to)
	if err != nil {
		return nil, 0, err
	}

	var g traverse.Graph = s.g
	if !directed {
		g = graph.Undirect{G: s.g}
	}

	shortest := path.DijkstraFrom(simple.Node(src), g)
	nodes, weight := shortest.To(dst)
	return s.nodeIDs(nodes), weight, nil
}

// BFS returns node IDs reachable from start within maxDepth hops (following
// relationship direction), in visit order. maxDepth < 0 means unbounded.
func (s *Snapshot) BFS(start string, maxDepth int) ([]string, error) {
	src, err := s.index(start)
	if err != nil {
		return nil, err
	}

	visited := []string{s.nodes[src].ID}
	bf := traverse.BreadthFirst{
		Visit: func(n graph.Node) {
			if n.ID() != src {
				visited = append(visited, s.nodes[n.ID()].ID)
			}
		},
	}
	// Every node at depth d is visited before the first one is dequeued,
	// so stopping there leaves exactly the nodes within maxDepth.
	bf.Walk(s.g, simple.Node(src), func(n graph.Node, d int) bool {
		return maxDepth >= 0 && d >= maxDepth
	})
	return visited, nil
}

// PageRank scores every node. damping is typically 0.85.
func (s *Snapshot) PageRank(damping float64) map[string]float64 {
	if len(s.nodes) == 0 {
		return map[string]float64{}
	}
	return s.byID(network.PageRank(s.g, damping, 1e-6))
}

// Betweenness returns betweenness centrality; nodes on no shortest path score 0.
func (s *Snapshot) Betweenness() map[string]float64 {
	scores := s.byID(network.Betweenness(s.g))
	for _, n := range s.nodes {
		if _, ok := scores[n.ID]; !ok {
			scores[n.ID] = 0
		}
	}
	return scores
}

// DegreeCentrality returns degree / (n-1) for each node, counting both directions.
func (s *Snapshot) DegreeCentrality() map[string]float64 {
	out := make(map[string]float64, len(s.nodes))
	if len(s.nodes) <= 1 {
		for _, n := range s.nodes {
			out[n.ID] = 0
		}
		return out
	}
	denom := float64(len(s.nodes) - 1)
	for idx, n := range s.nodes {
		deg := s.g.From(int64(idx)).Len() + s.g.To(int64(idx)).Len()
		out[n.ID] = float64(deg) / denom
	}
	return out
}

// ConnectedComponents returns weakly connected components, each sorted, largest first.
func (s *Snapshot) ConnectedComponents() [][]string {
	comps := topo.ConnectedComponents(graph.Undirect{G: s.g})
	out := make([][]string, 0, len(comps))
	for _, comp := range comps {
		ids := s.nodeIDs(comp)
		sort.Strings(ids)
		out = append(out, ids)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i][0] < out[j][0]
	})
	return out
}

func (s *Snapshot) index(id string) (int64, error) {
	idx, ok := s.ids[id]
	if !ok {
		return 0, types.NewError(ErrCodeGraphNodeNotFound, fmt.Sprintf("node %q not in graph", id))
	}
	return idx, nil
}

func (s *Snapshot) nodeIDs(nodes []graph.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, s.nodes[n.ID()].ID)
	}
	return out
}

func (s *Snapshot) byID(scores map[int64]float64) map[string]float64 {
	out := make(map[string]float64, len(scores))
	for idx, score := range scores {
		out[s.nodes[idx].ID] = score
	}
	return out
}

// SnapshotOptions bounds how much of the database LoadSnapshot copies.
type SnapshotOptions struct {
	MaxNodes int
	MaxEdges int
}

const (
	snapshotNodesQuery = `MATCH (n)
RETURN elementId(n) AS id, labels(n) AS labels, properties(n) AS props
LIMIT $limit`

	snapshotEdgesQuery = `MATCH (a)-[r]->(b)
RETURN elementId(a) AS from, elementId(b) AS to, type(r) AS type, properties(r) AS props
LIMIT $limit`
)

// LoadSnapshot copies nodes and relationships into a frozen Snapshot.
// Relationships whose endpoints fell outside MaxNodes are skipped.
func LoadSnapshot(ctx context.Context, client GraphClient, opts SnapshotOptions) (*Snapshot, error) {
	if opts.MaxNodes <= 0 {
		opts.MaxNodes = 10000
	}
	if opts.MaxEdges <= 0 {
		opts.MaxEdges = 50000
	}

	nodeRes, err := client.ReadQuery(ctx, snapshotNodesQuery, map[string]any{"limit": opts.MaxNodes}, opts.MaxNodes)
	if err != nil {
		return nil, types.WrapError(ErrCodeGraphSnapshotFailed, "failed to load nodes", err)
	}

	edgeRes, err := client.ReadQuery(ctx, snapshotEdgesQuery, map[string]any{"limit": opts.MaxEdges}, opts.MaxEdges)
	if err != nil {
		return nil, types.WrapError(ErrCodeGraphSnapshotFailed, "failed to load relationships", err)
	}

	snap := NewSnapshot()
	for _, row := range nodeRes.Records {
		id, _ := row["id"].(string)
		if id == "" {
			continue
		}
		props, _ := row["props"].(map[string]any)
		if err := snap.AddNode(Node{ID: id, Labels: toStrings(row["labels"]), Properties: props}); err != nil {
			return nil, err
		}
	}

	for _, row := range edgeRes.Records {
		from, _ := row["from"].(string)
		to, _ := row["to"].(string)
		if _, ok := snap.Node(from); !ok {
			continue
		}
		if _, ok := snap.Node(to); !ok {
			continue
		}
		relType, _ := row["type"].(string)
		props, _ := row["props"].(map[string]any)
		if err := snap.AddEdge(Edge{From: from, To: to, Type: relType, Properties: props}); err != nil {
			return nil, err
		}
	}

	snap.Freeze()
	return snap, nil
}
