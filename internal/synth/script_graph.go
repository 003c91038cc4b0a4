package synth

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/zero-day-ai/graphask/internal/graph"
	"github.com/zero-day-ai/graphask/internal/types"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// graphValue exposes a frozen snapshot to scripts as the predeclared G.
type graphValue struct {
	snap *graph.Snapshot
}

var (
	_ starlark.Value    = (*graphValue)(nil)
	_ starlark.HasAttrs = (*graphValue)(nil)
)

func (g *graphValue) String() string {
	return fmt.Sprintf("<graph nodes=%d edges=%d>", g.snap.NodeCount(), g.snap.EdgeCount())
}
func (g *graphValue) Type() string          { return "graph" }
func (g *graphValue) Freeze()               {}
func (g *graphValue) Truth() starlark.Bool  { return g.snap.NodeCount() > 0 }
func (g *graphValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: graph") }

func (g *graphValue) Attr(name string) (starlark.Value, error) {
	if m, ok := graphMethods[name]; ok {
		return m.BindReceiver(g), nil
	}
	return nil, nil
}

func (g *graphValue) AttrNames() []string {
	names := make([]string, 0, len(graphMethods))
	for name := range graphMethods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var graphMethods = map[string]*starlark.Builtin{
	"nodes":           starlark.NewBuiltin("nodes", graphNodes),
	"node":            starlark.NewBuiltin("node", graphNode),
	"has_node":        starlark.NewBuiltin("has_node", graphHasNode),
	"edges":           starlark.NewBuiltin("edges", graphEdges),
	"neighbors":       starlark.NewBuiltin("neighbors", graphNeighbors),
	"degree":          starlark.NewBuiltin("degree", graphDegree),
	"number_of_nodes": starlark.NewBuiltin("number_of_nodes", graphNumberOfNodes),
	"number_of_edges": starlark.NewBuiltin("number_of_edges", graphNumberOfEdges),
}

func receiver(b *starlark.Builtin) *graph.Snapshot {
	return b.Receiver().(*graphValue).snap
}

func nodeStruct(n graph.Node) *starlarkstruct.Struct {
	return starlarkstruct.FromStringDict(starlark.String("node"), starlark.StringDict{
		"id":         starlark.String(n.ID),
		"labels":     stringList(n.Labels),
		"properties": stringDict(n.Properties),
	})
}

func edgeStruct(e graph.Edge) *starlarkstruct.Struct {
	return starlarkstruct.FromStringDict(starlark.String("edge"), starlark.StringDict{
		"source":     starlark.String(e.From),
		"target":     starlark.String(e.To),
		"type":       starlark.String(e.Type),
		"properties": stringDict(e.Properties),
	})
}

func graphNodes(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var label string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "label?", &label); err != nil {
		return nil, err
	}
	nodes := receiver(b).Nodes(label)
	elems := make([]starlark.Value, len(nodes))
	for i, n := range nodes {
		elems[i] = nodeStruct(n)
	}
	return starlark.NewList(elems), nil
}

func graphNode(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var id string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &id); err != nil {
		return nil, err
	}
	n, ok := receiver(b).Node(id)
	if !ok {
		return starlark.None, nil
	}
	return nodeStruct(n), nil
}

func graphHasNode(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var id string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &id); err != nil {
		return nil, err
	}
	_, ok := receiver(b).Node(id)
	return starlark.Bool(ok), nil
}

func graphEdges(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var relType string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "type?", &relType); err != nil {
		return nil, err
	}
	edges := receiver(b).Edges(relType)
	elems := make([]starlark.Value, len(edges))
	for i, e := range edges {
		elems[i] = edgeStruct(e)
	}
	return starlark.NewList(elems), nil
}

func parseDirection(fn, s string) (graph.Direction, error) {
	switch s {
	case "", "both":
		return graph.DirectionBoth, nil
	case "out":
		return graph.DirectionOut, nil
	case "in":
		return graph.DirectionIn, nil
	default:
		return 0, fmt.Errorf("%s: direction must be \"both\", \"out\" or \"in\", got %q", fn, s)
	}
}

func graphNeighbors(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var id, direction string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "id", &id, "direction?", &direction); err != nil {
		return nil, err
	}
	dir, err := parseDirection(b.Name(), direction)
	if err != nil {
		return nil, err
	}
	ids, err := receiver(b).Neighbors(id, dir)
	if err != nil {
		return nil, fmt.Errorf("%s: %s", b.Name(), graphErrorText(err))
	}
	return stringList(ids), nil
}

func graphDegree(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var id, direction string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "id", &id, "direction?", &direction); err != nil {
		return nil, err
	}
	dir, err := parseDirection(b.Name(), direction)
	if err != nil {
		return nil, err
	}
	deg, err := receiver(b).Degree(id, dir)
	if err != nil {
		return nil, fmt.Errorf("%s: %s", b.Name(), graphErrorText(err))
	}
	return starlark.MakeInt(deg), nil
}

func graphNumberOfNodes(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	return starlark.MakeInt(receiver(b).NodeCount()), nil
}

func graphNumberOfEdges(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	return starlark.MakeInt(receiver(b).EdgeCount()), nil
}

const threadContextKey = "graphask.context"

// algorithm runs one whole-graph computation for a builtin. gonum cannot be
// interrupted mid-run, so the step budget and Thread.Cancel do not apply
// inside fn; its cost is bounded by snapshot.max_nodes and max_edges.
// Cancellation is observed before and after the call.
func algorithm[T any](thread *starlark.Thread, fn string, compute func() T) (T, error) {
	var zero T
	if err := threadContext(thread).Err(); err != nil {
		return zero, fmt.Errorf("%s: %w", fn, err)
	}
	out := compute()
	if err := threadContext(thread).Err(); err != nil {
		return zero, fmt.Errorf("%s: %w", fn, err)
	}
	return out, nil
}

func threadContext(thread *starlark.Thread) context.Context {
	if thread != nil {
		if ctx, ok := thread.Local(threadContextKey).(context.Context); ok {
			return ctx
		}
	}
	return context.Background()
}

// newNXModule returns the nx module of graph algorithms. Every function takes
// the graph as its first argument.
func newNXModule() *starlarkstruct.Module {
	return &starlarkstruct.Module{
		Name: "nx",
		Members: starlark.StringDict{
			"shortest_path":          starlark.NewBuiltin("nx.shortest_path", nxShortestPath),
			"shortest_path_length":   starlark.NewBuiltin("nx.shortest_path_length", nxShortestPathLength),
			"bfs":                    starlark.NewBuiltin("nx.bfs", nxBFS),
			"pagerank":               starlark.NewBuiltin("nx.pagerank", nxPageRank),
			"betweenness_centrality": starlark.NewBuiltin("nx.betweenness_centrality", nxBetweenness),
			"degree_centrality":      starlark.NewBuiltin("nx.degree_centrality", nxDegreeCentrality),
			"connected_components":   starlark.NewBuiltin("nx.connected_components", nxConnectedComponents),
			"top":                    starlark.NewBuiltin("nx.top", nxTop),
		},
	}
}

func graphArg(fn string, v starlark.Value) (*graph.Snapshot, error) {
	g, ok := v.(*graphValue)
	if !ok {
		return nil, fmt.Errorf("%s: first argument must be a graph, got %s", fn, v.Type())
	}
	return g.snap, nil
}

// graphErrorText drops the error code prefix so scripts see a plain message.
func graphErrorText(err error) string {
	var te *types.Error
	if errors.As(err, &te) {
		return te.Message
	}
	return err.Error()
}

func nxShortestPath(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		gv             starlark.Value
		source, target string
		directed       = true
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "G", &gv, "source", &source, "target", &target, "directed?", &directed); err != nil {
		return nil, err
	}
	snap, err := graphArg(b.Name(), gv)
	if err != nil {
		return nil, err
	}
	ids, _, err := snap.ShortestPath(source, target, directed)
	if err != nil {
		return nil, fmt.Errorf("%s: %s", b.Name(), graphErrorText(err))
	}
	return stringList(ids), nil
}

func nxShortestPathLength(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		gv             starlark.Value
		source, target string
		directed       = true
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "G", &gv, "source", &source, "target", &target, "directed?", &directed); err != nil {
		return nil, err
	}
	snap, err := graphArg(b.Name(), gv)
	if err != nil {
		return nil, err
	}
	_, weight, err := snap.ShortestPath(source, target, directed)
	if err != nil {
		return nil, fmt.Errorf("%s: %s", b.Name(), graphErrorText(err))
	}
	if math.IsInf(weight, 1) {
		return starlark.None, nil
	}
	return starlark.Float(weight), nil
}

func nxBFS(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		gv     starlark.Value
		source string
		depth  = -1
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "G", &gv, "source", &source, "depth?", &depth); err != nil {
		return nil, err
	}
	snap, err := graphArg(b.Name(), gv)
	if err != nil {
		return nil, err
	}
	ids, err := snap.BFS(source, depth)
	if err != nil {
		return nil, fmt.Errorf("%s: %s", b.Name(), graphErrorText(err))
	}
	return stringList(ids), nil
}

func nxPageRank(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		gv    starlark.Value
		alpha = 0.85
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "G", &gv, "alpha?", &alpha); err != nil {
		return nil, err
	}
	snap, err := graphArg(b.Name(), gv)
	if err != nil {
		return nil, err
	}
	if alpha <= 0 || alpha >= 1 {
		return nil, fmt.Errorf("%s: alpha must be in (0, 1), got %g", b.Name(), alpha)
	}
	scores, err := algorithm(thread, b.Name(), func() map[string]float64 { return snap.PageRank(alpha) })
	if err != nil {
		return nil, err
	}
	return toStarlark(scores), nil
}

func nxBetweenness(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var gv starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &gv); err != nil {
		return nil, err
	}
	snap, err := graphArg(b.Name(), gv)
	if err != nil {
		return nil, err
	}
	scores, err := algorithm(thread, b.Name(), snap.Betweenness)
	if err != nil {
		return nil, err
	}
	return toStarlark(scores), nil
}

func nxDegreeCentrality(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var gv starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &gv); err != nil {
		return nil, err
	}
	snap, err := graphArg(b.Name(), gv)
	if err != nil {
		return nil, err
	}
	scores, err := algorithm(thread, b.Name(), snap.DegreeCentrality)
	if err != nil {
		return nil, err
	}
	return toStarlark(scores), nil
}

func nxConnectedComponents(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var gv starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &gv); err != nil {
		return nil, err
	}
	snap, err := graphArg(b.Name(), gv)
	if err != nil {
		return nil, err
	}
	comps, err := algorithm(thread, b.Name(), snap.ConnectedComponents)
	if err != nil {
		return nil, err
	}
	elems := make([]starlark.Value, len(comps))
	for i, c := range comps {
		elems[i] = stringList(c)
	}
	return starlark.NewList(elems), nil
}

// nxTop turns a score dict into a list of {"node", "score"} rows, highest first.
func nxTop(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		scores *starlark.Dict
		k      = 10
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "scores", &scores, "k?", &k); err != nil {
		return nil, err
	}

	type entry struct {
		node  starlark.Value
		score float64
	}
	entries := make([]entry, 0, scores.Len())
	for _, item := range scores.Items() {
		f, ok := starlark.AsFloat(item[1])
		if !ok {
			return nil, fmt.Errorf("%s: score for %s is %s, not a number", b.Name(), item[0], item[1].Type())
		}
		entries = append(entries, entry{node: item[0], score: f})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		return keyString(entries[i].node) < keyString(entries[j].node)
	})
	if k >= 0 && len(entries) > k {
		entries = entries[:k]
	}

	elems := make([]starlark.Value, len(entries))
	for i, e := range entries {
		row := starlark.NewDict(2)
		_ = row.SetKey(starlark.String("node"), e.node)
		_ = row.SetKey(starlark.String("score"), starlark.Float(e.score))
		elems[i] = row
	}
	return starlark.NewList(elems), nil
}
