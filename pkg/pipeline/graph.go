package pipeline

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

// TaskGraph is the task dependency graph. Edges point from a task to the
// tasks it depends on.
type TaskGraph struct {
	graph  *simple.DirectedGraph
	names  map[int64]string
	ids    map[string]int64
	nextID int64
}

// NewTaskGraph builds the dependency graph for a pipeline.
func NewTaskGraph(p *Pipeline) *TaskGraph {
	tg := &TaskGraph{
		graph: simple.NewDirectedGraph(),
		names: make(map[int64]string),
		ids:   make(map[string]int64),
	}

	for i := range p.Tasks {
		tg.addTask(p.Tasks[i].Name)
	}
	for i := range p.Tasks {
		for _, dep := range p.Tasks[i].DependsOn {
			tg.addDependency(p.Tasks[i].Name, dep)
		}
	}
	return tg
}

func (tg *TaskGraph) addTask(name string) {
	if _, exists := tg.ids[name]; exists {
		return
	}
	tg.ids[name] = tg.nextID
	tg.names[tg.nextID] = name
	tg.graph.AddNode(simple.Node(tg.nextID))
	tg.nextID++
}

func (tg *TaskGraph) addDependency(from, to string) {
	fromID := tg.ids[from]
	toID := tg.ids[to]
	if fromID == toID {
		return // self-dependencies are rejected at validation
	}
	if !tg.graph.HasEdgeFromTo(fromID, toID) {
		tg.graph.SetEdge(tg.graph.NewEdge(tg.graph.Node(fromID), tg.graph.Node(toID)))
	}
}

// ExecutionOrder returns the task names in dependency order: every task
// appears after everything it depends on. Returns an error naming the
// offending tasks when the graph has a cycle.
//
// Tarjan emits strongly connected components sinks-first. With edges pointing
// at dependencies, the dependencies are the sinks, so the emission order is
// already a valid execution order once every component is a single task.
func (tg *TaskGraph) ExecutionOrder() ([]string, error) {
	t := newTarjan(tg.graph)
	sccs := t.findSCCs()

	order := make([]string, 0, len(sccs))
	for _, scc := range sccs {
		if len(scc) > 1 {
			cycle := make([]string, len(scc))
			for i, id := range scc {
				cycle[i] = tg.names[id]
			}
			return nil, fmt.Errorf("dependency cycle between tasks: %s", strings.Join(cycle, ", "))
		}
		order = append(order, tg.names[scc[0]])
	}
	return order, nil
}

// tarjan finds strongly connected components using Tarjan's algorithm.
type tarjan struct {
	graph   graph.Directed
	index   int
	stack   []int64
	onStack map[int64]bool
	indices map[int64]int
	lowLink map[int64]int
	sccs    [][]int64
}

func newTarjan(g graph.Directed) *tarjan {
	return &tarjan{
		graph:   g,
		onStack: make(map[int64]bool),
		indices: make(map[int64]int),
		lowLink: make(map[int64]int),
	}
}

func (t *tarjan) findSCCs() [][]int64 {
	nodes := t.graph.Nodes()
	for nodes.Next() {
		node := nodes.Node()
		if _, visited := t.indices[node.ID()]; !visited {
			t.strongConnect(node.ID())
		}
	}
	return t.sccs
}

func (t *tarjan) strongConnect(nodeID int64) {
	t.indices[nodeID] = t.index
	t.lowLink[nodeID] = t.index
	t.index++

	t.stack = append(t.stack, nodeID)
	t.onStack[nodeID] = true

	successors := t.graph.From(nodeID)
	for successors.Next() {
		succID := successors.Node().ID()
		if _, visited := t.indices[succID]; !visited {
			t.strongConnect(succID)
			if t.lowLink[succID] < t.lowLink[nodeID] {
				t.lowLink[nodeID] = t.lowLink[succID]
			}
		} else if t.onStack[succID] {
			if t.indices[succID] < t.lowLink[nodeID] {
				t.lowLink[nodeID] = t.indices[succID]
			}
		}
	}

	if t.lowLink[nodeID] == t.indices[nodeID] {
		var scc []int64
		for {
			top := t.stack[len(t.stack)-1]
			t.stack = t.stack[:len(t.stack)-1]
			t.onStack[top] = false
			scc = append(scc, top)
			if top == nodeID {
				break
			}
		}
		t.sccs = append(t.sccs, scc)
	}
}
