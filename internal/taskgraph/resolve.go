package taskgraph

import (
	"strings"
)

// TriggerEdge records that Source fires Target after succeeding.
type TriggerEdge struct {
	Source string
	Target string
}

// Plan is the resolved execution order of a goal plus the triggers that may fire after it.
type Plan struct {
	Goal     string
	Order    []string
	Triggers []TriggerEdge
}

type taskSet map[string]struct{}

func (set taskSet) contains(name string) bool {
	_, exists := set[name]
	return exists
}

// Resolve returns the transitive dependency closure of goal, dependencies first.
// Ties are broken by registration order.
func (graph *Graph) Resolve(goal string) ([]string, error) {
	trimmedGoal := strings.TrimSpace(goal)
	closure, closureError := graph.dependencyClosure(trimmedGoal, nil)
	if closureError != nil {
		return nil, closureError
	}
	members := make(taskSet, len(closure))
	for _, name := range closure {
		members[name] = struct{}{}
	}
	if orderingError := graph.validateOrderingReferences(members); orderingError != nil {
		return nil, orderingError
	}
	return graph.orderMembers(members, graph.waitEdges(members, false))
}

// Plan resolves goal and validates the trigger relation reachable from it without running anything.
func (graph *Graph) Plan(goal string) (Plan, error) {
	order, resolveError := graph.Resolve(goal)
	if resolveError != nil {
		return Plan{}, resolveError
	}

	reachable := make(taskSet, len(order))
	for _, name := range order {
		reachable[name] = struct{}{}
	}

	triggerEdges := make([]TriggerEdge, 0)
	queue := append([]string(nil), order...)
	for len(queue) > 0 {
		source := queue[0]
		queue = queue[1:]
		for _, target := range graph.tasks[source].Triggers {
			if _, registered := graph.tasks[target]; !registered {
				return Plan{}, UnknownTaskError{TaskName: target, ReferencedBy: source}
			}
			triggerEdges = append(triggerEdges, TriggerEdge{Source: source, Target: target})
			if reachable.contains(target) {
				continue
			}
			added, closureError := graph.dependencyClosure(target, reachable)
			if closureError != nil {
				return Plan{}, closureError
			}
			queue = append(queue, added...)
		}
	}

	if orderingError := graph.validateOrderingReferences(reachable); orderingError != nil {
		return Plan{}, orderingError
	}
	if cyclePath := graph.findCycle(reachable, graph.waitEdges(reachable, true)); len(cyclePath) > 0 {
		return Plan{}, CycleDetectedError{Path: cyclePath}
	}

	return Plan{Goal: strings.TrimSpace(goal), Order: order, Triggers: triggerEdges}, nil
}

// dependencyClosure adds root and its transitive dependencies to visited (a fresh set when nil).
// With a nil visited it returns the whole closure; otherwise it returns only the newly added names.
func (graph *Graph) dependencyClosure(root string, visited taskSet) ([]string, error) {
	if _, registered := graph.tasks[root]; !registered {
		return nil, UnknownTaskError{TaskName: root}
	}

	returnAll := visited == nil
	if returnAll {
		visited = make(taskSet)
	}

	added := make([]string, 0)
	stack := []string{root}
	for len(stack) > 0 {
		name := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited.contains(name) {
			continue
		}
		visited[name] = struct{}{}
		added = append(added, name)
		for _, dependency := range graph.tasks[name].Dependencies {
			if _, registered := graph.tasks[dependency]; !registered {
				return nil, UnknownTaskError{TaskName: dependency, ReferencedBy: name}
			}
			if !visited.contains(dependency) {
				stack = append(stack, dependency)
			}
		}
	}

	if returnAll {
		return graph.sortByRegistration(visited), nil
	}
	return added, nil
}

func (graph *Graph) validateOrderingReferences(members taskSet) error {
	for _, name := range graph.sortByRegistration(members) {
		task := graph.tasks[name]
		for _, reference := range append(append([]string(nil), task.Before...), task.After...) {
			if _, registered := graph.tasks[reference]; !registered {
				return UnknownTaskError{TaskName: reference, ReferencedBy: name}
			}
		}
	}
	return nil
}

// waitEdges maps each member to the members that must finish before it.
func (graph *Graph) waitEdges(members taskSet, includeTriggers bool) map[string][]string {
	edges := make(map[string][]string, len(members))
	addEdge := func(waiter string, prerequisite string) {
		if !members.contains(waiter) || !members.contains(prerequisite) {
			return
		}
		for _, existing := range edges[waiter] {
			if existing == prerequisite {
				return
			}
		}
		edges[waiter] = append(edges[waiter], prerequisite)
	}

	for _, name := range graph.sortByRegistration(members) {
		task := graph.tasks[name]
		for _, dependency := range task.Dependencies {
			addEdge(name, dependency)
		}
		for _, earlier := range task.After {
			addEdge(name, earlier)
		}
		for _, later := range task.Before {
			addEdge(later, name)
		}
		if includeTriggers {
			for _, target := range task.Triggers {
				addEdge(target, name)
			}
		}
	}
	return edges
}

// orderMembers is Kahn's algorithm that always emits the earliest-registered ready task.
func (graph *Graph) orderMembers(members taskSet, waitsFor map[string][]string) ([]string, error) {
	remaining := make(map[string]int, len(members))
	dependents := make(map[string][]string, len(members))
	for name := range members {
		remaining[name] = len(waitsFor[name])
		for _, prerequisite := range waitsFor[name] {
			dependents[prerequisite] = append(dependents[prerequisite], name)
		}
	}

	candidates := graph.sortByRegistration(members)
	order := make([]string, 0, len(members))
	emitted := make(taskSet, len(members))
	for len(order) < len(members) {
		next := ""
		for _, candidate := range candidates {
			if !emitted.contains(candidate) && remaining[candidate] == 0 {
				next = candidate
				break
			}
		}
		if len(next) == 0 {
			return nil, CycleDetectedError{Path: graph.findCycle(members, waitsFor)}
		}
		emitted[next] = struct{}{}
		order = append(order, next)
		for _, dependent := range dependents[next] {
			remaining[dependent]--
		}
	}
	return order, nil
}

// findCycle returns a cycle in waitsFor as a closed path, or nil when the relation is acyclic.
func (graph *Graph) findCycle(members taskSet, waitsFor map[string][]string) []string {
	const (
		unvisited = iota
		inProgress
		finished
	)
	colors := make(map[string]int, len(members))
	path := make([]string, 0, len(members))

	var visit func(name string) []string
	visit = func(name string) []string {
		colors[name] = inProgress
		path = append(path, name)
		for _, prerequisite := range waitsFor[name] {
			switch colors[prerequisite] {
			case inProgress:
				for index, entry := range path {
					if entry == prerequisite {
						cycle := append([]string(nil), path[index:]...)
						return append(cycle, prerequisite)
					}
				}
			case unvisited:
				if cycle := visit(prerequisite); cycle != nil {
					return cycle
				}
			}
		}
		path = path[:len(path)-1]
		colors[name] = finished
		return nil
	}

	for _, name := range graph.sortByRegistration(members) {
		if colors[name] != unvisited {
			continue
		}
		if cycle := visit(name); cycle != nil {
			return cycle
		}
	}
	return nil
}

func (graph *Graph) sortByRegistration(members taskSet) []string {
	sorted := make([]string, 0, len(members))
	for _, name := range graph.registrationOrder {
		if members.contains(name) {
			sorted = append(sorted, name)
		}
	}
	return sorted
}
