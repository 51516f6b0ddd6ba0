package config

import (
	"fmt"
	"slices"
	"strings"
)

// SortTasks orders tasks by depends_on and groups them into layers. Tasks in
// one layer do not depend on each other. Layers are sorted by id.
func SortTasks(tasks []Task) ([][]Task, error) {
	if len(tasks) == 0 {
		return nil, nil
	}

	byID := make(map[string]Task)
	dependants := make(map[string][]string)
	inDegree := make(map[string]int)

	for _, t := range tasks {
		if _, ok := byID[t.ID]; ok {
			return nil, fmt.Errorf("duplicate task id: %s", t.ID)
		}
		byID[t.ID] = t
		inDegree[t.ID] = 0
	}

	for _, t := range tasks {
		for _, dep := range t.DependsOn {
			if _, ok := byID[dep]; !ok {
				return nil, fmt.Errorf("task '%s' depends on unknown task '%s'", t.ID, dep)
			}
			dependants[dep] = append(dependants[dep], t.ID)
			inDegree[t.ID]++
		}
	}

	var queue []string
	for id, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, id)
		}
	}

	var layers [][]Task
	processed := 0
	for len(queue) > 0 {
		slices.Sort(queue)
		var next []string
		layer := make([]Task, 0, len(queue))
		for _, id := range queue {
			processed++
			layer = append(layer, byID[id])
			for _, d := range dependants[id] {
				inDegree[d]--
				if inDegree[d] == 0 {
					next = append(next, d)
				}
			}
		}
		layers = append(layers, layer)
		queue = next
	}

	if processed != len(tasks) {
		var cycle []string
		for id, degree := range inDegree {
			if degree > 0 {
				cycle = append(cycle, id)
			}
		}
		slices.Sort(cycle)
		return nil, fmt.Errorf("dependency cycle detected involves: %s", strings.Join(cycle, ", "))
	}
	return layers, nil
}

// Select returns the named tasks together with everything they depend on,
// in config order. No ids selects all tasks.
func Select(tasks []Task, ids ...string) ([]Task, error) {
	if len(ids) == 0 {
		return tasks, nil
	}
	byID := make(map[string]Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	want := make(map[string]bool)
	var visit func(id string) error
	visit = func(id string) error {
		if want[id] {
			return nil
		}
		t, ok := byID[id]
		if !ok {
			return fmt.Errorf("unknown task '%s'", id)
		}
		want[id] = true
		for _, dep := range t.DependsOn {
			if err := visit(dep); err != nil {
				return err
			}
		}
		return nil
	}
	for _, id := range ids {
		if err := visit(id); err != nil {
			return nil, err
		}
	}

	var out []Task
	for _, t := range tasks {
		if want[t.ID] {
			out = append(out, t)
		}
	}
	return out, nil
}
