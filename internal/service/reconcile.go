package service

import (
	"slices"

	"github.com/todolists/todolists-go/internal/model"
)

// ReconcilePlan is the set of store operations that turns a list's current
// items into a client's desired items.
type ReconcilePlan struct {
	Create []model.Todo
	Update []model.Todo
	Delete []int64
	// Unchanged counts matched items whose fields already equal the target.
	Unchanged int
}

// Empty reports whether applying the plan would change nothing.
func (p ReconcilePlan) Empty() bool {
	return len(p.Create) == 0 && len(p.Update) == 0 && len(p.Delete) == 0
}

// PlanReconcile matches targets against existing items by id.
//
// A target whose id is absent, unknown or already consumed by an earlier target
// becomes a create. A target whose id matches an existing item becomes an update
// (skipped when nothing differs). Existing items no target mentioned are deleted.
func PlanReconcile(existing []model.Todo, targets []model.TodoInput) ReconcilePlan {
	remaining := make(map[int64]model.Todo, len(existing))
	for _, it := range existing {
		remaining[it.ID] = it
	}

	var plan ReconcilePlan
	for _, t := range targets {
		if t.ID != nil {
			if cur, ok := remaining[*t.ID]; ok {
				delete(remaining, *t.ID)
				if cur.Task == t.Task && cur.Completed == t.Completed {
					plan.Unchanged++
					continue
				}
				cur.Task = t.Task
				cur.Completed = t.Completed
				plan.Update = append(plan.Update, cur)
				continue
			}
		}
		plan.Create = append(plan.Create, model.Todo{Task: t.Task, Completed: t.Completed})
	}

	for id := range remaining {
		plan.Delete = append(plan.Delete, id)
	}
	slices.Sort(plan.Delete)

	return plan
}
