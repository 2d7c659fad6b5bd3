package model

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/lattice-data/lattice/schema"
	"github.com/lattice-data/lattice/store"
)

// Delete removes the object after repairing every inbound edge pointing at
// it. Dependents come from two sources: declared has_many reflections, and
// an index scan for any object holding an inbound edge regardless of
// predicate. Repair is best-effort: a failed dependent save is collected and
// does not stop the others, surfacing afterwards as ErrRepairIncomplete. The
// primary-store delete is the commit point: if the store reports the object
// absent the whole operation fails with ErrObjectNotFound and the index is
// left untouched. After a successful store delete the index record is
// removed and the removal explicitly committed; an index failure there is a
// warning-level outcome, not a rollback.
func (o *Object) Delete(ctx context.Context) error {
	switch o.state {
	case stateDeleted:
		return fmt.Errorf("delete %s: %w", o.id, ErrObjectNotFound)
	case stateNew:
		return fmt.Errorf("delete: %w", ErrNotPersisted)
	}

	dependents, err := o.collectDependents(ctx)
	if err != nil {
		return err
	}

	var repairErrs error
	for _, dep := range dependents {
		stripped := dep.graph.RemoveTarget(o.id)
		if len(stripped) == 0 {
			continue
		}
		if err := dep.Save(ctx); err != nil {
			repairErrs = multierr.Append(repairErrs, fmt.Errorf("dependent %s: %v", dep.ID(), err))
			o.repo.logger.Warn("failed to repair dependent during delete",
				zap.String("id", o.id),
				zap.String("dependent", dep.ID()),
				zap.Error(err),
			)
			continue
		}
	}

	if err := o.repo.store.Delete(ctx, o.id); err != nil {
		if store.IsNotFound(err) {
			return fmt.Errorf("delete %s: %w", o.id, ErrObjectNotFound)
		}
		return fmt.Errorf("delete %s: %w", o.id, err)
	}
	o.state = stateDeleted

	var indexErr error
	if o.repo.index != nil {
		indexErr = o.removeFromIndex(ctx)
	}

	if repairErrs != nil {
		repairErrs = fmt.Errorf("%w: %v", ErrRepairIncomplete, repairErrs)
	}
	return multierr.Combine(repairErrs, indexErr)
}

// removeFromIndex deletes the object's index record and commits the removal
// so it is durably visible before Delete returns.
func (o *Object) removeFromIndex(ctx context.Context) error {
	if err := o.repo.index.Delete(ctx, o.id); err != nil {
		o.repo.logger.Warn("failed to remove index record",
			zap.String("id", o.id), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrIndexFailure, err)
	}
	if err := o.repo.index.Commit(ctx); err != nil {
		o.repo.logger.Warn("failed to commit index removal",
			zap.String("id", o.id), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrIndexFailure, err)
	}
	return nil
}

// collectDependents enumerates every object that may hold an edge pointing
// at this one: targets of declared has_many reflections, plus the index's
// inbound-edge scan, which covers relations not declared on this type.
// Results are deduplicated by id and ordered for deterministic repair.
func (o *Object) collectDependents(ctx context.Context) ([]*Object, error) {
	seen := make(map[string]*Object)

	for _, ref := range o.repo.registry.Reflections(o.model) {
		if ref.Macro != schema.MacroHasMany {
			continue
		}
		assoc, err := o.Association(ref.Name)
		if err != nil {
			return nil, err
		}
		children, err := assoc.All(ctx)
		if err != nil {
			return nil, fmt.Errorf("enumerate %s: %w", ref.Name, err)
		}
		for _, child := range children {
			if child.ID() != o.id {
				seen[child.ID()] = child
			}
		}
	}

	if o.repo.index != nil {
		records, err := o.repo.index.QueryInbound(ctx, o.id)
		if err != nil {
			return nil, fmt.Errorf("%w: inbound scan: %v", ErrIndexFailure, err)
		}
		for _, record := range records {
			if record.ID == o.id {
				continue
			}
			if _, ok := seen[record.ID]; ok {
				continue
			}
			dep, err := o.repo.Fetch(ctx, record.ID)
			if err != nil {
				if IsNotFound(err) {
					// Stale index entry; nothing left to repair.
					continue
				}
				return nil, err
			}
			seen[record.ID] = dep
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	dependents := make([]*Object, 0, len(ids))
	for _, id := range ids {
		dependents = append(dependents, seen[id])
	}
	return dependents, nil
}
