package model

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lattice-data/lattice/index"
	"github.com/lattice-data/lattice/schema"
)

// Association is the lazy, cacheable handle to the resolved target(s) of one
// declared association. The same proxy type serves all three macros; the
// reflection decides which operations apply and where edges live:
//
//   - belongs_to: one edge on the owner, resolved by id from the store.
//   - has_many: no edge on the owner; children hold a belongs_to edge back,
//     and reads are a reverse query against the search index. Results
//     reflect only what has been indexed and committed.
//   - has_and_belongs_to_many: forward edges on the owner, resolved by id.
//
// Mutations queue edge changes on the owner's graph (and the target's, when
// inverse_of applies); they are durable only once the affected objects are
// saved.
type Association struct {
	owner   *Object
	ref     *schema.Reflection
	loaded  bool
	targets []*Object
}

// Reflection returns the association's declaration
func (a *Association) Reflection() *schema.Reflection {
	return a.ref
}

// Loaded returns true if the target set has been resolved and cached
func (a *Association) Loaded() bool {
	return a.loaded
}

// Reload drops the cached target set; the next read resolves again
func (a *Association) Reload() {
	a.invalidate()
}

func (a *Association) invalidate() {
	a.loaded = false
	a.targets = nil
}

// All resolves and returns the target set, caching it until invalidated
func (a *Association) All(ctx context.Context) ([]*Object, error) {
	if err := a.owner.operable(); err != nil {
		return nil, err
	}
	if !a.loaded {
		if err := a.resolve(ctx); err != nil {
			return nil, err
		}
	}
	result := make([]*Object, len(a.targets))
	copy(result, a.targets)
	return result, nil
}

// One resolves a to-one association; nil when no edge is set
func (a *Association) One(ctx context.Context) (*Object, error) {
	if a.ref.Macro != schema.MacroBelongsTo {
		return nil, fmt.Errorf("%w: One on %s", ErrMacroMismatch, a.ref.Macro)
	}
	targets, err := a.All(ctx)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, nil
	}
	return targets[0], nil
}

// IDs returns the target ids as a thin projection: forward macros read the
// owner's edges directly, has_many reads index record ids, neither resolves
// full objects from the store. Only persisted targets appear; a built child
// has no id until it is saved.
func (a *Association) IDs(ctx context.Context) ([]string, error) {
	if err := a.owner.operable(); err != nil {
		return nil, err
	}
	switch a.ref.Macro {
	case schema.MacroBelongsTo:
		if id := a.owner.graph.First(a.ref.Property); id != "" {
			return []string{id}, nil
		}
		return nil, nil
	case schema.MacroHasAndBelongsToMany:
		return a.owner.graph.Targets(a.ref.Property), nil
	default:
		if a.loaded {
			ids := make([]string, 0, len(a.targets))
			for _, t := range a.targets {
				// Built but unsaved children have no id yet.
				if t.ID() == "" {
					continue
				}
				ids = append(ids, t.ID())
			}
			return ids, nil
		}
		records, err := a.queryInverse(ctx)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(records))
		for _, r := range records {
			ids = append(ids, r.ID)
		}
		return ids, nil
	}
}

// TargetID reads a to-one edge without resolving the target object
func (a *Association) TargetID() string {
	if a.ref.Macro != schema.MacroBelongsTo {
		return ""
	}
	return a.owner.graph.First(a.ref.Property)
}

// SetTargetID writes a to-one edge directly; "" removes it. The target is
// not fetched or verified.
func (a *Association) SetTargetID(id string) error {
	if a.ref.Macro != schema.MacroBelongsTo {
		return fmt.Errorf("%w: SetTargetID on %s", ErrMacroMismatch, a.ref.Macro)
	}
	if err := a.owner.operable(); err != nil {
		return err
	}
	if id == "" {
		a.owner.graph.Clear(a.ref.Property)
	} else {
		a.owner.graph.Set(a.ref.Property, id)
	}
	a.invalidate()
	return nil
}

// Set replaces a to-one association's target; nil removes the edge. The old
// edge is dropped, never accumulated. Durable on the owner's next save.
func (a *Association) Set(target *Object) error {
	if a.ref.Macro != schema.MacroBelongsTo {
		return fmt.Errorf("%w: Set on %s", ErrMacroMismatch, a.ref.Macro)
	}
	if err := a.owner.operable(); err != nil {
		return err
	}
	if target == nil {
		a.owner.graph.Clear(a.ref.Property)
		a.invalidate()
		return nil
	}
	if err := a.checkTarget(target); err != nil {
		return err
	}
	a.owner.graph.Set(a.ref.Property, target.ID())
	a.invalidate()
	return nil
}

// Append adds a target to a collection association.
//
// For has_many the edge is written on the target (its belongs_to edge back
// to the owner), which requires the owner's id; the target becomes durable
// when the caller saves it. For has_and_belongs_to_many the edge is written
// on the owner and, when inverse_of is declared, mirrored onto the target's
// graph; a reciprocal write needs the owner's id too.
func (a *Association) Append(target *Object) error {
	if err := a.owner.operable(); err != nil {
		return err
	}
	if err := a.checkTarget(target); err != nil {
		return err
	}

	switch a.ref.Macro {
	case schema.MacroHasMany:
		if a.owner.id == "" {
			return fmt.Errorf("%w: has_many %s requires the owner's id", ErrNotPersisted, a.ref.Name)
		}
		target.graph.Set(a.ref.Property, a.owner.id)
		if a.loaded {
			a.targets = append(a.targets, target)
		}
		return nil

	case schema.MacroHasAndBelongsToMany:
		// Owner edge first, reciprocal second. A reciprocal that cannot be
		// written is reported, but the owner edge written before it stands.
		a.owner.graph.Add(a.ref.Property, target.ID())
		a.invalidate()
		inv, err := a.owner.repo.registry.Inverse(a.ref)
		if err != nil {
			return err
		}
		if inv == nil {
			return nil
		}
		if a.owner.id == "" {
			return fmt.Errorf("%w: inverse_of %s requires the owner's id", ErrNotPersisted, a.ref.InverseOf)
		}
		target.graph.Add(inv.Property, a.owner.id)
		return nil

	default:
		return fmt.Errorf("%w: Append on %s", ErrMacroMismatch, a.ref.Macro)
	}
}

// Remove detaches a target from a collection association, including the
// reciprocal edge when inverse_of applies. Durable once the affected
// objects are saved.
func (a *Association) Remove(target *Object) error {
	if err := a.owner.operable(); err != nil {
		return err
	}
	if target == nil {
		return fmt.Errorf("cannot remove nil target from %s", a.ref.Name)
	}

	switch a.ref.Macro {
	case schema.MacroHasMany:
		target.graph.Remove(a.ref.Property, a.owner.id)
		a.invalidate()
		return nil

	case schema.MacroHasAndBelongsToMany:
		inv, err := a.owner.repo.registry.Inverse(a.ref)
		if err != nil {
			return err
		}
		a.owner.graph.Remove(a.ref.Property, target.ID())
		if inv != nil {
			target.graph.Remove(inv.Property, a.owner.id)
		}
		a.invalidate()
		return nil

	default:
		return fmt.Errorf("%w: Remove on %s", ErrMacroMismatch, a.ref.Macro)
	}
}

// Replace fully replaces the collection with the given targets
// (clear-then-set). Counterpart objects are saved here: detached has_many
// children, old has_and_belongs_to_many targets holding a stale reciprocal
// edge, and new targets gaining one. The owner's own edge changes stay
// pending until its next save.
func (a *Association) Replace(ctx context.Context, targets []*Object) error {
	if err := a.owner.operable(); err != nil {
		return err
	}
	for _, t := range targets {
		if err := a.checkTarget(t); err != nil {
			return err
		}
	}

	switch a.ref.Macro {
	case schema.MacroHasMany:
		return a.replaceInverse(ctx, targets)
	case schema.MacroHasAndBelongsToMany:
		return a.replaceForward(ctx, targets)
	default:
		return fmt.Errorf("%w: Replace on %s", ErrMacroMismatch, a.ref.Macro)
	}
}

func (a *Association) replaceInverse(ctx context.Context, targets []*Object) error {
	if a.owner.id == "" {
		return fmt.Errorf("%w: has_many %s requires the owner's id", ErrNotPersisted, a.ref.Name)
	}

	current, err := a.All(ctx)
	if err != nil {
		return err
	}
	keep := make(map[string]bool, len(targets))
	for _, t := range targets {
		keep[t.ID()] = true
	}

	for _, child := range current {
		if keep[child.ID()] {
			continue
		}
		child.graph.Remove(a.ref.Property, a.owner.id)
		if err := child.Save(ctx); err != nil {
			return fmt.Errorf("failed to detach %s: %w", child.ID(), err)
		}
	}
	for _, child := range targets {
		child.graph.Set(a.ref.Property, a.owner.id)
		if err := child.Save(ctx); err != nil {
			return fmt.Errorf("failed to attach %s: %w", child.ID(), err)
		}
	}

	a.invalidate()
	return nil
}

func (a *Association) replaceForward(ctx context.Context, targets []*Object) error {
	inv, err := a.owner.repo.registry.Inverse(a.ref)
	if err != nil {
		return err
	}
	if inv != nil && a.owner.id == "" {
		return fmt.Errorf("%w: inverse_of %s requires the owner's id", ErrNotPersisted, a.ref.InverseOf)
	}

	keep := make(map[string]bool, len(targets))
	newIDs := make([]string, 0, len(targets))
	for _, t := range targets {
		keep[t.ID()] = true
		newIDs = append(newIDs, t.ID())
	}

	// Strip now-stale reciprocal edges before the forward set is replaced.
	if inv != nil {
		for _, oldID := range a.owner.graph.Targets(a.ref.Property) {
			if keep[oldID] {
				continue
			}
			old, err := a.owner.repo.Fetch(ctx, oldID)
			if err != nil {
				if IsNotFound(err) {
					continue
				}
				return err
			}
			old.graph.Remove(inv.Property, a.owner.id)
			if err := old.Save(ctx); err != nil {
				return fmt.Errorf("failed to strip reciprocal edge on %s: %w", oldID, err)
			}
		}
	}

	a.owner.graph.Set(a.ref.Property, newIDs...)
	if inv != nil {
		for _, t := range targets {
			if !t.graph.Add(inv.Property, a.owner.id) {
				continue
			}
			if err := t.Save(ctx); err != nil {
				return fmt.Errorf("failed to write reciprocal edge on %s: %w", t.ID(), err)
			}
		}
	}

	a.invalidate()
	return nil
}

// Build constructs an unsaved target of the declared class and wires the
// edge locally without persisting. For has_many the edge needs the owner's
// id. For forward macros the edge needs the target's id, which does not
// exist yet; the built object joins the cached set and is wired once it is
// persisted (Create does both steps).
func (a *Association) Build(props map[string]string) (*Object, error) {
	if err := a.owner.operable(); err != nil {
		return nil, err
	}

	target := a.owner.repo.New(a.ref.ClassName)
	for k, v := range props {
		target.SetProperty(k, v)
	}

	if a.ref.Macro == schema.MacroHasMany {
		if a.owner.id == "" {
			return nil, fmt.Errorf("%w: has_many %s requires the owner's id", ErrNotPersisted, a.ref.Name)
		}
		target.graph.Set(a.ref.Property, a.owner.id)
	}

	a.targets = append(a.targets, target)
	a.loaded = true
	return target, nil
}

// Create builds a target, persists it, and wires the association. The owner
// must already be persisted when the macro needs its id for the edge or for
// a reciprocal write.
func (a *Association) Create(ctx context.Context, props map[string]string) (*Object, error) {
	if err := a.owner.operable(); err != nil {
		return nil, err
	}

	switch a.ref.Macro {
	case schema.MacroHasMany:
		if a.owner.id == "" {
			return nil, fmt.Errorf("%w: has_many %s requires the owner's id", ErrNotPersisted, a.ref.Name)
		}
		target := a.owner.repo.New(a.ref.ClassName)
		for k, v := range props {
			target.SetProperty(k, v)
		}
		target.graph.Set(a.ref.Property, a.owner.id)
		if err := target.Save(ctx); err != nil {
			return nil, err
		}
		// The child is durable but only reaches the reverse query once the
		// index commits; drop the cache rather than pretend otherwise.
		a.invalidate()
		return target, nil

	case schema.MacroHasAndBelongsToMany:
		inv, err := a.owner.repo.registry.Inverse(a.ref)
		if err != nil {
			return nil, err
		}
		if inv != nil && a.owner.id == "" {
			return nil, fmt.Errorf("%w: inverse_of %s requires the owner's id", ErrNotPersisted, a.ref.InverseOf)
		}
		target := a.owner.repo.New(a.ref.ClassName)
		for k, v := range props {
			target.SetProperty(k, v)
		}
		if err := target.Save(ctx); err != nil {
			return nil, err
		}
		if err := a.Append(target); err != nil {
			return nil, err
		}
		return target, nil

	default:
		target := a.owner.repo.New(a.ref.ClassName)
		for k, v := range props {
			target.SetProperty(k, v)
		}
		if err := target.Save(ctx); err != nil {
			return nil, err
		}
		if err := a.Set(target); err != nil {
			return nil, err
		}
		return target, nil
	}
}

// resolve loads the target set from the store or the index
func (a *Association) resolve(ctx context.Context) error {
	a.targets = nil

	switch a.ref.Macro {
	case schema.MacroBelongsTo:
		id := a.owner.graph.First(a.ref.Property)
		if id == "" {
			break
		}
		target, err := a.owner.repo.Fetch(ctx, id)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", a.ref.Name, err)
		}
		a.targets = []*Object{target}

	case schema.MacroHasAndBelongsToMany:
		for _, id := range a.owner.graph.Targets(a.ref.Property) {
			target, err := a.owner.repo.Fetch(ctx, id)
			if err != nil {
				if IsNotFound(err) {
					// Dangling edge: the target was removed without this
					// object's edge being repaired.
					a.owner.repo.logger.Warn("skipping dangling association edge",
						zap.String("owner", a.owner.id),
						zap.String("property", a.ref.Property),
						zap.String("target", id),
					)
					continue
				}
				return fmt.Errorf("resolve %s: %w", a.ref.Name, err)
			}
			a.targets = append(a.targets, target)
		}

	case schema.MacroHasMany:
		if a.owner.id == "" {
			break
		}
		records, err := a.queryInverse(ctx)
		if err != nil {
			return err
		}
		for _, record := range records {
			target, err := a.owner.repo.Fetch(ctx, record.ID)
			if err != nil {
				if IsNotFound(err) {
					// Indexed but gone from the primary store: the index
					// lags; skip rather than fail the read.
					continue
				}
				return fmt.Errorf("resolve %s: %w", a.ref.Name, err)
			}
			a.targets = append(a.targets, target)
		}
	}

	a.loaded = true
	return nil
}

// queryInverse runs the reverse index query for a has_many association
func (a *Association) queryInverse(ctx context.Context) ([]*index.Record, error) {
	if a.owner.repo.index == nil {
		return nil, nil
	}
	records, err := a.owner.repo.index.Query(ctx, a.ref.ClassName, a.ref.Property, a.owner.id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexFailure, err)
	}
	return records, nil
}

// checkTarget validates a mutation target: it must exist, match the declared
// class, and be persisted when its id is needed for the edge.
func (a *Association) checkTarget(target *Object) error {
	if target == nil {
		return fmt.Errorf("association %s: nil target", a.ref.Name)
	}
	if target.Model() != a.ref.ClassName {
		return fmt.Errorf("%w: %s expects %s, got %s", ErrTypeMismatch, a.ref.Name, a.ref.ClassName, target.Model())
	}
	// Forward macros store the target's id on the owner.
	if a.ref.Forward() && target.ID() == "" {
		return fmt.Errorf("%w: target of %s has no id", ErrNotPersisted, a.ref.Name)
	}
	return nil
}

// operable rejects operations on deleted objects
func (o *Object) operable() error {
	if o.state == stateDeleted {
		return ErrObjectDeleted
	}
	return nil
}
