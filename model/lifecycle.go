package model

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lattice-data/lattice/index"
)

// Save persists the object. A new object is assigned its id, gets the
// content-model edge asserted, and transitions to persisted; an already
// persisted object is written in place. The primary-store write either fully
// applies or leaves state unchanged; the index is refreshed afterwards when
// the type's policy asks for it. An index failure does not roll back the
// primary write: it is surfaced as ErrIndexFailure and logged at warn level,
// since the index now lags the store.
func (o *Object) Save(ctx context.Context) error {
	if o.state == stateDeleted {
		return fmt.Errorf("save: %w", ErrObjectDeleted)
	}

	creating := o.state == stateNew
	if creating {
		if o.id == "" {
			o.id = o.repo.mintID()
		}
		o.graph.Set(o.repo.modelPredicateFor(o.model), modelURI(o.model))
	}

	if err := o.repo.store.Save(ctx, o.toState()); err != nil {
		if creating {
			// State must not advance on a rejected write; the minted id is
			// kept so a retried save stays idempotent.
			o.graph.Clear(o.repo.modelPredicateFor(o.model))
		}
		return fmt.Errorf("%w: %v", ErrPersistFailure, err)
	}
	o.state = statePersisted

	policy := o.repo.policyFor(o.model)
	needsIndex := policy.UpdateNeedsIndex(o)
	if creating {
		needsIndex = policy.CreateNeedsIndex(o)
	}
	if !needsIndex {
		return nil
	}

	if err := o.updateIndex(ctx); err != nil {
		o.repo.logger.Warn("index refresh failed; index lags primary store",
			zap.String("id", o.id),
			zap.String("model", o.model),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", ErrIndexFailure, err)
	}
	return nil
}

// UpdateProperties applies the given properties and saves
func (o *Object) UpdateProperties(ctx context.Context, props map[string]string) error {
	for k, v := range props {
		o.properties[k] = v
	}
	return o.Save(ctx)
}

// updateIndex upserts the object's denormalized projection. The write stays
// pending until the index client's next commit.
func (o *Object) updateIndex(ctx context.Context) error {
	if o.repo.index == nil {
		return nil
	}
	record := index.NewRecord(o.id, o.model, o.graph.Edges())
	return o.repo.index.Upsert(ctx, record)
}

// modelURI builds the content-model edge target for a type tag
func modelURI(model string) string {
	return "model:" + model
}
