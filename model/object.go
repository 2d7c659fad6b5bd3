package model

import (
	"fmt"
	"sort"

	"github.com/lattice-data/lattice/graph"
	"github.com/lattice-data/lattice/store"
)

// lifecycleState tracks where an object is in its persistence lifecycle
type lifecycleState int

const (
	stateNew lifecycleState = iota
	statePersisted
	stateDeleted
)

// Object is one domain entity mapped onto the primary store: an identity
// assigned at first persist, a type tag, outbound predicate edges, flat
// properties, and named opaque content streams. An Object is not safe for
// concurrent use; each save/delete runs to completion from the caller's
// perspective, and concurrent operations on distinct handles of the same id
// resolve last-write-wins.
type Object struct {
	repo         *Repo
	id           string
	model        string
	state        lifecycleState
	graph        *graph.Graph
	properties   map[string]string
	content      map[string][]byte
	associations map[string]*Association
}

// ID returns the object's identity, or "" before the first save
func (o *Object) ID() string {
	return o.id
}

// Model returns the object's type tag
func (o *Object) Model() string {
	return o.model
}

// IsNew returns true before the first successful save
func (o *Object) IsNew() bool {
	return o.state == stateNew
}

// IsPersisted returns true once the object exists in the primary store
func (o *Object) IsPersisted() bool {
	return o.state == statePersisted
}

// IsDeleted returns true after a successful delete
func (o *Object) IsDeleted() bool {
	return o.state == stateDeleted
}

// Graph returns the object's outbound edge set. Mutations are durable only
// after the next save.
func (o *Object) Graph() *graph.Graph {
	return o.graph
}

// Property returns a metadata property value
func (o *Object) Property(name string) string {
	return o.properties[name]
}

// SetProperty sets a metadata property; durable after the next save
func (o *Object) SetProperty(name, value string) {
	o.properties[name] = value
}

// Properties returns a copy of all metadata properties
func (o *Object) Properties() map[string]string {
	cp := make(map[string]string, len(o.properties))
	for k, v := range o.properties {
		cp[k] = v
	}
	return cp
}

// Content returns the named content stream, or nil if absent
func (o *Object) Content(name string) []byte {
	return o.content[name]
}

// SetContent stores a named content stream; durable after the next save.
// The bytes are opaque to the persistence core.
func (o *Object) SetContent(name string, data []byte) {
	o.content[name] = data
}

// DeleteContent removes a named content stream
func (o *Object) DeleteContent(name string) {
	delete(o.content, name)
}

// ContentNames returns the sorted names of all content streams
func (o *Object) ContentNames() []string {
	names := make([]string, 0, len(o.content))
	for name := range o.content {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Association returns the proxy for a declared association. Proxies are
// built per object instance and cached; they are never persisted.
func (o *Object) Association(name string) (*Association, error) {
	if a, ok := o.associations[name]; ok {
		return a, nil
	}
	ref, ok := o.repo.registry.Lookup(o.model, name)
	if !ok {
		return nil, fmt.Errorf("%w: %s on type %s", ErrUnknownAssociation, name, o.model)
	}
	a := &Association{owner: o, ref: ref}
	o.associations[name] = a
	return a, nil
}

// toState projects the object into its persisted form
func (o *Object) toState() *store.State {
	state := store.NewState(o.id, o.model)
	for k, v := range o.properties {
		state.Properties[k] = v
	}
	state.Edges = o.graph.Edges()
	for name, data := range o.content {
		cp := make([]byte, len(data))
		copy(cp, data)
		state.Content[name] = cp
	}
	return state
}
