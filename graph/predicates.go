// Package graph provides the in-memory edge set an object holds against the
// primary store: a mapping from predicate to an ordered set of target ids,
// scoped to exactly one subject. An object only ever stores edges for which
// it is the subject; reciprocity between objects is an explicit policy of the
// model layer, never implied here.
package graph

// Well-known predicates. Uses dotted domain.category.property notation.
const (
	// HasModel is the content-model edge asserted once per object at first
	// persist, identifying its type to the repository.
	HasModel = "system.model.hasModel"

	// HasMember and IsMemberOf are the conventional membership predicates
	// used by collection-style types.
	HasMember  = "rel.membership.hasMember"
	IsMemberOf = "rel.membership.isMemberOf"

	// HasConstituent and IsConstituentOf relate composites to their parts.
	HasConstituent  = "rel.structure.hasConstituent"
	IsConstituentOf = "rel.structure.isConstituentOf"

	// HasPart and IsPartOf are generic part-whole predicates.
	HasPart  = "rel.structure.hasPart"
	IsPartOf = "rel.structure.isPartOf"
)
