// Package analysis statically derives the field dependency graph of a GraphQL
// operation without executing it.
//
// # Field collection
//
// Collection walks a selection set in source order and resolves fragments,
// inline fragments and @skip/@include into merged fields. A merged field is
// keyed by (response key, concrete object type): the same response key
// selected through an interface yields one merged field per implementing
// object type. The set of candidate object types is threaded through the
// walk and only ever narrows:
//
//   - the root selection set starts with the operation's root type;
//   - a type condition intersects the current set with the condition's
//     possible types;
//   - an incompatible condition leaves an empty set, and fields under it are
//     attributed to no type at all.
//
// Fragment spreads are tracked in a visited set that lives for one top-level
// collection call, so recursive fragments terminate and a fragment spread
// twice in one selection set is expanded once. Meta-selections such as
// __typename are not part of the graph.
//
// # Graph assembly
//
// Analyze collects the root fields and then expands every merged field with
// an explicit stack. Each popped field becomes a vertex with the next
// sequential id; its children are collected from the selection sets of all
// its contributing nodes against the possible types of its return type.
// Leaf fields have no children. Siblings are pushed in reverse so they come
// out in collection order, which makes vertex ids match Traverse order.
//
//	{ animals { name } }
//
//	Query.animals: [Animal] -> ROOT
//	Cat.name: String -> Query.animals: [Animal]
//	Dog.name: String -> Query.animals: [Animal]
//
// The schema is only read, never modified, so concurrent calls against one
// schema are safe.
package analysis
