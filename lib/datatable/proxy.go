// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package datatable

// Resolver maps the owner of a nested table prop to the base of the
// nested table. Returning false disables every prop under the table
// for this object.
type Resolver interface {
	Resolve(owner any) (any, bool)
}

// ResolverFunc adapts a function to [Resolver].
type ResolverFunc func(owner any) (any, bool)

// Resolve calls f.
func (f ResolverFunc) Resolve(owner any) (any, bool) {
	return f(owner)
}

// RecipientFilter is implemented by resolvers whose nested table is
// visible to a subset of recipients. FilterRecipients removes clients
// that must not see the table; recipients arrives holding the set that
// can see the enclosing table.
type RecipientFilter interface {
	FilterRecipients(owner any, recipients *Recipients)
}

// FilteredResolver pairs a resolver with a recipient filter.
type FilteredResolver struct {
	Resolver
	Filter func(owner any, recipients *Recipients)
}

// FilterRecipients calls r.Filter.
func (r FilteredResolver) FilterRecipients(owner any, recipients *Recipients) {
	if r.Filter != nil {
		r.Filter(owner, recipients)
	}
}

// VisibleTo returns a resolver that resolves like inner and limits the
// nested table to the clients reported by visible.
func VisibleTo(inner Resolver, visible func(owner any) Recipients) FilteredResolver {
	return FilteredResolver{
		Resolver: inner,
		Filter: func(owner any, recipients *Recipients) {
			recipients.Intersect(visible(owner))
		},
	}
}
