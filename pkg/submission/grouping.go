/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package submission

import (
	"strings"

	"github.com/samber/lo"
	"golang.org/x/exp/slices"
)

// keySpace discriminates grouping keys so values from different spaces never collide.
type keySpace int

const (
	descriptorKey keySpace = iota
	candidatesKey
	restrictionKey
	declarationKey
)

// groupKey identifies the entry a declaration belongs to.
type groupKey struct {
	space keySpace
	value string
}

// resolvedDeclaration is a declaration together with its candidates.
type resolvedDeclaration struct {
	declaration *Declaration
	matches     []*CandidateMatch
}

func (r *resolvedDeclaration) candidateIDs() []string {
	return lo.Uniq(lo.Map(r.matches, func(m *CandidateMatch, _ int) string {
		return m.CredentialID
	}))
}

// keyFor computes the grouping key of a resolved declaration.
func keyFor(r *resolvedDeclaration) groupKey {
	decl := r.declaration

	if decl.DescriptorID != "" {
		return groupKey{space: descriptorKey, value: decl.DescriptorID}
	}

	if ids := r.candidateIDs(); len(ids) > 0 {
		slices.Sort(ids)

		return groupKey{space: candidatesKey, value: strings.Join(ids, ",")}
	}

	if name := derivedName(decl); name != "" {
		return groupKey{space: restrictionKey, value: name}
	}

	return groupKey{space: declarationKey, value: decl.GroupID}
}

// derivedName is the name parsed out of the declaration's issuer, schema or credential type.
func derivedName(decl *Declaration) string {
	if decl.CredentialType != "" {
		return decl.CredentialType
	}

	return restrictionsName(decl.Restrictions)
}

// entryBuilder accumulates the declarations of one entry until grouping completes.
type entryBuilder struct {
	key          groupKey
	label        string
	derivedName  string
	purpose      string
	groupIDs     GroupIDs
	declarations []*Declaration
	// candidates is the narrowed, ordered candidate set.
	candidates []string
	// values holds, per credential, the values supplied for each requested name.
	values map[string]map[string]string
}

func newEntryBuilder(key groupKey, r *resolvedDeclaration) *entryBuilder {
	return &entryBuilder{
		key:         key,
		label:       r.declaration.Label,
		derivedName: derivedName(r.declaration),
		purpose:     r.declaration.Purpose,
		candidates:  r.candidateIDs(),
		values:      map[string]map[string]string{},
	}
}

func (b *entryBuilder) merge(r *resolvedDeclaration, first bool) {
	decl := r.declaration

	if !first {
		b.candidates = lo.Intersect(r.candidateIDs(), b.candidates)
	}

	b.declarations = append(b.declarations, decl)

	switch {
	case decl.DescriptorID != "":
		if !slices.Contains(b.groupIDs.InputDescriptors, decl.GroupID) {
			b.groupIDs.InputDescriptors = append(b.groupIDs.InputDescriptors, decl.GroupID)
		}
	case decl.Kind == PredicateDeclaration:
		b.groupIDs.Predicates = append(b.groupIDs.Predicates, decl.GroupID)
	default:
		b.groupIDs.Attributes = append(b.groupIDs.Attributes, decl.GroupID)
	}

	for _, match := range r.matches {
		if b.values[match.CredentialID] == nil {
			b.values[match.CredentialID] = map[string]string{}
		}

		for name, value := range match.Values {
			b.values[match.CredentialID][name] = value
		}
	}
}

// requestedNames is the union of the requested names of all merged declarations.
func (b *entryBuilder) requestedNames() []string {
	return lo.Uniq(lo.FlatMap(b.declarations, func(d *Declaration, _ int) []string {
		return d.Names
	}))
}

// group folds resolved declarations into entry builders, in order of first appearance.
func group(resolved []*resolvedDeclaration) []*entryBuilder {
	var (
		builders []*entryBuilder
		byKey    = map[groupKey]*entryBuilder{}
	)

	for _, r := range resolved {
		key := keyFor(r)

		builder, ok := byKey[key]
		if !ok {
			builder = newEntryBuilder(key, r)
			byKey[key] = builder
			builders = append(builders, builder)
		}

		builder.merge(r, !ok)
	}

	return builders
}
