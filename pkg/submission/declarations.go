/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package submission

import (
	"fmt"
	"strings"

	"github.com/hyperledger/aries-framework-go/component/models/presexch"

	"github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/doc/anoncreds"
)

const typePath = "$.type"

// requestInfo is what the builder needs from a request regardless of its format.
type requestInfo struct {
	name         string
	purpose      string
	comment      string
	declarations []*Declaration
}

func describeRequest(req Request) (*requestInfo, error) {
	switch r := req.(type) {
	case *SelectiveDisclosureRequest:
		return describeProofRequest(r)
	case *PresentationExchangeRequest:
		return describeDefinition(r)
	case *LegacyExchangeRequest:
		return describeExchangeRecord(r)
	default:
		return nil, fmt.Errorf("%w: unsupported request type %T", ErrMalformedRequest, req)
	}
}

func describeProofRequest(req *SelectiveDisclosureRequest) (*requestInfo, error) {
	if req.ProofRequest == nil {
		return nil, fmt.Errorf("%w: no proof request", ErrMalformedRequest)
	}

	pr := req.ProofRequest

	if err := pr.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRequest, err)
	}

	info := &requestInfo{name: pr.Name, comment: req.Comment}

	for _, id := range pr.AttributeGroupIDs() {
		attr := pr.RequestedAttributes[id]

		info.declarations = append(info.declarations, &Declaration{
			GroupID:      id,
			Kind:         AttributeDeclaration,
			Names:        attr.AttributeNames(),
			Restrictions: attr.Restrictions,
		})
	}

	for _, id := range pr.PredicateGroupIDs() {
		pred := pr.RequestedPredicates[id]

		info.declarations = append(info.declarations, &Declaration{
			GroupID: id,
			Kind:    PredicateDeclaration,
			Names:   []string{pred.Name},
			Predicate: &Predicate{
				Name:     pred.Name,
				Operator: string(pred.PType),
				Value:    pred.PValue,
			},
			Restrictions: pred.Restrictions,
		})
	}

	return info, nil
}

func describeDefinition(req *PresentationExchangeRequest) (*requestInfo, error) {
	pd := req.PresentationDefinition
	if pd == nil {
		return nil, fmt.Errorf("%w: no presentation definition", ErrMalformedRequest)
	}

	if len(pd.InputDescriptors) == 0 {
		return nil, fmt.Errorf("%w: presentation definition '%s' has no input descriptors", ErrMalformedRequest, pd.ID)
	}

	info := &requestInfo{name: pd.Name, purpose: pd.Purpose, comment: req.Comment}
	seen := map[string]struct{}{}

	for _, descriptor := range pd.InputDescriptors {
		if descriptor != nil {
			if _, ok := seen[descriptor.ID]; ok {
				return nil, fmt.Errorf("%w: duplicate input descriptor '%s'", ErrMalformedRequest, descriptor.ID)
			}

			seen[descriptor.ID] = struct{}{}
		}

		declarations, err := descriptorDeclarations(descriptor)
		if err != nil {
			return nil, err
		}

		info.declarations = append(info.declarations, declarations...)
	}

	return info, nil
}

func describeExchangeRecord(req *LegacyExchangeRequest) (*requestInfo, error) {
	if req.Record == nil {
		return nil, fmt.Errorf("%w: no exchange record", ErrMalformedRequest)
	}

	declarations, err := descriptorDeclarations(req.Record.InputDescriptor)
	if err != nil {
		return nil, err
	}

	return &requestInfo{
		name:         req.Record.Name,
		purpose:      req.Record.Purpose,
		comment:      req.Record.Comment,
		declarations: declarations,
	}, nil
}

// descriptorDeclarations returns one declaration per constraint field of the descriptor, all
// sharing the descriptor id. A descriptor without fields yields a single declaration.
func descriptorDeclarations(descriptor *presexch.InputDescriptor) ([]*Declaration, error) {
	if descriptor == nil {
		return nil, fmt.Errorf("%w: no input descriptor", ErrMalformedRequest)
	}

	if descriptor.ID == "" {
		return nil, fmt.Errorf("%w: input descriptor without id", ErrMalformedRequest)
	}

	schemas := make([]string, 0, len(descriptor.Schema))

	for _, schema := range descriptor.Schema {
		if schema != nil && schema.URI != "" {
			schemas = append(schemas, schema.URI)
		}
	}

	credentialType := descriptorCredentialType(descriptor, schemas)

	newDeclaration := func() *Declaration {
		return &Declaration{
			GroupID:        descriptor.ID,
			Kind:           AttributeDeclaration,
			DescriptorID:   descriptor.ID,
			Label:          descriptor.Name,
			Purpose:        descriptor.Purpose,
			Schemas:        schemas,
			CredentialType: credentialType,
		}
	}

	if descriptor.Constraints == nil || len(descriptor.Constraints.Fields) == 0 {
		return []*Declaration{newDeclaration()}, nil
	}

	declarations := make([]*Declaration, 0, len(descriptor.Constraints.Fields))

	for i, field := range descriptor.Constraints.Fields {
		if field == nil || len(field.Path) == 0 {
			return nil, fmt.Errorf("%w: input descriptor '%s' field %d has no path", ErrMalformedRequest,
				descriptor.ID, i)
		}

		decl := newDeclaration()
		decl.Names = []string{fieldName(field)}
		decl.Paths = field.Path
		decl.Filter = field.Filter
		decl.Optional = field.Optional

		declarations = append(declarations, decl)
	}

	return declarations, nil
}

// fieldName is the field id when present, else the last segment of the first path.
func fieldName(field *presexch.Field) string {
	if field.ID != "" {
		return field.ID
	}

	path := field.Path[0]

	if strings.HasSuffix(path, "']") || strings.HasSuffix(path, `"]`) {
		if i := strings.LastIndex(path, "["); i >= 0 {
			return strings.Trim(path[i:], `[]'"`)
		}
	}

	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i+1:]
	}

	return strings.TrimPrefix(path, "$")
}

// descriptorCredentialType is the credential type required by a $.type field filter, else the
// fragment or last segment of the first schema URI.
func descriptorCredentialType(descriptor *presexch.InputDescriptor, schemas []string) string {
	if descriptor.Constraints != nil {
		for _, field := range descriptor.Constraints.Fields {
			if field == nil || field.Filter == nil || len(field.Path) == 0 || field.Path[0] != typePath {
				continue
			}

			if value, ok := field.Filter.Const.(string); ok && value != "" {
				return value
			}

			if field.Filter.Pattern != "" {
				return strings.Trim(field.Filter.Pattern, "^$")
			}
		}
	}

	if len(schemas) == 0 {
		return ""
	}

	uri := schemas[0]

	if i := strings.LastIndex(uri, "#"); i >= 0 {
		return uri[i+1:]
	}

	return uri[strings.LastIndex(uri, "/")+1:]
}

// restrictionsName derives a name from the first restriction that yields one.
func restrictionsName(restrictions []*anoncreds.Restriction) string {
	for _, restriction := range restrictions {
		if restriction == nil {
			continue
		}

		if name := restriction.CredentialName(); name != "" {
			return name
		}
	}

	return ""
}
