/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package submission

import (
	"encoding/json"

	"github.com/hyperledger/aries-framework-go/component/models/presexch"
	"golang.org/x/exp/slices"

	"github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/doc/anoncreds"
)

// DeclarationKind is the kind of a requested declaration.
type DeclarationKind string

const (
	// AttributeDeclaration asks for disclosed attribute values.
	AttributeDeclaration DeclarationKind = "attribute"
	// PredicateDeclaration asks for a comparison over one attribute.
	PredicateDeclaration DeclarationKind = "predicate"
)

// Predicate is a single comparison (field, operator, value).
type Predicate struct {
	Name     string `json:"name"`
	Operator string `json:"operator"`
	Value    int64  `json:"value"`
}

// Declaration is one atomic ask from a verifier, keyed by its wire-level group id.
type Declaration struct {
	GroupID      string                   `json:"groupId"`
	Kind         DeclarationKind          `json:"kind"`
	Names        []string                 `json:"names,omitempty"`
	Predicate    *Predicate               `json:"predicate,omitempty"`
	Restrictions []*anoncreds.Restriction `json:"restrictions,omitempty"`

	// Presentation exchange only.
	DescriptorID   string           `json:"descriptorId,omitempty"`
	Label          string           `json:"label,omitempty"`
	Purpose        string           `json:"purpose,omitempty"`
	Paths          []string         `json:"paths,omitempty"`
	Filter         *presexch.Filter `json:"filter,omitempty"`
	Optional       bool             `json:"optional,omitempty"`
	Schemas        []string         `json:"schemas,omitempty"`
	CredentialType string           `json:"credentialType,omitempty"`
}

// CandidateMatch states that a credential can satisfy a declaration. Values holds the values the
// credential supplies for the requested names.
type CandidateMatch struct {
	GroupID      string            `json:"groupId"`
	CredentialID string            `json:"credentialId"`
	Values       map[string]string `json:"values,omitempty"`
}

// CredentialDisplay is the display data of a held credential.
type CredentialDisplay struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Format          string   `json:"format,omitempty"`
	Types           []string `json:"types,omitempty"`
	IssuerName      string   `json:"issuerName,omitempty"`
	Logo            string   `json:"logo,omitempty"`
	BackgroundColor string   `json:"backgroundColor,omitempty"`
	TextColor       string   `json:"textColor,omitempty"`
}

// RequestedField is one requested field as supplied by a specific credential.
type RequestedField struct {
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
	// Label is the field name, or the predicate restatement for predicates.
	Label     string     `json:"label"`
	Predicate *Predicate `json:"predicate,omitempty"`
}

// SubmissionOption is one candidate credential for an entry.
type SubmissionOption struct {
	Credential *CredentialDisplay `json:"credential"`
	Fields     []*RequestedField  `json:"fields"`
}

// GroupIDs are the wire-level group ids subsumed by an entry, partitioned by kind.
type GroupIDs struct {
	Attributes       []string `json:"attributes,omitempty"`
	Predicates       []string `json:"predicates,omitempty"`
	InputDescriptors []string `json:"inputDescriptors,omitempty"`
}

// Contains reports whether id is one of the group ids.
func (g GroupIDs) Contains(id string) bool {
	return slices.Contains(g.Attributes, id) || slices.Contains(g.Predicates, id) ||
		slices.Contains(g.InputDescriptors, id)
}

// SubmissionEntry is one user facing piece of requested information.
type SubmissionEntry struct {
	Name            string              `json:"name"`
	Purpose         string              `json:"purpose,omitempty"`
	GroupIDs        GroupIDs            `json:"groupIds"`
	RequestedFields []string            `json:"requestedFields"`
	Options         []*SubmissionOption `json:"options"`
	Selected        *SubmissionOption   `json:"selected,omitempty"`
}

// IsSatisfied reports whether at least one credential can satisfy the entry.
func (e *SubmissionEntry) IsSatisfied() bool {
	return len(e.Options) > 0
}

// Option returns the option backed by the given credential, or nil.
func (e *SubmissionEntry) Option(credentialID string) *SubmissionOption {
	for _, option := range e.Options {
		if option.Credential.ID == credentialID {
			return option
		}
	}

	return nil
}

// MarshalJSON adds the derived satisfied flag.
func (e *SubmissionEntry) MarshalJSON() ([]byte, error) {
	type entryAlias SubmissionEntry

	return json.Marshal(struct {
		*entryAlias
		IsSatisfied bool `json:"isSatisfied"`
	}{
		entryAlias:  (*entryAlias)(e),
		IsSatisfied: e.IsSatisfied(),
	})
}

// PresentationSubmission is the normalized, user reviewable view of a verifier request.
// It is an immutable value; Select returns a new submission.
type PresentationSubmission struct {
	ID      string             `json:"id"`
	Format  RequestFormat      `json:"format"`
	Name    string             `json:"name,omitempty"`
	Purpose string             `json:"purpose,omitempty"`
	Entries []*SubmissionEntry `json:"entries"`
	// Params is the raw request, kept for building the protocol response.
	Params json.RawMessage `json:"params,omitempty"`
}

// AreAllSatisfied reports whether every entry is satisfied.
func (s *PresentationSubmission) AreAllSatisfied() bool {
	for _, entry := range s.Entries {
		if !entry.IsSatisfied() {
			return false
		}
	}

	return true
}

// Entry returns the entry subsuming the given group id, or nil.
func (s *PresentationSubmission) Entry(groupID string) *SubmissionEntry {
	for _, entry := range s.Entries {
		if entry.GroupIDs.Contains(groupID) {
			return entry
		}
	}

	return nil
}

// MarshalJSON adds the derived satisfied flag.
func (s *PresentationSubmission) MarshalJSON() ([]byte, error) {
	type submissionAlias PresentationSubmission

	return json.Marshal(struct {
		*submissionAlias
		AreAllSatisfied bool `json:"areAllSatisfied"`
	}{
		submissionAlias: (*submissionAlias)(s),
		AreAllSatisfied: s.AreAllSatisfied(),
	})
}

// Selections maps the preserved group ids to the selected credential ids.
type Selections struct {
	Attributes       map[string]string `json:"attributes,omitempty"`
	Predicates       map[string]string `json:"predicates,omitempty"`
	InputDescriptors map[string]string `json:"inputDescriptors,omitempty"`
}

// Selections returns the current selection of every satisfied entry keyed by group id.
func (s *PresentationSubmission) Selections() *Selections {
	selections := &Selections{
		Attributes:       map[string]string{},
		Predicates:       map[string]string{},
		InputDescriptors: map[string]string{},
	}

	for _, entry := range s.Entries {
		if entry.Selected == nil {
			continue
		}

		for _, id := range entry.GroupIDs.Attributes {
			selections.Attributes[id] = entry.Selected.Credential.ID
		}

		for _, id := range entry.GroupIDs.Predicates {
			selections.Predicates[id] = entry.Selected.Credential.ID
		}

		for _, id := range entry.GroupIDs.InputDescriptors {
			selections.InputDescriptors[id] = entry.Selected.Credential.ID
		}
	}

	return selections
}
