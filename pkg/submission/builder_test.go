/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package submission_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hyperledger/aries-framework-go/component/models/presexch"
	"github.com/stretchr/testify/require"

	"github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/doc/anoncreds"
	"github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/internal/mock/resolver"
	"github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/submission"
)

const driverLicenseRequest = `{
	"name": "Driver check",
	"version": "1.0",
	"nonce": "98765",
	"requested_attributes": {
		"attr_name": {"name": "name", "restrictions": [{"schema_name": "DriverLicense"}]},
		"attr_birthdate": {"name": "birthdate", "restrictions": [{"schema_name": "DriverLicense"}]}
	},
	"requested_predicates": {
		"pred_age": {"name": "age", "p_type": ">=", "p_value": 18}
	}
}`

func match(groupID, credentialID string, values map[string]string) *submission.CandidateMatch {
	return &submission.CandidateMatch{GroupID: groupID, CredentialID: credentialID, Values: values}
}

func driverLicenseResolver() *resolver.MockResolver {
	return &resolver.MockResolver{
		Matches: map[string][]*submission.CandidateMatch{
			"attr_name":      {match("attr_name", "cred-1", map[string]string{"name": "Alice"})},
			"attr_birthdate": {match("attr_birthdate", "cred-1", map[string]string{"birthdate": "19900101"})},
			"pred_age": {
				match("pred_age", "cred-1", map[string]string{"age": "34"}),
				match("pred_age", "cred-2", map[string]string{"age": "40"}),
			},
		},
		Displays: map[string]*submission.CredentialDisplay{
			"cred-1": {ID: "cred-1", Name: "Driver License", Format: "anoncreds"},
			"cred-2": {ID: "cred-2", Name: "Student Card", Format: "anoncreds"},
		},
	}
}

func parseRequest(t *testing.T, format, payload string) submission.Request {
	t.Helper()

	req, err := submission.ParseRequest(format, payload)
	require.NoError(t, err)

	return req
}

func TestBuilder_Build_SelectiveDisclosure(t *testing.T) {
	t.Run("driver license scenario", func(t *testing.T) {
		mockResolver := driverLicenseResolver()
		builder := submission.NewBuilder(mockResolver, mockResolver)

		sub, err := builder.Build(context.Background(),
			parseRequest(t, submission.AnonCredsProofRequestFormat, driverLicenseRequest))
		require.NoError(t, err)

		require.NotEmpty(t, sub.ID)
		require.Equal(t, submission.SelectiveDisclosure, sub.Format)
		require.Equal(t, "Driver check", sub.Name)
		require.Len(t, sub.Entries, 2)
		require.True(t, sub.AreAllSatisfied())
		require.Equal(t, 3, mockResolver.ResolveCalls())

		attrs := sub.Entries[0]
		require.Equal(t, "DriverLicense", attrs.Name)
		require.Equal(t, []string{"attr_birthdate", "attr_name"}, attrs.GroupIDs.Attributes)
		require.Empty(t, attrs.GroupIDs.Predicates)
		require.Equal(t, []string{"birthdate", "name"}, attrs.RequestedFields)
		require.Len(t, attrs.Options, 1)
		require.Equal(t, "cred-1", attrs.Options[0].Credential.ID)
		require.Equal(t, "Driver License", attrs.Options[0].Credential.Name)
		require.Equal(t, "19900101", attrs.Options[0].Fields[0].Value)
		require.Equal(t, "Alice", attrs.Options[0].Fields[1].Value)
		require.Same(t, attrs.Options[0], attrs.Selected)

		pred := sub.Entries[1]
		require.Equal(t, []string{"pred_age"}, pred.GroupIDs.Predicates)
		require.Len(t, pred.Options, 2)
		require.Equal(t, "cred-1", pred.Options[0].Credential.ID)
		require.Equal(t, "cred-2", pred.Options[1].Credential.ID)
		require.Equal(t, "age greater than or equal to 18", pred.Options[1].Fields[0].Label)
		require.Equal(t, "Credential", pred.Name)

		selections := sub.Selections()
		require.Equal(t, map[string]string{"attr_name": "cred-1", "attr_birthdate": "cred-1"}, selections.Attributes)
		require.Equal(t, map[string]string{"pred_age": "cred-1"}, selections.Predicates)

		var params anoncreds.ProofRequest
		require.NoError(t, json.Unmarshal(sub.Params, &params))
		require.Equal(t, "98765", params.Nonce)
	})

	t.Run("repeated builds are identical", func(t *testing.T) {
		mockResolver := driverLicenseResolver()
		builder := submission.NewBuilder(mockResolver, mockResolver, submission.WithMaxConcurrency(3))
		req := parseRequest(t, submission.AnonCredsProofRequestFormat, driverLicenseRequest)

		first, err := builder.Build(context.Background(), req)
		require.NoError(t, err)

		second, err := builder.Build(context.Background(), req)
		require.NoError(t, err)

		firstJSON, err := json.Marshal(first.Entries)
		require.NoError(t, err)

		secondJSON, err := json.Marshal(second.Entries)
		require.NoError(t, err)

		require.Equal(t, string(firstJSON), string(secondJSON))
		require.NotEqual(t, first.ID, second.ID)
	})

	t.Run("partially satisfied", func(t *testing.T) {
		mockResolver := driverLicenseResolver()
		delete(mockResolver.Matches, "attr_name")

		sub, err := submission.NewBuilder(mockResolver, mockResolver).Build(context.Background(),
			parseRequest(t, submission.AnonCredsProofRequestFormat, driverLicenseRequest))
		require.NoError(t, err)

		require.Len(t, sub.Entries, 3)
		require.False(t, sub.AreAllSatisfied())

		missing := sub.Entry("attr_name")
		require.NotNil(t, missing)
		require.False(t, missing.IsSatisfied())
		require.Equal(t, "DriverLicense", missing.Name)
		require.NotContains(t, sub.Selections().Attributes, "attr_name")
	})

	t.Run("unsatisfiable fields of one credential collapse into one entry", func(t *testing.T) {
		mockResolver := &resolver.MockResolver{}

		sub, err := submission.NewBuilder(mockResolver, mockResolver).Build(context.Background(),
			parseRequest(t, submission.AnonCredsProofRequestFormat, driverLicenseRequest))
		require.NoError(t, err)

		require.Len(t, sub.Entries, 2)
		require.Equal(t, []string{"attr_birthdate", "attr_name"}, sub.Entries[0].GroupIDs.Attributes)
		require.Equal(t, []string{"pred_age"}, sub.Entries[1].GroupIDs.Predicates)
		require.False(t, sub.AreAllSatisfied())
		require.Equal(t, 0, mockResolver.DisplayCalls())
	})

	t.Run("comment names entries when generic name is disabled", func(t *testing.T) {
		mockResolver := &resolver.MockResolver{
			Matches: map[string][]*submission.CandidateMatch{"a": {match("a", "cred-1", nil)}},
		}

		sub, err := submission.NewBuilder(mockResolver, mockResolver, submission.WithGenericEntryName("")).Build(context.Background(),
			&submission.SelectiveDisclosureRequest{
				Comment: "Please share your email",
				ProofRequest: &anoncreds.ProofRequest{
					RequestedAttributes: map[string]*anoncreds.RequestedAttribute{"a": {Name: "email"}},
				},
			})
		require.NoError(t, err)
		require.Equal(t, "Please share your email", sub.Entries[0].Name)
	})

	t.Run("unknown operator", func(t *testing.T) {
		mockResolver := &resolver.MockResolver{}

		_, err := submission.NewBuilder(mockResolver, mockResolver).Build(context.Background(),
			parseRequest(t, submission.AnonCredsProofRequestFormat,
				`{"requested_predicates":{"p":{"name":"age","p_type":"!=","p_value":18}}}`))
		require.ErrorIs(t, err, submission.ErrUnknownOperator)
	})

	t.Run("malformed request", func(t *testing.T) {
		mockResolver := &resolver.MockResolver{}
		builder := submission.NewBuilder(mockResolver, mockResolver)

		for _, payload := range []string{
			`{"name":"nothing requested"}`,
			`{"requested_attributes":{"a":null}}`,
			`{"requested_predicates":{"p":null}}`,
			`{"requested_attributes":{"ref":{"name":"name"}},"requested_predicates":{"ref":{"name":"age","p_type":">=","p_value":18}}}`,
		} {
			_, err := builder.Build(context.Background(), parseRequest(t, submission.IndyProofRequestFormat, payload))
			require.ErrorIs(t, err, submission.ErrMalformedRequest, payload)
		}

		_, err := builder.Build(context.Background(), &submission.SelectiveDisclosureRequest{})
		require.ErrorIs(t, err, submission.ErrMalformedRequest)

		_, err = builder.Build(context.Background(), nil)
		require.ErrorIs(t, err, submission.ErrMalformedRequest)

		require.Equal(t, 0, mockResolver.ResolveCalls())
	})

	t.Run("resolver error fails the build", func(t *testing.T) {
		mockResolver := driverLicenseResolver()
		mockResolver.ResolveErr = errors.New("store unavailable")

		sub, err := submission.NewBuilder(mockResolver, mockResolver).Build(context.Background(),
			parseRequest(t, submission.AnonCredsProofRequestFormat, driverLicenseRequest))
		require.Error(t, err)
		require.Contains(t, err.Error(), "store unavailable")
		require.Nil(t, sub)
	})

	t.Run("display error fails the build", func(t *testing.T) {
		mockResolver := driverLicenseResolver()
		mockResolver.DisplayErr = errors.New("metadata unavailable")

		_, err := submission.NewBuilder(mockResolver, mockResolver).Build(context.Background(),
			parseRequest(t, submission.AnonCredsProofRequestFormat, driverLicenseRequest))
		require.Error(t, err)
		require.Contains(t, err.Error(), "metadata unavailable")
	})

	t.Run("dangling reference", func(t *testing.T) {
		mockResolver := driverLicenseResolver()
		mockResolver.Matches["attr_name"] = []*submission.CandidateMatch{match("attr_unknown", "cred-1", nil)}

		_, err := submission.NewBuilder(mockResolver, mockResolver).Build(context.Background(),
			parseRequest(t, submission.AnonCredsProofRequestFormat, driverLicenseRequest))
		require.ErrorIs(t, err, submission.ErrDanglingReference)
	})
}

func TestBuilder_Build_Concurrency(t *testing.T) {
	attributes := map[string]*anoncreds.RequestedAttribute{}
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		attributes[id] = &anoncreds.RequestedAttribute{Name: id}
	}

	req := &submission.SelectiveDisclosureRequest{ProofRequest: &anoncreds.ProofRequest{RequestedAttributes: attributes}}

	t.Run("respects concurrency limit", func(t *testing.T) {
		mockResolver := &resolver.MockResolver{Delay: 10 * time.Millisecond}

		sub, err := submission.NewBuilder(mockResolver, mockResolver, submission.WithMaxConcurrency(2)).Build(context.Background(), req)
		require.NoError(t, err)
		require.Len(t, sub.Entries, 8)
		require.Equal(t, 8, mockResolver.ResolveCalls())
		require.LessOrEqual(t, mockResolver.MaxInFlight(), 2)
	})

	t.Run("cancelled context abandons resolution", func(t *testing.T) {
		mockResolver := &resolver.MockResolver{Delay: time.Second}

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		start := time.Now()

		sub, err := submission.NewBuilder(mockResolver, mockResolver).Build(ctx, req)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		require.Nil(t, sub)
		require.Less(t, time.Since(start), time.Second)
	})

	t.Run("batch resolver is called once", func(t *testing.T) {
		calls := 0
		batch := &resolver.MockBatchResolver{
			ResolveAllFunc: func(_ context.Context, decls []*submission.Declaration) ([][]*submission.CandidateMatch, error) {
				calls++

				results := make([][]*submission.CandidateMatch, len(decls))
				for i, decl := range decls {
					results[i] = []*submission.CandidateMatch{match(decl.GroupID, "cred-1", nil)}
				}

				return results, nil
			},
		}

		sub, err := submission.NewBuilder(batch, batch).Build(context.Background(), req)
		require.NoError(t, err)
		require.Equal(t, 1, calls)
		require.Equal(t, 0, batch.ResolveCalls())
		require.Len(t, sub.Entries, 1)
		require.Len(t, sub.Entries[0].GroupIDs.Attributes, 8)
	})

	t.Run("batch resolver with misaligned result", func(t *testing.T) {
		batch := &resolver.MockBatchResolver{
			ResolveAllFunc: func(context.Context, []*submission.Declaration) ([][]*submission.CandidateMatch, error) {
				return nil, nil
			},
		}

		_, err := submission.NewBuilder(batch, batch).Build(context.Background(), req)
		require.Error(t, err)
		require.Contains(t, err.Error(), "batch resolver returned 0 results for 8 declarations")
	})
}

const driverLicenseDefinition = `{
	"challenge": "c1",
	"domain": "verifier.example.com",
	"presentation_definition": {
		"id": "pd-1",
		"name": "Age check",
		"purpose": "Verify your identity",
		"input_descriptors": [
			{
				"id": "driver_license",
				"name": "Driver License",
				"purpose": "We need your name and birth date",
				"schema": [{"uri": "https://example.org/examples#DriverLicense"}],
				"constraints": {
					"fields": [
						{"path": ["$.credentialSubject.name"]},
						{"path": ["$.credentialSubject.birthdate", "$.vc.credentialSubject.birthdate"]},
						{"path": ["$.credentialSubject['home address']"]}
					]
				}
			},
			{
				"id": "email",
				"schema": [{"uri": "https://example.org/examples/EmailCredential"}]
			}
		]
	}
}`

func TestBuilder_Build_PresentationExchange(t *testing.T) {
	t.Run("descriptors are pre-grouped", func(t *testing.T) {
		mockResolver := &resolver.MockResolver{
			Matches: map[string][]*submission.CandidateMatch{
				"driver_license/name": {
					match("driver_license", "vc-1", map[string]string{"name": "Alice"}),
					match("driver_license", "vc-2", map[string]string{"name": "Bob"}),
					match("driver_license", "vc-3", map[string]string{"name": "Carol"}),
				},
				"driver_license/birthdate": {
					match("driver_license", "vc-1", map[string]string{"birthdate": "1990-01-01"}),
					match("driver_license", "vc-3", map[string]string{"birthdate": "1985-01-01"}),
				},
				"driver_license/home address": {
					match("driver_license", "vc-3", map[string]string{"home address": "Main St"}),
					match("driver_license", "vc-1", map[string]string{"home address": "High St"}),
				},
			},
		}

		sub, err := submission.NewBuilder(mockResolver, mockResolver).Build(context.Background(),
			parseRequest(t, submission.PresentationExchangeFormat, driverLicenseDefinition))
		require.NoError(t, err)

		require.Equal(t, submission.PresentationExchange, sub.Format)
		require.Equal(t, "Age check", sub.Name)
		require.Equal(t, "Verify your identity", sub.Purpose)
		require.Len(t, sub.Entries, 2)
		require.False(t, sub.AreAllSatisfied())

		dl := sub.Entries[0]
		require.Equal(t, "Driver License", dl.Name)
		require.Equal(t, "We need your name and birth date", dl.Purpose)
		require.Equal(t, []string{"driver_license"}, dl.GroupIDs.InputDescriptors)
		require.Equal(t, []string{"name", "birthdate", "home address"}, dl.RequestedFields)
		require.Len(t, dl.Options, 2)
		require.Equal(t, "vc-1", dl.Options[0].Credential.ID)
		require.Equal(t, "vc-3", dl.Options[1].Credential.ID)
		require.Equal(t, "Main St", dl.Options[1].Fields[2].Value)

		email := sub.Entries[1]
		require.Equal(t, "EmailCredential", email.Name)
		require.False(t, email.IsSatisfied())

		require.Equal(t, map[string]string{"driver_license": "vc-1"}, sub.Selections().InputDescriptors)
	})

	t.Run("malformed definitions", func(t *testing.T) {
		mockResolver := &resolver.MockResolver{}
		builder := submission.NewBuilder(mockResolver, mockResolver)

		for _, req := range []*submission.PresentationExchangeRequest{
			{},
			{PresentationDefinition: &presexch.PresentationDefinition{ID: "pd"}},
			{PresentationDefinition: &presexch.PresentationDefinition{
				InputDescriptors: []*presexch.InputDescriptor{{Name: "no id"}},
			}},
			{PresentationDefinition: &presexch.PresentationDefinition{
				InputDescriptors: []*presexch.InputDescriptor{{ID: "a"}, {ID: "a"}},
			}},
			{PresentationDefinition: &presexch.PresentationDefinition{
				InputDescriptors: []*presexch.InputDescriptor{nil},
			}},
			{PresentationDefinition: &presexch.PresentationDefinition{
				InputDescriptors: []*presexch.InputDescriptor{{
					ID:          "a",
					Constraints: &presexch.Constraints{Fields: []*presexch.Field{{ID: "no path"}}},
				}},
			}},
		} {
			_, err := builder.Build(context.Background(), req)
			require.ErrorIs(t, err, submission.ErrMalformedRequest)
		}

		_, err := submission.ParseRequest(submission.PresentationExchangeFormat, "{")
		require.ErrorIs(t, err, submission.ErrMalformedRequest)
	})

	t.Run("credential type from type filter", func(t *testing.T) {
		mockResolver := &resolver.MockResolver{}

		sub, err := submission.NewBuilder(mockResolver, mockResolver).Build(context.Background(),
			parseRequest(t, submission.PresentationExchangeFormat, `{"presentation_definition":{"id":"pd","input_descriptors":[
				{"id":"d","constraints":{"fields":[{"path":["$.type"],"filter":{"type":"string","const":"Passport"}}]}}
			]}}`))
		require.NoError(t, err)
		require.Equal(t, "Passport", sub.Entries[0].Name)
		require.Equal(t, []string{"type"}, sub.Entries[0].RequestedFields)
	})
}

func TestBuilder_Build_LegacyExchange(t *testing.T) {
	mockResolver := &resolver.MockResolver{
		Matches: map[string][]*submission.CandidateMatch{
			"membership": {match("membership", "vc-9", map[string]string{"memberId": "42"})},
		},
	}

	req := parseRequest(t, submission.ExchangeRecordFormat, `{
		"id": "exchange-1",
		"name": "Club entry",
		"comment": "Show your membership",
		"input_descriptor": {
			"id": "membership",
			"constraints": {"fields": [{"id": "memberId", "path": ["$.credentialSubject.memberId"]}]}
		}
	}`)

	sub, err := submission.NewBuilder(mockResolver, mockResolver, submission.WithGenericEntryName("")).Build(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, submission.LegacyExchange, sub.Format)
	require.Equal(t, "Club entry", sub.Name)
	require.Len(t, sub.Entries, 1)
	require.Equal(t, "Show your membership", sub.Entries[0].Name)
	require.Equal(t, "42", sub.Entries[0].Selected.Fields[0].Value)

	_, err = submission.NewBuilder(mockResolver, mockResolver).Build(context.Background(), &submission.LegacyExchangeRequest{})
	require.ErrorIs(t, err, submission.ErrMalformedRequest)

	_, err = submission.NewBuilder(mockResolver, mockResolver).Build(context.Background(),
		&submission.LegacyExchangeRequest{Record: &submission.ExchangeRecord{ID: "no descriptor"}})
	require.ErrorIs(t, err, submission.ErrMalformedRequest)
}

func TestParseRequest(t *testing.T) {
	req, err := submission.ParseRequest(submission.AnonCredsProofRequestFormat, []byte(driverLicenseRequest))
	require.NoError(t, err)
	require.Equal(t, submission.SelectiveDisclosure, req.Format())

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(driverLicenseDefinition), &payload))

	req, err = submission.ParseRequest(submission.PresentationExchangeFormat, payload)
	require.NoError(t, err)
	require.Equal(t, submission.PresentationExchange, req.Format())
	require.Equal(t, "c1", req.(*submission.PresentationExchangeRequest).Challenge)

	_, err = submission.ParseRequest("unknown/format@v1.0", payload)
	require.ErrorIs(t, err, submission.ErrMalformedRequest)

	_, err = submission.ParseRequest(submission.ExchangeRecordFormat, nil)
	require.ErrorIs(t, err, submission.ErrMalformedRequest)

	_, err = submission.ParseRequest(submission.AnonCredsProofRequestFormat, "{")
	require.ErrorIs(t, err, submission.ErrMalformedRequest)
}
