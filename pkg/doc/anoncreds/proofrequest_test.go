/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package anoncreds

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleProofRequest = `{
	"name": "Proof of driving",
	"version": "1.0",
	"nonce": "1234567890",
	"requested_attributes": {
		"attr_name": {
			"name": "name",
			"restrictions": [{"schema_name": "DriverLicense", "attr::name::value": "Alice"}]
		},
		"attr_birth": {
			"names": ["birthdate", "address"],
			"restrictions": [{"cred_def_id": "Th7MpTaRZVRYnPiabds81Y:3:CL:12:DriverLicense", "attr::address::marker": "1"}],
			"non_revoked": {"to": 1700000000}
		}
	},
	"requested_predicates": {
		"pred_age": {"name": "age", "p_type": ">=", "p_value": 18},
		"pred_score": {"name": "score", "p_type": "<", "p_value": "50"}
	}
}`

func TestParseProofRequest(t *testing.T) {
	t.Run("success from JSON", func(t *testing.T) {
		req, err := ParseProofRequest([]byte(sampleProofRequest))
		require.NoError(t, err)
		require.NoError(t, req.Validate())

		require.Equal(t, "Proof of driving", req.Name)
		require.Equal(t, []string{"attr_birth", "attr_name"}, req.AttributeGroupIDs())
		require.Equal(t, []string{"pred_age", "pred_score"}, req.PredicateGroupIDs())

		require.Equal(t, []string{"name"}, req.RequestedAttributes["attr_name"].AttributeNames())
		require.Equal(t, []string{"birthdate", "address"}, req.RequestedAttributes["attr_birth"].AttributeNames())
		require.Equal(t, int64(1700000000), req.RequestedAttributes["attr_birth"].NonRevoked.To)

		restriction := req.RequestedAttributes["attr_name"].Restrictions[0]
		require.Equal(t, "DriverLicense", restriction.SchemaName)
		require.Equal(t, map[string]string{"name": "Alice"}, restriction.AttributeValues)

		restriction = req.RequestedAttributes["attr_birth"].Restrictions[0]
		require.Equal(t, map[string]bool{"address": true}, restriction.AttributeMarkers)

		require.Equal(t, GreaterThanOrEqual, req.RequestedPredicates["pred_age"].PType)
		require.Equal(t, int64(18), req.RequestedPredicates["pred_age"].PValue)
		require.Equal(t, int64(50), req.RequestedPredicates["pred_score"].PValue)
	})

	t.Run("success from map", func(t *testing.T) {
		var raw map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(sampleProofRequest), &raw))

		req, err := ParseProofRequest(raw)
		require.NoError(t, err)
		require.Len(t, req.RequestedAttributes, 2)
		require.Len(t, req.RequestedPredicates, 2)
	})

	t.Run("success from struct", func(t *testing.T) {
		in := &ProofRequest{Name: "test"}

		req, err := ParseProofRequest(in)
		require.NoError(t, err)
		require.Same(t, in, req)
	})

	t.Run("error - nil payload", func(t *testing.T) {
		_, err := ParseProofRequest(nil)
		require.ErrorIs(t, err, ErrInvalidProofRequest)
	})

	t.Run("error - invalid JSON", func(t *testing.T) {
		_, err := ParseProofRequest("{")
		require.ErrorIs(t, err, ErrInvalidProofRequest)
	})

	t.Run("error - invalid p_value", func(t *testing.T) {
		_, err := ParseProofRequest(`{"requested_predicates":{"p":{"name":"age","p_type":">=","p_value":"eighteen"}}}`)
		require.ErrorIs(t, err, ErrInvalidProofRequest)
		require.Contains(t, err.Error(), "p_value")
	})

	t.Run("p_value must be an exact integer", func(t *testing.T) {
		predicate := func(pValue string) string {
			return `{"requested_predicates":{"pred_age":{"name":"age","p_type":">=","p_value":` + pValue + `}}}`
		}

		for _, pValue := range []string{`18.5`, `"18.5"`, `1e3`, `9223372036854775808`, `true`} {
			_, err := ParseProofRequest(predicate(pValue))
			require.ErrorIs(t, err, ErrInvalidProofRequest, pValue)
		}

		req, err := ParseProofRequest(predicate(`9007199254740993`))
		require.NoError(t, err)
		require.Equal(t, int64(9007199254740993), req.RequestedPredicates["pred_age"].PValue)

		req, err = ParseProofRequest(predicate(`"-5"`))
		require.NoError(t, err)
		require.Equal(t, int64(-5), req.RequestedPredicates["pred_age"].PValue)

		req, err = ParseProofRequest(predicate(`null`))
		require.NoError(t, err)
		require.Zero(t, req.RequestedPredicates["pred_age"].PValue)
	})
}

func TestProofRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		request string
		errMsg  string
	}{
		{
			name:    "no groups",
			request: `{"name":"empty"}`,
			errMsg:  "no requested attributes or predicates",
		},
		{
			name:    "attribute without body",
			request: `{"requested_attributes":{"a":null}}`,
			errMsg:  "attribute group 'a' has no body",
		},
		{
			name:    "attribute with name and names",
			request: `{"requested_attributes":{"a":{"name":"x","names":["y"]}}}`,
			errMsg:  "both name and names",
		},
		{
			name:    "attribute without name",
			request: `{"requested_attributes":{"a":{"restrictions":[]}}}`,
			errMsg:  "neither name nor names",
		},
		{
			name:    "attribute with empty name in names",
			request: `{"requested_attributes":{"a":{"names":["x",""]}}}`,
			errMsg:  "has an empty name",
		},
		{
			name:    "predicate without body",
			request: `{"requested_predicates":{"p":null}}`,
			errMsg:  "predicate group 'p' has no body",
		},
		{
			name:    "predicate without name",
			request: `{"requested_predicates":{"p":{"p_type":">=","p_value":1}}}`,
			errMsg:  "has no name",
		},
		{
			name:    "predicate without type",
			request: `{"requested_predicates":{"p":{"name":"age","p_value":1}}}`,
			errMsg:  "has no p_type",
		},
		{
			name: "group id shared by attribute and predicate",
			request: `{"requested_attributes":{"ref1":{"name":"name"}},` +
				`"requested_predicates":{"ref1":{"name":"age","p_type":">=","p_value":18}}}`,
			errMsg: "group id 'ref1' is both an attribute and a predicate group",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			req, err := ParseProofRequest(tc.request)
			require.NoError(t, err)

			err = req.Validate()
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalidProofRequest))
			require.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestRestriction_MarshalJSON(t *testing.T) {
	r := Restriction{
		IssuerDID:        "did:sov:issuer",
		AttributeValues:  map[string]string{"name": "Alice"},
		AttributeMarkers: map[string]bool{"address": true, "phone": false},
	}

	data, err := json.Marshal(r)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"issuer_did": "did:sov:issuer",
		"attr::name::value": "Alice",
		"attr::address::marker": "1",
		"attr::phone::marker": "0"
	}`, string(data))

	var decoded Restriction
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, r, decoded)
	require.False(t, decoded.IsEmpty())
	require.True(t, (&Restriction{}).IsEmpty())
}
