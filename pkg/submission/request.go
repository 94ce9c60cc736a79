/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package submission

import (
	"encoding/json"
	"fmt"

	"github.com/hyperledger/aries-framework-go/component/models/presexch"

	"github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/doc/anoncreds"
)

// RequestFormat identifies the wire format of a verifier request.
type RequestFormat string

const (
	// SelectiveDisclosure is an AnonCreds proof request.
	SelectiveDisclosure RequestFormat = "anoncreds"
	// PresentationExchange is a DIF presentation definition.
	PresentationExchange RequestFormat = "presentation-exchange"
	// LegacyExchange is a single descriptor exchange record.
	LegacyExchange RequestFormat = "legacy-exchange"
)

// Attachment format identifiers accepted by ParseRequest.
const (
	AnonCredsProofRequestFormat = "anoncreds/proof-request@v1.0"
	IndyProofRequestFormat      = "hlindy/proof-req@v2.0"
	PresentationExchangeFormat  = "dif/presentation-exchange/definitions@v1.0"
	ExchangeRecordFormat        = "dif/presentation-exchange/record@v1.0"
)

// Request is a verifier request in one of the supported formats. The set of implementations is
// closed: *SelectiveDisclosureRequest, *PresentationExchangeRequest and *LegacyExchangeRequest.
type Request interface {
	Format() RequestFormat
	isRequest()
}

// SelectiveDisclosureRequest carries an AnonCreds proof request.
type SelectiveDisclosureRequest struct {
	ProofRequest *anoncreds.ProofRequest `json:"proofRequest"`
	Comment      string                  `json:"comment,omitempty"`
}

// PresentationExchangeRequest carries a presentation definition.
type PresentationExchangeRequest struct {
	Challenge              string                           `json:"challenge,omitempty"`
	Domain                 string                           `json:"domain,omitempty"`
	PresentationDefinition *presexch.PresentationDefinition `json:"presentation_definition,omitempty"`
	Comment                string                           `json:"comment,omitempty"`
}

// ExchangeRecord is the legacy exchange shape: one input descriptor plus request metadata.
type ExchangeRecord struct {
	ID              string                    `json:"id"`
	Name            string                    `json:"name,omitempty"`
	Purpose         string                    `json:"purpose,omitempty"`
	Comment         string                    `json:"comment,omitempty"`
	InputDescriptor *presexch.InputDescriptor `json:"input_descriptor,omitempty"`
}

// LegacyExchangeRequest carries a legacy exchange record.
type LegacyExchangeRequest struct {
	Record *ExchangeRecord `json:"record"`
}

// Format returns SelectiveDisclosure.
func (*SelectiveDisclosureRequest) Format() RequestFormat { return SelectiveDisclosure }

// Format returns PresentationExchange.
func (*PresentationExchangeRequest) Format() RequestFormat { return PresentationExchange }

// Format returns LegacyExchange.
func (*LegacyExchangeRequest) Format() RequestFormat { return LegacyExchange }

func (*SelectiveDisclosureRequest) isRequest()  {}
func (*PresentationExchangeRequest) isRequest() {}
func (*LegacyExchangeRequest) isRequest()       {}

// ParseRequest parses a request attachment payload given its attachment format identifier.
func ParseRequest(format string, payload interface{}) (Request, error) {
	switch format {
	case AnonCredsProofRequestFormat, IndyProofRequestFormat:
		proofRequest, err := anoncreds.ParseProofRequest(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedRequest, err)
		}

		return &SelectiveDisclosureRequest{ProofRequest: proofRequest}, nil
	case PresentationExchangeFormat:
		req := &PresentationExchangeRequest{}

		if err := decodePayload(payload, req); err != nil {
			return nil, err
		}

		return req, nil
	case ExchangeRecordFormat:
		record := &ExchangeRecord{}

		if err := decodePayload(payload, record); err != nil {
			return nil, err
		}

		return &LegacyExchangeRequest{Record: record}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported attachment format '%s'", ErrMalformedRequest, format)
	}
}

func decodePayload(payload, v interface{}) error {
	var data []byte

	switch p := payload.(type) {
	case nil:
		return fmt.Errorf("%w: empty payload", ErrMalformedRequest)
	case []byte:
		data = p
	case json.RawMessage:
		data = p
	case string:
		data = []byte(p)
	default:
		var err error

		data, err = json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedRequest, err)
	}

	return nil
}

func requestParams(req Request) (json.RawMessage, error) {
	var v interface{}

	switch r := req.(type) {
	case *SelectiveDisclosureRequest:
		v = r.ProofRequest
	case *PresentationExchangeRequest:
		v = r
	case *LegacyExchangeRequest:
		v = r.Record
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal request params: %w", err)
	}

	return data, nil
}
