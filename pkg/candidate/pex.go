/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package candidate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PaesslerAG/gval"
	"github.com/PaesslerAG/jsonpath"
	"github.com/hyperledger/aries-framework-go/component/models/presexch"
	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
	"github.com/xeipuuv/gojsonschema"

	"github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/store/credential"
	"github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/submission"
)

const verifiableCredentialType = "VerifiableCredential"

// w3cHeader holds the credential properties used for matching and display.
type w3cHeader struct {
	Context []interface{} `mapstructure:"@context"`
	Types   []string      `mapstructure:"type"`
	Issuer  interface{}   `mapstructure:"issuer"`
	Name    string        `mapstructure:"name"`
}

func (h *w3cHeader) contexts() []string {
	return lo.FilterMap(h.Context, func(c interface{}, _ int) (string, bool) {
		s, ok := c.(string)

		return s, ok
	})
}

// issuer returns the issuer id and name; the issuer may be a string or an object.
func (h *w3cHeader) issuer() (string, string) {
	switch issuer := h.Issuer.(type) {
	case string:
		return issuer, ""
	case map[string]interface{}:
		id, _ := issuer["id"].(string)
		name, _ := issuer["name"].(string)

		return id, name
	default:
		return "", ""
	}
}

func parseW3C(record *credential.Record) (map[string]interface{}, *w3cHeader, error) {
	doc := map[string]interface{}{}

	if err := json.Unmarshal(record.Credential, &doc); err != nil {
		return nil, nil, fmt.Errorf("parse credential '%s': %w", record.ID, err)
	}

	header := &w3cHeader{}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           header,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create credential decoder: %w", err)
	}

	if err = decoder.Decode(doc); err != nil {
		return nil, nil, fmt.Errorf("decode credential '%s': %w", record.ID, err)
	}

	if len(record.Types) > 0 {
		header.Types = record.Types
	}

	return doc, header, nil
}

// matchesSchemas reports whether the credential has one of the schema URIs as a type or context.
func matchesSchemas(header *w3cHeader, schemas []string) bool {
	if len(schemas) == 0 {
		return true
	}

	contexts := header.contexts()

	for _, uri := range schemas {
		short := uri[strings.LastIndexAny(uri, "#/")+1:]

		if lo.Contains(header.Types, uri) || lo.Contains(header.Types, short) || lo.Contains(contexts, uri) {
			return true
		}
	}

	return false
}

func compilePaths(paths []string) ([]gval.Evaluable, error) {
	builder := gval.Full(jsonpath.PlaceholderExtension())
	evaluables := make([]gval.Evaluable, 0, len(paths))

	for _, path := range paths {
		evaluable, err := builder.NewEvaluable(path)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid path '%s': %w", submission.ErrMalformedRequest, path, err)
		}

		evaluables = append(evaluables, evaluable)
	}

	return evaluables, nil
}

func compileFilter(filter *presexch.Filter) (*gojsonschema.Schema, error) {
	if filter == nil {
		return nil, nil
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(filter))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid filter: %w", submission.ErrMalformedRequest, err)
	}

	return schema, nil
}

// evaluate returns the value of the first path that resolves in doc.
func evaluate(ctx context.Context, paths []gval.Evaluable, doc interface{}) (interface{}, bool) {
	for _, path := range paths {
		value, err := path(ctx, doc)
		if err == nil && value != nil {
			return value, true
		}
	}

	return nil, false
}

func (r *Resolver) resolveDescriptorField(ctx context.Context,
	decl *submission.Declaration) ([]*submission.CandidateMatch, error) {
	paths, err := compilePaths(decl.Paths)
	if err != nil {
		return nil, err
	}

	filter, err := compileFilter(decl.Filter)
	if err != nil {
		return nil, err
	}

	records, err := r.store.List(credential.W3C)
	if err != nil {
		return nil, fmt.Errorf("list w3c credentials: %w", err)
	}

	var matches []*submission.CandidateMatch

	for _, record := range records {
		doc, header, e := parseW3C(record)
		if e != nil {
			logger.Warnf("skipping credential: %s", e)

			continue
		}

		if !matchesSchemas(header, decl.Schemas) {
			continue
		}

		match := &submission.CandidateMatch{GroupID: decl.GroupID, CredentialID: record.ID}

		if len(paths) > 0 {
			value, ok := evaluate(ctx, paths, doc)
			if !ok {
				// An unresolved optional field does not exclude the credential.
				if decl.Optional {
					matches = append(matches, match)
				}

				continue
			}

			if filter != nil {
				result, e := filter.Validate(gojsonschema.NewGoLoader(value))
				if e != nil || !result.Valid() {
					continue
				}
			}

			match.Values = map[string]string{decl.Names[0]: stringify(value)}
		}

		matches = append(matches, match)
	}

	logger.Debugf("descriptor '%s': %d w3c candidates", decl.DescriptorID, len(matches))

	return matches, nil
}

func (r *Resolver) w3cDisplay(ctx context.Context, record *credential.Record) (*submission.CredentialDisplay, error) {
	_, header, err := parseW3C(record)
	if err != nil {
		return nil, err
	}

	display := &submission.CredentialDisplay{
		ID:     record.ID,
		Name:   header.Name,
		Format: string(record.Format),
		Types:  header.Types,
	}

	if display.Name == "" {
		types := lo.Without(header.Types, verifiableCredentialType)
		if len(types) > 0 {
			display.Name = types[len(types)-1]
		}
	}

	issuerID, issuerName := header.issuer()
	display.IssuerName = lo.Ternary(issuerName != "", issuerName, issuerID)

	if r.metadata != nil && issuerID != "" {
		metadata, err := r.metadata.FetchIssuerMetadata(ctx, issuerID)
		if err != nil {
			return nil, fmt.Errorf("fetch issuer metadata for credential '%s': %w", record.ID, err)
		}

		if metadata != nil {
			applyOverrides(display, &credential.Display{
				IssuerName:      metadata.Name,
				Logo:            metadata.Logo,
				BackgroundColor: metadata.BackgroundColor,
				TextColor:       metadata.TextColor,
			})
		}
	}

	applyOverrides(display, record.Display)

	if display.Name == "" {
		display.Name = genericCredentialName
	}

	return display, nil
}

func stringify(value interface{}) string {
	if s, ok := value.(string); ok {
		return s
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprint(value)
	}

	return string(data)
}
