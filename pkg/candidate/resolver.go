/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package candidate

import (
	"context"
	"errors"
	"fmt"

	"github.com/bluele/gcache"
	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/store/credential"
	"github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/submission"
)

const defaultDisplayCacheSize = 100

var logger = log.New("identity-hub/candidate")

// Store gives access to the held credentials.
type Store interface {
	Get(id string) (*credential.Record, error)
	List(format credential.Format) ([]*credential.Record, error)
}

// IssuerMetadata is issuer branding used to display W3C credentials.
type IssuerMetadata struct {
	Name            string `json:"name,omitempty"`
	Logo            string `json:"logo,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
	TextColor       string `json:"textColor,omitempty"`
}

// MetadataFetcher fetches issuer metadata.
type MetadataFetcher interface {
	FetchIssuerMetadata(ctx context.Context, issuerID string) (*IssuerMetadata, error)
}

// Resolver resolves candidate credentials and their display data from the held credentials.
type Resolver struct {
	store     Store
	metadata  MetadataFetcher
	cacheSize int
	displays  gcache.Cache
}

// Opt configures the Resolver.
type Opt func(r *Resolver)

// WithDisplayCacheSize sets the number of credential displays kept in memory.
func WithDisplayCacheSize(size int) Opt {
	return func(r *Resolver) {
		if size > 0 {
			r.cacheSize = size
		}
	}
}

// WithMetadataFetcher sets the issuer metadata fetcher used for W3C credentials.
func WithMetadataFetcher(fetcher MetadataFetcher) Opt {
	return func(r *Resolver) {
		r.metadata = fetcher
	}
}

// New returns a new Resolver.
func New(store Store, opts ...Opt) *Resolver {
	r := &Resolver{store: store, cacheSize: defaultDisplayCacheSize}

	for _, opt := range opts {
		opt(r)
	}

	r.displays = gcache.New(r.cacheSize).LRU().Build()

	return r
}

// ResolveCandidates returns the held credentials that satisfy the declaration, ordered by id.
func (r *Resolver) ResolveCandidates(ctx context.Context,
	decl *submission.Declaration) ([]*submission.CandidateMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if decl.DescriptorID != "" {
		return r.resolveDescriptorField(ctx, decl)
	}

	records, err := r.store.List(credential.AnonCreds)
	if err != nil {
		return nil, fmt.Errorf("list anoncreds credentials: %w", err)
	}

	var matches []*submission.CandidateMatch

	for _, record := range records {
		values, ok := matchAnonCreds(record, decl)
		if !ok {
			continue
		}

		matches = append(matches, &submission.CandidateMatch{
			GroupID:      decl.GroupID,
			CredentialID: record.ID,
			Values:       values,
		})
	}

	logger.Debugf("declaration '%s': %d anoncreds candidates", decl.GroupID, len(matches))

	return matches, nil
}

// GetDisplay returns the display data of a held credential.
func (r *Resolver) GetDisplay(ctx context.Context, credentialID string) (*submission.CredentialDisplay, error) {
	cached, err := r.displays.Get(credentialID)
	if err == nil {
		if display, ok := cached.(*submission.CredentialDisplay); ok {
			return display, nil
		}
	} else if !errors.Is(err, gcache.KeyNotFoundError) {
		return nil, fmt.Errorf("get cached display: %w", err)
	}

	record, err := r.store.Get(credentialID)
	if err != nil {
		return nil, err
	}

	var display *submission.CredentialDisplay

	switch record.Format {
	case credential.W3C:
		display, err = r.w3cDisplay(ctx, record)
		if err != nil {
			return nil, err
		}
	default:
		display = anonCredsDisplay(record)
	}

	if err = r.displays.Set(credentialID, display); err != nil {
		logger.Warnf("failed to cache display of credential '%s': %s", credentialID, err)
	}

	return display, nil
}
