/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package submission

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/samber/lo"
)

const (
	defaultMaxConcurrency = 8
	defaultGenericName    = "Credential"
)

var logger = log.New("identity-hub/submission")

// CandidateResolver finds the held credentials that can satisfy a declaration.
type CandidateResolver interface {
	ResolveCandidates(ctx context.Context, decl *Declaration) ([]*CandidateMatch, error)
}

// BatchResolver is implemented by resolvers that resolve all declarations of a request at once.
// The result is aligned with decls.
type BatchResolver interface {
	ResolveAll(ctx context.Context, decls []*Declaration) ([][]*CandidateMatch, error)
}

// DisplayResolver returns the display data of a held credential.
type DisplayResolver interface {
	GetDisplay(ctx context.Context, credentialID string) (*CredentialDisplay, error)
}

// Builder builds presentation submissions.
type Builder struct {
	candidates     CandidateResolver
	displays       DisplayResolver
	maxConcurrency int
	genericName    string
}

// Opt configures a Builder.
type Opt func(b *Builder)

// WithMaxConcurrency limits the number of concurrent resolver calls.
func WithMaxConcurrency(n int) Opt {
	return func(b *Builder) {
		if n > 0 {
			b.maxConcurrency = n
		}
	}
}

// WithGenericEntryName sets the name used for entries nothing else names. An empty name makes
// such entries fall back to the request comment.
func WithGenericEntryName(name string) Opt {
	return func(b *Builder) {
		b.genericName = name
	}
}

// NewBuilder returns a new submission builder.
func NewBuilder(candidates CandidateResolver, displays DisplayResolver, opts ...Opt) *Builder {
	b := &Builder{
		candidates:     candidates,
		displays:       displays,
		maxConcurrency: defaultMaxConcurrency,
		genericName:    defaultGenericName,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Build resolves the request against the held credentials and returns the submission.
// Nothing is returned unless every step succeeds.
func (b *Builder) Build(ctx context.Context, req Request) (*PresentationSubmission, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: no request", ErrMalformedRequest)
	}

	info, err := describeRequest(req)
	if err != nil {
		return nil, err
	}

	params, err := requestParams(req)
	if err != nil {
		return nil, err
	}

	resolved, err := b.resolve(ctx, info.declarations)
	if err != nil {
		return nil, err
	}

	builders := group(resolved)

	displays, err := b.resolveDisplays(ctx, builders)
	if err != nil {
		return nil, err
	}

	entries := make([]*SubmissionEntry, 0, len(builders))

	for _, builder := range builders {
		entry, e := format(builder, displays, b.genericName, info.comment)
		if e != nil {
			return nil, e
		}

		entries = append(entries, entry)
	}

	sub := &PresentationSubmission{
		ID:      uuid.New().String(),
		Format:  req.Format(),
		Name:    info.name,
		Purpose: info.purpose,
		Entries: entries,
		Params:  params,
	}

	logger.Debugf("built submission %s: format=%s declarations=%d entries=%d satisfied=%t",
		sub.ID, sub.Format, len(info.declarations), len(entries), sub.AreAllSatisfied())

	return sub, nil
}

func (b *Builder) resolve(ctx context.Context, decls []*Declaration) ([]*resolvedDeclaration, error) {
	var (
		results [][]*CandidateMatch
		err     error
	)

	if batch, ok := b.candidates.(BatchResolver); ok {
		results, err = batch.ResolveAll(ctx, decls)
		if err == nil && len(results) != len(decls) {
			err = fmt.Errorf("batch resolver returned %d results for %d declarations", len(results), len(decls))
		}
	} else {
		results, err = b.resolveEach(ctx, decls)
	}

	if err != nil {
		return nil, fmt.Errorf("resolve candidates: %w", err)
	}

	resolved := make([]*resolvedDeclaration, len(decls))

	for i, decl := range decls {
		for _, match := range results[i] {
			if match == nil || match.GroupID != decl.GroupID {
				return nil, fmt.Errorf("%w: candidate for declaration '%s' references '%s'",
					ErrDanglingReference, decl.GroupID, lo.FromPtr(match).GroupID)
			}
		}

		resolved[i] = &resolvedDeclaration{declaration: decl, matches: results[i]}
	}

	return resolved, nil
}

// resolveEach calls the resolver once per declaration with bounded concurrency and waits for all
// calls. The first failure cancels the calls still in flight.
func (b *Builder) resolveEach(ctx context.Context, decls []*Declaration) ([][]*CandidateMatch, error) {
	results := make([][]*CandidateMatch, len(decls))

	err := fanOut(ctx, len(decls), b.maxConcurrency, func(ctx context.Context, i int) error {
		matches, err := b.candidates.ResolveCandidates(ctx, decls[i])
		if err != nil {
			return fmt.Errorf("declaration '%s': %w", decls[i].GroupID, err)
		}

		results[i] = matches

		return nil
	})
	if err != nil {
		return nil, err
	}

	return results, nil
}

func (b *Builder) resolveDisplays(ctx context.Context,
	builders []*entryBuilder) (map[string]*CredentialDisplay, error) {
	ids := lo.Uniq(lo.FlatMap(builders, func(eb *entryBuilder, _ int) []string {
		return eb.candidates
	}))

	displays := make([]*CredentialDisplay, len(ids))

	err := fanOut(ctx, len(ids), b.maxConcurrency, func(ctx context.Context, i int) error {
		display, err := b.displays.GetDisplay(ctx, ids[i])
		if err != nil {
			return fmt.Errorf("get display for credential '%s': %w", ids[i], err)
		}

		displays[i] = display

		return nil
	})
	if err != nil {
		return nil, err
	}

	result := make(map[string]*CredentialDisplay, len(ids))

	for i, id := range ids {
		if displays[i] != nil {
			result[id] = displays[i]
		}
	}

	return result, nil
}

// fanOut runs fn for indexes [0, n) with at most limit calls at a time and returns the first error.
func fanOut(ctx context.Context, n, limit int, fn func(ctx context.Context, i int) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
		sem      = make(chan struct{}, limit)
	)

	fail := func(err error) {
		once.Do(func() {
			firstErr = err

			cancel()
		})
	}

	for i := 0; i < n; i++ {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			fail(ctx.Err())
		}

		if ctx.Err() != nil {
			break
		}

		wg.Add(1)

		go func(i int) {
			defer func() {
				<-sem
				wg.Done()
			}()

			if err := fn(ctx, i); err != nil {
				fail(err)
			}
		}(i)
	}

	wg.Wait()

	if firstErr != nil {
		return firstErr
	}

	return ctx.Err()
}
