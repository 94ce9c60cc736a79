/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package controller

import (
	"fmt"
	"time"

	"github.com/hyperledger/aries-framework-go/spi/storage"

	"github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/candidate"
	"github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/controller/command"
	credentialcmd "github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/controller/command/credential"
	submissioncmd "github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/controller/command/submission"
	"github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/controller/rest"
	credentialrest "github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/controller/rest/credential"
	submissionrest "github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/controller/rest/submission"
	"github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/controller/webnotifier"
	"github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/store/credential"
	"github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/submission"
)

type allOpts struct {
	webhookURLs      []string
	notifier         webnotifier.Notifier
	submissionTTL    time.Duration
	maxConcurrency   int
	displayCacheSize int
	metadataFetcher  candidate.MetadataFetcher
}

const wsPath = "/ws"

// Opt represents a controller option.
type Opt func(opts *allOpts)

// WithWebhookURLs is an option for setting up a webhook dispatcher which will notify clients of events.
func WithWebhookURLs(webhookURLs ...string) Opt {
	return func(opts *allOpts) {
		opts.webhookURLs = webhookURLs
	}
}

// WithNotifier is an option for setting up a notifier which will notify clients of events.
func WithNotifier(notifier webnotifier.Notifier) Opt {
	return func(opts *allOpts) {
		opts.notifier = notifier
	}
}

// WithSubmissionTTL sets how long a live submission is kept.
func WithSubmissionTTL(ttl time.Duration) Opt {
	return func(opts *allOpts) {
		opts.submissionTTL = ttl
	}
}

// WithMaxConcurrency limits concurrent candidate lookups while building a submission.
func WithMaxConcurrency(n int) Opt {
	return func(opts *allOpts) {
		opts.maxConcurrency = n
	}
}

// WithDisplayCacheSize sets the size of the credential display cache.
func WithDisplayCacheSize(size int) Opt {
	return func(opts *allOpts) {
		opts.displayCacheSize = size
	}
}

// WithMetadataFetcher sets the issuer metadata source used for W3C credential displays.
func WithMetadataFetcher(fetcher candidate.MetadataFetcher) Opt {
	return func(opts *allOpts) {
		opts.metadataFetcher = fetcher
	}
}

type services struct {
	store    *credential.Store
	resolver *candidate.Resolver
	builder  *submission.Builder
	notifier webnotifier.Notifier
	cmdOpts  []submissioncmd.Option
}

func newServices(provider storage.Provider, opts ...Opt) (*services, error) {
	o := &allOpts{}
	// Apply options
	for _, opt := range opts {
		opt(o)
	}

	store, err := credential.New(provider)
	if err != nil {
		return nil, fmt.Errorf("open credential store : %w", err)
	}

	var resolverOpts []candidate.Opt

	if o.displayCacheSize > 0 {
		resolverOpts = append(resolverOpts, candidate.WithDisplayCacheSize(o.displayCacheSize))
	}

	if o.metadataFetcher != nil {
		resolverOpts = append(resolverOpts, candidate.WithMetadataFetcher(o.metadataFetcher))
	}

	resolver := candidate.New(store, resolverOpts...)

	var builderOpts []submission.Opt

	if o.maxConcurrency > 0 {
		builderOpts = append(builderOpts, submission.WithMaxConcurrency(o.maxConcurrency))
	}

	notifier := o.notifier
	if notifier == nil {
		notifier = webnotifier.New(wsPath, o.webhookURLs)
	}

	cmdOpts := []submissioncmd.Option{submissioncmd.WithNotifier(notifier)}

	if o.submissionTTL > 0 {
		cmdOpts = append(cmdOpts, submissioncmd.WithSubmissionTTL(o.submissionTTL))
	}

	return &services{
		store:    store,
		resolver: resolver,
		builder:  submission.NewBuilder(resolver, resolver, builderOpts...),
		notifier: notifier,
		cmdOpts:  cmdOpts,
	}, nil
}

// GetRESTHandlers returns all REST handlers provided by controller.
func GetRESTHandlers(provider storage.Provider, opts ...Opt) ([]rest.Handler, error) {
	svc, err := newServices(provider, opts...)
	if err != nil {
		return nil, err
	}

	submissionOp := submissionrest.New(svc.builder, svc.cmdOpts...)
	credentialOp := credentialrest.New(svc.store, svc.resolver)

	// creat handlers from all operations
	var allHandlers []rest.Handler
	allHandlers = append(allHandlers, submissionOp.GetRESTHandlers()...)
	allHandlers = append(allHandlers, credentialOp.GetRESTHandlers()...)

	nhp, ok := svc.notifier.(handlerProvider)
	if ok {
		allHandlers = append(allHandlers, nhp.GetRESTHandlers()...)
	}

	return allHandlers, nil
}

type handlerProvider interface {
	GetRESTHandlers() []rest.Handler
}

// GetCommandHandlers returns all command handlers provided by controller.
func GetCommandHandlers(provider storage.Provider, opts ...Opt) ([]command.Handler, error) {
	svc, err := newServices(provider, opts...)
	if err != nil {
		return nil, err
	}

	submissionCmd := submissioncmd.New(svc.builder, svc.cmdOpts...)
	credentialCmd := credentialcmd.New(svc.store, svc.resolver)

	var allHandlers []command.Handler
	allHandlers = append(allHandlers, submissionCmd.GetHandlers()...)
	allHandlers = append(allHandlers, credentialCmd.GetHandlers()...)

	return allHandlers, nil
}
