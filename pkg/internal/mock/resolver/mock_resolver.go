/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package resolver

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/submission"
)

// MockResolver is a mock candidate and display resolver.
type MockResolver struct {
	// Matches are keyed by "<group id>/<first requested name>" or by group id.
	Matches    map[string][]*submission.CandidateMatch
	ResolveErr error
	Displays   map[string]*submission.CredentialDisplay
	DisplayErr error
	// Delay is applied to every resolve call; calls honour context cancellation while waiting.
	Delay time.Duration

	resolveCalls int32
	displayCalls int32
	inFlight     int32
	maxInFlight  int32
}

// ResolveCandidates returns the configured matches of the declaration.
func (m *MockResolver) ResolveCandidates(ctx context.Context,
	decl *submission.Declaration) ([]*submission.CandidateMatch, error) {
	atomic.AddInt32(&m.resolveCalls, 1)

	current := atomic.AddInt32(&m.inFlight, 1)
	defer atomic.AddInt32(&m.inFlight, -1)

	for {
		peak := atomic.LoadInt32(&m.maxInFlight)
		if current <= peak || atomic.CompareAndSwapInt32(&m.maxInFlight, peak, current) {
			break
		}
	}

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.ResolveErr != nil {
		return nil, m.ResolveErr
	}

	if len(decl.Names) > 0 {
		if matches, ok := m.Matches[decl.GroupID+"/"+decl.Names[0]]; ok {
			return matches, nil
		}
	}

	return m.Matches[decl.GroupID], nil
}

// GetDisplay returns the configured display, or a display carrying only the id.
func (m *MockResolver) GetDisplay(_ context.Context, credentialID string) (*submission.CredentialDisplay, error) {
	atomic.AddInt32(&m.displayCalls, 1)

	if m.DisplayErr != nil {
		return nil, m.DisplayErr
	}

	if display, ok := m.Displays[credentialID]; ok {
		return display, nil
	}

	return &submission.CredentialDisplay{ID: credentialID, Name: credentialID}, nil
}

// ResolveCalls returns the number of ResolveCandidates calls.
func (m *MockResolver) ResolveCalls() int {
	return int(atomic.LoadInt32(&m.resolveCalls))
}

// DisplayCalls returns the number of GetDisplay calls.
func (m *MockResolver) DisplayCalls() int {
	return int(atomic.LoadInt32(&m.displayCalls))
}

// MaxInFlight returns the highest number of concurrent ResolveCandidates calls observed.
func (m *MockResolver) MaxInFlight() int {
	return int(atomic.LoadInt32(&m.maxInFlight))
}

// MockBatchResolver resolves all declarations in one call.
type MockBatchResolver struct {
	MockResolver
	ResolveAllFunc func(ctx context.Context, decls []*submission.Declaration) ([][]*submission.CandidateMatch, error)
}

// ResolveAll calls ResolveAllFunc.
func (m *MockBatchResolver) ResolveAll(ctx context.Context,
	decls []*submission.Declaration) ([][]*submission.CandidateMatch, error) {
	return m.ResolveAllFunc(ctx, decls)
}
