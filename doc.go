/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package hub lets a credential holder answer proof requests from verifiers.
//
// Packages for end developer usage
//
// pkg/submission: Parses AnonCreds proof requests and presentation-exchange definitions, builds a
// presentation submission grouping matching held credentials per requested item, and records the
// holder's credential selections.
//
// pkg/candidate: Resolves candidate credentials and display data from the holder credential store.
//
// pkg/controller: Exposes the submission lifecycle (build, get, select, accept, decline) and the
// held credentials as controller commands and REST operations.
//
// Basic workflow
//
//      1) Open a storage provider and create a credential store with credential.New.
//      2) Create a resolver with candidate.New and a builder with submission.NewBuilder.
//      3) Parse the verifier request with submission.ParseRequest and call Build.
//      4) Change the chosen credentials with submission.Select, then read Selections.
package hub
