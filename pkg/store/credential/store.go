/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/hyperledger/aries-framework-go/spi/storage"
)

const (
	// StoreName is the name of the holder credential store.
	StoreName = "holdercredentials"

	formatTag = "format"
	keyPrefix = "credential"
)

var logger = log.New("identity-hub/store/credential")

var (
	// ErrCredentialNotFound is returned when a credential is not held.
	ErrCredentialNotFound = errors.New("credential not found")
	// ErrDuplicateCredential is returned when importing a credential id that is already held.
	ErrDuplicateCredential = errors.New("credential with same id already exists")
)

// Format is the format of a held credential.
type Format string

const (
	// AnonCreds is an AnonCreds credential with flat attributes.
	AnonCreds Format = "anoncreds"
	// W3C is a W3C verifiable credential.
	W3C Format = "w3c"
)

// IsValid checks the format is supported.
func (f Format) IsValid() error {
	switch f {
	case AnonCreds, W3C:
		return nil
	default:
		return fmt.Errorf("invalid credential format '%s', supported formats are %s", f, []Format{AnonCreds, W3C})
	}
}

// Display overrides how a credential is displayed.
type Display struct {
	Name            string `json:"name,omitempty"`
	IssuerName      string `json:"issuerName,omitempty"`
	Logo            string `json:"logo,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
	TextColor       string `json:"textColor,omitempty"`
}

// Record is a held credential.
type Record struct {
	ID        string `json:"id"`
	Format    Format `json:"format"`
	SchemaID  string `json:"schemaId,omitempty"`
	CredDefID string `json:"credDefId,omitempty"`
	IssuerID  string `json:"issuerId,omitempty"`
	// Types are the W3C credential types.
	Types []string `json:"types,omitempty"`
	// Attributes are the AnonCreds attribute values.
	Attributes map[string]string `json:"attributes,omitempty"`
	// Credential is the W3C credential document.
	Credential json.RawMessage `json:"credential,omitempty"`
	Display    *Display        `json:"display,omitempty"`
}

// Store reads held credentials from the agent's storage.
type Store struct {
	store storage.Store
}

// New opens the holder credential store.
func New(p storage.Provider) (*Store, error) {
	store, err := p.OpenStore(StoreName)
	if err != nil {
		return nil, fmt.Errorf("failed to open store '%s' : %w", StoreName, err)
	}

	err = p.SetStoreConfig(StoreName, storage.StoreConfiguration{TagNames: []string{formatTag}})
	if err != nil {
		return nil, fmt.Errorf("failed to set store config for '%s' : %w", StoreName, err)
	}

	return &Store{store: store}, nil
}

// Import adds a credential to the store. A missing id is generated; an existing id is rejected.
func (s *Store) Import(record *Record) error {
	if record == nil {
		return errors.New("credential record is mandatory")
	}

	if err := record.Format.IsValid(); err != nil {
		return err
	}

	if strings.TrimSpace(record.ID) == "" {
		record.ID = uuid.New().String()
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal credential record : %w", err)
	}

	key := getKey(record.ID)

	_, err = s.store.Get(key)
	if errors.Is(err, storage.ErrDataNotFound) {
		return s.store.Put(key, data, storage.Tag{Name: formatTag, Value: string(record.Format)})
	} else if err != nil {
		return err
	}

	return fmt.Errorf("%w: '%s'", ErrDuplicateCredential, record.ID)
}

// Get returns the held credential with the given id.
func (s *Store) Get(id string) (*Record, error) {
	data, err := s.store.Get(getKey(id))
	if err != nil {
		if errors.Is(err, storage.ErrDataNotFound) {
			return nil, fmt.Errorf("%w: '%s'", ErrCredentialNotFound, id)
		}

		return nil, fmt.Errorf("failed to get credential '%s' : %w", id, err)
	}

	record := &Record{}

	if err = json.Unmarshal(data, record); err != nil {
		return nil, fmt.Errorf("failed to read credential '%s' : %w", id, err)
	}

	return record, nil
}

// List returns the held credentials of the given format sorted by id. An empty format lists all.
func (s *Store) List(format Format) ([]*Record, error) {
	expression := formatTag

	if format != "" {
		if err := format.IsValid(); err != nil {
			return nil, err
		}

		expression = fmt.Sprintf("%s:%s", formatTag, format)
	}

	iter, err := s.store.Query(expression)
	if err != nil {
		return nil, fmt.Errorf("failed to query credentials : %w", err)
	}

	defer storage.Close(iter, logger)

	var records []*Record

	for {
		ok, err := iter.Next()
		if err != nil {
			return nil, fmt.Errorf("failed to get next credential : %w", err)
		}

		if !ok {
			break
		}

		data, err := iter.Value()
		if err != nil {
			return nil, fmt.Errorf("failed to read credential : %w", err)
		}

		record := &Record{}

		if err = json.Unmarshal(data, record); err != nil {
			return nil, fmt.Errorf("failed to read credential : %w", err)
		}

		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].ID < records[j].ID
	})

	return records, nil
}

func getKey(id string) string {
	return fmt.Sprintf("%s_%s", keyPrefix, id)
}
