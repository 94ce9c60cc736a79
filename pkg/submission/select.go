/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package submission

import "fmt"

// Select returns a copy of sub in which the entry subsuming groupID has the option backed by
// credentialID selected. Other entries are shared with sub; sub itself is not modified.
func Select(sub *PresentationSubmission, groupID, credentialID string) (*PresentationSubmission, error) {
	if sub == nil {
		return nil, fmt.Errorf("%w: no submission", ErrInvalidSelection)
	}

	index := -1

	for i, entry := range sub.Entries {
		if entry.GroupIDs.Contains(groupID) {
			index = i

			break
		}
	}

	if index < 0 {
		return nil, fmt.Errorf("%w: no entry for group '%s'", ErrInvalidSelection, groupID)
	}

	option := sub.Entries[index].Option(credentialID)
	if option == nil {
		return nil, fmt.Errorf("%w: credential '%s' is not an option for group '%s'",
			ErrInvalidSelection, credentialID, groupID)
	}

	entry := *sub.Entries[index]
	entry.Selected = option

	updated := *sub
	updated.Entries = make([]*SubmissionEntry, len(sub.Entries))
	copy(updated.Entries, sub.Entries)
	updated.Entries[index] = &entry

	return &updated, nil
}
