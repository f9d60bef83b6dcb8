// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package ledger

import (
	"fmt"

	"github.com/Fantom-foundation/Xenon/go/xenon"
)

// RecordSet is the ordered set of storage records one invocation was given.
// The invocation has exclusive access to every record in the set; records
// not in the set can only be fetched read-only through the configured
// Reader.
type RecordSet struct {
	records  []*Record
	byKey    map[xenon.RecordKey]*Record
	operator *Record
	reader   Reader
}

// NewRecordSet builds a record set. The operator record must have signed the
// invocation.
func NewRecordSet(operator *Record, records []*Record) (*RecordSet, error) {
	if operator == nil || !operator.Signer {
		return nil, fmt.Errorf("operator record did not sign the invocation")
	}
	set := &RecordSet{
		records:  records,
		byKey:    make(map[xenon.RecordKey]*Record, len(records)+1),
		operator: operator,
	}
	set.byKey[operator.Key] = operator
	for _, record := range records {
		set.byKey[record.Key] = record
	}
	return set, nil
}

// SetReader installs the fallback reader consulted for records outside the
// set. Records obtained this way are cached in the set so that repeated
// reads within the invocation observe a single consistent copy.
func (s *RecordSet) SetReader(reader Reader) {
	s.reader = reader
}

// Operator returns the signer capability record of the invocation.
func (s *RecordSet) Operator() *Record {
	return s.operator
}

// Get returns the record with the given key. Fetch failures of the
// underlying reader are propagated unchanged; retry policy belongs to the
// caller issuing invocations.
func (s *RecordSet) Get(key xenon.RecordKey) (*Record, error) {
	if record, ok := s.byKey[key]; ok {
		return record, nil
	}
	if s.reader == nil {
		return nil, fmt.Errorf("%w: %v", ErrRecordMissing, key)
	}
	record, err := s.reader.GetRecord(key)
	if err != nil {
		return nil, err
	}
	record.Writable = false
	s.byKey[key] = record
	return record, nil
}

// Contains reports whether the key belongs to the invocation's own records.
func (s *RecordSet) Contains(key xenon.RecordKey) bool {
	_, ok := s.byKey[key]
	return ok
}

// Records returns the auxiliary records in invocation order, operator
// excluded.
func (s *RecordSet) Records() []*Record {
	return s.records
}
