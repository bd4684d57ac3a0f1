package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identifiers. The version suffix
// leaves room for changing the encoding later.
const (
	DomainQuery  = "entityq/query/v1"
	DomainRecord = "entityq/record/v1"
)

// hashWithDomain computes SHA256(domain || 0x00 || data). The separator
// keeps domain and payload from running into each other.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// QueryID computes the content-addressed identifier of a query from its
// canonical object form. Equal queries always hash to the same ID.
func QueryID(plan IRObject) (string, error) {
	canonical, err := MarshalCanonical(plan)
	if err != nil {
		return "", fmt.Errorf("QueryID: %w", err)
	}
	return hashWithDomain(DomainQuery, canonical), nil
}

// RecordDigest hashes a stored record. Executors use it to compare result
// sets independently of field order.
func RecordDigest(record IRObject) (string, error) {
	canonical, err := MarshalCanonical(withoutNulls(record))
	if err != nil {
		return "", fmt.Errorf("RecordDigest: %w", err)
	}
	return hashWithDomain(DomainRecord, canonical), nil
}

// withoutNulls drops top-level null fields; a missing field and a null
// field are the same thing in a record.
func withoutNulls(record IRObject) IRObject {
	out := make(IRObject, len(record))
	for k, v := range record {
		if _, null := v.(IRNull); null || v == nil {
			continue
		}
		out[k] = v
	}
	return out
}
