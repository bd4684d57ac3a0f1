// Package ir provides the value model shared by query literals, stored
// records and query fingerprints.
//
// This package imports nothing internal; every other internal package may
// import it.
//
// Key constraints:
//   - no float kind; numbers are int64
//   - canonical JSON (RFC 8785 key order, NFC strings) is the only encoding
//     used for hashing
//   - JSON field names are snake_case
package ir
