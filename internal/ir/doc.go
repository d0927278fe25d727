// Package ir holds the plain data types shared across msgpulse: catalog
// specs compiled from CUE, configured rules, and journaled deliveries.
//
// ir imports nothing internal. Every other package may import it.
//
// Conventions:
//   - JSON tags are snake_case
//   - ordering fields (seq) come from a logical clock, never wall time
//   - MarshalCanonical is the only encoding used for hashing and golden files
package ir
