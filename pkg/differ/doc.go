// Package differ implements the closed set of diff policies bound in the
// differ registry: a generic structural policy and a schema-aware policy.
//
// Both are pure: they read the version pair and the precomputed structural
// patch and return one change transaction fragment.
package differ
