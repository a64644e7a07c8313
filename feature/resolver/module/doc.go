// Package module loads module packages into the override chain: manifest
// extraction, add-on package location and indexing in manifest order,
// campaign folder lookup by identifier, and custom string table loading.
// Loading is transactional with respect to the chain registry: a failure
// before the install step leaves the previously installed tiers untouched.
//
// Fully loaded module contexts are kept in a small LRU cache so that
// switching back to a recently used module is a map assignment instead of a
// re-read and re-index of the whole package.
package module
