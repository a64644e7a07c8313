// Package utils provides small shared helpers for the resource manager.
// It currently covers scalar type coercion for loosely typed decoded data
// such as JSON record fields.
package utils
