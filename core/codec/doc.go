// Package codec defines the byte-level format boundary of the resource
// manager. The resolver core treats every format as opaque: it hands bytes to
// a Set and gets structured values back, and never inspects archive, table,
// string-table or record internals itself.
//
// The package also ships a reference Set (zip archives, whitespace-column
// tables, JSON records and string tables) so the commands and tests can run
// end-to-end. Engine embedders with their own binary formats provide their
// own Set; the resolver only depends on the interfaces.
package codec
