// Package chain implements the override chain: an ordered set of priority
// tiers mapping resource names to either an unparsed location or a memoized
// parsed table. Resolution walks tiers from highest priority to lowest and
// stops at the first tier that knows the name. The Registry is the single
// mutation point for tier contents; the module loader and the cache manager
// request changes through it so the installed tiers always reflect exactly
// one consistent override configuration.
package chain
