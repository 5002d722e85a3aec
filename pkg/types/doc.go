// Package types defines the backing Store contract, the store command set,
// key formats, configuration and the standard error types shared by the
// attribute, element, index and query packages.
//
// Everything that crosses the boundary between kvgraph and a key-value
// store is expressed here as a Cmd value. Backends interpret Cmds; the
// element and query packages only build them.
package types
