// Package attr implements attribute typecasting.
//
// A Type converts raw input (typed values, their store encodings, or loose
// input from callers) into a canonical in-memory value, and dumps canonical
// values back into the string form written to a store hash. An Attribute
// binds a Type to a name, a default and an index flag.
//
// Blank input maps to the attribute default: nil for every kind, and the
// empty string for every kind except String, where "" is a legal value.
//
// Boolean accepts true, false, "t", "f", "true", "false", "1", "0", 1 and 0
// (strings are case-insensitive) and always dumps to "t" or "f".
package attr
