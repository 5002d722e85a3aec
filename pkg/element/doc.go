// Package element maps typed objects onto a key-value store.
//
// A Model declares attributes, a key, custom attributes (counters, sets and
// lists held under their own keys) and which attributes are indexed. An
// Element is one object of a Model. Writes are typecast and tracked as
// dirty; Save sends only the changed fields together with the index
// updates they imply in one atomic batch, and moves the record, its custom
// attributes and its index memberships when the key changes.
//
// Element layout, for type "user" and key "k":
//
//	user:k                       hash of inline attributes
//	user:k:visits                custom attribute "visits"
//	user::indices::all           set of every key
//	user::indices::email::v      set of keys whose "email" dumps to v
package element
