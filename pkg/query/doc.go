// Package query evaluates set algebra over secondary indexes.
//
// A query is a tree of Nodes. Leaves are Operands naming one index bucket;
// inner nodes are AND, OR and RANDOM Operations. Compile turns a tree into
// a Batch: inner nodes below the top store their result under a temporary
// key that the next level reads, and the top node returns its result
// directly. Execute sends a multi-command batch as one atomic group that
// ends by deleting the temporary keys.
//
// Collection wraps a tree with its model, memoizes the matching keys and
// loads elements on demand.
package query
