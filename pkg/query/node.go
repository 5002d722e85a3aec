package query

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/mesh-intelligence/kvgraph/pkg/index"
	"github.com/mesh-intelligence/kvgraph/pkg/types"
)

// ErrRandomNotTop is returned when a RANDOM operation is nested below
// another operation. Its reply is a single member, not a stored set.
var ErrRandomNotTop = errors.New("random must be the top of a query")

// Node is an expression in a query tree.
type Node interface {
	// Key returns the address holding the node's member set once its
	// commands have run.
	Key() string
	compile(b *Batch, top bool) error
}

// Operand is a leaf: the members of one index bucket.
type Operand struct {
	index *index.Index
	value string
}

// NewOperand returns the leaf for the bucket of ix holding value. value is
// the store form of the attribute value and is ignored by the all index.
func NewOperand(ix *index.Index, value string) *Operand {
	return &Operand{index: ix, value: value}
}

// Key returns the bucket address.
func (o *Operand) Key() string { return o.index.Key(o.value) }

func (o *Operand) compile(b *Batch, top bool) error {
	if top {
		b.Add(types.SMembers(o.Key()))
	}
	return nil
}

// Kind selects the set operation of an Operation.
type Kind int

const (
	// KindAnd intersects the children.
	KindAnd Kind = iota
	// KindOr unions the children.
	KindOr
	// KindRandom picks one member of its only child.
	KindRandom
)

func (k Kind) String() string {
	switch k {
	case KindAnd:
		return "and"
	case KindOr:
		return "or"
	case KindRandom:
		return "random"
	default:
		return "unknown"
	}
}

// Operation is an inner node combining the member sets of its children.
type Operation struct {
	kind     Kind
	children []Node

	once sync.Once
	key  string
}

// And intersects the children.
func And(children ...Node) *Operation {
	return &Operation{kind: KindAnd, children: children}
}

// Or unions the children.
func Or(children ...Node) *Operation {
	return &Operation{kind: KindOr, children: children}
}

// Random picks one member of child.
func Random(child Node) *Operation {
	return &Operation{kind: KindRandom, children: []Node{child}}
}

// Kind returns the set operation.
func (o *Operation) Kind() Kind { return o.kind }

// Children returns the operands in order.
func (o *Operation) Children() []Node { return o.children }

// Key returns the temporary key the result is stored under when the
// operation is not the top of its tree. It is allocated on first call and
// stable afterwards.
func (o *Operation) Key() string {
	o.once.Do(func() { o.key = types.TempKey(uuid.NewString()) })
	return o.key
}

func (o *Operation) compile(b *Batch, top bool) error {
	if len(o.children) == 0 {
		return errors.Newf("%s without operands", o.kind)
	}
	if o.kind == KindRandom && !top {
		return ErrRandomNotTop
	}
	keys := make([]string, 0, len(o.children))
	for _, c := range o.children {
		if err := c.compile(b, false); err != nil {
			return err
		}
		keys = append(keys, c.Key())
	}

	switch {
	case o.kind == KindRandom:
		b.Add(types.SRandMember(keys[0]))
	case top && o.kind == KindAnd:
		b.Add(types.SInter(keys...))
	case top:
		b.Add(types.SUnion(keys...))
	case o.kind == KindAnd:
		b.Add(types.SInterStore(o.Key(), keys...))
		b.AddTemp(o.Key())
	default:
		b.Add(types.SUnionStore(o.Key(), keys...))
		b.AddTemp(o.Key())
	}
	return nil
}
