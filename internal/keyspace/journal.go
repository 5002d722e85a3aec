package keyspace

// Journal wraps a Space and records the value each key held before its
// first write, so a failed batch can be undone.
type Journal struct {
	Space
	prev  map[string]*Value
	order []string
}

// NewJournal starts recording writes to sp.
func NewJournal(sp Space) *Journal {
	return &Journal{Space: sp, prev: make(map[string]*Value)}
}

// Store records the previous value of key on first touch, then writes.
func (j *Journal) Store(key string, v *Value) error {
	if _, seen := j.prev[key]; !seen {
		old, err := j.Space.Load(key)
		if err != nil {
			return err
		}
		j.prev[key] = old
		j.order = append(j.order, key)
	}
	return j.Space.Store(key, v)
}

// Rollback restores every touched key to its recorded value.
func (j *Journal) Rollback() error {
	for i := len(j.order) - 1; i >= 0; i-- {
		key := j.order[i]
		if err := j.Space.Store(key, j.prev[key]); err != nil {
			return err
		}
	}
	j.prev = make(map[string]*Value)
	j.order = nil
	return nil
}

// Touched returns the number of keys written since the journal started.
func (j *Journal) Touched() int { return len(j.order) }
