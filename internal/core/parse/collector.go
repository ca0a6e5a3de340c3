package parse

// Collector accumulates the distinct raw condition strings seen during a
// cleaning pass. It is passed through and returned by the pass instead of
// living in package state, so repeated runs never see each other's values.
type Collector struct {
	SubjectConditions []string
	CompConditions    []string
	PoolConditions    []string

	seenSubject map[string]bool
	seenComp    map[string]bool
	seenPool    map[string]bool
}

func NewCollector() *Collector {
	return &Collector{
		seenSubject: make(map[string]bool),
		seenComp:    make(map[string]bool),
		seenPool:    make(map[string]bool),
	}
}

func (c *Collector) AddSubjectCondition(v string) {
	if !c.seenSubject[v] {
		c.seenSubject[v] = true
		c.SubjectConditions = append(c.SubjectConditions, v)
	}
}

func (c *Collector) AddCompCondition(v string) {
	if !c.seenComp[v] {
		c.seenComp[v] = true
		c.CompConditions = append(c.CompConditions, v)
	}
}

func (c *Collector) AddPoolCondition(v string) {
	if !c.seenPool[v] {
		c.seenPool[v] = true
		c.PoolConditions = append(c.PoolConditions, v)
	}
}
