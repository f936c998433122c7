package domain

// BatchItem is the outcome of one target in a fan-out operation.
type BatchItem struct {
	Target string `json:"target" yaml:"target"`
	Err    error  `json:"-" yaml:"-"`
}

// OK reports whether the target succeeded.
func (i BatchItem) OK() bool {
	return i.Err == nil
}

// BatchResult holds per-target outcomes in the order the targets were given.
type BatchResult struct {
	Op    string      `json:"op" yaml:"op"`
	Items []BatchItem `json:"items" yaml:"items"`
}

// Succeeded returns the number of targets that succeeded.
func (r BatchResult) Succeeded() int {
	n := 0
	for _, it := range r.Items {
		if it.OK() {
			n++
		}
	}
	return n
}

// Failed returns the failed items.
func (r BatchResult) Failed() []BatchItem {
	var out []BatchItem
	for _, it := range r.Items {
		if !it.OK() {
			out = append(out, it)
		}
	}
	return out
}

// Err returns the first failure, or nil if every target succeeded.
func (r BatchResult) Err() error {
	for _, it := range r.Items {
		if it.Err != nil {
			return it.Err
		}
	}
	return nil
}
