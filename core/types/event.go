package types

// Event is the wire form of a module event: a dotted type name such as
// "condition.fulfilled" plus flat string attributes. The recorder logs it and
// feeds the metric counters from it.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
