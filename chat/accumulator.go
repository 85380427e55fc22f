package chat

import (
	"sort"

	"github.com/hrkit/interviewbot/provider"
)

// toolCallAccumulator rebuilds tool-call requests from streamed fragments.
// Fragments are keyed by call-slot index: the first fragment at an index
// establishes ID and Name, later fragments append argument text and fill
// Name only if still unset. Turn-scoped; discarded when the turn ends.
type toolCallAccumulator struct {
	calls map[int]*provider.ToolCall
}

func newToolCallAccumulator() *toolCallAccumulator {
	return &toolCallAccumulator{calls: make(map[int]*provider.ToolCall)}
}

// merge folds one fragment into the slot it belongs to.
func (a *toolCallAccumulator) merge(d *provider.ToolCallDelta) {
	tc, ok := a.calls[d.Index]
	if !ok {
		tc = &provider.ToolCall{}
		a.calls[d.Index] = tc
	}
	if d.ID != "" && tc.ID == "" {
		tc.ID = d.ID
	}
	if d.Name != "" && tc.Name == "" {
		tc.Name = d.Name
	}
	tc.Arguments += d.ArgumentsDelta
}

// finalize returns the completed requests in ascending slot order.
func (a *toolCallAccumulator) finalize() []provider.ToolCall {
	if len(a.calls) == 0 {
		return nil
	}

	indexes := make([]int, 0, len(a.calls))
	for i := range a.calls {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	result := make([]provider.ToolCall, 0, len(indexes))
	for _, i := range indexes {
		result = append(result, *a.calls[i])
	}
	return result
}
