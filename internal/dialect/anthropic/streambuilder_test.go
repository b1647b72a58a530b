package anthropic

import (
	"testing"

	"github.com/haasonsaas/nexus-bridge/internal/ir"
)

// TestCloseOpenBlocksClosesToolBlocksInOpenOrder guards against
// closeOpenBlocks iterating a map: with several tool calls still open
// at stream end, their content_block_stop frames must come out in the
// order the blocks were opened, not in whatever order a map happens to
// range over.
func TestCloseOpenBlocksClosesToolBlocksInOpenOrder(t *testing.T) {
	d := New()
	b := d.Outbound().CreateStreamBuilder()

	if _, err := b.Process(ir.Start("msg_1", "claude-sonnet-4-20250514")); err != nil {
		t.Fatalf("start: %v", err)
	}

	const toolCount = 8
	for i := 0; i < toolCount; i++ {
		if _, err := b.Process(ir.ToolCallFragment(i, "tool_"+string(rune('a'+i)), "get_weather", "")); err != nil {
			t.Fatalf("tool_call %d: %v", i, err)
		}
	}

	frames, err := b.Process(ir.End(ir.FinishToolCalls, &ir.Usage{CompletionTokens: 1}))
	if err != nil {
		t.Fatalf("end: %v", err)
	}

	var stopIndices []int
	for _, f := range frames {
		data, ok := f.Data.(map[string]any)
		if !ok || data["type"] != "content_block_stop" {
			continue
		}
		idx, ok := data["index"].(int)
		if !ok {
			t.Fatalf("content_block_stop frame has non-int index: %+v", data)
		}
		stopIndices = append(stopIndices, idx)
	}

	if len(stopIndices) != toolCount {
		t.Fatalf("got %d content_block_stop frames, want %d", len(stopIndices), toolCount)
	}
	for i := 1; i < len(stopIndices); i++ {
		if stopIndices[i] <= stopIndices[i-1] {
			t.Fatalf("content_block_stop indices not in open order: %v", stopIndices)
		}
	}
}
