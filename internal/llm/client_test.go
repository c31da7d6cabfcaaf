package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTightenGreeting(t *testing.T) {
	in := "**Chào bạn,**\n\nHọc phí là 10 triệu."
	assert.Equal(t, "**Chào bạn,**\nHọc phí là 10 triệu.", tightenGreeting(in))

	// Only the greeting gap collapses; other blank lines stay.
	in = "**Chào bạn,**\n\nĐoạn một.\n\nĐoạn hai."
	assert.Equal(t, "**Chào bạn,**\nĐoạn một.\n\nĐoạn hai.", tightenGreeting(in))

	assert.Equal(t, "không có lời chào", tightenGreeting("không có lời chào"))
}
