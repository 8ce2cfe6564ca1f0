package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrim(t *testing.T) {
	tests := []struct {
		name     string
		msgs     []Message
		budget   int
		expected []string
	}{
		{
			name:     "empty history",
			msgs:     nil,
			budget:   100,
			expected: nil,
		},
		{
			name: "everything fits",
			msgs: []Message{
				{Role: RoleSystem, Content: "sys"},
				{Role: RoleUser, Content: "one"},
				{Role: RoleAssistant, Content: "two"},
			},
			budget:   100,
			expected: []string{"sys", "one", "two"},
		},
		{
			name: "oldest dropped first",
			msgs: []Message{
				{Role: RoleSystem, Content: "sys"},
				{Role: RoleUser, Content: "aaaaaaaaaa"},
				{Role: RoleAssistant, Content: "bbbbb"},
				{Role: RoleUser, Content: "ccccc"},
			},
			budget:   14, // ccccc(5) + bbbbb(5) fit, aaaaaaaaaa does not
			expected: []string{"sys", "bbbbb", "ccccc"},
		},
		{
			name: "system message does not consume the budget",
			msgs: []Message{
				{Role: RoleSystem, Content: "a very long system instruction that dwarfs the budget"},
				{Role: RoleUser, Content: "aaaa"},
				{Role: RoleAssistant, Content: "bbbb"},
				{Role: RoleUser, Content: "cccc"},
			},
			budget: 12,
			expected: []string{
				"a very long system instruction that dwarfs the budget",
				"aaaa", "bbbb", "cccc",
			},
		},
		{
			name: "newest message survives even over budget",
			msgs: []Message{
				{Role: RoleUser, Content: "old"},
				{Role: RoleUser, Content: "this message alone exceeds the budget"},
			},
			budget:   5,
			expected: []string{"this message alone exceeds the budget"},
		},
		{
			name: "system message survives even over budget",
			msgs: []Message{
				{Role: RoleSystem, Content: "a very long system instruction"},
				{Role: RoleUser, Content: "hi"},
			},
			budget:   2,
			expected: []string{"a very long system instruction", "hi"},
		},
		{
			name: "no system message",
			msgs: []Message{
				{Role: RoleUser, Content: "aaaa"},
				{Role: RoleUser, Content: "bbbb"},
			},
			budget:   4,
			expected: []string{"bbbb"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Trim(tt.msgs, tt.budget, CountChars)
			require.Len(t, got, len(tt.expected))
			for i, content := range tt.expected {
				assert.Equal(t, content, got[i].Content)
			}
		})
	}
}

func TestTrimKeepsImages(t *testing.T) {
	msgs := []Message{
		{Role: RoleUser, Content: "look", Images: []string{"data:image/png;base64,AAAA"}},
	}
	got := Trim(msgs, 100, nil)
	require.Len(t, got, 1)
	assert.Equal(t, msgs[0].Images, got[0].Images)
}
