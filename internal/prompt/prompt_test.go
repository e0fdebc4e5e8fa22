package prompt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/waddleai/waddle-go/internal/message"
)

func turn(i int) Turn {
	assistant := message.NewTextMessage(message.Assistant, fmt.Sprintf("answer %d", i))
	return Turn{
		User:      message.NewTextMessage(message.User, fmt.Sprintf("question %d", i)),
		Assistant: &assistant,
	}
}

func TestBuildOrdering(t *testing.T) {
	t.Parallel()

	history := []Turn{turn(0), turn(1)}
	host := HostContext{ActiveFile: "main.go", Language: "go"}
	current := message.NewTextMessage(message.User, "current question")

	out := Build(current, history, host)
	require.Len(t, out, 6)
	require.Equal(t, message.System, out[0].Role)
	require.Equal(t, "question 0", out[1].Text())
	require.Equal(t, "answer 0", out[2].Text())
	require.Equal(t, "question 1", out[3].Text())
	require.Equal(t, "answer 1", out[4].Text())
	require.Equal(t, "current question", out[5].Text())
	require.Equal(t, message.User, out[5].Role)
}

func TestBuildBoundsHistoryWindow(t *testing.T) {
	t.Parallel()

	var history []Turn
	for i := range 6 {
		history = append(history, turn(i))
	}
	out := Build(message.NewTextMessage(message.User, "now"), history, HostContext{})

	// 5 retained turns of two messages each plus the current message; turn 0
	// is dropped.
	require.Len(t, out, 11)
	require.Equal(t, "question 1", out[0].Text())
	for _, msg := range out {
		require.NotEqual(t, "question 0", msg.Text())
	}
	require.Equal(t, "now", out[10].Text())
}

func TestBuildIncompleteTurn(t *testing.T) {
	t.Parallel()

	// A turn that never completed has no assistant message and contributes
	// only its user message.
	history := []Turn{{User: message.NewTextMessage(message.User, "lost question")}}
	out := Build(message.NewTextMessage(message.User, "retry"), history, HostContext{})
	require.Len(t, out, 2)
	require.Equal(t, "lost question", out[0].Text())
	require.Equal(t, "retry", out[1].Text())
}

func TestBuildNoSystemMessageWithoutContext(t *testing.T) {
	t.Parallel()

	out := Build(message.NewTextMessage(message.User, "hi"), nil, HostContext{})
	require.Len(t, out, 1)
	require.Equal(t, message.User, out[0].Role)
}

func TestBuildSelectionInCodeFence(t *testing.T) {
	t.Parallel()

	host := HostContext{
		WorkspaceNames: []string{"waddle"},
		ActiveFile:     "internal/client/client.go",
		Language:       "go",
		Selection:      "func main() {}",
	}
	out := Build(message.NewTextMessage(message.User, "explain"), nil, host)
	require.Len(t, out, 2)
	system := out[0].Text()
	require.Contains(t, system, "workspace: waddle")
	require.Contains(t, system, "internal/client/client.go (go)")
	require.Contains(t, system, "```go\nfunc main() {}\n```")
}

func TestBuildOmitsOversizedSelection(t *testing.T) {
	t.Parallel()

	host := HostContext{
		ActiveFile: "big.go",
		Selection:  strings.Repeat("x", maxSelectionBytes+1),
	}
	out := Build(message.NewTextMessage(message.User, "summarize"), nil, host)
	require.Len(t, out, 2)
	system := out[0].Text()
	require.Contains(t, system, "big.go")
	require.NotContains(t, system, "```", "oversized selection must be dropped, not truncated")
	require.NotContains(t, system, "xxx")
}

func TestBuildSelectionAtLimitKept(t *testing.T) {
	t.Parallel()

	host := HostContext{Selection: strings.Repeat("y", maxSelectionBytes)}
	out := Build(message.NewTextMessage(message.User, "ok"), nil, host)
	require.Len(t, out, 2)
	require.Contains(t, out[0].Text(), "```")
}
