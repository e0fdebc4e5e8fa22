// Package prompt assembles the outbound message list for a chat turn from
// conversation history and host-provided situational context.
package prompt

import (
	"fmt"
	"strings"

	"github.com/waddleai/waddle-go/internal/message"
)

const (
	// historyWindow bounds how many prior turns are replayed.
	historyWindow = 5

	// maxSelectionBytes caps the serialized size of a code selection in the
	// system message. Oversized selections are omitted entirely rather than
	// truncated, so a partial code fence is never produced.
	maxSelectionBytes = 8 * 1024
)

// Turn pairs one user message with the assistant message it produced, if
// the turn completed.
type Turn struct {
	User      message.Message
	Assistant *message.Message
}

// HostContext is the situational information the host editor supplies.
type HostContext struct {
	WorkspaceNames []string
	ActiveFile     string
	Language       string
	Selection      string
}

// Build assembles the ordered outbound message list: at most one system
// message, then a bounded window of prior turns in original order, then the
// current user message last. Messages are never reordered.
func Build(userTurn message.Message, history []Turn, host HostContext) []message.Message {
	var out []message.Message

	if system, ok := systemMessage(host); ok {
		out = append(out, system)
	}

	start := 0
	if len(history) > historyWindow {
		start = len(history) - historyWindow
	}
	for _, turn := range history[start:] {
		out = append(out, turn.User)
		if turn.Assistant != nil {
			out = append(out, *turn.Assistant)
		}
	}

	return append(out, userTurn)
}

// systemMessage summarizes the host context. Returns false when there is
// nothing worth saying.
func systemMessage(host HostContext) (message.Message, bool) {
	var sb strings.Builder

	if len(host.WorkspaceNames) > 0 {
		fmt.Fprintf(&sb, "The user is working in workspace: %s.\n", strings.Join(host.WorkspaceNames, ", "))
	}
	if host.ActiveFile != "" {
		if host.Language != "" {
			fmt.Fprintf(&sb, "The active file is %s (%s).\n", host.ActiveFile, host.Language)
		} else {
			fmt.Fprintf(&sb, "The active file is %s.\n", host.ActiveFile)
		}
	}
	if sel := host.Selection; sel != "" && len(sel) <= maxSelectionBytes {
		fmt.Fprintf(&sb, "The user has selected the following code:\n```%s\n%s\n```\n", host.Language, sel)
	}

	if sb.Len() == 0 {
		return message.Message{}, false
	}
	return message.NewTextMessage(message.System, sb.String()), true
}
