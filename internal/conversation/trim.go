// Package conversation bounds a workstream's message history before each
// model turn without breaking tool call/response pairing.
package conversation

import "github.com/kestrelhq/kestrel/internal/models"

// Trim returns the message list bounded to at most max entries, together
// with a freshly computed token estimate for the retained set.
//
// Index 0 (the leading context/system message) is always preserved, plus
// the most recent max-1 messages. The ideal cut point is then corrected
// so an atomic call/response unit is not split:
//
//   - a cut landing on tool responses advances past them, since an
//     orphaned response with no preceding call is meaningless;
//   - a cut that would keep a prefix of an assistant's responses while
//     dropping the assistant retreats one message so they stay together.
//
// This is best-effort: if the overflow boundary already split a call's
// responses so that only some preceded the window, the full response set
// for that one call is not reconstructed.
func Trim(msgs []models.Message, max int) ([]models.Message, int) {
	if max < 2 || len(msgs) <= max {
		return msgs, EstimateTokens(msgs)
	}

	cut := len(msgs) - (max - 1)

	for cut < len(msgs) && msgs[cut].IsToolResponse() {
		cut++
	}

	if cut > 1 && cut < len(msgs) && msgs[cut-1].HasPendingCalls() {
		following := 0
		for i := cut; i < len(msgs) && msgs[i].IsToolResponse(); i++ {
			following++
		}
		if following > 0 && following <= len(msgs[cut-1].ToolCalls) {
			cut--
		}
	}

	trimmed := make([]models.Message, 0, 1+len(msgs)-cut)
	trimmed = append(trimmed, msgs[0])
	trimmed = append(trimmed, msgs[cut:]...)
	return trimmed, EstimateTokens(trimmed)
}

// EstimateTokens approximates the token cost of a message list using the
// usual ~4 characters per token heuristic, plus a small fixed overhead
// per message for role and framing.
func EstimateTokens(msgs []models.Message) int {
	total := 0
	for i := range msgs {
		m := &msgs[i]
		chars := len(m.Content)
		for _, tc := range m.ToolCalls {
			chars += len(tc.Name) + len(tc.Args)
		}
		total += chars/4 + 4
	}
	return total
}
