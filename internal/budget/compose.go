// Package budget trims conversation histories to fit an approximate token
// window. Estimation is character-ratio based; no tokenizer is consulted.
package budget

import (
	"strings"

	"github.com/anvil-dev/anvil/internal/llm"
)

const (
	// MinTokenBudget is the floor below which budgets are clamped up to
	// avoid degenerate empty output.
	MinTokenBudget = 200

	// DefaultCharsPerToken is used when the caller supplies no ratio.
	DefaultCharsPerToken = 4.0

	// perMessageOverhead is the fixed token cost charged per message for
	// role tags and framing.
	perMessageOverhead = 4

	// usableFraction of the budget is actually filled, leaving headroom
	// for estimation error.
	usableFraction = 0.9

	// systemFraction caps the share of the usable budget granted to
	// system-role messages.
	systemFraction = 0.35

	// TruncationMarker is appended to any message whose content was cut.
	TruncationMarker = "\n[...truncated]"
)

// EstimateTokens returns the approximate token cost of one message.
func EstimateTokens(m llm.Message, charsPerToken float64) int {
	if charsPerToken <= 0 {
		charsPerToken = DefaultCharsPerToken
	}
	return int(float64(len(m.Content))/charsPerToken+0.999) + perMessageOverhead
}

// EstimateTotal returns the approximate token cost of a message list.
func EstimateTotal(msgs []llm.Message, charsPerToken float64) int {
	total := 0
	for _, m := range msgs {
		total += EstimateTokens(m, charsPerToken)
	}
	return total
}

// Compose returns a possibly-shortened copy of messages whose estimated
// token count fits within 90% of maxTokens. System messages are bounded
// first, capped at 35% of the usable budget and truncated from the end of
// the list when they overflow. The remainder goes to non-system messages,
// filled most-recent-first so older turns are dropped before newer ones.
// A message kept as the sole survivor of its group is content-truncated
// with a visible marker instead of being dropped.
//
// The function is pure: same input, same output. The trimmed flag is true
// iff the message count changed or the estimate still exceeds maxTokens.
func Compose(messages []llm.Message, maxTokens int, charsPerToken float64) ([]llm.Message, bool) {
	if charsPerToken <= 0 {
		charsPerToken = DefaultCharsPerToken
	}
	if maxTokens < MinTokenBudget {
		maxTokens = MinTokenBudget
	}
	usable := int(float64(maxTokens) * usableFraction)

	// keep[i] holds the (possibly truncated) content of a retained message.
	keep := make(map[int]string, len(messages))

	var systemIdx, otherIdx []int
	for i, m := range messages {
		if m.Role == llm.RoleSystem {
			systemIdx = append(systemIdx, i)
		} else {
			otherIdx = append(otherIdx, i)
		}
	}

	systemBudget := int(float64(usable) * systemFraction)
	if len(otherIdx) == 0 {
		systemBudget = usable
	}
	systemUsed := fillForward(messages, systemIdx, systemBudget, charsPerToken, keep)

	remainder := usable - systemUsed
	fillBackward(messages, otherIdx, remainder, charsPerToken, keep)

	out := make([]llm.Message, 0, len(keep))
	for i, m := range messages {
		content, ok := keep[i]
		if !ok {
			continue
		}
		out = append(out, llm.Message{Role: m.Role, Content: content})
	}

	trimmed := len(out) != len(messages) || EstimateTotal(out, charsPerToken) > maxTokens
	return out, trimmed
}

// fillForward retains messages at the given indices in order until the
// budget runs out. The first message of the group is truncated to fit
// rather than dropped; later overflowing messages are cut from the list.
// Returns the tokens consumed.
func fillForward(messages []llm.Message, idx []int, tokenBudget int, charsPerToken float64, keep map[int]string) int {
	used := 0
	for n, i := range idx {
		cost := EstimateTokens(messages[i], charsPerToken)
		if used+cost <= tokenBudget {
			keep[i] = messages[i].Content
			used += cost
			continue
		}
		if n == 0 {
			content := truncateToFit(messages[i].Content, tokenBudget-used, charsPerToken)
			keep[i] = content
			used += EstimateTokens(llm.Message{Content: content}, charsPerToken)
		}
		break
	}
	return used
}

// fillBackward retains messages newest-first until the budget runs out, so
// recency wins over age. The newest message is truncated to fit rather than
// dropped when it alone overflows.
func fillBackward(messages []llm.Message, idx []int, tokenBudget int, charsPerToken float64, keep map[int]string) {
	used := 0
	for n := len(idx) - 1; n >= 0; n-- {
		i := idx[n]
		cost := EstimateTokens(messages[i], charsPerToken)
		if used+cost <= tokenBudget {
			keep[i] = messages[i].Content
			used += cost
			continue
		}
		if n == len(idx)-1 {
			content := truncateToFit(messages[i].Content, tokenBudget-used, charsPerToken)
			keep[i] = content
		}
		break
	}
}

// truncateToFit cuts content so its estimated cost (overhead included) fits
// tokenAllowance, appending the truncation marker. The marker survives even
// when the allowance is too small for any content.
func truncateToFit(content string, tokenAllowance int, charsPerToken float64) string {
	maxChars := int(float64(tokenAllowance-perMessageOverhead) * charsPerToken)
	maxChars -= len(TruncationMarker)
	if maxChars < 0 {
		maxChars = 0
	}
	if maxChars >= len(content) {
		return content
	}
	cut := strings.TrimRight(content[:maxChars], " \t\n")
	return cut + TruncationMarker
}
