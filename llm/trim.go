package llm

// Trim drops the oldest messages until the history fits the token budget.
// A leading system message always survives and is not charged against the
// budget, as the budget bounds conversation history only. The newest message
// also always survives.
func Trim(msgs []Message, budget int, count TokenCounter) []Message {
	if len(msgs) == 0 {
		return msgs
	}
	if count == nil {
		count = CountChars
	}

	var system *Message
	rest := msgs
	if msgs[0].Role == RoleSystem {
		system = &msgs[0]
		rest = msgs[1:]
	}

	used := 0

	// Walk from newest to oldest, keeping messages while the budget holds.
	// The newest message is kept unconditionally.
	keepFrom := len(rest)
	for i := len(rest) - 1; i >= 0; i-- {
		c := count(rest[i].Content)
		if keepFrom < len(rest) && used+c > budget {
			break
		}
		used += c
		keepFrom = i
	}

	out := make([]Message, 0, len(rest)-keepFrom+1)
	if system != nil {
		out = append(out, *system)
	}
	out = append(out, rest[keepFrom:]...)
	return out
}
