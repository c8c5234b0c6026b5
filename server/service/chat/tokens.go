package chat

// estimateTokens approximates LLM token usage with the ~4 characters per
// token heuristic, plus a buffer for special tokens and formatting. Rough but
// cheap; accurate counting would need the model's tokenizer.
func estimateTokens(text string) int32 {
	if text == "" {
		return 0
	}

	estimated := len([]rune(text)) / 4
	buffer := estimated / 10
	if buffer < 10 {
		buffer = 10
	}
	return int32(estimated + buffer)
}
