package answer

// BuildMessages places the query first as a user message, followed by one
// system message per context sentence in ranked order.
func BuildMessages(query string, contexts []string) []Message {
	messages := make([]Message, 0, len(contexts)+1)
	messages = append(messages, Message{Role: RoleUser, Content: query})
	for _, c := range contexts {
		messages = append(messages, Message{Role: RoleSystem, Content: c})
	}
	return messages
}
