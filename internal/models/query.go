package models

type QueryPostRequest struct {
	// Text of the question.
	Text string `json:"text"`

	// TopK overrides the number of context sentences, 0 uses the server default.
	TopK int `json:"top_k,omitempty"`
}

type QueryPostResponse struct {
	ID      string           `json:"id"`
	Query   string           `json:"query"`
	Answer  string           `json:"answer"`
	Failed  bool             `json:"failed"`
	Model   string           `json:"model"`
	Context []ContextSnippet `json:"context"`
}

type ContextSnippet struct {
	Index int     `json:"index"`
	Text  string  `json:"text"`
	Score float32 `json:"score"`
}

type ContextGetResponse struct {
	Contexts []string `json:"contexts"`
	Warnings []string `json:"warnings"`
}
