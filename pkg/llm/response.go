package llm

// ChatResponse represents a chat completion response (Azure OpenAI compatible).
type ChatResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`   // Model that generated the response
	Created int64    `json:"created"` // Unix timestamp
	Choices []Choice `json:"choices"`
}

// Choice is a single completion candidate.
type Choice struct {
	Index        int             `json:"index"`
	Message      ResponseMessage `json:"message"`
	FinishReason string          `json:"finish_reason,omitempty"`
}

// ResponseMessage is the assistant message, with the retrieval context when
// the request carried a data source.
type ResponseMessage struct {
	Role    Role     `json:"role"`
	Content string   `json:"content"`
	Context *Context `json:"context,omitempty"`
}

// Context carries retrieval metadata returned alongside the reply.
type Context struct {
	Citations []Citation `json:"citations,omitempty"`
	Intent    string     `json:"intent,omitempty"`
}

// Citation is a reference to a retrieved document. It is passed through untouched
// apart from index based marker substitution.
type Citation struct {
	Title    string `json:"title,omitempty"`
	URL      string `json:"url,omitempty"`
	Content  string `json:"content,omitempty"`
	Filepath string `json:"filepath,omitempty"`
	ChunkID  string `json:"chunk_id,omitempty"`
}
