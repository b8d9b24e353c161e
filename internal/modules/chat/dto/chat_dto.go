package dto

// ChatRequest carries either a streaming prompt or a one-shot message.
type ChatRequest struct {
	Prompt  string `json:"prompt"`
	Message string `json:"message"`
}

type ChatReply struct {
	Reply string `json:"reply"`
}
