package out

import (
	"context"
)

// ModelRequest 단일 LLM 호출 입력
type ModelRequest struct {
	System    string
	User      string
	MaxTokens int
}

// ContentBlock is one block of a model reply. Type is "text" for plain text;
// other block types carry no Text.
type ContentBlock struct {
	Type string
	Text string
}

// ModelResponse LLM 응답
type ModelResponse struct {
	Model        string
	StopReason   string
	Content      []ContentBlock
	InputTokens  int64
	OutputTokens int64
}

// ModelClient sends exactly one request per Complete call. Implementations
// must not retry.
type ModelClient interface {
	Complete(ctx context.Context, req ModelRequest) (*ModelResponse, error)
	Provider() string
}
