package tui

import (
	"context"

	"github.com/jeddict/jeddict/internal/tool"
)

type approvalRequest struct {
	proposal *tool.Proposal
	reply    chan bool
}

// Approvals forwards tool proposals from the model goroutine to the chat
// screen and waits for the user's answer.
type Approvals struct {
	requests chan approvalRequest
}

// NewApprovals creates the bridge shared by the registry and the Model.
func NewApprovals() *Approvals {
	return &Approvals{requests: make(chan approvalRequest)}
}

// Approve blocks until the user answers or ctx is done.
func (a *Approvals) Approve(ctx context.Context, p *tool.Proposal) (bool, error) {
	req := approvalRequest{proposal: p, reply: make(chan bool, 1)}
	select {
	case a.requests <- req:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	select {
	case ok := <-req.reply:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
