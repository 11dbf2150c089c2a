// Package dummymail provides a recording EmailService for tests.
package dummymail

import (
	"context"
	"sync"

	"github.com/deloai/campus/core"
)

type Service struct {
	mu sync.Mutex
	// Err, when set, is returned by SendMessage to simulate a transport
	// failure.
	Err  error
	Sent []core.EmailMessage
}

var _ core.EmailService = (*Service)(nil)

func NewService() *Service {
	return &Service{}
}

func (svc *Service) SendMessage(ctx context.Context, msg *core.EmailMessage) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.Err != nil {
		return svc.Err
	}
	svc.Sent = append(svc.Sent, *msg)
	return nil
}

func (svc *Service) SendMessages(messages ...*core.EmailMessage) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.Err != nil {
		return
	}
	for _, msg := range messages {
		svc.Sent = append(svc.Sent, *msg)
	}
}

func (svc *Service) SentCount() int {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return len(svc.Sent)
}
