package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/alanyoungcy/orderbot/internal/domain"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeSigner struct {
	mu     sync.Mutex
	nonces []uint64
	err    error
	panic  bool
}

func (s *fakeSigner) SignAction(action domain.OrderAction, nonce uint64, isMainnet bool) (domain.SignedAction, error) {
	if s.panic {
		panic("signer exploded")
	}
	s.mu.Lock()
	s.nonces = append(s.nonces, nonce)
	s.mu.Unlock()
	if s.err != nil {
		return domain.SignedAction{}, s.err
	}
	return domain.SignedAction{Action: action, Nonce: nonce, Hex: fmt.Sprintf("0xsig-%d", nonce)}, nil
}

func (s *fakeSigner) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nonces)
}

// fakeExchange replies with errs[i] on call i, then with resp.
type fakeExchange struct {
	mu     sync.Mutex
	errs   []error
	resp   domain.ExchangeResponse
	nonces []uint64
}

func (e *fakeExchange) SubmitOrder(_ context.Context, a domain.SignedAction) (domain.ExchangeResponse, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := len(e.nonces)
	e.nonces = append(e.nonces, a.Nonce)
	if i < len(e.errs) && e.errs[i] != nil {
		return domain.ExchangeResponse{}, e.errs[i]
	}
	return e.resp, nil
}

func (e *fakeExchange) calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.nonces)
}

type fakeStore struct {
	mu      sync.Mutex
	records []domain.OrderRecord
	err     error
}

func (s *fakeStore) Connect(context.Context) error { return nil }
func (s *fakeStore) Close()                        {}

func (s *fakeStore) LogOrder(_ context.Context, rec domain.OrderRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	alerts []string
}

func (n *fakeNotifier) SendNotification(context.Context, string, string) {}

func (n *fakeNotifier) SendAlert(_ context.Context, msg string) {
	n.mu.Lock()
	n.alerts = append(n.alerts, msg)
	n.mu.Unlock()
}

type seqNonces struct {
	mu   sync.Mutex
	next uint64
}

func (s *seqNonces) Next() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return s.next
}

type fakeEvents struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (f *fakeEvents) Publish(_ context.Context, _ string, payload []byte) error {
	f.mu.Lock()
	f.payloads = append(f.payloads, payload)
	f.mu.Unlock()
	return nil
}

type fakeCache struct {
	positions []domain.Position
	err       error
}

func (c *fakeCache) SetPositions(_ context.Context, _ string, ps []domain.Position) error {
	c.positions = ps
	return c.err
}

func (c *fakeCache) GetPosition(context.Context, string, string) (domain.Position, error) {
	return domain.Position{}, errors.New("not implemented")
}
