package game

import (
	"context"
	"sync"
)

type BalanceQuerier interface {
	Balance(ctx context.Context) (BalanceResponse, error)
}

// AppState is the per-user context shared by the session and the cashout
// coordinator: who is playing and the last balance the backend reported.
type AppState struct {
	mu      sync.RWMutex
	userID  string
	points  float64
	querier BalanceQuerier
}

func NewAppState(userID string, querier BalanceQuerier) *AppState {
	return &AppState{userID: userID, querier: querier}
}

func (a *AppState) UserID() string {
	return a.userID
}

func (a *AppState) Balance() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.points
}

// RefreshBalance re-queries the backend and stores the result.
func (a *AppState) RefreshBalance(ctx context.Context) (float64, error) {
	resp, err := a.querier.Balance(ctx)
	if err != nil {
		return a.Balance(), err
	}

	a.mu.Lock()
	a.points = resp.Points
	a.mu.Unlock()
	return resp.Points, nil
}
