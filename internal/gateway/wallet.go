package gateway

import (
	"context"
	"log"
	"sync"

	"github.com/shopspring/decimal"
)

type walletPhase string

const (
	walletCreatingOrder    walletPhase = "CREATING_ORDER"
	walletAwaitingApproval walletPhase = "AWAITING_APPROVAL"
	walletCapturing        walletPhase = "CAPTURING"
	walletTerminal         walletPhase = "TERMINAL"
)

// CaptureResult is the only thing this flow consumes from the
// provider-hosted side: the capture outcome for an approved order.
type CaptureResult struct {
	OrderID string
	Status  string
	Amount  decimal.Decimal
}

const captureCompleted = "COMPLETED"

// WalletProvider is the redirect/wallet processor. The provider's own
// order object is the source of truth; no local intent is created.
type WalletProvider interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal, currency string) (orderID string, err error)
	Capture(ctx context.Context, orderID string) (*CaptureResult, error)
}

// WalletAdapter runs the redirect flow: create the provider order,
// wait for the user's approval in the provider-hosted UI, then
// capture. Approval without capture is never reported as success;
// capture is the success gate.
type WalletAdapter struct {
	wallet WalletProvider
	loader SDKLoader

	mu      sync.Mutex
	phase   walletPhase
	orderID string
	guard   *callbackGuard
}

func NewWalletAdapter(wallet WalletProvider, loader SDKLoader) *WalletAdapter {
	return &WalletAdapter{
		wallet: wallet,
		loader: loader,
		phase:  walletCreatingOrder,
	}
}

func (a *WalletAdapter) Name() string { return "wallet" }

func (a *WalletAdapter) Initiate(ctx context.Context, amount decimal.Decimal, currency string, cb Callbacks) {
	guard := newCallbackGuard(a.Name(), cb)
	a.mu.Lock()
	a.guard = guard
	a.phase = walletCreatingOrder
	a.mu.Unlock()

	if !amount.IsPositive() {
		a.finish(guard, Failure{
			Kind:    FailureInvalidAmount,
			Message: "Your cart total is not ready yet. Please try again.",
		})
		return
	}

	if err := a.loader.Load(ctx); err != nil {
		a.finish(guard, Failure{
			Kind:    FailureProviderInit,
			Message: "The wallet payment button failed to load. Please refresh and try again.",
		})
		return
	}

	orderID, err := a.wallet.CreateOrder(ctx, amount, currency)
	if err != nil {
		a.finish(guard, mapProviderError(err))
		return
	}

	a.mu.Lock()
	a.orderID = orderID
	a.phase = walletAwaitingApproval
	a.mu.Unlock()

	guard.ready()
}

// Approved is invoked when the user approves the order in the
// provider-hosted UI. The synchronous capture call finalizes the
// charge; only a COMPLETED capture fires the success callback.
func (a *WalletAdapter) Approved(ctx context.Context) {
	a.mu.Lock()
	guard := a.guard
	if a.phase != walletAwaitingApproval {
		phase := a.phase
		a.mu.Unlock()
		log.Printf("wallet: approval received in phase %s, ignoring", phase)
		return
	}
	a.phase = walletCapturing
	orderID := a.orderID
	a.mu.Unlock()

	result, err := a.wallet.Capture(ctx, orderID)
	if err != nil {
		a.finish(guard, mapProviderError(err))
		return
	}

	if result.Status != captureCompleted {
		a.finish(guard, Failure{
			Kind:    FailureDeclined,
			Message: "The wallet payment was not completed. Please try again or use another method.",
		})
		return
	}

	a.mu.Lock()
	a.phase = walletTerminal
	a.mu.Unlock()
	guard.success(result.OrderID, result.Amount)
}

// Cancel reports that the user closed the provider UI before approval.
// The provider order is simply abandoned; no charge happened yet.
func (a *WalletAdapter) Cancel(_ context.Context) {
	a.mu.Lock()
	guard := a.guard
	a.mu.Unlock()
	if guard == nil {
		return
	}
	a.finish(guard, Failure{
		Kind:    FailureCanceled,
		Message: "Payment canceled.",
	})
}

// OrderID exposes the provider order for reconciliation lookups.
func (a *WalletAdapter) OrderID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.orderID
}

func (a *WalletAdapter) finish(guard *callbackGuard, f Failure) {
	a.mu.Lock()
	a.phase = walletTerminal
	a.mu.Unlock()
	guard.failure(f)
}
