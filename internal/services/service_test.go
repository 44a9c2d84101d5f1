package services

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/johnmangawang-git/mci-delivery-tracker/internal/gateway"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/notify"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/testutil"
	"github.com/johnmangawang-git/mci-delivery-tracker/internal/tracing"
)

// testEnv wires the service stack over in-memory backends.
type testEnv struct {
	deliveryBackend *testutil.DeliveryBackend
	customerBackend *testutil.CustomerBackend
	proofBackend    *testutil.ProofBackend
	pendingBackend  *testutil.PendingBackend
	local           *testutil.MemoryStore
	store           *gateway.Gateway
	hub             *notify.Hub
	notifier        *captureNotifier
	customers       *CustomerService
	deliveries      *DeliveryService
	completions     *CompletionService
}

func newTestEnv(opts ...gateway.Option) *testEnv {
	env := &testEnv{
		deliveryBackend: testutil.NewDeliveryBackend(),
		customerBackend: testutil.NewCustomerBackend(),
		pendingBackend:  testutil.NewPendingBackend(),
		local:           testutil.NewMemoryStore(),
		hub:             notify.NewHub(),
		notifier:        &captureNotifier{},
	}
	env.proofBackend = testutil.NewProofBackend(env.pendingBackend)
	env.store = gateway.New(
		env.deliveryBackend,
		env.customerBackend,
		env.proofBackend,
		env.pendingBackend,
		env.local,
		opts...,
	)
	env.customers = NewCustomerService(env.store, env.hub)
	env.deliveries = NewDeliveryService(env.store, env.customers, env.hub)
	env.completions = NewCompletionService(env.store, env.deliveries, env.hub, env.notifier, nil, tracing.Noop())
	return env
}

var (
	errRemoteDown = errors.New("connection refused")
	errLocalDown  = errors.New("cache: connection pool timeout")
)

func (env *testEnv) failRemote() {
	env.deliveryBackend.Err = errRemoteDown
	env.customerBackend.Err = errRemoteDown
	env.proofBackend.Err = errRemoteDown
	env.pendingBackend.Err = errRemoteDown
}

func (env *testEnv) restoreRemote() {
	env.deliveryBackend.Err = nil
	env.customerBackend.Err = nil
	env.proofBackend.Err = nil
	env.pendingBackend.Err = nil
}

// captureNotifier records notifications instead of logging them.
type captureNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *captureNotifier) Notify(message string, severity notify.Severity) {
	n.mu.Lock()
	n.messages = append(n.messages, string(severity)+": "+message)
	n.mu.Unlock()
}

func (n *captureNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}
