package order

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/unicafe/cafeteria/internal/cart"
	"github.com/unicafe/cafeteria/internal/dbtest"
	"github.com/unicafe/cafeteria/internal/domain"
	"github.com/unicafe/cafeteria/internal/inventory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	events []interface{}
}

func (r *recordingPublisher) Publish(topic string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
	r.events = append(r.events, args...)
}

type fixture struct {
	*dbtest.Env
	ledger    *inventory.Ledger
	resolver  *cart.Resolver
	items     *cart.ItemManager
	assembler *Assembler
	machine   *StateMachine
	pub       *recordingPublisher
}

func newFixture(t *testing.T, seq Sequencer) *fixture {
	env := dbtest.Open(t)
	pub := &recordingPublisher{}
	ledger := inventory.NewLedger(env.DB, env.Clock)
	resolver := cart.NewResolver(env.DB, env.Clock, cart.TTL{})
	return &fixture{
		Env:      env,
		ledger:   ledger,
		resolver: resolver,
		items:    cart.NewItemManager(env.DB, resolver),
		assembler: NewAssembler(env.DB, ledger, seq, env.Clock, pub, Config{
			NumberPrefix: "ORD",
			TaxRate:      decimal.RequireFromString("0.16"),
		}),
		machine: NewStateMachine(env.DB, ledger, env.Clock, pub),
		pub:     pub,
	}
}

// cartWith fills the active cart of a user with product/quantity pairs.
func (f *fixture) cartWith(t *testing.T, userID int64, lines ...interface{}) *domain.Cart {
	t.Helper()
	c, err := f.resolver.GetOrCreateCart(context.Background(), domain.UserOwner(userID))
	require.NoError(t, err)
	for i := 0; i+1 < len(lines); i += 2 {
		p := lines[i].(*domain.Product)
		_, err := f.items.AddItem(context.Background(), c.ID, p.ID, lines[i+1].(int), nil)
		require.NoError(t, err)
	}
	return c
}

func strp(s string) *string { return &s }

func inventoryOut(productID int64, quantity int) inventory.Movement {
	return inventory.Movement{ProductID: productID, Quantity: quantity, Reason: "spoiled", Type: domain.MovementDamaged}
}
