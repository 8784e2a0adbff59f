package cart

import (
	"testing"
	"time"

	"github.com/unicafe/cafeteria/internal/dbtest"
)

var testTTL = TTL{Guest: 20 * time.Minute, User: 7 * 24 * time.Hour}

func newCarts(t *testing.T) (*dbtest.Env, *Resolver, *ItemManager) {
	env := dbtest.Open(t)
	resolver := NewResolver(env.DB, env.Clock, testTTL)
	return env, resolver, NewItemManager(env.DB, resolver)
}

func strp(s string) *string { return &s }
