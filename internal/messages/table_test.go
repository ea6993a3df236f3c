package messages

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brutusburger/brutabot/internal/testutil"
)

func TestFallbackCoversAllKeys(t *testing.T) {
	keys := []string{
		KeyGreeting, KeyHelp, KeyUnknown, KeyInvalidOption, KeyCartEmpty,
		KeyCanceled, KeyRemoved, KeyRestarted, KeyBeverageMenuHeader,
		KeyBeverageQuantity, KeyAdditionalQuantity, KeyDeliveryOrPickup,
		KeyAskAddress, KeyAddressQuote, KeyAddressNotFound, KeyOutOfArea,
		KeySavedAddress, KeyObservation, KeyAskName, KeyPaymentMenu,
		KeyAskChange, KeyChangeTooSmall, KeyChangeInvalid, KeyPix,
		KeyOrderPlaced, KeyPickupPlaced, KeyAlreadyFinalized,
		KeyOutForDelivery, KeySupport, KeyFollowup,
	}
	for _, key := range keys {
		assert.Contains(t, fallback, key)
	}
}

func TestTableFallbackOnly(t *testing.T) {
	table := NewTable()
	got := table.Get(context.Background(), KeyGreeting)
	assert.Equal(t, SourceFallback, got.Source)
	assert.Contains(t, got.Text, "Brutus Burger")
}

func TestTablePlaceholderForUnknownKey(t *testing.T) {
	table := NewTable()
	got := table.Get(context.Background(), "no_such_key")
	assert.Equal(t, SourcePlaceholder, got.Source)
	assert.Equal(t, "[no_such_key]", got.Text)
}

func TestTableLiveOverride(t *testing.T) {
	ctx := context.Background()
	store, err := OpenStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.Set(ctx, KeyGreeting, "Oi!"))

	table := NewTable(WithStore(store))
	got := table.Get(ctx, KeyGreeting)
	assert.Equal(t, SourceStore, got.Source)
	assert.Equal(t, "Oi!", got.Text)

	// Keys without an override still fall back.
	assert.Equal(t, SourceFallback, table.Get(ctx, KeyHelp).Source)
}

func TestTableDeactivateRestoresFallback(t *testing.T) {
	ctx := context.Background()
	store, err := OpenStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.Set(ctx, KeyGreeting, "Oi!"))
	require.NoError(t, store.Deactivate(ctx, KeyGreeting))

	table := NewTable(WithStore(store))
	assert.Equal(t, SourceFallback, table.Get(ctx, KeyGreeting).Source)
}

func TestTableCachesUntilTTL(t *testing.T) {
	ctx := context.Background()
	store, err := OpenStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	clock := testutil.NewManualClock(time.Unix(1700000000, 0))
	table := NewTable(WithStore(store), WithTableNow(clock.Now))

	assert.Equal(t, SourceFallback, table.Get(ctx, KeyGreeting).Source)

	require.NoError(t, store.Set(ctx, KeyGreeting, "Oi!"))
	assert.Equal(t, SourceFallback, table.Get(ctx, KeyGreeting).Source, "cached tier within TTL")

	clock.Advance(DefaultTableTTL + time.Second)
	assert.Equal(t, SourceStore, table.Get(ctx, KeyGreeting).Source)

	// Invalidate skips the wait.
	require.NoError(t, store.Deactivate(ctx, KeyGreeting))
	table.Invalidate()
	assert.Equal(t, SourceFallback, table.Get(ctx, KeyGreeting).Source)
}

func TestTextf(t *testing.T) {
	table := NewTable()
	out := table.Textf(context.Background(), KeyPix, "brutus@pix.com")
	assert.Contains(t, out, "brutus@pix.com")
}
