package main

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	catalogsvc "kycgate/internal/catalog/service"
	catalogstore "kycgate/internal/catalog/store"
	entcache "kycgate/internal/entitlement/cache"
	entsvc "kycgate/internal/entitlement/service"
	subsvc "kycgate/internal/subscription/service"
	substore "kycgate/internal/subscription/store"
	id "kycgate/pkg/domain"
)

func TestEntitlementHooksBeforeBind(t *testing.T) {
	hooks := &entitlementHooks{}
	require.NoError(t, hooks.Invalidate(context.Background(), id.UserID(uuid.New())))
	hooks.CatalogChanged(context.Background())
}

func TestEntitlementHooksForwardToCache(t *testing.T) {
	ctx := context.Background()
	hooks := &entitlementHooks{}

	catalog, err := catalogsvc.New(catalogstore.NewInMemoryServiceStore(), catalogstore.NewInMemoryPlanStore(),
		catalogsvc.WithChangeListener(hooks))
	require.NoError(t, err)
	subs, err := subsvc.New(substore.NewInMemoryStore(), subsvc.WithEntitlementInvalidator(hooks))
	require.NoError(t, err)

	cache := entcache.NewMemoryCache()
	ent, err := entsvc.New(subs, catalog, entsvc.WithCache(cache, 0))
	require.NoError(t, err)
	hooks.bind(ent)

	userID := id.UserID(uuid.New())
	_, err = ent.Entitlements(ctx, userID)
	require.NoError(t, err)
	_, ok, err := cache.Get(ctx, userID)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = subs.Grant(ctx, subsvc.GrantCommand{UserID: userID, Category: "Identity Plan", Actor: "ops"})
	require.NoError(t, err)

	_, ok, err = cache.Get(ctx, userID)
	require.NoError(t, err)
	require.False(t, ok, "grant drops the cached set")
}
