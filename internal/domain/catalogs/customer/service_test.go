package customer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"magasin/internal/core/apperror"
	"magasin/internal/core/tenant"
	"magasin/internal/core/types"
	"magasin/internal/domain/catalogs/customer"
	"magasin/internal/infrastructure/storage/memory"
)

func TestService_CreateAndList(t *testing.T) {
	store := memory.NewStore()
	svc := customer.NewService(memory.NewCustomerRepo(store), store)
	ctx := tenant.WithTenant(context.Background(), "shop-1", "cashier-1")

	owing := &customer.Customer{Name: "Nadia", Balance: types.MustMoney("15"), CreditLimit: types.MustMoney("100")}
	require.NoError(t, svc.Create(ctx, owing))
	require.NoError(t, svc.Create(ctx, &customer.Customer{Name: "Omar"}))

	got, err := svc.Get(ctx, owing.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(types.MustMoney("15")))

	res, err := svc.List(ctx, customer.ListFilter{WithBalance: true})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Nadia", res.Items[0].Name)

	_, err = svc.Get(tenant.WithTenant(context.Background(), "shop-2", "x"), owing.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestCustomer_Validate(t *testing.T) {
	tests := []struct {
		name  string
		c     customer.Customer
		field string
	}{
		{name: "blank name", c: customer.Customer{Name: "  "}, field: "name"},
		{name: "negative limit", c: customer.Customer{Name: "a", CreditLimit: types.MustMoney("-5")}, field: "creditLimit"},
		{name: "negative balance", c: customer.Customer{Name: "a", Balance: types.MustMoney("-1")}, field: "balance"},
		{name: "over limit", c: customer.Customer{Name: "a", Balance: types.MustMoney("60"), CreditLimit: types.MustMoney("50")}, field: "balance"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.c.Validate()
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, tt.field, appErr.Details["field"])
		})
	}
}

func TestCustomer_AvailableCredit(t *testing.T) {
	c := customer.Customer{Balance: types.MustMoney("30"), CreditLimit: types.MustMoney("100")}
	require.NotNil(t, c.AvailableCredit())
	assert.True(t, c.AvailableCredit().Equal(types.MustMoney("70")))

	c.Balance = types.MustMoney("120")
	assert.True(t, c.AvailableCredit().IsZero())

	c.CreditLimit = types.Zero()
	assert.Nil(t, c.AvailableCredit())
}
