package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedQuantity(t *testing.T) {
	tests := []struct {
		typ     MovementType
		qty     int
		want    int
		wantErr error
	}{
		{MovementIn, 10, 10, nil},
		{MovementReturn, 2, 2, nil},
		{MovementInitial, 50, 50, nil},
		{MovementOut, 3, -3, nil},
		{MovementDamage, 1, -1, nil},
		{MovementAdjustment, -20, -20, nil},
		{MovementCorrection, 4, 4, nil},
		{MovementIn, 0, 0, ErrInvalidQuantity},
		{MovementOut, -3, 0, ErrInvalidQuantity},
		{MovementInitial, -1, 0, ErrInvalidQuantity},
		{MovementAdjustment, 0, 0, ErrInvalidQuantity},
		{MovementType("transfer"), 5, 0, ErrUnknownMovementType},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			got, err := SignedQuantity(tt.typ, tt.qty)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMovementTypeValid(t *testing.T) {
	for _, typ := range MovementTypes {
		assert.True(t, typ.Valid(), typ)
	}
	assert.False(t, MovementType("").Valid())
	assert.True(t, MovementAdjustment.TakesSignedDelta())
	assert.False(t, MovementOut.TakesSignedDelta())
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		channel  SaleChannel
		from, to SaleStatus
		want     bool
	}{
		{ChannelOffline, SalePending, SaleCompleted, true},
		{ChannelOffline, SalePending, SaleCancelled, true},
		{ChannelOffline, SalePending, SalePaid, false},
		{ChannelOffline, SaleCompleted, SaleCancelled, false},
		{ChannelOnline, SalePending, SalePaid, true},
		{ChannelOnline, SalePending, SaleCompleted, false},
		{ChannelOnline, SalePaid, SaleReady, true},
		{ChannelOnline, SaleReady, SaleCompleted, true},
		{ChannelOnline, SaleReady, SaleCancelled, false},
		{ChannelOnline, SaleCancelled, SalePending, false},
	}
	for _, tt := range tests {
		name := string(tt.channel) + "/" + string(tt.from) + "->" + string(tt.to)
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.channel, tt.from, tt.to))
		})
	}
	assert.True(t, SaleCompleted.IsTerminal())
	assert.True(t, SaleCancelled.IsTerminal())
	assert.False(t, SalePaid.IsTerminal())
}

func TestRolePrivileges(t *testing.T) {
	owner := RolePrivileges(RoleOwner)
	admin := RolePrivileges(RoleAdmin)
	assert.Len(t, owner, len(DefaultPrivileges))
	assert.Contains(t, owner, PrivProductViewCost)
	assert.NotContains(t, admin, PrivProductViewCost)
	assert.NotContains(t, admin, PrivStockReconcile)
	assert.Contains(t, admin, PrivStockAdjust)
	assert.ElementsMatch(t, CashierPrivileges, RolePrivileges(RoleCashier))
	assert.Nil(t, RolePrivileges("GUEST"))
}

func TestProductIsLowStock(t *testing.T) {
	p := Product{Stock: 5, MinStock: 5}
	assert.True(t, p.IsLowStock())
	p.Stock = 6
	assert.False(t, p.IsLowStock())
}

func TestStockMovementIsAppendOnly(t *testing.T) {
	m := &StockMovement{}
	assert.ErrorIs(t, m.BeforeUpdate(nil), ErrImmutableMovement)
	assert.ErrorIs(t, m.BeforeDelete(nil), ErrImmutableMovement)

	require.NoError(t, m.BeforeCreate(nil))
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", m.ID.String())
}
