package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"admin":      RoleAdmin,
		"ADMIN":      RoleAdmin,
		" Customer ": RoleCustomer,
		"USER":       RoleCustomer,
	}
	for in, want := range cases {
		got, ok := ParseRole(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := ParseRole("root")
	assert.False(t, ok)
	_, ok = ParseRole("")
	assert.False(t, ok)
}

func TestPrincipal_Owns(t *testing.T) {
	o := Order{UserID: 5}

	assert.True(t, Principal{UserID: 5, Role: RoleCustomer}.Owns(o))
	assert.False(t, Principal{UserID: 6, Role: RoleAdmin}.Owns(o))
	assert.False(t, Principal{}.Owns(Order{}))
	assert.True(t, Principal{UserID: 6, Role: RoleAdmin}.IsAdmin())
}

func TestPaymentMethod_InitialPaymentStatus(t *testing.T) {
	assert.Equal(t, PaymentStatusPending, PaymentMethodCashOnDelivery.InitialPaymentStatus())
	for _, m := range []PaymentMethod{PaymentMethodOnline, PaymentMethodCreditCard, PaymentMethodDebitCard} {
		assert.True(t, m.Valid())
		assert.Equal(t, PaymentStatusPaid, m.InitialPaymentStatus(), m)
	}
	assert.False(t, PaymentMethod("paypal").Valid())
}

func TestOrderStatus_ValidAndEditable(t *testing.T) {
	assert.True(t, OrderStatusPending.Editable())
	assert.False(t, OrderStatusProcessing.Editable())
	assert.False(t, OrderStatus("PENDING").Valid())
	assert.True(t, OrderStatusDelivered.Valid())
}

func TestShippingAddress_MissingField(t *testing.T) {
	full := ShippingAddress{FullName: "A", Phone: "1", Address: "X"}
	assert.Equal(t, "", full.MissingField())

	noName := full
	noName.FullName = " "
	assert.Equal(t, "shipping_address.full_name", noName.MissingField())

	noAddr := full
	noAddr.Address = ""
	assert.Equal(t, "shipping_address.address", noAddr.MissingField())
}
