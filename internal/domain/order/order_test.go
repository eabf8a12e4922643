package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidatesInput(t *testing.T) {
	_, err := New("o1", nil, 100, "INR")
	assert.ErrorIs(t, err, ErrNoItems)

	_, err = New("o1", []Item{{ItemID: "cake1", Quantity: 0}}, 100, "INR")
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = New("o1", []Item{{ItemID: "cake1", Quantity: 1}}, 0, "INR")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	o, err := New("o1", []Item{{ItemID: "cake1", Quantity: 2}}, 100, "INR")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
}

func TestConfirmSetsBothStatusesTogether(t *testing.T) {
	o, err := New("o1", []Item{{ItemID: "cake1", Quantity: 2}}, 100, "INR")
	require.NoError(t, err)

	require.NoError(t, o.Confirm())
	assert.Equal(t, StatusConfirmed, o.Status)
	assert.Equal(t, PaymentConfirmed, o.PaymentStatus)
	assert.Empty(t, o.CancellationReason)

	assert.ErrorIs(t, o.Confirm(), ErrFinal)
	assert.ErrorIs(t, o.Cancel("x"), ErrFinal)
}

func TestCancelCarriesReason(t *testing.T) {
	o, err := New("o1", []Item{{ItemID: "cake1", Quantity: 2}}, 100, "INR")
	require.NoError(t, err)

	require.NoError(t, o.Cancel("signature_mismatch"))
	assert.Equal(t, StatusCancelled, o.Status)
	assert.Equal(t, PaymentCancelled, o.PaymentStatus)
	assert.Equal(t, "signature_mismatch", o.CancellationReason)
}

func TestCancelAfterCapture(t *testing.T) {
	o, err := New("o1", []Item{{ItemID: "cake1", Quantity: 2}}, 100, "INR")
	require.NoError(t, err)

	require.NoError(t, o.CancelAfterCapture("finalize_failed"))
	assert.Equal(t, StatusCancelled, o.Status)
	assert.Equal(t, PaymentConfirmed, o.PaymentStatus)
	assert.Equal(t, "finalize_failed", o.CancellationReason)

	// Upgrading an already-cancelled order is allowed; a confirmed one is not.
	require.NoError(t, o.CancelAfterCapture("still_captured"))

	confirmed, err := New("o2", []Item{{ItemID: "cake1", Quantity: 1}}, 100, "INR")
	require.NoError(t, err)
	require.NoError(t, confirmed.Confirm())
	assert.ErrorIs(t, confirmed.CancelAfterCapture("x"), ErrFinal)
}

func TestAttachPaymentIsSetOnce(t *testing.T) {
	o, err := New("o1", []Item{{ItemID: "cake1", Quantity: 2}}, 100, "INR")
	require.NoError(t, err)

	o.AttachPayment("pay_1")
	o.AttachPayment("pay_2")
	assert.Equal(t, "pay_1", o.GatewayPaymentID)
}

func TestCloneIsDeep(t *testing.T) {
	o, err := New("o1", []Item{{ItemID: "cake1", Quantity: 2}}, 100, "INR")
	require.NoError(t, err)

	clone := o.Clone()
	clone.Items[0].Quantity = 99
	assert.Equal(t, 2, o.Items[0].Quantity)
}
