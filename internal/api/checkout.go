package api

import (
	"context"
	"net/http"
)

// ValidateCoupon asks the backend what a code is worth against subtotal.
func (c *Client) ValidateCoupon(ctx context.Context, code string, subtotal float64) (CouponResult, error) {
	body := map[string]any{"code": code, "cartTotal": subtotal}
	var payload CouponResult
	if err := c.Do(ctx, http.MethodPost, "/checkout/validate-coupon", body, &payload); err != nil {
		return CouponResult{}, err
	}
	if payload.Coupon.Code == "" {
		payload.Coupon.Code = code
	}
	return payload, nil
}

// RemoveCoupon clears any coupon remembered for the checkout session.
func (c *Client) RemoveCoupon(ctx context.Context) error {
	return c.Do(ctx, http.MethodPost, "/checkout/remove-coupon", nil, nil)
}

// CreateOrder turns the server-side cart into an order. For online payments
// the response carries the provider order token.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (CreatedOrder, error) {
	var payload CreatedOrder
	if err := c.Do(ctx, http.MethodPost, "/payment/create-order", req, &payload); err != nil {
		return CreatedOrder{}, err
	}
	if payload.Order.ID == "" {
		return CreatedOrder{}, &Error{Status: http.StatusOK, Path: "/payment/create-order", Message: "Order created but ID is missing"}
	}
	return payload, nil
}

// VerifyPayment checks the provider signature server-side.
func (c *Client) VerifyPayment(ctx context.Context, orderID string, confirmation PaymentConfirmation) error {
	body := map[string]any{
		"razorpay_order_id":   confirmation.ProviderOrderID,
		"razorpay_payment_id": confirmation.PaymentID,
		"razorpay_signature":  confirmation.Signature,
		"orderId":             orderID,
	}
	return c.Do(ctx, http.MethodPost, "/payment/verify", body, nil)
}

// ReportPaymentFailure records a failed or cancelled payment.
func (c *Client) ReportPaymentFailure(ctx context.Context, providerOrderID, reason string) error {
	body := map[string]any{"razorpay_order_id": providerOrderID, "error": reason}
	return c.Do(ctx, http.MethodPost, "/payment/failure", body, nil)
}
