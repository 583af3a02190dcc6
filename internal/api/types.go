package api

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

const backendTimestampLayout = "2006-01-02 15:04:05"

// RoleBuyer is the only role allowed to use the storefront.
const RoleBuyer = "buyer"

// Image is a hosted asset reference.
type Image struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id,omitempty"`
}

// User is the authenticated identity.
type User struct {
	ID             string `json:"_id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	Phone          string `json:"phone,omitempty"`
	ProfilePicture *Image `json:"profilePicture,omitempty"`
	CreatedAt      string `json:"createdAt,omitempty"`
	UpdatedAt      string `json:"updatedAt,omitempty"`
}

// ParsedCreatedAt returns the parsed CreatedAt timestamp.
func (u User) ParsedCreatedAt() time.Time { return parseTime(u.CreatedAt) }

// ParsedUpdatedAt returns the parsed UpdatedAt timestamp.
func (u User) ParsedUpdatedAt() time.Time { return parseTime(u.UpdatedAt) }

// Product is a catalog entry as shown to buyers.
type Product struct {
	ID            string          `json:"_id"`
	Name          string          `json:"name"`
	Slug          string          `json:"slug,omitempty"`
	Description   string          `json:"description,omitempty"`
	Price         float64         `json:"price"`
	FinalPrice    float64         `json:"finalPrice,omitempty"`
	Stock         int             `json:"stock"`
	Images        []Image         `json:"images,omitempty"`
	Thumbnail     *Image          `json:"thumbnail,omitempty"`
	Category      json.RawMessage `json:"category,omitempty"`
	AverageRating float64         `json:"averageRating,omitempty"`
	NumReviews    int             `json:"numReviews,omitempty"`
	IsHearted     bool            `json:"ishearted,omitempty"`
	CreatedAt     string          `json:"createdAt,omitempty"`
}

// EffectivePrice is the price a buyer pays per unit.
func (p Product) EffectivePrice() float64 {
	if p.FinalPrice > 0 {
		return p.FinalPrice
	}
	return p.Price
}

// ImageURL picks the thumbnail, falling back to the first gallery image.
func (p Product) ImageURL() string {
	if p.Thumbnail != nil && p.Thumbnail.URL != "" {
		return p.Thumbnail.URL
	}
	if len(p.Images) > 0 {
		return p.Images[0].URL
	}
	return ""
}

// Category is a catalog grouping. Parent may reference another category by
// id or slug.
type Category struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Parent   Ref    `json:"parent,omitempty"`
	Order    int    `json:"order,omitempty"`
	IsActive *bool  `json:"isActive,omitempty"`
	Image    *Image `json:"image,omitempty"`
}

// Ref is a reference the backend sends either as a bare string or as a
// populated object with _id/slug.
type Ref struct {
	ID   string
	Slug string
}

// IsZero reports whether the reference is empty.
func (r Ref) IsZero() bool { return r.ID == "" && r.Slug == "" }

// UnmarshalJSON accepts "id", {"_id": "...", "slug": "..."} or null.
func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = Ref{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = Ref{ID: s}
		return nil
	}
	var obj struct {
		ID   string `json:"_id"`
		Slug string `json:"slug"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*r = Ref{ID: obj.ID, Slug: obj.Slug}
	return nil
}

// MarshalJSON writes the id form.
func (r Ref) MarshalJSON() ([]byte, error) {
	if r.IsZero() {
		return []byte("null"), nil
	}
	if r.ID != "" {
		return json.Marshal(r.ID)
	}
	return json.Marshal(r.Slug)
}

// Review is a product review.
type Review struct {
	ID        string  `json:"_id"`
	Rating    float64 `json:"rating"`
	Comment   string  `json:"comment"`
	User      struct {
		Name string `json:"name"`
	} `json:"user"`
	CreatedAt string `json:"createdAt"`
}

// Time is when the review was written, or zero when unparseable.
func (r Review) Time() time.Time { return parseTime(r.CreatedAt) }

// Address is a delivery address.
type Address struct {
	ID           string `json:"_id,omitempty"`
	FullName     string `json:"fullName"`
	Phone        string `json:"phone"`
	Pincode      string `json:"pincode"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	Country      string `json:"country,omitempty"`
	AddressType  string `json:"addressType,omitempty"`
	IsDefault    bool   `json:"isDefault"`
}

// CartItem is one cart line as reported by the backend. Product is either a
// populated object or just an id.
type CartItem struct {
	Product    Product `json:"-"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price"`
	FinalPrice float64 `json:"finalPrice,omitempty"`
}

// UnmarshalJSON normalizes the product reference.
func (c *CartItem) UnmarshalJSON(data []byte) error {
	type alias CartItem
	var raw struct {
		alias
		Product json.RawMessage `json:"product"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = CartItem(raw.alias)
	product, err := decodeProductRef(raw.Product)
	if err != nil {
		return err
	}
	c.Product = product
	return nil
}

// MarshalJSON writes the populated product.
func (c CartItem) MarshalJSON() ([]byte, error) {
	type alias CartItem
	return json.Marshal(struct {
		alias
		Product Product `json:"product"`
	}{alias(c), c.Product})
}

func decodeProductRef(raw json.RawMessage) (Product, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Product{}, nil
	}
	if raw[0] == '"' {
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			return Product{}, err
		}
		return Product{ID: id}, nil
	}
	var p Product
	if err := json.Unmarshal(raw, &p); err != nil {
		return Product{}, err
	}
	return p, nil
}

// Coupon describes an applied coupon.
type Coupon struct {
	Code          string  `json:"code"`
	DiscountType  string  `json:"discountType,omitempty"`
	DiscountValue float64 `json:"discountValue,omitempty"`
	Description   string  `json:"description,omitempty"`
}

// CouponResult is the outcome of validating a coupon against a subtotal.
type CouponResult struct {
	Coupon   Coupon  `json:"coupon"`
	Discount float64 `json:"discount"`
}

// Payment methods accepted by the backend.
const (
	PaymentCOD    = "cod"
	PaymentOnline = "online"
)

// OrderRequest creates an order from the server-side cart.
type OrderRequest struct {
	AddressID     string `json:"addressId"`
	PaymentMethod string `json:"paymentMethod"`
	CouponCode    string `json:"couponCode,omitempty"`
}

// OrderItem is one purchased line.
type OrderItem struct {
	Product  Ref     `json:"product"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// Order is a placed order.
type Order struct {
	ID              string      `json:"_id"`
	OrderNumber     string      `json:"orderNumber"`
	Status          string      `json:"status"`
	PaymentMethod   string      `json:"paymentMethod,omitempty"`
	PaymentStatus   string      `json:"paymentStatus,omitempty"`
	Items           []OrderItem `json:"items,omitempty"`
	Subtotal        float64     `json:"subtotal,omitempty"`
	Discount        float64     `json:"discount,omitempty"`
	ShippingCharge  float64     `json:"shippingCharge,omitempty"`
	TotalAmount     float64     `json:"totalAmount"`
	User            *User       `json:"user,omitempty"`
	ShippingAddress *Address    `json:"shippingAddress,omitempty"`
	CreatedAt       string      `json:"createdAt,omitempty"`
}

// ProviderOrder is the payment provider's order token issued via the backend.
type ProviderOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// CreatedOrder is the create-order response.
type CreatedOrder struct {
	Order         Order          `json:"order"`
	ProviderOrder *ProviderOrder `json:"razorpayOrder,omitempty"`
}

// PaymentConfirmation is the provider's success payload.
type PaymentConfirmation struct {
	ProviderOrderID string `json:"razorpay_order_id"`
	PaymentID       string `json:"razorpay_payment_id"`
	Signature       string `json:"razorpay_signature"`
}

// Order lifecycle statuses in display order.
var TrackingSteps = []string{"pending", "confirmed", "processing", "shipped", "out_for_delivery", "delivered"}

// TrackingEvent is one status change.
type TrackingEvent struct {
	Status    string `json:"status"`
	Note      string `json:"note,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Time is when the status changed, or zero when unparseable.
func (e TrackingEvent) Time() time.Time { return parseTime(e.Timestamp) }

// Tracking is the order tracking view.
type Tracking struct {
	CurrentStatus  string          `json:"currentStatus"`
	Order          *Order          `json:"order,omitempty"`
	TrackingNumber string          `json:"trackingNumber,omitempty"`
	Courier        string          `json:"courier,omitempty"`
	History        []TrackingEvent `json:"statusHistory,omitempty"`
}

// Status prefers the embedded order's status.
func (t Tracking) Status() string {
	if t.Order != nil && t.Order.Status != "" {
		return t.Order.Status
	}
	return t.CurrentStatus
}

// StepIndex returns the position of the current status in TrackingSteps, or 0
// when unknown.
func (t Tracking) StepIndex() int {
	status := t.Status()
	for i, step := range TrackingSteps {
		if step == status {
			return i
		}
	}
	return 0
}

// Notification types.
const (
	NotificationOrder    = "order"
	NotificationProduct  = "product"
	NotificationDelivery = "delivery"
	NotificationOther    = "other"
)

// Notification is a user notification in canonical form.
type Notification struct {
	ID        string    `json:"_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"createdAt"`
	IsRead    bool      `json:"isRead"`
	Link      string    `json:"link,omitempty"`
}

// UnmarshalJSON accepts either _id or id, and createdAt or timestamp.
func (n *Notification) UnmarshalJSON(data []byte) error {
	var raw struct {
		MongoID   string `json:"_id"`
		ID        string `json:"id"`
		Type      string `json:"type"`
		Title     string `json:"title"`
		Message   string `json:"message"`
		CreatedAt string `json:"createdAt"`
		Timestamp string `json:"timestamp"`
		IsRead    bool   `json:"isRead"`
		Link      string `json:"link"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	id := raw.MongoID
	if id == "" {
		id = raw.ID
	}
	ts := raw.CreatedAt
	if ts == "" {
		ts = raw.Timestamp
	}
	*n = Notification{
		ID:        id,
		Type:      normalizeNotificationType(raw.Type),
		Title:     raw.Title,
		Message:   raw.Message,
		Timestamp: parseTime(ts),
		IsRead:    raw.IsRead,
		Link:      raw.Link,
	}
	return nil
}

// DecodeNotification normalizes a pushed or fetched notification payload.
func DecodeNotification(raw []byte) (Notification, error) {
	var n Notification
	if err := json.Unmarshal(raw, &n); err != nil {
		return Notification{}, err
	}
	return n, nil
}

func normalizeNotificationType(t string) string {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case NotificationOrder:
		return NotificationOrder
	case NotificationProduct:
		return NotificationProduct
	case NotificationDelivery:
		return NotificationDelivery
	default:
		return NotificationOther
	}
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	if t, err := time.ParseInLocation(backendTimestampLayout, value, time.Local); err == nil {
		return t
	}
	return time.Time{}
}
