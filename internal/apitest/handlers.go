package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/five82/shopaura/internal/api"
)

const (
	shippingFee           = 50
	freeShippingThreshold = 500
)

// --- auth ------------------------------------------------------------------

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[strings.ToLower(strings.TrimSpace(body.Email))]
	if !ok || acc.password != body.Password {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	s.startSession(w, acc.user.ID)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": acc.user})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[email]; exists {
		writeError(w, http.StatusBadRequest, "User already exists")
		return
	}
	role := body.Role
	if role == "" {
		role = api.RoleBuyer
	}
	u := s.addUserLocked(body.Name, email, body.Password, role)
	s.startSession(w, u.ID)
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "user": u})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.sessionUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.userByIDLocked(userID)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "user": acc.user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		s.mu.Lock()
		delete(s.sessions, cookie.Value)
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// --- catalog ---------------------------------------------------------------

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": s.categories})
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = 12
	}
	search := strings.ToLower(q.Get("search"))
	category := q.Get("category")

	s.mu.Lock()
	var matched []api.Product
	for _, id := range s.productOrder {
		p := s.products[id]
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		if category != "" && !inCategory(p, category) {
			continue
		}
		matched = append(matched, p)
	}
	s.mu.Unlock()

	total := len(matched)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	pages := int(math.Ceil(float64(total) / float64(limit)))
	if pages < 1 {
		pages = 1
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"products":   matched[start:end],
			"total":      total,
			"totalPages": pages,
		},
	})
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	userID := currentUser(r)
	s.mu.Lock()
	p, ok := s.products[id]
	if ok {
		p.IsHearted = containsString(s.wishlists[userID], id)
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "product": p})
}

func (s *Server) handlePublicProduct(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	p, ok := s.products[chi.URLParam(r, "id")]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "product": p})
}

// inCategory matches the product's category reference by id or slug.
func inCategory(p api.Product, category string) bool {
	var ref api.Ref
	if err := json.Unmarshal(p.Category, &ref); err != nil {
		return false
	}
	return ref.ID == category || ref.Slug == category
}

func (s *Server) handleReviews(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reviews := s.reviews[chi.URLParam(r, "id")]
	if reviews == nil {
		reviews = []api.Review{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "reviews": reviews})
}

// --- cart ------------------------------------------------------------------

func (s *Server) cartItemsLocked(userID string) []api.CartItem {
	items := make([]api.CartItem, 0, len(s.carts[userID]))
	for _, line := range s.carts[userID] {
		p := s.products[line.productID]
		items = append(items, api.CartItem{
			Product:    p,
			Quantity:   line.quantity,
			Price:      p.Price,
			FinalPrice: p.EffectivePrice(),
		})
	}
	return items
}

func (s *Server) writeCartLocked(w http.ResponseWriter, userID string) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"cart":    map[string]any{"items": s.cartItemsLocked(userID)},
	})
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeCartLocked(w, currentUser(r))
}

func (s *Server) handleAddCart(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	}
	if err := decodeBody(r, &body); err != nil || body.ProductID == "" {
		writeError(w, http.StatusBadRequest, "Product ID is required")
		return
	}
	if body.Quantity < 1 {
		body.Quantity = 1
	}
	userID := currentUser(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[body.ProductID]
	if !ok {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	if p.Stock <= 0 {
		writeError(w, http.StatusBadRequest, "Product is out of stock")
		return
	}
	lines := s.carts[userID]
	for i := range lines {
		if lines[i].productID == body.ProductID {
			next := lines[i].quantity + body.Quantity
			if next > p.Stock {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("Only %d items available in stock", p.Stock))
				return
			}
			lines[i].quantity = next
			s.writeCartLocked(w, userID)
			return
		}
	}
	if body.Quantity > p.Stock {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Only %d items available in stock", p.Stock))
		return
	}
	s.carts[userID] = append(lines, cartLine{productID: body.ProductID, quantity: body.Quantity})
	s.writeCartLocked(w, userID)
}

func (s *Server) handleUpdateCart(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Quantity int `json:"quantity"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Quantity is required")
		return
	}
	productID := chi.URLParam(r, "productID")
	userID := currentUser(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.products[productID]
	if body.Quantity > p.Stock {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Only %d items available in stock", p.Stock))
		return
	}
	lines := s.carts[userID]
	for i := range lines {
		if lines[i].productID != productID {
			continue
		}
		if body.Quantity < 1 {
			s.carts[userID] = append(lines[:i], lines[i+1:]...)
		} else {
			lines[i].quantity = body.Quantity
		}
		s.writeCartLocked(w, userID)
		return
	}
	writeError(w, http.StatusNotFound, "Item not found in cart")
}

func (s *Server) handleRemoveCart(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	userID := currentUser(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := s.carts[userID]
	for i := range lines {
		if lines[i].productID == productID {
			s.carts[userID] = append(lines[:i], lines[i+1:]...)
			break
		}
	}
	s.writeCartLocked(w, userID)
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, userID)
	s.writeCartLocked(w, userID)
}

// --- wishlist --------------------------------------------------------------

func (s *Server) handleGetWishlist(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]map[string]any, 0, len(s.wishlists[userID]))
	for _, id := range s.wishlists[userID] {
		entries = append(entries, map[string]any{"product": s.products[id], "addedAt": time.Now().UTC()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "wishlist": entries})
}

func (s *Server) handleAddWishlist(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	userID := currentUser(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[productID]; !ok {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	if !containsString(s.wishlists[userID], productID) {
		s.wishlists[userID] = append(s.wishlists[userID], productID)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "inWishlist": true})
}

func (s *Server) handleRemoveWishlist(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	userID := currentUser(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wishlists[userID] = removeString(s.wishlists[userID], productID)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "inWishlist": false})
}

// --- addresses -------------------------------------------------------------

func (s *Server) handleListAddresses(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "addresses": s.addresses[currentUser(r)]})
}

func (s *Server) handleAddAddress(w http.ResponseWriter, r *http.Request) {
	var addr api.Address
	if err := decodeBody(r, &addr); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid address")
		return
	}
	if strings.TrimSpace(addr.FullName) == "" || strings.TrimSpace(addr.Pincode) == "" {
		writeError(w, http.StatusBadRequest, "Full name and pincode are required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := s.addAddressLocked(currentUser(r), addr)
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "address": saved})
}

func (s *Server) handleUpdateAddress(w http.ResponseWriter, r *http.Request) {
	var addr api.Address
	if err := decodeBody(r, &addr); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid address")
		return
	}
	id := chi.URLParam(r, "id")
	userID := currentUser(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.addresses[userID] {
		if existing.ID == id {
			addr.ID = id
			addr.IsDefault = existing.IsDefault
			s.addresses[userID][i] = addr
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "address": addr})
			return
		}
	}
	writeError(w, http.StatusNotFound, "Address not found")
}

func (s *Server) handleDeleteAddress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	userID := currentUser(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.addresses[userID]
	for i := range list {
		if list[i].ID == id {
			s.addresses[userID] = append(list[:i], list[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
			return
		}
	}
	writeError(w, http.StatusNotFound, "Address not found")
}

func (s *Server) handleDefaultAddress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	userID := currentUser(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	for i := range s.addresses[userID] {
		s.addresses[userID][i].IsDefault = s.addresses[userID][i].ID == id
		found = found || s.addresses[userID][i].IsDefault
	}
	if !found {
		writeError(w, http.StatusNotFound, "Address not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// --- checkout and payment --------------------------------------------------

func couponDiscount(c api.Coupon, subtotal float64) float64 {
	var d float64
	switch c.DiscountType {
	case "percentage":
		d = subtotal * c.DiscountValue / 100
	default:
		d = c.DiscountValue
	}
	return math.Round(d*100) / 100
}

func (s *Server) handleValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code      string  `json:"code"`
		CartTotal float64 `json:"cartTotal"`
	}
	if err := decodeBody(r, &body); err != nil || strings.TrimSpace(body.Code) == "" {
		writeError(w, http.StatusBadRequest, "Coupon code is required")
		return
	}
	s.mu.Lock()
	c, ok := s.coupons[strings.ToUpper(strings.TrimSpace(body.Code))]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid coupon code")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"coupon":   c,
		"discount": couponDiscount(c, body.CartTotal),
	})
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req api.OrderRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid order request")
		return
	}
	userID := currentUser(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.cartItemsLocked(userID)
	if len(items) == 0 {
		writeError(w, http.StatusBadRequest, "Cart is empty")
		return
	}
	var shipping *api.Address
	for _, a := range s.addresses[userID] {
		if a.ID == req.AddressID {
			shipping = &a
		}
	}
	if shipping == nil {
		writeError(w, http.StatusBadRequest, "Shipping address not found")
		return
	}

	var subtotal float64
	orderItems := make([]api.OrderItem, 0, len(items))
	for _, it := range items {
		subtotal += it.FinalPrice * float64(it.Quantity)
		orderItems = append(orderItems, api.OrderItem{
			Product:  api.Ref{ID: it.Product.ID},
			Name:     it.Product.Name,
			Quantity: it.Quantity,
			Price:    it.FinalPrice,
		})
	}
	var discount float64
	if c, ok := s.coupons[strings.ToUpper(req.CouponCode)]; ok {
		discount = couponDiscount(c, subtotal)
	}
	shippingCharge := float64(shippingFee)
	if subtotal >= freeShippingThreshold {
		shippingCharge = 0
	}
	total := math.Max(0, subtotal+shippingCharge-discount)

	s.orderSeq++
	order := api.Order{
		ID:              uuid.NewString(),
		OrderNumber:     fmt.Sprintf("ORD%06d", s.orderSeq),
		Status:          "pending",
		PaymentMethod:   req.PaymentMethod,
		PaymentStatus:   "pending",
		Items:           orderItems,
		Subtotal:        subtotal,
		Discount:        discount,
		ShippingCharge:  shippingCharge,
		TotalAmount:     total,
		ShippingAddress: shipping,
		CreatedAt:       time.Now().UTC().Format(time.RFC3339),
	}
	if req.PaymentMethod == api.PaymentCOD {
		order.Status = "confirmed"
	}
	s.orders[userID] = append([]api.Order{order}, s.orders[userID]...)

	resp := map[string]any{"success": true, "order": order}
	if req.PaymentMethod == api.PaymentOnline {
		resp["razorpayOrder"] = api.ProviderOrder{
			ID:       "order_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14],
			Amount:   int64(math.Round(total * 100)),
			Currency: "INR",
		}
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProviderOrderID string `json:"razorpay_order_id"`
		PaymentID       string `json:"razorpay_payment_id"`
		Signature       string `json:"razorpay_signature"`
		OrderID         string `json:"orderId"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid verification payload")
		return
	}
	if body.Signature != Signature(body.ProviderOrderID, body.PaymentID) {
		writeError(w, http.StatusBadRequest, "Invalid payment signature")
		return
	}
	userID := currentUser(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.orders[userID] {
		if s.orders[userID][i].ID == body.OrderID {
			s.orders[userID][i].PaymentStatus = "paid"
			s.orders[userID][i].Status = "confirmed"
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handlePaymentFailure(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProviderOrderID string `json:"razorpay_order_id"`
		Error           string `json:"error"`
	}
	_ = decodeBody(r, &body)
	s.mu.Lock()
	s.failures = append(s.failures, paymentFailure{ProviderOrderID: body.ProviderOrderID, Reason: body.Error})
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// --- orders ----------------------------------------------------------------

func (s *Server) findOrderLocked(userID, id string) (api.Order, bool) {
	for _, o := range s.orders[userID] {
		if o.ID == id {
			return o, true
		}
	}
	return api.Order{}, false
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "orders": s.orders[currentUser(r)]})
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.findOrderLocked(currentUser(r), chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Order not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "order": o})
}

func (s *Server) handleTrackOrder(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.findOrderLocked(currentUser(r), chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Order not found")
		return
	}
	tracking := api.Tracking{
		CurrentStatus: o.Status,
		Order:         &o,
		History:       []api.TrackingEvent{{Status: o.Status, Timestamp: o.CreatedAt}},
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "tracking": tracking})
}

// --- profile ---------------------------------------------------------------

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var body api.ProfileUpdate
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid profile")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.userByIDLocked(currentUser(r))
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if body.Name != "" {
		acc.user.Name = body.Name
	}
	if body.Phone != "" {
		acc.user.Phone = body.Phone
	}
	acc.user.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": acc.user})
}

func (s *Server) handleUploadPicture(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("profilePicture")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Profile picture is required")
		return
	}
	defer func() { _ = file.Close() }()
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unreadable upload")
		return
	}
	userID := currentUser(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.userByIDLocked(userID)
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	s.avatars[userID] = data
	acc.user.ProfilePicture = &api.Image{URL: "/uploads/" + header.Filename, PublicID: uuid.NewString()}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": acc.user})
}

func (s *Server) handleDeletePicture(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.userByIDLocked(userID)
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	delete(s.avatars, userID)
	acc.user.ProfilePicture = nil
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": acc.user})
}

// --- notifications ---------------------------------------------------------

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = 20
	}
	unreadOnly := q.Get("unreadOnly") == "true"

	s.mu.Lock()
	var list []api.Notification
	for _, n := range s.notifications[currentUser(r)] {
		if unreadOnly && n.IsRead {
			continue
		}
		list = append(list, n)
	}
	s.mu.Unlock()

	start := (page - 1) * limit
	if start > len(list) {
		start = len(list)
	}
	end := start + limit
	if end > len(list) {
		end = len(list)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "notifications": list[start:end]})
}

func (s *Server) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, item := range s.notifications[currentUser(r)] {
		if !item.IsRead {
			n++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "unreadCount": n})
}

func (s *Server) handleReadOne(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	userID := currentUser(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications[userID] {
		if s.notifications[userID][i].ID == id {
			s.notifications[userID][i].IsRead = true
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
			return
		}
	}
	writeError(w, http.StatusNotFound, "Notification not found")
}

func (s *Server) handleReadAll(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications[userID] {
		s.notifications[userID][i].IsRead = true
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	userID := currentUser(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.notifications[userID]
	for i := range list {
		if list[i].ID == id {
			s.notifications[userID] = append(list[:i], list[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
			return
		}
	}
	writeError(w, http.StatusNotFound, "Notification not found")
}

func (s *Server) handleClearNotifications(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.notifications, currentUser(r))
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func removeString(list []string, v string) []string {
	out := list[:0]
	for _, item := range list {
		if item != v {
			out = append(out, item)
		}
	}
	return out
}
