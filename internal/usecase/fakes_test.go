package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"shop/internal/domain/model"
	repo "shop/internal/repository"
)

// =====================
// In-memory store
// =====================

// memStore はテスト用のインメモリDB。
// WithinTxはスナップショット＋復元で全or無を再現し、
// トランザクション自体は1本ずつ直列に実行する（行ロックの粗い模型）。
type memStore struct {
	mu   sync.Mutex
	txMu sync.Mutex
	seq  int64

	carts       map[int64]*model.Cart
	cartItems   map[int64]*model.CartItem
	coupons     map[int64]*model.Coupon
	redemptions []model.CouponRedemption
	inventory   map[int64]*model.Inventory // variantIDで引く
	variants    map[int64]*model.ProductVariant
	images      map[int64][]model.ProductImage // productIDで引く
	orders      map[int64]*model.Order
	orderItems  map[int64]*model.OrderItem
	orderEvents []model.OrderEvent
	payments    map[int64]*model.Payment
	payEvents   map[int64]*model.PaymentEvent
	payEventIdx map[string]int64 // provider:event_id → id
	addresses   map[int64]*model.Address
	methods     map[int64]*model.ShippingMethod
	returns     map[int64]*model.ReturnRequest
}

func newMemStore() *memStore {
	return &memStore{
		carts:       map[int64]*model.Cart{},
		cartItems:   map[int64]*model.CartItem{},
		coupons:     map[int64]*model.Coupon{},
		inventory:   map[int64]*model.Inventory{},
		variants:    map[int64]*model.ProductVariant{},
		images:      map[int64][]model.ProductImage{},
		orders:      map[int64]*model.Order{},
		orderItems:  map[int64]*model.OrderItem{},
		payments:    map[int64]*model.Payment{},
		payEvents:   map[int64]*model.PaymentEvent{},
		payEventIdx: map[string]int64{},
		addresses:   map[int64]*model.Address{},
		methods:     map[int64]*model.ShippingMethod{},
		returns:     map[int64]*model.ReturnRequest{},
	}
}

func (s *memStore) nextID() int64 {
	s.seq++
	return s.seq
}

type memSnapshot struct {
	seq         int64
	carts       map[int64]model.Cart
	cartItems   map[int64]model.CartItem
	coupons     map[int64]model.Coupon
	redemptions []model.CouponRedemption
	inventory   map[int64]model.Inventory
	orders      map[int64]model.Order
	orderItems  map[int64]model.OrderItem
	orderEvents []model.OrderEvent
	payments    map[int64]model.Payment
	payEvents   map[int64]model.PaymentEvent
	payEventIdx map[string]int64
	addresses   map[int64]model.Address
	returns     map[int64]model.ReturnRequest
}

func (s *memStore) snapshot() memSnapshot {
	snap := memSnapshot{
		seq:         s.seq,
		carts:       map[int64]model.Cart{},
		cartItems:   map[int64]model.CartItem{},
		coupons:     map[int64]model.Coupon{},
		redemptions: append([]model.CouponRedemption(nil), s.redemptions...),
		inventory:   map[int64]model.Inventory{},
		orders:      map[int64]model.Order{},
		orderItems:  map[int64]model.OrderItem{},
		orderEvents: append([]model.OrderEvent(nil), s.orderEvents...),
		payments:    map[int64]model.Payment{},
		payEvents:   map[int64]model.PaymentEvent{},
		payEventIdx: map[string]int64{},
		addresses:   map[int64]model.Address{},
		returns:     map[int64]model.ReturnRequest{},
	}
	for k, v := range s.carts {
		snap.carts[k] = *v
	}
	for k, v := range s.cartItems {
		snap.cartItems[k] = *v
	}
	for k, v := range s.coupons {
		snap.coupons[k] = *v
	}
	for k, v := range s.inventory {
		snap.inventory[k] = *v
	}
	for k, v := range s.orders {
		snap.orders[k] = *v
	}
	for k, v := range s.orderItems {
		snap.orderItems[k] = *v
	}
	for k, v := range s.payments {
		snap.payments[k] = *v
	}
	for k, v := range s.payEvents {
		snap.payEvents[k] = *v
	}
	for k, v := range s.payEventIdx {
		snap.payEventIdx[k] = v
	}
	for k, v := range s.addresses {
		snap.addresses[k] = *v
	}
	for k, v := range s.returns {
		snap.returns[k] = *v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.seq = snap.seq
	s.carts = map[int64]*model.Cart{}
	for k := range snap.carts {
		v := snap.carts[k]
		s.carts[k] = &v
	}
	s.cartItems = map[int64]*model.CartItem{}
	for k := range snap.cartItems {
		v := snap.cartItems[k]
		s.cartItems[k] = &v
	}
	s.coupons = map[int64]*model.Coupon{}
	for k := range snap.coupons {
		v := snap.coupons[k]
		s.coupons[k] = &v
	}
	s.redemptions = snap.redemptions
	s.inventory = map[int64]*model.Inventory{}
	for k := range snap.inventory {
		v := snap.inventory[k]
		s.inventory[k] = &v
	}
	s.orders = map[int64]*model.Order{}
	for k := range snap.orders {
		v := snap.orders[k]
		s.orders[k] = &v
	}
	s.orderItems = map[int64]*model.OrderItem{}
	for k := range snap.orderItems {
		v := snap.orderItems[k]
		s.orderItems[k] = &v
	}
	s.orderEvents = snap.orderEvents
	s.payments = map[int64]*model.Payment{}
	for k := range snap.payments {
		v := snap.payments[k]
		s.payments[k] = &v
	}
	s.payEvents = map[int64]*model.PaymentEvent{}
	for k := range snap.payEvents {
		v := snap.payEvents[k]
		s.payEvents[k] = &v
	}
	s.payEventIdx = snap.payEventIdx
	s.addresses = map[int64]*model.Address{}
	for k := range snap.addresses {
		v := snap.addresses[k]
		s.addresses[k] = &v
	}
	s.returns = map[int64]*model.ReturnRequest{}
	for k := range snap.returns {
		v := snap.returns[k]
		s.returns[k] = &v
	}
}

// =====================
// TransactionManager
// =====================

type memTxManager struct {
	s *memStore
}

func (m *memTxManager) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	m.s.txMu.Lock()
	defer m.s.txMu.Unlock()

	m.s.mu.Lock()
	snap := m.s.snapshot()
	m.s.mu.Unlock()

	if err := fn(&memTxRepos{s: m.s}); err != nil {
		m.s.mu.Lock()
		m.s.restore(snap)
		m.s.mu.Unlock()
		return err
	}
	return nil
}

type memTxRepos struct {
	s *memStore
}

func (r *memTxRepos) Orders() repo.OrderRepository                   { return &memOrderRepo{r.s} }
func (r *memTxRepos) OrderItems() repo.OrderItemRepository           { return &memOrderItemRepo{r.s} }
func (r *memTxRepos) OrderEvents() repo.OrderEventRepository         { return &memOrderEventRepo{r.s} }
func (r *memTxRepos) Carts() repo.CartRepository                     { return &memCartRepo{r.s} }
func (r *memTxRepos) CartItems() repo.CartItemRepository             { return &memCartItemRepo{r.s} }
func (r *memTxRepos) Coupons() repo.CouponRepository                 { return &memCouponRepo{r.s} }
func (r *memTxRepos) Inventory() repo.InventoryRepository            { return &memInventoryRepo{r.s} }
func (r *memTxRepos) Payments() repo.PaymentRepository               { return &memPaymentRepo{r.s} }
func (r *memTxRepos) PaymentEvents() repo.PaymentEventRepository     { return &memPaymentEventRepo{r.s} }
func (r *memTxRepos) Addresses() repo.AddressRepository              { return &memAddressRepo{r.s} }
func (r *memTxRepos) ShippingMethods() repo.ShippingMethodRepository { return &memShippingRepo{r.s} }
func (r *memTxRepos) Variants() repo.VariantRepository               { return &memVariantRepo{r.s} }
func (r *memTxRepos) Returns() repo.ReturnRepository                 { return &memReturnRepo{r.s} }

// =====================
// Cart
// =====================

type memCartRepo struct{ s *memStore }

func (r *memCartRepo) FindByID(ctx context.Context, cartID int64) (model.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c, ok := r.s.carts[cartID]; ok {
		return *c, nil
	}
	return model.Cart{}, repo.ErrNotFound
}

func (r *memCartRepo) FindByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.carts {
		if c.UserID != nil && *c.UserID == userID {
			return *c, nil
		}
	}
	return model.Cart{}, repo.ErrNotFound
}

func (r *memCartRepo) FindBySessionID(ctx context.Context, sessionID string) (model.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.carts {
		if c.UserID == nil && c.SessionID == sessionID {
			return *c, nil
		}
	}
	return model.Cart{}, repo.ErrNotFound
}

func (r *memCartRepo) Create(ctx context.Context, cart model.Cart) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cart.ID = r.s.nextID()
	now := time.Now()
	cart.CreatedAt = now
	cart.UpdatedAt = now
	r.s.carts[cart.ID] = &cart
	return cart.ID, nil
}

func (r *memCartRepo) FindByIDForUpdate(ctx context.Context, cartID int64) (model.Cart, error) {
	return r.FindByID(ctx, cartID)
}

func (r *memCartRepo) AssignUser(ctx context.Context, cartID int64, userID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.carts[cartID]
	if !ok {
		return repo.ErrNotFound
	}
	c.UserID = &userID
	c.UpdatedAt = time.Now()
	return nil
}

func (r *memCartRepo) SetCoupon(ctx context.Context, cartID int64, couponID *int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.carts[cartID]
	if !ok {
		return repo.ErrNotFound
	}
	c.CouponID = couponID
	c.UpdatedAt = time.Now()
	return nil
}

func (r *memCartRepo) Touch(ctx context.Context, cartID int64, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.carts[cartID]
	if !ok {
		return repo.ErrNotFound
	}
	c.UpdatedAt = now
	return nil
}

func (r *memCartRepo) Delete(ctx context.Context, cartID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.carts[cartID]; !ok {
		return repo.ErrNotFound
	}
	delete(r.s.carts, cartID)
	return nil
}

func (r *memCartRepo) DeleteStaleEmpty(ctx context.Context, untouchedSince time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, c := range r.s.carts {
		if !c.UpdatedAt.Before(untouchedSince) {
			continue
		}
		empty := true
		for _, it := range r.s.cartItems {
			if it.CartID == id {
				empty = false
				break
			}
		}
		if empty {
			delete(r.s.carts, id)
			n++
		}
	}
	return n, nil
}

// =====================
// CartItem
// =====================

type memCartItemRepo struct{ s *memStore }

func (r *memCartItemRepo) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.CartItem
	for _, it := range r.s.cartItems {
		if it.CartID == cartID {
			out = append(out, *it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memCartItemRepo) ListByCartIDForUpdate(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	return r.ListByCartID(ctx, cartID)
}

func (r *memCartItemRepo) FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if it, ok := r.s.cartItems[cartItemID]; ok {
		return *it, nil
	}
	return model.CartItem{}, repo.ErrNotFound
}

func (r *memCartItemRepo) FindByCartAndVariant(ctx context.Context, cartID int64, variantID int64) (model.CartItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, it := range r.s.cartItems {
		if it.CartID == cartID && it.VariantID == variantID {
			return *it, nil
		}
	}
	return model.CartItem{}, repo.ErrNotFound
}

func (r *memCartItemRepo) Upsert(ctx context.Context, item model.CartItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, it := range r.s.cartItems {
		if it.CartID == item.CartID && it.VariantID == item.VariantID {
			it.Qty = item.Qty
			it.UpdatedAt = time.Now()
			return nil
		}
	}
	item.ID = r.s.nextID()
	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now
	r.s.cartItems[item.ID] = &item
	return nil
}

func (r *memCartItemRepo) UpdateQty(ctx context.Context, cartItemID int64, qty int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.s.cartItems[cartItemID]
	if !ok {
		return repo.ErrNotFound
	}
	it.Qty = qty
	it.UpdatedAt = time.Now()
	return nil
}

func (r *memCartItemRepo) DeleteByID(ctx context.Context, cartItemID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.cartItems[cartItemID]; !ok {
		return repo.ErrNotFound
	}
	delete(r.s.cartItems, cartItemID)
	return nil
}

func (r *memCartItemRepo) DeleteByCartID(ctx context.Context, cartID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, it := range r.s.cartItems {
		if it.CartID == cartID {
			delete(r.s.cartItems, id)
		}
	}
	return nil
}

// =====================
// Coupon
// =====================

type memCouponRepo struct{ s *memStore }

func (r *memCouponRepo) FindByID(ctx context.Context, couponID int64) (model.Coupon, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c, ok := r.s.coupons[couponID]; ok {
		return *c, nil
	}
	return model.Coupon{}, repo.ErrNotFound
}

func (r *memCouponRepo) FindByCode(ctx context.Context, code string) (model.Coupon, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	code = model.NormalizeCouponCode(code)
	for _, c := range r.s.coupons {
		if c.Code == code {
			return *c, nil
		}
	}
	return model.Coupon{}, repo.ErrNotFound
}

// ガード付きUPDATEと同じ意味: 上限到達なら加算せずfalse
func (r *memCouponRepo) Redeem(ctx context.Context, couponID int64, email string, orderID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.coupons[couponID]
	if !ok {
		return false, nil
	}
	if c.MaxUses != nil && c.UsedCount >= *c.MaxUses {
		return false, nil
	}
	c.UsedCount++
	r.s.redemptions = append(r.s.redemptions, model.CouponRedemption{
		ID:       r.s.nextID(),
		CouponID: couponID,
		Email:    email,
		OrderID:  orderID,
		UsedAt:   time.Now(),
	})
	return true, nil
}

// =====================
// Inventory
// =====================

type memInventoryRepo struct{ s *memStore }

func (r *memInventoryRepo) FindByVariantIDs(ctx context.Context, variantIDs []int64) ([]model.Inventory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Inventory
	for _, id := range variantIDs {
		if inv, ok := r.s.inventory[id]; ok {
			out = append(out, *inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VariantID < out[j].VariantID })
	return out, nil
}

func (r *memInventoryRepo) LockByVariantIDs(ctx context.Context, variantIDs []int64) ([]model.Inventory, error) {
	return r.FindByVariantIDs(ctx, variantIDs)
}

func (r *memInventoryRepo) DecreaseStockIfAvailable(ctx context.Context, variantID int64, qty int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.inventory[variantID]
	if !ok || inv.QtyAvailable < qty {
		return false, nil
	}
	inv.QtyAvailable -= qty
	return true, nil
}

// =====================
// Order / OrderItem / OrderEvent
// =====================

type memOrderRepo struct{ s *memStore }

func (r *memOrderRepo) Create(ctx context.Context, order model.Order) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	order.ID = r.s.nextID()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	order.UpdatedAt = order.CreatedAt
	r.s.orders[order.ID] = &order
	return order.ID, nil
}

func (r *memOrderRepo) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if o, ok := r.s.orders[orderID]; ok {
		out := *o
		if a, ok := r.s.addresses[o.ShippingAddressID]; ok {
			out.ShippingAddress = *a
		}
		return out, nil
	}
	return model.Order{}, repo.ErrNotFound
}

func (r *memOrderRepo) FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	return r.FindByID(ctx, orderID)
}

func (r *memOrderRepo) ListByEmail(ctx context.Context, email string) ([]model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Order
	for _, o := range r.s.orders {
		if o.Email == email {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *memOrderRepo) FindByIDAndEmail(ctx context.Context, orderID int64, email string) (model.Order, error) {
	o, err := r.FindByID(ctx, orderID)
	if err != nil || o.Email != email {
		return model.Order{}, repo.ErrNotFound
	}
	return o, nil
}

func (r *memOrderRepo) Save(ctx context.Context, order model.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[order.ID]
	if !ok {
		return repo.ErrNotFound
	}
	o.Status = order.Status
	o.PaymentConfirmedAt = order.PaymentConfirmedAt
	o.ShippedAt = order.ShippedAt
	o.DeliveredAt = order.DeliveredAt
	o.CancelledAt = order.CancelledAt
	o.PaymentProvider = order.PaymentProvider
	o.PaymentReference = order.PaymentReference
	o.TrackingNumber = order.TrackingNumber
	o.RefundTotal = order.RefundTotal
	o.UpdatedAt = order.UpdatedAt
	return nil
}

type memOrderItemRepo struct{ s *memStore }

func (r *memOrderItemRepo) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range items {
		it := items[i]
		it.ID = r.s.nextID()
		it.OrderID = orderID
		it.CreatedAt = time.Now()
		r.s.orderItems[it.ID] = &it
	}
	return nil
}

func (r *memOrderItemRepo) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.OrderItem
	for _, it := range r.s.orderItems {
		if it.OrderID == orderID {
			out = append(out, *it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memOrderItemRepo) FindByID(ctx context.Context, orderItemID int64) (model.OrderItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if it, ok := r.s.orderItems[orderItemID]; ok {
		return *it, nil
	}
	return model.OrderItem{}, repo.ErrNotFound
}

type memOrderEventRepo struct{ s *memStore }

func (r *memOrderEventRepo) Append(ctx context.Context, event model.OrderEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	event.ID = r.s.nextID()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	r.s.orderEvents = append(r.s.orderEvents, event)
	return nil
}

func (r *memOrderEventRepo) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.OrderEvent
	for _, ev := range r.s.orderEvents {
		if ev.OrderID == orderID {
			out = append(out, ev)
		}
	}
	return out, nil
}

// =====================
// Payment / PaymentEvent
// =====================

type memPaymentRepo struct{ s *memStore }

func (r *memPaymentRepo) Create(ctx context.Context, p model.Payment) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p.ID = r.s.nextID()
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	r.s.payments[p.ID] = &p
	return p.ID, nil
}

func (r *memPaymentRepo) FindByID(ctx context.Context, paymentID int64) (model.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.payments[paymentID]; ok {
		return *p, nil
	}
	return model.Payment{}, repo.ErrNotFound
}

func (r *memPaymentRepo) FindByProviderOrderID(ctx context.Context, provider string, providerOrderID string) (model.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.payments {
		if p.Provider == provider && p.ProviderOrderID == providerOrderID {
			return *p, nil
		}
	}
	return model.Payment{}, repo.ErrNotFound
}

func (r *memPaymentRepo) FindByProviderOrderIDForUpdate(ctx context.Context, provider string, providerOrderID string) (model.Payment, error) {
	return r.FindByProviderOrderID(ctx, provider, providerOrderID)
}

func (r *memPaymentRepo) FindCapturedForUpdate(ctx context.Context, orderID int64, providerPaymentID string) (model.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var found *model.Payment
	for _, p := range r.s.payments {
		if p.OrderID != orderID {
			continue
		}
		if p.Status != model.PaymentStatusCaptured && p.Status != model.PaymentStatusPartialRefunded {
			continue
		}
		if providerPaymentID != "" && (p.ProviderPaymentID == nil || *p.ProviderPaymentID != providerPaymentID) {
			continue
		}
		if found == nil || p.ID > found.ID {
			found = p
		}
	}
	if found == nil {
		return model.Payment{}, repo.ErrNotFound
	}
	return *found, nil
}

func (r *memPaymentRepo) Save(ctx context.Context, p model.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.payments[p.ID]
	if !ok {
		return repo.ErrNotFound
	}
	cur.Status = p.Status
	cur.ProviderPaymentID = p.ProviderPaymentID
	cur.AmountPaise = p.AmountPaise
	cur.Currency = p.Currency
	cur.RefundID = p.RefundID
	cur.RefundAmountPaise = p.RefundAmountPaise
	cur.UpdatedAt = time.Now()
	return nil
}

type memPaymentEventRepo struct{ s *memStore }

func (r *memPaymentEventRepo) Insert(ctx context.Context, event model.PaymentEvent) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := event.Provider + ":" + event.EventID
	if _, ok := r.s.payEventIdx[key]; ok {
		return 0, repo.ErrDuplicate
	}
	event.ID = r.s.nextID()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	r.s.payEvents[event.ID] = &event
	r.s.payEventIdx[key] = event.ID
	return event.ID, nil
}

func (r *memPaymentEventRepo) AttachPayment(ctx context.Context, eventID int64, paymentID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ev, ok := r.s.payEvents[eventID]
	if !ok {
		return repo.ErrNotFound
	}
	ev.PaymentID = &paymentID
	return nil
}

// =====================
// Address / ShippingMethod / Variant / Return
// =====================

type memAddressRepo struct{ s *memStore }

func (r *memAddressRepo) Create(ctx context.Context, address model.Address) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	address.ID = r.s.nextID()
	address.CreatedAt = time.Now()
	r.s.addresses[address.ID] = &address
	return address.ID, nil
}

func (r *memAddressRepo) FindByID(ctx context.Context, addressID int64) (model.Address, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if a, ok := r.s.addresses[addressID]; ok {
		return *a, nil
	}
	return model.Address{}, repo.ErrNotFound
}

type memShippingRepo struct{ s *memStore }

func (r *memShippingRepo) FindActiveByID(ctx context.Context, methodID int64) (model.ShippingMethod, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if m, ok := r.s.methods[methodID]; ok && m.IsActive {
		return *m, nil
	}
	return model.ShippingMethod{}, repo.ErrNotFound
}

func (r *memShippingRepo) ListActive(ctx context.Context) ([]model.ShippingMethod, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.ShippingMethod
	for _, m := range r.s.methods {
		if m.IsActive {
			out = append(out, *m)
		}
	}
	return out, nil
}

type memVariantRepo struct{ s *memStore }

func (r *memVariantRepo) FindByID(ctx context.Context, variantID int64) (model.ProductVariant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if v, ok := r.s.variants[variantID]; ok {
		return *v, nil
	}
	return model.ProductVariant{}, repo.ErrNotFound
}

func (r *memVariantRepo) FindByIDs(ctx context.Context, variantIDs []int64) ([]model.ProductVariant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.ProductVariant
	for _, id := range variantIDs {
		if v, ok := r.s.variants[id]; ok {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (r *memVariantRepo) FindPrimaryImage(ctx context.Context, productID int64) (model.ProductImage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, img := range r.s.images[productID] {
		if img.IsPrimary {
			return img, nil
		}
	}
	return model.ProductImage{}, repo.ErrNotFound
}

func (r *memVariantRepo) FindFirstImage(ctx context.Context, productID int64) (model.ProductImage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	imgs := r.s.images[productID]
	if len(imgs) == 0 {
		return model.ProductImage{}, repo.ErrNotFound
	}
	best := imgs[0]
	for _, img := range imgs[1:] {
		if img.Sort < best.Sort {
			best = img
		}
	}
	return best, nil
}

type memReturnRepo struct{ s *memStore }

func (r *memReturnRepo) Create(ctx context.Context, rr model.ReturnRequest) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rr.ID = r.s.nextID()
	if rr.CreatedAt.IsZero() {
		rr.CreatedAt = time.Now()
	}
	r.s.returns[rr.ID] = &rr
	return rr.ID, nil
}

func (r *memReturnRepo) ListByOrderID(ctx context.Context, orderID int64) ([]model.ReturnRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.ReturnRequest
	for _, rr := range r.s.returns {
		it, ok := r.s.orderItems[rr.OrderItemID]
		if ok && it.OrderID == orderID {
			out = append(out, *rr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}
