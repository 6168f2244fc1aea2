package service

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kiwari-pos/order-engine/internal/database"
	"github.com/kiwari-pos/order-engine/internal/enum"
	"github.com/kiwari-pos/order-engine/internal/events"
)

// --- In-memory store with transaction snapshots ---

type fakeState struct {
	stores     map[uuid.UUID]database.Store
	customers  map[uuid.UUID]database.Customer
	products   map[uuid.UUID]database.StoreProduct
	combos     map[uuid.UUID]database.Combo
	comboItems []database.ComboItem
	orders     map[uuid.UUID]database.Order
	items      []database.OrderItem
	addons     []database.OrderItemAddon
	tables     map[uuid.UUID]database.DiningTable
	movements  []database.StockMovement
}

func newFakeState() *fakeState {
	return &fakeState{
		stores:    map[uuid.UUID]database.Store{},
		customers: map[uuid.UUID]database.Customer{},
		products:  map[uuid.UUID]database.StoreProduct{},
		combos:    map[uuid.UUID]database.Combo{},
		orders:    map[uuid.UUID]database.Order{},
		tables:    map[uuid.UUID]database.DiningTable{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *fakeState) clone() *fakeState {
	return &fakeState{
		stores:     cloneMap(s.stores),
		customers:  cloneMap(s.customers),
		products:   cloneMap(s.products),
		combos:     cloneMap(s.combos),
		comboItems: append([]database.ComboItem(nil), s.comboItems...),
		orders:     cloneMap(s.orders),
		items:      append([]database.OrderItem(nil), s.items...),
		addons:     append([]database.OrderItemAddon(nil), s.addons...),
		tables:     cloneMap(s.tables),
		movements:  append([]database.StockMovement(nil), s.movements...),
	}
}

// fakeDB is the committed state. Begin hands out a private copy; Commit
// replaces the committed state with it.
type fakeDB struct {
	mu        sync.Mutex
	state     *fakeState
	clock     time.Time
	failOn    map[string]error
	commits   int
	rollbacks int
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		state:  newFakeState(),
		clock:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		failOn: map[string]error{},
	}
}

func (db *fakeDB) Begin(ctx context.Context) (pgx.Tx, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return &fakeTx{db: db, state: db.state.clone()}, nil
}

func (db *fakeDB) now() time.Time {
	db.clock = db.clock.Add(time.Second)
	return db.clock
}

// snapshot returns the committed state for assertions.
func (db *fakeDB) snapshot() *fakeState {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.state.clone()
}

type fakeTx struct {
	mockTx
	db    *fakeDB
	state *fakeState
	done  bool
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	if err := t.db.failOn["Commit"]; err != nil {
		return err
	}
	t.db.state = t.state
	t.db.commits++
	t.done = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.db.mu.Lock()
	t.db.rollbacks++
	t.db.mu.Unlock()
	t.done = true
	return nil
}

// mockTx implements pgx.Tx. Only Commit and Rollback are expected; the rest
// panic so accidental raw SQL is caught.
type mockTx struct{}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error          { return nil }
func (m *mockTx) Rollback(ctx context.Context) error        { return nil }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// fakeStore implements OrderStore over a transaction's private state.
type fakeStore struct {
	tx *fakeTx
}

func (f *fakeStore) st() *fakeState { return f.tx.state }

func (f *fakeStore) fail(method string) error {
	f.tx.db.mu.Lock()
	defer f.tx.db.mu.Unlock()
	return f.tx.db.failOn[method]
}

func (f *fakeStore) now() time.Time {
	f.tx.db.mu.Lock()
	defer f.tx.db.mu.Unlock()
	return f.tx.db.now()
}

func (f *fakeStore) GetStore(ctx context.Context, id uuid.UUID) (database.Store, error) {
	s, ok := f.st().stores[id]
	if !ok {
		return database.Store{}, pgx.ErrNoRows
	}
	return s, nil
}

func (f *fakeStore) GetCustomer(ctx context.Context, id uuid.UUID) (database.Customer, error) {
	c, ok := f.st().customers[id]
	if !ok {
		return database.Customer{}, pgx.ErrNoRows
	}
	return c, nil
}

func (f *fakeStore) IncrementCustomerCancellations(ctx context.Context, id uuid.UUID) (database.Customer, error) {
	c, ok := f.st().customers[id]
	if !ok {
		return database.Customer{}, pgx.ErrNoRows
	}
	c.CancellationCount++
	f.st().customers[id] = c
	return c, nil
}

func (f *fakeStore) ListStoreProductCandidates(ctx context.Context, arg database.ListStoreProductCandidatesParams) ([]database.StoreProduct, error) {
	var out []database.StoreProduct
	for _, p := range f.st().products {
		if p.StoreID == arg.StoreID && p.ProductID == arg.ProductID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if stockOf(out[i]) != stockOf(out[j]) {
			return stockOf(out[i]) > stockOf(out[j])
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})
	return out, nil
}

func (f *fakeStore) GetStoreProduct(ctx context.Context, arg database.GetStoreProductParams) (database.StoreProduct, error) {
	p, ok := f.st().products[arg.ID]
	if !ok || p.StoreID != arg.StoreID {
		return database.StoreProduct{}, pgx.ErrNoRows
	}
	return p, nil
}

func (f *fakeStore) DecrementStock(ctx context.Context, arg database.AdjustStockParams) (database.StoreProduct, error) {
	if err := f.fail("DecrementStock"); err != nil {
		return database.StoreProduct{}, err
	}
	p, ok := f.st().products[arg.ID]
	if !ok || stockOf(p) < arg.Quantity {
		return database.StoreProduct{}, pgx.ErrNoRows
	}
	p.Stock = pgtype.Int4{Int32: stockOf(p) - arg.Quantity, Valid: true}
	p.SalesCount += arg.Quantity
	f.st().products[p.ID] = p
	return p, nil
}

func (f *fakeStore) IncrementStock(ctx context.Context, arg database.AdjustStockParams) (database.StoreProduct, error) {
	p, ok := f.st().products[arg.ID]
	if !ok {
		return database.StoreProduct{}, pgx.ErrNoRows
	}
	p.Stock = pgtype.Int4{Int32: stockOf(p) + arg.Quantity, Valid: true}
	p.SalesCount = max(p.SalesCount-arg.Quantity, 0)
	f.st().products[p.ID] = p
	return p, nil
}

func (f *fakeStore) CreateStockMovement(ctx context.Context, arg database.CreateStockMovementParams) (database.StockMovement, error) {
	m := database.StockMovement{
		ID:             uuid.New(),
		StoreProductID: arg.StoreProductID,
		OrderID:        arg.OrderID,
		OrderItemID:    arg.OrderItemID,
		Kind:           arg.Kind,
		Delta:          arg.Delta,
		StockAfter:     arg.StockAfter,
		CreatedAt:      f.now(),
	}
	f.st().movements = append(f.st().movements, m)
	return m, nil
}

func (f *fakeStore) ListStockMovementsByOrderItem(ctx context.Context, arg database.ListStockMovementsByOrderItemParams) ([]database.StockMovement, error) {
	var out []database.StockMovement
	for _, m := range f.st().movements {
		if m.OrderItemID == arg.OrderItemID && m.Kind == arg.Kind {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) GetCombo(ctx context.Context, arg database.GetComboParams) (database.Combo, error) {
	c, ok := f.st().combos[arg.ID]
	if !ok || c.StoreID != arg.StoreID {
		return database.Combo{}, pgx.ErrNoRows
	}
	return c, nil
}

func (f *fakeStore) ListComboItemsByCombo(ctx context.Context, comboID uuid.UUID) ([]database.ComboItem, error) {
	var out []database.ComboItem
	for _, ci := range f.st().comboItems {
		if ci.ComboID == comboID {
			out = append(out, ci)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	now := f.now()
	o := database.Order{
		ID:              uuid.New(),
		StoreID:         arg.StoreID,
		CustomerID:      arg.CustomerID,
		TableNumber:     arg.TableNumber,
		CourierID:       arg.CourierID,
		DeliveryAddress: arg.DeliveryAddress,
		PaymentMethod:   arg.PaymentMethod,
		ChangeDue:       arg.ChangeDue,
		Notes:           arg.Notes,
		IsPickup:        arg.IsPickup,
		Status:          arg.Status,
		DeliveryFee:     arg.DeliveryFee,
		Discount:        arg.Discount,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	f.st().orders[o.ID] = o
	return o, nil
}

func (f *fakeStore) GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
	o, ok := f.st().orders[arg.ID]
	if !ok || o.StoreID != arg.StoreID {
		return database.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (f *fakeStore) GetOrderForUpdate(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
	return f.GetOrder(ctx, arg)
}

func (f *fakeStore) ListOrdersByStatus(ctx context.Context, arg database.ListOrdersByStatusParams) ([]database.Order, error) {
	want := map[string]bool{}
	for _, s := range arg.Statuses {
		want[s] = true
	}
	var out []database.Order
	for _, o := range f.st().orders {
		if o.StoreID == arg.StoreID && want[o.Status] {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) updateOrder(id uuid.UUID, fn func(*database.Order)) (database.Order, error) {
	o, ok := f.st().orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	fn(&o)
	o.UpdatedAt = f.now()
	f.st().orders[id] = o
	return o, nil
}

func (f *fakeStore) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	return f.updateOrder(arg.ID, func(o *database.Order) { o.Status = arg.Status })
}

func (f *fakeStore) UpdateOrderTotals(ctx context.Context, arg database.UpdateOrderTotalsParams) (database.Order, error) {
	if err := f.fail("UpdateOrderTotals"); err != nil {
		return database.Order{}, err
	}
	return f.updateOrder(arg.ID, func(o *database.Order) {
		o.Total = arg.Total
		o.Quantity = arg.Quantity
	})
}

func (f *fakeStore) UpdateOrderDiscount(ctx context.Context, arg database.UpdateOrderDiscountParams) (database.Order, error) {
	return f.updateOrder(arg.ID, func(o *database.Order) { o.Discount = arg.Discount })
}

func (f *fakeStore) AppendOrderNote(ctx context.Context, arg database.AppendOrderNoteParams) (database.Order, error) {
	return f.updateOrder(arg.ID, func(o *database.Order) {
		if o.Notes.Valid && o.Notes.String != "" {
			o.Notes.String += "\n" + arg.Note
		} else {
			o.Notes = pgtype.Text{String: arg.Note, Valid: true}
		}
	})
}

func (f *fakeStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	if arg.StoreProductID.Valid == arg.ComboID.Valid {
		return database.OrderItem{}, &pgconn.PgError{Code: "23514", Message: "order_items_one_target"}
	}
	it := database.OrderItem{
		ID:             uuid.New(),
		OrderID:        arg.OrderID,
		StoreProductID: arg.StoreProductID,
		ComboID:        arg.ComboID,
		Name:           arg.Name,
		UnitPrice:      arg.UnitPrice,
		Quantity:       arg.Quantity,
		Notes:          arg.Notes,
		Status:         arg.Status,
		CreatedAt:      f.now(),
	}
	f.st().items = append(f.st().items, it)
	return it, nil
}

func (f *fakeStore) GetOrderItem(ctx context.Context, id uuid.UUID) (database.OrderItem, error) {
	for _, it := range f.st().items {
		if it.ID == id {
			return it, nil
		}
	}
	return database.OrderItem{}, pgx.ErrNoRows
}

func (f *fakeStore) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	var out []database.OrderItem
	for _, it := range f.st().items {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateOrderItemStatus(ctx context.Context, arg database.UpdateOrderItemStatusParams) (database.OrderItem, error) {
	for i, it := range f.st().items {
		if it.ID == arg.ID {
			it.Status = arg.Status
			f.st().items[i] = it
			return it, nil
		}
	}
	return database.OrderItem{}, pgx.ErrNoRows
}

func (f *fakeStore) CreateOrderItemAddon(ctx context.Context, arg database.CreateOrderItemAddonParams) (database.OrderItemAddon, error) {
	a := database.OrderItemAddon{
		ID:             uuid.New(),
		OrderItemID:    arg.OrderItemID,
		StoreProductID: arg.StoreProductID,
		Name:           arg.Name,
		UnitPrice:      arg.UnitPrice,
	}
	f.st().addons = append(f.st().addons, a)
	return a, nil
}

func (f *fakeStore) ListOrderItemAddonsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItemAddon, error) {
	items := map[uuid.UUID]bool{}
	for _, it := range f.st().items {
		if it.OrderID == orderID {
			items[it.ID] = true
		}
	}
	var out []database.OrderItemAddon
	for _, a := range f.st().addons {
		if items[a.OrderItemID] {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) GetTableByNumber(ctx context.Context, arg database.GetTableByNumberParams) (database.DiningTable, error) {
	for _, t := range f.st().tables {
		if t.StoreID == arg.StoreID && t.Number == arg.Number {
			return t, nil
		}
	}
	return database.DiningTable{}, pgx.ErrNoRows
}

func (f *fakeStore) GetTableByOrder(ctx context.Context, orderID uuid.UUID) (database.DiningTable, error) {
	for _, t := range f.st().tables {
		if t.CurrentOrderID.Valid && uuid.UUID(t.CurrentOrderID.Bytes) == orderID {
			return t, nil
		}
	}
	return database.DiningTable{}, pgx.ErrNoRows
}

func (f *fakeStore) ListTables(ctx context.Context, storeID uuid.UUID) ([]database.DiningTable, error) {
	var out []database.DiningTable
	for _, t := range f.st().tables {
		if t.StoreID == storeID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (f *fakeStore) CreateTable(ctx context.Context, arg database.CreateTableParams) (database.DiningTable, error) {
	if _, err := f.GetTableByNumber(ctx, database.GetTableByNumberParams(arg)); err == nil {
		return database.DiningTable{}, &pgconn.PgError{Code: "23505", Message: "duplicate key"}
	}
	t := database.DiningTable{
		ID:      uuid.New(),
		StoreID: arg.StoreID,
		Number:  arg.Number,
		Status:  enum.TableStatusFree,
	}
	f.st().tables[t.ID] = t
	return t, nil
}

func (f *fakeStore) DeleteFreeTable(ctx context.Context, id uuid.UUID) (int64, error) {
	t, ok := f.st().tables[id]
	if !ok || t.Status != enum.TableStatusFree || t.CurrentOrderID.Valid {
		return 0, nil
	}
	delete(f.st().tables, id)
	return 1, nil
}

func (f *fakeStore) UpdateTableState(ctx context.Context, arg database.UpdateTableStateParams) (database.DiningTable, error) {
	t, ok := f.st().tables[arg.ID]
	if !ok {
		return database.DiningTable{}, pgx.ErrNoRows
	}
	t.Status = arg.Status
	t.CurrentOrderID = arg.CurrentOrderID
	t.CustomerName = arg.CustomerName
	t.OpenedAt = arg.OpenedAt
	f.st().tables[t.ID] = t
	return t, nil
}

func (f *fakeStore) UpdateTableLabel(ctx context.Context, arg database.UpdateTableLabelParams) (database.DiningTable, error) {
	t, ok := f.st().tables[arg.ID]
	if !ok {
		return database.DiningTable{}, pgx.ErrNoRows
	}
	t.Label = arg.Label
	f.st().tables[t.ID] = t
	return t, nil
}

// --- Fixtures ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// fixture is a seeded store with a service wired to the fake database.
type fixture struct {
	t     *testing.T
	db    *fakeDB
	svc   *OrderService
	pub   *recordingPublisher
	store database.Store
}

func newFixture(t *testing.T, opts ...func(*database.Store)) *fixture {
	t.Helper()
	db := newFakeDB()
	st := database.Store{
		ID:                   uuid.New(),
		Name:                 "Warung Sate",
		Slug:                 "warung-sate",
		IsActive:             true,
		DeliveryFee:          1000,
		AllowCustomerCancel:  true,
		MaxCancellableStatus: enum.OrderStatusAwaitingAcceptance,
	}
	for _, o := range opts {
		o(&st)
	}
	db.state.stores[st.ID] = st

	pub := &recordingPublisher{}
	newStore := func(d database.DBTX) OrderStore { return &fakeStore{tx: d.(*fakeTx)} }
	return &fixture{
		t:     t,
		db:    db,
		svc:   NewOrderService(db, newStore, pub, nil),
		pub:   pub,
		store: st,
	}
}

// product seeds a store product row. Pass the same productID twice to create
// duplicate rows for one catalog product.
func (fx *fixture) product(productID uuid.UUID, name string, price int64, stock *int32) database.StoreProduct {
	p := database.StoreProduct{
		ID:          uuid.New(),
		StoreID:     fx.store.ID,
		ProductID:   productID,
		Name:        name,
		Price:       price,
		IsAvailable: true,
	}
	if stock != nil {
		p.Stock = pgtype.Int4{Int32: *stock, Valid: true}
	}
	fx.db.state.products[p.ID] = p
	return p
}

func (fx *fixture) combo(name string, price int64, parts map[uuid.UUID]int32) database.Combo {
	c := database.Combo{ID: uuid.New(), StoreID: fx.store.ID, Name: name, Price: price, IsActive: true}
	fx.db.state.combos[c.ID] = c
	var i int32
	for spID, q := range parts {
		fx.db.state.comboItems = append(fx.db.state.comboItems, database.ComboItem{
			ID: uuid.New(), ComboID: c.ID, StoreProductID: spID, Quantity: q, SortOrder: i,
		})
		i++
	}
	return c
}

func (fx *fixture) table(number int32) database.DiningTable {
	t := database.DiningTable{ID: uuid.New(), StoreID: fx.store.ID, Number: number, Status: enum.TableStatusFree}
	fx.db.state.tables[t.ID] = t
	return t
}

func (fx *fixture) customer() database.Customer {
	c := database.Customer{ID: uuid.New(), Name: "Rina"}
	fx.db.state.customers[c.ID] = c
	return c
}

func (fx *fixture) stockOf(id uuid.UUID) int32 {
	return stockOf(fx.db.snapshot().products[id])
}

func (fx *fixture) salesOf(id uuid.UUID) int32 {
	return fx.db.snapshot().products[id].SalesCount
}

func (fx *fixture) tableByNumber(n int32) database.DiningTable {
	for _, t := range fx.db.snapshot().tables {
		if t.StoreID == fx.store.ID && t.Number == n {
			return t
		}
	}
	fx.t.Fatalf("table %d not found", n)
	return database.DiningTable{}
}

func ptr[T any](v T) *T { return &v }

func productItem(p database.StoreProduct, qty int32, addons ...database.StoreProduct) OrderItemRequest {
	req := OrderItemRequest{ProductID: p.ProductID.String(), Quantity: qty}
	for _, a := range addons {
		req.AddonIDs = append(req.AddonIDs, a.ProductID.String())
	}
	return req
}

func comboItem(c database.Combo, qty int32) OrderItemRequest {
	return OrderItemRequest{ComboID: c.ID.String(), Quantity: qty}
}
