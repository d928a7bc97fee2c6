package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizzplus/internal/core/apperror"
	appctx "bizzplus/internal/core/context"
	"bizzplus/internal/core/entity"
	"bizzplus/internal/core/id"
	"bizzplus/internal/core/types"
	"bizzplus/internal/domain"
	"bizzplus/internal/domain/audit"
	"bizzplus/internal/domain/auth"
	"bizzplus/internal/domain/catalog"
	"bizzplus/internal/domain/contact"
	"bizzplus/internal/domain/dashboard"
	"bizzplus/internal/domain/inventory"
	"bizzplus/internal/domain/order"
	"bizzplus/internal/domain/party"
	"bizzplus/internal/domain/voucher"
	"bizzplus/internal/infrastructure/http/v1/handlers"
	"bizzplus/internal/infrastructure/storage/postgres"
	"bizzplus/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// --- fakes ---

type fakeOrders struct {
	mu        sync.Mutex
	created   []order.CreateInput
	err       error
	lastList  order.ListFilter
	exportIDs []id.ID
}

func (f *fakeOrders) Create(_ context.Context, in order.CreateInput) (*order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, in)
	o := &order.Order{
		Base:           entity.NewBase(),
		Number:         "ORD-2025-000001",
		ManufacturerID: in.ManufacturerID,
		DistributorID:  in.DistributorID,
		Status:         order.StatusDraft,
		GrandTotal:     types.MustMoney("590.00"),
	}
	return o, nil
}

func (f *fakeOrders) Get(_ context.Context, orderID id.ID) (*order.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &order.Order{Base: entity.Base{ID: orderID}, Status: order.StatusDraft}, nil
}

func (f *fakeOrders) List(_ context.Context, filter order.ListFilter) (domain.ListResult[*order.Order], error) {
	f.lastList = filter
	return domain.NewListResult([]*order.Order{}, 0, filter.ListFilter.Normalize()), f.err
}

func (f *fakeOrders) History(context.Context, id.ID, int) ([]audit.Entry, error) {
	return []audit.Entry{}, f.err
}

func (f *fakeOrders) transition(orderID id.ID, to order.Status) (*order.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &order.Order{Base: entity.Base{ID: orderID}, Status: to}, nil
}

func (f *fakeOrders) Place(_ context.Context, orderID id.ID) (*order.Order, error) {
	return f.transition(orderID, order.StatusPlaced)
}

func (f *fakeOrders) Accept(_ context.Context, orderID id.ID) (*order.Order, error) {
	return f.transition(orderID, order.StatusAccepted)
}

func (f *fakeOrders) Reject(_ context.Context, orderID id.ID) (*order.Order, error) {
	return f.transition(orderID, order.StatusRejected)
}

func (f *fakeOrders) Fulfill(_ context.Context, orderID id.ID) (*order.Order, error) {
	return f.transition(orderID, order.StatusFulfilled)
}

func (f *fakeOrders) ExportVouchers(context.Context, id.ID) ([]id.ID, error) {
	return f.exportIDs, f.err
}

type fakeCatalog struct {
	lastPrice  catalog.SetPriceInput
	lastUpsert catalog.UpsertSKUInput
	lastDelta  catalog.DeltaInput
	known      map[string]bool
}

func (f *fakeCatalog) ListManufacturers(_ context.Context, filter domain.ListFilter) (domain.ListResult[*party.Party], error) {
	return domain.NewListResult([]*party.Party{}, 0, filter.Normalize()), nil
}

func (f *fakeCatalog) ListSKUs(_ context.Context, _ id.ID, filter domain.ListFilter) (domain.ListResult[*catalog.SKUWithPrice], error) {
	return domain.NewListResult([]*catalog.SKUWithPrice{}, 0, filter.Normalize()), nil
}

func (f *fakeCatalog) PriceHistory(context.Context, id.ID, int) ([]catalog.Price, error) {
	return nil, nil
}

func (f *fakeCatalog) SetPrice(_ context.Context, in catalog.SetPriceInput) (*catalog.Price, error) {
	f.lastPrice = in
	return &catalog.Price{ID: id.New(), SKUID: in.SKUID, Price: in.Price}, nil
}

func (f *fakeCatalog) ActivePrice(_ context.Context, skuID id.ID, _ time.Time) (*catalog.Price, error) {
	return nil, apperror.NewNotFound("price", skuID)
}

func (f *fakeCatalog) UpsertSKU(_ context.Context, in catalog.UpsertSKUInput) (*catalog.SKU, bool, error) {
	f.lastUpsert = in
	if f.known == nil {
		f.known = map[string]bool{}
	}
	created := !f.known[in.Code]
	f.known[in.Code] = true
	return &catalog.SKU{ID: id.New(), ManufacturerID: in.ManufacturerID, Code: in.Code, Name: in.Name}, created, nil
}

func (f *fakeCatalog) ApplyDelta(_ context.Context, in catalog.DeltaInput) ([]catalog.DeltaResult, error) {
	f.lastDelta = in
	results := make([]catalog.DeltaResult, 0, len(in.Changes))
	for _, ch := range in.Changes {
		if ch.Code == "missing" {
			results = append(results, catalog.DeltaResult{Code: ch.Code, Error: "SKU not found"})
			continue
		}
		results = append(results, catalog.DeltaResult{Code: ch.Code, Field: ch.Field, Success: true})
	}
	return results, nil
}

type fakeContacts struct{ synced []contact.SyncInput }

func (f *fakeContacts) Sync(_ context.Context, in contact.SyncInput) (*contact.Contact, bool, error) {
	f.synced = append(f.synced, in)
	return &contact.Contact{ID: id.New(), PartyKind: party.Kind(in.EntityType), PartyID: in.EntityID, Email: in.Email}, len(f.synced) == 1, nil
}

func (f *fakeContacts) List(_ context.Context, ref party.Ref) ([]*contact.Contact, error) {
	return []*contact.Contact{{ID: id.New(), PartyKind: ref.Kind, PartyID: ref.ID, IsPrimary: true}}, nil
}

type fakeVouchers struct{ lastList voucher.ListFilter }

func (f *fakeVouchers) Get(_ context.Context, voucherID id.ID) (*voucher.Voucher, error) {
	return nil, apperror.NewNotFound("voucher", voucherID)
}

func (f *fakeVouchers) List(_ context.Context, filter voucher.ListFilter) (domain.ListResult[*voucher.Voucher], error) {
	f.lastList = filter
	return domain.NewListResult([]*voucher.Voucher{}, 0, filter.ListFilter.Normalize()), nil
}

type fakeDashboards struct{ lastManufacturer id.ID }

func (f *fakeDashboards) Manufacturer(_ context.Context, manufacturerID id.ID) (*dashboard.ManufacturerSummary, error) {
	f.lastManufacturer = manufacturerID
	return &dashboard.ManufacturerSummary{}, nil
}

func (f *fakeDashboards) Distributor(context.Context, id.ID) (*dashboard.DistributorSummary, error) {
	return &dashboard.DistributorSummary{}, nil
}

type fakeInventory struct{ lastDistributor id.ID }

func (f *fakeInventory) List(_ context.Context, distributorID id.ID, filter domain.ListFilter) (domain.ListResult[*inventory.BalanceView], error) {
	f.lastDistributor = distributorID
	return domain.NewListResult([]*inventory.BalanceView{}, 0, filter.Normalize()), nil
}

type storedKey struct {
	hash   string
	status int
	body   []byte
	done   bool
}

type memIdempotency struct {
	mu          sync.Mutex
	keys        map[string]*storedKey
	completeErr error
}

func (m *memIdempotency) AcquireKey(_ context.Context, key, _, _, hash string) (*postgres.IdempotencyReplay, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if k, ok := m.keys[key]; ok {
		if k.hash != hash {
			return nil, apperror.NewIdempotencyMismatch(key)
		}
		if !k.done {
			return nil, apperror.NewIdempotencyConflict(key)
		}
		return &postgres.IdempotencyReplay{StatusCode: k.status, ContentType: "application/json", Body: k.body}, nil
	}
	m.keys[key] = &storedKey{hash: hash}
	return nil, nil
}

func (m *memIdempotency) finish(key string, status int, response any) error {
	body, err := json.Marshal(response)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key].status, m.keys[key].body, m.keys[key].done = status, body, true
	return nil
}

func (m *memIdempotency) CompleteKey(_ context.Context, key string, status int, _ string, response any) error {
	if m.completeErr != nil {
		return m.completeErr
	}
	return m.finish(key, status, response)
}

func (m *memIdempotency) FailKey(_ context.Context, key string, status int, _ string, response any) error {
	return m.finish(key, status, response)
}

// --- harness ---

type env struct {
	router     *gin.Engine
	jwt        *auth.JWTService
	orders     *fakeOrders
	catalog    *fakeCatalog
	vouchers   *fakeVouchers
	dashboards *fakeDashboards
	inventory  *fakeInventory
	contacts   *fakeContacts
	store      *memIdempotency
	dbErr      error
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		jwt:        auth.NewJWTService(auth.DefaultJWTConfig("test-secret")),
		orders:     &fakeOrders{},
		catalog:    &fakeCatalog{},
		vouchers:   &fakeVouchers{},
		dashboards: &fakeDashboards{},
		inventory:  &fakeInventory{},
		contacts:   &fakeContacts{},
		store:      &memIdempotency{keys: map[string]*storedKey{}},
	}
	e.router = NewRouter(RouterConfig{
		Logger:       logger.Nop(),
		JWTValidator: e.jwt,
		Orders:       e.orders,
		Catalog:      e.catalog,
		Vouchers:     e.vouchers,
		Dashboards:   e.dashboards,
		Inventory:    e.inventory,
		Contacts:     e.contacts,
		Idempotency:  e.store,
		HealthChecks: map[string]handlers.HealthCheck{
			"database": func(context.Context) error { return e.dbErr },
		},
		Development: true,
	})
	return e
}

func (e *env) token(t *testing.T, role string, partyID id.ID) string {
	t.Helper()
	user := appctx.UserContext{UserID: "u-" + role, Role: role}
	if role != appctx.RoleAdmin {
		user.PartyKind = role
		user.PartyID = partyID.String()
	}
	tok, _, err := e.jwt.GenerateAccessToken(user)
	require.NoError(t, err)
	return tok
}

func (e *env) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Code
}

// --- tests ---

func TestRouter_RequiresBearerToken(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodGet, "/api/v1/vouchers", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, apperror.CodeUnauthorized, errorCode(t, w))

	w = e.do(t, http.MethodGet, "/api/v1/vouchers", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_CreateOrderUsesTokenParty(t *testing.T) {
	e := newEnv(t)
	distributorID, manufacturerID, skuID := id.New(), id.New(), id.New()
	body := map[string]any{
		"manufacturerId": manufacturerID,
		"distributorId":  id.New(), // ignored for distributor users
		"items":          []map[string]any{{"skuId": skuID, "qty": "5"}},
	}

	w := e.do(t, http.MethodPost, "/api/v1/orders", e.token(t, appctx.RoleDistributor, distributorID), body)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Len(t, e.orders.created, 1)
	in := e.orders.created[0]
	assert.Equal(t, distributorID, in.DistributorID)
	assert.Equal(t, manufacturerID, in.ManufacturerID)
	assert.Equal(t, "u-distributor", in.CreatedBy)
	assert.True(t, in.Items[0].Qty.Equal(types.MustMoney("5")))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_CreateOrderRoleAndBodyChecks(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/api/v1/orders", e.token(t, appctx.RoleManufacturer, id.New()),
		map[string]any{"manufacturerId": id.New(), "items": []any{}})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, apperror.CodeForbidden, errorCode(t, w))

	w = e.do(t, http.MethodPost, "/api/v1/orders", e.token(t, appctx.RoleDistributor, id.New()),
		map[string]any{"manufacturerId": "not-a-uuid", "items": []any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperror.CodeValidation, errorCode(t, w))
	assert.Empty(t, e.orders.created)
}

func TestRouter_CreateOrderRejectsQtyOutsideColumn(t *testing.T) {
	e := newEnv(t)
	tok := e.token(t, appctx.RoleDistributor, id.New())

	for _, qty := range []string{"1.0005", "0.0004", "100000000"} {
		w := e.do(t, http.MethodPost, "/api/v1/orders", tok, map[string]any{
			"manufacturerId": id.New(),
			"items":          []map[string]any{{"skuId": id.New(), "qty": qty}},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code, qty)
		assert.Equal(t, apperror.CodeValidation, errorCode(t, w), qty)
		assert.Contains(t, w.Body.String(), "items[0].qty", qty)
	}
	assert.Empty(t, e.orders.created)
}

func TestRouter_IdempotentCreateReplays(t *testing.T) {
	e := newEnv(t)
	tok := e.token(t, appctx.RoleDistributor, id.New())
	body := map[string]any{
		"manufacturerId": id.New(),
		"items":          []map[string]any{{"skuId": id.New(), "qty": 1}},
	}

	first := e.do(t, http.MethodPost, "/api/v1/orders", tok, body, "Idempotency-Key", "k-1")
	second := e.do(t, http.MethodPost, "/api/v1/orders", tok, body, "Idempotency-Key", "k-1")

	require.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Len(t, e.orders.created, 1)

	body["items"] = []map[string]any{{"skuId": id.New(), "qty": 2}}
	mismatch := e.do(t, http.MethodPost, "/api/v1/orders", tok, body, "Idempotency-Key", "k-1")
	assert.Equal(t, http.StatusConflict, mismatch.Code)
}

// The stored response is written after the order commits. If that write is
// lost the key stays pending, and retries are refused rather than replayed.
func TestRouter_IdempotencyKeyPendingWhenCompletionLost(t *testing.T) {
	e := newEnv(t)
	e.store.completeErr = errors.New("connection reset")
	tok := e.token(t, appctx.RoleDistributor, id.New())
	body := map[string]any{
		"manufacturerId": id.New(),
		"items":          []map[string]any{{"skuId": id.New(), "qty": 1}},
	}

	first := e.do(t, http.MethodPost, "/api/v1/orders", tok, body, "Idempotency-Key", "k-lost")
	require.Equal(t, http.StatusCreated, first.Code)

	retry := e.do(t, http.MethodPost, "/api/v1/orders", tok, body, "Idempotency-Key", "k-lost")
	assert.Equal(t, http.StatusConflict, retry.Code)
	assert.Equal(t, apperror.CodeIdempotency, errorCode(t, retry))
	assert.Empty(t, retry.Header().Get("Idempotent-Replayed"))
	assert.Len(t, e.orders.created, 1)
}

func TestRouter_DomainErrorsMapToStatus(t *testing.T) {
	orderID := id.New()
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid transition", apperror.NewInvalidStateTransition("order", orderID, "draft", "fulfilled"), http.StatusBadRequest, apperror.CodeInvalidStateTransition},
		{"not found", apperror.NewNotFound("order", orderID), http.StatusNotFound, apperror.CodeNotFound},
		{"forbidden", apperror.NewForbidden("not your order"), http.StatusForbidden, apperror.CodeForbidden},
		{"aborted", apperror.NewTransactionAbort(errors.New("40001")), http.StatusConflict, apperror.CodeTransactionAborted},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, apperror.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			e.orders.err = tt.err

			w := e.do(t, http.MethodPost, "/api/v1/m/orders/"+orderID.String()+"/fulfill",
				e.token(t, appctx.RoleManufacturer, id.New()), nil)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, errorCode(t, w))
			assert.NotContains(t, w.Body.String(), "boom")
		})
	}
}

func TestRouter_TransitionsAndInvalidID(t *testing.T) {
	e := newEnv(t)
	tok := e.token(t, appctx.RoleManufacturer, id.New())
	orderID := id.New()

	w := e.do(t, http.MethodPost, "/api/v1/m/orders/"+orderID.String()+"/accept", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var o order.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &o))
	assert.Equal(t, order.StatusAccepted, o.Status)

	w = e.do(t, http.MethodGet, "/api/v1/orders/42", tok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPost, "/api/v1/orders/"+orderID.String()+"/place", tok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "manufacturers cannot place")
}

func TestRouter_ManufacturerOrderListFilters(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodGet, "/api/v1/m/orders?status=placed,accepted&limit=5&offset=10",
		e.token(t, appctx.RoleManufacturer, id.New()), nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []order.Status{order.StatusPlaced, order.StatusAccepted}, e.orders.lastList.Statuses)
	assert.Equal(t, 5, e.orders.lastList.Limit)
	assert.Equal(t, 10, e.orders.lastList.Offset)
}

func TestRouter_ExportVouchers(t *testing.T) {
	e := newEnv(t)
	e.orders.exportIDs = []id.ID{id.New(), id.New()}

	w := e.do(t, http.MethodPost, "/api/v1/orders/"+id.New().String()+"/vouchers",
		e.token(t, appctx.RoleAdmin, id.ID{}), nil)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		IDs []string `json:"ids"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.IDs, 2)

	w = e.do(t, http.MethodPost, "/api/v1/orders/"+id.New().String()+"/vouchers",
		e.token(t, appctx.RoleDistributor, id.New()), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouter_VoucherQueries(t *testing.T) {
	e := newEnv(t)
	tok := e.token(t, appctx.RoleDistributor, id.New())

	w := e.do(t, http.MethodGet, "/api/v1/vouchers?status=sent&type=sales", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, voucher.StatusSent, e.vouchers.lastList.Status)
	assert.Equal(t, voucher.TypeSales, e.vouchers.lastList.Type)

	w = e.do(t, http.MethodGet, "/api/v1/vouchers?status=lost", tok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodGet, "/api/v1/vouchers/"+id.New().String(), tok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_PartyScreens(t *testing.T) {
	e := newEnv(t)
	manufacturerID, distributorID := id.New(), id.New()

	w := e.do(t, http.MethodGet, "/api/v1/m/dashboard", e.token(t, appctx.RoleManufacturer, manufacturerID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, manufacturerID, e.dashboards.lastManufacturer)

	w = e.do(t, http.MethodGet, "/api/v1/d/inventory?search=soap", e.token(t, appctx.RoleDistributor, distributorID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, distributorID, e.inventory.lastDistributor)

	admin := e.token(t, appctx.RoleAdmin, id.ID{})
	w = e.do(t, http.MethodGet, "/api/v1/m/dashboard", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "admins must name the manufacturer")

	other := id.New()
	w = e.do(t, http.MethodGet, "/api/v1/m/dashboard?manufacturerId="+other.String(), admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, other, e.dashboards.lastManufacturer)

	w = e.do(t, http.MethodGet, "/api/v1/d/dashboard", e.token(t, appctx.RoleManufacturer, manufacturerID), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouter_SetPrice(t *testing.T) {
	e := newEnv(t)
	skuID := id.New()

	w := e.do(t, http.MethodPut, "/api/v1/skus/"+skuID.String()+"/price",
		e.token(t, appctx.RoleManufacturer, id.New()),
		map[string]any{"price": "120.50", "currency": "inr", "effectiveFrom": "2025-04-01T00:00:00Z"})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, skuID, e.catalog.lastPrice.SKUID)
	assert.True(t, e.catalog.lastPrice.Price.Equal(types.MustMoney("120.50")))
	assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), e.catalog.lastPrice.EffectiveFrom.UTC())

	w = e.do(t, http.MethodGet, "/api/v1/skus/"+skuID.String()+"/price?at=yesterday",
		e.token(t, appctx.RoleManufacturer, id.New()), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_Health(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	e.dbErr = errors.New("connection refused")
	w = e.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")

	w = e.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_IngestSKUDefaultsToTokenManufacturer(t *testing.T) {
	e := newEnv(t)
	manufacturerID := id.New()
	tok := e.token(t, appctx.RoleManufacturer, manufacturerID)
	body := map[string]any{"skuCode": "SF-ATTA-5", "name": "Atta 5kg", "gstPercent": 5, "uom": "BAG"}

	w := e.do(t, http.MethodPost, "/api/v1/ingest/sku", tok, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, manufacturerID, e.catalog.lastUpsert.ManufacturerID)
	assert.True(t, e.catalog.lastUpsert.GSTPercent.Equal(types.MustMoney("5")))

	w = e.do(t, http.MethodPost, "/api/v1/ingest/sku", tok, body)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Created bool `json:"created"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Created)
}

func TestRouter_IngestRoleChecks(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/api/v1/ingest/sku", e.token(t, appctx.RoleDistributor, id.New()),
		map[string]any{"skuCode": "X", "name": "x", "uom": "PCS"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodPost, "/api/v1/ingest/sku", e.token(t, appctx.RoleAdmin, id.ID{}),
		map[string]any{"skuCode": "X", "name": "x", "uom": "PCS"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "admins must name the manufacturer")
	assert.Empty(t, e.catalog.lastUpsert.Code)
}

func TestRouter_IngestDeltaCountsResults(t *testing.T) {
	e := newEnv(t)
	manufacturerID := id.New()

	w := e.do(t, http.MethodPost, "/api/v1/ingest/delta", e.token(t, appctx.RoleAdmin, id.ID{}), map[string]any{
		"manufacturerId": manufacturerID,
		"changes": []map[string]any{
			{"skuCode": "SF-ATTA-5", "field": "name", "oldValue": "Atta", "newValue": "Atta 5kg"},
			{"skuCode": "missing", "field": "uom", "newValue": "KG"},
		},
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Applied int `json:"applied"`
		Failed  int `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Applied)
	assert.Equal(t, 1, resp.Failed)
	assert.Equal(t, manufacturerID, e.catalog.lastDelta.ManufacturerID)
	assert.JSONEq(t, `"Atta 5kg"`, string(e.catalog.lastDelta.Changes[0].NewValue))
}

func TestRouter_CRMContactsAdminOnly(t *testing.T) {
	e := newEnv(t)
	distributorID := id.New()
	body := map[string]any{
		"entityType": "distributor", "entityId": distributorID,
		"email": "owner@citytraders.in", "phone": "+91 98200 00001", "isPrimary": true,
	}

	w := e.do(t, http.MethodPost, "/api/v1/crm/contacts/updated", e.token(t, appctx.RoleDistributor, distributorID), body)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, e.contacts.synced)

	admin := e.token(t, appctx.RoleAdmin, id.ID{})
	w = e.do(t, http.MethodPost, "/api/v1/crm/contacts/updated", admin, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Len(t, e.contacts.synced, 1)
	assert.True(t, e.contacts.synced[0].IsPrimary)

	w = e.do(t, http.MethodGet, "/api/v1/crm/contacts?partyType=distributor&partyId="+distributorID.String(), admin, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, "/api/v1/crm/contacts?partyType=retailer&partyId="+distributorID.String(), admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
