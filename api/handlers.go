/*
handlers.go - HTTP API handlers for the commerce engine

PURPOSE:
  Exposes the commission and order engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Team:
    GET    /api/team                     List members
    POST   /api/team                     Register member (PENDING)
    GET    /api/team/{id}                Get member
    POST   /api/team/{id}/proof          Submit activation proof
    POST   /api/team/{id}/decide         Approve or reject
    GET    /api/team/{id}/coupons        Member's coupons

  Sales and payouts:
    POST   /api/sales                    Record an ad-hoc sale
    POST   /api/payouts                  Process a payout

  Orders:
    POST   /api/orders/checkout          Quote, charge, create order
    GET    /api/orders                   Orders visible to a viewer
    GET    /api/orders/{id}              Get order
    POST   /api/orders/{id}/status       Advance the state machine
    GET    /api/orders/quote             Shipping quote

  Rewards:
    GET    /api/rewards                  Redemption catalog
    POST   /api/rewards/redeem           Spend points, mint coupon

  Catalog and settings:
    GET    /api/products                 List products
    POST   /api/products                 Upsert product
    GET    /api/products/{id}/markup     Suggested reseller markup
    GET    /api/settings                 Platform settings
    PUT    /api/settings                 Replace settings (audited)

  Audit:
    GET    /api/audit                    Audit log, newest first

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (idempotency, insufficient funds, bad transition)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo seed data and simulated collaborators
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/omega/commerce-engine/activation"
	"github.com/omega/commerce-engine/commission"
	"github.com/omega/commerce-engine/ledger"
	"github.com/omega/commerce-engine/orders"
	"github.com/omega/commerce-engine/payout"
	"github.com/omega/commerce-engine/rewards"
)

// MarkupAdvisor suggests a reseller markup for a product. Backed by an
// external advisor in production, canned values in demo mode.
type MarkupAdvisor interface {
	SuggestMarkup(ctx context.Context, product ledger.Product, defaultMarkup decimal.Decimal) (decimal.Decimal, string, error)
}

// ImageUploader stores an activation proof image and returns its public
// URL. Optional: deployments without one accept proof URLs directly.
type ImageUploader interface {
	UploadImage(ctx context.Context, data []byte, name string) (string, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      ledger.Store
	Activation *activation.Service
	Recorder   *commission.Recorder
	Orders     *orders.Manager
	Payouts    *payout.Processor
	Rewards    *rewards.Service
	Catalog    []rewards.Reward
	Quoter     orders.RateQuoter
	Advisor    MarkupAdvisor
	Uploads    ImageUploader

	// Environment tags audit entries written directly by handlers.
	Environment string
}

var validate = validator.New()

func decodeValid(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return validate.Struct(dst)
}

// =============================================================================
// TEAM ENDPOINTS
// =============================================================================

// ListMembers returns members, optionally filtered by role or status.
// GET /api/team?role=RESELLER&status=PENDING
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	var filter ledger.MemberFilter
	if v := r.URL.Query().Get("role"); v != "" {
		role := ledger.Role(v)
		filter.Role = &role
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := ledger.MemberStatus(v)
		filter.Status = &status
	}

	members, err := h.Store.ListMembers(r.Context(), filter)
	if err != nil {
		writeDomainError(w, "Failed to list members", err)
		return
	}

	dtos := make([]MemberDTO, 0, len(members))
	for _, m := range members {
		dtos = append(dtos, toMemberDTO(m))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RegisterMember creates a PENDING member.
// POST /api/team
func (h *Handler) RegisterMember(w http.ResponseWriter, r *http.Request) {
	var req RegisterMemberRequest
	if err := decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	member, err := h.Activation.Register(r.Context(), activation.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Role:     ledger.Role(req.Role),
		LeaderID: ledger.MemberID(req.LeaderID),
	})
	if err != nil {
		writeDomainError(w, "Failed to register member", err)
		return
	}
	writeJSON(w, http.StatusCreated, toMemberDTO(*member))
}

// GetMember returns a single member.
// GET /api/team/{id}
func (h *Handler) GetMember(w http.ResponseWriter, r *http.Request) {
	id := ledger.MemberID(chi.URLParam(r, "id"))
	member, err := h.Store.GetMember(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get member", err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberDTO(*member))
}

// SubmitProof attaches an activation proof URL to a pending member.
// POST /api/team/{id}/proof
func (h *Handler) SubmitProof(w http.ResponseWriter, r *http.Request) {
	var req SubmitProofRequest
	if err := decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	id := ledger.MemberID(chi.URLParam(r, "id"))

	proofURL := req.ProofURL
	if proofURL == "" {
		if req.ImageData == "" || h.Uploads == nil {
			writeError(w, http.StatusBadRequest, "Proof URL required", errors.New("no proof_url given and image upload is not available"))
			return
		}
		data, err := base64.StdEncoding.DecodeString(req.ImageData)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid image data", err)
			return
		}
		url, err := h.Uploads.UploadImage(r.Context(), data, string(id)+"-proof")
		if err != nil {
			writeError(w, http.StatusBadGateway, "Image upload failed", err)
			return
		}
		proofURL = url
	}

	member, err := h.Activation.SubmitProof(r.Context(), id, proofURL)
	if err != nil {
		writeDomainError(w, "Failed to submit proof", err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberDTO(*member))
}

// DecideMember approves or rejects a pending member.
// POST /api/team/{id}/decide
func (h *Handler) DecideMember(w http.ResponseWriter, r *http.Request) {
	var req DecideMemberRequest
	if err := decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	id := ledger.MemberID(chi.URLParam(r, "id"))
	member, err := h.Activation.Decide(r.Context(), id, req.Approve, ledger.MemberID(req.ActorID))
	if err != nil {
		writeDomainError(w, "Failed to decide member", err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberDTO(*member))
}

// ListMemberCoupons returns a member's coupons.
// GET /api/team/{id}/coupons
func (h *Handler) ListMemberCoupons(w http.ResponseWriter, r *http.Request) {
	id := ledger.MemberID(chi.URLParam(r, "id"))
	coupons, err := h.Store.ListCoupons(r.Context(), ledger.CouponFilter{MemberID: &id})
	if err != nil {
		writeDomainError(w, "Failed to list coupons", err)
		return
	}

	dtos := make([]CouponDTO, 0, len(coupons))
	for _, c := range coupons {
		dtos = append(dtos, toCouponDTO(c))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// SALES AND PAYOUTS
// =============================================================================

// RecordSale attributes an ad-hoc sale to a reseller.
// POST /api/sales
func (h *Handler) RecordSale(w http.ResponseWriter, r *http.Request) {
	var req RecordSaleRequest
	if err := decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	price, err := decimal.NewFromString(req.SalePrice)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid sale price", err)
		return
	}

	input := commission.SaleInput{
		ResellerID: ledger.MemberID(req.ResellerID),
		Product: ledger.ProductRef{
			ID:   ledger.ProductID(req.ProductID),
			Name: req.ProductName,
		},
		SalePrice:      price,
		IdempotencyKey: req.IdempotencyKey,
	}
	if req.Rate != "" {
		rate, err := decimal.NewFromString(req.Rate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid rate", err)
			return
		}
		input.Rate = &rate
	}

	receipt, err := h.Recorder.RecordSale(r.Context(), input)
	if err != nil {
		writeDomainError(w, "Failed to record sale", err)
		return
	}

	writeJSON(w, http.StatusCreated, SaleReceiptDTO{
		ResellerID: string(receipt.ResellerID),
		Commission: receipt.Commission.String(),
		Points:     receipt.Points,
		AuditID:    receipt.AuditID,
	})
}

// ProcessPayout withdraws from a member wallet.
// POST /api/payouts
func (h *Handler) ProcessPayout(w http.ResponseWriter, r *http.Request) {
	var req ProcessPayoutRequest
	if err := decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	receipt, err := h.Payouts.Process(r.Context(), ledger.MemberID(req.ActorID), ledger.MemberID(req.MemberID), amount, req.ProofURL)
	if err != nil {
		writeDomainError(w, "Failed to process payout", err)
		return
	}

	writeJSON(w, http.StatusOK, PayoutReceiptDTO{
		MemberID:  string(receipt.MemberID),
		Amount:    receipt.Amount.String(),
		Remaining: receipt.Remaining.String(),
		AuditID:   receipt.AuditID,
	})
}

// =============================================================================
// ORDER ENDPOINTS
// =============================================================================

// Checkout quotes shipping, charges the customer and creates the order.
// POST /api/orders/checkout
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	items := make([]ledger.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		product, err := h.Store.GetProduct(r.Context(), ledger.ProductID(it.ProductID))
		if err != nil {
			writeDomainError(w, "Unknown product "+it.ProductID, err)
			return
		}
		items = append(items, ledger.LineItem{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  it.Quantity,
			UnitPrice: product.PriceList,
			Image:     product.Image,
		})
	}

	order, err := h.Orders.Checkout(r.Context(), orders.CheckoutInput{
		Customer: ledger.Customer{
			Name:    req.Customer.Name,
			Address: req.Customer.Address,
			City:    req.Customer.City,
			Phone:   req.Customer.Phone,
			Email:   req.Customer.Email,
			ZipCode: req.Customer.ZipCode,
		},
		Items:      items,
		ResellerID: ledger.MemberID(req.ResellerID),
	})
	if err != nil {
		writeDomainError(w, "Checkout failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderDTO(*order))
}

// ListOrders returns orders visible to the viewer.
// GET /api/orders?viewer_id=...
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	viewerID := r.URL.Query().Get("viewer_id")
	if viewerID == "" {
		writeError(w, http.StatusBadRequest, "viewer_id is required", nil)
		return
	}

	viewer, err := h.Store.GetMember(r.Context(), ledger.MemberID(viewerID))
	if err != nil {
		writeDomainError(w, "Unknown viewer", err)
		return
	}

	visible, err := h.Orders.VisibleOrders(r.Context(), viewer)
	if err != nil {
		writeDomainError(w, "Failed to list orders", err)
		return
	}

	dtos := make([]OrderDTO, 0, len(visible))
	for _, o := range visible {
		dtos = append(dtos, toOrderDTO(o))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetOrder returns a single order.
// GET /api/orders/{id}
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := ledger.OrderID(chi.URLParam(r, "id"))
	order, err := h.Store.GetOrder(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(*order))
}

// UpdateOrderStatus advances the order state machine.
// POST /api/orders/{id}/status
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateOrderStatusRequest
	if err := decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	id := ledger.OrderID(chi.URLParam(r, "id"))
	order, err := h.Orders.UpdateStatus(r.Context(), id, ledger.OrderStatus(req.Status), ledger.MemberID(req.ActorID))
	if err != nil {
		writeDomainError(w, "Failed to update order status", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(*order))
}

// QuoteShipping returns a carrier quote for a destination.
// GET /api/orders/quote?zip_code=...&items=2
func (h *Handler) QuoteShipping(w http.ResponseWriter, r *http.Request) {
	zip := r.URL.Query().Get("zip_code")
	if zip == "" {
		writeError(w, http.StatusBadRequest, "zip_code is required", nil)
		return
	}
	count := 1
	if v := r.URL.Query().Get("items"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			count = n
		}
	}

	quote, err := h.Quoter.Quote(r.Context(), zip, count)
	if err != nil {
		writeDomainError(w, "Failed to quote shipping", err)
		return
	}
	writeJSON(w, http.StatusOK, toQuoteDTO(quote))
}

// =============================================================================
// REWARD ENDPOINTS
// =============================================================================

// ListRewards returns the redemption catalog.
// GET /api/rewards
func (h *Handler) ListRewards(w http.ResponseWriter, r *http.Request) {
	dtos := make([]RewardDTO, 0, len(h.Catalog))
	for _, rw := range h.Catalog {
		dtos = append(dtos, toRewardDTO(rw))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RedeemReward spends points on a catalog reward and mints a coupon.
// POST /api/rewards/redeem
func (h *Handler) RedeemReward(w http.ResponseWriter, r *http.Request) {
	var req RedeemRequest
	if err := decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var reward *rewards.Reward
	for i := range h.Catalog {
		if h.Catalog[i].ID == req.RewardID {
			reward = &h.Catalog[i]
			break
		}
	}
	if reward == nil {
		writeError(w, http.StatusNotFound, "Unknown reward "+req.RewardID, nil)
		return
	}

	coupon, err := h.Rewards.Redeem(r.Context(), ledger.MemberID(req.MemberID), *reward)
	if err != nil {
		writeDomainError(w, "Failed to redeem reward", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCouponDTO(*coupon))
}

// =============================================================================
// PRODUCT AND SETTINGS ENDPOINTS
// =============================================================================

// ListProducts returns the product catalog.
// GET /api/products
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Store.ListProducts(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list products", err)
		return
	}

	dtos := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		dtos = append(dtos, toProductDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// UpsertProduct creates or updates a product.
// POST /api/products
func (h *Handler) UpsertProduct(w http.ResponseWriter, r *http.Request) {
	var req UpsertProductRequest
	if err := decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	priceList, err := decimal.NewFromString(req.PriceList)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid list price", err)
		return
	}
	priceReseller, err := decimal.NewFromString(req.PriceReseller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid reseller price", err)
		return
	}

	id := req.ID
	if id == "" {
		id = req.SKU
	}
	product := ledger.Product{
		ID:            ledger.ProductID(id),
		SKU:           req.SKU,
		Name:          req.Name,
		Description:   req.Description,
		PriceList:     priceList,
		PriceReseller: priceReseller,
		Stock:         req.Stock,
		Category:      req.Category,
		Image:         req.Image,
		IsPromo:       req.IsPromo,
	}
	if err := h.Store.PutProduct(r.Context(), product); err != nil {
		writeDomainError(w, "Failed to save product", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductDTO(product))
}

// SuggestMarkup returns an advised reseller markup for a product.
// GET /api/products/{id}/markup
func (h *Handler) SuggestMarkup(w http.ResponseWriter, r *http.Request) {
	id := ledger.ProductID(chi.URLParam(r, "id"))
	product, err := h.Store.GetProduct(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get product", err)
		return
	}

	cfg, err := h.Store.GetSettings(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to load settings", err)
		return
	}

	markup, rationale, err := h.Advisor.SuggestMarkup(r.Context(), *product, cfg.MarkupPercentage)
	if err != nil {
		writeDomainError(w, "Failed to suggest markup", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"product_id": string(product.ID),
		"markup":     markup.String(),
		"rationale":  rationale,
	})
}

// GetSettings returns the platform configuration.
// GET /api/settings
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Store.GetSettings(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to load settings", err)
		return
	}
	writeJSON(w, http.StatusOK, toSettingsDTO(cfg))
}

// UpdateSettings replaces the platform configuration and audits the change.
// PUT /api/settings
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req UpdateSettingsRequest
	if err := decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	defaultRate, err := decimal.NewFromString(req.DefaultCommissionRate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid default commission rate", err)
		return
	}
	leaderRate, err := decimal.NewFromString(req.LeaderCommissionRate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid leader commission rate", err)
		return
	}
	markup, err := decimal.NewFromString(req.MarkupPercentage)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid markup percentage", err)
		return
	}

	cfg := ledger.Settings{
		PlatformName:          req.PlatformName,
		DefaultCommissionRate: defaultRate,
		LeaderCommissionRate:  leaderRate,
		MarkupPercentage:      markup,
		WithdrawalsPaused:     req.WithdrawalsPaused,
		MaintenanceMode:       req.MaintenanceMode,
		UpdatedAt:             time.Now(),
	}
	if err := h.Store.PutSettings(r.Context(), cfg); err != nil {
		writeDomainError(w, "Failed to save settings", err)
		return
	}

	entry := ledger.AuditEntry{
		ID:          uuid.NewString(),
		ActorID:     ledger.MemberID(req.ActorID),
		Action:      ledger.ActionSettingsUpdate,
		Details:     "Platform settings updated",
		Environment: h.Environment,
		CreatedAt:   time.Now(),
	}
	if err := h.Store.AppendAudit(r.Context(), entry); err != nil {
		writeDomainError(w, "Failed to audit settings change", err)
		return
	}
	writeJSON(w, http.StatusOK, toSettingsDTO(cfg))
}

// =============================================================================
// AUDIT ENDPOINTS
// =============================================================================

// ListAudit returns the audit log, newest first.
// GET /api/audit?actor_id=...&action=SALE_REFERRAL
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	var filter ledger.AuditFilter
	if v := r.URL.Query().Get("actor_id"); v != "" {
		actor := ledger.MemberID(v)
		filter.ActorID = &actor
	}
	if v := r.URL.Query().Get("action"); v != "" {
		filter.Actions = []ledger.AuditAction{ledger.AuditAction(v)}
	}

	entries, err := h.Store.ListAudit(r.Context(), filter)
	if err != nil {
		writeDomainError(w, "Failed to list audit log", err)
		return
	}

	dtos := make([]AuditEntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, toAuditDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, ledger.ErrDuplicateIdempotencyKey),
		errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrInsufficientPoints),
		errors.Is(err, ledger.ErrInvalidTransition),
		errors.Is(err, ledger.ErrWithdrawalsPaused),
		errors.Is(err, ledger.ErrPaymentDeclined):
		writeError(w, http.StatusConflict, message, err)
	case ledger.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
