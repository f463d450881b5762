package handlers

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/shenulal/telematics-io-manager/core/audit"
	"github.com/shenulal/telematics-io-manager/core/store"
	"github.com/shenulal/telematics-io-manager/core/utils"
)

type ProductsHandler struct {
	products store.ProductsStore
	vendors  store.VendorsStore
	recorder *audit.Recorder
	logger   *utils.Logger
}

func NewProductsHandler(products store.ProductsStore, vendors store.VendorsStore, recorder *audit.Recorder, logger *utils.Logger) *ProductsHandler {
	return &ProductsHandler{products: products, vendors: vendors, recorder: recorder, logger: logger}
}

type productPayload struct {
	VendorID    int64  `json:"vendor_id"`
	Name        string `json:"name"`
	Model       string `json:"model"`
	Description string `json:"description"`
	Active      *bool  `json:"active"`
}

func (p *productPayload) validate() error {
	p.Name = strings.TrimSpace(p.Name)
	p.Model = strings.TrimSpace(p.Model)
	if p.VendorID <= 0 {
		return fmt.Errorf("vendor_id is required")
	}
	if p.Name == "" {
		return fmt.Errorf("product name is required")
	}
	if p.Model == "" {
		return fmt.Errorf("product model is required")
	}
	return nil
}

func (h *ProductsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, pageSize := pageFromQuery(r)
	items, total, err := h.products.List(r.Context(), store.ProductFilter{
		Query:    q.Get("search"),
		VendorID: parseInt64Default(q.Get("vendorId"), 0),
		Active:   parseBoolParam(q.Get("active")),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		failServer(w)
		return
	}
	respondList(w, items, total, page, pageSize)
}

func (h *ProductsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := urlParamInt64(r, "id")
	if id <= 0 {
		fail(w, http.StatusBadRequest, "Invalid product id")
		return
	}
	p, err := h.products.Get(r.Context(), id)
	if err != nil {
		failServer(w)
		return
	}
	if p == nil {
		fail(w, http.StatusNotFound, "Product not found")
		return
	}
	respond(w, http.StatusOK, p)
}

func (h *ProductsHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := currentIdentity(r)
	var payload productPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := payload.validate(); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	vendor, err := h.vendors.Get(r.Context(), payload.VendorID)
	if err != nil {
		failServer(w)
		return
	}
	if vendor == nil {
		fail(w, http.StatusBadRequest, "Vendor does not exist")
		return
	}
	active := true
	if payload.Active != nil {
		active = *payload.Active
	}
	p := &store.Product{VendorID: payload.VendorID, Name: payload.Name, Model: payload.Model, Description: payload.Description, Active: active}
	id, err := h.products.Create(r.Context(), p)
	if err != nil {
		if store.IsUniqueViolation(err) {
			fail(w, http.StatusBadRequest, "Model already exists for this vendor")
			return
		}
		failServer(w)
		return
	}
	p.VendorName = vendor.Name
	h.recorder.Record(r.Context(), audit.Entry{
		UserID:      actorID(actor),
		Username:    actorName(actor),
		Action:      audit.ActionCreate,
		Module:      "products",
		RecordID:    &id,
		Description: "created product " + p.Name,
		NewValue:    p,
		IP:          clientAddr(r),
		UserAgent:   r.UserAgent(),
	})
	respond(w, http.StatusCreated, p)
}

func (h *ProductsHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor := currentIdentity(r)
	id := urlParamInt64(r, "id")
	if id <= 0 {
		fail(w, http.StatusBadRequest, "Invalid product id")
		return
	}
	existing, err := h.products.Get(r.Context(), id)
	if err != nil {
		failServer(w)
		return
	}
	if existing == nil {
		fail(w, http.StatusNotFound, "Product not found")
		return
	}
	var payload productPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if payload.VendorID == 0 {
		payload.VendorID = existing.VendorID
	}
	if err := payload.validate(); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.VendorID != existing.VendorID {
		vendor, err := h.vendors.Get(r.Context(), payload.VendorID)
		if err != nil {
			failServer(w)
			return
		}
		if vendor == nil {
			fail(w, http.StatusBadRequest, "Vendor does not exist")
			return
		}
	}
	next := *existing
	next.VendorID = payload.VendorID
	next.Name = payload.Name
	next.Model = payload.Model
	next.Description = payload.Description
	if payload.Active != nil {
		next.Active = *payload.Active
	}
	if err := h.products.Update(r.Context(), &next); err != nil {
		if store.IsUniqueViolation(err) {
			fail(w, http.StatusBadRequest, "Model already exists for this vendor")
			return
		}
		failServer(w)
		return
	}
	h.recorder.Record(r.Context(), audit.Entry{
		UserID:      actorID(actor),
		Username:    actorName(actor),
		Action:      audit.ActionUpdate,
		Module:      "products",
		RecordID:    &id,
		Description: "updated product " + next.Name,
		OldValue:    existing,
		NewValue:    next,
		IP:          clientAddr(r),
		UserAgent:   r.UserAgent(),
	})
	respond(w, http.StatusOK, next)
}

func (h *ProductsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := currentIdentity(r)
	id := urlParamInt64(r, "id")
	if id <= 0 {
		fail(w, http.StatusBadRequest, "Invalid product id")
		return
	}
	existing, err := h.products.Get(r.Context(), id)
	if err != nil {
		failServer(w)
		return
	}
	if existing == nil {
		fail(w, http.StatusNotFound, "Product not found")
		return
	}
	if err := h.products.Delete(r.Context(), id); err != nil {
		failServer(w)
		return
	}
	h.recorder.Record(r.Context(), audit.Entry{
		UserID:      actorID(actor),
		Username:    actorName(actor),
		Action:      audit.ActionDelete,
		Module:      "products",
		RecordID:    &id,
		Description: "deleted product " + existing.Name,
		OldValue:    existing,
		IP:          clientAddr(r),
		UserAgent:   r.UserAgent(),
	})
	respondMessage(w, http.StatusOK, "Product deleted")
}

func (h *ProductsHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	actor := currentIdentity(r)
	items, err := collectAllPages(func(page int) ([]store.Product, error) {
		pageItems, _, err := h.products.List(r.Context(), store.ProductFilter{
			VendorID: parseInt64Default(r.URL.Query().Get("vendorId"), 0),
			Page:     page,
			PageSize: exportPageSize,
		})
		return pageItems, err
	})
	if err != nil {
		failServer(w)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="products.csv"`)
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"vendor", "name", "model", "description", "active"})
	for _, p := range items {
		_ = cw.Write([]string{p.VendorName, p.Name, p.Model, p.Description, strconv.FormatBool(p.Active)})
	}
	cw.Flush()
	h.recorder.Record(r.Context(), audit.Entry{
		UserID:      actorID(actor),
		Username:    actorName(actor),
		Action:      audit.ActionExport,
		Module:      "products",
		Description: fmt.Sprintf("exported %d products", len(items)),
		IP:          clientAddr(r),
		UserAgent:   r.UserAgent(),
	})
}
