package handlers

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/shenulal/telematics-io-manager/core/audit"
	"github.com/shenulal/telematics-io-manager/core/store"
	"github.com/shenulal/telematics-io-manager/core/utils"
)

type IOMappingsHandler struct {
	mappings store.IOMappingsStore
	products store.ProductsStore
	ios      store.IOUniversalStore
	recorder *audit.Recorder
	logger   *utils.Logger
}

func NewIOMappingsHandler(mappings store.IOMappingsStore, products store.ProductsStore, ios store.IOUniversalStore, recorder *audit.Recorder, logger *utils.Logger) *IOMappingsHandler {
	return &IOMappingsHandler{mappings: mappings, products: products, ios: ios, recorder: recorder, logger: logger}
}

type ioMappingPayload struct {
	ProductID       int64   `json:"product_id"`
	IOUniversalID   int64   `json:"io_universal_id"`
	RegisterAddress *int64  `json:"register_address"`
	RegisterType    string  `json:"register_type"`
	Scale           float64 `json:"scale"`
	OffsetValue     float64 `json:"offset_value"`
	Notes           string  `json:"notes"`
}

func (p *ioMappingPayload) validate() error {
	if p.ProductID <= 0 {
		return fmt.Errorf("product_id is required")
	}
	if p.IOUniversalID <= 0 {
		return fmt.Errorf("io_universal_id is required")
	}
	if p.RegisterAddress == nil || *p.RegisterAddress < 0 {
		return fmt.Errorf("register_address must be a non-negative number")
	}
	return nil
}

func (h *IOMappingsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, pageSize := pageFromQuery(r)
	items, total, err := h.mappings.List(r.Context(), store.IOMappingFilter{
		Query:     q.Get("search"),
		VendorID:  parseInt64Default(q.Get("vendorId"), 0),
		ProductID: parseInt64Default(q.Get("productId"), 0),
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		failServer(w)
		return
	}
	respondList(w, items, total, page, pageSize)
}

// Tree groups every matching mapping vendor first, then product. It backs
// the catalog browser view.
func (h *IOMappingsHandler) Tree(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tree, err := h.mappings.Tree(r.Context(),
		parseInt64Default(q.Get("vendorId"), 0),
		parseInt64Default(q.Get("productId"), 0))
	if err != nil {
		failServer(w)
		return
	}
	if tree == nil {
		tree = []store.MappingVendorNode{}
	}
	respond(w, http.StatusOK, tree)
}

func (h *IOMappingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := urlParamInt64(r, "id")
	if id <= 0 {
		fail(w, http.StatusBadRequest, "Invalid mapping id")
		return
	}
	m, err := h.mappings.Get(r.Context(), id)
	if err != nil {
		failServer(w)
		return
	}
	if m == nil {
		fail(w, http.StatusNotFound, "Mapping not found")
		return
	}
	respond(w, http.StatusOK, m)
}

func (h *IOMappingsHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := currentIdentity(r)
	var payload ioMappingPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := payload.validate(); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	product, err := h.products.Get(r.Context(), payload.ProductID)
	if err != nil {
		failServer(w)
		return
	}
	if product == nil {
		fail(w, http.StatusBadRequest, "Product does not exist")
		return
	}
	param, err := h.ios.Get(r.Context(), payload.IOUniversalID)
	if err != nil {
		failServer(w)
		return
	}
	if param == nil {
		fail(w, http.StatusBadRequest, "Universal parameter does not exist")
		return
	}
	m := &store.IOMapping{
		VendorID:        product.VendorID,
		ProductID:       payload.ProductID,
		IOUniversalID:   payload.IOUniversalID,
		RegisterAddress: *payload.RegisterAddress,
		RegisterType:    payload.RegisterType,
		Scale:           payload.Scale,
		OffsetValue:     payload.OffsetValue,
		Notes:           payload.Notes,
	}
	id, err := h.mappings.Create(r.Context(), m)
	if err != nil {
		if store.IsUniqueViolation(err) {
			fail(w, http.StatusBadRequest, "This parameter is already mapped for the product")
			return
		}
		failServer(w)
		return
	}
	m.VendorName = product.VendorName
	m.ProductName = product.Name
	m.IOName = param.Name
	m.IOID = param.IOID
	h.recorder.Record(r.Context(), audit.Entry{
		UserID:      actorID(actor),
		Username:    actorName(actor),
		Action:      audit.ActionCreate,
		Module:      "io_mappings",
		RecordID:    &id,
		Description: fmt.Sprintf("mapped %s to %s/%s", param.Name, product.VendorName, product.Name),
		NewValue:    m,
		IP:          clientAddr(r),
		UserAgent:   r.UserAgent(),
	})
	respond(w, http.StatusCreated, m)
}

func (h *IOMappingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor := currentIdentity(r)
	id := urlParamInt64(r, "id")
	if id <= 0 {
		fail(w, http.StatusBadRequest, "Invalid mapping id")
		return
	}
	existing, err := h.mappings.Get(r.Context(), id)
	if err != nil {
		failServer(w)
		return
	}
	if existing == nil {
		fail(w, http.StatusNotFound, "Mapping not found")
		return
	}
	var payload ioMappingPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if payload.ProductID == 0 {
		payload.ProductID = existing.ProductID
	}
	if payload.IOUniversalID == 0 {
		payload.IOUniversalID = existing.IOUniversalID
	}
	if payload.RegisterAddress == nil {
		payload.RegisterAddress = &existing.RegisterAddress
	}
	if err := payload.validate(); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	next := *existing
	next.IOUniversalID = payload.IOUniversalID
	next.RegisterAddress = *payload.RegisterAddress
	next.RegisterType = payload.RegisterType
	next.Scale = payload.Scale
	next.OffsetValue = payload.OffsetValue
	next.Notes = payload.Notes
	if next.Scale == 0 {
		next.Scale = 1
	}
	if payload.ProductID != existing.ProductID {
		product, err := h.products.Get(r.Context(), payload.ProductID)
		if err != nil {
			failServer(w)
			return
		}
		if product == nil {
			fail(w, http.StatusBadRequest, "Product does not exist")
			return
		}
		next.ProductID = product.ID
		next.VendorID = product.VendorID
	}
	if err := h.mappings.Update(r.Context(), &next); err != nil {
		if store.IsUniqueViolation(err) {
			fail(w, http.StatusBadRequest, "This parameter is already mapped for the product")
			return
		}
		failServer(w)
		return
	}
	h.recorder.Record(r.Context(), audit.Entry{
		UserID:      actorID(actor),
		Username:    actorName(actor),
		Action:      audit.ActionUpdate,
		Module:      "io_mappings",
		RecordID:    &id,
		Description: "updated mapping",
		OldValue:    existing,
		NewValue:    next,
		IP:          clientAddr(r),
		UserAgent:   r.UserAgent(),
	})
	respond(w, http.StatusOK, next)
}

func (h *IOMappingsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := currentIdentity(r)
	id := urlParamInt64(r, "id")
	if id <= 0 {
		fail(w, http.StatusBadRequest, "Invalid mapping id")
		return
	}
	existing, err := h.mappings.Get(r.Context(), id)
	if err != nil {
		failServer(w)
		return
	}
	if existing == nil {
		fail(w, http.StatusNotFound, "Mapping not found")
		return
	}
	if err := h.mappings.Delete(r.Context(), id); err != nil {
		failServer(w)
		return
	}
	h.recorder.Record(r.Context(), audit.Entry{
		UserID:      actorID(actor),
		Username:    actorName(actor),
		Action:      audit.ActionDelete,
		Module:      "io_mappings",
		RecordID:    &id,
		Description: "deleted mapping",
		OldValue:    existing,
		IP:          clientAddr(r),
		UserAgent:   r.UserAgent(),
	})
	respondMessage(w, http.StatusOK, "Mapping deleted")
}

func (h *IOMappingsHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	actor := currentIdentity(r)
	q := r.URL.Query()
	items, err := collectAllPages(func(page int) ([]store.IOMapping, error) {
		pageItems, _, err := h.mappings.List(r.Context(), store.IOMappingFilter{
			VendorID:  parseInt64Default(q.Get("vendorId"), 0),
			ProductID: parseInt64Default(q.Get("productId"), 0),
			Page:      page,
			PageSize:  exportPageSize,
		})
		return pageItems, err
	})
	if err != nil {
		failServer(w)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="io_mappings.csv"`)
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"vendor", "product", "io_id", "io_name", "register_address", "register_type", "scale", "offset_value", "notes"})
	for _, m := range items {
		_ = cw.Write([]string{
			m.VendorName,
			m.ProductName,
			strconv.FormatInt(m.IOID, 10),
			m.IOName,
			strconv.FormatInt(m.RegisterAddress, 10),
			m.RegisterType,
			strconv.FormatFloat(m.Scale, 'f', -1, 64),
			strconv.FormatFloat(m.OffsetValue, 'f', -1, 64),
			m.Notes,
		})
	}
	cw.Flush()
	h.recorder.Record(r.Context(), audit.Entry{
		UserID:      actorID(actor),
		Username:    actorName(actor),
		Action:      audit.ActionExport,
		Module:      "io_mappings",
		Description: fmt.Sprintf("exported %d mappings", len(items)),
		IP:          clientAddr(r),
		UserAgent:   r.UserAgent(),
	})
}
