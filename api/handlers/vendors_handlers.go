package handlers

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/shenulal/telematics-io-manager/core/audit"
	"github.com/shenulal/telematics-io-manager/core/store"
	"github.com/shenulal/telematics-io-manager/core/utils"
)

type VendorsHandler struct {
	vendors  store.VendorsStore
	recorder *audit.Recorder
	logger   *utils.Logger
}

func NewVendorsHandler(vendors store.VendorsStore, recorder *audit.Recorder, logger *utils.Logger) *VendorsHandler {
	return &VendorsHandler{vendors: vendors, recorder: recorder, logger: logger}
}

type vendorPayload struct {
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description"`
	Active      *bool  `json:"active"`
}

func (p *vendorPayload) validate() error {
	p.Name = strings.TrimSpace(p.Name)
	p.Code = strings.ToUpper(strings.TrimSpace(p.Code))
	if p.Name == "" {
		return fmt.Errorf("vendor name is required")
	}
	if p.Code == "" {
		return fmt.Errorf("vendor code is required")
	}
	if len(p.Code) > 16 {
		return fmt.Errorf("vendor code too long (max 16 chars)")
	}
	return nil
}

func (h *VendorsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, pageSize := pageFromQuery(r)
	items, total, err := h.vendors.List(r.Context(), store.VendorFilter{
		Query:    q.Get("search"),
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

func (h *VendorsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := urlParamInt64(r, "id")
	if id <= 0 {
		fail(w, http.StatusBadRequest, "Invalid vendor id")
		return
	}
	v, err := h.vendors.Get(r.Context(), id)
	if err != nil {
		failServer(w)
		return
	}
	if v == nil {
		fail(w, http.StatusNotFound, "Vendor not found")
		return
	}
	respond(w, http.StatusOK, v)
}

func (h *VendorsHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := currentIdentity(r)
	var payload vendorPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := payload.validate(); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	active := true
	if payload.Active != nil {
		active = *payload.Active
	}
	v := &store.Vendor{Name: payload.Name, Code: payload.Code, Description: payload.Description, Active: active}
	id, err := h.vendors.Create(r.Context(), v)
	if err != nil {
		if store.IsUniqueViolation(err) {
			fail(w, http.StatusBadRequest, "Vendor name or code already exists")
			return
		}
		failServer(w)
		return
	}
	h.recorder.Record(r.Context(), audit.Entry{
		UserID:      actorID(actor),
		Username:    actorName(actor),
		Action:      audit.ActionCreate,
		Module:      "vendors",
		RecordID:    &id,
		Description: "created vendor " + v.Name,
		NewValue:    v,
		IP:          clientAddr(r),
		UserAgent:   r.UserAgent(),
	})
	respond(w, http.StatusCreated, v)
}

func (h *VendorsHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor := currentIdentity(r)
	id := urlParamInt64(r, "id")
	if id <= 0 {
		fail(w, http.StatusBadRequest, "Invalid vendor id")
		return
	}
	existing, err := h.vendors.Get(r.Context(), id)
	if err != nil {
		failServer(w)
		return
	}
	if existing == nil {
		fail(w, http.StatusNotFound, "Vendor not found")
		return
	}
	var payload vendorPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := payload.validate(); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	next := *existing
	next.Name = payload.Name
	next.Code = payload.Code
	next.Description = payload.Description
	if payload.Active != nil {
		next.Active = *payload.Active
	}
	if err := h.vendors.Update(r.Context(), &next); err != nil {
		if store.IsUniqueViolation(err) {
			fail(w, http.StatusBadRequest, "Vendor name or code already exists")
			return
		}
		failServer(w)
		return
	}
	h.recorder.Record(r.Context(), audit.Entry{
		UserID:      actorID(actor),
		Username:    actorName(actor),
		Action:      audit.ActionUpdate,
		Module:      "vendors",
		RecordID:    &id,
		Description: "updated vendor " + next.Name,
		OldValue:    existing,
		NewValue:    next,
		IP:          clientAddr(r),
		UserAgent:   r.UserAgent(),
	})
	respond(w, http.StatusOK, next)
}

func (h *VendorsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := currentIdentity(r)
	id := urlParamInt64(r, "id")
	if id <= 0 {
		fail(w, http.StatusBadRequest, "Invalid vendor id")
		return
	}
	existing, err := h.vendors.Get(r.Context(), id)
	if err != nil {
		failServer(w)
		return
	}
	if existing == nil {
		fail(w, http.StatusNotFound, "Vendor not found")
		return
	}
	if err := h.vendors.Delete(r.Context(), id); err != nil {
		failServer(w)
		return
	}
	h.recorder.Record(r.Context(), audit.Entry{
		UserID:      actorID(actor),
		Username:    actorName(actor),
		Action:      audit.ActionDelete,
		Module:      "vendors",
		RecordID:    &id,
		Description: "deleted vendor " + existing.Name,
		OldValue:    existing,
		IP:          clientAddr(r),
		UserAgent:   r.UserAgent(),
	})
	respondMessage(w, http.StatusOK, "Vendor deleted")
}

func (h *VendorsHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	actor := currentIdentity(r)
	items, err := collectAllPages(func(page int) ([]store.Vendor, error) {
		pageItems, _, err := h.vendors.List(r.Context(), store.VendorFilter{Page: page, PageSize: exportPageSize})
		return pageItems, err
	})
	if err != nil {
		failServer(w)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="vendors.csv"`)
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"name", "code", "description", "active"})
	for _, v := range items {
		_ = cw.Write([]string{v.Name, v.Code, v.Description, strconv.FormatBool(v.Active)})
	}
	cw.Flush()
	h.recorder.Record(r.Context(), audit.Entry{
		UserID:      actorID(actor),
		Username:    actorName(actor),
		Action:      audit.ActionExport,
		Module:      "vendors",
		Description: fmt.Sprintf("exported %d vendors", len(items)),
		IP:          clientAddr(r),
		UserAgent:   r.UserAgent(),
	})
}

// ImportCSV accepts the export format back. Each row is validated and
// inserted independently; the response reports per-row failures instead of
// aborting the whole file.
func (h *VendorsHandler) ImportCSV(w http.ResponseWriter, r *http.Request) {
	actor := currentIdentity(r)
	reader, err := csvReaderFromRequest(r)
	if err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	header, err := reader.Read()
	if err != nil {
		fail(w, http.StatusBadRequest, "Empty or unreadable CSV")
		return
	}
	cols := csvColumnIndex(header)
	nameIdx, ok := cols["name"]
	if !ok {
		fail(w, http.StatusBadRequest, "CSV must have a name column")
		return
	}
	codeIdx, ok := cols["code"]
	if !ok {
		fail(w, http.StatusBadRequest, "CSV must have a code column")
		return
	}

	report := newImportReport()
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			report.fail(line, "unreadable row")
			continue
		}
		payload := vendorPayload{
			Name: csvField(row, nameIdx),
			Code: csvField(row, codeIdx),
		}
		if idx, ok := cols["description"]; ok {
			payload.Description = csvField(row, idx)
		}
		active := true
		if idx, ok := cols["active"]; ok {
			if b := parseBoolParam(csvField(row, idx)); b != nil {
				active = *b
			}
		}
		if err := payload.validate(); err != nil {
			report.fail(line, err.Error())
			continue
		}
		v := &store.Vendor{Name: payload.Name, Code: payload.Code, Description: payload.Description, Active: active}
		if _, err := h.vendors.Create(r.Context(), v); err != nil {
			if store.IsUniqueViolation(err) {
				report.fail(line, "duplicate vendor name or code")
			} else {
				report.fail(line, "store error")
			}
			continue
		}
		report.Imported++
	}
	h.recorder.Record(r.Context(), audit.Entry{
		UserID:      actorID(actor),
		Username:    actorName(actor),
		Action:      audit.ActionImport,
		Module:      "vendors",
		Description: fmt.Sprintf("imported %d vendors, %d failed", report.Imported, len(report.Errors)),
		IP:          clientAddr(r),
		UserAgent:   r.UserAgent(),
	})
	respond(w, http.StatusOK, report)
}
