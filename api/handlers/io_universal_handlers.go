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

type IOUniversalHandler struct {
	ios      store.IOUniversalStore
	recorder *audit.Recorder
	logger   *utils.Logger
}

func NewIOUniversalHandler(ios store.IOUniversalStore, recorder *audit.Recorder, logger *utils.Logger) *IOUniversalHandler {
	return &IOUniversalHandler{ios: ios, recorder: recorder, logger: logger}
}

type ioUniversalPayload struct {
	IOID        int64  `json:"io_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	DataType    string `json:"data_type"`
	Unit        string `json:"unit"`
	Category    string `json:"category"`
}

func (p *ioUniversalPayload) validate() error {
	p.Name = strings.TrimSpace(p.Name)
	if p.IOID <= 0 {
		return fmt.Errorf("io_id must be a positive number")
	}
	if p.Name == "" {
		return fmt.Errorf("parameter name is required")
	}
	return nil
}

func (h *IOUniversalHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, pageSize := pageFromQuery(r)
	items, total, err := h.ios.List(r.Context(), store.IOUniversalFilter{
		Query:    q.Get("search"),
		Category: q.Get("category"),
		DataType: q.Get("dataType"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		failServer(w)
		return
	}
	respondList(w, items, total, page, pageSize)
}

func (h *IOUniversalHandler) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.ios.Categories(r.Context())
	if err != nil {
		failServer(w)
		return
	}
	respond(w, http.StatusOK, cats)
}

func (h *IOUniversalHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := urlParamInt64(r, "id")
	if id <= 0 {
		fail(w, http.StatusBadRequest, "Invalid parameter id")
		return
	}
	item, err := h.ios.Get(r.Context(), id)
	if err != nil {
		failServer(w)
		return
	}
	if item == nil {
		fail(w, http.StatusNotFound, "Parameter not found")
		return
	}
	respond(w, http.StatusOK, item)
}

func (h *IOUniversalHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := currentIdentity(r)
	var payload ioUniversalPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := payload.validate(); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	item := &store.IOUniversal{
		IOID:        payload.IOID,
		Name:        payload.Name,
		Description: payload.Description,
		DataType:    payload.DataType,
		Unit:        payload.Unit,
		Category:    payload.Category,
	}
	id, err := h.ios.Create(r.Context(), item)
	if err != nil {
		if store.IsUniqueViolation(err) {
			fail(w, http.StatusBadRequest, "IO id already exists")
			return
		}
		failServer(w)
		return
	}
	h.recorder.Record(r.Context(), audit.Entry{
		UserID:      actorID(actor),
		Username:    actorName(actor),
		Action:      audit.ActionCreate,
		Module:      "io_universal",
		RecordID:    &id,
		Description: "created parameter " + item.Name,
		NewValue:    item,
		IP:          clientAddr(r),
		UserAgent:   r.UserAgent(),
	})
	respond(w, http.StatusCreated, item)
}

func (h *IOUniversalHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor := currentIdentity(r)
	id := urlParamInt64(r, "id")
	if id <= 0 {
		fail(w, http.StatusBadRequest, "Invalid parameter id")
		return
	}
	existing, err := h.ios.Get(r.Context(), id)
	if err != nil {
		failServer(w)
		return
	}
	if existing == nil {
		fail(w, http.StatusNotFound, "Parameter not found")
		return
	}
	var payload ioUniversalPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if payload.IOID == 0 {
		payload.IOID = existing.IOID
	}
	if err := payload.validate(); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	next := *existing
	next.IOID = payload.IOID
	next.Name = payload.Name
	next.Description = payload.Description
	next.DataType = payload.DataType
	next.Unit = payload.Unit
	next.Category = payload.Category
	if err := h.ios.Update(r.Context(), &next); err != nil {
		if store.IsUniqueViolation(err) {
			fail(w, http.StatusBadRequest, "IO id already exists")
			return
		}
		failServer(w)
		return
	}
	h.recorder.Record(r.Context(), audit.Entry{
		UserID:      actorID(actor),
		Username:    actorName(actor),
		Action:      audit.ActionUpdate,
		Module:      "io_universal",
		RecordID:    &id,
		Description: "updated parameter " + next.Name,
		OldValue:    existing,
		NewValue:    next,
		IP:          clientAddr(r),
		UserAgent:   r.UserAgent(),
	})
	respond(w, http.StatusOK, next)
}

func (h *IOUniversalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := currentIdentity(r)
	id := urlParamInt64(r, "id")
	if id <= 0 {
		fail(w, http.StatusBadRequest, "Invalid parameter id")
		return
	}
	existing, err := h.ios.Get(r.Context(), id)
	if err != nil {
		failServer(w)
		return
	}
	if existing == nil {
		fail(w, http.StatusNotFound, "Parameter not found")
		return
	}
	if err := h.ios.Delete(r.Context(), id); err != nil {
		failServer(w)
		return
	}
	h.recorder.Record(r.Context(), audit.Entry{
		UserID:      actorID(actor),
		Username:    actorName(actor),
		Action:      audit.ActionDelete,
		Module:      "io_universal",
		RecordID:    &id,
		Description: "deleted parameter " + existing.Name,
		OldValue:    existing,
		IP:          clientAddr(r),
		UserAgent:   r.UserAgent(),
	})
	respondMessage(w, http.StatusOK, "Parameter deleted")
}

func (h *IOUniversalHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	actor := currentIdentity(r)
	items, err := collectAllPages(func(page int) ([]store.IOUniversal, error) {
		pageItems, _, err := h.ios.List(r.Context(), store.IOUniversalFilter{Page: page, PageSize: exportPageSize})
		return pageItems, err
	})
	if err != nil {
		failServer(w)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="io_universal.csv"`)
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"io_id", "name", "description", "data_type", "unit", "category"})
	for _, item := range items {
		_ = cw.Write([]string{strconv.FormatInt(item.IOID, 10), item.Name, item.Description, item.DataType, item.Unit, item.Category})
	}
	cw.Flush()
	h.recorder.Record(r.Context(), audit.Entry{
		UserID:      actorID(actor),
		Username:    actorName(actor),
		Action:      audit.ActionExport,
		Module:      "io_universal",
		Description: fmt.Sprintf("exported %d parameters", len(items)),
		IP:          clientAddr(r),
		UserAgent:   r.UserAgent(),
	})
}

func (h *IOUniversalHandler) ImportCSV(w http.ResponseWriter, r *http.Request) {
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
	ioIdx, ok := cols["io_id"]
	if !ok {
		fail(w, http.StatusBadRequest, "CSV must have an io_id column")
		return
	}
	nameIdx, ok := cols["name"]
	if !ok {
		fail(w, http.StatusBadRequest, "CSV must have a name column")
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
		payload := ioUniversalPayload{
			IOID: parseInt64Default(csvField(row, ioIdx), 0),
			Name: csvField(row, nameIdx),
		}
		if idx, ok := cols["description"]; ok {
			payload.Description = csvField(row, idx)
		}
		if idx, ok := cols["data_type"]; ok {
			payload.DataType = csvField(row, idx)
		}
		if idx, ok := cols["unit"]; ok {
			payload.Unit = csvField(row, idx)
		}
		if idx, ok := cols["category"]; ok {
			payload.Category = csvField(row, idx)
		}
		if err := payload.validate(); err != nil {
			report.fail(line, err.Error())
			continue
		}
		item := &store.IOUniversal{
			IOID:        payload.IOID,
			Name:        payload.Name,
			Description: payload.Description,
			DataType:    payload.DataType,
			Unit:        payload.Unit,
			Category:    payload.Category,
		}
		if _, err := h.ios.Create(r.Context(), item); err != nil {
			if store.IsUniqueViolation(err) {
				report.fail(line, "duplicate io_id")
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
		Module:      "io_universal",
		Description: fmt.Sprintf("imported %d parameters, %d failed", report.Imported, len(report.Errors)),
		IP:          clientAddr(r),
		UserAgent:   r.UserAgent(),
	})
	respond(w, http.StatusOK, report)
}
