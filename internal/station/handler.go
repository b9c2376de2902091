package station

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-charging-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-charging-go/internal/httpx"
	"github.com/ovaphlow/pitchfork/service-charging-go/internal/station/entity"
)

// Handler exposes the charging station endpoints. Every route sits behind
// the auth middleware.
type Handler struct {
	svc    *Service
	resp   *httpx.Responder
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, resp *httpx.Responder, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, resp: resp, logger: logger}
}

// DeleteResponse confirms a deletion with the removed record.
type DeleteResponse struct {
	Message        string          `json:"message"`
	DeletedStation *entity.Station `json:"deletedStation"`
}

func caller(r *http.Request) string {
	id, _ := auth.IdentityFrom(r.Context())
	return id.UserID
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		h.resp.Error(w, r, "station.list", err)
		return
	}
	list, err := h.svc.List(r.Context(), f)
	if err != nil {
		h.resp.Error(w, r, "station.list", err)
		return
	}
	h.resp.JSON(w, http.StatusOK, list)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	st, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.resp.Error(w, r, "station.get", err, "station_id", id)
		return
	}
	h.resp.JSON(w, http.StatusOK, st)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.Decode(w, r, &in); err != nil {
		h.resp.Error(w, r, "station.create", err)
		return
	}
	owner := caller(r)
	st, err := h.svc.Create(r.Context(), in, owner)
	if err != nil {
		h.resp.Error(w, r, "station.create", err, "user_id", owner)
		return
	}
	h.logger.Infow("station created", "station_id", st.ID, "user_id", owner)
	h.resp.JSON(w, http.StatusCreated, st)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := CheckID(id); err != nil {
		h.resp.Error(w, r, "station.update", err, "station_id", id)
		return
	}
	var in Input
	if err := httpx.Decode(w, r, &in); err != nil {
		h.resp.Error(w, r, "station.update", err, "station_id", id)
		return
	}
	st, err := h.svc.Update(r.Context(), id, in, caller(r))
	if err != nil {
		h.resp.Error(w, r, "station.update", err, "station_id", id, "user_id", caller(r))
		return
	}
	h.resp.JSON(w, http.StatusOK, st)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	st, err := h.svc.Delete(r.Context(), id, caller(r))
	if err != nil {
		h.resp.Error(w, r, "station.delete", err, "station_id", id, "user_id", caller(r))
		return
	}
	h.logger.Infow("station deleted", "station_id", id, "user_id", caller(r))
	h.resp.JSON(w, http.StatusOK, DeleteResponse{Message: "Charging station deleted successfully", DeletedStation: st})
}
