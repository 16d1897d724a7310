package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/relatoapp/relato/pkg/equipment"
	"github.com/relatoapp/relato/pkg/httputil"
	"github.com/relatoapp/relato/pkg/permissions"
	"github.com/relatoapp/relato/pkg/tenant"
)

// CatalogHandlers owns sectors, locations, and the equipment registry.
type CatalogHandlers struct {
	deps Deps
}

func (h *CatalogHandlers) RegisterRoutes(r *mux.Router, w wrappers) {
	r.Handle("/setores", w.scoped(w.perm(permissions.ResourceSetores, permissions.ActionCriar, h.createSector))).Methods("POST")
	r.Handle("/setores", w.scoped(w.perm(permissions.ResourceSetores, permissions.ActionVisualizar, h.listSectors))).Methods("GET")
	r.Handle("/setores/{id}", w.scoped(w.perm(permissions.ResourceSetores, permissions.ActionExcluir, h.deleteSector))).Methods("DELETE")

	r.Handle("/locais", w.scoped(w.perm(permissions.ResourceLocais, permissions.ActionCriar, h.createLocation))).Methods("POST")
	r.Handle("/locais", w.scoped(w.perm(permissions.ResourceLocais, permissions.ActionVisualizar, h.listLocations))).Methods("GET")
	r.Handle("/locais/{id}", w.scoped(w.perm(permissions.ResourceLocais, permissions.ActionExcluir, h.deleteLocation))).Methods("DELETE")

	res := permissions.ResourceEquipamentos
	r.Handle("/equipamentos", w.scoped(w.perm(res, permissions.ActionCriar, h.createEquipment))).Methods("POST")
	r.Handle("/equipamentos", w.scoped(w.perm(res, permissions.ActionVisualizar, h.listEquipment))).Methods("GET")
	r.Handle("/equipamentos/{id}", w.scoped(w.perm(res, permissions.ActionVisualizar, h.getEquipment))).Methods("GET")
	r.Handle("/equipamentos/{id}", w.scoped(w.perm(res, permissions.ActionEditar, h.updateEquipment))).Methods("PUT")
	r.Handle("/equipamentos/{id}", w.scoped(w.perm(res, permissions.ActionExcluir, h.deleteEquipment))).Methods("DELETE")
}

type sectorRequest struct {
	Name string `json:"name"`
}

func (h *CatalogHandlers) createSector(w http.ResponseWriter, r *http.Request) {
	scope, _ := tenant.FromContext(r.Context())
	var req sectorRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.ValidateAll(w, httputil.RequireNonEmpty("name", req.Name)) {
		return
	}
	sector := &equipment.Sector{Name: req.Name}
	if err := h.deps.Catalog.CreateSector(r.Context(), scope, sector); err != nil {
		writeDomainErr(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Envelope{Success: true, Data: sector})
}

func (h *CatalogHandlers) listSectors(w http.ResponseWriter, r *http.Request) {
	scope, _ := tenant.FromContext(r.Context())
	sectors, err := h.deps.Catalog.ListSectors(r.Context(), scope)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	httputil.WriteSuccess(w, "", sectors)
}

func (h *CatalogHandlers) deleteSector(w http.ResponseWriter, r *http.Request) {
	scope, _ := tenant.FromContext(r.Context())
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if err := h.deps.Catalog.DeleteSector(r.Context(), scope, id); err != nil {
		writeDomainErr(w, err)
		return
	}
	httputil.WriteSuccess(w, "setor removido", nil)
}

type locationRequest struct {
	Name     string `json:"name"`
	SectorID *int64 `json:"sector_id"`
}

func (h *CatalogHandlers) createLocation(w http.ResponseWriter, r *http.Request) {
	scope, _ := tenant.FromContext(r.Context())
	var req locationRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.ValidateAll(w, httputil.RequireNonEmpty("name", req.Name)) {
		return
	}
	loc := &equipment.Location{Name: req.Name, SectorID: req.SectorID}
	if err := h.deps.Catalog.CreateLocation(r.Context(), scope, loc); err != nil {
		writeDomainErr(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Envelope{Success: true, Data: loc})
}

func (h *CatalogHandlers) listLocations(w http.ResponseWriter, r *http.Request) {
	scope, _ := tenant.FromContext(r.Context())
	locations, err := h.deps.Catalog.ListLocations(r.Context(), scope)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	httputil.WriteSuccess(w, "", locations)
}

func (h *CatalogHandlers) deleteLocation(w http.ResponseWriter, r *http.Request) {
	scope, _ := tenant.FromContext(r.Context())
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if err := h.deps.Catalog.DeleteLocation(r.Context(), scope, id); err != nil {
		writeDomainErr(w, err)
		return
	}
	httputil.WriteSuccess(w, "local removido", nil)
}

type equipmentRequest struct {
	Name       string `json:"name"`
	Tag        string `json:"tag"`
	Status     string `json:"status"`
	SectorID   *int64 `json:"sector_id"`
	LocationID *int64 `json:"location_id"`
}

func (h *CatalogHandlers) createEquipment(w http.ResponseWriter, r *http.Request) {
	scope, _ := tenant.FromContext(r.Context())
	var req equipmentRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.ValidateAll(w,
		httputil.RequireNonEmpty("name", req.Name),
		httputil.RequireNonEmpty("tag", req.Tag),
	) {
		return
	}
	if req.Status != "" && !equipment.ValidStatus(req.Status) {
		httputil.WriteErr(w, httputil.Validation("dados inválidos", "status desconhecido"))
		return
	}

	if err := h.deps.Orgs.CheckEquipmentLimit(r.Context(), scope.OrgID()); err != nil {
		writeDomainErr(w, err)
		return
	}

	e := &equipment.Equipment{
		Name:       req.Name,
		Tag:        req.Tag,
		Status:     req.Status,
		SectorID:   req.SectorID,
		LocationID: req.LocationID,
	}
	if err := h.deps.Catalog.CreateEquipment(r.Context(), scope, e); err != nil {
		writeDomainErr(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Envelope{Success: true, Data: e})
}

func (h *CatalogHandlers) listEquipment(w http.ResponseWriter, r *http.Request) {
	scope, _ := tenant.FromContext(r.Context())
	list, err := h.deps.Catalog.ListEquipment(r.Context(), scope)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	httputil.WriteSuccess(w, "", list)
}

func (h *CatalogHandlers) getEquipment(w http.ResponseWriter, r *http.Request) {
	scope, _ := tenant.FromContext(r.Context())
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	e, err := h.deps.Catalog.GetEquipment(r.Context(), scope, id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	httputil.WriteSuccess(w, "", e)
}

func (h *CatalogHandlers) updateEquipment(w http.ResponseWriter, r *http.Request) {
	scope, _ := tenant.FromContext(r.Context())
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req equipmentRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	e, err := h.deps.Catalog.GetEquipment(r.Context(), scope, id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	if req.Name != "" {
		e.Name = req.Name
	}
	if req.Tag != "" {
		e.Tag = req.Tag
	}
	if req.Status != "" {
		if !equipment.ValidStatus(req.Status) {
			httputil.WriteErr(w, httputil.Validation("dados inválidos", "status desconhecido"))
			return
		}
		e.Status = req.Status
	}
	if req.SectorID != nil {
		e.SectorID = req.SectorID
	}
	if req.LocationID != nil {
		e.LocationID = req.LocationID
	}
	if err := h.deps.Catalog.UpdateEquipment(r.Context(), scope, e); err != nil {
		writeDomainErr(w, err)
		return
	}
	httputil.WriteSuccess(w, "", e)
}

func (h *CatalogHandlers) deleteEquipment(w http.ResponseWriter, r *http.Request) {
	scope, _ := tenant.FromContext(r.Context())
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if err := h.deps.Catalog.DeleteEquipment(r.Context(), scope, id); err != nil {
		writeDomainErr(w, err)
		return
	}
	httputil.WriteSuccess(w, "equipamento removido", nil)
}
