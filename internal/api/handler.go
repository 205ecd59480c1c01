package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/hearth-home/hearth/internal/biz"
	"github.com/hearth-home/hearth/internal/biz/domain"
	"github.com/hearth-home/hearth/internal/biz/repo"
	"github.com/hearth-home/hearth/internal/biz/usecase"
)

// Handler serves the read-only household API used by the dashboard
type Handler struct {
	bufferUC   *usecase.BufferUsecase
	usersUC    *usecase.UserUsecase
	tools      *usecase.ToolRegistry
	pantryRepo repo.PantryRepo
	logger     *zap.Logger
}

// NewHandler creates a new API handler
func NewHandler(uc *biz.Usecases, pantryRepo repo.PantryRepo, logger *zap.Logger) *Handler {
	return &Handler{
		bufferUC:   uc.Buffer,
		usersUC:    uc.Users,
		tools:      uc.Tools,
		pantryRepo: pantryRepo,
		logger:     logger.Named("api"),
	}
}

// Register mounts the API routes on mux
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/buffers", h.handleBuffers)
	mux.HandleFunc("GET /api/schedule", h.handleSchedule)
	mux.HandleFunc("GET /api/shopping", h.handleShopping)
	mux.HandleFunc("GET /api/pantry", h.handlePantry)
	mux.HandleFunc("GET /api/users/resolve", h.handleResolve)
	mux.HandleFunc("GET /api/contacts", h.handleContacts)
}

// ============ Buffer Handlers ============

func (h *Handler) handleBuffers(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.bufferUC.Summaries(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if summaries == nil {
		summaries = []*domain.BufferSummary{}
	}
	h.writeJSON(w, map[string]interface{}{"buffers": summaries})
}

// ============ Household Handlers ============

func (h *Handler) handleSchedule(w http.ResponseWriter, r *http.Request) {
	args := map[string]any{
		"from": r.URL.Query().Get("from"),
		"to":   r.URL.Query().Get("to"),
	}
	h.runReadTool(r.Context(), w, domain.ToolGetSchedule, args, domain.UserContext{})
}

func (h *Handler) handleShopping(w http.ResponseWriter, r *http.Request) {
	owner := strings.TrimSpace(r.URL.Query().Get("owner"))
	if owner == "" {
		http.Error(w, "owner is required", http.StatusBadRequest)
		return
	}
	args := map[string]any{"listName": r.URL.Query().Get("list")}
	h.runReadTool(r.Context(), w, domain.ToolGetShoppingList, args, domain.UserContext{ActingID: owner})
}

// runReadTool answers with the same data the assistant sees through the tool
func (h *Handler) runReadTool(ctx context.Context, w http.ResponseWriter, kind domain.ToolKind, args map[string]any, user domain.UserContext) {
	result, _ := h.tools.Execute(ctx, domain.ToolCall{ID: "api", Name: string(kind), Args: args}, user)
	if !result.Success {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": result.Error})
		return
	}
	h.writeJSON(w, result)
}

func (h *Handler) handlePantry(w http.ResponseWriter, r *http.Request) {
	items, err := h.pantryRepo.ListAll(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if items == nil {
		items = []*domain.PantryItem{}
	}
	h.writeJSON(w, map[string]interface{}{"items": items})
}

// ============ User Handlers ============

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	phone := strings.TrimSpace(r.URL.Query().Get("phone"))
	if phone == "" {
		http.Error(w, "phone is required", http.StatusBadRequest)
		return
	}

	user, err := h.usersUC.Resolve(r.Context(), phone)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, map[string]interface{}{
		"acting_id":       user.ActingID,
		"display_name":    user.DisplayName,
		"address":         user.Address,
		"is_collaborator": user.IsCollaborator,
	})
}

func (h *Handler) handleContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.usersUC.Contacts(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if contacts == nil {
		contacts = []string{}
	}
	h.writeJSON(w, map[string]interface{}{"contacts": contacts})
}

// ============ Helpers ============

func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	h.logger.Error("request failed", zap.Error(err))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
