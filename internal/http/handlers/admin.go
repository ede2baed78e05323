package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/hongminglow/anonboard/internal/http/respond"
	"github.com/hongminglow/anonboard/internal/models"
)

const defaultBanReason = "Violation of community guidelines"

// RegisterAdmin attaches the moderation routes the client's forced-logout
// path is exercised against.
func (h *AuthHandler) RegisterAdmin(r *mux.Router) {
	r.HandleFunc("/admin/users/{id:[0-9]+}/ban", h.requireAccount(h.requireAdmin(h.handleBan))).Methods(http.MethodPost)
	r.HandleFunc("/admin/users/{id:[0-9]+}/unban", h.requireAccount(h.requireAdmin(h.handleUnban))).Methods(http.MethodPost)
}

func (h *AuthHandler) requireAdmin(next accountHandler) accountHandler {
	return func(w http.ResponseWriter, r *http.Request, account models.Account) {
		if account.Role != models.RoleAdmin {
			respond.Error(w, http.StatusForbidden, "Admin access required")
			return
		}
		next(w, r, account)
	}
}

func (h *AuthHandler) handleBan(w http.ResponseWriter, r *http.Request, admin models.Account) {
	target, ok := h.target(w, r)
	if !ok {
		return
	}
	if target.ID == admin.ID {
		respond.Error(w, http.StatusBadRequest, "Admins cannot ban themselves")
		return
	}

	reason := strings.TrimSpace(r.URL.Query().Get("reason"))
	if reason == "" {
		reason = defaultBanReason
	}
	target.BanReason = reason
	target.BannedUntil = nil
	if days, err := strconv.Atoi(r.URL.Query().Get("durationDays")); err == nil && days > 0 {
		until := h.now().Add(time.Duration(days) * 24 * time.Hour)
		target.BannedUntil = &until
	}
	if !h.save(r.Context(), w, target) {
		return
	}
	slog.Info("devserver.user.banned", "admin_id", admin.ID, "user_id", target.ID, "reason", reason)
	respond.JSON(w, http.StatusOK, target.Profile())
}

func (h *AuthHandler) handleUnban(w http.ResponseWriter, r *http.Request, admin models.Account) {
	target, ok := h.target(w, r)
	if !ok {
		return
	}
	target.BanReason = ""
	target.BannedUntil = nil
	if !h.save(r.Context(), w, target) {
		return
	}
	slog.Info("devserver.user.unbanned", "admin_id", admin.ID, "user_id", target.ID)
	respond.JSON(w, http.StatusOK, target.Profile())
}

func (h *AuthHandler) target(w http.ResponseWriter, r *http.Request) (models.Account, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid user id")
		return models.Account{}, false
	}
	account, err := h.store.FindByID(r.Context(), id)
	if err != nil {
		respond.Error(w, http.StatusNotFound, "User not found")
		return models.Account{}, false
	}
	return account, true
}
