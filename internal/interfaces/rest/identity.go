package rest

import (
	"errors"
	"net/http"
	"strings"

	app_service "ens-identity-graph/internal/application/service"

	"go.uber.org/zap"
)

// HandleActivity returns the activity histogram of an address. Upstream failures
// are reported in the body, never as an error status.
func (c *Controller) HandleActivity(w http.ResponseWriter, r *http.Request) {
	address := strings.TrimSpace(param(r, "address"))
	if address == "" {
		c.writeError(w, http.StatusBadRequest, "address is required")
		return
	}
	c.writeJSON(w, http.StatusOK, c.Activity.GetActivity(r.Context(), address))
}

// HandleAvatar returns the avatar URL of a name
func (c *Controller) HandleAvatar(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		c.writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	avatar, err := c.Profiles.Avatar(r.Context(), name)
	switch {
	case err == nil:
		c.writeJSON(w, http.StatusOK, map[string]string{"name": name, "avatar": avatar})
	case errors.Is(err, app_service.ErrAvatarNotFound):
		c.writeError(w, http.StatusNotFound, err.Error())
	default:
		c.logger.Warn("Failed to resolve avatar", zap.String("name", name), zap.Error(err))
		c.writeError(w, http.StatusBadGateway, "failed to resolve avatar")
	}
}

// HandleProfile returns the resolved profile of a name with per-field errors
func (c *Controller) HandleProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := c.Profiles.Resolve(r.Context(), param(r, "name"))
	if errors.Is(err, app_service.ErrNameRequired) {
		c.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		c.writeError(w, http.StatusInternalServerError, "failed to resolve profile")
		return
	}
	c.writeJSON(w, http.StatusOK, profile)
}

// HandleSearch completes a partial name. A short query yields an empty list.
func (c *Controller) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if !query.Has("q") {
		c.writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	names := c.Search.Search(r.Context(), query.Get("q"))
	c.writeJSON(w, http.StatusOK, map[string][]string{"names": names})
}
