package httpserver

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/and161185/slushbook/internal/errs"
	"github.com/and161185/slushbook/internal/model"
	"github.com/and161185/slushbook/internal/service"
	"github.com/and161185/slushbook/internal/transfer"
)

type setRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=guest pro editor admin"`
}

func (s *Server) setRole(w http.ResponseWriter, r *http.Request) {
	var req setRoleRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	ctx := r.Context()
	u, err := s.svc.Users.SetRole(ctx, CallerFromCtx(ctx), chi.URLParam(r, "id"), model.Role(req.Role))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(u))
}

// exportRecipes streams every recipe as a transfer document. The version query
// selects the document format.
func (s *Server) exportRecipes(w http.ResponseWriter, r *http.Request) {
	version := strings.TrimSpace(r.URL.Query().Get("version"))
	if version == "" {
		version = transfer.CurrentVersion
	}
	if !transfer.SupportedVersion(version) {
		writeError(w, errs.Invalid("version", "unsupported"))
		return
	}
	ctx := r.Context()
	doc, err := s.svc.Transfer.Export(ctx, CallerFromCtx(ctx), version)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="recipes.json"`)
	if err := transfer.Encode(w, doc); err != nil {
		s.log.Warn("export write failed", zap.Error(err))
	}
}

// importRecipes upserts a transfer document. Invalid records are reported in the
// result rather than failing the request.
func (s *Server) importRecipes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c := CallerFromCtx(ctx)
	doc, err := transfer.Decode(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := s.svc.Transfer.Import(ctx, c, doc)
	if err != nil {
		writeError(w, err)
		return
	}
	if res.Failed == nil {
		res.Failed = []service.ImportFailure{}
	}
	writeJSON(w, http.StatusOK, res)
}
