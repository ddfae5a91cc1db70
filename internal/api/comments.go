package api

import (
	"net/http"

	"github.com/ethansammiq/deal-desk-sub004/internal/model"
	"github.com/ethansammiq/deal-desk-sub004/internal/workflow"
)

type addCommentRequest struct {
	Body string `json:"body"`
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	if !workflow.Allowed(session.Role, workflow.ActionComment) {
		writeError(w, http.StatusForbidden, "role may not comment")
		return
	}

	deal, ok := s.loadDeal(w, r)
	if !ok {
		return
	}

	var req addCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Body == "" {
		writeValidationError(w, map[string]string{"body": "required"})
		return
	}

	comment, err := s.store.AddComment(r.Context(), model.Comment{
		DealID:   deal.ID,
		AuthorID: session.UserID,
		Body:     req.Body,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "add comment")
		return
	}

	s.recordActivity(r, deal.ID, model.ActivityCommentAdded, "comment added",
		map[string]any{"comment_id": comment.ID})

	writeJSON(w, http.StatusCreated, comment)
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	deal, ok := s.loadDeal(w, r)
	if !ok {
		return
	}

	comments, err := s.store.ListComments(r.Context(), deal.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list comments")
		return
	}
	if comments == nil {
		comments = []model.Comment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"comments": comments})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	deal, ok := s.loadDeal(w, r)
	if !ok {
		return
	}

	events, err := s.store.ListActivity(r.Context(), deal.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list activity")
		return
	}
	if events == nil {
		events = []model.ActivityEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": events})
}
