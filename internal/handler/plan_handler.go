package handler

import (
	"context"
	"net/http"

	"fraccional/internal/model"
)

type planLister interface {
	ListPlans(ctx context.Context) ([]model.Plan, error)
}

type PlanHandler struct {
	plans planLister
}

func NewPlanHandler(plans planLister) *PlanHandler {
	return &PlanHandler{plans: plans}
}

func (h *PlanHandler) List(w http.ResponseWriter, r *http.Request) {
	plans, err := h.plans.ListPlans(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if plans == nil {
		plans = []model.Plan{}
	}

	writeSuccess(w, http.StatusOK, model.PlanList{Plans: plans})
}
