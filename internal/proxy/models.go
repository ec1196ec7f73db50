package proxy

import (
	"net/http"

	"github.com/BenYao21/sglang/internal/openaiadapter/types"
)

// modelsHandler lists the models served by this gateway. The engine serves
// a single model, so the list is fixed at startup.
func modelsHandler(models []types.Model) http.HandlerFunc {
	resp := types.ListModelsResponse{
		Object: "list",
		Data:   models,
	}
	if resp.Data == nil {
		resp.Data = []types.Model{}
	}

	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(r.Context(), w, resp, http.StatusOK)
	}
}
