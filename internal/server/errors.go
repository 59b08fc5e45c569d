package server

import (
	"net/http"

	apperrors "github.com/erikmaday/unusual-whales-mcp-sub001/internal/errors"
)

// HandleError central handler for all errors
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	apperrors.RespondWithError(w, r, err)
}
