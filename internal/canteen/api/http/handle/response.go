package handle

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"campus-canteen/internal/canteen/app/core"
	storecore "campus-canteen/internal/store/core"
	"campus-canteen/internal/xpkg/logger"

	"github.com/go-chi/chi/v5"
)

// jsonResponse writes the given data as a JSON-encoded HTTP response.
func jsonResponse(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

// jsonError writes an error response as JSON with the specified HTTP status code.
func jsonError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": err.Error(),
		"code":  code,
	})
}

// writeError maps service errors onto status codes. Action failures carry a
// message meant for the user; anything unexpected is hidden.
func writeError(w http.ResponseWriter, mylog logger.Logger, err error) {
	var verr *core.ValidationError
	var aerr *core.ActionError
	switch {
	case errors.As(err, &verr):
		jsonError(w, http.StatusBadRequest, verr)
	case errors.Is(err, storecore.ErrOrderNotFound):
		jsonError(w, http.StatusNotFound, errors.New("order not found"))
	case errors.Is(err, storecore.ErrMenuItemNotFound):
		jsonError(w, http.StatusNotFound, errors.New("menu item not found"))
	case errors.Is(err, storecore.ErrConflict):
		jsonError(w, http.StatusConflict, errors.New("order was changed by someone else, refresh and try again"))
	case errors.As(err, &aerr):
		jsonError(w, http.StatusInternalServerError, errors.New(aerr.Message))
	default:
		mylog.Action("request_failed").Error("Unexpected error", err)
		jsonError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return core.Invalid("body", errors.New("failed to parse JSON"))
	}
	return nil
}

func decodeBytes(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return core.Invalid("body", errors.New("failed to parse JSON"))
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.Invalid("id", errors.New("must be a positive integer"))
	}
	return id, nil
}

func queryID(r *http.Request, key string) int64 {
	id, err := strconv.ParseInt(r.URL.Query().Get(key), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
