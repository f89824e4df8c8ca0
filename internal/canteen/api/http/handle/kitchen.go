package handle

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"campus-canteen/internal/canteen/app/core"
	"campus-canteen/internal/canteen/app/services"
	"campus-canteen/internal/canteen/domain/dto"
	"campus-canteen/internal/xpkg/logger"
)

type KitchenHandler struct {
	kitchenService *services.KitchenService
	mylog          logger.Logger
}

func NewKitchenHandler(kitchenService *services.KitchenService, mylog logger.Logger) *KitchenHandler {
	return &KitchenHandler{
		kitchenService: kitchenService,
		mylog:          mylog,
	}
}

func (kh *KitchenHandler) Board() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, kh.kitchenService.Board())
	}
}

// Advance accepts an empty body, in which case the order moves on from the
// status the kitchen replica holds.
func (kh *KitchenHandler) Advance() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mylog := logger.FromContext(r.Context(), kh.mylog)

		id, err := pathID(r)
		if err != nil {
			writeError(w, mylog, err)
			return
		}

		var req dto.AdvanceRequest
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
		if err != nil {
			writeError(w, mylog, core.Invalid("body", errors.New("failed to read body")))
			return
		}
		if len(body) > 0 {
			if err := decodeBytes(body, &req); err != nil {
				writeError(w, mylog, err)
				return
			}
		}

		ctx, cancel := context.WithTimeout(r.Context(), core.WaitTime*time.Second)
		defer cancel()

		order, err := kh.kitchenService.Advance(ctx, id, req.From)
		if err != nil {
			writeError(w, mylog, err)
			return
		}
		jsonResponse(w, http.StatusOK, order)
	}
}
