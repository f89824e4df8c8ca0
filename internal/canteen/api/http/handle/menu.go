package handle

import (
	"context"
	"net/http"
	"time"

	"campus-canteen/internal/canteen/app/core"
	"campus-canteen/internal/canteen/app/services"
	"campus-canteen/internal/canteen/domain/dto"
	"campus-canteen/internal/xpkg/logger"
)

type MenuHandler struct {
	menuService *services.MenuService
	mylog       logger.Logger
}

func NewMenuHandler(menuService *services.MenuService, mylog logger.Logger) *MenuHandler {
	return &MenuHandler{
		menuService: menuService,
		mylog:       mylog,
	}
}

func (mh *MenuHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		jsonResponse(w, http.StatusOK, mh.menuService.List(q.Get("search"), q.Get("category")))
	}
}

func (mh *MenuHandler) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mylog := logger.FromContext(r.Context(), mh.mylog)

		var req dto.MenuItemRequest
		if err := decode(r, &req); err != nil {
			writeError(w, mylog, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), core.WaitTime*time.Second)
		defer cancel()

		item, err := mh.menuService.Create(ctx, req)
		if err != nil {
			writeError(w, mylog, err)
			return
		}
		jsonResponse(w, http.StatusCreated, item)
	}
}

func (mh *MenuHandler) Update() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mylog := logger.FromContext(r.Context(), mh.mylog)

		id, err := pathID(r)
		if err != nil {
			writeError(w, mylog, err)
			return
		}
		var req dto.MenuItemRequest
		if err := decode(r, &req); err != nil {
			writeError(w, mylog, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), core.WaitTime*time.Second)
		defer cancel()

		item, err := mh.menuService.Update(ctx, id, req)
		if err != nil {
			writeError(w, mylog, err)
			return
		}
		jsonResponse(w, http.StatusOK, item)
	}
}

func (mh *MenuHandler) SetAvailability() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mylog := logger.FromContext(r.Context(), mh.mylog)

		id, err := pathID(r)
		if err != nil {
			writeError(w, mylog, err)
			return
		}
		var req dto.AvailabilityRequest
		if err := decode(r, &req); err != nil {
			writeError(w, mylog, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), core.WaitTime*time.Second)
		defer cancel()

		item, err := mh.menuService.SetAvailability(ctx, id, req.Available)
		if err != nil {
			writeError(w, mylog, err)
			return
		}
		jsonResponse(w, http.StatusOK, item)
	}
}

func (mh *MenuHandler) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mylog := logger.FromContext(r.Context(), mh.mylog)

		id, err := pathID(r)
		if err != nil {
			writeError(w, mylog, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), core.WaitTime*time.Second)
		defer cancel()

		if err := mh.menuService.Delete(ctx, id); err != nil {
			writeError(w, mylog, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
