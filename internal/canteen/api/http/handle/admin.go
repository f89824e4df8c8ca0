package handle

import (
	"context"
	"net/http"
	"time"

	"campus-canteen/internal/canteen/app/core"
	"campus-canteen/internal/canteen/app/services"
	"campus-canteen/internal/canteen/domain/dto"
	"campus-canteen/internal/projection"
	"campus-canteen/internal/xpkg/logger"
	"campus-canteen/internal/xpkg/models"
)

type AdminHandler struct {
	adminService *services.AdminService
	mylog        logger.Logger
}

func NewAdminHandler(adminService *services.AdminService, mylog logger.Logger) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		mylog:        mylog,
	}
}

func (ah *AdminHandler) Orders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		jsonResponse(w, http.StatusOK, ah.adminService.Orders(projection.AdminFilter{
			Search: q.Get("search"),
			Status: q.Get("status"),
		}))
	}
}

func (ah *AdminHandler) SetStatus() http.HandlerFunc {
	return ah.mutate(func(ctx context.Context, r *http.Request, id int64) (models.Order, error) {
		var req dto.StatusRequest
		if err := decode(r, &req); err != nil {
			return models.Order{}, err
		}
		return ah.adminService.Override(ctx, id, req.Status)
	})
}

func (ah *AdminHandler) MarkPaid() http.HandlerFunc {
	return ah.mutate(func(ctx context.Context, _ *http.Request, id int64) (models.Order, error) {
		return ah.adminService.MarkPaid(ctx, id)
	})
}

func (ah *AdminHandler) mutate(fn func(ctx context.Context, r *http.Request, id int64) (models.Order, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mylog := logger.FromContext(r.Context(), ah.mylog)

		id, err := pathID(r)
		if err != nil {
			writeError(w, mylog, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), core.WaitTime*time.Second)
		defer cancel()

		order, err := fn(ctx, r, id)
		if err != nil {
			writeError(w, mylog, err)
			return
		}
		jsonResponse(w, http.StatusOK, order)
	}
}

func (ah *AdminHandler) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mylog := logger.FromContext(r.Context(), ah.mylog)

		id, err := pathID(r)
		if err != nil {
			writeError(w, mylog, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), core.WaitTime*time.Second)
		defer cancel()

		if err := ah.adminService.Delete(ctx, id); err != nil {
			writeError(w, mylog, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (ah *AdminHandler) History() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mylog := logger.FromContext(r.Context(), ah.mylog)

		id, err := pathID(r)
		if err != nil {
			writeError(w, mylog, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), core.WaitTime*time.Second)
		defer cancel()

		logs, err := ah.adminService.History(ctx, id)
		if err != nil {
			writeError(w, mylog, err)
			return
		}
		jsonResponse(w, http.StatusOK, logs)
	}
}

func (ah *AdminHandler) Dashboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, ah.adminService.Dashboard())
	}
}

func (ah *AdminHandler) Reports() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, ah.adminService.Report())
	}
}

func (ah *AdminHandler) Settings() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, ah.adminService.Settings())
	}
}
