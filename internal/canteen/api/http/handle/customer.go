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

type CustomerHandler struct {
	customerService *services.CustomerService
	mylog           logger.Logger
}

func NewCustomerHandler(customerService *services.CustomerService, mylog logger.Logger) *CustomerHandler {
	return &CustomerHandler{
		customerService: customerService,
		mylog:           mylog,
	}
}

func (ch *CustomerHandler) Menu() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		jsonResponse(w, http.StatusOK, ch.customerService.Menu(q.Get("search"), q.Get("category")))
	}
}

func (ch *CustomerHandler) Tables() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, ch.customerService.Tables())
	}
}

func (ch *CustomerHandler) Checkout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mylog := logger.FromContext(r.Context(), ch.mylog)

		var req dto.CheckoutRequest
		if err := decode(r, &req); err != nil {
			mylog.Action("parse_failed").Error("Failed to parse checkout request", err)
			writeError(w, mylog, err)
			return
		}
		mylog.Action("received").Debug("Received checkout", "table_number", req.TableNumber, "payment_method", req.PaymentMethod, "number_of_items", len(req.Items))

		ctx, cancel := context.WithTimeout(r.Context(), core.WaitTime*time.Second)
		defer cancel()

		order, err := ch.customerService.Checkout(ctx, req)
		if err != nil {
			writeError(w, mylog, err)
			return
		}

		jsonResponse(w, http.StatusCreated, dto.CheckoutResponse{
			OrderID:       order.ID,
			Status:        string(order.Status),
			PaymentStatus: string(order.PaymentStatus),
			Subtotal:      order.Subtotal(),
			Total:         order.Total,
		})
	}
}

func (ch *CustomerHandler) Status() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, ch.customerService.Status(queryID(r, "selected")))
	}
}

func (ch *CustomerHandler) Notification() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, ok := ch.customerService.Notification()
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		jsonResponse(w, http.StatusOK, n)
	}
}

func (ch *CustomerHandler) DismissNotification() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ch.customerService.DismissNotification()
		w.WriteHeader(http.StatusNoContent)
	}
}
