package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	service "github.com/honeynil/photomarket/internal/services"
	pkgerrors "github.com/honeynil/photomarket/pkg/errors"
)

type Handler struct {
	service service.TransactionService
}

func NewHandler(s service.TransactionService) *Handler {
	return &Handler{service: s}
}

type errorResponse struct {
	Error interface{} `json:"error"`
}

type dataResponse struct {
	Data interface{} `json:"data"`
}

type listResponse struct {
	Data  interface{} `json:"data"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Size  int         `json:"size"`
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	var validation *pkgerrors.ValidationError
	if errors.As(err, &validation) {
		json.NewEncoder(w).Encode(errorResponse{Error: validation.Fields})
		return
	}
	json.NewEncoder(w).Encode(errorResponse{Error: err.Error()})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var validation *pkgerrors.ValidationError
	switch {
	case errors.As(err, &validation):
		h.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, pkgerrors.ErrUserNotFound),
		errors.Is(err, pkgerrors.ErrSellerNotFound),
		errors.Is(err, pkgerrors.ErrTransactionNotFound):
		h.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, pkgerrors.ErrInvalidSignature),
		errors.Is(err, pkgerrors.ErrInvalidTransactionStatus):
		h.writeError(w, http.StatusBadRequest, err)
	default:
		h.writeError(w, http.StatusInternalServerError, err)
	}
}

func (h *Handler) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/transactions/notification", h.PaymentWebhook).Methods("POST")
}

func (h *Handler) RegisterProtectedRoutes(r *mux.Router) {
	r.HandleFunc("/transactions", h.Create).Methods("POST")
	r.HandleFunc("/transactions", h.List).Methods("GET")
	r.HandleFunc("/transactions/{id}", h.Get).Methods("GET")
	r.HandleFunc("/transactions/{id}/payment", h.GetPayment).Methods("GET")
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := r.Context().Value("user_id").(string)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	var req service.CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	req.BuyerID = buyerID

	transaction, err := h.service.Create(r.Context(), &req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(dataResponse{Data: transaction})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("user_id").(string)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	transaction, err := h.service.Get(r.Context(), mux.Vars(r)["id"], userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dataResponse{Data: transaction})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("user_id").(string)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	page, size := pagination(r)
	role := r.URL.Query().Get("role")

	var (
		transactions interface{}
		total        int64
		err          error
	)
	switch role {
	case "seller":
		transactions, total, err = h.service.ListBySeller(r.Context(), userID, page, size)
	case "buyer", "":
		transactions, total, err = h.service.ListByBuyer(r.Context(), userID, page, size)
	default:
		h.writeError(w, http.StatusBadRequest, errors.New("role must be buyer or seller"))
		return
	}
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(listResponse{Data: transactions, Total: total, Page: page, Size: size})
}

func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("user_id").(string)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	status, err := h.service.GetPayment(r.Context(), mux.Vars(r)["id"], userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dataResponse{Data: status})
}

func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	var req service.WebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	transaction, err := h.service.VerifyPayment(r.Context(), &req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dataResponse{Data: transaction})
}

func pagination(r *http.Request) (page, size int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	size, _ = strconv.Atoi(r.URL.Query().Get("size"))
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 10
	}
	return page, size
}
