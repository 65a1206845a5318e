package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/immoflow/reconcile/internal/adapter/http/dto"
	"github.com/immoflow/reconcile/internal/usecase"
)

// TransactionHandler handles transaction read requests.
type TransactionHandler struct {
	transactionUC *usecase.TransactionUseCase
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionUC *usecase.TransactionUseCase) *TransactionHandler {
	return &TransactionHandler{transactionUC: transactionUC}
}

// List lists the organization's unmatched transactions.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	transactions, err := h.transactionUC.ListUnmatched(r.Context(), callerFrom(r), usecase.ListUnmatchedInput{
		Limit:  parseIntQuery(r, "limit", 50),
		Offset: parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to list transactions", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionsFromDomain(transactions))
}

// Get retrieves a transaction by ID.
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing transaction ID", "")
		return
	}

	transaction, err := h.transactionUC.GetTransaction(r.Context(), callerFrom(r), id)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to get transaction", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(transaction))
}
