package number

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/frahmantamala/number-provisioning/internal"
	"github.com/frahmantamala/number-provisioning/internal/transport"
	"github.com/go-chi/chi"
)

const maxRequestBytes = 64 << 10

type ServiceAPI interface {
	Provision(ctx context.Context, accountID int64, req ProvisionRequest) (*ProvisionResult, error)
	GetNumber(ctx context.Context, accountID int64, phoneNumber string) (*PhoneNumber, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

// Provision handles POST /numbers/provision. New and already-fulfilled results
// both answer 200; X-Provision-State tells them apart.
func (h *Handler) Provision(w http.ResponseWriter, r *http.Request) {
	account, ok := internal.AccountFromContext(r.Context())
	if !ok {
		h.HandleError(w, internal.ErrAuthRequired)
		return
	}

	var req ProvisionRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		h.Logger.Warn("Provision: invalid request body", "error", err, "account_id", account.ID)
		h.HandleError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	// a client abort must not cancel a payment that is already being fulfilled
	ctx := context.WithoutCancel(r.Context())

	result, err := h.Service.Provision(ctx, account.ID, req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.Header().Set("X-Provision-State", string(result.State))
	h.WriteJSON(w, http.StatusOK, ToView(result.Number))
}

func (h *Handler) GetNumber(w http.ResponseWriter, r *http.Request) {
	account, ok := internal.AccountFromContext(r.Context())
	if !ok {
		h.HandleError(w, internal.ErrAuthRequired)
		return
	}

	phoneNumber := strings.TrimSpace(chi.URLParam(r, "number"))
	if phoneNumber == "" {
		h.HandleError(w, internal.NewValidationFieldError("number", "number is required", internal.ErrCodeInvalidPhoneNumber))
		return
	}

	n, err := h.Service.GetNumber(r.Context(), account.ID, phoneNumber)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToView(n))
}
