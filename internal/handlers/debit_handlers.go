package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cyphera/preauth-api/internal/services"
)

// DebitHandler handles debit execution
type DebitHandler struct {
	common *CommonServices
}

// NewDebitHandler creates a new DebitHandler instance
func NewDebitHandler(common *CommonServices) *DebitHandler {
	return &DebitHandler{common: common}
}

// DebitRequest is the body for executing a debit. The signer is the debit
// authority named by the pre-authorization.
type DebitRequest struct {
	TokenAccount   string `json:"token_account" binding:"required"`
	DebitAuthority string `json:"debit_authority" binding:"required"`
	Destination    string `json:"destination" binding:"required"`
	Mint           string `json:"mint" binding:"required"`
	Decimals       uint8  `json:"decimals"`
	Amount         uint64 `json:"amount" binding:"required"`
	Signature      string `json:"signature" binding:"required"`
}

// Debit validates the pre-authorization, advances its accounting and moves the
// funds in one unit
func (h *DebitHandler) Debit(c *gin.Context) {
	var req DebitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	tokenAccount, ok := parseAddress(c, "token_account", req.TokenAccount)
	if !ok {
		return
	}
	debitAuthority, ok := parseAddress(c, "debit_authority", req.DebitAuthority)
	if !ok {
		return
	}
	destination, ok := parseAddress(c, "destination", req.Destination)
	if !ok {
		return
	}
	mint, ok := parseAddress(c, "mint", req.Mint)
	if !ok {
		return
	}

	if !h.common.requireSigner(c, debitAuthority, req.Signature, "debit",
		tokenAccount.Hex(), destination.Hex(), mint.Hex(), fmt.Sprintf("%d", req.Amount)) {
		return
	}

	result, err := h.common.debits.Debit(c.Request.Context(), services.DebitParams{
		TokenAccount:   tokenAccount,
		DebitAuthority: debitAuthority,
		Destination:    destination,
		Mint:           mint,
		Decimals:       req.Decimals,
		Amount:         req.Amount,
	})
	if err != nil {
		handleServiceError(c, err, "Pre-authorization not found")
		return
	}

	sendSuccess(c, http.StatusOK, result)
}
