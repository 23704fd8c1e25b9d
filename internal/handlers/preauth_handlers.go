package handlers

import (
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/cyphera/preauth-api/internal/services"
)

// PreAuthorizationHandler handles pre-authorization lifecycle operations
type PreAuthorizationHandler struct {
	common *CommonServices
}

// NewPreAuthorizationHandler creates a new PreAuthorizationHandler instance
func NewPreAuthorizationHandler(common *CommonServices) *PreAuthorizationHandler {
	return &PreAuthorizationHandler{common: common}
}

// OneTimeVariantRequest configures a one-time pre-authorization
type OneTimeVariantRequest struct {
	AmountAuthorized    uint64 `json:"amount_authorized" binding:"required"`
	ExpiryUnixTimestamp int64  `json:"expiry_unix_timestamp" binding:"required"`
}

// RecurringVariantRequest configures a recurring pre-authorization
type RecurringVariantRequest struct {
	RepeatFrequencySeconds    uint64  `json:"repeat_frequency_seconds" binding:"required"`
	RecurringAmountAuthorized uint64  `json:"recurring_amount_authorized" binding:"required"`
	NumCycles                 *uint64 `json:"num_cycles,omitempty"`
	ResetEveryCycle           bool    `json:"reset_every_cycle"`
}

// InitPreAuthorizationRequest is the body for creating a pre-authorization.
// Exactly one of one_time and recurring must be set.
type InitPreAuthorizationRequest struct {
	TokenAccount            string                   `json:"token_account" binding:"required"`
	Owner                   string                   `json:"owner" binding:"required"`
	DebitAuthority          string                   `json:"debit_authority" binding:"required"`
	ActivationUnixTimestamp int64                    `json:"activation_unix_timestamp"`
	OneTime                 *OneTimeVariantRequest   `json:"one_time,omitempty"`
	Recurring               *RecurringVariantRequest `json:"recurring,omitempty"`
	Signature               string                   `json:"signature" binding:"required"`
}

// SetPausedRequest is the body for pausing or unpausing a pre-authorization
type SetPausedRequest struct {
	Owner     string `json:"owner" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// ClosePreAuthorizationRequest is the body for closing a pre-authorization.
// Authority must be the token account owner or the debit authority; receiver
// defaults to the owner when omitted.
type ClosePreAuthorizationRequest struct {
	Authority string `json:"authority" binding:"required"`
	Receiver  string `json:"receiver"`
	Signature string `json:"signature" binding:"required"`
}

// InitPreAuthorization creates a pre-authorization for
// (token_account, debit_authority)
func (h *PreAuthorizationHandler) InitPreAuthorization(c *gin.Context) {
	var req InitPreAuthorizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	tokenAccount, ok := parseAddress(c, "token_account", req.TokenAccount)
	if !ok {
		return
	}
	owner, ok := parseAddress(c, "owner", req.Owner)
	if !ok {
		return
	}
	debitAuthority, ok := parseAddress(c, "debit_authority", req.DebitAuthority)
	if !ok {
		return
	}

	if !h.common.requireSigner(c, owner, req.Signature, "init-pre-authorization",
		tokenAccount.Hex(), debitAuthority.Hex()) {
		return
	}

	params := services.InitPreAuthorizationParams{
		TokenAccount:            tokenAccount,
		Owner:                   owner,
		DebitAuthority:          debitAuthority,
		ActivationUnixTimestamp: req.ActivationUnixTimestamp,
	}
	if req.OneTime != nil {
		params.OneTime = &services.InitOneTimeParams{
			AmountAuthorized:    req.OneTime.AmountAuthorized,
			ExpiryUnixTimestamp: req.OneTime.ExpiryUnixTimestamp,
		}
	}
	if req.Recurring != nil {
		params.Recurring = &services.InitRecurringParams{
			RepeatFrequencySeconds:    req.Recurring.RepeatFrequencySeconds,
			RecurringAmountAuthorized: req.Recurring.RecurringAmountAuthorized,
			NumCycles:                 req.Recurring.NumCycles,
			ResetEveryCycle:           req.Recurring.ResetEveryCycle,
		}
	}

	preAuth, err := h.common.preAuths.InitPreAuthorization(c.Request.Context(), params)
	if err != nil {
		handleServiceError(c, err, "Token account not found")
		return
	}

	sendSuccess(c, http.StatusCreated, preAuth)
}

// GetPreAuthorization fetches one pre-authorization by its key tuple
func (h *PreAuthorizationHandler) GetPreAuthorization(c *gin.Context) {
	tokenAccount, ok := parseAddressParam(c, "token_account")
	if !ok {
		return
	}
	debitAuthority, ok := parseAddressParam(c, "debit_authority")
	if !ok {
		return
	}

	preAuth, err := h.common.preAuths.GetPreAuthorization(c.Request.Context(), tokenAccount, debitAuthority)
	if err != nil {
		handleServiceError(c, err, "Pre-authorization not found")
		return
	}

	sendSuccess(c, http.StatusOK, preAuth)
}

// GetAvailableAmount reports how much the debit authority could debit right now
func (h *PreAuthorizationHandler) GetAvailableAmount(c *gin.Context) {
	tokenAccount, ok := parseAddressParam(c, "token_account")
	if !ok {
		return
	}
	debitAuthority, ok := parseAddressParam(c, "debit_authority")
	if !ok {
		return
	}

	available, err := h.common.debits.AvailableAmount(c.Request.Context(), tokenAccount, debitAuthority)
	if err != nil {
		handleServiceError(c, err, "Pre-authorization not found")
		return
	}

	sendSuccess(c, http.StatusOK, gin.H{
		"token_account":    tokenAccount.Hex(),
		"debit_authority":  debitAuthority.Hex(),
		"available_amount": available,
	})
}

// ListPreAuthorizations lists every pre-authorization against a token account
func (h *PreAuthorizationHandler) ListPreAuthorizations(c *gin.Context) {
	tokenAccount, ok := parseAddressParam(c, "token_account")
	if !ok {
		return
	}

	preAuths, err := h.common.preAuths.ListPreAuthorizations(c.Request.Context(), tokenAccount)
	if err != nil {
		handleServiceError(c, err, "Token account not found")
		return
	}

	sendList(c, preAuths)
}

// SetPaused pauses or unpauses a pre-authorization. The desired state comes
// from the route; repeating the call is a no-op.
func (h *PreAuthorizationHandler) SetPaused(pause bool) gin.HandlerFunc {
	action := "pause-pre-authorization"
	if !pause {
		action = "unpause-pre-authorization"
	}

	return func(c *gin.Context) {
		tokenAccount, ok := parseAddressParam(c, "token_account")
		if !ok {
			return
		}
		debitAuthority, ok := parseAddressParam(c, "debit_authority")
		if !ok {
			return
		}

		var req SetPausedRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			sendError(c, http.StatusBadRequest, "Invalid request body", err)
			return
		}
		owner, ok := parseAddress(c, "owner", req.Owner)
		if !ok {
			return
		}

		if !h.common.requireSigner(c, owner, req.Signature, action,
			tokenAccount.Hex(), debitAuthority.Hex()) {
			return
		}

		if err := h.common.preAuths.SetPaused(c.Request.Context(), tokenAccount, debitAuthority, owner, pause); err != nil {
			handleServiceError(c, err, "Pre-authorization not found")
			return
		}

		sendSuccessMessage(c, http.StatusOK, fmt.Sprintf("Pre-authorization paused=%t", pause))
	}
}

// ClosePreAuthorization deletes a pre-authorization and refunds its deposit
func (h *PreAuthorizationHandler) ClosePreAuthorization(c *gin.Context) {
	tokenAccount, ok := parseAddressParam(c, "token_account")
	if !ok {
		return
	}
	debitAuthority, ok := parseAddressParam(c, "debit_authority")
	if !ok {
		return
	}

	var req ClosePreAuthorizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	authority, ok := parseAddress(c, "authority", req.Authority)
	if !ok {
		return
	}
	// Zero receiver means "refund to the token account owner".
	var receiver common.Address
	if req.Receiver != "" {
		if receiver, ok = parseAddress(c, "receiver", req.Receiver); !ok {
			return
		}
	}

	if !h.common.requireSigner(c, authority, req.Signature, "close-pre-authorization",
		tokenAccount.Hex(), debitAuthority.Hex(), receiver.Hex()) {
		return
	}

	result, err := h.common.preAuths.ClosePreAuthorization(c.Request.Context(), tokenAccount, debitAuthority, authority, receiver)
	if err != nil {
		handleServiceError(c, err, "Pre-authorization not found")
		return
	}

	sendSuccess(c, http.StatusOK, result)
}
