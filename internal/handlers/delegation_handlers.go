package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// DelegationHandler handles smart delegate operations
type DelegationHandler struct {
	common *CommonServices
}

// NewDelegationHandler creates a new DelegationHandler instance
func NewDelegationHandler(common *CommonServices) *DelegationHandler {
	return &DelegationHandler{common: common}
}

// InitSmartDelegateRequest is the body for creating a smart delegate
type InitSmartDelegateRequest struct {
	TokenAccount string `json:"token_account" binding:"required"`
	Owner        string `json:"owner" binding:"required"`
	Signature    string `json:"signature" binding:"required"`
}

// CloseSmartDelegateRequest is the body for closing a smart delegate. Receiver
// defaults to the token account owner when omitted.
type CloseSmartDelegateRequest struct {
	Owner     string `json:"owner" binding:"required"`
	Receiver  string `json:"receiver"`
	Signature string `json:"signature" binding:"required"`
}

// RevokeSmartDelegateRequest is the body for revoking a smart delegate's
// ledger approval without closing the record
type RevokeSmartDelegateRequest struct {
	Owner     string `json:"owner" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// InitSmartDelegate creates the smart delegate for a token account and issues
// its unlimited ledger approval. Repeating the call re-issues the approval and
// returns the existing record.
func (h *DelegationHandler) InitSmartDelegate(c *gin.Context) {
	var req InitSmartDelegateRequest
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

	if !h.common.requireSigner(c, owner, req.Signature, "init-smart-delegate", tokenAccount.Hex()) {
		return
	}

	delegate, err := h.common.delegations.InitSmartDelegate(c.Request.Context(), tokenAccount, owner)
	if err != nil {
		handleServiceError(c, err, "Token account not found")
		return
	}

	sendSuccess(c, http.StatusCreated, delegate)
}

// GetSmartDelegate fetches the smart delegate for a token account
func (h *DelegationHandler) GetSmartDelegate(c *gin.Context) {
	tokenAccount, ok := parseAddressParam(c, "token_account")
	if !ok {
		return
	}

	delegate, err := h.common.delegations.GetSmartDelegate(c.Request.Context(), tokenAccount)
	if err != nil {
		handleServiceError(c, err, "Smart delegate not found")
		return
	}

	sendSuccess(c, http.StatusOK, delegate)
}

// RevokeSmartDelegate clears the delegate's ledger approval. The record stays
// so the approval can be re-issued later.
func (h *DelegationHandler) RevokeSmartDelegate(c *gin.Context) {
	tokenAccount, ok := parseAddressParam(c, "token_account")
	if !ok {
		return
	}

	var req RevokeSmartDelegateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	owner, ok := parseAddress(c, "owner", req.Owner)
	if !ok {
		return
	}

	if !h.common.requireSigner(c, owner, req.Signature, "revoke-smart-delegate", tokenAccount.Hex()) {
		return
	}

	if err := h.common.delegations.RevokeSmartDelegate(c.Request.Context(), tokenAccount, owner); err != nil {
		handleServiceError(c, err, "Token account not found")
		return
	}

	sendSuccessMessage(c, http.StatusOK, "Smart delegate revoked")
}

// CloseSmartDelegate revokes the approval, deletes the record and refunds the
// deposit to the receiver
func (h *DelegationHandler) CloseSmartDelegate(c *gin.Context) {
	tokenAccount, ok := parseAddressParam(c, "token_account")
	if !ok {
		return
	}

	var req CloseSmartDelegateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	owner, ok := parseAddress(c, "owner", req.Owner)
	if !ok {
		return
	}
	receiver := owner
	if req.Receiver != "" {
		if receiver, ok = parseAddress(c, "receiver", req.Receiver); !ok {
			return
		}
	}

	if !h.common.requireSigner(c, owner, req.Signature, "close-smart-delegate", tokenAccount.Hex(), receiver.Hex()) {
		return
	}

	result, err := h.common.delegations.CloseSmartDelegate(c.Request.Context(), tokenAccount, owner, receiver)
	if err != nil {
		handleServiceError(c, err, "Smart delegate not found")
		return
	}

	sendSuccess(c, http.StatusOK, result)
}
