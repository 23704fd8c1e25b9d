package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/cyphera/preauth-api/internal/engine"
	"github.com/cyphera/preauth-api/internal/identity"
	"github.com/cyphera/preauth-api/internal/ledger"
	"github.com/cyphera/preauth-api/internal/logger"
	"github.com/cyphera/preauth-api/internal/services"
	"github.com/cyphera/preauth-api/internal/store"
)

// CommonServices holds common dependencies used across handlers
type CommonServices struct {
	delegations *services.DelegationService
	preAuths    *services.PreAuthorizationService
	debits      *services.DebitService
	ledger      ledger.Ledger
	verifier    identity.Verifier
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse represents a standard success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// NewCommonServices creates a new instance of CommonServices
func NewCommonServices(
	delegations *services.DelegationService,
	preAuths *services.PreAuthorizationService,
	debits *services.DebitService,
	tokenLedger ledger.Ledger,
	verifier identity.Verifier,
) *CommonServices {
	return &CommonServices{
		delegations: delegations,
		preAuths:    preAuths,
		debits:      debits,
		ledger:      tokenLedger,
		verifier:    verifier,
	}
}

// sendError is a helper function that combines logging and error response
// It logs the error with the given message and sends a JSON error response
func sendError(c *gin.Context, statusCode int, message string, err error) {
	logger.Error(message,
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
	)
	c.JSON(statusCode, ErrorResponse{Error: message})
}

// sendSuccess is a helper function that sends a success response
func sendSuccess(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

// sendSuccessMessage is a helper function that sends a success message
func sendSuccessMessage(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, SuccessResponse{Message: message})
}

// sendList is a helper function that sends a list response
func sendList(c *gin.Context, items interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data":   items,
	})
}

// handleServiceError maps service and engine errors to HTTP status codes
func handleServiceError(c *gin.Context, err error, notFoundMsg string) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, ledger.ErrAccountNotFound):
		sendError(c, http.StatusNotFound, notFoundMsg, err)
	case errors.Is(err, store.ErrAlreadyExists):
		sendError(c, http.StatusConflict, "Record already exists", err)
	case errors.Is(err, services.ErrUnauthorized):
		sendError(c, http.StatusForbidden, "Not authorized for this operation", err)
	case errors.Is(err, services.ErrReceiverMismatch):
		sendError(c, http.StatusForbidden, "Deposit receiver must be the token account owner", err)
	case errors.Is(err, services.ErrSmartDelegateMissing):
		sendError(c, http.StatusConflict, "No smart delegate exists for the token account", err)
	case errors.Is(err, services.ErrTokenAccountMismatch), errors.Is(err, services.ErrInvalidVariant):
		sendError(c, http.StatusBadRequest, "Invalid request", err)
	case errors.Is(err, engine.ErrPreAuthorizationPaused):
		sendError(c, http.StatusUnprocessableEntity, "Pre-authorization is paused", err)
	case errors.Is(err, engine.ErrPreAuthorizationNotActive):
		sendError(c, http.StatusUnprocessableEntity, "Pre-authorization is not active", err)
	case errors.Is(err, engine.ErrCannotDebitMoreThanAvailable):
		sendError(c, http.StatusUnprocessableEntity, "Amount exceeds the available budget", err)
	case errors.Is(err, engine.ErrLastDebitedCycleBeforeCurrentCycle):
		sendError(c, http.StatusUnprocessableEntity, "Clock regression detected", err)
	case errors.Is(err, engine.ErrInvalidTimestamp), errors.Is(err, engine.ErrArithmeticOverflow):
		sendError(c, http.StatusUnprocessableEntity, "Pre-authorization state rejects this debit", err)
	case errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrTransferUnauthorized),
		errors.Is(err, ledger.ErrMintMismatch):
		sendError(c, http.StatusUnprocessableEntity, "Ledger rejected the transfer", err)
	default:
		sendError(c, http.StatusInternalServerError, "Internal server error", err)
	}
}

// parseAddressParam parses a hex address from a path parameter. On failure it
// writes the error response and reports false.
func parseAddressParam(c *gin.Context, name string) (common.Address, bool) {
	raw := c.Param(name)
	if !common.IsHexAddress(raw) {
		sendError(c, http.StatusBadRequest, fmt.Sprintf("Invalid %s address", name), nil)
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

// parseAddress parses a hex address from a request body field
func parseAddress(c *gin.Context, name, raw string) (common.Address, bool) {
	if !common.IsHexAddress(raw) {
		sendError(c, http.StatusBadRequest, fmt.Sprintf("Invalid %s address", name), nil)
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

// signedMessage builds the canonical message a signer attests to for a given
// action. Clients sign the exact same string with EIP-191 personal-sign.
func signedMessage(action string, fields ...string) []byte {
	return []byte(action + "\n" + strings.Join(fields, "\n"))
}

// requireSigner verifies that signatureHex is a valid signature by signer over
// the canonical message for action. On failure it writes the error response
// and reports false.
func (cs *CommonServices) requireSigner(c *gin.Context, signer common.Address, signatureHex, action string, fields ...string) bool {
	signature, err := hexutil.Decode(signatureHex)
	if err != nil {
		sendError(c, http.StatusBadRequest, "Invalid signature encoding", err)
		return false
	}

	if err := cs.verifier.VerifySigner(signedMessage(action, fields...), signature, signer); err != nil {
		sendError(c, http.StatusUnauthorized, "Signature verification failed", err)
		return false
	}
	return true
}
