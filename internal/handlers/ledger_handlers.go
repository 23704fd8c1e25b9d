package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cyphera/preauth-api/internal/ledger"
)

// LedgerHandler exposes the in-memory token ledger for local development.
// When the service runs against an external ledger these routes are not
// registered.
type LedgerHandler struct {
	common *CommonServices
	memory *ledger.MemoryLedger
}

// NewLedgerHandler creates a new LedgerHandler instance
func NewLedgerHandler(common *CommonServices, memory *ledger.MemoryLedger) *LedgerHandler {
	return &LedgerHandler{common: common, memory: memory}
}

// CreateMintRequest is the body for registering a mint
type CreateMintRequest struct {
	Address  string `json:"address" binding:"required"`
	Decimals uint8  `json:"decimals"`
}

// CreateTokenAccountRequest is the body for opening a token account
type CreateTokenAccountRequest struct {
	Address string `json:"address" binding:"required"`
	Owner   string `json:"owner" binding:"required"`
	Mint    string `json:"mint" binding:"required"`
	Balance uint64 `json:"balance"`
}

// CreateMint registers a mint with the in-memory ledger
func (h *LedgerHandler) CreateMint(c *gin.Context) {
	var req CreateMintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	address, ok := parseAddress(c, "address", req.Address)
	if !ok {
		return
	}

	h.memory.CreateMint(address, req.Decimals)
	sendSuccessMessage(c, http.StatusCreated, "Mint created")
}

// CreateTokenAccount opens a token account with an initial balance
func (h *LedgerHandler) CreateTokenAccount(c *gin.Context) {
	var req CreateTokenAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	address, ok := parseAddress(c, "address", req.Address)
	if !ok {
		return
	}
	owner, ok := parseAddress(c, "owner", req.Owner)
	if !ok {
		return
	}
	mint, ok := parseAddress(c, "mint", req.Mint)
	if !ok {
		return
	}

	if err := h.memory.CreateTokenAccount(address, owner, mint, req.Balance); err != nil {
		handleServiceError(c, err, "Mint not found")
		return
	}

	sendSuccessMessage(c, http.StatusCreated, "Token account created")
}

// GetTokenAccount fetches a token account from the ledger
func (h *LedgerHandler) GetTokenAccount(c *gin.Context) {
	address, ok := parseAddressParam(c, "address")
	if !ok {
		return
	}

	account, err := h.common.ledger.GetTokenAccount(c.Request.Context(), address)
	if err != nil {
		handleServiceError(c, err, "Token account not found")
		return
	}

	sendSuccess(c, http.StatusOK, account)
}
