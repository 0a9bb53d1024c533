package http_api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/utxokit/utxokit/internal/models"
)

// BroadcastRequest represents the JSON body for a broadcast
type BroadcastRequest struct {
	TxHex string `json:"txhex" binding:"required"`
}

// WatchRequest represents the JSON body for registering a watch
type WatchRequest struct {
	Address string `json:"address" binding:"required"`
	Label   string `json:"label"`
}

// UtxosResponse wraps the canonical output list
type UtxosResponse struct {
	Outputs []models.UnspentOutput `json:"outputs"`
}

// TransactionResponse carries a raw transaction in hex form
type TransactionResponse struct {
	TxID string `json:"txid"`
	Hex  string `json:"hex"`
}

// errorStatus maps the error taxonomy onto HTTP statuses: caller mistakes are
// 400, broken or rejecting providers are 502, the rest is 500.
func errorStatus(err error) int {
	var invalidArg *models.InvalidArgumentError
	if errors.As(err, &invalidArg) {
		return http.StatusBadRequest
	}
	var providerErr *models.ProviderError
	if errors.As(err, &providerErr) {
		return http.StatusBadGateway
	}
	var malformed *models.MalformedResponseError
	if errors.As(err, &malformed) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *HTTPServer) fail(c *gin.Context, err error) {
	c.JSON(errorStatus(err), gin.H{
		"success": false,
		"error":   err.Error(),
	})
}

// health is a handler for the /health endpoint.
func (s *HTTPServer) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// utxos resolves the unspent outputs of the comma-separated addresses query.
func (s *HTTPServer) utxos(c *gin.Context) {
	raw := c.Query("addresses")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "addresses query parameter is required",
		})
		return
	}

	outputs, err := s.watcher.UnspentOutputs(c.Request.Context(), strings.Split(raw, ","))
	if err != nil {
		s.logger.Debug("Failed to resolve utxos", "error", err)
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, UtxosResponse{Outputs: outputs})
}

// broadcast submits a raw transaction.
func (s *HTTPServer) broadcast(c *gin.Context) {
	var req BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Debug("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body: " + err.Error(),
		})
		return
	}

	result, err := s.watcher.Broadcast(c.Request.Context(), req.TxHex)
	if err != nil {
		s.logger.Debug("Broadcast failed", "error", err)
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// fee selects the tier satisfying the target query parameter.
func (s *HTTPServer) fee(c *gin.Context) {
	target, err := strconv.Atoi(c.DefaultQuery("target", "6"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "target must be an integer",
		})
		return
	}

	estimate, err := s.watcher.EstimateFee(c.Request.Context(), target)
	if err != nil {
		s.logger.Debug("Fee estimate failed", "error", err)
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, estimate)
}

// transaction fetches a raw transaction by id.
func (s *HTTPServer) transaction(c *gin.Context) {
	txid := c.Param("txid")

	txHex, err := s.watcher.Transaction(c.Request.Context(), txid)
	if err != nil {
		s.logger.Debug("Transaction lookup failed", "error", err, "txid", txid)
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, TransactionResponse{TxID: txid, Hex: txHex})
}

// watch registers an address for the polling loop.
func (s *HTTPServer) watch(c *gin.Context) {
	var req WatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Debug("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body: " + err.Error(),
		})
		return
	}

	if err := s.watcher.WatchAddress(req.Address, req.Label); err != nil {
		s.logger.Debug("Failed to register watch", "error", err, "address", req.Address)
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"address": req.Address,
	})
}
