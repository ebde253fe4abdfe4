// Package ginfhevm exposes a provider.Provider over HTTP with gin.
//
//	GET  /status
//	POST /encrypt
//	POST /encrypt/batch
//	POST /decrypt
//	POST /token
//	POST /keypair
//
// Handles and input proofs are 0x-prefixed hex. Decrypted values are
// decimal strings so 256-bit results survive JSON.
package ginfhevm

import (
	"encoding/hex"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/universal-fhevm/fhevm-go/pkg/fhevm"
	"github.com/universal-fhevm/fhevm-go/pkg/fhevm/provider"
)

// RequestIDHeader carries the per-request id set by RequestID.
const RequestIDHeader = "X-Request-ID"

// EncryptRequest is the body of POST /encrypt.
type EncryptRequest struct {
	fhevm.WireValue
	ContractAddress string `json:"contractAddress"`
	UserAddress     string `json:"userAddress"`
}

// EncryptBatchRequest is the body of POST /encrypt/batch.
type EncryptBatchRequest struct {
	fhevm.WireBatch
	UserAddress string `json:"userAddress"`
}

// EncryptResponse is returned by both encrypt routes.
type EncryptResponse struct {
	Handles    []string `json:"handles"`
	InputProof string   `json:"inputProof"`
}

// DecryptResponse carries the plaintext in decimal.
type DecryptResponse struct {
	Value string `json:"value"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Ready   bool   `json:"ready"`
	ChainID int64  `json:"chainId,omitempty"`
	Version string `json:"version"`
	Error   string `json:"error,omitempty"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

type handler struct {
	p *provider.Provider
}

// Register mounts the routes on r.
func Register(r gin.IRoutes, p *provider.Provider) {
	h := &handler{p: p}
	r.GET("/status", h.status)
	r.POST("/encrypt", h.encrypt)
	r.POST("/encrypt/batch", h.encryptBatch)
	r.POST("/decrypt", h.decrypt)
	r.POST("/token", h.token)
	r.POST("/keypair", h.keypair)
}

// RequestID tags each request with an id, reusing the caller's when given.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func (h *handler) status(c *gin.Context) {
	st := h.p.State()
	resp := StatusResponse{Ready: st.Ready, Version: fhevm.WrapperVersion()}
	if st.Client != nil {
		resp.ChainID = st.Client.Config().ChainID
	}
	if st.Err != nil {
		resp.Error = st.Err.Error()
	}
	code := http.StatusOK
	if !st.Ready {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, resp)
}

func (h *handler) encrypt(c *gin.Context) {
	var req EncryptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	tv, err := req.TypedValue()
	if err != nil {
		h.fail(c, err)
		return
	}

	ctx := provider.WithProvider(c.Request.Context(), h.p)
	enc, err := provider.UseEncrypt(ctx, req.UserAddress)
	if err != nil {
		h.fail(c, err)
		return
	}
	out, err := enc.Run(ctx, fhevm.EncryptParams{Value: tv.Value, Type: tv.Type, ContractAddress: req.ContractAddress})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, NewEncryptResponse(out))
}

func (h *handler) encryptBatch(c *gin.Context) {
	var req EncryptBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	params, err := req.Params()
	if err != nil {
		h.fail(c, err)
		return
	}

	ctx := provider.WithProvider(c.Request.Context(), h.p)
	enc, err := provider.UseEncryptBatch(ctx, req.UserAddress)
	if err != nil {
		h.fail(c, err)
		return
	}
	out, err := enc.Run(ctx, params)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, NewEncryptResponse(out))
}

func (h *handler) decrypt(c *gin.Context) {
	var req provider.DecryptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := provider.WithProvider(c.Request.Context(), h.p)
	dec, err := provider.UseDecrypt(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	v, err := dec.Run(ctx, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, DecryptResponse{Value: v.Dec()})
}

func (h *handler) token(c *gin.Context) {
	var req fhevm.TokenParams
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	engine, err := h.engine()
	if err != nil {
		h.fail(c, err)
		return
	}
	payload, err := fhevm.GenerateToken(c.Request.Context(), engine, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, payload)
}

func (h *handler) keypair(c *gin.Context) {
	engine, err := h.engine()
	if err != nil {
		h.fail(c, err)
		return
	}
	kp, err := engine.GenerateKeypair()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, kp)
}

func (h *handler) engine() (fhevm.Engine, error) {
	st := h.p.State()
	if !st.Ready || st.Engine == nil {
		return nil, provider.ErrNotReady
	}
	return st.Engine, nil
}

func (h *handler) fail(c *gin.Context, err error) {
	code := statusOf(err)
	if code >= http.StatusInternalServerError {
		if st := h.p.State(); st.Client != nil {
			st.Client.Logger().Warn(c.Request.Context(), "request failed",
				"path", c.FullPath(), "status", code, "request_id", c.GetString("request_id"), "err", err)
		}
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(code, ErrorResponse{Code: string(fhevm.CodeOf(err)), Error: err.Error()})
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, provider.ErrNotReady), errors.Is(err, fhevm.ErrInstanceNotReady):
		return http.StatusServiceUnavailable
	case errors.Is(err, provider.ErrUserAddressRequired), fhevm.IsInvalidInput(err):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

// NewEncryptResponse renders out in wire form.
func NewEncryptResponse(out fhevm.EncryptedData) EncryptResponse {
	return EncryptResponse{
		Handles:    out.Handles,
		InputProof: "0x" + hex.EncodeToString(out.InputProof),
	}
}
