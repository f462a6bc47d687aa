package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/janekbaraniewski/keydash/internal/classify"
	"github.com/janekbaraniewski/keydash/internal/core"
	"github.com/janekbaraniewski/keydash/internal/store"
	"github.com/janekbaraniewski/keydash/internal/usage"
	"github.com/janekbaraniewski/keydash/internal/version"
)

// statusClientClosedRequest is the nginx convention for a request the client
// abandoned before a response was written.
const statusClientClosedRequest = 499

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (s *Server) health(c *gin.Context) {
	svc := s.probes.Load()
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"version":   version.Version,
		"providers": lo.Map(svc.Providers(), func(p core.ProviderInfo, _ int) string { return p.Name }),
	})
}

type classifyRequest struct {
	Key string `json:"key" binding:"required"`
}

type classifyResponse struct {
	core.Classification
	Rule      string `json:"rule"`
	MaskedKey string `json:"key"`
	Probeable bool   `json:"probeable"`
}

// classify never echoes the submitted secret, only its masked preview.
func (s *Server) classify(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "key is required"})
		return
	}
	secret := strings.TrimSpace(req.Key)
	result, rule := classify.Explain(secret)
	c.JSON(http.StatusOK, classifyResponse{
		Classification: result,
		Rule:           rule,
		MaskedKey:      core.MaskSecret(secret),
		Probeable:      s.probes.Load().Supports(result.Provider),
	})
}

func (s *Server) listAccounts(c *gin.Context) {
	accounts, err := s.store.ListAccounts(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, lo.Ternary(accounts == nil, []core.Account{}, accounts))
}

func (s *Server) addAccount(c *gin.Context) {
	var in store.AccountInput
	if err := c.ShouldBindJSON(&in); err != nil || strings.TrimSpace(in.Email) == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "Email is required"})
		return
	}
	account, err := s.store.AddAccount(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

func (s *Server) updateAccount(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in store.AccountInput
	if err := c.ShouldBindJSON(&in); err != nil || strings.TrimSpace(in.Email) == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "Email is required"})
		return
	}
	account, err := s.store.UpdateAccount(c.Request.Context(), id, in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (s *Server) deleteAccount(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.store.DeleteAccount(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "Account and associated keys deleted successfully"})
}

func (s *Server) accountAdminKeys(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	keys, err := s.store.AdminKeys(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, lo.Ternary(keys == nil, []core.KeyRecord{}, keys))
}

func (s *Server) listKeys(c *gin.Context) {
	keys, err := s.store.ListKeys(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, lo.Ternary(keys == nil, []core.KeyRecord{}, keys))
}

func (s *Server) addKey(c *gin.Context) {
	var in store.NewKey
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "Name and API key are required"})
		return
	}
	key, err := s.store.AddKey(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, key)
}

func (s *Server) updateKey(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in store.KeyUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "Name is required"})
		return
	}
	key, err := s.store.UpdateKey(c.Request.Context(), id, in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, key)
}

func (s *Server) deleteKey(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.store.DeleteKey(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "API key deleted successfully"})
}

// testKey runs the liveness check. A failed check answers 400 with the
// explained result; a transport failure answers 502.
func (s *Server) testKey(c *gin.Context) {
	key, ok := s.keyWithSecret(c)
	if !ok {
		return
	}
	res := s.probes.Load().Check(c.Request.Context(), key.Secret, key.Provider)
	status := http.StatusOK
	switch {
	case res.Status == core.StatusError && res.StatusCode == 0:
		status = http.StatusBadGateway
	case res.Status == core.StatusError:
		status = http.StatusBadRequest
	}
	c.JSON(status, res)
}

// probeKey always answers 200: probe failures are data, not HTTP errors.
func (s *Server) probeKey(c *gin.Context) {
	key, ok := s.keyWithSecret(c)
	if !ok {
		return
	}
	days := s.days(c)
	res := s.probes.Load().Probe(c.Request.Context(), key.Secret, key.Provider, days)
	c.JSON(http.StatusOK, res)
}

func (s *Server) revealKey(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	secret, err := s.store.RevealKey(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, gin.H{"id": id, "full_key": secret})
}

func (s *Server) usage(c *gin.Context) {
	rollup := usage.NewRollup(s.store, s.probes.Load(),
		usage.WithDelay(time.Duration(s.rollupDelay.Load())),
		usage.WithLogger(s.logger),
	)
	report, err := rollup.Run(c.Request.Context(), s.days(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) keyWithSecret(c *gin.Context) (core.KeyRecord, bool) {
	id, ok := pathID(c)
	if !ok {
		return core.KeyRecord{}, false
	}
	key, err := s.store.KeyWithSecret(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return core.KeyRecord{}, false
	}
	return key, true
}

// days reads ?days=, falling back to the configured default for missing or
// non-positive values.
func (s *Server) days(c *gin.Context) int {
	if n, err := strconv.Atoi(c.Query("days")); err == nil && n > 0 {
		return n
	}
	return int(s.lookbackDays.Load())
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return 0, false
	}
	return id, true
}

// fail maps store errors onto HTTP statuses. Messages of unexpected errors
// are logged, not returned.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: "Not found"})
	case errors.Is(err, store.ErrDuplicateEmail):
		c.JSON(http.StatusBadRequest, errorResponse{Error: "Account with this email already exists"})
	case errors.Is(err, store.ErrDuplicateName):
		c.JSON(http.StatusBadRequest, errorResponse{Error: "API key name already exists for this account"})
	case errors.Is(err, store.ErrInvalid):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrSealed):
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, context.Canceled):
		s.logger.Debug("request cancelled", "event", "http_cancelled", "path", c.Request.URL.Path)
		c.AbortWithStatus(statusClientClosedRequest)
	default:
		s.logger.Error("request failed", "event", "http_error", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "Database error"})
	}
}
