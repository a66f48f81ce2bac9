package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
	"github.com/custodia-labs/portfolio-rag/internal/logger"
)

// maxWebhookBody bounds the webhook payload read into memory.
const maxWebhookBody = 1 << 20

// HeaderOperation carries the CMS operation (create, update, delete).
const HeaderOperation = "Sanity-Operation"

// WebhookPayload is the projection a CMS webhook delivers.
type WebhookPayload struct {
	ID        string `json:"_id"`
	Type      string `json:"_type"`
	Rev       string `json:"_rev,omitempty"`
	Slug      any    `json:"slug,omitempty"`
	Title     string `json:"title,omitempty"`
	Operation string `json:"operation,omitempty"`
}

// WebhookResponse is returned after a webhook triggered sync.
type WebhookResponse struct {
	Success      bool           `json:"success"`
	Error        string         `json:"error,omitempty"`
	DocumentID   string         `json:"documentId"`
	DocumentType string         `json:"documentType"`
	Result       domain.Summary `json:"result"`
}

// RetrieveRequest is the body of POST /api/retrieve.
type RetrieveRequest struct {
	Query     string   `json:"query"`
	Threshold *float64 `json:"threshold,omitempty"`
	Limit     int      `json:"limit,omitempty"`
	Types     []string `json:"types,omitempty"`
}

func (s *Server) handleWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		fail(c, http.StatusBadRequest, "read body: "+err.Error())
		return
	}

	signature := c.GetHeader(HeaderSignature)
	if signature == "" {
		signature = c.GetHeader(HeaderSanitySignature)
	}
	if err := VerifySignature(s.cfg.WebhookSecret, body, signature); err != nil {
		if errors.Is(err, domain.ErrMissingSecret) {
			logger.Error("Webhook rejected: %v", err)
			fail(c, http.StatusInternalServerError, "webhook secret not configured")
			return
		}
		logger.Warn("Webhook rejected from %s: %v", c.ClientIP(), err)
		fail(c, http.StatusUnauthorized, err.Error())
		return
	}

	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		fail(c, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if payload.ID == "" || payload.Type == "" {
		fail(c, http.StatusBadRequest, "payload requires _id and _type")
		return
	}

	docType := domain.SourceType(payload.Type)
	if !docType.IsValid() || !s.allowed(docType) {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": fmt.Sprintf("Document type %s not supported", payload.Type),
		})
		return
	}

	// The sync outlives a client that gives up waiting.
	ctx := context.WithoutCancel(c.Request.Context())
	op := strings.ToLower(payload.Operation)
	if op == "" {
		op = strings.ToLower(c.GetHeader(HeaderOperation))
	}

	var report *domain.SyncReport
	if op == "delete" {
		logger.Info("Webhook: deleting %s (%s)", payload.ID, payload.Type)
		report, err = s.sync.DeleteOne(ctx, payload.ID)
	} else {
		logger.Info("Webhook: syncing %s (%s)", payload.ID, payload.Type)
		report, err = s.sync.SyncOne(ctx, payload.ID)
	}
	if err != nil {
		failErr(c, err)
		return
	}
	if report.HasFailures() {
		// A non-2xx status makes the CMS redeliver the webhook.
		msg := report.FirstError()
		logger.Error("Webhook: sync of %s failed: %s", payload.ID, msg)
		c.JSON(http.StatusInternalServerError, WebhookResponse{
			Success:      false,
			Error:        msg,
			DocumentID:   payload.ID,
			DocumentType: payload.Type,
			Result:       report.Summary(),
		})
		return
	}

	c.JSON(http.StatusOK, WebhookResponse{
		Success:      true,
		DocumentID:   payload.ID,
		DocumentType: payload.Type,
		Result:       report.Summary(),
	})
}

func (s *Server) handleAdminStats(c *gin.Context) {
	if s.index == nil {
		failErr(c, domain.ErrVectorStoreUnavailable)
		return
	}
	stats, err := s.index.Stats(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleAdminSync(c *gin.Context) {
	report, err := s.sync.Sync(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": report})
}

func (s *Server) handleRetrieve(c *gin.Context) {
	if s.retriever == nil {
		failErr(c, domain.ErrEmbeddingUnavailable)
		return
	}

	var req RetrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		fail(c, http.StatusBadRequest, "query is required")
		return
	}

	opts := &domain.RetrieveOptions{Threshold: req.Threshold, Limit: req.Limit}
	for _, t := range req.Types {
		opts.SourceTypes = append(opts.SourceTypes, domain.SourceType(t))
	}

	results, err := s.retriever.Retrieve(c.Request.Context(), req.Query, opts)
	if err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "results": results})
}
