package main

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"bitbucket.org/kiranetwork/recon_backend/config"
	"bitbucket.org/kiranetwork/recon_backend/parser"
	"bitbucket.org/kiranetwork/recon_backend/utils"
	"bitbucket.org/kiranetwork/recon_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const maxStatementSizeBytes int64 = 20 * 1024 * 1024

var statementExtensions = map[string]bool{
	".xlsx": true,
	".xls":  true,
	".csv":  true,
}

// uploadStatementHandler receives one statement file as multipart form
// data, routes it through the source parsers and ingests the rows in a
// single transaction. The optional "label" field plays the role of the
// inbox subdirectory: it forces the account label for gateway files.
// Ledgers are NOT rebuilt here; run a sync job after uploading.
func uploadStatementHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()
		requestID := requestIDFromHeaders(c)

		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		if fileHeader.Size > maxStatementSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 20MB limit"})
			return
		}

		name := filepath.Base(fileHeader.Filename)
		ext := strings.ToLower(filepath.Ext(name))
		if !statementExtensions[ext] {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported file type %q", ext)})
			return
		}

		label := sanitizeSegment(strings.ToLower(strings.TrimSpace(c.PostForm("label"))))

		f, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload"})
			return
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, maxStatementSizeBytes+1))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload"})
			return
		}
		if int64(len(data)) > maxStatementSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 20MB limit"})
			return
		}

		pf := parser.ParseStatement(name, label, data)
		counts, err := workflow.IngestStatement(c.Request.Context(), pf)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"filename":   name,
				"request_id": requestID,
			}).Error("[upload.statement] " + err.Error())
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		logger.WithFields(logrus.Fields{
			"filename":   name,
			"source":     pf.Source,
			"platform":   pf.Platform,
			"inserted":   counts.Inserted,
			"skipped":    counts.Skipped,
			"bad_rows":   counts.BadRows,
			"request_id": requestID,
		}).Info("[upload.statement]")

		c.JSON(http.StatusOK, gin.H{
			"filename":      name,
			"source":        pf.Source,
			"platform":      pf.Platform,
			"account_label": pf.AccountLabel,
			"parsed":        counts.Parsed,
			"inserted":      counts.Inserted,
			"skipped":       counts.Skipped,
			"bad_rows":      counts.BadRows,
		})
	}
}

// maxObjectSizeBytes caps direct-to-bucket statements. They skip the
// request-body limit, so the cap only guards memory during parsing.
const maxObjectSizeBytes int64 = 100 * 1024 * 1024

const incomingObjectPrefix = "incoming/"

type uploadURLRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type"`
}

// uploadStatementURLHandler hands out a signed PUT URL so statement
// files too large for the multipart endpoint can go straight to the
// archive bucket. The written object is ingested afterwards through the
// ingest-object endpoint.
func uploadStatementURLHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req uploadURLRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "filename is required"})
			return
		}

		name := filepath.Base(strings.TrimSpace(req.Filename))
		ext := strings.ToLower(filepath.Ext(name))
		if !statementExtensions[ext] {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported file type %q", ext)})
			return
		}

		stamp := time.Now().UTC().Format("20060102T150405")
		objectKey := incomingObjectPrefix + stamp + "_" + name

		signed, err := utils.SignUpload(c.Request.Context(), objectKey, req.ContentType, 15*time.Minute)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, signed)
	}
}

type ingestObjectRequest struct {
	ObjectKey string `json:"object_key" binding:"required"`
	Label     string `json:"label"`
}

// ingestObjectHandler parses and ingests a statement previously PUT to
// the archive bucket via a signed upload URL. Only objects under the
// incoming/ prefix are reachable; the rest of the bucket is archive.
func ingestObjectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()
		requestID := requestIDFromHeaders(c)

		var req ingestObjectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "object_key is required"})
			return
		}
		objectKey := strings.TrimSpace(req.ObjectKey)
		if !strings.HasPrefix(objectKey, incomingObjectPrefix) || strings.Contains(objectKey, "..") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "object_key must be under " + incomingObjectPrefix})
			return
		}

		data, err := utils.FetchStatementFromGCS(c.Request.Context(), objectKey, maxObjectSizeBytes)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		name := filepath.Base(objectKey)
		label := sanitizeSegment(strings.ToLower(strings.TrimSpace(req.Label)))

		pf := parser.ParseStatement(name, label, data)
		counts, err := workflow.IngestStatement(c.Request.Context(), pf)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"object_key": objectKey,
				"request_id": requestID,
			}).Error("[upload.object] " + err.Error())
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		logger.WithFields(logrus.Fields{
			"object_key": objectKey,
			"source":     pf.Source,
			"platform":   pf.Platform,
			"inserted":   counts.Inserted,
			"skipped":    counts.Skipped,
			"bad_rows":   counts.BadRows,
			"request_id": requestID,
		}).Info("[upload.object]")

		c.JSON(http.StatusOK, gin.H{
			"object_key":    objectKey,
			"source":        pf.Source,
			"platform":      pf.Platform,
			"account_label": pf.AccountLabel,
			"parsed":        counts.Parsed,
			"inserted":      counts.Inserted,
			"skipped":       counts.Skipped,
			"bad_rows":      counts.BadRows,
		})
	}
}

func sanitizeSegment(input string) string {
	var out strings.Builder
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			out.WriteRune(r)
		}
	}
	return out.String()
}

func requestIDFromHeaders(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader("X-Correlation-Id")); id != "" {
		return id
	}
	if id := strings.TrimSpace(c.GetHeader("X-Request-Id")); id != "" {
		return id
	}
	return fmt.Sprintf("upload-%d", time.Now().UnixNano())
}
