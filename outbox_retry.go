package main

import (
	"net/http"
	"time"

	"bitbucket.org/kiranetwork/recon_backend/config"
	"bitbucket.org/kiranetwork/recon_backend/models"
	"github.com/gin-gonic/gin"
)

type outboxRetryRequest struct {
	RecordId int `json:"record_id"`
}

// outboxRetryHandler makes FAILED outbox rows due immediately so the
// dispatcher picks them up on its next poll. With record_id it targets a
// single row regardless of backoff; without it, every FAILED row.
func outboxRetryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req outboxRetryRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
				return
			}
		}

		db := config.GetDB()
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "db is nil"})
			return
		}

		now := time.Now().UTC()
		q := db.WithContext(c.Request.Context()).
			Model(&models.ReconEventRecord{}).
			Where("publish_status = ?", models.OutboxPublishStatusFailed)
		if req.RecordId > 0 {
			q = q.Where("id = ?", req.RecordId)
		}
		res := q.Updates(map[string]interface{}{
			"next_attempt_at":    &now,
			"locked_at":          nil,
			"locked_by":          nil,
			"last_publish_error": nil,
		})
		if res.Error != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": res.Error.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"records":         res.RowsAffected,
			"publish_status":  models.OutboxPublishStatusFailed,
			"next_attempt_at": now.Format(time.RFC3339Nano),
		})
	}
}
