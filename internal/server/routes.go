package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes exposes read-only cursor and channel views.
func (s *CursorServer) RegisterRoutes(r gin.IRoutes) {
	r.GET("/cursors", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"frame_id":      s.FrameID(),
			"frame_time_ms": s.FrameTime().Milliseconds(),
			"cursors":       s.Cursors(),
		})
	})

	r.GET("/cursors/:session_id", func(c *gin.Context) {
		var uri struct {
			SessionID int64 `uri:"session_id" binding:"min=0"`
		}
		if err := c.ShouldBindUri(&uri); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		cur, ok := s.Cursor(uri.SessionID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "cursor not found"})
			return
		}
		c.JSON(http.StatusOK, cur)
	})

	r.GET("/channels", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"source":   s.SourceName(),
			"channels": s.ChannelStatuses(),
		})
	})
}
