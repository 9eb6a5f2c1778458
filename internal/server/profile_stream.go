package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	profiledomain "github.com/smallbiznis/tradesmap/internal/profile/domain"
)

const profileStreamHeartbeat = 15 * time.Second

// StreamProfile sends the session's current profile as server-sent events,
// starting with the present value. A null payload means no profile.
func (s *Server) StreamProfile(c *gin.Context) {
	sess := sessionFromContext(c)
	updates, cancel := sess.Subscribe()
	defer cancel()

	writer := c.Writer
	headers := writer.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	flusher, ok := writer.(http.Flusher)
	if !ok {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	if _, err := io.WriteString(writer, "retry: 2000\n\n"); err != nil {
		return
	}
	flusher.Flush()

	ctx := c.Request.Context()
	heartbeat := time.NewTicker(profileStreamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case profile, open := <-updates:
			if !open {
				return
			}
			if err := writeProfileEvent(writer, profile); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := io.WriteString(writer, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeProfileEvent(w io.Writer, profile *profiledomain.Profile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: profile\ndata: %s\n\n", data)
	return err
}
