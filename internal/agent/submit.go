package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Routes mounts the agent's message endpoint.
func (a *Agent) Routes(e *echo.Echo) {
	e.POST("/submit", a.handleSubmit)
}

func (a *Agent) handleSubmit(c echo.Context) error {
	var env Envelope
	if err := c.Bind(&env); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid envelope"})
	}
	if env.Schema != SchemaAnalyzeRequest {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("unsupported schema %q", env.Schema),
		})
	}

	var req AnalyzeRequest
	if err := json.Unmarshal(env.Payload, &req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid AnalyzeRequest payload"})
	}
	if req.SymbolA == "" || req.SymbolB == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "symbolA and symbolB required"})
	}

	log.Printf("[INFO] agent message from %s: %s/%s", env.Sender, req.SymbolA, req.SymbolB)

	session := env.Session
	if session == "" {
		session = uuid.NewString()
	}

	// Asynchronous delivery when the sender supplied a reply endpoint.
	if env.ReplyTo != "" {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			resp := a.Analyze(ctx, &req)
			reply, err := a.wrap(session, env.Sender, resp)
			if err != nil {
				log.Printf("[ERROR] build reply envelope: %v", err)
				return
			}
			if err := a.sendWithRetry(ctx, env.ReplyTo, reply, 3); err != nil {
				log.Printf("[ERROR] deliver reply to %s: %v", env.ReplyTo, err)
			}
		}()
		return c.JSON(http.StatusAccepted, map[string]string{"status": "delivering", "session": session})
	}

	resp := a.Analyze(c.Request().Context(), &req)
	reply, err := a.wrap(session, env.Sender, resp)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, reply)
}

func (a *Agent) wrap(session, target string, resp *AnalysisResponse) (*Envelope, error) {
	payload, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("marshal response payload: %w", err)
	}
	return &Envelope{
		Version: 1,
		Sender:  a.address,
		Target:  target,
		Session: session,
		Schema:  SchemaAnalysisResponse,
		Payload: payload,
	}, nil
}

// sendWithRetry posts an envelope to endpoint with exponential backoff.
func (a *Agent) sendWithRetry(ctx context.Context, endpoint string, env *Envelope, maxRetries int) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if err := a.send(ctx, endpoint, body); err != nil {
			lastErr = err
			backoff := time.Duration(1<<uint(i)) * time.Second
			log.Printf("[WARN] envelope send failed (attempt %d/%d): %v, retrying in %v", i+1, maxRetries+1, err, backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				continue
			}
		}
		return nil
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}

func (a *Agent) send(ctx context.Context, endpoint string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create envelope request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send envelope: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("envelope endpoint error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
