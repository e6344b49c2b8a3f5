package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Elarafi-trade/pair-agentverse/internal/analyzer"
	"github.com/Elarafi-trade/pair-agentverse/internal/cache"
	"github.com/Elarafi-trade/pair-agentverse/internal/model"
)

const analysisReply = "```json\n{\"signal\":\"LONG\",\"confidence\":0.8,\"reasoning\":\"spread stretched\",\"risk_level\":\"MEDIUM\",\"key_factors\":[\"z-score\"],\"entry_recommendation\":\"enter on pullback\"}\n```"

func fakeOpenRouter(t *testing.T, reply string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		out := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": reply}},
			},
		}
		json.NewEncoder(w).Encode(out)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testAgent(t *testing.T, llm *httptest.Server, store cache.Cache) *Agent {
	t.Helper()
	an, err := analyzer.New("test-key", "test-model", llm.URL, "")
	if err != nil {
		t.Fatalf("new analyzer: %v", err)
	}
	if store == nil {
		store = cache.NewNoopCache()
	}
	return New("trade_analyzer", "test-seed", "http://localhost:8001/submit", an, store)
}

func submitEnvelope(t *testing.T, a *Agent, env *Envelope) (*httptest.ResponseRecorder, *Envelope) {
	t.Helper()
	e := echo.New()
	a.Routes(e)

	body, _ := json.Marshal(env)
	req := httptest.NewRequest(http.MethodPost, "/submit", bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var reply Envelope
	if rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), &reply); err != nil {
			t.Fatalf("decode reply envelope: %v", err)
		}
	}
	return rec, &reply
}

func analyzePayload(t *testing.T) json.RawMessage {
	t.Helper()
	payload, err := json.Marshal(AnalyzeRequest{
		SymbolA: "SOL", SymbolB: "BTC",
		ZScore: 2.5, Correlation: 0.85, SpreadMean: 0.0012, SpreadStd: 0.0045, Beta: 1.15,
	})
	if err != nil {
		t.Fatal(err)
	}
	return payload
}

func TestAddressIsStable(t *testing.T) {
	a := deriveAddress("trade_analyzer", "seed-1")
	b := deriveAddress("trade_analyzer", "seed-1")
	c := deriveAddress("trade_analyzer", "seed-2")
	if a != b {
		t.Error("same seed must derive the same address")
	}
	if a == c {
		t.Error("different seeds must derive different addresses")
	}
	if len(a) != len("agent1")+58 {
		t.Errorf("address length = %d", len(a))
	}
}

func TestSubmitRoundTrip(t *testing.T) {
	a := testAgent(t, fakeOpenRouter(t, analysisReply, http.StatusOK), nil)

	rec, reply := submitEnvelope(t, a, &Envelope{
		Version: 1,
		Sender:  "agent1requester",
		Target:  a.Address(),
		Schema:  SchemaAnalyzeRequest,
		Payload: analyzePayload(t),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if reply.Sender != a.Address() || reply.Target != "agent1requester" {
		t.Errorf("envelope addressing wrong: sender=%s target=%s", reply.Sender, reply.Target)
	}
	if reply.Schema != SchemaAnalysisResponse {
		t.Errorf("schema = %q", reply.Schema)
	}
	if reply.Session == "" {
		t.Error("reply must carry a session id")
	}

	var resp AnalysisResponse
	if err := json.Unmarshal(reply.Payload, &resp); err != nil {
		t.Fatalf("decode response payload: %v", err)
	}
	if resp.Signal != "LONG" || resp.Confidence != 0.8 {
		t.Errorf("response = %+v", resp)
	}
	if resp.SymbolA != "SOL-PERP" || resp.SymbolB != "BTC-PERP" {
		t.Errorf("symbols not normalized: %s/%s", resp.SymbolA, resp.SymbolB)
	}
	if resp.ZScore != 2.5 || resp.Beta != 1.15 {
		t.Error("input metrics must be echoed back")
	}
}

func TestSubmitRejectsUnknownSchema(t *testing.T) {
	a := testAgent(t, fakeOpenRouter(t, analysisReply, http.StatusOK), nil)
	rec, _ := submitEnvelope(t, a, &Envelope{
		Version: 1,
		Schema:  "something-else",
		Payload: analyzePayload(t),
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAnalyzeFailureProducesErrorResponse(t *testing.T) {
	// 400 from the model API is not retried, so the error path is fast.
	a := testAgent(t, fakeOpenRouter(t, "", http.StatusBadRequest), nil)

	resp := a.Analyze(context.Background(), &AnalyzeRequest{SymbolA: "SOL", SymbolB: "BTC", ZScore: 1.2})
	if resp.Signal != string(model.SignalNeutral) || resp.Confidence != 0.0 {
		t.Errorf("error response = %+v, want NEUTRAL/0.0", resp)
	}
	if resp.RiskLevel != string(model.RiskHigh) {
		t.Errorf("risk = %q, want HIGH", resp.RiskLevel)
	}
	if len(resp.KeyFactors) != 1 || resp.KeyFactors[0] != "ERROR" {
		t.Errorf("key factors = %v", resp.KeyFactors)
	}
	if resp.ZScore != 1.2 {
		t.Error("error response must still echo the metrics")
	}
}

func TestAnalyzeServesFromCache(t *testing.T) {
	store, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"), 24*time.Hour)
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	defer store.Close()

	// Any model call would fail; a cache hit must avoid it entirely.
	a := testAgent(t, fakeOpenRouter(t, "", http.StatusBadRequest), store)

	key := cache.PairKey("SOL-PERP", "BTC-PERP")
	store.Put(context.Background(), &cache.Entry{
		PairKey: key,
		SymbolA: "SOL-PERP",
		SymbolB: "BTC-PERP",
		Metrics: &model.Metrics{ZScore: 2.5},
		Analysis: &model.Analysis{
			Signal: model.SignalShort, Confidence: 0.9, Reasoning: "cached",
			RiskLevel: model.RiskLow, KeyFactors: []string{}, EntryRecommendation: "hold",
		},
	})

	resp := a.Analyze(context.Background(), &AnalyzeRequest{SymbolA: "SOL", SymbolB: "BTC"})
	if resp.Signal != string(model.SignalShort) || resp.Reasoning != "cached" {
		t.Errorf("expected cached analysis, got %+v", resp)
	}
}

func TestSubmitAsyncDelivery(t *testing.T) {
	a := testAgent(t, fakeOpenRouter(t, analysisReply, http.StatusOK), nil)

	delivered := make(chan Envelope, 1)
	sink := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var env Envelope
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			t.Errorf("decode delivered envelope: %v", err)
		}
		delivered <- env
	}))
	defer sink.Close()

	rec, _ := submitEnvelope(t, a, &Envelope{
		Version: 1,
		Sender:  "agent1requester",
		Schema:  SchemaAnalyzeRequest,
		ReplyTo: sink.URL,
		Payload: analyzePayload(t),
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}

	select {
	case env := <-delivered:
		if env.Schema != SchemaAnalysisResponse {
			t.Errorf("delivered schema = %q", env.Schema)
		}
		var resp AnalysisResponse
		if err := json.Unmarshal(env.Payload, &resp); err != nil {
			t.Fatalf("decode delivered payload: %v", err)
		}
		if resp.Signal != "LONG" {
			t.Errorf("delivered signal = %q", resp.Signal)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("reply was not delivered")
	}
}
