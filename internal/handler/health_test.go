package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/endpoint"
	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/handler"
	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/metrics"
	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/rpccache"
	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/selector"
)

var _ = Describe("HealthHandler", func() {
	var (
		reg *endpoint.Registry
		sel *selector.Selector
		h   *handler.HealthHandler
	)

	urls := []string{
		"https://arb1.example.com/rpc",
		"https://arb2.example.com/rpc",
	}

	newHealth := func(cache *rpccache.Cache) *handler.HealthHandler {
		reg = endpoint.NewRegistry(urls)
		sel = selector.New(reg, 200)
		collector := metrics.NewCollector(8, testLogger())
		return handler.NewHealthHandler(reg, sel, collector, cache, 200, 6*time.Second, 1<<20)
	}

	get := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	decode := func(w *httptest.ResponseRecorder) map[string]any {
		var report map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &report)).To(Succeed())
		return report
	}

	BeforeEach(func() {
		h = newHealth(nil)
	})

	It("should report healthy when endpoints are in rotation", func() {
		w := get()
		Expect(w.Code).To(Equal(http.StatusOK))

		report := decode(w)
		Expect(report["status"]).To(Equal("healthy"))
		Expect(report["healthyEndpoints"]).To(BeEquivalentTo(2))
		Expect(report["rpcUrls"]).To(HaveLen(2))
		Expect(report["currentIndex"]).To(BeEquivalentTo(0))
	})

	It("should report degraded when no endpoint is healthy", func() {
		for _, u := range urls {
			ep := reg.Get(u)
			for i := 0; i < 3; i++ {
				ep.RecordFailure()
			}
		}

		report := decode(get())
		Expect(report["status"]).To(Equal("degraded"))
		Expect(report["healthyEndpoints"]).To(BeEquivalentTo(0))
	})

	It("should include per-endpoint stats", func() {
		reg.Get(urls[0]).RecordSuccess(10 * time.Millisecond)
		reg.Get(urls[0]).RecordFailure()

		report := decode(get())
		endpoints := report["endpoints"].([]any)
		Expect(endpoints).To(HaveLen(2))

		first := endpoints[0].(map[string]any)
		Expect(first["url"]).To(Equal(urls[0]))
		Expect(first["totalRequests"]).To(BeEquivalentTo(2))
		Expect(first["totalFailures"]).To(BeEquivalentTo(1))
		Expect(first["failureRate"]).To(BeEquivalentTo(0.5))
		Expect(first["lastFailure"]).NotTo(BeNil())

		second := endpoints[1].(map[string]any)
		Expect(second["lastFailure"]).To(BeNil())
	})

	It("should describe the configuration", func() {
		report := decode(get())
		cfg := report["config"].(map[string]any)
		Expect(cfg["maxConcurrentRequests"]).To(BeEquivalentTo(200))
		Expect(cfg["requestTimeout"]).To(BeEquivalentTo(6000))
		Expect(cfg["maxRequestSize"]).To(BeEquivalentTo(1048576))
	})

	It("should report a disabled cache", func() {
		report := decode(get())
		cache := report["cache"].(map[string]any)
		Expect(cache["enabled"]).To(BeFalse())
		Expect(cache["size"]).To(BeEquivalentTo(0))
	})

	It("should report cache size and TTL when enabled", func() {
		c := rpccache.New(time.Second)
		c.Put("k", json.RawMessage(`"0x1"`))
		h = newHealth(c)

		report := decode(get())
		cache := report["cache"].(map[string]any)
		Expect(cache["enabled"]).To(BeTrue())
		Expect(cache["size"]).To(BeEquivalentTo(1))
		Expect(cache["ttl"]).To(BeEquivalentTo(1000))
	})

	It("should reject non-GET methods", func() {
		req := httptest.NewRequest(http.MethodPost, "/health", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusMethodNotAllowed))
	})
})
