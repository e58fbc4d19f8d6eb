package dispatch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/dispatch"
	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/endpoint"
	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/jsonrpc"
	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/selector"
)

func rpcUpstream(body string, hits *int64) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt64(hits, 1)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
}

var _ = Describe("Forwarder", func() {
	var d *dispatch.Dispatcher

	BeforeEach(func() {
		d = dispatch.NewDispatcher(&http.Client{}, time.Second, testLogger())
	})

	newForwarder := func(retries int, urls ...string) (*dispatch.Forwarder, *endpoint.Registry) {
		reg := endpoint.NewRegistry(urls)
		sel := selector.New(reg, 200)
		return dispatch.NewForwarder(sel, d, retries, testLogger()), reg
	}

	Context("when the primary endpoint fails at the provider level", func() {
		var (
			limited *httptest.Server
			working *httptest.Server
		)

		BeforeEach(func() {
			limited = rpcUpstream(`{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"rate limit exceeded"}}`, nil)
			working = rpcUpstream(`{"jsonrpc":"2.0","id":1,"result":"0xabc"}`, nil)
		})

		AfterEach(func() {
			limited.Close()
			working.Close()
		})

		It("should recover on an alternative endpoint", func() {
			f, reg := newForwarder(2, limited.URL, working.URL)

			resp, failure := f.Forward(context.Background(), blockNumberRequest())

			Expect(failure).To(BeFalse())
			Expect(resp.Error).To(BeNil())
			Expect(string(resp.Result)).To(Equal(`"0xabc"`))
			Expect(reg.Get(limited.URL).ConsecutiveFailures()).To(Equal(1))
			Expect(reg.Get(working.URL).ConsecutiveFailures()).To(BeZero())
		})

		It("should not retry when retries are disabled", func() {
			f, _ := newForwarder(0, limited.URL, working.URL)

			resp, failure := f.Forward(context.Background(), blockNumberRequest())

			Expect(failure).To(BeTrue())
			Expect(resp.Error).NotTo(BeNil())
		})
	})

	Context("when the upstream returns an application RPC error", func() {
		var (
			reverting *httptest.Server
			working   *httptest.Server
			hits      int64
		)

		BeforeEach(func() {
			hits = 0
			reverting = rpcUpstream(`{"jsonrpc":"2.0","id":1,"error":{"code":3,"message":"execution reverted"}}`, nil)
			working = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt64(&hits, 1)
				w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0xabc"}`))
			}))
		})

		AfterEach(func() {
			reverting.Close()
			working.Close()
		})

		It("should pass it through without retrying", func() {
			f, reg := newForwarder(2, reverting.URL, working.URL)

			resp, failure := f.Forward(context.Background(), blockNumberRequest())

			Expect(failure).To(BeFalse())
			Expect(resp.Error).NotTo(BeNil())
			Expect(resp.Error.Message).To(Equal("execution reverted"))
			Expect(atomic.LoadInt64(&hits)).To(BeZero())
			Expect(reg.Get(reverting.URL).IsHealthy()).To(BeTrue())
		})
	})

	Context("when every endpoint fails", func() {
		It("should bound total attempts at one plus the retry budget", func() {
			var a, b, c int64
			up1 := rpcUpstream(`{"jsonrpc":"2.0","id":1,"error":{"message":"ETIMEDOUT"}}`, &a)
			up2 := rpcUpstream(`{"jsonrpc":"2.0","id":1,"error":{"message":"ETIMEDOUT"}}`, &b)
			up3 := rpcUpstream(`{"jsonrpc":"2.0","id":1,"error":{"message":"ETIMEDOUT"}}`, &c)
			defer up1.Close()
			defer up2.Close()
			defer up3.Close()

			f, _ := newForwarder(1, up1.URL, up2.URL, up3.URL)

			resp, failure := f.Forward(context.Background(), blockNumberRequest())

			Expect(failure).To(BeTrue())
			Expect(resp.Error).NotTo(BeNil())
			Expect(atomic.LoadInt64(&a) + atomic.LoadInt64(&b) + atomic.LoadInt64(&c)).To(Equal(int64(2)))
		})

		It("should return the last error seen", func() {
			up1 := rpcUpstream(`{"jsonrpc":"2.0","id":1,"error":{"message":"ETIMEDOUT"}}`, nil)
			up2 := rpcUpstream(`{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"service unavailable"}}`, nil)
			defer up1.Close()
			defer up2.Close()

			f, _ := newForwarder(2, up1.URL, up2.URL)

			resp, failure := f.Forward(context.Background(), blockNumberRequest())

			Expect(failure).To(BeTrue())
			Expect(resp.Error.Message).To(Equal("service unavailable"))
		})
	})

	Context("with no endpoints configured", func() {
		It("should synthesize an internal error", func() {
			f, _ := newForwarder(2)

			resp, failure := f.Forward(context.Background(), blockNumberRequest())

			Expect(failure).To(BeTrue())
			Expect(resp.Error).NotTo(BeNil())
			Expect(resp.Error.Code).To(Equal(jsonrpc.CodeInternalError))
			Expect(string(resp.ID)).To(Equal("1"))
		})
	})
})
