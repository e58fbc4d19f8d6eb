package classify_test

import (
	"encoding/json"
	"errors"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/classify"
	"github.com/supakawaiidesu/obsidian-rpc-v2/internal/jsonrpc"
)

func TestClassify(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Classify Suite")
}

var _ = Describe("Classify", func() {
	DescribeTable("application RPC errors",
		func(text string) {
			Expect(classify.Classify(text)).To(Equal(classify.KindRPCError))
		},
		Entry("reverted call", "execution reverted: ERC20: transfer amount exceeds balance"),
		Entry("insufficient funds", "insufficient funds for gas * price + value"),
		Entry("low nonce", "nonce too low"),
		Entry("high nonce", "nonce too high"),
		Entry("underpriced", "transaction underpriced"),
		Entry("intrinsic gas", "intrinsic gas too low"),
		Entry("invalid argument", "invalid argument 0: hex string without 0x prefix"),
		Entry("already known", "already known"),
		Entry("replacement", "replacement transaction underpriced"),
		Entry("invalid signature", "invalid signature values"),
	)

	DescribeTable("endpoint failures",
		func(text string) {
			Expect(classify.Classify(text)).To(Equal(classify.KindEndpointFailure))
		},
		Entry("rate limit", "rate limit exceeded"),
		Entry("too many requests", "Too Many Requests"),
		Entry("request limit", "request limit exceeded for this key"),
		Entry("throttled", "request was throttled"),
		Entry("http 429", "unexpected status 429"),
		Entry("compute units", "exceeded its compute units per second capacity"),
		Entry("quota", "quota exceeded"),
		Entry("credits", "insufficient credits remaining"),
		Entry("refused", "dial tcp: connection refused"),
		Entry("reset", "read: connection reset by peer"),
		Entry("node errno", "ECONNREFUSED"),
		Entry("dns", "ENOTFOUND"),
		Entry("hang up", "socket hang up"),
		Entry("timeout", "i/o timeout"),
		Entry("service unavailable", "503 Service Unavailable"),
		Entry("bad gateway", "502 Bad Gateway"),
		Entry("internal server error", "Internal Server Error"),
	)

	It("should let application patterns win over endpoint patterns", func() {
		// "gas limit" also contains "limit"-style endpoint vocabulary.
		Expect(classify.Classify("exceeds block gas limit")).To(Equal(classify.KindRPCError))
		Expect(classify.Classify("execution reverted after 429 upstream hops")).To(Equal(classify.KindRPCError))
	})

	It("should default unknown errors to application errors", func() {
		Expect(classify.Classify("some novel failure mode")).To(Equal(classify.KindRPCError))
		Expect(classify.Classify("")).To(Equal(classify.KindRPCError))
		Expect(classify.Classify(nil)).To(Equal(classify.KindRPCError))
	})

	It("should match case-insensitively", func() {
		Expect(classify.Classify("RATE LIMIT EXCEEDED")).To(Equal(classify.KindEndpointFailure))
		Expect(classify.Classify("Execution Reverted")).To(Equal(classify.KindRPCError))
	})

	Describe("polymorphic inputs", func() {
		It("should classify structured errors by message", func() {
			err := &jsonrpc.Error{Code: -32000, Message: "rate limit exceeded"}
			Expect(classify.IsEndpointFailure(err)).To(BeTrue())
		})

		It("should fall back to data when the message is empty", func() {
			err := &jsonrpc.Error{Code: -32000, Data: json.RawMessage(`"ETIMEDOUT"`)}
			Expect(classify.IsEndpointFailure(err)).To(BeTrue())
		})

		It("should serialize unknown shapes", func() {
			v := map[string]any{"reason": "connection closed unexpectedly"}
			Expect(classify.IsEndpointFailure(v)).To(BeTrue())
		})

		It("should classify Go errors by their text", func() {
			Expect(classify.IsEndpointFailure(errors.New("network error"))).To(BeTrue())
			Expect(classify.IsEndpointFailure(errors.New("nonce too low"))).To(BeFalse())
		})
	})
})
