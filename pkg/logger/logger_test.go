package logger_test

import (
	"context"
	"log/slog"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/supakawaiidesu/obsidian-rpc-v2/pkg/logger"
)

func TestLogger(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Logger Suite")
}

var _ = Describe("New", func() {
	It("should create a logger for prod", func() {
		log := logger.New("info", false, "prod")
		Expect(log).NotTo(BeNil())
		Expect(log.Enabled(context.Background(), slog.LevelInfo)).To(BeTrue())
		Expect(log.Enabled(context.Background(), slog.LevelDebug)).To(BeFalse())
	})

	It("should create a logger for dev", func() {
		log := logger.New("debug", false, "dev")
		Expect(log).NotTo(BeNil())
		Expect(log.Enabled(context.Background(), slog.LevelDebug)).To(BeTrue())
	})

	It("should default unknown levels to info", func() {
		log := logger.New("verbose", false, "dev")
		Expect(log.Enabled(context.Background(), slog.LevelDebug)).To(BeFalse())
		Expect(log.Enabled(context.Background(), slog.LevelInfo)).To(BeTrue())
	})

	It("should respect the warn level", func() {
		log := logger.New("warn", false, "staging")
		Expect(log.Enabled(context.Background(), slog.LevelInfo)).To(BeFalse())
		Expect(log.Enabled(context.Background(), slog.LevelWarn)).To(BeTrue())
	})
})
