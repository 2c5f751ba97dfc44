package worker

import (
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/reel/pkg/capture"
	"github.com/papercomputeco/reel/pkg/llm"
)

var _ = Describe("Pool", func() {
	var captureDir string

	BeforeEach(func() {
		var err error
		captureDir, err = os.MkdirTemp("", "worker-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(captureDir)
	})

	newPool := func() *Pool {
		pool, err := NewPool(&Config{
			CaptureDir: captureDir,
			NumWorkers: 1,
			Logger:     zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())
		return pool
	}

	listCaptures := func() []string {
		entries, err := os.ReadDir(captureDir)
		Expect(err).NotTo(HaveOccurred())
		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			names = append(names, entry.Name())
		}
		return names
	}

	It("requires a capture dir", func() {
		_, err := NewPool(&Config{Logger: zap.NewNop()})
		Expect(err).To(MatchError(ContainSubstring("capture dir is required")))
	})

	It("creates the capture dir if missing", func() {
		nested := filepath.Join(captureDir, "a", "b")
		pool, err := NewPool(&Config{CaptureDir: nested, Logger: zap.NewNop()})
		Expect(err).NotTo(HaveOccurred())
		pool.Close()

		info, err := os.Stat(nested)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())
	})

	It("writes one capture file per job, preserving record order", func() {
		pool := newPool()

		records := []capture.Record{
			{AtMs: 10, Delta: llm.Delta{Content: "Hello"}},
			{AtMs: 25, Delta: llm.Delta{Content: " world"}},
			{AtMs: 40, Delta: llm.Delta{ToolCalls: []llm.ToolCallDelta{
				{Index: 0, ID: "call_1", Name: "read_file", Arguments: `{"path":"a.go"}`},
			}}},
		}

		Expect(pool.Enqueue(Job{Provider: "openai", Model: "gpt-4", Records: records})).To(BeTrue())
		pool.Close()

		names := listCaptures()
		Expect(names).To(HaveLen(1))
		Expect(names[0]).To(HavePrefix("proxy-"))
		Expect(strings.HasSuffix(names[0], ".jsonl")).To(BeTrue())

		reader, f, err := capture.Open(filepath.Join(captureDir, names[0]))
		Expect(err).NotTo(HaveOccurred())
		defer f.Close()

		var got []capture.Record
		for {
			rec, err := reader.Next()
			Expect(err).NotTo(HaveOccurred())
			if rec == nil {
				break
			}
			got = append(got, *rec)
		}

		Expect(got).To(HaveLen(3))
		Expect(got[0].AtMs).To(Equal(int64(10)))
		Expect(got[0].Delta.Content).To(Equal("Hello"))
		Expect(got[1].Delta.Content).To(Equal(" world"))
		Expect(got[2].Delta.ToolCalls).To(HaveLen(1))
		Expect(got[2].Delta.ToolCalls[0].Name).To(Equal("read_file"))
	})

	It("skips jobs with no records", func() {
		pool := newPool()

		Expect(pool.Enqueue(Job{Provider: "ollama", Model: "llama3"})).To(BeTrue())
		pool.Close()

		Expect(listCaptures()).To(BeEmpty())
	})

	It("writes separate files for separate jobs", func() {
		pool := newPool()

		for range 3 {
			Expect(pool.Enqueue(Job{
				Provider: "ollama",
				Model:    "llama3",
				Records:  []capture.Record{{AtMs: 5, Delta: llm.Delta{Content: "hi"}}},
			})).To(BeTrue())
		}
		pool.Close()

		Expect(listCaptures()).To(HaveLen(3))
	})
})
