package capture

import (
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/reel/pkg/llm"
)

var _ = Describe("Recorder", func() {
	var path string

	BeforeEach(func() {
		path = filepath.Join(GinkgoT().TempDir(), "session.jsonl")
	})

	It("round-trips records through a capture file", func() {
		rec, err := NewRecorder(path, &Config{Logger: zap.NewNop()})
		Expect(err).NotTo(HaveOccurred())

		Expect(rec.Record(Record{AtMs: 10, Delta: llm.Delta{Content: "Hel"}})).To(BeTrue())
		Expect(rec.Record(Record{AtMs: 25, Delta: llm.Delta{Content: "lo"}})).To(BeTrue())
		Expect(rec.Record(Record{AtMs: 40, Delta: llm.Delta{ToolCalls: []llm.ToolCallDelta{
			{Index: 0, ID: "call_1", Name: "run", Arguments: "{}"},
		}}})).To(BeTrue())

		Expect(rec.Close()).To(Succeed())

		r, f, err := Open(path)
		Expect(err).NotTo(HaveOccurred())
		defer f.Close()

		first, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(first.AtMs).To(Equal(int64(10)))
		Expect(first.Delta.Content).To(Equal("Hel"))

		second, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(second.AtMs).To(Equal(int64(25)))

		third, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(third.Delta.ToolCalls).To(HaveLen(1))
		Expect(third.Delta.ToolCalls[0].Name).To(Equal("run"))

		end, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(end).To(BeNil())
	})

	It("stamps elapsed offsets when the caller does not", func() {
		rec, err := NewRecorder(path, nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(rec.Record(Record{Delta: llm.Delta{Content: "x"}})).To(BeTrue())
		Expect(rec.Close()).To(Succeed())

		r, f, err := Open(path)
		Expect(err).NotTo(HaveOccurred())
		defer f.Close()

		got, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(got.AtMs).To(BeNumerically(">=", 0))
	})

	It("writes one JSON object per line", func() {
		rec, err := NewRecorder(path, nil)
		Expect(err).NotTo(HaveOccurred())

		for range 5 {
			rec.Record(Record{AtMs: 1, Delta: llm.Delta{Content: "a"}})
		}
		Expect(rec.Close()).To(Succeed())

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())

		lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
		Expect(lines).To(HaveLen(5))
		for _, line := range lines {
			Expect(line).To(HavePrefix("{"))
			Expect(line).To(HaveSuffix("}"))
		}
	})

	It("Close drains everything already enqueued", func() {
		rec, err := NewRecorder(path, &Config{QueueSize: 1024})
		Expect(err).NotTo(HaveOccurred())

		const total = 500
		for i := range total {
			Expect(rec.Record(Record{AtMs: int64(i + 1), Delta: llm.Delta{Content: "x"}})).To(BeTrue())
		}
		Expect(rec.Close()).To(Succeed())

		r, f, err := Open(path)
		Expect(err).NotTo(HaveOccurred())
		defer f.Close()

		count := 0
		for {
			got, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			if got == nil {
				break
			}
			count++
		}
		Expect(count).To(Equal(total))
	})
})

var _ = Describe("Reader", func() {
	It("skips blank lines", func() {
		r := NewReader(strings.NewReader("\n{\"at_ms\":1,\"delta\":{\"content\":\"a\"}}\n\n"))

		got, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Delta.Content).To(Equal("a"))

		got, err = r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(BeNil())
	})

	It("reports the line number of a malformed record", func() {
		r := NewReader(strings.NewReader("{\"at_ms\":1,\"delta\":{}}\nnot json\n"))

		_, err := r.Next()
		Expect(err).NotTo(HaveOccurred())

		_, err = r.Next()
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("line 2"))
	})

	It("returns nil for an empty source", func() {
		r := NewReader(strings.NewReader(""))

		got, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(BeNil())
	})
})
