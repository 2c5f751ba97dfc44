package replaycmder_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	replaycmder "github.com/papercomputeco/reel/cmd/reel/replay"
	"github.com/papercomputeco/reel/pkg/capture"
	"github.com/papercomputeco/reel/pkg/llm"
)

var _ = Describe("NewReplayCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := replaycmder.NewReplayCmd()
		Expect(cmd.Use).To(Equal("replay <capture-file>"))
	})

	It("requires exactly one argument", func() {
		cmd := replaycmder.NewReplayCmd()
		Expect(cmd.Args(cmd, []string{})).To(HaveOccurred())
		Expect(cmd.Args(cmd, []string{"a", "b"})).To(HaveOccurred())
		Expect(cmd.Args(cmd, []string{"capture.jsonl"})).NotTo(HaveOccurred())
	})

	It("has --speed flag defaulting to 1", func() {
		cmd := replaycmder.NewReplayCmd()
		flag := cmd.Flags().Lookup("speed")
		Expect(flag).NotTo(BeNil())
		Expect(flag.DefValue).To(Equal("1"))
	})

	It("has --fast, --follow, --stats, and --markdown flags defaulting to false", func() {
		cmd := replaycmder.NewReplayCmd()
		for _, name := range []string{"fast", "follow", "stats", "markdown"} {
			flag := cmd.Flags().Lookup(name)
			Expect(flag).NotTo(BeNil(), name)
			Expect(flag.DefValue).To(Equal("false"), name)
		}
	})
})

var _ = Describe("Replay command execution", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "replay-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	writeCapture := func(records []capture.Record) string {
		path := filepath.Join(tmpDir, "capture.jsonl")

		recorder, err := capture.NewRecorder(path, nil)
		Expect(err).NotTo(HaveOccurred())
		for _, rec := range records {
			Expect(recorder.Record(rec)).To(BeTrue())
		}
		Expect(recorder.Close()).To(Succeed())

		return path
	}

	It("replays a capture file to completion with --fast", func() {
		path := writeCapture([]capture.Record{
			{AtMs: 1000, Delta: llm.Delta{Content: "Hello"}},
			{AtMs: 1050, Delta: llm.Delta{Content: " world"}},
			{AtMs: 1100, Delta: llm.Delta{}},
		})

		cmd := replaycmder.NewReplayCmd()
		cmd.SetArgs([]string{path, "--fast"})
		Expect(cmd.Execute()).To(Succeed())
	})

	It("replays tool-call deltas without error", func() {
		path := writeCapture([]capture.Record{
			{AtMs: 1000, Delta: llm.Delta{ToolCalls: []llm.ToolCallDelta{
				{Index: 0, ID: "call_1", Name: "read_file", Arguments: `{"path":`},
			}}},
			{AtMs: 1010, Delta: llm.Delta{ToolCalls: []llm.ToolCallDelta{
				{Index: 0, Arguments: `"main.go"}`},
			}}},
		})

		cmd := replaycmder.NewReplayCmd()
		cmd.SetArgs([]string{path, "--fast", "--stats"})
		Expect(cmd.Execute()).To(Succeed())
	})

	It("renders the reconstructed response with --markdown", func() {
		path := writeCapture([]capture.Record{
			{AtMs: 1000, Delta: llm.Delta{Content: "# Title\n"}},
			{AtMs: 1020, Delta: llm.Delta{Content: "Some *emphasis* here."}},
		})

		cmd := replaycmder.NewReplayCmd()
		cmd.SetArgs([]string{path, "--fast", "--markdown"})
		Expect(cmd.Execute()).To(Succeed())
	})

	It("fails for a missing capture file", func() {
		cmd := replaycmder.NewReplayCmd()
		cmd.SetArgs([]string{filepath.Join(tmpDir, "missing.jsonl"), "--fast"})
		Expect(cmd.Execute()).To(HaveOccurred())
	})

	It("rejects a non-positive --speed", func() {
		path := writeCapture([]capture.Record{
			{AtMs: 1000, Delta: llm.Delta{Content: "x"}},
		})

		cmd := replaycmder.NewReplayCmd()
		cmd.SetArgs([]string{path, "--speed", "0"})
		Expect(cmd.Execute()).To(HaveOccurred())
	})
})
