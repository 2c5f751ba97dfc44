package stream

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/reel/pkg/llm"
)

var _ = Describe("Commentary tool-call extraction", func() {
	Describe("extractCommentaryToolCalls", func() {
		It("pulls an invocation out of a code fence", func() {
			text := "I'll read the file:\n```json\n{\"name\": \"read_file\", \"arguments\": {\"path\": \"main.go\"}}\n```\n"

			calls := extractCommentaryToolCalls(text)
			Expect(calls).To(HaveLen(1))
			Expect(calls[0].Name).To(Equal("read_file"))
			Expect(calls[0].Arguments).To(MatchJSON(`{"path": "main.go"}`))
			Expect(calls[0].ID).To(HavePrefix("call_"))
		})

		It("accepts the parameters alias for arguments", func() {
			calls := extractCommentaryToolCalls(`{"name": "run", "parameters": {"cmd": "ls"}}`)
			Expect(calls).To(HaveLen(1))
			Expect(calls[0].Arguments).To(MatchJSON(`{"cmd": "ls"}`))
		})

		It("unquotes string-valued arguments", func() {
			calls := extractCommentaryToolCalls(`{"name": "run", "arguments": "{\"cmd\": \"ls\"}"}`)
			Expect(calls).To(HaveLen(1))
			Expect(calls[0].Arguments).To(MatchJSON(`{"cmd": "ls"}`))
		})

		It("defaults missing arguments to an empty object", func() {
			calls := extractCommentaryToolCalls(`{"name": "ping"}`)
			Expect(calls).To(HaveLen(1))
			Expect(calls[0].Arguments).To(Equal("{}"))
		})

		It("skips candidates without a name and keeps scanning", func() {
			text := `{"nope": 1} some prose {"name": "b"} {"broken": ` + "\n" +
				`{"name": "c", "arguments": {}}`

			calls := extractCommentaryToolCalls(text)
			// The unterminated object swallows the rest of the text, so only
			// the two balanced candidates before it are considered.
			Expect(calls).To(HaveLen(1))
			Expect(calls[0].Name).To(Equal("b"))
			Expect(calls[0].Index).To(Equal(0))
		})

		It("is not fooled by braces inside JSON strings", func() {
			calls := extractCommentaryToolCalls(`{"name": "echo", "arguments": {"text": "say {hi} ok"}}`)
			Expect(calls).To(HaveLen(1))
			Expect(calls[0].Name).To(Equal("echo"))
		})

		It("indexes multiple extracted calls in document order", func() {
			text := `first {"name": "a"} then {"name": "b"}`

			calls := extractCommentaryToolCalls(text)
			Expect(calls).To(HaveLen(2))
			Expect(calls[0].Name).To(Equal("a"))
			Expect(calls[0].Index).To(Equal(0))
			Expect(calls[1].Name).To(Equal("b"))
			Expect(calls[1].Index).To(Equal(1))
		})

		It("returns nothing for plain prose", func() {
			Expect(extractCommentaryToolCalls("no tools here, just text")).To(BeEmpty())
		})
	})

	Describe("end-of-round fallback", func() {
		feedContent := func(p *Processor, clock *fakeClock, text string) {
			_, err := p.ProcessDelta(llm.Delta{Content: text})
			Expect(err).NotTo(HaveOccurred())
			clock.advance(time.Second)
		}

		It("synthesizes tool calls at Finish when none arrived structurally", func() {
			p, clock := newTestProcessor(nil)
			feedContent(p, clock, `Running it: {"name": "run", "arguments": {"cmd": "ls"}}`)

			events, err := p.Finish()
			Expect(err).NotTo(HaveOccurred())

			var toolEvents []Event
			for _, ev := range events {
				if ev.Kind == EventToolCall {
					toolEvents = append(toolEvents, ev)
				}
			}
			Expect(toolEvents).To(HaveLen(1))
			Expect(toolEvents[0].ToolCall.Name).To(Equal("run"))

			// The synthesized record is visible through the accessor too.
			Expect(p.ToolCalls()).To(HaveLen(1))
		})

		It("never runs alongside structured tool calls", func() {
			p, clock := newTestProcessor(nil)
			feedContent(p, clock, `{"name": "run", "arguments": {}}`)

			_, err := p.ProcessDelta(llm.Delta{ToolCalls: []llm.ToolCallDelta{
				{Index: 0, ID: "c1", Name: "write", Arguments: "{}"},
			}})
			Expect(err).NotTo(HaveOccurred())

			_, err = p.Finish()
			Expect(err).NotTo(HaveOccurred())

			calls := p.ToolCalls()
			Expect(calls).To(HaveLen(1))
			Expect(calls[0].Name).To(Equal("write"))
		})

		It("stays quiet when extraction is disabled", func() {
			p, clock := newTestProcessor(func(cfg *Config) {
				cfg.ExtractCommentaryTools = false
			})
			feedContent(p, clock, `{"name": "run", "arguments": {}}`)

			events, err := p.Finish()
			Expect(err).NotTo(HaveOccurred())
			for _, ev := range events {
				Expect(ev.Kind).NotTo(Equal(EventToolCall))
			}
			Expect(p.ToolCalls()).To(BeEmpty())
		})
	})
})
