package openai_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/reel/pkg/llm/provider/openai"
)

var _ = Describe("OpenAI provider", func() {
	p := openai.New()

	Describe("CanHandle", func() {
		It("accepts chat.completion.chunk payloads", func() {
			payload := []byte(`{"id": "chatcmpl-1", "object": "chat.completion.chunk", "choices": []}`)
			Expect(p.CanHandle(payload)).To(BeTrue())
		})

		It("accepts compatible payloads with only a choices array", func() {
			payload := []byte(`{"choices": [{"delta": {"content": "x"}}]}`)
			Expect(p.CanHandle(payload)).To(BeTrue())
		})

		It("accepts the [DONE] sentinel", func() {
			Expect(p.CanHandle([]byte("[DONE]"))).To(BeTrue())
			Expect(p.CanHandle([]byte("  [DONE]\n"))).To(BeTrue())
		})

		It("rejects non-JSON payloads", func() {
			Expect(p.CanHandle([]byte("hello"))).To(BeFalse())
		})

		It("rejects JSON without choices", func() {
			Expect(p.CanHandle([]byte(`{"model": "llama3", "done": false}`))).To(BeFalse())
		})
	})

	Describe("ParseStreamChunk", func() {
		It("extracts content fragments", func() {
			payload := []byte(`{"object": "chat.completion.chunk", "choices": [{"index": 0, "delta": {"content": "Hello"}}]}`)

			delta, done, err := p.ParseStreamChunk(payload)
			Expect(err).NotTo(HaveOccurred())
			Expect(done).To(BeFalse())
			Expect(delta.Content).To(Equal("Hello"))
			Expect(delta.ToolCalls).To(BeEmpty())
		})

		It("extracts tool-call fragments with index, id, name and arguments", func() {
			payload := []byte(`{"choices": [{"index": 0, "delta": {"tool_calls": [
				{"index": 1, "id": "call_abc", "type": "function", "function": {"name": "read_file", "arguments": "{\"pa"}}
			]}}]}`)

			delta, done, err := p.ParseStreamChunk(payload)
			Expect(err).NotTo(HaveOccurred())
			Expect(done).To(BeFalse())
			Expect(delta.ToolCalls).To(HaveLen(1))

			tc := delta.ToolCalls[0]
			Expect(tc.Index).To(Equal(1))
			Expect(tc.ID).To(Equal("call_abc"))
			Expect(tc.Name).To(Equal("read_file"))
			Expect(tc.Arguments).To(Equal(`{"pa`))
		})

		It("extracts argument-only continuation fragments", func() {
			payload := []byte(`{"choices": [{"index": 0, "delta": {"tool_calls": [
				{"index": 1, "function": {"arguments": "th\": 1}"}}
			]}}]}`)

			delta, _, err := p.ParseStreamChunk(payload)
			Expect(err).NotTo(HaveOccurred())
			Expect(delta.ToolCalls[0].ID).To(BeEmpty())
			Expect(delta.ToolCalls[0].Name).To(BeEmpty())
			Expect(delta.ToolCalls[0].Arguments).To(Equal(`th": 1}`))
		})

		It("reports done on the [DONE] sentinel", func() {
			delta, done, err := p.ParseStreamChunk([]byte("[DONE]"))
			Expect(err).NotTo(HaveOccurred())
			Expect(done).To(BeTrue())
			Expect(delta).To(BeNil())
		})

		It("reports done on a finish_reason", func() {
			payload := []byte(`{"choices": [{"index": 0, "delta": {}, "finish_reason": "stop"}]}`)

			delta, done, err := p.ParseStreamChunk(payload)
			Expect(err).NotTo(HaveOccurred())
			Expect(done).To(BeTrue())
			Expect(delta.IsEmpty()).To(BeTrue())
		})

		It("treats a null finish_reason as not done", func() {
			payload := []byte(`{"choices": [{"index": 0, "delta": {"content": "x"}, "finish_reason": null}]}`)

			_, done, err := p.ParseStreamChunk(payload)
			Expect(err).NotTo(HaveOccurred())
			Expect(done).To(BeFalse())
		})

		It("treats a role-only preamble chunk as an empty keep-alive delta", func() {
			payload := []byte(`{"choices": [{"index": 0, "delta": {"role": "assistant"}}]}`)

			delta, done, err := p.ParseStreamChunk(payload)
			Expect(err).NotTo(HaveOccurred())
			Expect(done).To(BeFalse())
			Expect(delta).NotTo(BeNil())
			Expect(delta.IsEmpty()).To(BeTrue())
		})

		It("treats a choices-less trailer as an empty keep-alive delta", func() {
			payload := []byte(`{"object": "chat.completion.chunk", "choices": [], "usage": {"total_tokens": 10}}`)

			delta, done, err := p.ParseStreamChunk(payload)
			Expect(err).NotTo(HaveOccurred())
			Expect(done).To(BeFalse())
			Expect(delta.IsEmpty()).To(BeTrue())
		})

		It("returns a wrapped error for malformed JSON", func() {
			_, _, err := p.ParseStreamChunk([]byte(`{"choices": [`))
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("openai"))
		})
	})
})
