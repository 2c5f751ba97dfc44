package ollama_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/reel/pkg/llm/provider/ollama"
)

var _ = Describe("Ollama provider", func() {
	p := ollama.New()

	Describe("CanHandle", func() {
		It("accepts chat chunks with the model/done/message triple", func() {
			payload := []byte(`{"model": "llama3", "created_at": "2026-01-01T00:00:00Z", "message": {"role": "assistant", "content": "Hi"}, "done": false}`)
			Expect(p.CanHandle(payload)).To(BeTrue())
		})

		It("accepts final chunks carrying eval metrics", func() {
			payload := []byte(`{"model": "llama3", "message": {"role": "assistant", "content": ""}, "done": true, "total_duration": 5589157167, "eval_count": 13}`)
			Expect(p.CanHandle(payload)).To(BeTrue())
		})

		It("rejects OpenAI chunks", func() {
			payload := []byte(`{"object": "chat.completion.chunk", "choices": [{"delta": {"content": "x"}}]}`)
			Expect(p.CanHandle(payload)).To(BeFalse())
		})

		It("rejects Anthropic events", func() {
			payload := []byte(`{"type": "content_block_delta", "index": 0, "delta": {"type": "text_delta", "text": "x"}}`)
			Expect(p.CanHandle(payload)).To(BeFalse())
		})

		It("rejects invalid JSON", func() {
			Expect(p.CanHandle([]byte("[DONE]"))).To(BeFalse())
		})
	})

	Describe("ParseStreamChunk", func() {
		It("extracts message content", func() {
			payload := []byte(`{"model": "llama3", "message": {"role": "assistant", "content": "Hello"}, "done": false}`)

			delta, done, err := p.ParseStreamChunk(payload)
			Expect(err).NotTo(HaveOccurred())
			Expect(done).To(BeFalse())
			Expect(delta.Content).To(Equal("Hello"))
		})

		It("reports done on the final chunk", func() {
			payload := []byte(`{"model": "llama3", "message": {"role": "assistant", "content": ""}, "done": true, "done_reason": "stop", "eval_count": 13}`)

			delta, done, err := p.ParseStreamChunk(payload)
			Expect(err).NotTo(HaveOccurred())
			Expect(done).To(BeTrue())
			Expect(delta.IsEmpty()).To(BeTrue())
		})

		It("converts whole tool calls into single fragments with JSON string arguments", func() {
			payload := []byte(`{"model": "llama3", "message": {"role": "assistant", "content": "", "tool_calls": [
				{"function": {"name": "get_weather", "arguments": {"city": "Oslo"}}}
			]}, "done": false}`)

			delta, _, err := p.ParseStreamChunk(payload)
			Expect(err).NotTo(HaveOccurred())
			Expect(delta.ToolCalls).To(HaveLen(1))

			tc := delta.ToolCalls[0]
			Expect(tc.Index).To(Equal(0))
			Expect(tc.Name).To(Equal("get_weather"))
			Expect(tc.Arguments).To(MatchJSON(`{"city": "Oslo"}`))
		})

		It("assigns positional indices to multiple calls in one chunk", func() {
			payload := []byte(`{"model": "llama3", "message": {"role": "assistant", "content": "", "tool_calls": [
				{"function": {"name": "a", "arguments": {}}},
				{"function": {"name": "b", "arguments": {}}}
			]}, "done": false}`)

			delta, _, err := p.ParseStreamChunk(payload)
			Expect(err).NotTo(HaveOccurred())
			Expect(delta.ToolCalls).To(HaveLen(2))
			Expect(delta.ToolCalls[0].Index).To(Equal(0))
			Expect(delta.ToolCalls[1].Index).To(Equal(1))
		})

		It("defaults missing arguments to an empty JSON object", func() {
			payload := []byte(`{"model": "llama3", "message": {"role": "assistant", "content": "", "tool_calls": [
				{"function": {"name": "ping"}}
			]}, "done": false}`)

			delta, _, err := p.ParseStreamChunk(payload)
			Expect(err).NotTo(HaveOccurred())
			Expect(delta.ToolCalls[0].Arguments).To(Equal("{}"))
		})

		It("returns a wrapped error for malformed JSON", func() {
			_, _, err := p.ParseStreamChunk([]byte(`{"model": `))
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("ollama"))
		})
	})
})
