package cliui

import (
	"bytes"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Step", func() {
	It("returns nil and prints the success mark when fn succeeds", func() {
		var buf bytes.Buffer

		err := Step(&buf, "doing work", func() error { return nil })
		Expect(err).NotTo(HaveOccurred())
		Expect(buf.String()).To(ContainSubstring("doing work"))
		Expect(buf.String()).To(ContainSubstring(SuccessMark))
	})

	It("propagates the error and prints the fail mark when fn fails", func() {
		var buf bytes.Buffer
		boom := errors.New("boom")

		err := Step(&buf, "doing work", func() error { return boom })
		Expect(err).To(MatchError(boom))
		Expect(buf.String()).To(ContainSubstring(FailMark))
	})
})

var _ = Describe("Mark", func() {
	It("maps nil to the success mark and errors to the fail mark", func() {
		Expect(Mark(nil)).To(Equal(SuccessMark))
		Expect(Mark(errors.New("x"))).To(Equal(FailMark))
	})
})

var _ = Describe("FormatDuration", func() {
	It("formats sub-second durations as milliseconds", func() {
		Expect(FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
	})

	It("formats longer durations as seconds", func() {
		Expect(FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
	})
})

var _ = Describe("RenderMarkdown", func() {
	It("renders markdown content without error", func() {
		out, err := RenderMarkdown("# Heading\n\nSome *text*.")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Heading"))
	})
})
