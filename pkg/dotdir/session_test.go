package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/reel/pkg/dotdir"
	"github.com/papercomputeco/reel/pkg/llm"
)

var _ = Describe("dotdir.Manager session", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dotdir-test-*")
		Expect(err).NotTo(HaveOccurred())
		m = dotdir.NewManager()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("LoadSession", func() {
		It("returns nil when no session file exists", func() {
			state, err := m.LoadSession(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(BeNil())
		})

		It("loads a valid session state", func() {
			data := `{"model":"llama3","messages":[{"role":"user","content":"hello"},{"role":"assistant","content":"hi there"}]}`
			err := os.WriteFile(filepath.Join(tmpDir, "session.json"), []byte(data), 0o600)
			Expect(err).NotTo(HaveOccurred())

			state, err := m.LoadSession(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state).NotTo(BeNil())
			Expect(state.Model).To(Equal("llama3"))
			Expect(state.Messages).To(HaveLen(2))
			Expect(state.Messages[0].Role).To(Equal(llm.RoleUser))
			Expect(state.Messages[0].Content).To(Equal("hello"))
			Expect(state.Messages[1].Role).To(Equal(llm.RoleAssistant))
			Expect(state.Messages[1].Content).To(Equal("hi there"))
		})

		It("returns error for invalid JSON", func() {
			err := os.WriteFile(filepath.Join(tmpDir, "session.json"), []byte("not json"), 0o600)
			Expect(err).NotTo(HaveOccurred())

			state, err := m.LoadSession(tmpDir)
			Expect(err).To(HaveOccurred())
			Expect(state).To(BeNil())
		})
	})

	Describe("SaveSession", func() {
		It("persists session state to disk", func() {
			state := &dotdir.SessionState{
				Model: "gpt-4o",
				Messages: []llm.Message{
					{Role: llm.RoleUser, Content: "what is Go?"},
					{Role: llm.RoleAssistant, Content: "Go is a programming language."},
				},
			}

			err := m.SaveSession(state, tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = os.Stat(filepath.Join(tmpDir, "session.json"))
			Expect(err).NotTo(HaveOccurred())

			loaded, err := m.LoadSession(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Model).To(Equal("gpt-4o"))
			Expect(loaded.Messages).To(HaveLen(2))
		})

		It("returns error for nil state", func() {
			err := m.SaveSession(nil, tmpDir)
			Expect(err).To(HaveOccurred())
		})

		It("overwrites existing session state", func() {
			first := &dotdir.SessionState{
				Model:    "llama3",
				Messages: []llm.Message{{Role: llm.RoleUser, Content: "first message"}},
			}
			second := &dotdir.SessionState{
				Model:    "llama3",
				Messages: []llm.Message{{Role: llm.RoleUser, Content: "second message"}},
			}

			err := m.SaveSession(first, tmpDir)
			Expect(err).NotTo(HaveOccurred())

			err = m.SaveSession(second, tmpDir)
			Expect(err).NotTo(HaveOccurred())

			loaded, err := m.LoadSession(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Messages[0].Content).To(Equal("second message"))
		})
	})

	Describe("ClearSession", func() {
		It("removes the session file", func() {
			state := &dotdir.SessionState{Model: "llama3", Messages: []llm.Message{}}
			err := m.SaveSession(state, tmpDir)
			Expect(err).NotTo(HaveOccurred())

			err = m.ClearSession(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			loaded, err := m.LoadSession(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(BeNil())
		})

		It("succeeds when no session file exists", func() {
			err := m.ClearSession(tmpDir)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("round-trip", func() {
		It("saves and loads session state correctly", func() {
			state := &dotdir.SessionState{
				Model: "claude-sonnet-4",
				Messages: []llm.Message{
					{Role: llm.RoleSystem, Content: "You are a helpful assistant."},
					{Role: llm.RoleUser, Content: "Hello!"},
					{Role: llm.RoleAssistant, Content: "Hi! How can I help?"},
					{Role: llm.RoleUser, Content: "Tell me about Go."},
					{Role: llm.RoleAssistant, Content: "Go is a statically typed, compiled language."},
				},
			}

			err := m.SaveSession(state, tmpDir)
			Expect(err).NotTo(HaveOccurred())

			loaded, err := m.LoadSession(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(state))
		})
	})
})
