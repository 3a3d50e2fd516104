package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeddict/jeddict/internal/brain"
	"github.com/jeddict/jeddict/internal/history"
	"github.com/jeddict/jeddict/internal/llm"
	"github.com/jeddict/jeddict/internal/scanner"
	"github.com/jeddict/jeddict/internal/tool"
	"github.com/jeddict/jeddict/internal/tui"
)

var (
	continueSession bool
	sessionID       string
	chatFile        string
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Chat with the pair programmer",
	Long: `Chat with the pair programmer about the workspace. Without a message the
interactive chat screen opens; with one the answer is streamed and the
exchange is saved so it can be continued with --continue.`,
	RunE: runChat,
}

func addChatFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&continueSession, "continue", "c", false, "Continue from the latest chat session")
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Continue from a specific session ID")
	cmd.Flags().StringVarP(&chatFile, "file", "f", "", "Attach a file to the first message")
}

// conversation is a chat session being continued and saved turn by turn.
type conversation struct {
	mu      sync.Mutex
	hacker  *brain.HackerSpecialist
	store   *history.Store
	session *history.Session
	model   string
	history []llm.Message
	src     brain.Source
}

func openConversation(ctx context.Context, hacker *brain.HackerSpecialist, store *history.Store, model string) (*conversation, error) {
	c := &conversation{hacker: hacker, store: store, model: model}
	var err error
	switch {
	case sessionID != "":
		c.session, err = store.Get(ctx, sessionID)
	case continueSession:
		c.session, err = store.Latest(ctx, history.KindChat, "")
		if errors.Is(err, history.ErrNotFound) {
			return c, nil
		}
	default:
		return c, nil
	}
	if err != nil {
		return nil, err
	}
	c.history, err = store.Messages(ctx, c.session.ID)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Send answers message in the context of the conversation so far and saves
// the exchange. It implements tui.Backend.
func (c *conversation) Send(ctx context.Context, message string, l brain.Listener) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	src := c.src
	c.src = brain.Source{}
	ex, err := c.hacker.Chat(ctx, c.history, message, src, l)
	if err != nil {
		return err
	}
	if c.session == nil {
		c.session, err = c.store.Create(ctx, history.KindChat, title(message), c.model, src.Path)
		if err != nil {
			return err
		}
	}
	msgs := ex.Messages()
	c.history = append(c.history, msgs...)
	return c.store.Append(ctx, c.session.ID, msgs, ex.Response.Usage)
}

func title(message string) string {
	message = strings.Join(strings.Fields(message), " ")
	if len(message) > 60 {
		return message[:57] + "..."
	}
	return message
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	message, err := argsText(cmd, args)
	if err != nil {
		return err
	}

	var (
		approvals *tui.Approvals
		approver  tool.Approver
	)
	if message == "" {
		approvals = tui.NewApprovals()
		approver = approvals
	}
	a, err := newApp(ctx, approver)
	if err != nil {
		return err
	}

	store, err := openHistory(a.workspace)
	if err != nil {
		return err
	}
	defer store.Close()

	conv, err := openConversation(ctx, a.brain.Hacker(), store, a.cfg.Model)
	if err != nil {
		return err
	}
	if chatFile != "" {
		if conv.src, _, err = a.source(chatFile, "", 0); err != nil {
			return err
		}
	}

	if err := a.project.Scan(ctx); err != nil {
		logger.Warn("initial scan failed", zap.Error(err))
	}
	if message != "" {
		return conv.Send(ctx, message, listener(cmd))
	}

	w, err := a.project.Watch(ctx, scanner.OnChange(func(paths []string) {
		logger.Debug("files changed", zap.Strings("paths", paths))
	}))
	if err != nil {
		logger.Warn("could not start file watching", zap.Error(err))
	} else {
		defer w.Close()
	}

	header := fmt.Sprintf("jeddict · %s · %s", filepath.Base(a.workspace), a.cfg.Model)
	if conv.session != nil {
		header += " · " + conv.session.ID[:8]
	}
	return tui.Run(tui.New(ctx, header, conv, approvals))
}

func init() {
	addChatFlags(chatCmd)
	rootCmd.AddCommand(chatCmd)
}
