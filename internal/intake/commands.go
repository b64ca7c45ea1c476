package intake

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"latepost/internal/post"
	"latepost/internal/transport"
	logx "latepost/pkg/logx"
)

// commandName extracts the lowercased command, stripping arguments and the
// @botname suffix Telegram appends in groups.
func commandName(text string) string {
	cmd, _, _ := strings.Cut(text, " ")
	cmd = strings.ToLower(strings.TrimSpace(cmd))
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}
	return cmd
}

func (s *Service) handleCommand(ctx context.Context, m *transport.Message, text string) {
	cmd := commandName(text)
	_, args, _ := strings.Cut(text, " ")
	args = strings.TrimSpace(args)

	switch cmd {
	case "/start":
		// Unconditional reset from any state; collected fields are discarded.
		s.resetSession(m.FromID)
		s.reply(ctx, m.ChatID, msgHelp, &transport.SendOptions{RemoveKeyboard: true})
	case "/schedule":
		s.startSchedule(ctx, m)
	case "/myposts":
		s.cmdMyPosts(ctx, m)
	case "/addgroup":
		s.startAddGroup(ctx, m)
	case "/delgroup":
		s.cmdDelGroup(ctx, m, args)
	case "/groups":
		s.cmdGroups(ctx, m)
	case "/queue":
		s.cmdQueue(ctx, m)
	default:
		s.reply(ctx, m.ChatID, msgHelp, nil)
	}
}

// cmdMyPosts lists every pending delivery: a header with the resolved UTC
// send time, then a copy of the stored content.
func (s *Service) cmdMyPosts(ctx context.Context, m *transport.Message) {
	items, err := s.queue.ListAll(ctx)
	if err != nil {
		s.log.Error("delivery list failed", logx.Err(err))
		s.reply(ctx, m.ChatID, msgStorageTrouble, nil)
		return
	}
	if len(items) == 0 {
		s.reply(ctx, m.ChatID, msgNoPending, nil)
		return
	}

	for _, d := range items {
		header := fmt.Sprintf("Post %d", d.ID)
		if at, err := post.Normalize(d.UTC, d.Scheduled); err == nil {
			header = fmt.Sprintf("Post %d - %s UTC (entered %s %s)",
				d.ID, at.Format("2006-01-02 15:04"), d.Scheduled, d.UTC)
		}
		s.reply(ctx, m.ChatID, header, nil)
		if err := s.ad.SendCopy(ctx, strconv.FormatInt(m.ChatID, 10), d.Payload); err != nil {
			s.log.Warn("pending copy failed", logx.Int("id", d.ID), logx.Err(err))
		}
	}
}

func (s *Service) cmdDelGroup(ctx context.Context, m *transport.Message, name string) {
	if name == "" {
		s.reply(ctx, m.ChatID, "Usage: /delgroup <name>", nil)
		return
	}
	if err := s.reg.Remove(ctx, name); err != nil {
		s.log.Error("destination remove failed", logx.String("name", name), logx.Err(err))
		s.reply(ctx, m.ChatID, msgStorageTrouble, nil)
		return
	}
	s.reply(ctx, m.ChatID, "Destination "+name+" removed.", nil)
}

func (s *Service) cmdGroups(ctx context.Context, m *transport.Message) {
	ds, err := s.reg.ListAll(ctx)
	if err != nil {
		s.log.Error("destination list failed", logx.Err(err))
		s.reply(ctx, m.ChatID, msgStorageTrouble, nil)
		return
	}
	if len(ds) == 0 {
		s.reply(ctx, m.ChatID, msgNoDestinations, nil)
		return
	}
	var b strings.Builder
	b.WriteString("Destinations:\n")
	for _, d := range ds {
		b.WriteString("- ")
		b.WriteString(d.Name)
		b.WriteString("\n")
	}
	s.reply(ctx, m.ChatID, b.String(), nil)
}

// cmdQueue reports destinations that have at least one pending delivery.
func (s *Service) cmdQueue(ctx context.Context, m *transport.Message) {
	names, err := s.reg.NamesWithPending(ctx)
	if err != nil {
		s.log.Error("pending summary failed", logx.Err(err))
		s.reply(ctx, m.ChatID, msgStorageTrouble, nil)
		return
	}
	if len(names) == 0 {
		s.reply(ctx, m.ChatID, msgNoPending, nil)
		return
	}

	var b strings.Builder
	b.WriteString("Destinations with pending posts:\n")
	for _, name := range names {
		count := 0
		if id, err := s.reg.LookupID(ctx, name); err == nil {
			if items, err := s.queue.ListByDestination(ctx, id); err == nil {
				count = len(items)
			}
		}
		fmt.Fprintf(&b, "- %s (%d)\n", name, count)
	}
	s.reply(ctx, m.ChatID, b.String(), nil)
}
