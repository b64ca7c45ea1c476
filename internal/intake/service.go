package intake

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"latepost/internal/post"
	"latepost/internal/transport"
	logx "latepost/pkg/logx"
)

type state int

const (
	stateIdle state = iota
	stateAwaitDateTime
	stateAwaitTimezone
	stateAwaitDestination
	stateAwaitContent
	stateAwaitGroupName
	stateAwaitGroupRef
)

// session holds one user's partially collected flow fields.
type session struct {
	state state

	// schedule flow
	date     string
	utc      string
	destName string
	groupID  string

	// destination add flow
	groupName string
}

type Service struct {
	log   logx.Logger
	ad    transport.Adapter
	reg   *post.Registry
	queue *post.Queue

	mu       sync.Mutex
	sessions map[int64]*session
}

func New(reg *post.Registry, queue *post.Queue, ad transport.Adapter, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		log:      log,
		ad:       ad,
		reg:      reg,
		queue:    queue,
		sessions: map[int64]*session{},
	}
}

// Handle processes one incoming update. Sessions are independent per user;
// the only shared mutable state is the two durable stores.
func (s *Service) Handle(ctx context.Context, up transport.Update) {
	m := up.Message
	if m == nil {
		return
	}

	text := strings.TrimSpace(m.Text)
	sess := s.session(m.FromID)
	if strings.HasPrefix(text, "/") {
		// While content is being collected the body is accepted verbatim,
		// including text that looks like a command; only /start stays global.
		if sess.state != stateAwaitContent || commandName(text) == "/start" {
			s.handleCommand(ctx, m, text)
			return
		}
	}

	switch sess.state {
	case stateAwaitDateTime:
		s.onDateTime(ctx, m, sess)
	case stateAwaitTimezone:
		s.onTimezone(ctx, m, sess)
	case stateAwaitDestination:
		s.onDestination(ctx, m, sess)
	case stateAwaitContent:
		s.onContent(ctx, m, sess)
	case stateAwaitGroupName:
		s.onGroupName(ctx, m, sess)
	case stateAwaitGroupRef:
		s.onGroupRef(ctx, m, sess)
	default:
		s.reply(ctx, m.ChatID, msgHelp, nil)
	}
}

func (s *Service) session(userID int64) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessions[userID]
	if sess == nil {
		sess = &session{}
		s.sessions[userID] = sess
	}
	return sess
}

func (s *Service) resetSession(userID int64) {
	s.mu.Lock()
	delete(s.sessions, userID)
	s.mu.Unlock()
}

// ---- schedule flow ----

func (s *Service) startSchedule(ctx context.Context, m *transport.Message) {
	sess := s.session(m.FromID)
	*sess = session{state: stateAwaitDateTime}
	s.reply(ctx, m.ChatID, msgAskDateTime, nil)
}

func (s *Service) onDateTime(ctx context.Context, m *transport.Message, sess *session) {
	if _, err := post.ParseLocal(m.Text); err != nil {
		s.reply(ctx, m.ChatID, msgBadDateTime, nil)
		return
	}
	sess.date = strings.TrimSpace(m.Text)
	sess.state = stateAwaitTimezone
	s.reply(ctx, m.ChatID, msgAskTimezone, &transport.SendOptions{
		Choices:       post.Labels(),
		ChoiceColumns: 2,
	})
}

func (s *Service) onTimezone(ctx context.Context, m *transport.Message, sess *session) {
	label := strings.TrimSpace(m.Text)
	if !post.ValidLabel(label) {
		s.reply(ctx, m.ChatID, msgBadTimezone, &transport.SendOptions{
			Choices:       post.Labels(),
			ChoiceColumns: 2,
		})
		return
	}
	sess.utc = label

	names := s.destinationNames(ctx)
	if len(names) == 0 {
		// Single-destination deployment: dispatch falls back to the
		// configured group, so skip the selection step.
		sess.state = stateAwaitContent
		s.reply(ctx, m.ChatID, msgAskContent, &transport.SendOptions{RemoveKeyboard: true})
		return
	}
	sess.state = stateAwaitDestination
	s.reply(ctx, m.ChatID, msgAskDestination, &transport.SendOptions{
		Choices:       names,
		ChoiceColumns: 1,
	})
}

func (s *Service) onDestination(ctx context.Context, m *transport.Message, sess *session) {
	name := strings.TrimSpace(m.Text)
	id, err := s.reg.LookupID(ctx, name)
	if err != nil {
		if errors.Is(err, post.ErrNotFound) {
			s.reply(ctx, m.ChatID, msgUnknownDestination, nil)
			return
		}
		s.log.Error("destination lookup failed", logx.Err(err))
		s.reply(ctx, m.ChatID, msgStorageTrouble, nil)
		return
	}
	sess.destName = name
	sess.groupID = id
	sess.state = stateAwaitContent
	s.reply(ctx, m.ChatID, msgAskContent, &transport.SendOptions{RemoveKeyboard: true})
}

func (s *Service) onContent(ctx context.Context, m *transport.Message, sess *session) {
	payload, err := transport.CopyPayload(m)
	if err != nil {
		s.log.Error("payload pack failed", logx.Err(err))
		s.reply(ctx, m.ChatID, msgStorageTrouble, nil)
		return
	}
	d := post.Delivery{
		ID:        m.ID,
		Scheduled: sess.date,
		Payload:   payload,
		UTC:       sess.utc,
		GroupID:   sess.groupID,
	}
	if err := s.queue.Append(ctx, d); err != nil {
		s.log.Error("delivery append failed", logx.Int("id", d.ID), logx.Err(err))
		s.reply(ctx, m.ChatID, msgStorageTrouble, nil)
		return
	}
	s.log.Info("delivery scheduled",
		logx.Int("id", d.ID), logx.String("scheduled", d.Scheduled),
		logx.String("utc", d.UTC), logx.String("dest", sess.destName))
	s.resetSession(m.FromID)
	s.reply(ctx, m.ChatID, msgScheduled, nil)
}

// ---- destination add flow ----

func (s *Service) startAddGroup(ctx context.Context, m *transport.Message) {
	sess := s.session(m.FromID)
	*sess = session{state: stateAwaitGroupName}
	s.reply(ctx, m.ChatID, msgAskGroupName, nil)
}

func (s *Service) onGroupName(ctx context.Context, m *transport.Message, sess *session) {
	name := strings.TrimSpace(m.Text)
	if name == "" {
		s.reply(ctx, m.ChatID, msgAskGroupName, nil)
		return
	}
	sess.groupName = name
	sess.state = stateAwaitGroupRef
	s.reply(ctx, m.ChatID, msgAskGroupRef, nil)
}

func (s *Service) onGroupRef(ctx context.Context, m *transport.Message, sess *session) {
	var id string
	switch {
	case m.ForwardFromChatID != 0:
		id = strconv.FormatInt(m.ForwardFromChatID, 10)
	default:
		raw := strings.TrimSpace(m.Text)
		if _, err := strconv.ParseInt(raw, 10, 64); err != nil {
			s.reply(ctx, m.ChatID, msgBadGroupRef, nil)
			return
		}
		id = raw
	}

	if err := s.reg.Add(ctx, sess.groupName, id); err != nil {
		s.log.Error("destination add failed", logx.String("name", sess.groupName), logx.Err(err))
		s.reply(ctx, m.ChatID, msgStorageTrouble, nil)
		return
	}
	s.log.Info("destination added", logx.String("name", sess.groupName), logx.String("group_id", id))
	name := sess.groupName
	s.resetSession(m.FromID)
	s.reply(ctx, m.ChatID, "Destination "+name+" registered.", nil)
}

// ---- helpers ----

func (s *Service) destinationNames(ctx context.Context) []string {
	ds, err := s.reg.ListAll(ctx)
	if err != nil {
		s.log.Error("destination list failed", logx.Err(err))
		return nil
	}
	names := make([]string, 0, len(ds))
	for _, d := range ds {
		names = append(names, d.Name)
	}
	return names
}

func (s *Service) reply(ctx context.Context, chatID int64, text string, opt *transport.SendOptions) {
	if _, err := s.ad.SendText(ctx, transport.ChatTarget{ChatID: chatID}, text, opt); err != nil {
		s.log.Warn("reply failed", logx.Int64("chat_id", chatID), logx.Err(err))
	}
}
