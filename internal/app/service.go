package app

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"diceroom/internal/canvas"
	"diceroom/internal/core"
	"diceroom/internal/domain"
	"diceroom/internal/highlight"
	"diceroom/internal/results"
	"diceroom/internal/roll"
)

// ErrEmptyMessage signals a chat message that is blank after trimming.
// It is the one validation failure surfaced as an error rather than a
// structured result; the request boundary converts it.
var ErrEmptyMessage = errors.New("empty chat message")

// Push payload type tags for the per-connection push channel.
const (
	PushActivityAdded  = "activity_added"
	PushUserList       = "user_list"
	PushCanvasEvent    = "canvas_event"
	PushHighlight      = "highlight_changed"
	PushCameraFocus    = "camera_focus"
	PushActivityScroll = "activity_scroll"
)

// Push is one discriminated payload for the push channel.
type Push struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// RollResponse is the structured outcome of a roll request.
type RollResponse struct {
	Success  bool             `json:"success"`
	Message  string           `json:"message,omitempty"`
	Activity *domain.Activity `json:"activity,omitempty"`
}

// Service wires the managers together: it validates inbound mutations,
// maintains the activity log, and turns component events into push
// payloads. One instance per server process; handlers hold a reference,
// never ambient globals.
type Service struct {
	room       domain.RoomName
	rolls      *roll.Processor
	canvas     *canvas.Manager
	results    *results.Manager
	highlights *highlight.Manager
	registry   *Registry

	mu         sync.RWMutex
	activities []domain.Activity

	pushes *core.Topic[Push]
	now    func() time.Time
}

// NewService builds the orchestrator and subscribes it to the component
// topics so every successful transition reaches the push channel.
func NewService(room domain.RoomName, rolls *roll.Processor, canv *canvas.Manager, res *results.Manager, hl *highlight.Manager, reg *Registry) *Service {
	s := &Service{
		room:       room,
		rolls:      rolls,
		canvas:     canv,
		results:    res,
		highlights: hl,
		registry:   reg,
		pushes:     core.NewTopic[Push](),
		now:        time.Now,
	}
	canv.Subscribe(func(ev domain.CanvasEvent) {
		s.pushes.Publish(Push{Type: PushCanvasEvent, Payload: ev})
	})
	hl.SubscribeChanges(func(c highlight.Change) {
		s.pushes.Publish(Push{Type: PushHighlight, Payload: c})
	})
	hl.SubscribeFocus(func(r highlight.FocusRequest) {
		s.pushes.Publish(Push{Type: PushCameraFocus, Payload: r})
	})
	hl.SubscribeScroll(func(r highlight.ScrollRequest) {
		s.pushes.Publish(Push{Type: PushActivityScroll, Payload: r})
	})
	return s
}

// SubscribePush registers a transport handler for outbound payloads.
func (s *Service) SubscribePush(h func(Push)) func() { return s.pushes.Subscribe(h) }

// Connect marks the session live. Safe to call on every request; the
// push adapter calls it when the persistent channel opens.
func (s *Service) Connect(sid domain.SessionID) {
	s.registry.Connect(sid)
	s.publishUserList()
}

// Disconnect releases the session's identity and narrates the departure
// of a named user.
func (s *Service) Disconnect(sid domain.SessionID) {
	released := s.registry.Disconnect(sid)
	if released != "" {
		s.appendSystemMessage(fmt.Sprintf("%s left the table", released))
	}
	s.publishUserList()
}

// RollDice resolves an expression for the session and records the
// outcome: one ROLL activity, one cross-reference entry and one spawn
// event per canvas die.
func (s *Service) RollDice(sid domain.SessionID, expression string) RollResponse {
	s.registry.Connect(sid)

	res := s.rolls.Process(expression)
	if res.Invalid() {
		return RollResponse{Success: false, Message: fmt.Sprintf("Could not understand %q; try something like 2d6", strings.TrimSpace(expression))}
	}

	user := s.userView(sid)
	rollID := uuid.NewString()
	activity := domain.Activity{
		ID:        uuid.NewString(),
		Type:      domain.ActivityRoll,
		Timestamp: s.now(),
		User:      &user,
		Roll: &domain.Roll{
			ID:          rollID,
			Expression:  strings.TrimSpace(expression),
			Interpreted: res.Interpreted,
			Rolls:       res.Rolls,
			Total:       res.Total,
		},
	}
	s.appendActivity(activity)

	for _, dice := range res.Canvas {
		s.results.Register(results.DiceState{
			CanvasID:   dice.ID,
			ActivityID: activity.ID,
			Room:       s.room,
			RollID:     rollID,
			Username:   user.Username,
			SessionID:  sid,
			DiceType:   dice.Type,
			IsVirtual:  dice.IsVirtual,
			Result:     dice.Result,
			Position:   dice.Position,
			Status:     domain.DiceActive,
		})
		s.canvas.SpawnDice(s.room, sid, dice)
	}

	log.Info().Str("module", "app.service").Str("sid", string(sid)).Str("expression", res.Interpreted).Int("total", res.Total).Int("dice", len(res.Canvas)).Msg("roll processed")
	return RollResponse{Success: true, Activity: &activity}
}

// SendChat appends a CHAT_MESSAGE activity. A message that trims to
// nothing returns ErrEmptyMessage.
func (s *Service) SendChat(sid domain.SessionID, message string) (domain.Activity, error) {
	s.registry.Connect(sid)
	message = strings.TrimSpace(message)
	if message == "" {
		return domain.Activity{}, ErrEmptyMessage
	}
	user := s.userView(sid)
	activity := domain.Activity{
		ID:        uuid.NewString(),
		Type:      domain.ActivityChatMessage,
		Timestamp: s.now(),
		User:      &user,
		Message:   message,
	}
	s.appendActivity(activity)
	return activity, nil
}

// RegisterUsername claims a display name, narrates the change, and
// pushes the updated user list.
func (s *Service) RegisterUsername(sid domain.SessionID, raw string) RegisterResult {
	s.registry.Connect(sid)
	res := s.registry.RegisterUsername(sid, raw)
	if !res.Success {
		return res
	}
	if res.Changed {
		switch {
		case res.Username == domain.AnonymousName:
			s.appendSystemMessage(fmt.Sprintf("%s is now Anonymous", res.Previous))
		case res.Previous == domain.AnonymousName:
			s.appendSystemMessage(fmt.Sprintf("%s joined the table", res.Username))
		default:
			s.appendSystemMessage(fmt.Sprintf("%s is now known as %s", res.Previous, res.Username))
		}
	}
	s.publishUserList()
	return res
}

// SetUserColor validates and applies a color. Only named users get a
// system message; anonymous color shuffles are not worth narrating.
func (s *Service) SetUserColor(sid domain.SessionID, color string) ColorResult {
	s.registry.Connect(sid)
	res := s.registry.SetUserColor(sid, color)
	if !res.Success {
		return res
	}
	if res.Changed {
		if name := s.registry.Username(sid); name != domain.AnonymousName {
			s.appendSystemMessage(fmt.Sprintf("%s changed their color", name))
		}
		s.publishUserList()
	}
	return res
}

// ThrowDice records a physics impulse reported by the rolling client.
func (s *Service) ThrowDice(sid domain.SessionID, diceID string, velocity domain.Vec3) bool {
	return s.canvas.ThrowDice(s.room, sid, diceID, velocity) != nil
}

// SettleDice records where a die came to rest. Unknown dice are late
// requests from disconnect/clear races and settle silently.
func (s *Service) SettleDice(sid domain.SessionID, diceID string, position domain.Vec3, result int) bool {
	if s.canvas.SettleDice(s.room, sid, diceID, position, result) == nil {
		return false
	}
	s.results.UpdatePosition(diceID, position)
	s.results.UpdateStatus(diceID, domain.DiceSettled)
	return true
}

// ClearTable removes every die from the table along with its
// cross-references and highlights.
func (s *Service) ClearTable(sid domain.SessionID) {
	active := s.canvas.ActiveDice(s.room)
	s.canvas.ClearRoom(s.room, sid)
	for _, d := range active {
		if h, ok := s.highlights.HighlightForDice(d.ID); ok {
			s.highlights.RemoveHighlight(h.ID)
		}
		s.results.Remove(d.ID)
	}
	user := s.userView(sid)
	s.appendSystemMessage(fmt.Sprintf("%s cleared the table", user.Username))
}

// ToggleDiceHighlight flips the highlight on one die for this session.
func (s *Service) ToggleDiceHighlight(sid domain.SessionID, canvasID, color string) *domain.Highlight {
	return s.highlights.ToggleDiceHighlight(canvasID, s.highlightOptions(sid, color))
}

// ToggleActivityHighlight flips the highlights on every die an activity
// produced.
func (s *Service) ToggleActivityHighlight(sid domain.SessionID, activityID, color string) []domain.Highlight {
	return s.highlights.ToggleActivityHighlight(activityID, s.highlightOptions(sid, color))
}

// RequestCameraFocus emits a camera intent for one die.
func (s *Service) RequestCameraFocus(sid domain.SessionID, canvasID string) *highlight.FocusRequest {
	return s.highlights.RequestCameraFocus(canvasID, sid)
}

// RequestActivityScroll emits a scroll intent for one activity.
func (s *Service) RequestActivityScroll(sid domain.SessionID, activityID string) highlight.ScrollRequest {
	return s.highlights.RequestActivityScroll(activityID, sid)
}

// Activities returns the log in insertion order, most-recent-last.
func (s *Service) Activities() []domain.Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Activity, len(s.activities))
	copy(out, s.activities)
	return out
}

// Users returns the current user-list snapshot.
func (s *Service) Users() []domain.User { return s.registry.Users() }

// CanvasEvents returns the room's event history for late joiners.
func (s *Service) CanvasEvents() []domain.CanvasEvent { return s.canvas.Events(s.room) }

// ActiveDice returns the dice currently on the table.
func (s *Service) ActiveDice() []domain.CanvasDice { return s.canvas.ActiveDice(s.room) }

// ActiveHighlights returns the live highlight set.
func (s *Service) ActiveHighlights() []domain.Highlight { return s.highlights.ActiveHighlights() }

func (s *Service) highlightOptions(sid domain.SessionID, color string) highlight.Options {
	return highlight.Options{
		Color:     color,
		SessionID: sid,
		Username:  s.registry.Username(sid),
	}
}

func (s *Service) userView(sid domain.SessionID) domain.User {
	return domain.User{
		SessionID: sid,
		Username:  s.registry.Username(sid),
		Color:     s.registry.Color(sid),
	}
}

func (s *Service) appendActivity(activity domain.Activity) {
	s.mu.Lock()
	s.activities = append(s.activities, activity)
	s.mu.Unlock()
	s.pushes.Publish(Push{Type: PushActivityAdded, Payload: activity})
}

func (s *Service) appendSystemMessage(message string) {
	s.appendActivity(domain.Activity{
		ID:        uuid.NewString(),
		Type:      domain.ActivitySystemMessage,
		Timestamp: s.now(),
		Message:   message,
	})
}

func (s *Service) publishUserList() {
	s.pushes.Publish(Push{Type: PushUserList, Payload: s.registry.Users()})
}
