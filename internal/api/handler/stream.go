package handler

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	"github.com/stepfree/stepfree/internal/alert"
	"github.com/stepfree/stepfree/internal/api/models"
	"github.com/stepfree/stepfree/internal/api/response"
	"github.com/stepfree/stepfree/internal/featureflags"
	"github.com/stepfree/stepfree/internal/obstacle"
	"github.com/stepfree/stepfree/internal/profile"
	"github.com/stepfree/stepfree/pkg/geo"
)

// alertRadiusMeters is how far around the traveller obstacles are
// observed into the alert queue.
const alertRadiusMeters = 50.0

// StreamHandler serves the live trip websocket: the client streams
// location fixes, the server pushes proximity alert utterances.
type StreamHandler struct {
	obstacles *obstacle.Service
	flags     *featureflags.Service
	logger    zerolog.Logger
	upgrader  websocket.Upgrader
}

// NewStreamHandler creates a new StreamHandler. A nil flag service
// keeps relevance filtering on.
func NewStreamHandler(obstacles *obstacle.Service, flags *featureflags.Service, logger zerolog.Logger) *StreamHandler {
	return &StreamHandler{
		obstacles: obstacles,
		flags:     flags,
		logger:    logger.With().Str("handler", "stream").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The API is consumed by native mobile clients; browser
			// origin checks do not apply.
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
	}
}

// wsSpeaker delivers utterances as websocket events. Writes are
// serialized because gorilla connections allow one writer at a time.
type wsSpeaker struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSpeaker) Speak(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(models.StreamServerEvent{
		Type: models.StreamEventUtterance,
		Text: text,
	})
}

func (s *wsSpeaker) sendError(detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.WriteJSON(models.StreamServerEvent{
		Type:   models.StreamEventError,
		Detail: detail,
	})
}

// Stream handles GET /v1/trips/stream.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	device := profile.DeviceType(r.URL.Query().Get("deviceType"))
	if device == "" {
		device = profile.DeviceNone
	}
	prof, err := profile.Default(device)
	if err != nil {
		response.BadRequest(w, r, "unknown device type", nil)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	speaker := &wsSpeaker{conn: conn}
	processor := alert.NewProcessor(alert.ProcessorConfig{
		Speaker: speaker,
		Logger:  h.logger,
		Profile: prof,
		// Safety-first mode announces everything; the traveller judges
		// relevance themselves.
		AnnounceAll: h.flags.AnnounceAllAlerts(r.Context()),
	})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go processor.Run(ctx)
	defer processor.Stop()

	h.logger.Info().
		Str("device_type", string(device)).
		Str("remote_addr", r.RemoteAddr).
		Msg("trip stream opened")

	for {
		var event models.StreamClientEvent
		if err := conn.ReadJSON(&event); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug().Err(err).Msg("trip stream read error")
			}
			return
		}

		switch event.Type {
		case models.StreamEventLocation:
			if event.Location == nil || !event.Location.Valid() {
				speaker.sendError("location event requires a valid location")
				continue
			}
			h.observeAround(ctx, processor, orb.Point{event.Location.Lon, event.Location.Lat})

		case models.StreamEventRoute:
			// A new active route invalidates queued alerts and
			// suppression state from the old one.
			processor.Clear()

		case models.StreamEventClear:
			processor.Clear()

		default:
			speaker.sendError("unknown event type")
		}
	}
}

// observeAround feeds nearby obstacles into the alert queue for the
// traveller's current position.
func (h *StreamHandler) observeAround(ctx context.Context, p *alert.Processor, location orb.Point) {
	p.UpdateLocation(location)

	nearby, err := h.obstacles.Near(ctx, location, alertRadiusMeters)
	if err != nil {
		h.logger.Warn().Err(err).Msg("obstacle lookup failed for trip stream")
		return
	}

	for _, o := range nearby {
		p.Observe(o, geo.Distance(location, o.Location))
	}
}
