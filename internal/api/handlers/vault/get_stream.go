package vault

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github/chapool/yield-vault/internal/api"
	"github/chapool/yield-vault/internal/util"
	"github/chapool/yield-vault/internal/vault/workflow"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
)

func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin(allowedOrigins),
	}
}

// checkOrigin accepts clients sending no Origin, the same origin as the
// request, or an origin listed in allowed. "*" allows any origin.
func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if len(origin) == 0 {
			return true
		}

		if util.ContainsString(allowed, "*") || util.ContainsString(allowed, origin) {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil {
			return false
		}

		return strings.EqualFold(u.Host, r.Host)
	}
}

func GetStreamRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Vault.GET("/:kind/ws", getStreamHandler(s))
}

// Streams every state change of the workflow as a JSON text message, starting
// with the current state. Intermediate states may be skipped for slow clients,
// the latest state is always delivered.
func getStreamHandler(s *api.Server) echo.HandlerFunc {
	upgrader := newUpgrader(s.Config.Echo.AllowedOrigins)

	return func(c echo.Context) error {
		controller, err := controllerFromContext(s, c)
		if err != nil {
			return err
		}

		log := util.LogFromEchoContext(c).With().Str("workflow", string(controller.Kind())).Logger()
		lang := requestLanguage(s, c)

		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			// the upgrader already replied with an error
			log.Debug().Err(err).Msg("WebSocket upgrade failed")
			return nil
		}
		defer conn.Close()

		// holds at most the latest undelivered state
		latest := make(chan workflow.State, 1)
		offer := func(st workflow.State) {
			for {
				select {
				case latest <- st:
					return
				default:
				}
				select {
				case <-latest:
				default:
				}
			}
		}

		unsubscribe := controller.Subscribe(offer)
		defer unsubscribe()
		offer(controller.State())

		// the read loop only handles control frames and detects the close
		closed := make(chan struct{})
		go func() {
			defer close(closed)

			_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
			conn.SetPongHandler(func(string) error {
				return conn.SetReadDeadline(time.Now().Add(streamPongWait))
			})

			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
						log.Debug().Err(err).Msg("WebSocket closed unexpectedly")
					}
					return
				}
			}
		}()

		ping := time.NewTicker(streamPingPeriod)
		defer ping.Stop()

		var lastVersion uint64
		for {
			select {
			case <-closed:
				return nil
			case <-c.Request().Context().Done():
				return nil
			case <-ping.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
					log.Debug().Err(err).Msg("Failed to ping WebSocket client")
					return nil
				}
			case st := <-latest:
				// concurrent notifications may arrive out of order
				if st.Version < lastVersion {
					continue
				}
				lastVersion = st.Version

				data, err := json.Marshal(newStateResponse(s, lang, st))
				if err != nil {
					log.Error().Err(err).Msg("Failed to marshal workflow state")
					return nil
				}

				_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					log.Debug().Err(err).Msg("Failed to write to WebSocket client")
					return nil
				}
			}
		}
	}
}
