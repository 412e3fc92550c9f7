package ws

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dkarpov/netarcade/internal/storage"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The arcade is served cross-origin from static hosting.
		return true
	},
}

// NewRouter wires the websocket endpoint and the small REST surface.
func NewRouter(verifier *Verifier, hub *Hub, handler Handler, store *storage.Store, allowGuests bool, logger *log.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Identity is resolved before the upgrade: a valid token wins, an
	// invalid one is rejected, no token at all means guest.
	r.GET("/ws", func(c *gin.Context) {
		var identity Identity
		if token := c.Query("token"); token != "" {
			var err error
			identity, err = verifier.Verify(token)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
		} else {
			if !allowGuests {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "token required"})
				return
			}
			identity = Guest(c.Query("alias"))
		}

		conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Error("websocket upgrade failed", "err", err)
			return
		}

		client := newClient(uuid.NewString(), identity, conn, hub, handler)
		hub.register(client)
		logger.Info("client connected", "conn", client.ID(), "alias", identity.Alias, "authenticated", identity.Authenticated)
		go client.run()
	})

	api := r.Group("/api")
	api.GET("/matches/recent", func(c *gin.Context) {
		entries, err := store.RecentRecords(20)
		if err != nil {
			logger.Error("cannot load recent matches", "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "storage unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"matches": entries})
	})
	api.GET("/players/:name/history", func(c *gin.Context) {
		entries, err := store.PlayerHistory(c.Param("name"), 20)
		if err != nil {
			logger.Error("cannot load player history", "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "storage unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"matches": entries})
	})

	return r
}
