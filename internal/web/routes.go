package web

import (
	"errors"
	"io/fs"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/proptalk/internal/chat"
	"github.com/zulandar/proptalk/internal/conversation"
	"github.com/zulandar/proptalk/internal/mapsync"
	"github.com/zulandar/proptalk/internal/nearby"
	"github.com/zulandar/proptalk/internal/property"
)

// registerRoutes sets up every route on the gin router.
func registerRoutes(router *gin.Engine, client *chat.Client, lib *BrowserLibrary) {
	staticFS, _ := fs.Sub(assetsFS, "assets")
	router.StaticFS("/static", http.FS(staticFS))

	router.GET("/", handleIndex())
	router.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	api := router.Group("/api")
	api.GET("/state", handleState(client, lib))
	api.GET("/events", handleSSE(client))
	api.POST("/chat", handleChat(client))
	api.POST("/reset", handleReset(client, lib))
	api.POST("/suggestions", handleSuggestion(client))
	api.POST("/nearby", handleNearby(client))
	api.POST("/properties/:name/ask", handlePropertyAsk(client))
	api.POST("/properties/:name/details", handlePropertyDetails(client))
	api.POST("/map/visible", handleMapVisible(client))
	api.POST("/map/ready", handleMapReady(lib))
	api.POST("/markers/:name/click", handleMarkerClick(lib))
	api.POST("/markers/:name/ask", handleMarkerAsk(client))
	api.POST("/markers/:name/nearby", handleMarkerNearby(client))
}

// stateResponse is everything the page renders.
type stateResponse struct {
	SessionID   string                 `json:"session_id"`
	Messages    []conversation.Message `json:"messages"`
	Suggestions []string               `json:"suggestions"`
	Insights    chat.Insights          `json:"insights"`
	Properties  []property.Summary     `json:"properties"`
	Map         *mapState              `json:"map,omitempty"`
}

type mapState struct {
	mapsync.View
	MapID   int              `json:"map_id"`
	Actions []mapsync.Action `json:"actions"`
}

func snapshot(client *chat.Client, lib *BrowserLibrary) stateResponse {
	resp := stateResponse{
		SessionID:   client.SessionID(),
		Messages:    client.Messages(),
		Suggestions: client.Suggestions(),
		Insights:    client.Insights(),
		Properties:  client.Catalog(),
	}
	if resp.Suggestions == nil {
		resp.Suggestions = []string{}
	}
	if v, ok := client.Map(); ok {
		resp.Map = &mapState{View: v, MapID: lib.MapID(), Actions: mapsync.Actions()}
	}
	return resp
}

func handleIndex() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, "index.html", gin.H{
			"title": "Property Assistant",
		})
	}
}

func handleState(client *chat.Client, lib *BrowserLibrary) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, snapshot(client, lib))
	}
}

type textRequest struct {
	Text string `json:"text" binding:"required"`
}

func handleChat(client *chat.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req textRequest
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
			return
		}
		if err := client.Send(c.Request.Context(), req.Text); err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "sent"})
	}
}

func handleSuggestion(client *chat.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req textRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
			return
		}
		if err := client.ApplySuggestion(c.Request.Context(), req.Text); err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "sent"})
	}
}

func handleReset(client *chat.Client, lib *BrowserLibrary) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := client.Reset(c.Request.Context())
		if errors.Is(err, chat.ErrResetting) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		// A failed session create is not fatal; the chat continues without one.
		if err != nil {
			c.Header("X-Session-Warning", err.Error())
		}
		client.Welcome()
		c.JSON(http.StatusOK, snapshot(client, lib))
	}
}

func statusFor(err error) int {
	if errors.Is(err, chat.ErrResetting) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

type nearbyRequest struct {
	Property string `json:"property" binding:"required"`
	Type     string `json:"type" binding:"required"`
}

func validPlaceType(t string) bool {
	return slices.Contains(nearby.Categories, t)
}

func handleNearby(client *chat.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req nearbyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "property and type are required"})
			return
		}
		if !validPlaceType(req.Type) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "type must be one of " + strings.Join(nearby.Categories, ", ")})
			return
		}
		client.FindNearby(c.Request.Context(), req.Property, req.Type)
		c.JSON(http.StatusAccepted, gin.H{"status": "sent"})
	}
}

func handlePropertyAsk(client *chat.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		client.AskAbout(c.Request.Context(), c.Param("name"))
		c.JSON(http.StatusAccepted, gin.H{"status": "sent"})
	}
}

func handlePropertyDetails(client *chat.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		client.Details(c.Request.Context(), c.Param("name"))
		c.JSON(http.StatusAccepted, gin.H{"status": "sent"})
	}
}

type visibleRequest struct {
	Visible *bool `json:"visible" binding:"required"`
}

func handleMapVisible(client *chat.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req visibleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "visible is required"})
			return
		}
		client.SetMapVisible(*req.Visible)
		c.JSON(http.StatusOK, gin.H{"visible": *req.Visible})
	}
}

func handleMapReady(lib *BrowserLibrary) gin.HandlerFunc {
	return func(c *gin.Context) {
		lib.MarkReady()
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}

func handleMarkerClick(lib *BrowserLibrary) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !lib.Click(c.Param("name")) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no marker named " + c.Param("name")})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "selected"})
	}
}

func handleMarkerAsk(client *chat.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		engine := client.MapEngine()
		if engine == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "map disabled"})
			return
		}
		engine.AskAbout(c.Param("name"))
		c.JSON(http.StatusAccepted, gin.H{"status": "sent"})
	}
}

type markerNearbyRequest struct {
	Type string `json:"type" binding:"required"`
}

func handleMarkerNearby(client *chat.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req markerNearbyRequest
		if err := c.ShouldBindJSON(&req); err != nil || !validPlaceType(req.Type) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "type must be one of " + strings.Join(nearby.Categories, ", ")})
			return
		}
		engine := client.MapEngine()
		if engine == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "map disabled"})
			return
		}
		engine.FindNearby(c.Param("name"), req.Type)
		c.JSON(http.StatusAccepted, gin.H{"status": "sent"})
	}
}
