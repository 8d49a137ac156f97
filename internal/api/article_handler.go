package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sports-newsroom-api/internal/models"
	"github.com/sports-newsroom-api/internal/service"
)

// ArticleHandler handles article, comment and dashboard endpoints
type ArticleHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewArticleHandler creates a new ArticleHandler
func NewArticleHandler(services *service.Services, log zerolog.Logger) *ArticleHandler {
	return &ArticleHandler{
		services: services,
		log:      log.With().Str("handler", "article").Logger(),
	}
}

// List handles GET /v1/articles
func (h *ArticleHandler) List(c *gin.Context) {
	articles, err := h.services.Article.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"articles": articles, "count": len(articles)})
}

// Get handles GET /v1/articles/:id
func (h *ArticleHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	article, err := h.services.Article.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

// Update handles PATCH /v1/articles/:id
func (h *ArticleHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var patch models.ArticlePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	article, err := h.services.Article.Update(c.Request.Context(), id, &patch)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

// Delete handles DELETE /v1/articles/:id
func (h *ArticleHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.services.Article.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Visit handles POST /v1/articles/:id/views
func (h *ArticleHandler) Visit(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	article, err := h.services.Article.Visit(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

// Open handles POST /v1/articles/:id/open
func (h *ArticleHandler) Open(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	article, err := h.services.Article.Open(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

// React handles POST /v1/articles/:id/reactions/:kind
func (h *ArticleHandler) React(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	article, counted, err := h.services.Article.React(c.Request.Context(), c.GetString(sessionKey), id, c.Param("kind"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"article": article, "counted": counted})
}

// Download handles GET /v1/articles/:id/download
func (h *ArticleHandler) Download(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	name, body, err := h.services.Article.Download(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", body)
}

// Dashboard handles GET /v1/dashboard
func (h *ArticleHandler) Dashboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	d, err := h.services.Article.Dashboard(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// ListComments handles GET /v1/articles/:id/comments
func (h *ArticleHandler) ListComments(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	comments, err := h.services.Article.ListComments(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments, "count": len(comments)})
}

// AddComment handles POST /v1/articles/:id/comments
func (h *ArticleHandler) AddComment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Author string `json:"author"`
		Text   string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	comment, err := h.services.Article.AddComment(c.Request.Context(), id, req.Author, req.Text)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// DeleteComment handles DELETE /v1/articles/:id/comments/:comment_id
func (h *ArticleHandler) DeleteComment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	commentID, ok := idParam(c, "comment_id")
	if !ok {
		return
	}
	if err := h.services.Article.DeleteComment(c.Request.Context(), id, commentID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
