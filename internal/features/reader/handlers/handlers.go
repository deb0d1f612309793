package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"feedreader/internal/core"
	"feedreader/internal/features/reader/models"
	"feedreader/internal/features/reader/services"

	"github.com/go-chi/chi/v5"
)

// Handlers contains all reader feature HTTP handlers
type Handlers struct {
	logger    *core.Logger
	feeds     *services.FeedService
	articles  *services.ArticleService
	refresher *services.Refresher
}

// NewHandlers creates a new handlers instance
func NewHandlers(logger *core.Logger, feeds *services.FeedService, articles *services.ArticleService, refresher *services.Refresher) *Handlers {
	return &Handlers{
		logger:    logger,
		feeds:     feeds,
		articles:  articles,
		refresher: refresher,
	}
}

// Routes returns the reader API routes
func (h *Handlers) Routes() []core.Route {
	return []core.Route{
		// Article listings
		{Method: http.MethodGet, Path: "/api/unread", Handler: h.listing(models.ListingUnread)},
		{Method: http.MethodGet, Path: "/api/read", Handler: h.listing(models.ListingRead)},
		{Method: http.MethodGet, Path: "/api/starred", Handler: h.listing(models.ListingStarred)},
		{Method: http.MethodGet, Path: "/api/search", Handler: h.Search},
		{Method: http.MethodGet, Path: "/api/stats", Handler: h.Stats},
		{Method: http.MethodGet, Path: "/api/{listing}/bytag/{tag}", Handler: h.ByTag},

		// Article state
		{Method: http.MethodGet, Path: "/api/articles/{id}", Handler: h.GetArticle},
		{Method: http.MethodPut, Path: "/api/articles/{id}/read", Handler: h.MarkRead},
		{Method: http.MethodPut, Path: "/api/articles/{id}/star", Handler: h.Star},
		{Method: http.MethodDelete, Path: "/api/articles/{id}/star", Handler: h.Unstar},
		{Method: http.MethodPut, Path: "/api/articles/{id}/tags/{tag}", Handler: h.AddArticleTag},
		{Method: http.MethodDelete, Path: "/api/articles/{id}/tags/{tag}", Handler: h.RemoveArticleTag},

		// Feed management
		{Method: http.MethodGet, Path: "/api/feeds", Handler: h.ListFeeds},
		{Method: http.MethodPost, Path: "/api/feeds", Handler: h.CreateFeed},
		{Method: http.MethodPost, Path: "/api/feeds/refresh", Handler: h.RefreshAll},
		{Method: http.MethodGet, Path: "/api/feeds/{id}", Handler: h.GetFeed},
		{Method: http.MethodDelete, Path: "/api/feeds/{id}", Handler: h.DeleteFeed},
		{Method: http.MethodPost, Path: "/api/feeds/{id}/refresh", Handler: h.RefreshFeed},
		{Method: http.MethodPut, Path: "/api/feeds/{id}/tags/{tag}", Handler: h.AddFeedTag},
		{Method: http.MethodDelete, Path: "/api/feeds/{id}/tags/{tag}", Handler: h.RemoveFeedTag},
	}
}

func (h *Handlers) listing(listing models.Listing) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := h.articles.WithStats(r.Context(), func(ctx context.Context) ([]models.Article, error) {
			return h.articles.List(ctx, listing)
		})
		if err != nil {
			h.fail(w, r, "Failed to list articles", err, "listing", listing)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	keywords := r.URL.Query().Get("keywords")
	list, err := h.articles.WithStats(r.Context(), func(ctx context.Context) ([]models.Article, error) {
		return h.articles.Search(ctx, keywords)
	})
	if err != nil {
		h.fail(w, r, "Failed to search articles", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handlers) ByTag(w http.ResponseWriter, r *http.Request) {
	listing, ok := models.ParseListing(chi.URLParam(r, "listing"))
	if !ok {
		core.HandleError(w, core.NewNotFoundError("unknown listing", nil))
		return
	}

	tag := chi.URLParam(r, "tag")
	list, err := h.articles.WithStats(r.Context(), func(ctx context.Context) ([]models.Article, error) {
		return h.articles.ArticlesByTag(ctx, listing, tag)
	})
	if err != nil {
		h.fail(w, r, "Failed to list articles by tag", err, "tag", tag)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.articles.Stats(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to count articles", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handlers) GetArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	article, err := h.articles.GetArticle(r.Context(), id)
	if err != nil {
		h.fail(w, r, "Failed to get article", err, "article_id", id)
		return
	}
	writeJSON(w, http.StatusOK, article)
}

func (h *Handlers) MarkRead(w http.ResponseWriter, r *http.Request) {
	h.articleAction(w, r, h.articles.MarkRead)
}

func (h *Handlers) Star(w http.ResponseWriter, r *http.Request) {
	h.articleAction(w, r, h.articles.Star)
}

func (h *Handlers) Unstar(w http.ResponseWriter, r *http.Request) {
	h.articleAction(w, r, h.articles.Unstar)
}

// articleAction applies a state change and answers with the updated article
func (h *Handlers) articleAction(w http.ResponseWriter, r *http.Request, action func(context.Context, int64) error) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := action(r.Context(), id); err != nil {
		h.fail(w, r, "Failed to update article", err, "article_id", id)
		return
	}

	article, err := h.articles.GetArticle(r.Context(), id)
	if err != nil {
		h.fail(w, r, "Failed to get article", err, "article_id", id)
		return
	}
	writeJSON(w, http.StatusOK, article)
}

func (h *Handlers) AddArticleTag(w http.ResponseWriter, r *http.Request) {
	h.articleTag(w, r, h.articles.AddTag)
}

func (h *Handlers) RemoveArticleTag(w http.ResponseWriter, r *http.Request) {
	h.articleTag(w, r, h.articles.RemoveTag)
}

func (h *Handlers) articleTag(w http.ResponseWriter, r *http.Request, apply func(context.Context, int64, string) (*models.Article, error)) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	article, err := apply(r.Context(), id, chi.URLParam(r, "tag"))
	if err != nil {
		h.fail(w, r, "Failed to update article tags", err, "article_id", id)
		return
	}
	writeJSON(w, http.StatusOK, article)
}

func (h *Handlers) ListFeeds(w http.ResponseWriter, r *http.Request) {
	feeds, err := h.feeds.ListFeeds(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list feeds", err)
		return
	}
	writeJSON(w, http.StatusOK, feeds)
}

func (h *Handlers) CreateFeed(w http.ResponseWriter, r *http.Request) {
	var create models.FeedCreate
	if err := json.NewDecoder(r.Body).Decode(&create); err != nil {
		core.HandleError(w, core.NewValidationError("invalid request body", err))
		return
	}

	feed, err := h.feeds.AddFeed(r.Context(), create)
	if err != nil {
		h.fail(w, r, "Failed to add feed", err, "url", create.URL)
		return
	}
	writeJSON(w, http.StatusCreated, feed)
}

func (h *Handlers) GetFeed(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	feed, err := h.feeds.GetFeed(r.Context(), id)
	if err != nil {
		h.fail(w, r, "Failed to get feed", err, "feed_id", id)
		return
	}
	writeJSON(w, http.StatusOK, feed)
}

func (h *Handlers) DeleteFeed(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.feeds.RemoveFeed(r.Context(), id); err != nil {
		h.fail(w, r, "Failed to remove feed", err, "feed_id", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) AddFeedTag(w http.ResponseWriter, r *http.Request) {
	h.feedTag(w, r, h.feeds.AddTag)
}

func (h *Handlers) RemoveFeedTag(w http.ResponseWriter, r *http.Request) {
	h.feedTag(w, r, h.feeds.RemoveTag)
}

func (h *Handlers) feedTag(w http.ResponseWriter, r *http.Request, apply func(context.Context, int64, string) (*models.Feed, error)) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	feed, err := apply(r.Context(), id, chi.URLParam(r, "tag"))
	if err != nil {
		h.fail(w, r, "Failed to update feed tags", err, "feed_id", id)
		return
	}
	writeJSON(w, http.StatusOK, feed)
}

func (h *Handlers) RefreshFeed(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	result, err := h.refresher.RefreshFeed(r.Context(), id)
	if err != nil {
		h.fail(w, r, "Failed to refresh feed", err, "feed_id", id)
		return
	}

	status := http.StatusOK
	if result.InFlight {
		status = http.StatusAccepted
	}
	writeJSON(w, status, result)
}

func (h *Handlers) RefreshAll(w http.ResponseWriter, r *http.Request) {
	summary, err := h.refresher.RefreshAll(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to refresh feeds", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// fail logs server-side failures and writes the error response
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, msg string, err error, args ...any) {
	if !core.HasCode(err, core.ErrCodeValidation) && !core.HasCode(err, core.ErrCodeNotFound) && !core.HasCode(err, core.ErrCodeDuplicateFeed) {
		h.logger.WithContext(r.Context()).Error(msg, append(args, "error", err)...)
	}
	core.HandleError(w, err)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		core.HandleError(w, core.NewValidationError("invalid id", err))
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
