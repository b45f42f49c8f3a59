package handlers

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/chucklechain/server/internal/logger"
	"github.com/chucklechain/server/internal/models"
	"github.com/chucklechain/server/internal/realtime"
	"github.com/chucklechain/server/internal/store"
	"github.com/chucklechain/server/pkg/types"
	"github.com/gin-gonic/gin"
)

// ActivityStore is the durable surface behind the like, comment and follow
// endpoints.
type ActivityStore interface {
	store.Users
	store.Social
}

// ActivityHandler performs social writes and fans out notifications once
// each write has committed.
type ActivityHandler struct {
	store    ActivityStore
	notifier Notifier
	clock    Clock
}

func NewActivityHandler(st ActivityStore, notifier Notifier, clock Clock) *ActivityHandler {
	return &ActivityHandler{store: st, notifier: notifier, clock: clock}
}

var mentionPattern = regexp.MustCompile(`@([A-Za-z0-9_.]+)`)

// mentions returns the distinct usernames tagged in text, in order.
func mentions(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range mentionPattern.FindAllStringSubmatch(text, -1) {
		name := strings.TrimRight(m[1], ".")
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

type createPostRequest struct {
	Caption string `json:"caption"`
	Image   string `json:"image"`
}

func (h *ActivityHandler) CreatePost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: err.Error()})
		return
	}
	if req.Caption == "" && req.Image == "" {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "post needs a caption or an image"})
		return
	}

	post := models.Post{
		ID:        h.clock.newID(),
		AuthorID:  currentUser(c),
		Caption:   req.Caption,
		Image:     req.Image,
		CreatedAt: h.clock.now(),
	}
	if err := h.store.CreatePost(c.Request.Context(), post); err != nil {
		respondError(c, err, "create post")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": post.ID})
}

func (h *ActivityHandler) LikePost(c *gin.Context) {
	userID := currentUser(c)
	ctx := c.Request.Context()

	post, err := h.store.GetPost(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err, "like post")
		return
	}
	liked, err := h.store.TogglePostLike(ctx, post.ID, userID)
	if err != nil {
		respondError(c, err, "like post")
		return
	}

	c.JSON(http.StatusOK, gin.H{"liked": liked})

	if liked {
		h.notifier.NotifyAsync(realtime.NotifyRequest{
			RecipientID: post.AuthorID,
			SenderID:    userID,
			Kind:        models.KindLike,
			PostID:      post.ID,
		})
	}
}

type commentRequest struct {
	Text     string `json:"text" binding:"required"`
	ParentID string `json:"parentId"`
}

func (h *ActivityHandler) CommentOnPost(c *gin.Context) {
	userID := currentUser(c)
	ctx := c.Request.Context()

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: err.Error()})
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "comment text is required"})
		return
	}

	post, err := h.store.GetPost(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err, "comment on post")
		return
	}

	var parent models.Comment
	if req.ParentID != "" {
		parent, err = h.store.GetComment(ctx, req.ParentID)
		if err != nil {
			respondError(c, err, "comment on post")
			return
		}
		if parent.PostID != post.ID {
			c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "parent comment belongs to another post"})
			return
		}
	}

	comment := models.Comment{
		ID:        h.clock.newID(),
		PostID:    post.ID,
		AuthorID:  userID,
		ParentID:  req.ParentID,
		Text:      req.Text,
		CreatedAt: h.clock.now(),
	}
	if err := h.store.CreateComment(ctx, comment); err != nil {
		respondError(c, err, "comment on post")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": comment.ID})

	h.notifier.NotifyAsync(realtime.NotifyRequest{
		RecipientID: post.AuthorID,
		SenderID:    userID,
		Kind:        models.KindComment,
		PostID:      post.ID,
		CommentID:   comment.ID,
		Content:     "commented: " + snippet(req.Text),
	})
	if req.ParentID != "" {
		h.notifier.NotifyAsync(realtime.NotifyRequest{
			RecipientID: parent.AuthorID,
			SenderID:    userID,
			Kind:        models.KindCommentReply,
			PostID:      post.ID,
			CommentID:   comment.ID,
			Content:     "replied: " + snippet(req.Text),
		})
	}
	for _, name := range mentions(req.Text) {
		tagged, err := h.store.GetUserByUsername(ctx, name)
		if err != nil {
			logger.Debugf("Mention @%s in comment %s not resolved: %v", name, comment.ID, err)
			continue
		}
		h.notifier.NotifyAsync(realtime.NotifyRequest{
			RecipientID: tagged.ID,
			SenderID:    userID,
			Kind:        models.KindTag,
			PostID:      post.ID,
			CommentID:   comment.ID,
		})
	}
}

func (h *ActivityHandler) LikeComment(c *gin.Context) {
	userID := currentUser(c)
	ctx := c.Request.Context()

	comment, err := h.store.GetComment(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err, "like comment")
		return
	}
	liked, err := h.store.ToggleCommentLike(ctx, comment.ID, userID)
	if err != nil {
		respondError(c, err, "like comment")
		return
	}

	c.JSON(http.StatusOK, gin.H{"liked": liked})

	if liked {
		h.notifier.NotifyAsync(realtime.NotifyRequest{
			RecipientID: comment.AuthorID,
			SenderID:    userID,
			Kind:        models.KindCommentLike,
			PostID:      comment.PostID,
			CommentID:   comment.ID,
		})
	}
}

func (h *ActivityHandler) Follow(c *gin.Context) {
	userID := currentUser(c)
	ctx := c.Request.Context()
	targetID := c.Param("id")

	if targetID == userID {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "cannot follow yourself"})
		return
	}
	if _, err := h.store.GetUser(ctx, targetID); err != nil {
		respondError(c, err, "follow user")
		return
	}
	following, err := h.store.ToggleFollow(ctx, userID, targetID)
	if err != nil {
		respondError(c, err, "follow user")
		return
	}

	c.JSON(http.StatusOK, gin.H{"following": following})

	if following {
		h.notifier.NotifyAsync(realtime.NotifyRequest{
			RecipientID: targetID,
			SenderID:    userID,
			Kind:        models.KindFollow,
		})
	}
}

const snippetLen = 50

func snippet(text string) string {
	r := []rune(text)
	if len(r) <= snippetLen {
		return text
	}
	return string(r[:snippetLen]) + "..."
}
