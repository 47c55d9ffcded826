package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"budgettracker/internal/api"
	"budgettracker/internal/core"
)

type forumPage struct {
	Posts []core.ForumPost
	Form  PostForm
}

type forumPostPage struct {
	Post     core.ForumPost
	Comments []core.Comment
	CanEdit  bool
	Edit     PostForm
	Comment  CommentForm
}

// canModify reports whether sess may edit or delete content by authorID.
func canModify(sess core.Session, authorID int64) bool {
	return sess.IsAdmin() || (authorID != 0 && sess.UserID == authorID)
}

func (s *Server) forumView(w http.ResponseWriter, r *http.Request, form PostForm) (view, bool) {
	v := view{Title: "Forum"}
	posts, err := s.clientFor(r).Posts(r.Context())
	if err != nil {
		if !s.recoverable(w, r, err) {
			return v, false
		}
		v.Warnings = []string{"The forum could not be loaded. Please try again later."}
	}
	v.Page = forumPage{Posts: posts, Form: form}
	return v, true
}

func (s *Server) handleForum(w http.ResponseWriter, r *http.Request) {
	if v, ok := s.forumView(w, r, PostForm{}); ok {
		s.render(w, r, http.StatusOK, "forum", v)
	}
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	if err := parsePost(w, r); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	form := parsePostForm(r)
	if p, valid := form.validate(); valid {
		p.AuthorID = currentSession(r).UserID
		p.Created = s.now()
		err := s.clientFor(r).CreatePost(r.Context(), p)
		if err == nil {
			setFlash(w, NotificationSuccess, "Post published.")
			s.redirect(w, r, "/forum")
			return
		}
		msg, ok := s.writeFailed(w, r, err, "The post could not be published.")
		if !ok {
			return
		}
		form.Errors.add(formField, msg)
	}
	if v, ok := s.forumView(w, r, form); ok {
		s.render(w, r, http.StatusOK, "forum", v)
	}
}

// findPost looks the post up in the list; the backend has no single-post
// read. It answers the request itself when ok is false.
func (s *Server) findPost(w http.ResponseWriter, r *http.Request, c *api.Client) (core.ForumPost, bool) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		s.handleNotFound(w, r)
		return core.ForumPost{}, false
	}
	posts, err := c.Posts(r.Context())
	if err != nil {
		if s.recoverable(w, r, err) {
			s.renderLoadError(w, r, err, "post")
		}
		return core.ForumPost{}, false
	}
	for _, p := range posts {
		if p.ID == id {
			return p, true
		}
	}
	s.renderLoadError(w, r, fmt.Errorf("post %d: %w", id, api.ErrNotFound), "post")
	return core.ForumPost{}, false
}

// renderPost shows the post with its comments. A failed comment load
// leaves the post readable.
func (s *Server) renderPost(w http.ResponseWriter, r *http.Request, c *api.Client, p core.ForumPost, edit PostForm, comment CommentForm) {
	v := view{Title: p.Title}
	comments, err := c.Comments(r.Context(), p.ID)
	if err != nil {
		if !s.recoverable(w, r, err) {
			return
		}
		v.Warnings = []string{"The comments could not be loaded."}
	}
	if edit.ID == 0 {
		edit = PostForm{ID: p.ID, Title: p.Title, Content: p.Content}
	}
	v.Page = forumPostPage{
		Post:     p,
		Comments: comments,
		CanEdit:  canModify(currentSession(r), p.AuthorID),
		Edit:     edit,
		Comment:  comment,
	}
	s.render(w, r, http.StatusOK, "forum_post", v)
}

func (s *Server) handleForumPost(w http.ResponseWriter, r *http.Request) {
	c := s.clientFor(r)
	if p, ok := s.findPost(w, r, c); ok {
		s.renderPost(w, r, c, p, PostForm{}, CommentForm{})
	}
}

func postURL(id int64) string {
	return "/forum/" + strconv.FormatInt(id, 10)
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	if err := parsePost(w, r); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	c := s.clientFor(r)
	p, ok := s.findPost(w, r, c)
	if !ok {
		return
	}
	if !canModify(currentSession(r), p.AuthorID) {
		s.renderError(w, r, http.StatusForbidden, "You can only edit your own posts.")
		return
	}

	form := parsePostForm(r)
	form.ID = p.ID
	if edited, valid := form.validate(); valid {
		edited.AuthorID = p.AuthorID
		edited.Created = p.Created
		err := c.UpdatePost(r.Context(), edited)
		if err == nil {
			setFlash(w, NotificationSuccess, "Post updated.")
			s.redirect(w, r, postURL(p.ID))
			return
		}
		msg, ok := s.writeFailed(w, r, err, "The post could not be saved.")
		if !ok {
			return
		}
		form.Errors.add(formField, msg)
	}
	s.renderPost(w, r, c, p, form, CommentForm{})
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	c := s.clientFor(r)
	p, ok := s.findPost(w, r, c)
	if !ok {
		return
	}
	if !canModify(currentSession(r), p.AuthorID) {
		s.renderError(w, r, http.StatusForbidden, "You can only delete your own posts.")
		return
	}
	if err := c.DeletePost(r.Context(), p.ID); err != nil {
		msg, ok := s.writeFailed(w, r, err, "The post could not be deleted.")
		if !ok {
			return
		}
		setFlash(w, NotificationError, msg)
		s.redirect(w, r, postURL(p.ID))
		return
	}
	setFlash(w, NotificationSuccess, "Post deleted.")
	s.redirect(w, r, "/forum")
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	if err := parsePost(w, r); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	c := s.clientFor(r)
	p, ok := s.findPost(w, r, c)
	if !ok {
		return
	}

	form := CommentForm{Content: postValue(r, "content"), Errors: fieldErrors{}}
	cm := core.Comment{PostID: p.ID, AuthorID: currentSession(r).UserID, Content: form.Content, Created: s.now()}
	err := cm.Validate()
	if err == nil {
		err = c.CreateComment(r.Context(), cm)
		if err == nil {
			setFlash(w, NotificationSuccess, "Comment added.")
			s.redirect(w, r, postURL(p.ID))
			return
		}
	}
	msg, ok := s.writeFailed(w, r, err, "The comment could not be added.")
	if !ok {
		return
	}
	form.Errors.add("content", msg)
	s.renderPost(w, r, c, p, PostForm{}, form)
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	postID, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		s.handleNotFound(w, r)
		return
	}
	commentID, ok := parseID(chi.URLParam(r, "commentID"))
	if !ok {
		s.handleNotFound(w, r)
		return
	}

	c := s.clientFor(r)
	comments, err := c.Comments(r.Context(), postID)
	if err != nil {
		if s.recoverable(w, r, err) {
			s.renderLoadError(w, r, err, "comment")
		}
		return
	}
	var found *core.Comment
	for i := range comments {
		if comments[i].ID == commentID {
			found = &comments[i]
			break
		}
	}
	if found == nil {
		s.renderLoadError(w, r, fmt.Errorf("comment %d: %w", commentID, api.ErrNotFound), "comment")
		return
	}
	if !canModify(currentSession(r), found.AuthorID) {
		s.renderError(w, r, http.StatusForbidden, "You can only delete your own comments.")
		return
	}

	if err := c.DeleteComment(r.Context(), commentID); err != nil {
		msg, ok := s.writeFailed(w, r, err, "The comment could not be deleted.")
		if !ok {
			return
		}
		setFlash(w, NotificationError, msg)
	} else {
		setFlash(w, NotificationSuccess, "Comment deleted.")
	}
	s.redirect(w, r, postURL(postID))
}
