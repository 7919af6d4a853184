package server

import (
	"log/slog"
	"mime/multipart"
	"os"
	"strconv"
	"strings"

	"uboard/internal/middleware"
	"uboard/internal/models"
	"uboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createPostRequest struct {
	Type     string         `json:"type"`
	Title    string         `json:"title"`
	Body     string         `json:"body"`
	Location string         `json:"location"`
	Capacity *int           `json:"capacity"`
	Tags     []string       `json:"tags"`
	Coords   *models.Coords `json:"coords"`
}

type updatePostRequest struct {
	Title    *string        `json:"title"`
	Body     *string        `json:"body"`
	Location *string        `json:"location"`
	Capacity *int           `json:"capacity"`
	Coords   *models.Coords `json:"coords"`
}

// GetPosts handles GET /api/v1/posts?type=&limit=&offset=
// @Summary List posts
// @Tags posts
// @Produce json
// @Param type query string false "Post type, or All"
// @Param limit query int false "Page size (max 50)"
// @Param offset query int false "Offset"
// @Success 200 {object} models.Envelope
// @Success 204
// @Security BearerAuth
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page := parsePagination(c)
	posts, err := s.postService.List(c.UserContext(), service.ListPostsInput{
		UserID: currentUser(c),
		Type:   c.Query("type"),
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.RespondPage(c, posts)
}

// SearchPosts handles GET /api/v1/posts/search?q=...
// @Summary Full-text search over posts
// @Tags posts
// @Produce json
// @Param q query string true "Search terms"
// @Param type query string false "Post type, or All"
// @Success 200 {object} models.Envelope
// @Success 204
// @Failure 400 {object} models.Envelope
// @Security BearerAuth
// @Router /posts/search [get]
func (s *Server) SearchPosts(c *fiber.Ctx) error {
	page := parsePagination(c)
	posts, err := s.postService.Search(c.UserContext(), service.SearchPostsInput{
		UserID: currentUser(c),
		Type:   c.Query("type"),
		Query:  c.Query("q"),
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.RespondPage(c, posts)
}

// GetPost handles GET /api/v1/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.Get(c.UserContext(), currentUser(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, post, "")
}

// CreatePost handles POST /api/v1/posts. The body is JSON, or multipart
// form data when a "file" attachment is included.
// @Summary Create a post
// @Tags posts
// @Accept json,mpfd
// @Produce json
// @Success 201 {object} models.Envelope
// @Failure 400 {object} models.Envelope
// @Security BearerAuth
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	in := service.CreatePostInput{AuthorID: currentUser(c)}

	if isMultipart(c) {
		form, err := c.MultipartForm()
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid multipart form"))
		}
		if err := fillFromForm(&in, form); err != nil {
			return models.RespondWithAppError(c, err)
		}
		if files := form.File["file"]; len(files) > 0 {
			path, err := spoolUpload(c, files[0])
			if err != nil {
				middleware.Logger.ErrorContext(c.UserContext(), "failed to spool upload",
					slog.String("error", err.Error()))
				return models.RespondWithError(c, fiber.StatusInternalServerError, err)
			}
			defer func() { _ = os.Remove(path) }()
			in.File = &service.UploadedFile{Filename: files[0].Filename, Path: path}
		}
	} else {
		var req createPostRequest
		if err := parseBody(c, &req); err != nil {
			return nil
		}
		in.Type = req.Type
		in.Title = req.Title
		in.Body = req.Body
		in.Location = req.Location
		in.Capacity = req.Capacity
		in.Tags = req.Tags
		in.Coords = req.Coords
	}

	post, err := s.postService.Create(c.UserContext(), in)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusCreated, post, "")
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm)
}

// fillFromForm copies multipart fields into in. Tags may repeat or be comma
// separated.
func fillFromForm(in *service.CreatePostInput, form *multipart.Form) error {
	value := func(key string) string {
		if v := form.Value[key]; len(v) > 0 {
			return v[0]
		}
		return ""
	}

	in.Type = value("type")
	in.Title = value("title")
	in.Body = value("body")
	in.Location = value("location")

	if raw := strings.TrimSpace(value("capacity")); raw != "" {
		capacity, err := strconv.Atoi(raw)
		if err != nil {
			return models.NewValidationError("Capacity must be a whole number")
		}
		in.Capacity = &capacity
	}

	for _, v := range form.Value["tags"] {
		in.Tags = append(in.Tags, strings.Split(v, ",")...)
	}

	lat, lng := strings.TrimSpace(value("lat")), strings.TrimSpace(value("lng"))
	if lat != "" || lng != "" {
		latF, latErr := strconv.ParseFloat(lat, 64)
		lngF, lngErr := strconv.ParseFloat(lng, 64)
		if latErr != nil || lngErr != nil {
			return models.NewValidationError("Coordinates must be numbers")
		}
		in.Coords = &models.Coords{Lat: latF, Lng: lngF}
	}
	return nil
}

// spoolUpload writes the multipart file to a temp file and returns its path.
func spoolUpload(c *fiber.Ctx, fh *multipart.FileHeader) (string, error) {
	tmp, err := os.CreateTemp("", "uboard-upload-*")
	if err != nil {
		return "", err
	}
	path := tmp.Name()
	if err := tmp.Close(); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	if err := c.SaveFile(fh, path); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}

// UpdatePost handles PATCH /api/v1/posts/:id
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req updatePostRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	post, err := s.postService.Update(c.UserContext(), service.UpdatePostInput{
		UserID:   currentUser(c),
		PostID:   id,
		Title:    req.Title,
		Body:     req.Body,
		Location: req.Location,
		Capacity: req.Capacity,
		Coords:   req.Coords,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, post, "")
}

// DeletePost handles DELETE /api/v1/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.Delete(c.UserContext(), currentUser(c), id); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UpvotePost handles POST /api/v1/posts/:id/upvote
func (s *Server) UpvotePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.Upvote(c.UserContext(), currentUser(c), id); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DownvotePost handles POST /api/v1/posts/:id/downvote
func (s *Server) DownvotePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	removed, err := s.postService.Downvote(c.UserContext(), currentUser(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	if !removed {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Post was not liked"))
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ReportPost handles POST /api/v1/posts/:id/report. The post is deleted once
// it collects MaxReports distinct reports.
func (s *Server) ReportPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.postService.Report(c.UserContext(), currentUser(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	msg := "Report recorded"
	if res.Deleted {
		msg = "Post was deleted due to reports"
	}
	return models.Respond(c, fiber.StatusOK, res, msg)
}

// CheckinPost handles POST /api/v1/posts/:id/checkin
func (s *Server) CheckinPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.Checkin(c.UserContext(), currentUser(c), id); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CheckoutPost handles POST /api/v1/posts/:id/checkout
func (s *Server) CheckoutPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	removed, err := s.postService.Checkout(c.UserContext(), currentUser(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	if !removed {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("User was not checked in"))
	}
	return c.SendStatus(fiber.StatusNoContent)
}
