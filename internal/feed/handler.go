package feed

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/feedpost/backend/internal/apperr"
	"github.com/feedpost/backend/internal/middleware"
	"github.com/feedpost/backend/internal/models"
)

const maxUploadSize = 10 << 20 // 10 MiB

// ImagePrefix is the public path prefix image keys live under.
const ImagePrefix = "images/"

// Uploader is the blob-store surface the REST binding needs beyond the
// workflow's own FileStore.
type Uploader interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
	Remove(ctx context.Context, key string) error
}

// Handler is the REST binding over the post workflow.
type Handler struct {
	svc    *Service
	images Uploader
}

func NewHandler(svc *Service, images Uploader) *Handler {
	return &Handler{svc: svc, images: images}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// GetPosts returns one feed page.
func (h *Handler) GetPosts(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	result, err := h.svc.List(r.Context(), page)
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":    "Fetched posts successfully.",
		"posts":      result.Posts,
		"totalItems": result.TotalPosts,
	})
}

// CreatePost stores the uploaded image and creates the post.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	key, err := h.storeUpload(r)
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}

	input := models.PostInput{
		Title:    r.FormValue("title"),
		Content:  r.FormValue("content"),
		ImageURL: key,
	}

	post, err := h.svc.Create(r.Context(), middleware.IdentityFromContext(r.Context()), input)
	if err != nil {
		// The blob was stored before the workflow ran; don't orphan it.
		if key != "" {
			if rmErr := h.images.Remove(r.Context(), key); rmErr != nil {
				log.Printf("remove image %s: %v", key, rmErr)
			}
		}
		apperr.WriteJSON(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Post created successfully!",
		"post":    post,
		"creator": post.Creator,
	})
}

// GetPost returns a single post.
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.svc.Get(r.Context(), chi.URLParam(r, "postId"))
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Post fetched.",
		"post":    post,
	})
}

// UpdatePost replaces the post fields. A fresh upload wins over the
// image form field, which otherwise signals the kept path.
func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	key, err := h.storeUpload(r)
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	if key == "" {
		key = r.FormValue("image")
	}

	input := models.PostInput{
		Title:    r.FormValue("title"),
		Content:  r.FormValue("content"),
		ImageURL: key,
	}

	post, err := h.svc.Update(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "postId"), input)
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Post updated!",
		"post":    post,
	})
}

// DeletePost removes the post, its image, and the creator's reference.
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Delete(r.Context(), middleware.IdentityFromContext(r.Context()), chi.URLParam(r, "postId"))
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Post deleted!"})
}

// UploadImage is the standalone pre-upload endpoint used before
// GraphQL mutations. It optionally clears the oldPath reference.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	ident := middleware.IdentityFromContext(r.Context())
	if !ident.IsAuth {
		apperr.WriteJSON(w, apperr.New(apperr.Unauthenticated, "Not authenticated!"))
		return
	}

	key, err := h.storeUpload(r)
	if err != nil {
		apperr.WriteJSON(w, err)
		return
	}
	if key == "" {
		writeJSON(w, http.StatusOK, map[string]string{"message": "No file provided!"})
		return
	}

	if oldPath := r.FormValue("oldPath"); oldPath != "" {
		if err := h.images.Remove(r.Context(), oldPath); err != nil {
			log.Printf("remove image %s: %v", oldPath, err)
		}
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"message":  "File stored.",
		"filePath": key,
	})
}

// ServeImage streams a stored image back by its public path.
func (h *Handler) ServeImage(w http.ResponseWriter, r *http.Request) {
	key := ImagePrefix + chi.URLParam(r, "*")

	obj, contentType, err := h.images.Open(r.Context(), key)
	if err != nil {
		apperr.WriteJSON(w, apperr.New(apperr.NotFound, "Could not find image."))
		return
	}
	defer obj.Close()

	w.Header().Set("Content-Type", contentType)
	if _, err := io.Copy(w, obj); err != nil {
		log.Printf("serve image %s: %v", key, err)
	}
}

// storeUpload stores the multipart image field, if present, and
// returns its object key. Uploads with a non-image content type are
// ignored and the request proceeds without a file.
func (h *Handler) storeUpload(r *http.Request) (string, error) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return "", nil // not a multipart request
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return "", nil
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !allowedImageType(contentType) {
		return "", nil
	}

	key := ImagePrefix + uuid.New().String() + filepath.Ext(header.Filename)
	if err := h.images.Upload(r.Context(), key, file, header.Size, contentType); err != nil {
		return "", apperr.Wrap(apperr.Internal, "Storing image failed.", err)
	}
	return key, nil
}

func allowedImageType(contentType string) bool {
	switch contentType {
	case "image/png", "image/jpg", "image/jpeg":
		return true
	}
	return false
}
