package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/payview/server/internal/access"
	"github.com/payview/server/internal/auth"
	"github.com/payview/server/internal/model"
	"github.com/payview/server/internal/store"
)

// uploader is the slice of the storage client the file-record path needs for
// entries that post raw bytes instead of a pre-uploaded URL.
type uploader interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) error
	PublicURL(key string) string
}

type FileHandler struct {
	files       *store.FileStore
	collections *store.CollectionStore
	issuer      *access.Issuer
	uploads     uploader
	logger      *slog.Logger
}

func NewFileHandler(files *store.FileStore, collections *store.CollectionStore, issuer *access.Issuer, uploads uploader, logger *slog.Logger) *FileHandler {
	return &FileHandler{
		files:       files,
		collections: collections,
		issuer:      issuer,
		uploads:     uploads,
		logger:      logger,
	}
}

type createFileEntry struct {
	FileName      string     `json:"fileName"`
	FileURL       string     `json:"fileUrl"`
	Content       string     `json:"content"`
	FileSize      *int64     `json:"fileSize"`
	ContentType   *string    `json:"contentType"`
	Title         string     `json:"title"`
	Slug          string     `json:"slug"`
	Description   *string    `json:"description"`
	PriceCents    int64      `json:"priceCents"`
	Currency      string     `json:"currency"`
	ExpiresAt     *time.Time `json:"expiresAt"`
	ScreenshotOff bool       `json:"screenshotProtection"`
}

type createFilesRequest struct {
	Files  []createFileEntry `json:"files"`
	Group  bool              `json:"group"`
	Series *struct {
		Title       string  `json:"title"`
		Slug        string  `json:"slug"`
		Description *string `json:"description"`
	} `json:"series"`
}

// Create inserts a batch of file records for the authenticated creator,
// optionally grouping them under a new series. An entry either references
// content already in storage (fileUrl) or carries the raw bytes base64-encoded
// (content), in which case they are stored under <creatorID>/<fileName> first.
func (h *FileHandler) Create(w http.ResponseWriter, r *http.Request) {
	creatorID := auth.ProfileID(r.Context())
	if creatorID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createFilesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Files) == 0 {
		writeError(w, http.StatusBadRequest, "no files provided")
		return
	}
	for _, f := range req.Files {
		if f.FileName == "" || (f.FileURL == "" && f.Content == "") {
			writeError(w, http.StatusBadRequest, "file entries need fileName and fileUrl or content")
			return
		}
		if f.PriceCents < 0 {
			writeError(w, http.StatusBadRequest, "negative price")
			return
		}
	}

	var collectionID *string
	if req.Group && req.Series != nil && req.Series.Title != "" {
		col, err := h.collections.Create(&model.FileCollection{
			CreatorID:   creatorID,
			Title:       req.Series.Title,
			Slug:        req.Series.Slug,
			Description: req.Series.Description,
		})
		if err != nil {
			h.logger.Error("create collection", "error", err)
			writeError(w, http.StatusBadRequest, "create series failed")
			return
		}
		collectionID = &col.ID
	}

	created := make([]*model.File, 0, len(req.Files))
	for _, f := range req.Files {
		title := f.Title
		if title == "" {
			title = f.FileName
		}
		fileURL := f.FileURL
		fileSize := f.FileSize
		if fileURL == "" {
			url, size, err := h.storeContent(r.Context(), creatorID, f)
			if err != nil {
				h.logger.Error("store uploaded content", "file_name", f.FileName, "error", err)
				writeError(w, http.StatusBadRequest, "upload failed")
				return
			}
			fileURL = url
			fileSize = &size
		}
		file, err := h.files.Create(&model.File{
			CreatorID:            creatorID,
			CollectionID:         collectionID,
			Slug:                 f.Slug,
			Title:                title,
			Description:          f.Description,
			FileName:             f.FileName,
			FileURL:              fileURL,
			FileSizeBytes:        fileSize,
			ContentType:          f.ContentType,
			PriceCents:           f.PriceCents,
			Currency:             f.Currency,
			ExpiresAt:            f.ExpiresAt,
			ScreenshotProtection: f.ScreenshotOff,
		})
		if err != nil {
			h.logger.Error("create file record", "file_name", f.FileName, "error", err)
			writeError(w, http.StatusBadRequest, "create file failed")
			return
		}
		created = append(created, file)
	}

	writeJSON(w, http.StatusCreated, map[string]any{"created": created})
}

// storeContent decodes an entry's base64 payload, uploads it under the
// creator's prefix, and returns the object's URL and size.
func (h *FileHandler) storeContent(ctx context.Context, creatorID string, f createFileEntry) (string, int64, error) {
	data, err := base64.StdEncoding.DecodeString(f.Content)
	if err != nil {
		return "", 0, err
	}
	contentType := "application/octet-stream"
	if f.ContentType != nil && *f.ContentType != "" {
		contentType = *f.ContentType
	}
	key := creatorID + "/" + f.FileName
	if err := h.uploads.Upload(ctx, key, bytes.NewReader(data), contentType); err != nil {
		return "", 0, err
	}
	return h.uploads.PublicURL(key), int64(len(data)), nil
}

// Get serves the file_details read model and counts the view.
func (h *FileHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	details, err := h.files.GetDetails(id)
	if err != nil {
		h.logger.Error("get file details", "file_id", id, "error", err)
		writeError(w, http.StatusBadRequest, "lookup failed")
		return
	}
	if details == nil || !details.IsActive {
		writeError(w, http.StatusBadRequest, "file not found")
		return
	}
	if err := h.files.IncrementViewCount(id); err != nil {
		h.logger.Warn("increment view count", "file_id", id, "error", err)
	}
	writeJSON(w, http.StatusOK, details)
}

// SignedURL issues a short-lived retrieval URL for a file the viewer may
// access. Denied and not-found are deliberately the same answer.
func (h *FileHandler) SignedURL(w http.ResponseWriter, r *http.Request) {
	viewerID := auth.ProfileID(r.Context())
	if viewerID == "" {
		writeError(w, http.StatusBadRequest, "unauthorized")
		return
	}

	var req struct {
		FileID string `json:"fileId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FileID == "" {
		writeError(w, http.StatusBadRequest, "missing fileId")
		return
	}

	url, err := h.issuer.IssueURL(r.Context(), req.FileID, viewerID)
	if err != nil {
		if errors.Is(err, access.ErrDenied) {
			writeError(w, http.StatusBadRequest, "access denied")
			return
		}
		h.logger.Error("issue signed url", "file_id", req.FileID, "error", err)
		writeError(w, http.StatusBadRequest, "could not issue url")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}
