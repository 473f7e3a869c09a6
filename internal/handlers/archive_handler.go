package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/shaibs3/careportal/internal/archive"
	"github.com/shaibs3/careportal/internal/storage"
	"go.uber.org/zap"
)

const uploadField = "archiveFile"

// BlobStore saves uploads and removes them again
type BlobStore interface {
	Save(src io.Reader, originalName string) (*storage.Blob, error)
	Remove(publicPath string) error
}

// ArchiveHandler serves the per user file and folder tree
type ArchiveHandler struct {
	service        *archive.Service
	blobs          BlobStore
	requireAuth    Middleware
	maxUploadBytes int64
	logger         *zap.Logger
}

func NewArchiveHandler(service *archive.Service, blobs BlobStore, requireAuth Middleware, maxUploadBytes int64) *ArchiveHandler {
	return &ArchiveHandler{
		service:        service,
		blobs:          blobs,
		requireAuth:    requireAuth,
		maxUploadBytes: maxUploadBytes,
		logger:         zap.NewNop(),
	}
}

// RegisterRoutes registers the routes for this handler
func (h *ArchiveHandler) RegisterRoutes(router *mux.Router, logger *zap.Logger) {
	h.logger = logger.Named("archive_handler")

	router.Handle(apiPrefix+"/archives", h.requireAuth(http.HandlerFunc(h.handleList))).Methods(http.MethodGet)
	router.Handle(apiPrefix+"/archives", h.requireAuth(http.HandlerFunc(h.handleCreate))).Methods(http.MethodPost)
	router.Handle(apiPrefix+"/archives/{id:[0-9]+}", h.requireAuth(http.HandlerFunc(h.handleDelete))).Methods(http.MethodDelete)
}

type createForm struct {
	parentID string
	name     string
	isFolder string
	file     multipart.File
	header   *multipart.FileHeader
}

// readCreateForm accepts multipart (with an optional file part), url encoded
// and JSON bodies
func (h *ArchiveHandler) readCreateForm(w http.ResponseWriter, r *http.Request) (*createForm, int, string) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			ParentID looseString `json:"parent_id"`
			Name     string      `json:"name"`
			IsFolder looseString `json:"is_folder"`
		}
		if err := decodeJSON(r, &body); err != nil {
			return nil, http.StatusBadRequest, "Invalid request body"
		}
		return &createForm{parentID: string(body.ParentID), name: body.Name, isFolder: string(body.IsFolder)}, 0, ""
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, http.StatusRequestEntityTooLarge, "File too large"
		}
		return nil, http.StatusBadRequest, "Invalid form data"
	}

	form := &createForm{
		parentID: r.FormValue("parent_id"),
		name:     r.FormValue("name"),
		isFolder: r.FormValue("is_folder"),
	}
	file, header, err := r.FormFile(uploadField)
	switch {
	case err == nil:
		form.file, form.header = file, header
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		return nil, http.StatusBadRequest, "Invalid form data"
	}
	return form, 0, ""
}

func (h *ArchiveHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := userID(w, r)
	if !ok {
		return
	}

	form, status, message := h.readCreateForm(w, r)
	if form == nil {
		writeJSON(w, status, errorBody{Error: message})
		return
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}
	if form.file != nil {
		defer func() { _ = form.file.Close() }()
	}

	parentID, err := parseOptionalID(form.parentID)
	if err != nil {
		badRequest(w, "Invalid parent_id")
		return
	}

	req := archive.CreateRequest{
		OwnerID:  ownerID,
		ParentID: parentID,
		Name:     form.name,
		IsFolder: form.isFolder == "true",
	}

	// a folder never stores the attached file
	if !req.IsFolder && form.file != nil && strings.TrimSpace(req.Name) != "" {
		blob, err := h.blobs.Save(form.file, form.header.Filename)
		if err != nil {
			writeError(w, h.logger, r, err)
			return
		}
		req.Blob = blob
	}

	node, err := h.service.Create(r.Context(), req)
	if err != nil {
		if req.Blob != nil {
			if rmErr := h.blobs.Remove(req.Blob.PublicPath); rmErr != nil {
				h.logger.Warn("could not remove blob of failed upload",
					zap.String("file_path", req.Blob.PublicPath), zap.Error(rmErr))
			}
		}
		writeError(w, h.logger, r, err)
		return
	}

	msg := "File uploaded successfully"
	if node.IsFolder {
		msg = "Folder created successfully"
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":      node.ID,
		"message": msg,
	})
}

func (h *ArchiveHandler) handleList(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := userID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	parentID, err := parseOptionalID(q.Get("parent_id"))
	if err != nil {
		badRequest(w, "Invalid parent_id")
		return
	}

	entries, err := h.service.List(r.Context(), archive.ListFilter{
		OwnerID:  ownerID,
		ParentID: parentID,
		Search:   q.Get("search"),
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *ArchiveHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := userID(w, r)
	if !ok {
		return
	}

	id, err := parseID(mux.Vars(r)["id"])
	if err != nil {
		badRequest(w, "Invalid id")
		return
	}

	res, err := h.service.Delete(r.Context(), archive.DeleteRequest{
		OwnerID:   ownerID,
		ID:        id,
		Recursive: r.URL.Query().Get("recursive") == "true",
	})
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	switch {
	case !res.Folder:
		writeMessage(w, http.StatusOK, "File deleted successfully")
	case res.Recursive:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"message": "Folder and its contents deleted successfully",
			"deleted": res.Deleted,
		})
	default:
		writeMessage(w, http.StatusOK, "Folder deleted successfully")
	}
}
