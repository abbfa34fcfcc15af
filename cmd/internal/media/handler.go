package media

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"myauth/cmd/internal/auth/gate"
	"myauth/cmd/internal/httpx"
)

const (
	formField      = "file"
	multipartSlack = 1 << 20
	sniffLen       = 512
)

// Upload describes a stored image.
type Upload struct {
	ImageURL         string `json:"imageUrl"`
	FileName         string `json:"fileName"`
	OriginalFileName string `json:"originalFileName"`
	FileSize         int64  `json:"fileSize"`
	ContentType      string `json:"contentType"`
}

// Handler serves image upload and delete for authenticated callers.
type Handler struct {
	log      *slog.Logger
	store    Storage
	maxBytes int64
	newName  func() string
}

// NewHandler returns a Handler storing into store. maxBytes <= 0 uses DefaultMaxBytes.
func NewHandler(log *slog.Logger, store Storage, maxBytes int64) *Handler {
	if log == nil {
		log = slog.Default()
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Handler{log: log, store: store, maxBytes: maxBytes, newName: uuid.NewString}
}

// Register wires the upload routes. Both require a principal.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.Handle("POST /api/upload/image", gate.RequirePrincipal(http.HandlerFunc(h.handleUpload)))
	mux.Handle("DELETE /api/upload/image/{fileName}", gate.RequirePrincipal(http.HandlerFunc(h.handleDelete)))
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	p, _ := gate.PrincipalFrom(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartSlack)
	f, hdr, err := r.FormFile(formField)
	if err != nil {
		if httpx.IsTooLarge(err) {
			h.writeErr(w, r, ErrTooLarge)
			return
		}
		httpx.WriteError(w, r, http.StatusBadRequest, httpx.CodeInvalidRequest, "", "A file is required in the \"file\" field.")
		return
	}
	defer func() { _ = f.Close() }()
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	switch {
	case hdr.Size <= 0:
		h.writeErr(w, r, ErrEmptyFile)
		return
	case hdr.Size > h.maxBytes:
		h.writeErr(w, r, ErrTooLarge)
		return
	case strings.Contains(hdr.Filename, ".."):
		h.writeErr(w, r, ErrInvalidName)
		return
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		h.log.Error("media.upload.read.fail", "err", err)
		httpx.WriteError(w, r, http.StatusInternalServerError, httpx.CodeInternal, "", httpx.MsgInternal)
		return
	}
	head = head[:n]

	contentType := http.DetectContentType(head)
	ext, ok := ExtensionFor(contentType)
	if !ok {
		h.writeErr(w, r, ErrUnsupportedType)
		return
	}

	name := h.newName() + ext
	url, err := h.store.Put(r.Context(), name, contentType, io.MultiReader(bytes.NewReader(head), f), hdr.Size)
	if err != nil {
		h.log.Error("media.upload.put.fail", "user_id", p.UserID, "err", err)
		httpx.WriteError(w, r, http.StatusInternalServerError, httpx.CodeInternal, "", httpx.MsgInternal)
		return
	}

	h.log.Info("media.upload.ok", "user_id", p.UserID, "file", name, "size", hdr.Size)
	httpx.WriteJSON(w, http.StatusCreated, Upload{
		ImageURL:         url,
		FileName:         name,
		OriginalFileName: hdr.Filename,
		FileSize:         hdr.Size,
		ContentType:      contentType,
	})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	p, _ := gate.PrincipalFrom(r.Context())

	name := r.PathValue("fileName")
	if !ValidName(name) {
		h.writeErr(w, r, ErrInvalidName)
		return
	}
	if err := h.store.Delete(r.Context(), name); err != nil {
		if errors.Is(err, ErrInvalidName) {
			h.writeErr(w, r, err)
			return
		}
		h.log.Error("media.delete.fail", "user_id", p.UserID, "file", name, "err", err)
		httpx.WriteError(w, r, http.StatusInternalServerError, httpx.CodeInternal, "", httpx.MsgInternal)
		return
	}

	h.log.Info("media.delete.ok", "user_id", p.UserID, "file", name)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrTooLarge):
		httpx.WriteError(w, r, http.StatusRequestEntityTooLarge, httpx.CodePayloadTooLarge, "", "File is too large.")
	case errors.Is(err, ErrUnsupportedType):
		httpx.WriteError(w, r, http.StatusUnsupportedMediaType, httpx.CodeUnsupportedMedia, "", "Unsupported file type. Use JPEG, PNG, GIF or WEBP.")
	case errors.Is(err, ErrEmptyFile):
		httpx.WriteError(w, r, http.StatusBadRequest, httpx.CodeInvalidRequest, "", "File is empty.")
	default:
		httpx.WriteError(w, r, http.StatusBadRequest, httpx.CodeInvalidRequest, "", "Invalid file name.")
	}
}
