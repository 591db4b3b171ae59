package httpx

import (
	"context"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/ariefcatur/go-marketplace/internal/identity"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type UploadsHandler struct {
	Storage     SignedUploader
	Bucket      string
	RequireUser func(http.Handler) http.Handler
	Log         logrus.FieldLogger
}

func (h *UploadsHandler) Register(r *chi.Mux) {
	r.With(h.RequireUser).Post("/api/uploads/product-image", h.productImage)
}

type uploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

type uploadResponse struct {
	Path      string `json:"path"`
	UploadURL string `json:"upload_url"`
	PublicURL string `json:"public_url"`
}

var extPattern = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

// objectPath places every upload under the caller's prefix with a fresh name.
func objectPath(userID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if !extPattern.MatchString(ext) {
		ext = ""
	}
	return userID + "/" + uuid.NewString() + ext
}

func (h *UploadsHandler) productImage(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if !strings.HasPrefix(strings.ToLower(req.ContentType), "image/") {
		writeError(w, http.StatusBadRequest, "content_type must be an image type")
		return
	}
	p := objectPath(identity.UserID(r.Context()), req.Filename)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	signed, err := h.Storage.CreateSignedUploadURL(ctx, h.Bucket, p)
	if err != nil {
		h.Log.WithError(err).WithField("path", p).Error("create signed upload url")
		writeError(w, http.StatusBadGateway, "failed to create upload url")
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{
		Path:      p,
		UploadURL: signed,
		PublicURL: h.Storage.PublicURL(h.Bucket, p),
	})
}
