package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"wa-relay/internal/storage"
)

// MaxUploadBytes matches the largest document the provider accepts.
const MaxUploadBytes = 100 << 20

// UploadResponse describes a stored upload.
type UploadResponse struct {
	Filename       string `json:"filename"`
	ContentType    string `json:"content_type"`
	StoredFilename string `json:"stored_filename"`
	MediaURL       string `json:"media_url"`
	FileSize       int64  `json:"file_size"`
	Message        string `json:"message"`
	TestURL        string `json:"test_url"`
}

// @Summary Upload a media file
// @Description Stores the file locally and returns the public URL to pass as media_url.
// @Tags Media
// @Security ApiKeyAuth
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "File to upload"
// @Success 200 {object} UploadResponse
// @Failure 400 {object} ErrorResponse
// @Failure 413 {object} ErrorResponse
// @Router /api/messages/media/upload [post]
func (a *API) UploadMedia(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			a.writeError(w, http.StatusRequestEntityTooLarge, "too_large", "upload exceeds size limit")
			return
		}
		a.writeError(w, http.StatusBadRequest, "bad_request", "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxUploadBytes+1))
	if err != nil {
		a.writeError(w, http.StatusBadRequest, "bad_request", "could not read upload")
		return
	}
	if len(data) > MaxUploadBytes {
		a.writeError(w, http.StatusRequestEntityTooLarge, "too_large", "upload exceeds size limit")
		return
	}

	stored, err := a.Files.Save(header.Filename, data)
	if err != nil {
		a.Log.WithError(err).Error("failed to store upload")
		a.writeError(w, http.StatusInternalServerError, "internal_error", "could not store upload")
		return
	}

	a.Log.WithFields(logrus.Fields{"file": stored.Name, "bytes": stored.Size, "media_url": stored.URL}).Info("file uploaded")
	a.writeJSON(w, http.StatusOK, UploadResponse{
		Filename:       header.Filename,
		ContentType:    header.Header.Get("Content-Type"),
		StoredFilename: stored.Name,
		MediaURL:       stored.URL,
		FileSize:       stored.Size,
		Message:        "File uploaded successfully to local storage.",
		TestURL:        stored.URL + "?test=1",
	})
}

// @Summary Check an uploaded file
// @Tags Media
// @Security ApiKeyAuth
// @Produce json
// @Param filename path string true "Stored file name"
// @Success 200 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Router /api/messages/media/test/{filename} [get]
func (a *API) TestMediaAccess(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	path, ok, err := a.Files.Exists(name)
	if errors.Is(err, storage.ErrInvalidName) {
		a.writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	if err != nil {
		a.Log.WithError(err).Error("stat upload")
		a.writeError(w, http.StatusInternalServerError, "internal_error", "could not check file")
		return
	}

	status := "not_found"
	resp := map[string]string{"file_path": path}
	if ok {
		status = "accessible"
		resp["media_url"] = a.Files.URL(name)
	}
	resp["status"] = status
	a.writeJSON(w, http.StatusOK, resp)
}
