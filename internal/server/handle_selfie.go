package server

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strings"
)

// maxUploadBytes leaves room for multipart framing and base64 growth around
// the 10MB image limit.
const maxUploadBytes = 15 << 20

// SelfieRequest is the JSON form of a selfie upload.
type SelfieRequest struct {
	// Image is a data URL such as "data:image/jpeg;base64,...".
	Image string `json:"image"`
}

var errNoImage = errors.New("selfie image is required")

func handleSelfie(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

		image, err := readSelfie(r)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "selfie is too large")
				return
			}
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		out, err := d.engine.UploadSelfie(r.Context(), sessionID(r), image)
		if err != nil {
			writeEngineError(w, d.logger, err)
			return
		}
		d.respond(w, out)
	}
}

func readSelfie(r *http.Request) ([]byte, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return nil, err
		}
		f, _, err := r.FormFile("selfie")
		if err != nil {
			return nil, errNoImage
		}
		defer f.Close()
		return io.ReadAll(f)
	}

	var req SelfieRequest
	if err := readJSON(r, &req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, errors.New("invalid request body")
	}
	return decodeDataURL(req.Image)
}

// decodeDataURL accepts a base64 data URL or bare base64.
func decodeDataURL(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errNoImage
	}
	if strings.HasPrefix(s, "data:") {
		meta, payload, ok := strings.Cut(s, ",")
		if !ok || !strings.HasSuffix(meta, ";base64") {
			return nil, errors.New("image must be a base64 data URL")
		}
		s = payload
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.New("image is not valid base64")
	}
	return data, nil
}
