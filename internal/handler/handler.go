package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/harliandi/go-imgfit/internal/config"
	"github.com/harliandi/go-imgfit/internal/converter"
	"github.com/harliandi/go-imgfit/internal/logctx"
	"github.com/harliandi/go-imgfit/pkg/codec"
	"github.com/harliandi/go-imgfit/pkg/limits"
	"github.com/harliandi/go-imgfit/pkg/optimizer"
)

// Output modes for the optimized image.
const (
	OutputBinary = "binary"
	OutputBase64 = "base64"
	OutputURI    = "uri"
)

// Handler handles HTTP requests for image optimization
type Handler struct {
	converter *converter.Converter
	cfg       *config.Config
}

// New creates a new Handler. cfg supplies upload limits and request defaults.
func New(conv *converter.Converter, cfg *config.Config) *Handler {
	return &Handler{
		converter: conv,
		cfg:       cfg,
	}
}

// Optimize handles POST /optimize.
//
// The multipart field "file" holds the image. Query parameters:
// max_bytes, max_base64, format (jpeg|webp), max_size, quality, min_quality,
// output (binary|base64|uri).
func (h *Handler) Optimize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	maxUpload := int64(h.cfg.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload+1<<20)
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			writeError(w, http.StatusBadRequest, "Content-Type must be multipart/form-data", nil)
		} else {
			writeError(w, http.StatusRequestEntityTooLarge, "Request too large", nil)
		}
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUpload+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read upload", nil)
		return
	}
	if int64(len(data)) > maxUpload {
		writeError(w, http.StatusRequestEntityTooLarge, "Request too large", nil)
		return
	}
	if !codec.IsSupportedInput(data) {
		writeError(w, http.StatusUnsupportedMediaType, "Unsupported image type "+codec.Sniff(data), nil)
		return
	}

	req, output, err := h.parseRequest(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	res, err := h.converter.Optimize(r.Context(), data, req)
	if err != nil {
		h.writeOptimizeError(w, r, err)
		return
	}

	writeResult(w, res, output)
}

// Health handles the /health endpoint for readiness/liveness probes
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// parseRequest builds an optimizer request from query parameters, filling
// gaps from the configured defaults.
func (h *Handler) parseRequest(q url.Values) (optimizer.Request, string, error) {
	req := optimizer.Request{
		InitialQuality: h.cfg.InitialQuality,
		MinQuality:     h.cfg.MinQuality,
	}

	var err error
	if req.Constraints.MaxBinaryBytes, err = optionalInt(q, "max_bytes"); err != nil {
		return req, "", err
	}
	if req.Constraints.MaxBase64Chars, err = optionalInt(q, "max_base64"); err != nil {
		return req, "", err
	}
	if req.Constraints.MaxBinaryBytes == nil && req.Constraints.MaxBase64Chars == nil {
		req.Constraints = h.cfg.DefaultConstraints()
	}

	format := q.Get("format")
	if format == "" {
		format = h.cfg.DefaultFormat
	}
	if req.Format, err = codec.ParseFormat(format); err != nil {
		return req, "", errors.New("format must be jpeg or webp")
	}

	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"max_size", &req.MaxSize},
		{"quality", &req.InitialQuality},
		{"min_quality", &req.MinQuality},
	} {
		v, err := optionalInt(q, p.name)
		if err != nil {
			return req, "", err
		}
		if v != nil {
			*p.dst = *v
		}
	}
	if req.MaxSize < 0 {
		return req, "", errors.New("max_size must not be negative")
	}

	output := q.Get("output")
	switch output {
	case "":
		output = OutputBinary
	case OutputBinary, OutputBase64, OutputURI:
	default:
		return req, "", errors.New("output must be binary, base64 or uri")
	}

	return req, output, nil
}

// optionalInt returns nil when name is absent and an error when it is not an
// integer.
func optionalInt(q url.Values, name string) (*int, error) {
	if !q.Has(name) {
		return nil, nil
	}
	n, err := strconv.Atoi(q.Get(name))
	if err != nil {
		return nil, errors.New(name + " must be an integer")
	}
	return limits.Int(n), nil
}

func (h *Handler) writeOptimizeError(w http.ResponseWriter, r *http.Request, err error) {
	details := map[string]any{}
	var status int

	switch converter.Status(err) {
	case converter.StatusInvalid:
		status = http.StatusBadRequest
	case converter.StatusDecodeError:
		status = http.StatusUnsupportedMediaType
	case converter.StatusTooLarge:
		status = http.StatusRequestEntityTooLarge
	case converter.StatusExhausted:
		status = http.StatusUnprocessableEntity
		var ex *optimizer.ExhaustedError
		if errors.As(err, &ex) {
			details["min_quality"] = ex.MinQuality
			details["final_size"] = ex.FinalSize
			details["tiered"] = ex.Tiered
		}
	case converter.StatusCancelled:
		status = http.StatusRequestTimeout
	default:
		logctx.From(r.Context()).Error("optimize failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Optimization failed", nil)
		return
	}
	writeError(w, status, err.Error(), details)
}

func writeResult(w http.ResponseWriter, res *optimizer.Result, output string) {
	h := w.Header()
	h.Set("X-Image-Format", res.Format.String())
	h.Set("X-Image-Quality", strconv.Itoa(res.Quality))
	h.Set("X-Image-Width", strconv.Itoa(res.Width))
	h.Set("X-Image-Height", strconv.Itoa(res.Height))
	h.Set("X-Image-Tier", strconv.Itoa(res.Tier))
	h.Set("X-Search-Probes", strconv.Itoa(res.Probes))
	h.Set("X-Image-Bytes", strconv.Itoa(len(res.Data)))

	var body []byte
	switch output {
	case OutputBase64:
		h.Set("Content-Type", "text/plain; charset=utf-8")
		body = []byte(res.Base64())
	case OutputURI:
		h.Set("Content-Type", "text/plain; charset=utf-8")
		body = []byte(res.DataURI())
	default:
		h.Set("Content-Type", res.Format.MIME())
		body = res.Data
	}

	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string, details map[string]any) {
	payload := map[string]any{"error": msg}
	for k, v := range details {
		payload[k] = v
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
