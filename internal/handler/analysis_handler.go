package handler

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"docanalyser/internal/domain"
	"docanalyser/internal/export"
	"docanalyser/internal/port"
	"docanalyser/internal/service"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// multipart parts larger than this spill to disk
	multipartMemory = 32 << 20
)

// AnalysisHandler handles document analysis endpoints.
type AnalysisHandler struct {
	svc            service.AnalysisService
	results        port.AnalysisResultRepository
	maxUploadBytes int64
}

// NewAnalysisHandler creates a new AnalysisHandler. results may be nil when
// no queryable store is configured.
func NewAnalysisHandler(svc service.AnalysisService, results port.AnalysisResultRepository, maxUploadMB int64) *AnalysisHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 50
	}
	return &AnalysisHandler{svc: svc, results: results, maxUploadBytes: maxUploadMB << 20}
}

// DocumentView is the JSON shape of one analysed document.
type DocumentView struct {
	Path       string         `json:"path"`
	FileName   string         `json:"file_name"`
	Status     string         `json:"status"`
	MIMEType   string         `json:"mime_type,omitempty"`
	SizeBytes  int64          `json:"size_bytes,omitempty"`
	SHA256     string         `json:"sha256,omitempty"`
	PageCount  *int           `json:"page_count,omitempty"`
	Category   string         `json:"category,omitempty"`
	Confidence *float64       `json:"confidence,omitempty"`
	Fields     map[string]any `json:"fields,omitempty"`
	RawText    *string        `json:"raw_text,omitempty"`
	RecordID   *uuid.UUID     `json:"record_id,omitempty"`
	Error      string         `json:"error,omitempty"`
	DurationMS int64          `json:"duration_ms"`
}

// BatchView is the JSON response for an analysis batch.
type BatchView struct {
	Model     string         `json:"model"`
	Total     int            `json:"total"`
	Analysed  int            `json:"analysed"`
	Failed    int            `json:"failed"`
	Documents []DocumentView `json:"documents"`
}

// NewBatchView builds the response body for a batch of outcomes.
func NewBatchView(model string, outcomes []domain.DocumentOutcome) BatchView {
	view := BatchView{Model: model, Total: len(outcomes), Documents: make([]DocumentView, 0, len(outcomes))}
	for i := range outcomes {
		d := newDocumentView(&outcomes[i])
		if d.Status == string(domain.DocumentStatusAnalysed) {
			view.Analysed++
		} else {
			view.Failed++
		}
		view.Documents = append(view.Documents, d)
	}
	return view
}

func newDocumentView(o *domain.DocumentOutcome) DocumentView {
	v := DocumentView{
		Path:       o.Path,
		FileName:   o.FileName(),
		Status:     string(o.Status()),
		RecordID:   o.RecordID,
		DurationMS: o.Duration.Milliseconds(),
	}
	if doc := o.Document; doc != nil {
		v.MIMEType = doc.MIMEType
		v.SizeBytes = doc.SizeBytes
		v.SHA256 = doc.SHA256
		if doc.PDF != nil {
			v.PageCount = doc.PDF.PageCount
		}
	}
	if res := o.Result; res != nil {
		confidence := res.Confidence
		v.Category = string(res.Category)
		v.Confidence = &confidence
		v.Fields = res.Fields
		v.RawText = res.RawText
	}
	if o.Err != nil {
		v.Error = o.Err.Error()
	}
	return v
}

// Analyse handles POST /api/v1/analyses
// @Summary Analyse documents
// @Description Classify and extract fields from uploaded images or PDFs. Files are sent under "files" (or a single "file"); failures are reported per document
// @Tags analyses
// @Accept multipart/form-data
// @Produce json
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param files formData file true "Documents to analyse (PNG, JPEG, WEBP, BMP, TIFF or PDF)"
// @Param format query string false "Response format" Enums(json, csv, xlsx) default(json)
// @Success 200 {object} APIResponse{data=BatchView} "Per-document outcomes in upload order"
// @Failure 400 {object} APIResponse{error=APIError} "No files, unsupported format or no supported documents"
// @Failure 413 {object} APIResponse{error=APIError} "Upload too large"
// @Failure 500 {object} APIResponse{error=APIError} "Analysis failed"
// @Router /analyses [post]
func (h *AnalysisHandler) Analyse(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", "json"))
	if format != "json" && format != "csv" && format != "xlsx" {
		RespondError(c, http.StatusBadRequest, "INVALID_FORMAT", "format must be one of: json, csv, xlsx")
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			HandleError(c, domain.ErrFileTooLarge)
			return
		}
		RespondError(c, http.StatusBadRequest, "INVALID_FORM", "request must be multipart/form-data")
		return
	}

	headers := c.Request.MultipartForm.File["files"]
	headers = append(headers, c.Request.MultipartForm.File["file"]...)
	if len(headers) == 0 {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "files field is required")
		return
	}

	uploads, closeAll, err := openUploads(headers)
	defer closeAll()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_FILE", "could not read uploaded file")
		return
	}

	outcomes, err := h.svc.AnalyseUploads(c.Request.Context(), uploads)
	if err != nil && outcomes == nil {
		HandleError(c, err)
		return
	}

	switch format {
	case "csv":
		h.writeExport(c, contentTypeCSV, "csv", outcomes, export.WriteCSV)
	case "xlsx":
		h.writeExport(c, contentTypeXLSX, "xlsx", outcomes, export.WriteXLSX)
	default:
		RespondOK(c, NewBatchView(h.svc.Model(), outcomes))
	}
}

func openUploads(headers []*multipart.FileHeader) ([]service.Upload, func(), error) {
	files := make([]multipart.File, 0, len(headers))
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	uploads := make([]service.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, closeAll, err
		}
		files = append(files, f)
		uploads = append(uploads, service.Upload{Name: fh.Filename, Body: f})
	}
	return uploads, closeAll, nil
}

func (h *AnalysisHandler) writeExport(
	c *gin.Context,
	contentType, ext string,
	outcomes []domain.DocumentOutcome,
	write func(out io.Writer, outcomes []domain.DocumentOutcome) error,
) {
	var buf bytes.Buffer
	if err := write(&buf, outcomes); err != nil {
		HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+export.BuildFilename("analysis", ext)+`"`)
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// KeyUsage handles GET /api/v1/key-usage
// @Summary Provider key usage
// @Description Report credit and usage figures for the configured API key
// @Tags analyses
// @Produce json
// @Success 200 {object} APIResponse{data=map[string]interface{}} "Provider-reported usage"
// @Failure 501 {object} APIResponse{error=APIError} "Provider does not report key usage"
// @Failure 502 {object} APIResponse{error=APIError} "Provider request failed"
// @Router /key-usage [get]
func (h *AnalysisHandler) KeyUsage(c *gin.Context) {
	usage, err := h.svc.KeyUsage(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, usage)
}

// GetByID handles GET /api/v1/analyses/:id
// @Summary Get stored analysis
// @Description Fetch a persisted analysis record by its record ID
// @Tags analyses
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} APIResponse{data=domain.ResultRecord} "Stored analysis"
// @Failure 404 {object} APIResponse{error=APIError} "Record not found"
// @Failure 501 {object} APIResponse{error=APIError} "Results are not persisted"
// @Router /analyses/{id} [get]
func (h *AnalysisHandler) GetByID(c *gin.Context) {
	if h.results == nil {
		RespondError(c, http.StatusNotImplemented, "NO_RESULT_STORE", "results are not persisted by this server")
		return
	}
	rec, err := h.results.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, rec)
}

// List handles GET /api/v1/analyses?sha256=...
// @Summary List analyses of a document
// @Description List persisted analyses for a document content hash, newest first
// @Tags analyses
// @Produce json
// @Param sha256 query string true "Hex SHA-256 of the document bytes"
// @Success 200 {object} APIResponse{data=[]domain.ResultRecord} "Stored analyses"
// @Failure 400 {object} APIResponse{error=APIError} "Missing or malformed sha256"
// @Failure 501 {object} APIResponse{error=APIError} "Results are not persisted"
// @Router /analyses [get]
func (h *AnalysisHandler) List(c *gin.Context) {
	if h.results == nil {
		RespondError(c, http.StatusNotImplemented, "NO_RESULT_STORE", "results are not persisted by this server")
		return
	}
	sha := strings.ToLower(strings.TrimSpace(c.Query("sha256")))
	if len(sha) != 64 {
		RespondError(c, http.StatusBadRequest, "INVALID_SHA256", "sha256 query parameter must be a 64 character hex digest")
		return
	}
	recs, err := h.results.ListBySHA256(c.Request.Context(), sha)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, recs)
}
