package api

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tgdash/internal/controller"
	"tgdash/internal/frame"
	"tgdash/internal/poller"
	"tgdash/internal/report"
	"tgdash/internal/server/history"
	"tgdash/internal/stats"
	"tgdash/internal/store"
	"tgdash/internal/validate"
	"tgdash/internal/visual"
	"tgdash/pkg/model"
)

const maxBody = 1 << 20

// Source is the live controller state kept by the poller.
type Source interface {
	Snapshot() poller.Snapshot
	Refresh(ctx context.Context)
	Subscribe() (<-chan poller.Event, func())
}

// Controller is the part of the controller API the dashboard drives.
type Controller interface {
	StartTrafficGen(ctx context.Context, def model.TrafficGen) error
	StartMultipleTrafficGen(ctx context.Context, tests model.MultipleTrafficGen) error
	StopTrafficGen(ctx context.Context) error
	Profiles(ctx context.Context) (*model.ProfileStatus, error)
}

type Handlers struct {
	src      Source
	ctl      Controller
	store    store.Store
	recorder *history.Recorder
	log      *zap.Logger

	csv *report.CSVBuilder
	pdf *report.PDFBuilder
}

func NewHandlers(src Source, ctl Controller, st store.Store, rec *history.Recorder, log *zap.Logger) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{
		src:      src,
		ctl:      ctl,
		store:    st,
		recorder: rec,
		log:      log,
		csv:      report.NewCSVBuilder(log),
		pdf:      report.NewPDFBuilder(log),
	}
}

type summaryResponse struct {
	Test    string        `json:"test"`
	Name    string        `json:"name"`
	Online  bool          `json:"online"`
	Updated time.Time     `json:"updated"`
	Error   string        `json:"error,omitempty"`
	Summary stats.Summary `json:"summary"`
	Rows    [][]string    `json:"rows"`
}

// Summary aggregates the latest statistics of the selected test.
func (h *Handlers) Summary(c *gin.Context) {
	number, err := h.selected(c)
	if err != nil {
		h.internal(c, err)
		return
	}
	c.JSON(http.StatusOK, h.summarize(h.src.Snapshot(), number))
}

func (h *Handlers) summarize(snap poller.Snapshot, number string) summaryResponse {
	resp := summaryResponse{
		Test:    number,
		Online:  snap.Online,
		Updated: snap.Updated,
		Error:   controller.UserMessage(snap.LastError),
	}
	def, ok := snap.Tests[number]
	if ok {
		resp.Name = def.Name
	}
	s, _ := snap.Statistics.ForTest(number)
	resp.Summary = stats.Summarize(s, def.PortTxRxMapping, &def)
	resp.Rows = report.SummaryRows(resp.Summary)
	return resp
}

// Charts returns the time series bundles of the selected test, or one chart as
// PNG when the metric query parameter is set.
func (h *Handlers) Charts(c *gin.Context) {
	number, err := h.selected(c)
	if err != nil {
		h.internal(c, err)
		return
	}
	snap := h.src.Snapshot()
	ts, _ := snap.TimeStatistics.ForTest(number)
	bundles := visual.Charts(ts, snap.Tests[number].PortTxRxMapping)

	metric := c.Query("metric")
	if metric == "" {
		c.JSON(http.StatusOK, bundles)
		return
	}
	for _, b := range bundles {
		if b.Metric.String() != metric {
			continue
		}
		var buf bytes.Buffer
		if err := visual.RenderLine(&buf, b); err != nil {
			if errors.Is(err, visual.ErrNoData) {
				c.JSON(http.StatusNotFound, gin.H{"error": "not enough data points"})
				return
			}
			h.internal(c, err)
			return
		}
		c.Data(http.StatusOK, "image/png", buf.Bytes())
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "unknown metric"})
}

func (h *Handlers) dataset() report.Dataset {
	snap := h.src.Snapshot()
	return report.Dataset{Tests: snap.Tests, Stats: snap.Statistics, TimeStats: snap.TimeStatistics}
}

func (h *Handlers) ReportCSV(c *gin.Context) {
	var buf bytes.Buffer
	n, err := h.csv.Build(&buf, h.dataset())
	if err != nil {
		h.internal(c, err)
		return
	}
	if n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no statistics available"})
		return
	}
	attachment(c, report.CSVFileName, "text/csv", buf.Bytes())
}

func (h *Handlers) ReportPDF(c *gin.Context) {
	d := h.dataset()
	if d.Stats == nil || len(d.Tests) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no statistics available"})
		return
	}
	var buf bytes.Buffer
	if err := h.pdf.Build(&buf, d); err != nil {
		h.internal(c, err)
		return
	}
	attachment(c, report.PDFFileName, "application/pdf", buf.Bytes())
}

func (h *Handlers) ProfileReportPDF(c *gin.Context) {
	st, err := h.ctl.Profiles(c.Request.Context())
	if err != nil {
		h.controllerError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := h.pdf.Profile(&buf, *st); err != nil {
		h.internal(c, err)
		return
	}
	attachment(c, report.ProfilePDFFileName, "application/pdf", buf.Bytes())
}

func (h *Handlers) GetConfig(c *gin.Context) {
	key := c.Param("key")
	if err := store.CheckKey(key); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	v, err := h.store.Get(c.Request.Context(), key)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.internal(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", v)
}

// PutConfig stores a JSON value. Traffic generator definitions are validated first.
func (h *Handlers) PutConfig(c *gin.Context) {
	key := c.Param("key")
	if err := store.CheckKey(key); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	if key == store.KeyTrafficGen {
		tests, err := validate.ImportFile(body)
		if err == nil {
			err = store.SaveTrafficGen(ctx, h.store, tests)
		}
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
		return
	}
	if err := h.store.Put(ctx, key, body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// Import replaces the stored definitions with an uploaded file.
func (h *Handlers) Import(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tests, err := store.Import(c.Request.Context(), h.store, body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tests": tests.Numbers()})
}

// StartTrafficGen validates the stored definitions, or the request body when
// one is sent, and starts them on the controller.
func (h *Handlers) StartTrafficGen(c *gin.Context) {
	ctx := c.Request.Context()
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var tests model.TestList
	if len(bytes.TrimSpace(body)) > 0 {
		tests, err = validate.ImportFile(body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	} else {
		tests, err = store.LoadTrafficGen(ctx, h.store)
		if err != nil {
			h.internal(c, err)
			return
		}
		for _, n := range tests.Numbers() {
			def := tests[n]
			if err := validate.TrafficGen(&def); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "test " + n + ": " + err.Error()})
				return
			}
		}
	}
	if len(tests) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no traffic generator definition configured"})
		return
	}

	numbers := tests.Numbers()
	if len(numbers) == 1 {
		err = h.ctl.StartTrafficGen(ctx, tests[numbers[0]])
	} else {
		multi := model.MultipleTrafficGen{Tests: make([]model.TrafficGen, 0, len(numbers))}
		for _, n := range numbers {
			multi.Tests = append(multi.Tests, tests[n])
		}
		err = h.ctl.StartMultipleTrafficGen(ctx, multi)
	}
	if err != nil {
		h.controllerError(c, err)
		return
	}
	h.log.Info("traffic generation started", zap.Int("tests", len(numbers)))
	h.src.Refresh(ctx)
	c.JSON(http.StatusAccepted, gin.H{"tests": numbers})
}

// StopTrafficGen stops the generator and archives the run it stopped.
func (h *Handlers) StopTrafficGen(c *gin.Context) {
	ctx := c.Request.Context()
	snap := h.src.Snapshot()
	if err := h.ctl.StopTrafficGen(ctx); err != nil {
		h.controllerError(c, err)
		return
	}
	h.log.Info("traffic generation stopped")
	if h.recorder != nil {
		if err := h.recorder.Finish(ctx, snap); err != nil {
			h.log.Warn("archive results failed", zap.Error(err))
		}
	}
	h.src.Refresh(ctx)
	c.Status(http.StatusNoContent)
}

type previewResponse struct {
	Test       string   `json:"test"`
	StreamID   int      `json:"stream_id"`
	Port       int      `json:"port"`
	FrameSize  int      `json:"frame_size"`
	HeaderLen  int      `json:"header_len"`
	PayloadLen int      `json:"payload_len"`
	Layers     []string `json:"layers"`
	Hex        string   `json:"hex"`
}

// Preview builds the frame template of one stream from the stored definitions.
func (h *Handlers) Preview(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "stream id must be an integer"})
		return
	}
	number, err := h.selected(c)
	if err != nil {
		h.internal(c, err)
		return
	}
	tests, err := store.LoadTrafficGen(c.Request.Context(), h.store)
	if err != nil {
		h.internal(c, err)
		return
	}
	def, ok := tests[number]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown test " + number})
		return
	}
	st, ok := def.Stream(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown stream"})
		return
	}
	settings := def.ActiveSettings(id)
	if p := c.Query("port"); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "port must be an integer"})
			return
		}
		filtered := settings[:0:0]
		for _, s := range settings {
			if s.Port == port {
				filtered = append(filtered, s)
			}
		}
		settings = filtered
	}
	if len(settings) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "stream is not active on any port"})
		return
	}
	tpl, err := frame.Build(st, settings[0])
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, previewResponse{
		Test:       number,
		StreamID:   id,
		Port:       settings[0].Port,
		FrameSize:  tpl.FrameSize,
		HeaderLen:  tpl.HeaderLen,
		PayloadLen: tpl.PayloadLen,
		Layers:     tpl.Layers,
		Hex:        hex.EncodeToString(tpl.Bytes),
	})
}

// History lists archived results, newest first.
func (h *Handlers) History(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	rs, err := h.store.Results(c.Request.Context(), limit)
	if err != nil {
		h.internal(c, err)
		return
	}
	if rs == nil {
		rs = []store.Result{}
	}
	c.JSON(http.StatusOK, rs)
}

// selected is the test number from the query, then the stored selection.
func (h *Handlers) selected(c *gin.Context) (string, error) {
	if n := c.Query("test"); n != "" {
		return n, nil
	}
	s, err := store.LoadSettings(c.Request.Context(), h.store)
	if err != nil {
		return "", err
	}
	return s.Test, nil
}

func (h *Handlers) controllerError(c *gin.Context, err error) {
	status := http.StatusBadGateway
	if controller.IsUnreachable(err) {
		status = http.StatusServiceUnavailable
	}
	h.log.Warn("controller request failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(status, gin.H{"error": controller.UserMessage(err)})
}

func (h *Handlers) internal(c *gin.Context, err error) {
	h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func attachment(c *gin.Context, name, contentType string, data []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, contentType, data)
}
