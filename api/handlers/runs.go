package handlers

import (
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/BaSui01/teamflow/events"
	"github.com/BaSui01/teamflow/runs"
	"github.com/BaSui01/teamflow/store"
	"github.com/BaSui01/teamflow/types"
)

// =============================================================================
// 🏃 运行 Handler
// =============================================================================

// RunHandler 运行生命周期处理器
type RunHandler struct {
	manager   *runs.Manager
	store     *store.Store
	registry  *events.Registry
	heartbeat time.Duration
	logger    *zap.Logger
}

// NewRunHandler 创建运行处理器。heartbeat<=0 时使用事件包默认间隔。
func NewRunHandler(manager *runs.Manager, st *store.Store, registry *events.Registry, heartbeat time.Duration, logger *zap.Logger) *RunHandler {
	if heartbeat <= 0 {
		heartbeat = events.DefaultHeartbeatInterval
	}
	return &RunHandler{
		manager:   manager,
		store:     st,
		registry:  registry,
		heartbeat: heartbeat,
		logger:    logger,
	}
}

// StartRunRequest 启动运行请求体
type StartRunRequest struct {
	Task string `json:"task"`
}

// =============================================================================
// 🎯 HTTP 处理程序
// =============================================================================

// HandleStart 启动一次层级运行
// @Summary 启动运行
// @Tags 运行
// @Accept json
// @Produce json
// @Param id path string true "层级 ID"
// @Success 201 {object} Response{data=runs.Run} "已接受"
// @Failure 404 {object} Response "层级不存在"
// @Failure 429 {object} Response "并发上限"
// @Router /api/v1/hierarchies/{id}/runs [post]
func (h *RunHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	hierarchyID := r.PathValue("id")
	if hierarchyID == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "hierarchy ID is required", h.logger)
		return
	}

	var req StartRunRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	record, err := h.store.GetHierarchy(r.Context(), hierarchyID)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	run, err := h.manager.Start(r.Context(), record.ToSpec(), req.Task)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteCreated(w, run)
}

// HandleGet 查询运行状态
// @Summary 查询运行
// @Tags 运行
// @Produce json
// @Param id path string true "运行 ID"
// @Success 200 {object} Response{data=runs.Run} "运行快照"
// @Failure 404 {object} Response "不存在"
// @Router /api/v1/runs/{id} [get]
func (h *RunHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	if runID == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "run ID is required", h.logger)
		return
	}

	run, err := h.manager.Get(r.Context(), runID)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, run)
}

// HandleList 列出运行，支持 hierarchy_id 过滤
// @Summary 列出运行
// @Tags 运行
// @Produce json
// @Success 200 {object} Response{data=ListResponse} "运行列表"
// @Router /api/v1/runs [get]
func (h *RunHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	offset, limit := ParsePaging(r)
	hierarchyID := r.URL.Query().Get("hierarchy_id")

	items, total, err := h.manager.List(r.Context(), hierarchyID, offset, limit)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, ListResponse{Items: items, Total: total, Offset: offset, Limit: limit})
}

// HandleCancel 取消进行中的运行
// @Summary 取消运行
// @Tags 运行
// @Produce json
// @Param id path string true "运行 ID"
// @Success 200 {object} Response "已请求取消"
// @Failure 409 {object} Response "运行已终结"
// @Router /api/v1/runs/{id}/cancel [post]
func (h *RunHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	if runID == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "run ID is required", h.logger)
		return
	}

	if err := h.manager.Cancel(r.Context(), runID); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, map[string]string{"cancelling": runID})
}

// HandleStatistics 查询运行的调用统计
// @Summary 运行调用统计
// @Tags 运行
// @Produce json
// @Param id path string true "运行 ID"
// @Success 200 {object} Response{data=hierarchy.Statistics} "统计"
// @Router /api/v1/runs/{id}/statistics [get]
func (h *RunHandler) HandleStatistics(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	stats, err := h.manager.Statistics(runID)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, stats)
}

// HandleCallLog 查询运行的格式化调用日志
// @Summary 运行调用日志
// @Tags 运行
// @Produce plain
// @Param id path string true "运行 ID"
// @Success 200 {string} string "调用日志"
// @Router /api/v1/runs/{id}/calls [get]
func (h *RunHandler) HandleCallLog(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	log, err := h.manager.CallLog(runID)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(log))
}

// HandleStream 以 Server-Sent Events 推送运行进度
// @Summary 运行进度流（SSE）
// @Tags 运行
// @Produce text/event-stream
// @Param id path string true "运行 ID"
// @Success 200 {string} string "事件流"
// @Failure 404 {object} Response "运行没有事件流"
// @Router /api/v1/runs/{id}/events [get]
func (h *RunHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	bus, ok := h.registry.Get(runID)
	if !ok {
		WriteErrorMessage(w, http.StatusNotFound, types.ErrRunNotFound, "no event stream for run: "+runID, h.logger)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteErrorMessage(w, http.StatusInternalServerError, types.ErrInternalError, "streaming unsupported", h.logger)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for frame := range bus.Consume(r.Context(), h.heartbeat) {
		if _, err := w.Write(frame.EncodeSSE()); err != nil {
			h.logger.Debug("SSE client gone", zap.String("run_id", runID), zap.Error(err))
			return
		}
		flusher.Flush()
		if frame.Kind == events.FrameClose {
			return
		}
	}
}

// HandleStreamWS 以 WebSocket 推送运行进度
// @Summary 运行进度流（WebSocket）
// @Tags 运行
// @Param id path string true "运行 ID"
// @Router /api/v1/runs/{id}/ws [get]
func (h *RunHandler) HandleStreamWS(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	bus, ok := h.registry.Get(runID)
	if !ok {
		WriteErrorMessage(w, http.StatusNotFound, types.ErrRunNotFound, "no event stream for run: "+runID, h.logger)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.String("run_id", runID), zap.Error(err))
		return
	}

	streamer := events.NewWebSocketStreamer(conn, h.logger)
	if err := streamer.Stream(r.Context(), bus, h.heartbeat); err != nil {
		h.logger.Debug("websocket stream ended", zap.String("run_id", runID), zap.Error(err))
	}
}
